package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/edustack/edustack-api/internal/models"
	"github.com/edustack/edustack-api/internal/tenant"
	appErrors "github.com/edustack/edustack-api/pkg/errors"
)

type enrollmentRepository interface {
	List(ctx context.Context, scope tenant.Scope, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error)
	FindByID(ctx context.Context, scope tenant.Scope, id string) (*models.Enrollment, error)
	ExistsActive(ctx context.Context, scope tenant.Scope, studentID, sectionID string) (bool, error)
	Create(ctx context.Context, scope tenant.Scope, enrollment *models.Enrollment) error
	UpdateStatus(ctx context.Context, scope tenant.Scope, id string, status models.EnrollmentStatus) error
	ListByStudent(ctx context.Context, scope tenant.Scope, studentID string) ([]models.EnrollmentDetail, error)
}

type enrollmentSectionRepository interface {
	FindByID(ctx context.Context, scope tenant.Scope, id string) (*models.Section, error)
	CountEnrolled(ctx context.Context, scope tenant.Scope, sectionID string) (int, error)
}

type enrollmentUserRepository interface {
	FindScoped(ctx context.Context, scope tenant.Scope, id string) (*models.User, error)
}

// CreateEnrollmentRequest enrolls a student in a section. StudentID is
// honoured for admins only; students always enroll themselves.
type CreateEnrollmentRequest struct {
	SectionID string `json:"section_id" validate:"required,uuid4"`
	StudentID string `json:"student_id" validate:"omitempty,uuid4"`
}

// EnrollmentService handles enrollment workflows within a school.
type EnrollmentService struct {
	repo      enrollmentRepository
	sections  enrollmentSectionRepository
	users     enrollmentUserRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewEnrollmentService creates a new enrollment service.
func NewEnrollmentService(repo enrollmentRepository, sections enrollmentSectionRepository, users enrollmentUserRepository, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{repo: repo, sections: sections, users: users, validator: validate, logger: logger}
}

// List returns visible enrollments for the scope's actor.
func (s *EnrollmentService) List(ctx context.Context, scope tenant.Scope, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, *models.Pagination, error) {
	enrollments, total, err := s.repo.List(ctx, scope, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	return enrollments, models.NewPagination(filter.Page, total), nil
}

// ListMine returns every enrollment of the acting student.
func (s *EnrollmentService) ListMine(ctx context.Context, scope tenant.Scope) ([]models.EnrollmentDetail, error) {
	enrollments, err := s.repo.ListByStudent(ctx, scope, scope.UserID())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	return enrollments, nil
}

// Create enrolls a student in a section, enforcing capacity and the
// one-active-enrollment rule. Students may only enroll themselves.
func (s *EnrollmentService) Create(ctx context.Context, scope tenant.Scope, req CreateEnrollmentRequest) (*models.Enrollment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}

	studentID := req.StudentID
	if scope.IsStudent() || studentID == "" {
		studentID = scope.UserID()
	}

	student, err := s.users.FindScoped(ctx, scope, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrCrossTenantReference, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if student.Role != models.RoleStudent {
		return nil, appErrors.Validation("only students can be enrolled", map[string]string{
			"student_id": "user is not a student",
		})
	}
	if !student.Active {
		return nil, appErrors.Validation("student is inactive", map[string]string{
			"student_id": "user is inactive",
		})
	}

	section, err := s.sections.FindByID(ctx, scope, req.SectionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrCrossTenantReference, "section not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load section")
	}

	exists, err := s.repo.ExistsActive(ctx, scope, studentID, section.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollment")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "student already enrolled in section")
	}

	enrolled, err := s.sections.CountEnrolled(ctx, scope, section.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check section capacity")
	}
	if enrolled >= section.MaxStudents {
		return nil, appErrors.Clone(appErrors.ErrConflict, "section is full")
	}

	enrollment := &models.Enrollment{
		StudentID: studentID,
		SectionID: section.ID,
		Status:    models.EnrollmentEnrolled,
	}
	if err := s.repo.Create(ctx, scope, enrollment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create enrollment")
	}
	return enrollment, nil
}

// Drop transitions an enrollment to DROPPED. Students may only drop their
// own enrollment; a completed enrollment cannot be dropped.
func (s *EnrollmentService) Drop(ctx context.Context, scope tenant.Scope, id string) (*models.Enrollment, error) {
	enrollment, err := s.repo.FindByID(ctx, scope, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}

	if scope.IsStudent() && enrollment.StudentID != scope.UserID() {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
	}

	switch enrollment.Status {
	case models.EnrollmentDropped:
		return nil, appErrors.Clone(appErrors.ErrConflict, "enrollment already dropped")
	case models.EnrollmentCompleted:
		return nil, appErrors.Clone(appErrors.ErrConflict, "completed enrollment cannot be dropped")
	}

	if err := s.repo.UpdateStatus(ctx, scope, id, models.EnrollmentDropped); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to drop enrollment")
	}
	enrollment.Status = models.EnrollmentDropped
	return enrollment, nil
}

// Complete transitions an enrollment to COMPLETED, an admin operation run at
// the end of a term.
func (s *EnrollmentService) Complete(ctx context.Context, scope tenant.Scope, id string) (*models.Enrollment, error) {
	enrollment, err := s.repo.FindByID(ctx, scope, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}

	if enrollment.Status != models.EnrollmentEnrolled {
		return nil, appErrors.Clone(appErrors.ErrConflict, "only active enrollments can be completed")
	}

	if err := s.repo.UpdateStatus(ctx, scope, id, models.EnrollmentCompleted); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to complete enrollment")
	}
	enrollment.Status = models.EnrollmentCompleted
	return enrollment, nil
}
