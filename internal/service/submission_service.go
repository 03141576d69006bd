package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/edustack/edustack-api/internal/models"
	"github.com/edustack/edustack-api/internal/repository"
	"github.com/edustack/edustack-api/internal/tenant"
	appErrors "github.com/edustack/edustack-api/pkg/errors"
)

type submissionRepository interface {
	List(ctx context.Context, scope tenant.Scope, filter models.SubmissionFilter) ([]models.Submission, int, error)
	FindByID(ctx context.Context, scope tenant.Scope, id string) (*models.Submission, error)
	FindByAssignmentAndStudent(ctx context.Context, scope tenant.Scope, assignmentID, studentID string) (*models.Submission, error)
	Create(ctx context.Context, scope tenant.Scope, submission *models.Submission) error
	UpdateContent(ctx context.Context, scope tenant.Scope, submission *models.Submission) error
	Grade(ctx context.Context, scope tenant.Scope, submission *models.Submission) error
	GradeSheet(ctx context.Context, scope tenant.Scope, sectionID string) ([]repository.GradeRow, error)
}

type submissionAssignmentRepository interface {
	FindByID(ctx context.Context, scope tenant.Scope, id string) (*models.Assignment, error)
}

type submissionSectionRepository interface {
	FindByID(ctx context.Context, scope tenant.Scope, id string) (*models.Section, error)
}

type submissionEnrollmentRepository interface {
	HasActiveEnrollment(ctx context.Context, scope tenant.Scope, studentID, sectionID string) (bool, error)
}

// CreateSubmissionRequest captures a student's answer to an assignment.
type CreateSubmissionRequest struct {
	AssignmentID string  `json:"assignment_id" validate:"required,uuid4"`
	Content      string  `json:"content" validate:"required"`
	FileURL      *string `json:"file_url" validate:"omitempty,url"`
}

// GradeSubmissionRequest records score and feedback for a submission.
type GradeSubmissionRequest struct {
	Score    float64 `json:"score" validate:"min=0"`
	Feedback *string `json:"feedback"`
}

// SubmissionService handles submission and grading workflows.
type SubmissionService struct {
	repo        submissionRepository
	assignments submissionAssignmentRepository
	sections    submissionSectionRepository
	enrollments submissionEnrollmentRepository
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewSubmissionService creates a new submission service.
func NewSubmissionService(repo submissionRepository, assignments submissionAssignmentRepository, sections submissionSectionRepository, enrollments submissionEnrollmentRepository, validate *validator.Validate, logger *zap.Logger) *SubmissionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubmissionService{
		repo:        repo,
		assignments: assignments,
		sections:    sections,
		enrollments: enrollments,
		validator:   validate,
		logger:      logger,
	}
}

// List returns visible submissions for the scope's actor.
func (s *SubmissionService) List(ctx context.Context, scope tenant.Scope, filter models.SubmissionFilter) ([]models.Submission, *models.Pagination, error) {
	submissions, total, err := s.repo.List(ctx, scope, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list submissions")
	}
	return submissions, models.NewPagination(filter.Page, total), nil
}

// Get returns a submission by identifier. Students see only their own rows,
// professors only rows of sections they teach; anything else reads as
// missing.
func (s *SubmissionService) Get(ctx context.Context, scope tenant.Scope, id string) (*models.Submission, error) {
	submission, err := s.repo.FindByID(ctx, scope, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "submission not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load submission")
	}

	if scope.IsStudent() && submission.StudentID != scope.UserID() {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "submission not found")
	}
	if scope.IsProfessor() {
		if err := s.checkSectionOwnership(ctx, scope, submission.AssignmentID); err != nil {
			return nil, err
		}
	}
	return submission, nil
}

// Submit records a student's answer. The student must hold an active
// enrollment in the assignment's section. Resubmission before grading
// updates the existing row; a graded submission is immutable.
func (s *SubmissionService) Submit(ctx context.Context, scope tenant.Scope, req CreateSubmissionRequest) (*models.Submission, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid submission payload")
	}

	assignment, err := s.assignments.FindByID(ctx, scope, req.AssignmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrCrossTenantReference, "assignment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignment")
	}

	enrolled, err := s.enrollments.HasActiveEnrollment(ctx, scope, scope.UserID(), assignment.SectionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollment")
	}
	if !enrolled {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "student is not enrolled in the assignment's section")
	}

	existing, err := s.repo.FindByAssignmentAndStudent(ctx, scope, assignment.ID, scope.UserID())
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check prior submission")
	}

	if existing != nil {
		if existing.Status == models.SubmissionGraded {
			return nil, appErrors.Clone(appErrors.ErrConflict, "submission already graded")
		}
		existing.Content = req.Content
		existing.FileURL = req.FileURL
		existing.Status = models.SubmissionSubmitted
		if err := s.repo.UpdateContent(ctx, scope, existing); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update submission")
		}
		return existing, nil
	}

	submission := &models.Submission{
		AssignmentID: assignment.ID,
		StudentID:    scope.UserID(),
		Status:       models.SubmissionSubmitted,
		Content:      req.Content,
		FileURL:      req.FileURL,
	}
	if err := s.repo.Create(ctx, scope, submission); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create submission")
	}
	return submission, nil
}

// Grade records score and feedback. The grader must teach the assignment's
// section (admins may grade anywhere in the school) and the score must fall
// within [0, max_score].
func (s *SubmissionService) Grade(ctx context.Context, scope tenant.Scope, id string, req GradeSubmissionRequest) (*models.Submission, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grade payload")
	}

	submission, err := s.repo.FindByID(ctx, scope, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "submission not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load submission")
	}

	assignment, err := s.assignments.FindByID(ctx, scope, submission.AssignmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignment")
	}

	if scope.IsProfessor() {
		section, err := s.sections.FindByID(ctx, scope, assignment.SectionID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "section not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load section")
		}
		if section.ProfessorID != scope.UserID() {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "section is taught by another professor")
		}
	}

	if req.Score < 0 || req.Score > assignment.MaxScore {
		return nil, appErrors.Validation(
			fmt.Sprintf("score must be between 0 and %g", assignment.MaxScore),
			map[string]string{"score": appErrors.KindScoreOutOfRange},
		)
	}

	now := time.Now().UTC()
	graderID := scope.UserID()
	submission.Status = models.SubmissionGraded
	submission.Score = &req.Score
	submission.Feedback = req.Feedback
	submission.GradedBy = &graderID
	submission.GradedAt = &now

	if err := s.repo.Grade(ctx, scope, submission); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to grade submission")
	}
	return submission, nil
}

// Return transitions a graded submission to RETURNED, releasing the grade
// to the student.
func (s *SubmissionService) Return(ctx context.Context, scope tenant.Scope, id string) (*models.Submission, error) {
	submission, err := s.Get(ctx, scope, id)
	if err != nil {
		return nil, err
	}

	if submission.Status != models.SubmissionGraded {
		return nil, appErrors.Clone(appErrors.ErrConflict, "only graded submissions can be returned")
	}

	submission.Status = models.SubmissionReturned
	if err := s.repo.Grade(ctx, scope, submission); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to return submission")
	}
	return submission, nil
}

func (s *SubmissionService) checkSectionOwnership(ctx context.Context, scope tenant.Scope, assignmentID string) error {
	assignment, err := s.assignments.FindByID(ctx, scope, assignmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "submission not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignment")
	}
	section, err := s.sections.FindByID(ctx, scope, assignment.SectionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "submission not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load section")
	}
	if section.ProfessorID != scope.UserID() {
		return appErrors.Clone(appErrors.ErrNotFound, "submission not found")
	}
	return nil
}
