package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/edustack/edustack-api/internal/models"
	"github.com/edustack/edustack-api/internal/tenant"
	appErrors "github.com/edustack/edustack-api/pkg/errors"
)

type sectionRepository interface {
	List(ctx context.Context, scope tenant.Scope, filter models.SectionFilter) ([]models.SectionDetail, int, error)
	FindByID(ctx context.Context, scope tenant.Scope, id string) (*models.Section, error)
	Create(ctx context.Context, scope tenant.Scope, section *models.Section) error
	Update(ctx context.Context, scope tenant.Scope, section *models.Section) error
	Delete(ctx context.Context, scope tenant.Scope, id string) error
	CountEnrolled(ctx context.Context, scope tenant.Scope, sectionID string) (int, error)
}

type sectionSubjectRepository interface {
	FindByID(ctx context.Context, scope tenant.Scope, id string) (*models.Subject, error)
}

type sectionUserRepository interface {
	FindScoped(ctx context.Context, scope tenant.Scope, id string) (*models.User, error)
}

// CreateSectionRequest captures fields for scheduling a section.
type CreateSectionRequest struct {
	SubjectID   string    `json:"subject_id" validate:"required,uuid4"`
	ProfessorID string    `json:"professor_id" validate:"required,uuid4"`
	Name        string    `json:"name" validate:"required"`
	StartDate   time.Time `json:"start_date" validate:"required"`
	EndDate     time.Time `json:"end_date" validate:"required,gtfield=StartDate"`
	MaxStudents int       `json:"max_students" validate:"required,min=1"`
}

// UpdateSectionRequest modifies section fields.
type UpdateSectionRequest struct {
	SubjectID   string    `json:"subject_id" validate:"required,uuid4"`
	ProfessorID string    `json:"professor_id" validate:"required,uuid4"`
	Name        string    `json:"name" validate:"required"`
	StartDate   time.Time `json:"start_date" validate:"required"`
	EndDate     time.Time `json:"end_date" validate:"required,gtfield=StartDate"`
	MaxStudents int       `json:"max_students" validate:"required,min=1"`
}

// SectionService handles section workflows within a school.
type SectionService struct {
	repo      sectionRepository
	subjects  sectionSubjectRepository
	users     sectionUserRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSectionService creates a new section service.
func NewSectionService(repo sectionRepository, subjects sectionSubjectRepository, users sectionUserRepository, validate *validator.Validate, logger *zap.Logger) *SectionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SectionService{repo: repo, subjects: subjects, users: users, validator: validate, logger: logger}
}

// List returns visible sections for the scope's actor.
func (s *SectionService) List(ctx context.Context, scope tenant.Scope, filter models.SectionFilter) ([]models.SectionDetail, *models.Pagination, error) {
	sections, total, err := s.repo.List(ctx, scope, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sections")
	}
	return sections, models.NewPagination(filter.Page, total), nil
}

// Get returns a section by identifier.
func (s *SectionService) Get(ctx context.Context, scope tenant.Scope, id string) (*models.Section, error) {
	section, err := s.repo.FindByID(ctx, scope, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "section not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load section")
	}
	return section, nil
}

// Create schedules a section. Subject and professor references are resolved
// through the scope, so a reference into another school reads as missing.
func (s *SectionService) Create(ctx context.Context, scope tenant.Scope, req CreateSectionRequest) (*models.Section, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid section payload")
	}

	if err := s.validateReferences(ctx, scope, req.SubjectID, req.ProfessorID); err != nil {
		return nil, err
	}

	section := &models.Section{
		SubjectID:   req.SubjectID,
		ProfessorID: req.ProfessorID,
		Name:        req.Name,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		MaxStudents: req.MaxStudents,
	}
	if err := s.repo.Create(ctx, scope, section); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create section")
	}
	return section, nil
}

// Update modifies an existing section.
func (s *SectionService) Update(ctx context.Context, scope tenant.Scope, id string, req UpdateSectionRequest) (*models.Section, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid section payload")
	}

	section, err := s.Get(ctx, scope, id)
	if err != nil {
		return nil, err
	}

	if err := s.validateReferences(ctx, scope, req.SubjectID, req.ProfessorID); err != nil {
		return nil, err
	}

	section.SubjectID = req.SubjectID
	section.ProfessorID = req.ProfessorID
	section.Name = req.Name
	section.StartDate = req.StartDate
	section.EndDate = req.EndDate
	section.MaxStudents = req.MaxStudents

	if err := s.repo.Update(ctx, scope, section); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update section")
	}
	return section, nil
}

// Delete removes a section when no students are actively enrolled.
func (s *SectionService) Delete(ctx context.Context, scope tenant.Scope, id string) error {
	section, err := s.Get(ctx, scope, id)
	if err != nil {
		return err
	}

	count, err := s.repo.CountEnrolled(ctx, scope, section.ID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check section enrollments")
	}
	if count > 0 {
		return appErrors.Clone(appErrors.ErrConflict, "section has enrolled students")
	}

	if err := s.repo.Delete(ctx, scope, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete section")
	}
	return nil
}

func (s *SectionService) validateReferences(ctx context.Context, scope tenant.Scope, subjectID, professorID string) error {
	if _, err := s.subjects.FindByID(ctx, scope, subjectID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.logger.Info("section references subject outside school",
				zap.String("school_id", scope.SchoolID()), zap.String("subject_id", subjectID))
			return appErrors.Clone(appErrors.ErrCrossTenantReference, "subject not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}

	professor, err := s.users.FindScoped(ctx, scope, professorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.logger.Info("section references professor outside school",
				zap.String("school_id", scope.SchoolID()), zap.String("professor_id", professorID))
			return appErrors.Clone(appErrors.ErrCrossTenantReference, "professor not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load professor")
	}
	if professor.Role != models.RoleProfessor {
		return appErrors.Validation("professor_id must reference a professor", map[string]string{
			"professor_id": "user is not a professor",
		})
	}
	if !professor.Active {
		return appErrors.Validation("professor is inactive", map[string]string{
			"professor_id": "user is inactive",
		})
	}
	return nil
}
