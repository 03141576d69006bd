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

type assignmentRepository interface {
	List(ctx context.Context, scope tenant.Scope, filter models.AssignmentFilter) ([]models.Assignment, int, error)
	FindByID(ctx context.Context, scope tenant.Scope, id string) (*models.Assignment, error)
	Create(ctx context.Context, scope tenant.Scope, assignment *models.Assignment) error
	Update(ctx context.Context, scope tenant.Scope, assignment *models.Assignment) error
	Delete(ctx context.Context, scope tenant.Scope, id string) error
}

type assignmentSectionRepository interface {
	FindByID(ctx context.Context, scope tenant.Scope, id string) (*models.Section, error)
}

// CreateAssignmentRequest captures fields for publishing graded work.
type CreateAssignmentRequest struct {
	SectionID   string    `json:"section_id" validate:"required,uuid4"`
	Title       string    `json:"title" validate:"required"`
	Description string    `json:"description"`
	DueDate     time.Time `json:"due_date" validate:"required"`
	MaxScore    float64   `json:"max_score" validate:"required,gt=0"`
}

// UpdateAssignmentRequest modifies assignment fields. The section binding is
// immutable once created.
type UpdateAssignmentRequest struct {
	Title       string    `json:"title" validate:"required"`
	Description string    `json:"description"`
	DueDate     time.Time `json:"due_date" validate:"required"`
	MaxScore    float64   `json:"max_score" validate:"required,gt=0"`
}

// AssignmentService handles assignment workflows within a school.
type AssignmentService struct {
	repo      assignmentRepository
	sections  assignmentSectionRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAssignmentService creates a new assignment service.
func NewAssignmentService(repo assignmentRepository, sections assignmentSectionRepository, validate *validator.Validate, logger *zap.Logger) *AssignmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssignmentService{repo: repo, sections: sections, validator: validate, logger: logger}
}

// List returns visible assignments for the scope's actor.
func (s *AssignmentService) List(ctx context.Context, scope tenant.Scope, filter models.AssignmentFilter) ([]models.Assignment, *models.Pagination, error) {
	assignments, total, err := s.repo.List(ctx, scope, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list assignments")
	}
	return assignments, models.NewPagination(filter.Page, total), nil
}

// Get returns an assignment by identifier.
func (s *AssignmentService) Get(ctx context.Context, scope tenant.Scope, id string) (*models.Assignment, error) {
	assignment, err := s.repo.FindByID(ctx, scope, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignment")
	}
	return assignment, nil
}

// Create publishes an assignment. Professors may only publish into sections
// they teach; admins into any section of the school.
func (s *AssignmentService) Create(ctx context.Context, scope tenant.Scope, req CreateAssignmentRequest) (*models.Assignment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment payload")
	}

	section, err := s.sections.FindByID(ctx, scope, req.SectionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrCrossTenantReference, "section not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load section")
	}

	if scope.IsProfessor() && section.ProfessorID != scope.UserID() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "section is taught by another professor")
	}

	assignment := &models.Assignment{
		SectionID:   section.ID,
		Title:       req.Title,
		Description: req.Description,
		DueDate:     req.DueDate,
		MaxScore:    req.MaxScore,
		CreatedBy:   scope.UserID(),
	}
	if err := s.repo.Create(ctx, scope, assignment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create assignment")
	}
	return assignment, nil
}

// Update modifies an existing assignment under the same ownership rule as
// Create.
func (s *AssignmentService) Update(ctx context.Context, scope tenant.Scope, id string, req UpdateAssignmentRequest) (*models.Assignment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment payload")
	}

	assignment, err := s.Get(ctx, scope, id)
	if err != nil {
		return nil, err
	}

	if err := s.checkOwnership(ctx, scope, assignment.SectionID); err != nil {
		return nil, err
	}

	assignment.Title = req.Title
	assignment.Description = req.Description
	assignment.DueDate = req.DueDate
	assignment.MaxScore = req.MaxScore

	if err := s.repo.Update(ctx, scope, assignment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update assignment")
	}
	return assignment, nil
}

// Delete removes an assignment under the same ownership rule as Create.
func (s *AssignmentService) Delete(ctx context.Context, scope tenant.Scope, id string) error {
	assignment, err := s.Get(ctx, scope, id)
	if err != nil {
		return err
	}

	if err := s.checkOwnership(ctx, scope, assignment.SectionID); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, scope, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete assignment")
	}
	return nil
}

func (s *AssignmentService) checkOwnership(ctx context.Context, scope tenant.Scope, sectionID string) error {
	if !scope.IsProfessor() {
		return nil
	}
	section, err := s.sections.FindByID(ctx, scope, sectionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "section not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load section")
	}
	if section.ProfessorID != scope.UserID() {
		return appErrors.Clone(appErrors.ErrForbidden, "section is taught by another professor")
	}
	return nil
}
