package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/edustack/edustack-api/internal/models"
	appErrors "github.com/edustack/edustack-api/pkg/errors"
)

type schoolRepository interface {
	List(ctx context.Context, filter models.SchoolFilter) ([]models.School, int, error)
	FindByID(ctx context.Context, id string) (*models.School, error)
	ExistsByNameOrSubdomain(ctx context.Context, name, subdomain string) (bool, error)
	ExistsByNameOrSubdomainExcluding(ctx context.Context, name, subdomain, excludeID string) (bool, error)
	Create(ctx context.Context, school *models.School) error
	Update(ctx context.Context, school *models.School) error
	SetActive(ctx context.Context, id string, active bool) error
}

type schoolUserRepository interface {
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Create(ctx context.Context, user *models.User) error
}

type tenantStatusInvalidator interface {
	Delete(ctx context.Context, key string) error
}

// CreateSchoolRequest captures fields for registering a tenant.
type CreateSchoolRequest struct {
	Name      string `json:"name" validate:"required"`
	Subdomain string `json:"subdomain" validate:"required,hostname_rfc1123"`
}

// UpdateSchoolRequest modifies tenant fields.
type UpdateSchoolRequest struct {
	Name      string `json:"name" validate:"required"`
	Subdomain string `json:"subdomain" validate:"required,hostname_rfc1123"`
}

// CreateAdminRequest captures fields for provisioning a school admin.
type CreateAdminRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	FullName string `json:"full_name" validate:"required"`
}

// SchoolService handles the superadmin tenant registry.
type SchoolService struct {
	repo      schoolRepository
	users     schoolUserRepository
	cache     tenantStatusInvalidator
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSchoolService creates a new school service.
func NewSchoolService(repo schoolRepository, users schoolUserRepository, cache tenantStatusInvalidator, validate *validator.Validate, logger *zap.Logger) *SchoolService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SchoolService{repo: repo, users: users, cache: cache, validator: validate, logger: logger}
}

// List returns paginated schools.
func (s *SchoolService) List(ctx context.Context, filter models.SchoolFilter) ([]models.School, *models.Pagination, error) {
	schools, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list schools")
	}
	return schools, models.NewPagination(filter.Page, total), nil
}

// Get returns a school by identifier.
func (s *SchoolService) Get(ctx context.Context, id string) (*models.School, error) {
	school, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "school not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load school")
	}
	return school, nil
}

// Create registers a new tenant ensuring name and subdomain uniqueness.
func (s *SchoolService) Create(ctx context.Context, req CreateSchoolRequest) (*models.School, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid school payload")
	}

	req.Subdomain = strings.ToLower(strings.TrimSpace(req.Subdomain))

	exists, err := s.repo.ExistsByNameOrSubdomain(ctx, req.Name, req.Subdomain)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check school identifiers")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "school name or subdomain already in use")
	}

	school := &models.School{
		Name:      req.Name,
		Subdomain: req.Subdomain,
		Active:    true,
	}
	if err := s.repo.Create(ctx, school); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create school")
	}
	return school, nil
}

// Update modifies an existing tenant.
func (s *SchoolService) Update(ctx context.Context, id string, req UpdateSchoolRequest) (*models.School, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid school payload")
	}

	school, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	req.Subdomain = strings.ToLower(strings.TrimSpace(req.Subdomain))
	if req.Name != school.Name || req.Subdomain != school.Subdomain {
		exists, err := s.repo.ExistsByNameOrSubdomainExcluding(ctx, req.Name, req.Subdomain, school.ID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check school identifiers")
		}
		if exists {
			return nil, appErrors.Clone(appErrors.ErrConflict, "school name or subdomain already in use")
		}
	}

	school.Name = req.Name
	school.Subdomain = req.Subdomain

	if err := s.repo.Update(ctx, school); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update school")
	}
	return school, nil
}

// SetActive toggles a tenant's active flag and invalidates the cached gate
// decision so deactivation takes effect within the cache TTL.
func (s *SchoolService) SetActive(ctx context.Context, id string, active bool) (*models.School, error) {
	school, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.repo.SetActive(ctx, id, active); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update school status")
	}
	school.Active = active
	school.UpdatedAt = time.Now().UTC()

	s.invalidateStatus(ctx, id)
	return school, nil
}

// CreateAdmin provisions an ADMIN user bound to the school. The school
// assignment comes from the URL, never from the request body.
func (s *SchoolService) CreateAdmin(ctx context.Context, schoolID string, req CreateAdminRequest) (*models.User, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid admin payload")
	}

	if _, err := s.Get(ctx, schoolID); err != nil {
		return nil, err
	}

	exists, err := s.users.ExistsByEmail(ctx, req.Email)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check email")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "email already registered")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	admin := &models.User{
		SchoolID:     &schoolID,
		Email:        req.Email,
		PasswordHash: string(hash),
		FullName:     req.FullName,
		Role:         models.RoleAdmin,
		Active:       true,
	}
	if err := admin.ValidateTenantAssignment(); err != nil {
		return nil, err
	}
	if err := s.users.Create(ctx, admin); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create admin")
	}
	return admin, nil
}

func (s *SchoolService) invalidateStatus(ctx context.Context, schoolID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, tenantStatusCacheKey(schoolID)); err != nil {
		s.logger.Warn("failed to invalidate tenant status cache", zap.String("school_id", schoolID), zap.Error(err))
	}
}
