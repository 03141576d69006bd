package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/edustack/edustack-api/internal/models"
	"github.com/edustack/edustack-api/internal/tenant"
	appErrors "github.com/edustack/edustack-api/pkg/errors"
)

type userRepository interface {
	List(ctx context.Context, scope tenant.Scope, filter models.UserFilter) ([]models.User, int, error)
	FindScoped(ctx context.Context, scope tenant.Scope, id string) (*models.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, scope tenant.Scope, user *models.User) error
	Deactivate(ctx context.Context, scope tenant.Scope, id string) error
	RevokeUserRefreshTokens(ctx context.Context, userID string) error
}

// CreateUserRequest captures fields for provisioning a school member.
// The role is restricted to the academic tiers; admins cannot mint
// superadmins or further admins.
type CreateUserRequest struct {
	Email    string          `json:"email" validate:"required,email"`
	Password string          `json:"password" validate:"required,min=8"`
	FullName string          `json:"full_name" validate:"required"`
	Role     models.UserRole `json:"role" validate:"required,oneof=PROFESSOR STUDENT"`
}

// UpdateUserRequest modifies mutable profile fields. Active may only be
// toggled by an admin.
type UpdateUserRequest struct {
	FullName string `json:"full_name" validate:"required"`
	Active   *bool  `json:"active,omitempty"`
}

// UserService handles school membership workflows.
type UserService struct {
	repo      userRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewUserService creates a new user service.
func NewUserService(repo userRepository, validate *validator.Validate, logger *zap.Logger) *UserService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{repo: repo, validator: validate, logger: logger}
}

// List returns paginated members of the scope's school. The directory is an
// admin view; professors and students only see their own record.
func (s *UserService) List(ctx context.Context, scope tenant.Scope, filter models.UserFilter) ([]models.User, *models.Pagination, error) {
	if !scope.IsAdmin() {
		user, err := s.Get(ctx, scope, scope.UserID())
		if err != nil {
			return nil, nil, err
		}
		return []models.User{*user}, models.NewPagination(1, 1), nil
	}

	users, total, err := s.repo.List(ctx, scope, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list users")
	}
	return users, models.NewPagination(filter.Page, total), nil
}

// Get returns a school member by identifier. Non-admins can only resolve
// themselves; other ids read as missing so the directory stays private.
func (s *UserService) Get(ctx context.Context, scope tenant.Scope, id string) (*models.User, error) {
	if !scope.IsAdmin() && id != scope.UserID() {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
	}

	user, err := s.repo.FindScoped(ctx, scope, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	return user, nil
}

// Create provisions a professor or student in the scope's school.
func (s *UserService) Create(ctx context.Context, scope tenant.Scope, req CreateUserRequest) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	req.Email = email
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid user payload")
	}

	exists, err := s.repo.ExistsByEmail(ctx, email)
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

	schoolID := scope.SchoolID()
	user := &models.User{
		SchoolID:     &schoolID,
		Email:        email,
		PasswordHash: string(hash),
		FullName:     req.FullName,
		Role:         req.Role,
		Active:       true,
	}
	if err := user.ValidateTenantAssignment(); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create user")
	}
	return user, nil
}

// Update modifies a member's profile within the scope's school. Non-admins
// may only edit their own profile, and the active flag is admin-only: it
// would otherwise reopen the deactivation path to the account's owner.
func (s *UserService) Update(ctx context.Context, scope tenant.Scope, id string, req UpdateUserRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid user payload")
	}

	if !scope.IsAdmin() && id != scope.UserID() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "cannot modify another member")
	}
	if req.Active != nil && !scope.IsAdmin() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "account status is managed by admins")
	}

	user, err := s.Get(ctx, scope, id)
	if err != nil {
		return nil, err
	}

	user.FullName = req.FullName
	if req.Active != nil {
		user.Active = *req.Active
	}

	if err := s.repo.Update(ctx, scope, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update user")
	}
	return user, nil
}

// Deactivate soft-disables a member and revokes their live sessions so the
// account stops working once the access token expires.
func (s *UserService) Deactivate(ctx context.Context, scope tenant.Scope, id string) error {
	if id == scope.UserID() {
		return appErrors.Clone(appErrors.ErrForbidden, "cannot deactivate own account")
	}

	if _, err := s.Get(ctx, scope, id); err != nil {
		return err
	}

	if err := s.repo.Deactivate(ctx, scope, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate user")
	}

	if err := s.repo.RevokeUserRefreshTokens(ctx, id); err != nil {
		s.logger.Warn("failed to revoke sessions for deactivated user", zap.String("user_id", id), zap.Error(err))
	}
	return nil
}
