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
	appErrors "github.com/edustack/edustack-api/pkg/errors"
)

type subscriptionRepository interface {
	List(ctx context.Context, schoolID string, page int) ([]models.Subscription, int, error)
	FindByID(ctx context.Context, id string) (*models.Subscription, error)
	Assign(ctx context.Context, sub *models.Subscription) error
	Renew(ctx context.Context, id string, endDate time.Time) error
	ListExpired(ctx context.Context, today time.Time) ([]models.Subscription, error)
}

type subscriptionSchoolRepository interface {
	FindByID(ctx context.Context, id string) (*models.School, error)
	IsActiveWithSubscription(ctx context.Context, id string, today time.Time) (bool, error)
}

type tenantStatusCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

type tenantStatusMetrics interface {
	RecordTenantStatusLookup(hit bool)
}

func tenantStatusCacheKey(schoolID string) string {
	return fmt.Sprintf("tenant:status:%s", schoolID)
}

// AssignSubscriptionRequest grants a school a plan for a validity window.
type AssignSubscriptionRequest struct {
	Plan      models.SubscriptionPlan `json:"plan" validate:"required,oneof=BASIC PREMIUM"`
	StartDate time.Time               `json:"start_date" validate:"required"`
	EndDate   time.Time               `json:"end_date" validate:"required,gtfield=StartDate"`
}

// RenewSubscriptionRequest extends a subscription's validity window.
type RenewSubscriptionRequest struct {
	EndDate time.Time `json:"end_date" validate:"required"`
}

// SubscriptionService handles subscription lifecycle and is the tenant
// gate's backing implementation.
type SubscriptionService struct {
	repo      subscriptionRepository
	schools   subscriptionSchoolRepository
	cache     tenantStatusCache
	metrics   tenantStatusMetrics
	validator *validator.Validate
	logger    *zap.Logger
	cacheTTL  time.Duration
}

// NewSubscriptionService creates a new subscription service.
func NewSubscriptionService(repo subscriptionRepository, schools subscriptionSchoolRepository, cache tenantStatusCache, metrics tenantStatusMetrics, validate *validator.Validate, logger *zap.Logger, cacheTTL time.Duration) *SubscriptionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = time.Minute
	}
	return &SubscriptionService{
		repo:      repo,
		schools:   schools,
		cache:     cache,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		cacheTTL:  cacheTTL,
	}
}

// List returns paginated subscriptions, optionally filtered by school.
func (s *SubscriptionService) List(ctx context.Context, schoolID string, page int) ([]models.Subscription, *models.Pagination, error) {
	subs, total, err := s.repo.List(ctx, schoolID, page)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list subscriptions")
	}
	return subs, models.NewPagination(page, total), nil
}

// Assign grants a school a subscription, canceling any prior active one.
func (s *SubscriptionService) Assign(ctx context.Context, schoolID string, req AssignSubscriptionRequest) (*models.Subscription, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid subscription payload")
	}

	if _, err := s.schools.FindByID(ctx, schoolID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "school not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load school")
	}

	sub := &models.Subscription{
		SchoolID:  schoolID,
		Plan:      req.Plan,
		Status:    models.SubscriptionActive,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
	}
	if err := s.repo.Assign(ctx, sub); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to assign subscription")
	}

	s.invalidateStatus(ctx, schoolID)
	return sub, nil
}

// Renew extends a subscription and re-activates it.
func (s *SubscriptionService) Renew(ctx context.Context, id string, req RenewSubscriptionRequest) (*models.Subscription, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid renewal payload")
	}

	sub, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subscription not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subscription")
	}

	if !req.EndDate.After(sub.EndDate) {
		return nil, appErrors.Validation("renewal must extend the current validity window", map[string]string{
			"end_date": "must be after the current end date",
		})
	}

	if err := s.repo.Renew(ctx, id, req.EndDate); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to renew subscription")
	}

	sub.EndDate = req.EndDate
	sub.Status = models.SubscriptionActive
	sub.UpdatedAt = time.Now().UTC()

	s.invalidateStatus(ctx, sub.SchoolID)
	return sub, nil
}

// ListExpired returns active subscriptions whose validity window has passed,
// used by operators to sweep lapsed tenants.
func (s *SubscriptionService) ListExpired(ctx context.Context) ([]models.Subscription, error) {
	subs, err := s.repo.ListExpired(ctx, time.Now().UTC())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list expired subscriptions")
	}
	return subs, nil
}

// IsSchoolActive reports whether the school may serve tenant traffic. The
// decision is cached briefly to keep the gate off the request hot path.
func (s *SubscriptionService) IsSchoolActive(ctx context.Context, schoolID string) (bool, error) {
	key := tenantStatusCacheKey(schoolID)

	if s.cache != nil {
		var active bool
		if err := s.cache.Get(ctx, key, &active); err == nil {
			if s.metrics != nil {
				s.metrics.RecordTenantStatusLookup(true)
			}
			return active, nil
		} else if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("tenant status cache read failed", zap.String("school_id", schoolID), zap.Error(err))
		}
	}
	if s.metrics != nil {
		s.metrics.RecordTenantStatusLookup(false)
	}

	active, err := s.schools.IsActiveWithSubscription(ctx, schoolID, time.Now().UTC())
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check school status")
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, active, s.cacheTTL); err != nil {
			s.logger.Warn("tenant status cache write failed", zap.String("school_id", schoolID), zap.Error(err))
		}
	}
	return active, nil
}

func (s *SubscriptionService) invalidateStatus(ctx context.Context, schoolID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, tenantStatusCacheKey(schoolID)); err != nil {
		s.logger.Warn("failed to invalidate tenant status cache", zap.String("school_id", schoolID), zap.Error(err))
	}
}
