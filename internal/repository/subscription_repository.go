package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/edustack/edustack-api/internal/models"
)

const subscriptionColumns = "id, school_id, plan, status, start_date, end_date, created_at, updated_at"

// SubscriptionRepository handles persistence for subscriptions.
// Superadmin-only surface, not tenant-scoped.
type SubscriptionRepository struct {
	db *sqlx.DB
}

// NewSubscriptionRepository creates a new repository instance.
func NewSubscriptionRepository(db *sqlx.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

// List returns subscriptions, optionally filtered by school.
func (r *SubscriptionRepository) List(ctx context.Context, schoolID string, page int) ([]models.Subscription, int, error) {
	base := "FROM subscriptions WHERE 1=1"
	var args []interface{}
	if schoolID != "" {
		args = append(args, schoolID)
		base += fmt.Sprintf(" AND school_id = $%d", len(args))
	}

	if page < 1 {
		page = 1
	}
	offset := (page - 1) * models.PageSize

	query := fmt.Sprintf("SELECT %s %s ORDER BY created_at DESC LIMIT %d OFFSET %d", subscriptionColumns, base, models.PageSize, offset)
	var subs []models.Subscription
	if err := r.db.SelectContext(ctx, &subs, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list subscriptions: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count subscriptions: %w", err)
	}

	return subs, total, nil
}

// FindByID returns a subscription by id.
func (r *SubscriptionRepository) FindByID(ctx context.Context, id string) (*models.Subscription, error) {
	query := fmt.Sprintf("SELECT %s FROM subscriptions WHERE id = $1", subscriptionColumns)
	var sub models.Subscription
	if err := r.db.GetContext(ctx, &sub, query, id); err != nil {
		return nil, err
	}
	return &sub, nil
}

// Assign deactivates any prior ACTIVE subscription for the school and
// persists the new one in a single transaction, keeping the single-active
// invariant under concurrent assigns.
func (r *SubscriptionRepository) Assign(ctx context.Context, sub *models.Subscription) error {
	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	sub.CreatedAt = now
	sub.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin assign subscription: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx,
		`UPDATE subscriptions SET status = 'CANCELED', updated_at = $1 WHERE school_id = $2 AND status = 'ACTIVE'`,
		now, sub.SchoolID); err != nil {
		return fmt.Errorf("deactivate prior subscriptions: %w", err)
	}

	const insert = `INSERT INTO subscriptions (id, school_id, plan, status, start_date, end_date, created_at, updated_at)
		VALUES (:id, :school_id, :plan, :status, :start_date, :end_date, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, insert, sub); err != nil {
		return fmt.Errorf("create subscription: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit assign subscription: %w", err)
	}
	return nil
}

// Renew extends a subscription's validity window and re-activates it.
func (r *SubscriptionRepository) Renew(ctx context.Context, id string, endDate time.Time) error {
	const query = `UPDATE subscriptions SET end_date = $1, status = 'ACTIVE', updated_at = $2 WHERE id = $3`
	if _, err := r.db.ExecContext(ctx, query, endDate, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("renew subscription: %w", err)
	}
	return nil
}

// ListExpired returns ACTIVE subscriptions whose validity window has passed.
func (r *SubscriptionRepository) ListExpired(ctx context.Context, today time.Time) ([]models.Subscription, error) {
	query := fmt.Sprintf("SELECT %s FROM subscriptions WHERE status = 'ACTIVE' AND end_date < $1 ORDER BY end_date ASC", subscriptionColumns)
	var subs []models.Subscription
	if err := r.db.SelectContext(ctx, &subs, query, today); err != nil {
		return nil, fmt.Errorf("list expired subscriptions: %w", err)
	}
	return subs, nil
}
