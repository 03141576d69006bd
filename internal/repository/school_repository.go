package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/edustack/edustack-api/internal/models"
)

const schoolColumns = "id, name, subdomain, active, created_at, updated_at"

// SchoolRepository handles persistence for tenants. It is used only by the
// superadmin registry surface and therefore takes no tenant scope.
type SchoolRepository struct {
	db *sqlx.DB
}

// NewSchoolRepository creates a new repository instance.
func NewSchoolRepository(db *sqlx.DB) *SchoolRepository {
	return &SchoolRepository{db: db}
}

// List returns schools matching the filter with pagination metadata.
func (r *SchoolRepository) List(ctx context.Context, filter models.SchoolFilter) ([]models.School, int, error) {
	base := "FROM schools WHERE 1=1"
	var args []interface{}

	if filter.Active != nil {
		args = append(args, *filter.Active)
		base += fmt.Sprintf(" AND active = $%d", len(args))
	}
	if filter.Search != "" {
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		base += fmt.Sprintf(" AND (LOWER(name) LIKE $%d OR LOWER(subdomain) LIKE $%d)", len(args), len(args))
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * models.PageSize

	query := fmt.Sprintf("SELECT %s %s ORDER BY name ASC LIMIT %d OFFSET %d", schoolColumns, base, models.PageSize, offset)
	var schools []models.School
	if err := r.db.SelectContext(ctx, &schools, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list schools: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count schools: %w", err)
	}

	return schools, total, nil
}

// FindByID returns a school by id.
func (r *SchoolRepository) FindByID(ctx context.Context, id string) (*models.School, error) {
	query := fmt.Sprintf("SELECT %s FROM schools WHERE id = $1", schoolColumns)
	var school models.School
	if err := r.db.GetContext(ctx, &school, query, id); err != nil {
		return nil, err
	}
	return &school, nil
}

// ExistsByNameOrSubdomain checks tenant identifier uniqueness.
func (r *SchoolRepository) ExistsByNameOrSubdomain(ctx context.Context, name, subdomain string) (bool, error) {
	var exists int
	err := r.db.GetContext(ctx, &exists,
		"SELECT 1 FROM schools WHERE LOWER(name) = LOWER($1) OR LOWER(subdomain) = LOWER($2) LIMIT 1", name, subdomain)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check school identifiers: %w", err)
	}
	return true, nil
}

// ExistsByNameOrSubdomainExcluding checks identifier uniqueness against every
// tenant except the one being updated.
func (r *SchoolRepository) ExistsByNameOrSubdomainExcluding(ctx context.Context, name, subdomain, excludeID string) (bool, error) {
	var exists int
	err := r.db.GetContext(ctx, &exists,
		"SELECT 1 FROM schools WHERE (LOWER(name) = LOWER($1) OR LOWER(subdomain) = LOWER($2)) AND id <> $3 LIMIT 1",
		name, subdomain, excludeID)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check school identifiers: %w", err)
	}
	return true, nil
}

// Create persists a new tenant.
func (r *SchoolRepository) Create(ctx context.Context, school *models.School) error {
	if school.ID == "" {
		school.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	school.CreatedAt = now
	school.UpdatedAt = now

	const query = `INSERT INTO schools (id, name, subdomain, active, created_at, updated_at)
		VALUES (:id, :name, :subdomain, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, school); err != nil {
		return fmt.Errorf("create school: %w", err)
	}
	return nil
}

// Update modifies tenant fields.
func (r *SchoolRepository) Update(ctx context.Context, school *models.School) error {
	school.UpdatedAt = time.Now().UTC()
	const query = `UPDATE schools SET name = :name, subdomain = :subdomain, active = :active, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, school); err != nil {
		return fmt.Errorf("update school: %w", err)
	}
	return nil
}

// SetActive toggles the tenant's active flag.
func (r *SchoolRepository) SetActive(ctx context.Context, id string, active bool) error {
	const query = `UPDATE schools SET active = $1, updated_at = $2 WHERE id = $3`
	if _, err := r.db.ExecContext(ctx, query, active, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("set school active: %w", err)
	}
	return nil
}

// IsActiveWithSubscription reports whether the school is active and holds an
// unexpired ACTIVE subscription. This is the tenant gate's source of truth.
func (r *SchoolRepository) IsActiveWithSubscription(ctx context.Context, id string, today time.Time) (bool, error) {
	const query = `SELECT 1 FROM schools s
		JOIN subscriptions sub ON sub.school_id = s.id
		WHERE s.id = $1 AND s.active = true AND sub.status = 'ACTIVE' AND sub.end_date >= $2
		LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, id, today); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check school subscription: %w", err)
	}
	return true, nil
}
