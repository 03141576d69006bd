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
	"github.com/edustack/edustack-api/internal/tenant"
)

const subjectColumns = "id, school_id, code, name, created_at, updated_at"

// SubjectRepository handles persistence for subjects. Every query is
// constrained to the scope's school before any other filter.
type SubjectRepository struct {
	db *sqlx.DB
}

// NewSubjectRepository creates a new repository instance.
func NewSubjectRepository(db *sqlx.DB) *SubjectRepository {
	return &SubjectRepository{db: db}
}

// List returns the school's subjects matching the filter.
func (r *SubjectRepository) List(ctx context.Context, scope tenant.Scope, filter models.SubjectFilter) ([]models.Subject, int, error) {
	base := "FROM subjects WHERE school_id = $1"
	args := []interface{}{scope.SchoolID()}

	if filter.Search != "" {
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		base += fmt.Sprintf(" AND (LOWER(code) LIKE $%d OR LOWER(name) LIKE $%d)", len(args), len(args))
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * models.PageSize

	query := fmt.Sprintf("SELECT %s %s ORDER BY code ASC LIMIT %d OFFSET %d", subjectColumns, base, models.PageSize, offset)
	var subjects []models.Subject
	if err := r.db.SelectContext(ctx, &subjects, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list subjects: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count subjects: %w", err)
	}

	return subjects, total, nil
}

// FindByID returns a subject within the scope's school.
func (r *SubjectRepository) FindByID(ctx context.Context, scope tenant.Scope, id string) (*models.Subject, error) {
	query := fmt.Sprintf("SELECT %s FROM subjects WHERE school_id = $1 AND id = $2", subjectColumns)
	var subject models.Subject
	if err := r.db.GetContext(ctx, &subject, query, scope.SchoolID(), id); err != nil {
		return nil, err
	}
	return &subject, nil
}

// ExistsByCode checks uniqueness of the subject code within the school.
func (r *SubjectRepository) ExistsByCode(ctx context.Context, scope tenant.Scope, code, excludeID string) (bool, error) {
	query := "SELECT 1 FROM subjects WHERE school_id = $1 AND LOWER(code) = LOWER($2)"
	args := []interface{}{scope.SchoolID(), code}
	if excludeID != "" {
		query += " AND id <> $3"
		args = append(args, excludeID)
	}

	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check subject code: %w", err)
	}
	return true, nil
}

// Create persists a new subject. The school is force-set from the scope,
// overriding whatever the client sent.
func (r *SubjectRepository) Create(ctx context.Context, scope tenant.Scope, subject *models.Subject) error {
	if subject.ID == "" {
		subject.ID = uuid.NewString()
	}
	subject.SchoolID = scope.SchoolID()
	now := time.Now().UTC()
	subject.CreatedAt = now
	subject.UpdatedAt = now

	const query = `INSERT INTO subjects (id, school_id, code, name, created_at, updated_at)
		VALUES (:id, :school_id, :code, :name, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, subject); err != nil {
		return fmt.Errorf("create subject: %w", err)
	}
	return nil
}

// Update modifies a subject within the scope's school.
func (r *SubjectRepository) Update(ctx context.Context, scope tenant.Scope, subject *models.Subject) error {
	subject.UpdatedAt = time.Now().UTC()
	const query = `UPDATE subjects SET code = $1, name = $2, updated_at = $3 WHERE school_id = $4 AND id = $5`
	if _, err := r.db.ExecContext(ctx, query, subject.Code, subject.Name, subject.UpdatedAt, scope.SchoolID(), subject.ID); err != nil {
		return fmt.Errorf("update subject: %w", err)
	}
	return nil
}

// Delete removes a subject within the scope's school.
func (r *SubjectRepository) Delete(ctx context.Context, scope tenant.Scope, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM subjects WHERE school_id = $1 AND id = $2`, scope.SchoolID(), id); err != nil {
		return fmt.Errorf("delete subject: %w", err)
	}
	return nil
}

// CountSections returns the number of sections referencing the subject.
func (r *SubjectRepository) CountSections(ctx context.Context, scope tenant.Scope, id string) (int, error) {
	const query = `SELECT COUNT(*) FROM sections WHERE school_id = $1 AND subject_id = $2`
	var count int
	if err := r.db.GetContext(ctx, &count, query, scope.SchoolID(), id); err != nil {
		return 0, fmt.Errorf("count subject sections: %w", err)
	}
	return count, nil
}
