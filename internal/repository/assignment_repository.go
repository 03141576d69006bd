package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/edustack/edustack-api/internal/models"
	"github.com/edustack/edustack-api/internal/tenant"
)

const assignmentColumns = "a.id, a.school_id, a.section_id, a.title, a.description, a.due_date, a.max_score, a.created_by, a.created_at, a.updated_at"

// AssignmentRepository handles persistence for assignments.
type AssignmentRepository struct {
	db *sqlx.DB
}

// NewAssignmentRepository creates a new repository instance.
func NewAssignmentRepository(db *sqlx.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

// List returns visible assignments. Professors see their sections' work,
// students the work of sections they are enrolled in.
func (r *AssignmentRepository) List(ctx context.Context, scope tenant.Scope, filter models.AssignmentFilter) ([]models.Assignment, int, error) {
	base := "FROM assignments a JOIN sections sec ON sec.id = a.section_id WHERE a.school_id = $1"
	args := []interface{}{scope.SchoolID()}

	switch {
	case scope.IsProfessor():
		args = append(args, scope.UserID())
		base += fmt.Sprintf(" AND sec.professor_id = $%d", len(args))
	case scope.IsStudent():
		args = append(args, scope.UserID())
		base += fmt.Sprintf(" AND a.section_id IN (SELECT section_id FROM enrollments WHERE school_id = a.school_id AND student_id = $%d AND status = 'ENROLLED')", len(args))
	}

	if filter.SectionID != "" {
		args = append(args, filter.SectionID)
		base += fmt.Sprintf(" AND a.section_id = $%d", len(args))
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * models.PageSize

	query := fmt.Sprintf("SELECT %s %s ORDER BY a.due_date DESC LIMIT %d OFFSET %d", assignmentColumns, base, models.PageSize, offset)
	var assignments []models.Assignment
	if err := r.db.SelectContext(ctx, &assignments, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list assignments: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count assignments: %w", err)
	}

	return assignments, total, nil
}

// FindByID returns an assignment within the scope's school.
func (r *AssignmentRepository) FindByID(ctx context.Context, scope tenant.Scope, id string) (*models.Assignment, error) {
	query := fmt.Sprintf("SELECT %s FROM assignments a WHERE a.school_id = $1 AND a.id = $2", assignmentColumns)
	var assignment models.Assignment
	if err := r.db.GetContext(ctx, &assignment, query, scope.SchoolID(), id); err != nil {
		return nil, err
	}
	return &assignment, nil
}

// Create persists a new assignment with the school force-set from the scope.
func (r *AssignmentRepository) Create(ctx context.Context, scope tenant.Scope, assignment *models.Assignment) error {
	if assignment.ID == "" {
		assignment.ID = uuid.NewString()
	}
	assignment.SchoolID = scope.SchoolID()
	now := time.Now().UTC()
	assignment.CreatedAt = now
	assignment.UpdatedAt = now

	const query = `INSERT INTO assignments (id, school_id, section_id, title, description, due_date, max_score, created_by, created_at, updated_at)
		VALUES (:id, :school_id, :section_id, :title, :description, :due_date, :max_score, :created_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, assignment); err != nil {
		return fmt.Errorf("create assignment: %w", err)
	}
	return nil
}

// Update modifies an assignment within the scope's school.
func (r *AssignmentRepository) Update(ctx context.Context, scope tenant.Scope, assignment *models.Assignment) error {
	assignment.UpdatedAt = time.Now().UTC()
	const query = `UPDATE assignments SET title = $1, description = $2, due_date = $3, max_score = $4, updated_at = $5
		WHERE school_id = $6 AND id = $7`
	if _, err := r.db.ExecContext(ctx, query,
		assignment.Title, assignment.Description, assignment.DueDate, assignment.MaxScore, assignment.UpdatedAt,
		scope.SchoolID(), assignment.ID); err != nil {
		return fmt.Errorf("update assignment: %w", err)
	}
	return nil
}

// Delete removes an assignment within the scope's school.
func (r *AssignmentRepository) Delete(ctx context.Context, scope tenant.Scope, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM assignments WHERE school_id = $1 AND id = $2`, scope.SchoolID(), id); err != nil {
		return fmt.Errorf("delete assignment: %w", err)
	}
	return nil
}
