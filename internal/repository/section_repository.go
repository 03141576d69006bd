package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/edustack/edustack-api/internal/models"
	"github.com/edustack/edustack-api/internal/tenant"
)

const sectionColumns = "s.id, s.school_id, s.subject_id, s.professor_id, s.name, s.start_date, s.end_date, s.max_students, s.created_at, s.updated_at"

// SectionRepository handles persistence for sections.
type SectionRepository struct {
	db *sqlx.DB
}

// NewSectionRepository creates a new repository instance.
func NewSectionRepository(db *sqlx.DB) *SectionRepository {
	return &SectionRepository{db: db}
}

// sectionVisibility narrows the listing for professor and student actors.
// Admins see the whole school.
func sectionVisibility(scope tenant.Scope, args []interface{}) (string, []interface{}) {
	switch {
	case scope.IsProfessor():
		args = append(args, scope.UserID())
		return fmt.Sprintf(" AND s.professor_id = $%d", len(args)), args
	case scope.IsStudent():
		args = append(args, scope.UserID())
		return fmt.Sprintf(" AND s.id IN (SELECT section_id FROM enrollments WHERE school_id = s.school_id AND student_id = $%d AND status = 'ENROLLED')", len(args)), args
	default:
		return "", args
	}
}

// List returns visible sections with subject and professor display fields.
func (r *SectionRepository) List(ctx context.Context, scope tenant.Scope, filter models.SectionFilter) ([]models.SectionDetail, int, error) {
	base := `FROM sections s
		JOIN subjects subj ON subj.id = s.subject_id
		JOIN users prof ON prof.id = s.professor_id
		WHERE s.school_id = $1`
	args := []interface{}{scope.SchoolID()}

	var visibility string
	visibility, args = sectionVisibility(scope, args)
	base += visibility

	if filter.SubjectID != "" {
		args = append(args, filter.SubjectID)
		base += fmt.Sprintf(" AND s.subject_id = $%d", len(args))
	}
	if filter.Search != "" {
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		base += fmt.Sprintf(" AND (LOWER(s.name) LIKE $%d OR LOWER(subj.name) LIKE $%d)", len(args), len(args))
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * models.PageSize

	query := fmt.Sprintf(`SELECT %s, subj.code AS subject_code, subj.name AS subject_name, prof.full_name AS professor_name %s ORDER BY s.name ASC LIMIT %d OFFSET %d`,
		sectionColumns, base, models.PageSize, offset)
	var sections []models.SectionDetail
	if err := r.db.SelectContext(ctx, &sections, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list sections: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count sections: %w", err)
	}

	return sections, total, nil
}

// FindByID returns a section within the scope's school.
func (r *SectionRepository) FindByID(ctx context.Context, scope tenant.Scope, id string) (*models.Section, error) {
	query := fmt.Sprintf("SELECT %s FROM sections s WHERE s.school_id = $1 AND s.id = $2", sectionColumns)
	var section models.Section
	if err := r.db.GetContext(ctx, &section, query, scope.SchoolID(), id); err != nil {
		return nil, err
	}
	return &section, nil
}

// Create persists a new section with the school force-set from the scope.
// The service validates that subject and professor belong to the same school.
func (r *SectionRepository) Create(ctx context.Context, scope tenant.Scope, section *models.Section) error {
	if section.ID == "" {
		section.ID = uuid.NewString()
	}
	section.SchoolID = scope.SchoolID()
	now := time.Now().UTC()
	section.CreatedAt = now
	section.UpdatedAt = now

	const query = `INSERT INTO sections (id, school_id, subject_id, professor_id, name, start_date, end_date, max_students, created_at, updated_at)
		VALUES (:id, :school_id, :subject_id, :professor_id, :name, :start_date, :end_date, :max_students, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, section); err != nil {
		return fmt.Errorf("create section: %w", err)
	}
	return nil
}

// Update modifies a section within the scope's school.
func (r *SectionRepository) Update(ctx context.Context, scope tenant.Scope, section *models.Section) error {
	section.UpdatedAt = time.Now().UTC()
	const query = `UPDATE sections SET subject_id = $1, professor_id = $2, name = $3, start_date = $4, end_date = $5, max_students = $6, updated_at = $7
		WHERE school_id = $8 AND id = $9`
	if _, err := r.db.ExecContext(ctx, query,
		section.SubjectID, section.ProfessorID, section.Name, section.StartDate, section.EndDate, section.MaxStudents, section.UpdatedAt,
		scope.SchoolID(), section.ID); err != nil {
		return fmt.Errorf("update section: %w", err)
	}
	return nil
}

// Delete removes a section within the scope's school.
func (r *SectionRepository) Delete(ctx context.Context, scope tenant.Scope, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sections WHERE school_id = $1 AND id = $2`, scope.SchoolID(), id); err != nil {
		return fmt.Errorf("delete section: %w", err)
	}
	return nil
}

// CountEnrolled returns the number of active enrollments in a section.
func (r *SectionRepository) CountEnrolled(ctx context.Context, scope tenant.Scope, sectionID string) (int, error) {
	const query = `SELECT COUNT(*) FROM enrollments WHERE school_id = $1 AND section_id = $2 AND status = 'ENROLLED'`
	var count int
	if err := r.db.GetContext(ctx, &count, query, scope.SchoolID(), sectionID); err != nil {
		return 0, fmt.Errorf("count enrolled students: %w", err)
	}
	return count, nil
}
