package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/edustack/edustack-api/internal/models"
	"github.com/edustack/edustack-api/internal/tenant"
)

const enrollmentColumns = "e.id, e.school_id, e.student_id, e.section_id, e.status, e.enrolled_at"

// EnrollmentRepository handles persistence for enrollments.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository creates a new repository instance.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// List returns visible enrollments with display fields. Students see their
// own rows, professors the rows of sections they teach.
func (r *EnrollmentRepository) List(ctx context.Context, scope tenant.Scope, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	base := `FROM enrollments e
		JOIN users stu ON stu.id = e.student_id
		JOIN sections sec ON sec.id = e.section_id
		JOIN subjects subj ON subj.id = sec.subject_id
		WHERE e.school_id = $1`
	args := []interface{}{scope.SchoolID()}

	switch {
	case scope.IsStudent():
		args = append(args, scope.UserID())
		base += fmt.Sprintf(" AND e.student_id = $%d", len(args))
	case scope.IsProfessor():
		args = append(args, scope.UserID())
		base += fmt.Sprintf(" AND sec.professor_id = $%d", len(args))
	}

	if filter.SectionID != "" {
		args = append(args, filter.SectionID)
		base += fmt.Sprintf(" AND e.section_id = $%d", len(args))
	}
	if filter.StudentID != "" {
		args = append(args, filter.StudentID)
		base += fmt.Sprintf(" AND e.student_id = $%d", len(args))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		base += fmt.Sprintf(" AND e.status = $%d", len(args))
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * models.PageSize

	query := fmt.Sprintf(`SELECT %s, stu.full_name AS student_name, sec.name AS section_name, subj.code AS subject_code %s ORDER BY e.enrolled_at DESC LIMIT %d OFFSET %d`,
		enrollmentColumns, base, models.PageSize, offset)
	var enrollments []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &enrollments, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list enrollments: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count enrollments: %w", err)
	}

	return enrollments, total, nil
}

// FindByID returns an enrollment within the scope's school.
func (r *EnrollmentRepository) FindByID(ctx context.Context, scope tenant.Scope, id string) (*models.Enrollment, error) {
	query := fmt.Sprintf("SELECT %s FROM enrollments e WHERE e.school_id = $1 AND e.id = $2", enrollmentColumns)
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, scope.SchoolID(), id); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// ExistsActive reports whether the student already has a live enrollment in
// the section.
func (r *EnrollmentRepository) ExistsActive(ctx context.Context, scope tenant.Scope, studentID, sectionID string) (bool, error) {
	const query = `SELECT 1 FROM enrollments WHERE school_id = $1 AND student_id = $2 AND section_id = $3 AND status = 'ENROLLED' LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, scope.SchoolID(), studentID, sectionID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check enrollment: %w", err)
	}
	return true, nil
}

// HasActiveEnrollment reports whether a student holds a live enrollment in a
// section, used as the submission gate.
func (r *EnrollmentRepository) HasActiveEnrollment(ctx context.Context, scope tenant.Scope, studentID, sectionID string) (bool, error) {
	return r.ExistsActive(ctx, scope, studentID, sectionID)
}

// Create persists a new enrollment with the school force-set from the scope.
func (r *EnrollmentRepository) Create(ctx context.Context, scope tenant.Scope, enrollment *models.Enrollment) error {
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	enrollment.SchoolID = scope.SchoolID()
	if enrollment.EnrolledAt.IsZero() {
		enrollment.EnrolledAt = time.Now().UTC()
	}

	const query = `INSERT INTO enrollments (id, school_id, student_id, section_id, status, enrolled_at)
		VALUES (:id, :school_id, :student_id, :section_id, :status, :enrolled_at)`
	if _, err := r.db.NamedExecContext(ctx, query, enrollment); err != nil {
		return fmt.Errorf("create enrollment: %w", err)
	}
	return nil
}

// UpdateStatus transitions an enrollment within the scope's school.
func (r *EnrollmentRepository) UpdateStatus(ctx context.Context, scope tenant.Scope, id string, status models.EnrollmentStatus) error {
	const query = `UPDATE enrollments SET status = $1 WHERE school_id = $2 AND id = $3`
	if _, err := r.db.ExecContext(ctx, query, status, scope.SchoolID(), id); err != nil {
		return fmt.Errorf("update enrollment status: %w", err)
	}
	return nil
}

// ListByStudent returns every enrollment of one student in the school.
func (r *EnrollmentRepository) ListByStudent(ctx context.Context, scope tenant.Scope, studentID string) ([]models.EnrollmentDetail, error) {
	query := fmt.Sprintf(`SELECT %s, stu.full_name AS student_name, sec.name AS section_name, subj.code AS subject_code
		FROM enrollments e
		JOIN users stu ON stu.id = e.student_id
		JOIN sections sec ON sec.id = e.section_id
		JOIN subjects subj ON subj.id = sec.subject_id
		WHERE e.school_id = $1 AND e.student_id = $2
		ORDER BY e.enrolled_at DESC`, enrollmentColumns)
	var enrollments []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &enrollments, query, scope.SchoolID(), studentID); err != nil {
		return nil, fmt.Errorf("list student enrollments: %w", err)
	}
	return enrollments, nil
}
