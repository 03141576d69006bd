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

const submissionColumns = "sub.id, sub.school_id, sub.assignment_id, sub.student_id, sub.status, sub.content, sub.file_url, sub.submitted_at, sub.score, sub.feedback, sub.graded_by, sub.graded_at, sub.created_at, sub.updated_at"

// SubmissionRepository handles persistence for submissions.
type SubmissionRepository struct {
	db *sqlx.DB
}

// NewSubmissionRepository creates a new repository instance.
func NewSubmissionRepository(db *sqlx.DB) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

// List returns visible submissions. Students see only their own rows,
// professors the rows of assignments in sections they teach.
func (r *SubmissionRepository) List(ctx context.Context, scope tenant.Scope, filter models.SubmissionFilter) ([]models.Submission, int, error) {
	base := `FROM submissions sub
		JOIN assignments a ON a.id = sub.assignment_id
		JOIN sections sec ON sec.id = a.section_id
		WHERE sub.school_id = $1`
	args := []interface{}{scope.SchoolID()}

	switch {
	case scope.IsStudent():
		args = append(args, scope.UserID())
		base += fmt.Sprintf(" AND sub.student_id = $%d", len(args))
	case scope.IsProfessor():
		args = append(args, scope.UserID())
		base += fmt.Sprintf(" AND sec.professor_id = $%d", len(args))
	}

	if filter.AssignmentID != "" {
		args = append(args, filter.AssignmentID)
		base += fmt.Sprintf(" AND sub.assignment_id = $%d", len(args))
	}
	if filter.StudentID != "" {
		args = append(args, filter.StudentID)
		base += fmt.Sprintf(" AND sub.student_id = $%d", len(args))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		base += fmt.Sprintf(" AND sub.status = $%d", len(args))
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * models.PageSize

	query := fmt.Sprintf("SELECT %s %s ORDER BY sub.submitted_at DESC LIMIT %d OFFSET %d", submissionColumns, base, models.PageSize, offset)
	var submissions []models.Submission
	if err := r.db.SelectContext(ctx, &submissions, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list submissions: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count submissions: %w", err)
	}

	return submissions, total, nil
}

// FindByID returns a submission within the scope's school.
func (r *SubmissionRepository) FindByID(ctx context.Context, scope tenant.Scope, id string) (*models.Submission, error) {
	query := fmt.Sprintf("SELECT %s FROM submissions sub WHERE sub.school_id = $1 AND sub.id = $2", submissionColumns)
	var submission models.Submission
	if err := r.db.GetContext(ctx, &submission, query, scope.SchoolID(), id); err != nil {
		return nil, err
	}
	return &submission, nil
}

// FindByAssignmentAndStudent returns the unique submission row for the pair.
func (r *SubmissionRepository) FindByAssignmentAndStudent(ctx context.Context, scope tenant.Scope, assignmentID, studentID string) (*models.Submission, error) {
	query := fmt.Sprintf("SELECT %s FROM submissions sub WHERE sub.school_id = $1 AND sub.assignment_id = $2 AND sub.student_id = $3 LIMIT 1", submissionColumns)
	var submission models.Submission
	if err := r.db.GetContext(ctx, &submission, query, scope.SchoolID(), assignmentID, studentID); err != nil {
		return nil, err
	}
	return &submission, nil
}

// Create persists a new submission with the school force-set from the scope.
func (r *SubmissionRepository) Create(ctx context.Context, scope tenant.Scope, submission *models.Submission) error {
	if submission.ID == "" {
		submission.ID = uuid.NewString()
	}
	submission.SchoolID = scope.SchoolID()
	now := time.Now().UTC()
	submission.CreatedAt = now
	submission.UpdatedAt = now
	if submission.SubmittedAt.IsZero() {
		submission.SubmittedAt = now
	}

	const query = `INSERT INTO submissions (id, school_id, assignment_id, student_id, status, content, file_url, submitted_at, created_at, updated_at)
		VALUES (:id, :school_id, :assignment_id, :student_id, :status, :content, :file_url, :submitted_at, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, submission); err != nil {
		return fmt.Errorf("create submission: %w", err)
	}
	return nil
}

// UpdateContent replaces a submission's content prior to grading.
func (r *SubmissionRepository) UpdateContent(ctx context.Context, scope tenant.Scope, submission *models.Submission) error {
	now := time.Now().UTC()
	submission.UpdatedAt = now
	submission.SubmittedAt = now
	const query = `UPDATE submissions SET content = $1, file_url = $2, status = $3, submitted_at = $4, updated_at = $5
		WHERE school_id = $6 AND id = $7`
	if _, err := r.db.ExecContext(ctx, query,
		submission.Content, submission.FileURL, submission.Status, submission.SubmittedAt, submission.UpdatedAt,
		scope.SchoolID(), submission.ID); err != nil {
		return fmt.Errorf("update submission: %w", err)
	}
	return nil
}

// Grade records score and feedback for a submission.
func (r *SubmissionRepository) Grade(ctx context.Context, scope tenant.Scope, submission *models.Submission) error {
	submission.UpdatedAt = time.Now().UTC()
	const query = `UPDATE submissions SET status = $1, score = $2, feedback = $3, graded_by = $4, graded_at = $5, updated_at = $6
		WHERE school_id = $7 AND id = $8`
	if _, err := r.db.ExecContext(ctx, query,
		submission.Status, submission.Score, submission.Feedback, submission.GradedBy, submission.GradedAt, submission.UpdatedAt,
		scope.SchoolID(), submission.ID); err != nil {
		return fmt.Errorf("grade submission: %w", err)
	}
	return nil
}

// GradeRow is one line of a section grade sheet.
type GradeRow struct {
	StudentName     string   `db:"student_name"`
	StudentEmail    string   `db:"student_email"`
	AssignmentTitle string   `db:"assignment_title"`
	MaxScore        float64  `db:"max_score"`
	Score           *float64 `db:"score"`
	Status          string   `db:"status"`
}

// GradeSheet returns every (student, assignment) grade line for a section.
func (r *SubmissionRepository) GradeSheet(ctx context.Context, scope tenant.Scope, sectionID string) ([]GradeRow, error) {
	const query = `SELECT stu.full_name AS student_name, stu.email AS student_email,
			a.title AS assignment_title, a.max_score AS max_score, sub.score AS score, sub.status AS status
		FROM submissions sub
		JOIN assignments a ON a.id = sub.assignment_id
		JOIN users stu ON stu.id = sub.student_id
		WHERE sub.school_id = $1 AND a.section_id = $2
		ORDER BY stu.full_name ASC, a.due_date ASC`
	var rows []GradeRow
	if err := r.db.SelectContext(ctx, &rows, query, scope.SchoolID(), sectionID); err != nil {
		return nil, fmt.Errorf("load grade sheet: %w", err)
	}
	return rows, nil
}
