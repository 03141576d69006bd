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

const reportColumns = "id, school_id, section_id, requested_by, format, status, file_path, error, created_at, completed_at"

// ReportRepository handles persistence for grade-sheet report jobs.
type ReportRepository struct {
	db *sqlx.DB
}

// NewReportRepository creates a new repository instance.
func NewReportRepository(db *sqlx.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// Create persists a new report job with the school force-set from the scope.
func (r *ReportRepository) Create(ctx context.Context, scope tenant.Scope, job *models.ReportJob) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	job.SchoolID = scope.SchoolID()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}

	const query = `INSERT INTO report_jobs (id, school_id, section_id, requested_by, format, status, created_at)
		VALUES (:id, :school_id, :section_id, :requested_by, :format, :status, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, job); err != nil {
		return fmt.Errorf("create report job: %w", err)
	}
	return nil
}

// FindByID returns a report job within the scope's school.
func (r *ReportRepository) FindByID(ctx context.Context, scope tenant.Scope, id string) (*models.ReportJob, error) {
	query := fmt.Sprintf("SELECT %s FROM report_jobs WHERE school_id = $1 AND id = $2", reportColumns)
	var job models.ReportJob
	if err := r.db.GetContext(ctx, &job, query, scope.SchoolID(), id); err != nil {
		return nil, err
	}
	return &job, nil
}

// MarkProcessing transitions a job to PROCESSING.
func (r *ReportRepository) MarkProcessing(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE report_jobs SET status = 'PROCESSING' WHERE id = $1`, id); err != nil {
		return fmt.Errorf("mark report processing: %w", err)
	}
	return nil
}

// MarkCompleted records the generated file path.
func (r *ReportRepository) MarkCompleted(ctx context.Context, id, filePath string, completedAt time.Time) error {
	const query = `UPDATE report_jobs SET status = 'COMPLETED', file_path = $1, completed_at = $2 WHERE id = $3`
	if _, err := r.db.ExecContext(ctx, query, filePath, completedAt, id); err != nil {
		return fmt.Errorf("mark report completed: %w", err)
	}
	return nil
}

// MarkFailed records the failure reason.
func (r *ReportRepository) MarkFailed(ctx context.Context, id, reason string, completedAt time.Time) error {
	const query = `UPDATE report_jobs SET status = 'FAILED', error = $1, completed_at = $2 WHERE id = $3`
	if _, err := r.db.ExecContext(ctx, query, reason, completedAt, id); err != nil {
		return fmt.Errorf("mark report failed: %w", err)
	}
	return nil
}
