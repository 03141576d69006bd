package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/edustack/edustack-api/internal/models"
	"github.com/edustack/edustack-api/internal/repository"
	"github.com/edustack/edustack-api/internal/tenant"
	appErrors "github.com/edustack/edustack-api/pkg/errors"
	"github.com/edustack/edustack-api/pkg/export"
	"github.com/edustack/edustack-api/pkg/jobs"
)

type reportRepository interface {
	Create(ctx context.Context, scope tenant.Scope, job *models.ReportJob) error
	FindByID(ctx context.Context, scope tenant.Scope, id string) (*models.ReportJob, error)
	MarkProcessing(ctx context.Context, id string) error
	MarkCompleted(ctx context.Context, id, filePath string, completedAt time.Time) error
	MarkFailed(ctx context.Context, id, reason string, completedAt time.Time) error
}

type reportSectionRepository interface {
	FindByID(ctx context.Context, scope tenant.Scope, id string) (*models.Section, error)
}

type reportSubmissionRepository interface {
	GradeSheet(ctx context.Context, scope tenant.Scope, sectionID string) ([]repository.GradeRow, error)
}

type reportQueue interface {
	Enqueue(job jobs.Job) error
}

type reportStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
}

type reportSigner interface {
	Generate(jobID, relPath string) (string, time.Time, error)
	Parse(token string) (jobID, relPath string, expiresAt time.Time, err error)
}

// gradeSheetPayload travels through the job queue. It carries the scope's
// raw identifiers because the queue outlives the originating request.
type gradeSheetPayload struct {
	JobID     string
	SchoolID  string
	SectionID string
	Format    models.ReportFormat
}

// CreateReportRequest requests an asynchronous grade-sheet export.
type CreateReportRequest struct {
	SectionID string              `json:"section_id" validate:"required,uuid4"`
	Format    models.ReportFormat `json:"format" validate:"required,oneof=CSV PDF"`
}

// ReportDownload bundles a generated file handle with its metadata.
type ReportDownload struct {
	File        *os.File
	Filename    string
	ContentType string
}

// ReportService orchestrates grade-sheet report jobs: request, background
// generation, status, and signed downloads.
type ReportService struct {
	repo        reportRepository
	sections    reportSectionRepository
	submissions reportSubmissionRepository
	queue       reportQueue
	storage     reportStorage
	signer      reportSigner
	csv         *export.CSVExporter
	pdf         *export.PDFExporter
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewReportService creates a new report service.
func NewReportService(repo reportRepository, sections reportSectionRepository, submissions reportSubmissionRepository, storage reportStorage, signer reportSigner, validate *validator.Validate, logger *zap.Logger) *ReportService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{
		repo:        repo,
		sections:    sections,
		submissions: submissions,
		storage:     storage,
		signer:      signer,
		csv:         export.NewCSVExporter(),
		pdf:         export.NewPDFExporter(),
		validator:   validate,
		logger:      logger,
	}
}

// AttachQueue wires the background queue. Separate from the constructor
// because the queue's handler needs the service instance.
func (s *ReportService) AttachQueue(queue reportQueue) {
	s.queue = queue
}

// Request enqueues a grade-sheet export for the section. Professors may
// only export sections they teach.
func (s *ReportService) Request(ctx context.Context, scope tenant.Scope, req CreateReportRequest) (*models.ReportJob, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid report payload")
	}

	section, err := s.sections.FindByID(ctx, scope, req.SectionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrCrossTenantReference, "section not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load section")
	}

	if scope.IsProfessor() && section.ProfessorID != scope.UserID() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "section is taught by another professor")
	}

	job := &models.ReportJob{
		SectionID:   section.ID,
		RequestedBy: scope.UserID(),
		Format:      req.Format,
		Status:      models.ReportPending,
	}
	if err := s.repo.Create(ctx, scope, job); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create report job")
	}

	if s.queue == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "report queue unavailable")
	}
	if err := s.queue.Enqueue(jobs.Job{
		ID:   job.ID,
		Type: "grade_sheet",
		Payload: gradeSheetPayload{
			JobID:     job.ID,
			SchoolID:  scope.SchoolID(),
			SectionID: section.ID,
			Format:    req.Format,
		},
	}); err != nil {
		reason := "failed to enqueue report job"
		if markErr := s.repo.MarkFailed(ctx, job.ID, reason, time.Now().UTC()); markErr != nil {
			s.logger.Warn("failed to mark report job failed", zap.String("job_id", job.ID), zap.Error(markErr))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, reason)
	}
	return job, nil
}

// Get returns a report job's status. A completed job includes a signed
// download token.
func (s *ReportService) Get(ctx context.Context, scope tenant.Scope, id string) (*models.ReportJob, string, error) {
	job, err := s.repo.FindByID(ctx, scope, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "", appErrors.Clone(appErrors.ErrNotFound, "report not found")
		}
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load report")
	}

	if !scope.IsAdmin() && job.RequestedBy != scope.UserID() {
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, "report not found")
	}

	var token string
	if job.Status == models.ReportCompleted && job.FilePath != nil {
		token, _, err = s.signer.Generate(job.ID, *job.FilePath)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download")
		}
	}
	return job, token, nil
}

// Download validates a signed token and opens the generated file.
func (s *ReportService) Download(ctx context.Context, scope tenant.Scope, token string) (*ReportDownload, error) {
	jobID, relPath, _, err := s.signer.Parse(token)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrTokenInvalid, "invalid download token")
	}

	job, err := s.repo.FindByID(ctx, scope, jobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "report not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load report")
	}
	if job.Status != models.ReportCompleted || job.FilePath == nil || *job.FilePath != relPath {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "report file not available")
	}

	file, err := s.storage.Open(relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open report file")
	}

	contentType := "text/csv"
	if job.Format == models.ReportFormatPDF {
		contentType = "application/pdf"
	}
	return &ReportDownload{
		File:        file,
		Filename:    fmt.Sprintf("grade-sheet-%s.%s", job.SectionID, strings.ToLower(string(job.Format))),
		ContentType: contentType,
	}, nil
}

// HandleJob is the queue handler generating the grade sheet.
func (s *ReportService) HandleJob(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(gradeSheetPayload)
	if !ok {
		return fmt.Errorf("unexpected payload for job %s", job.ID)
	}

	if err := s.repo.MarkProcessing(ctx, payload.JobID); err != nil {
		return err
	}

	scope := tenant.SystemScope(payload.SchoolID)
	rows, err := s.submissions.GradeSheet(ctx, scope, payload.SectionID)
	if err != nil {
		s.fail(ctx, payload.JobID, "failed to load grade sheet")
		return err
	}

	dataset := export.Dataset{
		Headers: []string{"Student", "Email", "Assignment", "Max Score", "Score", "Status"},
	}
	for _, row := range rows {
		score := ""
		if row.Score != nil {
			score = fmt.Sprintf("%g", *row.Score)
		}
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Student":    row.StudentName,
			"Email":      row.StudentEmail,
			"Assignment": row.AssignmentTitle,
			"Max Score":  fmt.Sprintf("%g", row.MaxScore),
			"Score":      score,
			"Status":     row.Status,
		})
	}

	var content []byte
	switch payload.Format {
	case models.ReportFormatPDF:
		content, err = s.pdf.Render(dataset, "Grade Sheet")
	default:
		content, err = s.csv.Render(dataset)
	}
	if err != nil {
		s.fail(ctx, payload.JobID, "failed to render report")
		return err
	}

	filename := fmt.Sprintf("%s/%s.%s", payload.SchoolID, payload.JobID, strings.ToLower(string(payload.Format)))
	relPath, err := s.storage.Save(filename, content)
	if err != nil {
		s.fail(ctx, payload.JobID, "failed to store report")
		return err
	}

	if err := s.repo.MarkCompleted(ctx, payload.JobID, relPath, time.Now().UTC()); err != nil {
		return err
	}
	s.logger.Info("report generated",
		zap.String("job_id", payload.JobID),
		zap.String("section_id", payload.SectionID),
		zap.String("format", string(payload.Format)))
	return nil
}

func (s *ReportService) fail(ctx context.Context, jobID, reason string) {
	if err := s.repo.MarkFailed(ctx, jobID, reason, time.Now().UTC()); err != nil {
		s.logger.Warn("failed to mark report job failed", zap.String("job_id", jobID), zap.Error(err))
	}
}
