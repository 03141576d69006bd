package service

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/edustack/edustack-api/internal/models"
	"github.com/edustack/edustack-api/internal/repository"
	"github.com/edustack/edustack-api/internal/tenant"
	appErrors "github.com/edustack/edustack-api/pkg/errors"
	"github.com/edustack/edustack-api/pkg/jobs"
	"github.com/edustack/edustack-api/pkg/storage"
)

type mockReportRepo struct {
	reports    map[string]*models.ReportJob
	processing []string
	completed  map[string]string
	failed     map[string]string
}

func newMockReportRepo() *mockReportRepo {
	return &mockReportRepo{
		reports:   map[string]*models.ReportJob{},
		completed: map[string]string{},
		failed:    map[string]string{},
	}
}

func (m *mockReportRepo) Create(_ context.Context, scope tenant.Scope, job *models.ReportJob) error {
	job.ID = "job-new"
	job.SchoolID = scope.SchoolID()
	m.reports[job.ID] = job
	return nil
}

func (m *mockReportRepo) FindByID(_ context.Context, _ tenant.Scope, id string) (*models.ReportJob, error) {
	j, ok := m.reports[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return j, nil
}

func (m *mockReportRepo) MarkProcessing(_ context.Context, id string) error {
	m.processing = append(m.processing, id)
	if j, ok := m.reports[id]; ok {
		j.Status = models.ReportProcessing
	}
	return nil
}

func (m *mockReportRepo) MarkCompleted(_ context.Context, id, filePath string, completedAt time.Time) error {
	m.completed[id] = filePath
	if j, ok := m.reports[id]; ok {
		j.Status = models.ReportCompleted
		j.FilePath = &filePath
		j.CompletedAt = &completedAt
	}
	return nil
}

func (m *mockReportRepo) MarkFailed(_ context.Context, id, reason string, completedAt time.Time) error {
	m.failed[id] = reason
	if j, ok := m.reports[id]; ok {
		j.Status = models.ReportFailed
		j.Error = &reason
		j.CompletedAt = &completedAt
	}
	return nil
}

type mockReportQueue struct {
	jobs    []jobs.Job
	failErr error
}

func (m *mockReportQueue) Enqueue(job jobs.Job) error {
	if m.failErr != nil {
		return m.failErr
	}
	m.jobs = append(m.jobs, job)
	return nil
}

func reportFixture(t *testing.T) (*ReportService, *mockReportRepo, *mockSectionLookup, *mockSubmissionRepo, *mockReportQueue) {
	t.Helper()
	repo := newMockReportRepo()
	sections := &mockSectionLookup{sections: map[string]*models.Section{
		sectionUUID: {ID: sectionUUID, SchoolID: testSchoolID, ProfessorID: "prof-1"},
	}}
	submissions := newMockSubmissionRepo()
	queue := &mockReportQueue{}

	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("report-secret", time.Hour)

	svc := NewReportService(repo, sections, submissions, store, signer, nil, zap.NewNop())
	svc.AttachQueue(queue)
	return svc, repo, sections, submissions, queue
}

func TestReportRequestEnqueues(t *testing.T) {
	svc, repo, _, _, queue := reportFixture(t)
	scope := testScope(t, "prof-1", models.RoleProfessor)

	job, err := svc.Request(context.Background(), scope, CreateReportRequest{
		SectionID: sectionUUID,
		Format:    models.ReportFormatCSV,
	})
	require.NoError(t, err)
	assert.Equal(t, models.ReportPending, job.Status)
	assert.Equal(t, "prof-1", job.RequestedBy)
	require.Len(t, queue.jobs, 1)

	payload, ok := queue.jobs[0].Payload.(gradeSheetPayload)
	require.True(t, ok)
	assert.Equal(t, job.ID, payload.JobID)
	assert.Equal(t, testSchoolID, payload.SchoolID)
	assert.Empty(t, repo.failed)
}

func TestReportRequestForeignSection(t *testing.T) {
	svc, _, _, _, queue := reportFixture(t)
	scope := testScope(t, "prof-2", models.RoleProfessor)

	_, err := svc.Request(context.Background(), scope, CreateReportRequest{
		SectionID: sectionUUID,
		Format:    models.ReportFormatCSV,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	assert.Empty(t, queue.jobs)
}

func TestReportRequestEnqueueFailureMarksFailed(t *testing.T) {
	svc, repo, _, _, queue := reportFixture(t)
	queue.failErr = errors.New("queue stopped")
	scope := testScope(t, "admin-1", models.RoleAdmin)

	_, err := svc.Request(context.Background(), scope, CreateReportRequest{
		SectionID: sectionUUID,
		Format:    models.ReportFormatPDF,
	})
	require.Error(t, err)
	assert.Contains(t, repo.failed, "job-new")
}

func TestReportHandleJobRendersCSV(t *testing.T) {
	svc, repo, _, submissions, _ := reportFixture(t)
	score := 92.5
	submissions.rows = []repository.GradeRow{
		{StudentName: "Ana Silva", StudentEmail: "ana@school.test", AssignmentTitle: "Homework 1", MaxScore: 100, Score: &score, Status: "GRADED"},
		{StudentName: "Ben Cole", StudentEmail: "ben@school.test", AssignmentTitle: "Homework 1", MaxScore: 100, Status: "SUBMITTED"},
	}
	repo.reports["job-1"] = &models.ReportJob{ID: "job-1", SchoolID: testSchoolID, SectionID: sectionUUID, Status: models.ReportPending}

	err := svc.HandleJob(context.Background(), jobs.Job{
		ID:   "job-1",
		Type: "grade_sheet",
		Payload: gradeSheetPayload{
			JobID:     "job-1",
			SchoolID:  testSchoolID,
			SectionID: sectionUUID,
			Format:    models.ReportFormatCSV,
		},
	})
	require.NoError(t, err)
	assert.Contains(t, repo.processing, "job-1")
	assert.Equal(t, testSchoolID+"/job-1.csv", repo.completed["job-1"])

	// Stored file carries headers and both rows.
	job := repo.reports["job-1"]
	require.NotNil(t, job.FilePath)
	// Open through the service download path with a signed token.
	signer := storage.NewSignedURLSigner("report-secret", time.Hour)
	token, _, err := signer.Generate("job-1", *job.FilePath)
	require.NoError(t, err)
	job.Format = models.ReportFormatCSV

	download, err := svc.Download(context.Background(), testScope(t, "admin-1", models.RoleAdmin), token)
	require.NoError(t, err)
	defer download.File.Close()
	assert.Equal(t, "text/csv", download.ContentType)
	content, err := io.ReadAll(download.File)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(content), "Student,Email,Assignment,Max Score,Score,Status"))
	assert.Contains(t, string(content), "Ana Silva,ana@school.test,Homework 1,100,92.5,GRADED")
	assert.Contains(t, string(content), "Ben Cole,ben@school.test,Homework 1,100,,SUBMITTED")
}

func TestReportHandleJobRendersPDF(t *testing.T) {
	svc, repo, _, _, _ := reportFixture(t)
	repo.reports["job-2"] = &models.ReportJob{ID: "job-2", SchoolID: testSchoolID, SectionID: sectionUUID, Status: models.ReportPending}

	err := svc.HandleJob(context.Background(), jobs.Job{
		ID:   "job-2",
		Type: "grade_sheet",
		Payload: gradeSheetPayload{
			JobID:     "job-2",
			SchoolID:  testSchoolID,
			SectionID: sectionUUID,
			Format:    models.ReportFormatPDF,
		},
	})
	require.NoError(t, err)
	assert.Equal(t, testSchoolID+"/job-2.pdf", repo.completed["job-2"])
}

func TestReportGetHidesForeignJobs(t *testing.T) {
	svc, repo, _, _, _ := reportFixture(t)
	repo.reports["job-1"] = &models.ReportJob{
		ID:          "job-1",
		SchoolID:    testSchoolID,
		SectionID:   sectionUUID,
		RequestedBy: "prof-1",
		Status:      models.ReportPending,
	}

	_, _, err := svc.Get(context.Background(), testScope(t, "prof-2", models.RoleProfessor), "job-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	// Requester and admin both see the job.
	job, token, err := svc.Get(context.Background(), testScope(t, "prof-1", models.RoleProfessor), "job-1")
	require.NoError(t, err)
	assert.Equal(t, "job-1", job.ID)
	assert.Empty(t, token)

	_, _, err = svc.Get(context.Background(), testScope(t, "admin-1", models.RoleAdmin), "job-1")
	require.NoError(t, err)
}

func TestReportGetCompletedIncludesToken(t *testing.T) {
	svc, repo, _, _, _ := reportFixture(t)
	path := testSchoolID + "/job-1.csv"
	repo.reports["job-1"] = &models.ReportJob{
		ID:          "job-1",
		SchoolID:    testSchoolID,
		SectionID:   sectionUUID,
		RequestedBy: "prof-1",
		Status:      models.ReportCompleted,
		FilePath:    &path,
	}

	_, token, err := svc.Get(context.Background(), testScope(t, "prof-1", models.RoleProfessor), "job-1")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
}

func TestReportDownloadRejectsTamperedToken(t *testing.T) {
	svc, repo, _, _, _ := reportFixture(t)
	path := testSchoolID + "/job-1.csv"
	repo.reports["job-1"] = &models.ReportJob{
		ID:       "job-1",
		SchoolID: testSchoolID,
		Status:   models.ReportCompleted,
		FilePath: &path,
	}

	signer := storage.NewSignedURLSigner("report-secret", time.Hour)
	token, _, err := signer.Generate("job-1", path)
	require.NoError(t, err)

	_, err = svc.Download(context.Background(), testScope(t, "admin-1", models.RoleAdmin), token+"x")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrTokenInvalid.Code, appErrors.FromError(err).Code)
}
