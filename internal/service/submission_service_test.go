package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/edustack/edustack-api/internal/models"
	"github.com/edustack/edustack-api/internal/repository"
	"github.com/edustack/edustack-api/internal/tenant"
	appErrors "github.com/edustack/edustack-api/pkg/errors"
)

const assignmentUUID = "44444444-4444-4444-8444-444444444444"

type mockSubmissionRepo struct {
	submissions map[string]*models.Submission
	graded      []*models.Submission
	rows        []repository.GradeRow
}

func newMockSubmissionRepo() *mockSubmissionRepo {
	return &mockSubmissionRepo{submissions: map[string]*models.Submission{}}
}

func (m *mockSubmissionRepo) List(_ context.Context, _ tenant.Scope, _ models.SubmissionFilter) ([]models.Submission, int, error) {
	return nil, 0, nil
}

func (m *mockSubmissionRepo) FindByID(_ context.Context, _ tenant.Scope, id string) (*models.Submission, error) {
	s, ok := m.submissions[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return s, nil
}

func (m *mockSubmissionRepo) FindByAssignmentAndStudent(_ context.Context, _ tenant.Scope, assignmentID, studentID string) (*models.Submission, error) {
	for _, s := range m.submissions {
		if s.AssignmentID == assignmentID && s.StudentID == studentID {
			return s, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockSubmissionRepo) Create(_ context.Context, scope tenant.Scope, submission *models.Submission) error {
	submission.ID = "sub-new"
	submission.SchoolID = scope.SchoolID()
	m.submissions[submission.ID] = submission
	return nil
}

func (m *mockSubmissionRepo) UpdateContent(_ context.Context, _ tenant.Scope, submission *models.Submission) error {
	m.submissions[submission.ID] = submission
	return nil
}

func (m *mockSubmissionRepo) Grade(_ context.Context, _ tenant.Scope, submission *models.Submission) error {
	m.graded = append(m.graded, submission)
	m.submissions[submission.ID] = submission
	return nil
}

func (m *mockSubmissionRepo) GradeSheet(_ context.Context, _ tenant.Scope, _ string) ([]repository.GradeRow, error) {
	return m.rows, nil
}

type mockAssignmentLookup struct {
	assignments map[string]*models.Assignment
}

func (m *mockAssignmentLookup) FindByID(_ context.Context, _ tenant.Scope, id string) (*models.Assignment, error) {
	a, ok := m.assignments[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return a, nil
}

type mockSectionLookup struct {
	sections map[string]*models.Section
}

func (m *mockSectionLookup) FindByID(_ context.Context, _ tenant.Scope, id string) (*models.Section, error) {
	s, ok := m.sections[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return s, nil
}

type mockEnrollmentCheck struct {
	enrolled map[string]bool
}

func (m *mockEnrollmentCheck) HasActiveEnrollment(_ context.Context, _ tenant.Scope, studentID, sectionID string) (bool, error) {
	return m.enrolled[studentID+"/"+sectionID], nil
}

func submissionFixture() (*mockSubmissionRepo, *mockAssignmentLookup, *mockSectionLookup, *mockEnrollmentCheck) {
	repo := newMockSubmissionRepo()
	assignments := &mockAssignmentLookup{assignments: map[string]*models.Assignment{
		assignmentUUID: {ID: assignmentUUID, SchoolID: testSchoolID, SectionID: sectionUUID, MaxScore: 100},
	}}
	sections := &mockSectionLookup{sections: map[string]*models.Section{
		sectionUUID: {ID: sectionUUID, SchoolID: testSchoolID, ProfessorID: "prof-1"},
	}}
	enrollments := &mockEnrollmentCheck{enrolled: map[string]bool{
		studentUUID + "/" + sectionUUID: true,
	}}
	return repo, assignments, sections, enrollments
}

func TestSubmitRequiresActiveEnrollment(t *testing.T) {
	repo, assignments, sections, enrollments := submissionFixture()
	enrollments.enrolled = map[string]bool{}
	svc := NewSubmissionService(repo, assignments, sections, enrollments, nil, zap.NewNop())
	scope := testScope(t, studentUUID, models.RoleStudent)

	_, err := svc.Submit(context.Background(), scope, CreateSubmissionRequest{
		AssignmentID: assignmentUUID,
		Content:      "my answer",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestSubmitCreatesThenUpdates(t *testing.T) {
	repo, assignments, sections, enrollments := submissionFixture()
	svc := NewSubmissionService(repo, assignments, sections, enrollments, nil, zap.NewNop())
	scope := testScope(t, studentUUID, models.RoleStudent)

	first, err := svc.Submit(context.Background(), scope, CreateSubmissionRequest{
		AssignmentID: assignmentUUID,
		Content:      "first draft",
	})
	require.NoError(t, err)
	assert.Equal(t, models.SubmissionSubmitted, first.Status)
	assert.Equal(t, testSchoolID, first.SchoolID)

	// Resubmission before grading updates the same row.
	second, err := svc.Submit(context.Background(), scope, CreateSubmissionRequest{
		AssignmentID: assignmentUUID,
		Content:      "final draft",
	})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "final draft", second.Content)
	assert.Len(t, repo.submissions, 1)
}

func TestSubmitAfterGradingConflicts(t *testing.T) {
	repo, assignments, sections, enrollments := submissionFixture()
	repo.submissions["sub-1"] = &models.Submission{
		ID:           "sub-1",
		SchoolID:     testSchoolID,
		AssignmentID: assignmentUUID,
		StudentID:    studentUUID,
		Status:       models.SubmissionGraded,
	}
	svc := NewSubmissionService(repo, assignments, sections, enrollments, nil, zap.NewNop())
	scope := testScope(t, studentUUID, models.RoleStudent)

	_, err := svc.Submit(context.Background(), scope, CreateSubmissionRequest{
		AssignmentID: assignmentUUID,
		Content:      "too late",
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
	assert.Equal(t, "submission already graded", appErr.Message)
}

func TestSubmitCrossTenantAssignment(t *testing.T) {
	repo, assignments, sections, enrollments := submissionFixture()
	delete(assignments.assignments, assignmentUUID)
	svc := NewSubmissionService(repo, assignments, sections, enrollments, nil, zap.NewNop())
	scope := testScope(t, studentUUID, models.RoleStudent)

	_, err := svc.Submit(context.Background(), scope, CreateSubmissionRequest{
		AssignmentID: assignmentUUID,
		Content:      "answer",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrCrossTenantReference.Code, appErrors.FromError(err).Code)
}

func TestGradeScoreRange(t *testing.T) {
	repo, assignments, sections, enrollments := submissionFixture()
	repo.submissions["sub-1"] = &models.Submission{
		ID:           "sub-1",
		SchoolID:     testSchoolID,
		AssignmentID: assignmentUUID,
		StudentID:    studentUUID,
		Status:       models.SubmissionSubmitted,
	}
	svc := NewSubmissionService(repo, assignments, sections, enrollments, nil, zap.NewNop())
	scope := testScope(t, "prof-1", models.RoleProfessor)

	_, err := svc.Grade(context.Background(), scope, "sub-1", GradeSubmissionRequest{Score: 150})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Equal(t, appErrors.KindScoreOutOfRange, appErrors.FromError(err).Fields["score"])

	graded, err := svc.Grade(context.Background(), scope, "sub-1", GradeSubmissionRequest{Score: 85, Feedback: strPtr("good work")})
	require.NoError(t, err)
	assert.Equal(t, models.SubmissionGraded, graded.Status)
	require.NotNil(t, graded.Score)
	assert.Equal(t, 85.0, *graded.Score)
	require.NotNil(t, graded.GradedBy)
	assert.Equal(t, "prof-1", *graded.GradedBy)
}

func TestGradeForeignSectionForbidden(t *testing.T) {
	repo, assignments, sections, enrollments := submissionFixture()
	repo.submissions["sub-1"] = &models.Submission{
		ID:           "sub-1",
		SchoolID:     testSchoolID,
		AssignmentID: assignmentUUID,
		StudentID:    studentUUID,
		Status:       models.SubmissionSubmitted,
	}
	svc := NewSubmissionService(repo, assignments, sections, enrollments, nil, zap.NewNop())
	scope := testScope(t, "prof-2", models.RoleProfessor)

	_, err := svc.Grade(context.Background(), scope, "sub-1", GradeSubmissionRequest{Score: 50})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestGetHidesForeignRows(t *testing.T) {
	repo, assignments, sections, enrollments := submissionFixture()
	repo.submissions["sub-1"] = &models.Submission{
		ID:           "sub-1",
		SchoolID:     testSchoolID,
		AssignmentID: assignmentUUID,
		StudentID:    studentUUID,
		Status:       models.SubmissionSubmitted,
	}
	svc := NewSubmissionService(repo, assignments, sections, enrollments, nil, zap.NewNop())

	// Another student gets NOT_FOUND, not FORBIDDEN.
	_, err := svc.Get(context.Background(), testScope(t, otherUUID, models.RoleStudent), "sub-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	// A professor who does not teach the section gets NOT_FOUND too.
	_, err = svc.Get(context.Background(), testScope(t, "prof-2", models.RoleProfessor), "sub-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	// Owner and teaching professor both see the row.
	got, err := svc.Get(context.Background(), testScope(t, studentUUID, models.RoleStudent), "sub-1")
	require.NoError(t, err)
	assert.Equal(t, "sub-1", got.ID)
	_, err = svc.Get(context.Background(), testScope(t, "prof-1", models.RoleProfessor), "sub-1")
	require.NoError(t, err)
}

func TestReturnRequiresGraded(t *testing.T) {
	repo, assignments, sections, enrollments := submissionFixture()
	repo.submissions["sub-1"] = &models.Submission{
		ID:           "sub-1",
		SchoolID:     testSchoolID,
		AssignmentID: assignmentUUID,
		StudentID:    studentUUID,
		Status:       models.SubmissionSubmitted,
	}
	svc := NewSubmissionService(repo, assignments, sections, enrollments, nil, zap.NewNop())
	scope := testScope(t, "prof-1", models.RoleProfessor)

	_, err := svc.Return(context.Background(), scope, "sub-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)

	repo.submissions["sub-1"].Status = models.SubmissionGraded
	returned, err := svc.Return(context.Background(), scope, "sub-1")
	require.NoError(t, err)
	assert.Equal(t, models.SubmissionReturned, returned.Status)
}
