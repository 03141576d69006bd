package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/edustack/edustack-api/internal/models"
	"github.com/edustack/edustack-api/internal/tenant"
	appErrors "github.com/edustack/edustack-api/pkg/errors"
)

const (
	sectionUUID = "11111111-1111-4111-8111-111111111111"
	studentUUID = "22222222-2222-4222-8222-222222222222"
	otherUUID   = "33333333-3333-4333-8333-333333333333"
)

type mockEnrollmentRepo struct {
	enrollments map[string]*models.Enrollment
	active      map[string]bool
	created     []*models.Enrollment
}

func newMockEnrollmentRepo() *mockEnrollmentRepo {
	return &mockEnrollmentRepo{
		enrollments: map[string]*models.Enrollment{},
		active:      map[string]bool{},
	}
}

func activeKey(studentID, sectionID string) string { return studentID + "/" + sectionID }

func (m *mockEnrollmentRepo) List(_ context.Context, _ tenant.Scope, _ models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	return nil, 0, nil
}

func (m *mockEnrollmentRepo) FindByID(_ context.Context, _ tenant.Scope, id string) (*models.Enrollment, error) {
	e, ok := m.enrollments[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return e, nil
}

func (m *mockEnrollmentRepo) ExistsActive(_ context.Context, _ tenant.Scope, studentID, sectionID string) (bool, error) {
	return m.active[activeKey(studentID, sectionID)], nil
}

func (m *mockEnrollmentRepo) Create(_ context.Context, scope tenant.Scope, enrollment *models.Enrollment) error {
	enrollment.ID = "enr-new"
	enrollment.SchoolID = scope.SchoolID()
	m.created = append(m.created, enrollment)
	m.enrollments[enrollment.ID] = enrollment
	m.active[activeKey(enrollment.StudentID, enrollment.SectionID)] = true
	return nil
}

func (m *mockEnrollmentRepo) UpdateStatus(_ context.Context, _ tenant.Scope, id string, status models.EnrollmentStatus) error {
	e, ok := m.enrollments[id]
	if !ok {
		return sql.ErrNoRows
	}
	e.Status = status
	return nil
}

func (m *mockEnrollmentRepo) ListByStudent(_ context.Context, _ tenant.Scope, studentID string) ([]models.EnrollmentDetail, error) {
	var out []models.EnrollmentDetail
	for _, e := range m.enrollments {
		if e.StudentID == studentID {
			out = append(out, models.EnrollmentDetail{Enrollment: *e})
		}
	}
	return out, nil
}

type mockEnrollmentSectionRepo struct {
	sections map[string]*models.Section
	enrolled map[string]int
}

func (m *mockEnrollmentSectionRepo) FindByID(_ context.Context, _ tenant.Scope, id string) (*models.Section, error) {
	s, ok := m.sections[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return s, nil
}

func (m *mockEnrollmentSectionRepo) CountEnrolled(_ context.Context, _ tenant.Scope, sectionID string) (int, error) {
	return m.enrolled[sectionID], nil
}

type mockScopedUserRepo struct {
	users map[string]*models.User
}

func (m *mockScopedUserRepo) FindScoped(_ context.Context, _ tenant.Scope, id string) (*models.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return u, nil
}

func enrollmentFixture() (*mockEnrollmentRepo, *mockEnrollmentSectionRepo, *mockScopedUserRepo) {
	repo := newMockEnrollmentRepo()
	sections := &mockEnrollmentSectionRepo{
		sections: map[string]*models.Section{
			sectionUUID: {ID: sectionUUID, SchoolID: testSchoolID, MaxStudents: 2},
		},
		enrolled: map[string]int{},
	}
	users := &mockScopedUserRepo{users: map[string]*models.User{
		studentUUID: {ID: studentUUID, Role: models.RoleStudent, Active: true},
	}}
	return repo, sections, users
}

func TestEnrollmentCreateStudentForcedToSelf(t *testing.T) {
	repo, sections, users := enrollmentFixture()
	svc := NewEnrollmentService(repo, sections, users, nil, zap.NewNop())
	scope := testScope(t, studentUUID, models.RoleStudent)

	// A student naming someone else still enrolls themselves.
	enrollment, err := svc.Create(context.Background(), scope, CreateEnrollmentRequest{
		SectionID: sectionUUID,
		StudentID: otherUUID,
	})
	require.NoError(t, err)
	assert.Equal(t, studentUUID, enrollment.StudentID)
	assert.Equal(t, testSchoolID, enrollment.SchoolID)
}

func TestEnrollmentCreateAdminPicksStudent(t *testing.T) {
	repo, sections, users := enrollmentFixture()
	svc := NewEnrollmentService(repo, sections, users, nil, zap.NewNop())
	scope := testScope(t, "admin-1", models.RoleAdmin)

	enrollment, err := svc.Create(context.Background(), scope, CreateEnrollmentRequest{
		SectionID: sectionUUID,
		StudentID: studentUUID,
	})
	require.NoError(t, err)
	assert.Equal(t, studentUUID, enrollment.StudentID)
}

func TestEnrollmentCreateDuplicateActive(t *testing.T) {
	repo, sections, users := enrollmentFixture()
	repo.active[activeKey(studentUUID, sectionUUID)] = true
	svc := NewEnrollmentService(repo, sections, users, nil, zap.NewNop())
	scope := testScope(t, studentUUID, models.RoleStudent)

	_, err := svc.Create(context.Background(), scope, CreateEnrollmentRequest{SectionID: sectionUUID})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestEnrollmentCreateSectionFull(t *testing.T) {
	repo, sections, users := enrollmentFixture()
	sections.enrolled[sectionUUID] = 2
	svc := NewEnrollmentService(repo, sections, users, nil, zap.NewNop())
	scope := testScope(t, studentUUID, models.RoleStudent)

	_, err := svc.Create(context.Background(), scope, CreateEnrollmentRequest{SectionID: sectionUUID})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
	assert.Equal(t, "section is full", appErr.Message)
}

func TestEnrollmentCreateSectionFromAnotherSchool(t *testing.T) {
	repo, sections, users := enrollmentFixture()
	delete(sections.sections, sectionUUID)
	svc := NewEnrollmentService(repo, sections, users, nil, zap.NewNop())
	scope := testScope(t, studentUUID, models.RoleStudent)

	_, err := svc.Create(context.Background(), scope, CreateEnrollmentRequest{SectionID: sectionUUID})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrCrossTenantReference.Code, appErr.Code)
	assert.Equal(t, appErrors.ErrNotFound.Status, appErr.Status)
}

func TestEnrollmentCreateNonStudentTarget(t *testing.T) {
	repo, sections, users := enrollmentFixture()
	users.users[otherUUID] = &models.User{ID: otherUUID, Role: models.RoleProfessor, Active: true}
	svc := NewEnrollmentService(repo, sections, users, nil, zap.NewNop())
	scope := testScope(t, "admin-1", models.RoleAdmin)

	_, err := svc.Create(context.Background(), scope, CreateEnrollmentRequest{
		SectionID: sectionUUID,
		StudentID: otherUUID,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestEnrollmentDropOwnershipAndLifecycle(t *testing.T) {
	repo, sections, users := enrollmentFixture()
	repo.enrollments["enr-1"] = &models.Enrollment{
		ID:        "enr-1",
		SchoolID:  testSchoolID,
		StudentID: studentUUID,
		SectionID: sectionUUID,
		Status:    models.EnrollmentEnrolled,
	}
	svc := NewEnrollmentService(repo, sections, users, nil, zap.NewNop())

	// Another student cannot see the enrollment at all.
	stranger := testScope(t, otherUUID, models.RoleStudent)
	_, err := svc.Drop(context.Background(), stranger, "enr-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	owner := testScope(t, studentUUID, models.RoleStudent)
	dropped, err := svc.Drop(context.Background(), owner, "enr-1")
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentDropped, dropped.Status)

	// Dropping twice conflicts.
	_, err = svc.Drop(context.Background(), owner, "enr-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestEnrollmentCompleteOnlyFromEnrolled(t *testing.T) {
	repo, sections, users := enrollmentFixture()
	repo.enrollments["enr-1"] = &models.Enrollment{
		ID:        "enr-1",
		SchoolID:  testSchoolID,
		StudentID: studentUUID,
		SectionID: sectionUUID,
		Status:    models.EnrollmentDropped,
	}
	svc := NewEnrollmentService(repo, sections, users, nil, zap.NewNop())
	scope := testScope(t, "admin-1", models.RoleAdmin)

	_, err := svc.Complete(context.Background(), scope, "enr-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)

	repo.enrollments["enr-1"].Status = models.EnrollmentEnrolled
	completed, err := svc.Complete(context.Background(), scope, "enr-1")
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentCompleted, completed.Status)
}
