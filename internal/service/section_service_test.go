package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/edustack/edustack-api/internal/models"
	"github.com/edustack/edustack-api/internal/tenant"
	appErrors "github.com/edustack/edustack-api/pkg/errors"
)

const (
	subjectUUID   = "55555555-5555-4555-8555-555555555555"
	professorUUID = "66666666-6666-4666-8666-666666666666"
)

type mockSectionRepo struct {
	sections map[string]*models.Section
	enrolled map[string]int
	deleted  []string
}

func newMockSectionRepo() *mockSectionRepo {
	return &mockSectionRepo{sections: map[string]*models.Section{}, enrolled: map[string]int{}}
}

func (m *mockSectionRepo) List(_ context.Context, _ tenant.Scope, _ models.SectionFilter) ([]models.SectionDetail, int, error) {
	return nil, 0, nil
}

func (m *mockSectionRepo) FindByID(_ context.Context, _ tenant.Scope, id string) (*models.Section, error) {
	s, ok := m.sections[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return s, nil
}

func (m *mockSectionRepo) Create(_ context.Context, scope tenant.Scope, section *models.Section) error {
	section.ID = "sec-new"
	section.SchoolID = scope.SchoolID()
	m.sections[section.ID] = section
	return nil
}

func (m *mockSectionRepo) Update(_ context.Context, _ tenant.Scope, section *models.Section) error {
	m.sections[section.ID] = section
	return nil
}

func (m *mockSectionRepo) Delete(_ context.Context, _ tenant.Scope, id string) error {
	m.deleted = append(m.deleted, id)
	delete(m.sections, id)
	return nil
}

func (m *mockSectionRepo) CountEnrolled(_ context.Context, _ tenant.Scope, sectionID string) (int, error) {
	return m.enrolled[sectionID], nil
}

type mockSubjectLookup struct {
	subjects map[string]*models.Subject
}

func (m *mockSubjectLookup) FindByID(_ context.Context, _ tenant.Scope, id string) (*models.Subject, error) {
	s, ok := m.subjects[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return s, nil
}

func sectionFixture() (*mockSectionRepo, *mockSubjectLookup, *mockScopedUserRepo) {
	repo := newMockSectionRepo()
	subjects := &mockSubjectLookup{subjects: map[string]*models.Subject{
		subjectUUID: {ID: subjectUUID, SchoolID: testSchoolID, Code: "MATH101"},
	}}
	users := &mockScopedUserRepo{users: map[string]*models.User{
		professorUUID: {ID: professorUUID, Role: models.RoleProfessor, Active: true},
	}}
	return repo, subjects, users
}

func validSectionRequest() CreateSectionRequest {
	start := time.Now().UTC()
	return CreateSectionRequest{
		SubjectID:   subjectUUID,
		ProfessorID: professorUUID,
		Name:        "Calculus A",
		StartDate:   start,
		EndDate:     start.AddDate(0, 4, 0),
		MaxStudents: 30,
	}
}

func TestSectionCreate(t *testing.T) {
	repo, subjects, users := sectionFixture()
	svc := NewSectionService(repo, subjects, users, nil, zap.NewNop())
	scope := testScope(t, "admin-1", models.RoleAdmin)

	section, err := svc.Create(context.Background(), scope, validSectionRequest())
	require.NoError(t, err)
	assert.Equal(t, testSchoolID, section.SchoolID)
	assert.Equal(t, professorUUID, section.ProfessorID)
}

func TestSectionCreateCrossTenantSubject(t *testing.T) {
	repo, subjects, users := sectionFixture()
	delete(subjects.subjects, subjectUUID)
	svc := NewSectionService(repo, subjects, users, nil, zap.NewNop())
	scope := testScope(t, "admin-1", models.RoleAdmin)

	_, err := svc.Create(context.Background(), scope, validSectionRequest())
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrCrossTenantReference.Code, appErr.Code)
	assert.Equal(t, appErrors.ErrNotFound.Status, appErr.Status)
}

func TestSectionCreateCrossTenantProfessor(t *testing.T) {
	repo, subjects, users := sectionFixture()
	delete(users.users, professorUUID)
	svc := NewSectionService(repo, subjects, users, nil, zap.NewNop())
	scope := testScope(t, "admin-1", models.RoleAdmin)

	_, err := svc.Create(context.Background(), scope, validSectionRequest())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrCrossTenantReference.Code, appErrors.FromError(err).Code)
}

func TestSectionCreateProfessorRoleChecks(t *testing.T) {
	repo, subjects, users := sectionFixture()
	users.users[professorUUID].Role = models.RoleStudent
	svc := NewSectionService(repo, subjects, users, nil, zap.NewNop())
	scope := testScope(t, "admin-1", models.RoleAdmin)

	_, err := svc.Create(context.Background(), scope, validSectionRequest())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	users.users[professorUUID].Role = models.RoleProfessor
	users.users[professorUUID].Active = false
	_, err = svc.Create(context.Background(), scope, validSectionRequest())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestSectionCreateDateOrdering(t *testing.T) {
	repo, subjects, users := sectionFixture()
	svc := NewSectionService(repo, subjects, users, nil, zap.NewNop())
	scope := testScope(t, "admin-1", models.RoleAdmin)

	req := validSectionRequest()
	req.EndDate = req.StartDate.AddDate(0, 0, -1)
	_, err := svc.Create(context.Background(), scope, req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestSectionDeleteBlockedByEnrollments(t *testing.T) {
	repo, subjects, users := sectionFixture()
	repo.sections["sec-1"] = &models.Section{ID: "sec-1", SchoolID: testSchoolID}
	repo.enrolled["sec-1"] = 3
	svc := NewSectionService(repo, subjects, users, nil, zap.NewNop())
	scope := testScope(t, "admin-1", models.RoleAdmin)

	err := svc.Delete(context.Background(), scope, "sec-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)

	repo.enrolled["sec-1"] = 0
	require.NoError(t, svc.Delete(context.Background(), scope, "sec-1"))
	assert.Contains(t, repo.deleted, "sec-1")
}
