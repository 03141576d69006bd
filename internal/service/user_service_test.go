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

type mockUserRepo struct {
	users       map[string]*models.User
	emails      map[string]bool
	deactivated []string
	revoked     []string
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: map[string]*models.User{}, emails: map[string]bool{}}
}

func (m *mockUserRepo) List(_ context.Context, _ tenant.Scope, _ models.UserFilter) ([]models.User, int, error) {
	var out []models.User
	for _, u := range m.users {
		out = append(out, *u)
	}
	return out, len(out), nil
}

func (m *mockUserRepo) FindScoped(_ context.Context, _ tenant.Scope, id string) (*models.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return u, nil
}

func (m *mockUserRepo) ExistsByEmail(_ context.Context, email string) (bool, error) {
	return m.emails[email], nil
}

func (m *mockUserRepo) Create(_ context.Context, user *models.User) error {
	user.ID = "user-new"
	m.users[user.ID] = user
	m.emails[user.Email] = true
	return nil
}

func (m *mockUserRepo) Update(_ context.Context, _ tenant.Scope, user *models.User) error {
	m.users[user.ID] = user
	return nil
}

func (m *mockUserRepo) Deactivate(_ context.Context, _ tenant.Scope, id string) error {
	m.deactivated = append(m.deactivated, id)
	if u, ok := m.users[id]; ok {
		u.Active = false
	}
	return nil
}

func (m *mockUserRepo) RevokeUserRefreshTokens(_ context.Context, userID string) error {
	m.revoked = append(m.revoked, userID)
	return nil
}

func TestUserCreate(t *testing.T) {
	repo := newMockUserRepo()
	svc := NewUserService(repo, nil, zap.NewNop())
	scope := testScope(t, "admin-1", models.RoleAdmin)

	user, err := svc.Create(context.Background(), scope, CreateUserRequest{
		Email:    " Maria@School.test ",
		Password: "strongpass",
		FullName: "Maria Lopez",
		Role:     models.RoleProfessor,
	})
	require.NoError(t, err)
	assert.Equal(t, "maria@school.test", user.Email)
	require.NotNil(t, user.SchoolID)
	assert.Equal(t, testSchoolID, *user.SchoolID)
	assert.True(t, user.Active)
}

func TestUserCreateRoleRestricted(t *testing.T) {
	svc := NewUserService(newMockUserRepo(), nil, zap.NewNop())
	scope := testScope(t, "admin-1", models.RoleAdmin)

	// Admins cannot mint further admins through this endpoint.
	_, err := svc.Create(context.Background(), scope, CreateUserRequest{
		Email:    "new@school.test",
		Password: "strongpass",
		FullName: "New Admin",
		Role:     models.RoleAdmin,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestUserCreateEmailConflict(t *testing.T) {
	repo := newMockUserRepo()
	repo.emails["taken@school.test"] = true
	svc := NewUserService(repo, nil, zap.NewNop())
	scope := testScope(t, "admin-1", models.RoleAdmin)

	_, err := svc.Create(context.Background(), scope, CreateUserRequest{
		Email:    "Taken@school.test",
		Password: "strongpass",
		FullName: "Dup User",
		Role:     models.RoleStudent,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestUserUpdateBlocksOtherMembers(t *testing.T) {
	repo := newMockUserRepo()
	repo.users["admin-1"] = &models.User{ID: "admin-1", FullName: "Head Admin", Role: models.RoleAdmin, Active: true}
	svc := NewUserService(repo, nil, zap.NewNop())
	scope := testScope(t, "stu-1", models.RoleStudent)

	inactive := false
	_, err := svc.Update(context.Background(), scope, "admin-1", UpdateUserRequest{FullName: "Renamed Admin", Active: &inactive})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	assert.Equal(t, "Head Admin", repo.users["admin-1"].FullName)
	assert.True(t, repo.users["admin-1"].Active)
}

func TestUserUpdateActiveFlagAdminOnly(t *testing.T) {
	repo := newMockUserRepo()
	repo.users["stu-1"] = &models.User{ID: "stu-1", FullName: "Ana Silva", Role: models.RoleStudent, Active: true}
	svc := NewUserService(repo, nil, zap.NewNop())
	scope := testScope(t, "stu-1", models.RoleStudent)

	// A member may rename themselves but not flip their own status.
	active := true
	_, err := svc.Update(context.Background(), scope, "stu-1", UpdateUserRequest{FullName: "Ana S. Silva", Active: &active})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	updated, err := svc.Update(context.Background(), scope, "stu-1", UpdateUserRequest{FullName: "Ana S. Silva"})
	require.NoError(t, err)
	assert.Equal(t, "Ana S. Silva", updated.FullName)
	assert.True(t, updated.Active)
}

func TestUserUpdateAdminSetsActive(t *testing.T) {
	repo := newMockUserRepo()
	repo.users["stu-1"] = &models.User{ID: "stu-1", FullName: "Ana Silva", Role: models.RoleStudent, Active: true}
	svc := NewUserService(repo, nil, zap.NewNop())
	scope := testScope(t, "admin-1", models.RoleAdmin)

	inactive := false
	updated, err := svc.Update(context.Background(), scope, "stu-1", UpdateUserRequest{FullName: "Ana Silva", Active: &inactive})
	require.NoError(t, err)
	assert.False(t, updated.Active)
}

func TestUserListSelfOnlyForNonAdmins(t *testing.T) {
	repo := newMockUserRepo()
	repo.users["stu-1"] = &models.User{ID: "stu-1", FullName: "Ana Silva", Role: models.RoleStudent, Active: true}
	repo.users["stu-2"] = &models.User{ID: "stu-2", FullName: "Ben Cole", Role: models.RoleStudent, Active: true}
	svc := NewUserService(repo, nil, zap.NewNop())

	users, pagination, err := svc.List(context.Background(), testScope(t, "stu-1", models.RoleStudent), models.UserFilter{Page: 1})
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "stu-1", users[0].ID)
	assert.Equal(t, 1, pagination.TotalCount)

	users, _, err = svc.List(context.Background(), testScope(t, "admin-1", models.RoleAdmin), models.UserFilter{Page: 1})
	require.NoError(t, err)
	assert.Len(t, users, 2)
}

func TestUserGetSelfOnlyForNonAdmins(t *testing.T) {
	repo := newMockUserRepo()
	repo.users["stu-1"] = &models.User{ID: "stu-1", Role: models.RoleStudent, Active: true}
	repo.users["stu-2"] = &models.User{ID: "stu-2", Role: models.RoleStudent, Active: true}
	svc := NewUserService(repo, nil, zap.NewNop())
	scope := testScope(t, "stu-1", models.RoleStudent)

	_, err := svc.Get(context.Background(), scope, "stu-2")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	me, err := svc.Get(context.Background(), scope, "stu-1")
	require.NoError(t, err)
	assert.Equal(t, "stu-1", me.ID)
}

func TestUserDeactivate(t *testing.T) {
	repo := newMockUserRepo()
	repo.users["u1"] = &models.User{ID: "u1", Role: models.RoleStudent, Active: true}
	svc := NewUserService(repo, nil, zap.NewNop())
	scope := testScope(t, "admin-1", models.RoleAdmin)

	require.NoError(t, svc.Deactivate(context.Background(), scope, "u1"))
	assert.Contains(t, repo.deactivated, "u1")
	assert.Contains(t, repo.revoked, "u1")
}

func TestUserDeactivateSelfForbidden(t *testing.T) {
	repo := newMockUserRepo()
	repo.users["admin-1"] = &models.User{ID: "admin-1", Role: models.RoleAdmin, Active: true}
	svc := NewUserService(repo, nil, zap.NewNop())
	scope := testScope(t, "admin-1", models.RoleAdmin)

	err := svc.Deactivate(context.Background(), scope, "admin-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.deactivated)
}

func TestUserDeactivateUnknown(t *testing.T) {
	svc := NewUserService(newMockUserRepo(), nil, zap.NewNop())
	scope := testScope(t, "admin-1", models.RoleAdmin)

	err := svc.Deactivate(context.Background(), scope, "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
