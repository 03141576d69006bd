package tenant

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edustack/edustack-api/internal/models"
	appErrors "github.com/edustack/edustack-api/pkg/errors"
)

func TestFromClaims(t *testing.T) {
	school := "school-1"
	scope, err := FromClaims(&models.JWTClaims{UserID: "u1", SchoolID: &school, Role: models.RoleProfessor})
	require.NoError(t, err)
	assert.Equal(t, "school-1", scope.SchoolID())
	assert.Equal(t, "u1", scope.UserID())
	assert.True(t, scope.IsProfessor())
	assert.False(t, scope.IsAdmin())
}

func TestFromClaimsNil(t *testing.T) {
	_, err := FromClaims(nil)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthenticated.Code, appErrors.FromError(err).Code)
}

func TestFromClaimsSuperadminDenied(t *testing.T) {
	school := "school-1"
	_, err := FromClaims(&models.JWTClaims{UserID: "u1", SchoolID: &school, Role: models.RoleSuperAdmin})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestFromClaimsMissingSchool(t *testing.T) {
	_, err := FromClaims(&models.JWTClaims{UserID: "u1", Role: models.RoleStudent})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	empty := ""
	_, err = FromClaims(&models.JWTClaims{UserID: "u1", SchoolID: &empty, Role: models.RoleStudent})
	require.Error(t, err)
}

func TestSystemScope(t *testing.T) {
	scope := SystemScope("school-9")
	assert.Equal(t, "school-9", scope.SchoolID())
	assert.True(t, scope.IsAdmin())
}
