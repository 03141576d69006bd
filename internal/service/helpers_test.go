package service

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/edustack/edustack-api/internal/models"
	"github.com/edustack/edustack-api/internal/tenant"
)

const testSchoolID = "school-1"

func testScope(t *testing.T, userID string, role models.UserRole) tenant.Scope {
	t.Helper()
	schoolID := testSchoolID
	scope, err := tenant.FromClaims(&models.JWTClaims{UserID: userID, SchoolID: &schoolID, Role: role})
	require.NoError(t, err)
	return scope
}

func strPtr(s string) *string { return &s }
