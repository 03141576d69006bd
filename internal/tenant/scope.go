// Package tenant defines the scope value that every tenant-scoped data
// access call must carry. A Scope can only be built from validated JWT
// claims, and its school id is unexported, so resource handlers cannot
// fabricate or widen a scope: the repository layer appends the school
// filter unconditionally from it.
package tenant

import (
	"github.com/edustack/edustack-api/internal/models"
	appErrors "github.com/edustack/edustack-api/pkg/errors"
)

// Scope identifies the requesting actor and the single school their
// queries are confined to.
type Scope struct {
	schoolID string
	userID   string
	role     models.UserRole
}

// FromClaims derives a Scope from validated access-token claims.
// Superadmins carry no school and therefore cannot obtain a Scope; the
// registry endpoints they use are not tenant-scoped.
func FromClaims(claims *models.JWTClaims) (Scope, error) {
	if claims == nil {
		return Scope{}, appErrors.ErrUnauthenticated
	}
	if claims.Role == models.RoleSuperAdmin {
		return Scope{}, appErrors.Clone(appErrors.ErrForbidden, "superadmin cannot access tenant resources")
	}
	if claims.SchoolID == nil || *claims.SchoolID == "" {
		return Scope{}, appErrors.Clone(appErrors.ErrForbidden, "user has no school")
	}
	return Scope{schoolID: *claims.SchoolID, userID: claims.UserID, role: claims.Role}, nil
}

// SystemScope builds an admin-visibility scope for background workers that
// run outside a request. Only internal code paths that already validated
// the school may use it; handlers never see one.
func SystemScope(schoolID string) Scope {
	return Scope{schoolID: schoolID, role: models.RoleAdmin}
}

// SchoolID returns the tenant boundary for all queries made under this scope.
func (s Scope) SchoolID() string { return s.schoolID }

// UserID returns the acting user's id.
func (s Scope) UserID() string { return s.userID }

// Role returns the acting user's role.
func (s Scope) Role() models.UserRole { return s.role }

// IsAdmin reports whether the actor is a school admin.
func (s Scope) IsAdmin() bool { return s.role == models.RoleAdmin }

// IsProfessor reports whether the actor is a professor.
func (s Scope) IsProfessor() bool { return s.role == models.RoleProfessor }

// IsStudent reports whether the actor is a student.
func (s Scope) IsStudent() bool { return s.role == models.RoleStudent }
