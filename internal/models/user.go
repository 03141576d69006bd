package models

import (
	"time"

	appErrors "github.com/edustack/edustack-api/pkg/errors"
)

// UserRole represents the fixed authorization tiers.
type UserRole string

const (
	RoleSuperAdmin UserRole = "SUPERADMIN"
	RoleAdmin      UserRole = "ADMIN"
	RoleProfessor  UserRole = "PROFESSOR"
	RoleStudent    UserRole = "STUDENT"
)

// User represents an application user stored in the users table.
// SchoolID is nil iff the role is SUPERADMIN.
type User struct {
	ID           string     `db:"id" json:"id"`
	SchoolID     *string    `db:"school_id" json:"school_id,omitempty"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	FullName     string     `db:"full_name" json:"full_name"`
	Role         UserRole   `db:"role" json:"role"`
	Active       bool       `db:"active" json:"active"`
	LastLogin    *time.Time `db:"last_login" json:"last_login,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// ValidateTenantAssignment enforces the role/school pairing: a superadmin
// carries no school, every other role must belong to exactly one. Called
// before any user row is persisted.
func (u *User) ValidateTenantAssignment() error {
	if u.Role == RoleSuperAdmin {
		if u.SchoolID != nil && *u.SchoolID != "" {
			return appErrors.Validation("superadmin cannot belong to a school", map[string]string{
				"school_id": appErrors.KindInvalidTenantAssignment,
			})
		}
		return nil
	}
	if u.SchoolID == nil || *u.SchoolID == "" {
		return appErrors.Validation("user requires a school", map[string]string{
			"school_id": appErrors.KindMissingTenant,
		})
	}
	return nil
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	Role   *UserRole
	Active *bool
	Search string
	Page   int
}
