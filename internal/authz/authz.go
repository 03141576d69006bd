// Package authz holds the capability table deciding which roles may perform
// which operations. Tenant matching is handled structurally by the
// repository layer; this table only answers the role-capability question,
// evaluated once per request by the route middleware. Ownership refinements
// (a student seeing only their own rows) live in the services.
package authz

import "github.com/edustack/edustack-api/internal/models"

// Action identifies an operation subject to role gating.
type Action string

const (
	SchoolManage       Action = "schools:manage"
	SubscriptionManage Action = "subscriptions:manage"

	UserList       Action = "users:list"
	UserCreate     Action = "users:create"
	UserUpdate     Action = "users:update"
	UserDeactivate Action = "users:deactivate"

	SubjectRead  Action = "subjects:read"
	SubjectWrite Action = "subjects:write"

	SectionRead  Action = "sections:read"
	SectionWrite Action = "sections:write"

	EnrollmentRead     Action = "enrollments:read"
	EnrollmentCreate   Action = "enrollments:create"
	EnrollmentDrop     Action = "enrollments:drop"
	EnrollmentComplete Action = "enrollments:complete"

	AssignmentRead  Action = "assignments:read"
	AssignmentWrite Action = "assignments:write"

	SubmissionRead   Action = "submissions:read"
	SubmissionCreate Action = "submissions:create"
	SubmissionGrade  Action = "submissions:grade"

	ReportRequest Action = "reports:request"
)

// capabilities maps each action to the roles allowed to attempt it.
// Superadmin appears only on registry actions: tenant management and tenant
// content are disjoint surfaces.
var capabilities = map[Action]map[models.UserRole]struct{}{
	SchoolManage:       roles(models.RoleSuperAdmin),
	SubscriptionManage: roles(models.RoleSuperAdmin),

	UserList:       roles(models.RoleAdmin, models.RoleProfessor, models.RoleStudent),
	UserCreate:     roles(models.RoleAdmin),
	UserUpdate:     roles(models.RoleAdmin, models.RoleProfessor, models.RoleStudent),
	UserDeactivate: roles(models.RoleAdmin),

	SubjectRead:  roles(models.RoleAdmin, models.RoleProfessor, models.RoleStudent),
	SubjectWrite: roles(models.RoleAdmin),

	SectionRead:  roles(models.RoleAdmin, models.RoleProfessor, models.RoleStudent),
	SectionWrite: roles(models.RoleAdmin),

	EnrollmentRead:     roles(models.RoleAdmin, models.RoleProfessor, models.RoleStudent),
	EnrollmentCreate:   roles(models.RoleAdmin, models.RoleStudent),
	EnrollmentDrop:     roles(models.RoleAdmin, models.RoleStudent),
	EnrollmentComplete: roles(models.RoleAdmin),

	AssignmentRead:  roles(models.RoleAdmin, models.RoleProfessor, models.RoleStudent),
	AssignmentWrite: roles(models.RoleAdmin, models.RoleProfessor),

	SubmissionRead:   roles(models.RoleAdmin, models.RoleProfessor, models.RoleStudent),
	SubmissionCreate: roles(models.RoleStudent),
	SubmissionGrade:  roles(models.RoleAdmin, models.RoleProfessor),

	ReportRequest: roles(models.RoleAdmin, models.RoleProfessor),
}

// Can reports whether the role is in the capability set of the action.
func Can(role models.UserRole, action Action) bool {
	set, ok := capabilities[action]
	if !ok {
		return false
	}
	_, ok = set[role]
	return ok
}

func roles(rs ...models.UserRole) map[models.UserRole]struct{} {
	set := make(map[models.UserRole]struct{}, len(rs))
	for _, r := range rs {
		set[r] = struct{}{}
	}
	return set
}
