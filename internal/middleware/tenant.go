package middleware

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/edustack/edustack-api/internal/models"
	"github.com/edustack/edustack-api/internal/tenant"
	appErrors "github.com/edustack/edustack-api/pkg/errors"
	"github.com/edustack/edustack-api/pkg/response"
)

// ContextScopeKey is the gin context key storing the tenant scope.
const ContextScopeKey = "tenantScope"

// TenantGate answers whether a school currently holds platform access.
type TenantGate interface {
	IsSchoolActive(ctx context.Context, schoolID string) (bool, error)
}

// TenantScope derives the tenant scope from the authenticated claims and
// blocks requests from schools without an active subscription. Superadmins
// never pass this middleware: academic surfaces are tenant-only.
func TenantScope(gate TenantGate) gin.HandlerFunc {
	return func(c *gin.Context) {
		claimsValue, exists := c.Get(ContextUserKey)
		if !exists {
			response.Error(c, appErrors.ErrUnauthenticated)
			c.Abort()
			return
		}
		claims := claimsValue.(*models.JWTClaims)

		scope, err := tenant.FromClaims(claims)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		active, err := gate.IsSchoolActive(c.Request.Context(), scope.SchoolID())
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}
		if !active {
			response.Error(c, appErrors.ErrTenantInactive)
			c.Abort()
			return
		}

		c.Set(ContextScopeKey, scope)
		c.Next()
	}
}

// ScopeFromContext returns the tenant scope set by TenantScope.
func ScopeFromContext(c *gin.Context) (tenant.Scope, bool) {
	value, exists := c.Get(ContextScopeKey)
	if !exists {
		return tenant.Scope{}, false
	}
	scope, ok := value.(tenant.Scope)
	return scope, ok
}
