package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/edustack/edustack-api/internal/authz"
	"github.com/edustack/edustack-api/internal/models"
	appErrors "github.com/edustack/edustack-api/pkg/errors"
	"github.com/edustack/edustack-api/pkg/response"
)

// RequireAction gates a route on the capability table. It runs after JWT so
// the claims are always present when it executes.
func RequireAction(action authz.Action) gin.HandlerFunc {
	return func(c *gin.Context) {
		claimsValue, exists := c.Get(ContextUserKey)
		if !exists {
			response.Error(c, appErrors.ErrUnauthenticated)
			c.Abort()
			return
		}
		claims := claimsValue.(*models.JWTClaims)

		if !authz.Can(claims.Role, action) {
			response.Error(c, appErrors.ErrForbidden)
			c.Abort()
			return
		}

		c.Next()
	}
}
