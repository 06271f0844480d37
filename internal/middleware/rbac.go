package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/SIM-MBKM/mbkm-equivalence-api/internal/models"
	appErrors "github.com/SIM-MBKM/mbkm-equivalence-api/pkg/errors"
	"github.com/SIM-MBKM/mbkm-equivalence-api/pkg/response"
)

// RequireRoles only lets through callers whose token carries one of roles.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make(map[models.UserRole]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		value, exists := c.Get(ContextUserKey)
		claims, ok := value.(*models.JWTClaims)
		if !exists || !ok || claims == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if _, ok := allowed[claims.Role]; !ok {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "role "+string(claims.Role)+" cannot edit equivalences"))
			c.Abort()
			return
		}
		c.Next()
	}
}
