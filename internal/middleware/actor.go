package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/SIM-MBKM/mbkm-equivalence-api/internal/actor"
	"github.com/SIM-MBKM/mbkm-equivalence-api/internal/models"
)

// AttachActor copies the authenticated operator onto the request context so services
// can attribute audit records and forward the operator's token. Must run after JWT.
func AttachActor() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := c.Value(ContextUserKey).(*models.JWTClaims)
		if !ok || claims == nil {
			c.Next()
			return
		}
		token, _ := c.Value(ContextTokenKey).(string)
		ctx := actor.With(c.Request.Context(), actor.Actor{
			UserID:      claims.UserID,
			Role:        string(claims.Role),
			AccessToken: token,
			IPAddress:   c.ClientIP(),
			UserAgent:   c.GetHeader("User-Agent"),
		})
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
