package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/SIM-MBKM/mbkm-equivalence-api/internal/models"
	appErrors "github.com/SIM-MBKM/mbkm-equivalence-api/pkg/errors"
	"github.com/SIM-MBKM/mbkm-equivalence-api/pkg/response"
)

// Context keys populated by JWT.
const (
	ContextUserKey  = "currentUser"
	ContextTokenKey = "accessToken"
)

// TokenValidator verifies bearer tokens.
type TokenValidator interface {
	ValidateToken(token string) (*models.JWTClaims, error)
}

// JWT protects routes by requiring a valid access token. The raw token is kept on the
// context so downstream calls can be made on the operator's behalf.
func JWT(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "missing or malformed bearer token"))
			c.Abort()
			return
		}

		claims, err := validator.ValidateToken(token)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Set(ContextUserKey, claims)
		c.Set(ContextTokenKey, token)
		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}
