package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/SIM-MBKM/mbkm-equivalence-api/internal/middleware"
	"github.com/SIM-MBKM/mbkm-equivalence-api/internal/models"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

// operatorID identifies whose session a request addresses; empty when unauthenticated.
func operatorID(c *gin.Context) string {
	if claims := claimsFromContext(c); claims != nil {
		return claims.UserID
	}
	return ""
}
