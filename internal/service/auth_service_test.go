package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SIM-MBKM/mbkm-equivalence-api/internal/models"
	appErrors "github.com/SIM-MBKM/mbkm-equivalence-api/pkg/errors"
)

func signToken(t *testing.T, secret string, claims *models.JWTClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestValidateToken(t *testing.T) {
	svc := NewAuthService(AuthConfig{AccessTokenSecret: "secret"})
	token := signToken(t, "secret", &models.JWTClaims{
		UserID: "u1",
		Role:   models.RoleAdvisor,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, models.RoleAdvisor, claims.Role)
}

func TestValidateTokenFallsBackToSubject(t *testing.T) {
	svc := NewAuthService(AuthConfig{AccessTokenSecret: "secret"})
	token := signToken(t, "secret", &models.JWTClaims{
		Role:             models.RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{Subject: "admin-7"},
	})

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "admin-7", claims.UserID)
}

func TestValidateTokenRejectsWrongSecretAndExpiry(t *testing.T) {
	svc := NewAuthService(AuthConfig{AccessTokenSecret: "secret"})

	_, err := svc.ValidateToken(signToken(t, "other", &models.JWTClaims{UserID: "u1"}))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)

	expired := signToken(t, "secret", &models.JWTClaims{
		UserID:           "u1",
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute))},
	})
	_, err = svc.ValidateToken(expired)
	require.Error(t, err)
}

func TestValidateTokenChecksIssuer(t *testing.T) {
	svc := NewAuthService(AuthConfig{AccessTokenSecret: "secret", Issuer: "sim-mbkm"})

	_, err := svc.ValidateToken(signToken(t, "secret", &models.JWTClaims{
		UserID:           "u1",
		RegisteredClaims: jwt.RegisteredClaims{Issuer: "someone-else"},
	}))
	require.Error(t, err)

	claims, err := svc.ValidateToken(signToken(t, "secret", &models.JWTClaims{
		UserID:           "u1",
		RegisteredClaims: jwt.RegisteredClaims{Issuer: "sim-mbkm"},
	}))
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
}
