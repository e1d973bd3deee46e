package jwt

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidateAccessToken(t *testing.T) {
	service := NewService("test-secret-key-1234567890", time.Hour)

	adminID := uuid.New()
	tokenString, expiresAt, err := service.GenerateAccessToken(adminID, "manager", "admin")
	require.NoError(t, err)
	assert.NotEmpty(t, tokenString)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	claims, err := service.ValidateAccessToken(tokenString)
	require.NoError(t, err)
	assert.Equal(t, adminID, claims.AdminID)
	assert.Equal(t, "manager", claims.Username)
	assert.Equal(t, "admin", claims.Role)
	assert.Equal(t, adminID.String(), claims.Subject)
	assert.Equal(t, "safework-qr-registration", claims.Issuer)
}

func TestValidateAccessTokenWrongSecret(t *testing.T) {
	service := NewService("test-secret-key-1234567890", time.Hour)
	other := NewService("a-completely-different-secret", time.Hour)

	tokenString, _, err := other.GenerateAccessToken(uuid.New(), "manager", "admin")
	require.NoError(t, err)

	claims, err := service.ValidateAccessToken(tokenString)
	assert.Error(t, err)
	assert.Nil(t, claims)
}

func TestValidateAccessTokenExpired(t *testing.T) {
	service := NewService("test-secret-key-1234567890", -time.Minute)

	tokenString, _, err := service.GenerateAccessToken(uuid.New(), "manager", "admin")
	require.NoError(t, err)

	claims, err := service.ValidateAccessToken(tokenString)
	assert.Error(t, err)
	assert.Nil(t, claims)
}

func TestValidateAccessTokenGarbage(t *testing.T) {
	service := NewService("test-secret-key-1234567890", time.Hour)

	claims, err := service.ValidateAccessToken("not.a.token")
	assert.Error(t, err)
	assert.Nil(t, claims)
}
