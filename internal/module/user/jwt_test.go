package user

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultJWTConfig(t *testing.T) {
	config := DefaultJWTConfig()
	assert.Equal(t, 24*time.Hour, config.AccessTokenExpiry)
	assert.Equal(t, "capecontrol", config.Issuer)
}

func TestJWTManager_GenerateAccessToken(t *testing.T) {
	manager := NewJWTManager(&JWTConfig{
		Secret:            "test-secret-key-that-is-long-enough",
		AccessTokenExpiry: 15 * time.Minute,
		Issuer:            "test",
	})

	u := &User{
		ID:    uuid.New(),
		Email: "test@example.com",
		Name:  "Test User",
	}

	token, expiresAt, err := manager.GenerateAccessToken(u)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.True(t, expiresAt.After(time.Now()))
	assert.True(t, expiresAt.Before(time.Now().Add(16*time.Minute)))
}

func TestJWTManager_ValidateAccessToken(t *testing.T) {
	config := &JWTConfig{
		Secret:            "test-secret-key-that-is-long-enough",
		AccessTokenExpiry: 15 * time.Minute,
		Issuer:            "test",
	}
	manager := NewJWTManager(config)

	u := &User{
		ID:    uuid.New(),
		Email: "test@example.com",
		Name:  "Test User",
	}

	t.Run("validates valid token", func(t *testing.T) {
		token, _, err := manager.GenerateAccessToken(u)
		require.NoError(t, err)

		claims, err := manager.ValidateAccessToken(token)
		require.NoError(t, err)
		assert.Equal(t, u.ID, claims.UserID)
		assert.Equal(t, u.Email, claims.Email)
	})

	t.Run("rejects garbage token", func(t *testing.T) {
		_, err := manager.ValidateAccessToken("not.a.token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("rejects token signed with a different secret", func(t *testing.T) {
		other := NewJWTManager(&JWTConfig{
			Secret:            "a-completely-different-secret-key",
			AccessTokenExpiry: 15 * time.Minute,
			Issuer:            "test",
		})
		token, _, err := other.GenerateAccessToken(u)
		require.NoError(t, err)

		_, err = manager.ValidateAccessToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("rejects expired token", func(t *testing.T) {
		expired := NewJWTManager(&JWTConfig{
			Secret:            config.Secret,
			AccessTokenExpiry: -time.Minute,
			Issuer:            "test",
		})
		token, _, err := expired.GenerateAccessToken(u)
		require.NoError(t, err)

		_, err = manager.ValidateAccessToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}
