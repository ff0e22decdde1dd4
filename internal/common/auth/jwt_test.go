package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"teleindex-backend/internal/common/config"
)

func newTestManager(t *testing.T, ttl time.Duration) *JWTManager {
	t.Helper()
	cfg := &config.Config{}
	cfg.Auth.JWTSecret = "test-secret-test-secret"
	cfg.Auth.TokenTTL = ttl

	m, err := NewJWTManager(cfg)
	require.NoError(t, err)
	return m
}

func TestGenerateAndValidateToken(t *testing.T) {
	m := newTestManager(t, time.Hour)

	token, err := m.GenerateToken("user-1", "admin@example.com", RoleAdmin)
	require.NoError(t, err)

	claims, err := m.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, "admin@example.com", claims.Email)
	assert.Equal(t, RoleAdmin, claims.Role)
}

func TestValidateTokenExpired(t *testing.T) {
	m := newTestManager(t, time.Minute)
	m.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	token, err := m.GenerateToken("user-1", "a@b.c", RoleEditor)
	require.NoError(t, err)

	m.now = time.Now
	_, err = m.ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateTokenWrongSecret(t *testing.T) {
	issuer := newTestManager(t, time.Hour)
	token, err := issuer.GenerateToken("user-1", "a@b.c", RoleAdmin)
	require.NoError(t, err)

	other := newTestManager(t, time.Hour)
	other.secret = []byte("another-secret-value")
	_, err = other.ValidateToken(token)
	assert.Error(t, err)
}

func TestNewJWTManagerRequiresSecret(t *testing.T) {
	_, err := NewJWTManager(&config.Config{})
	assert.Error(t, err)
}

func TestIsValidRole(t *testing.T) {
	assert.True(t, IsValidRole(RoleAdmin))
	assert.True(t, IsValidRole(RoleViewer))
	assert.False(t, IsValidRole("owner"))
}
