package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/prontivus/prontivus/internal/testing/guard"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "unit-test-secret")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "development", cfg.AppEnv)
	assert.Equal(t, ":8080", cfg.AppAddr)
	assert.Equal(t, "memory", cfg.AuthzCacheBackend)
	assert.Equal(t, 5*time.Minute, cfg.AuthzCacheTTL)
	assert.Equal(t, 256, cfg.AuthzCacheSize)
	assert.False(t, cfg.AuthzTrustClaims)
	assert.False(t, cfg.MenuKeepEmptyGroups)
	assert.Equal(t, 10, cfg.LoginRateLimit)
	assert.Equal(t, time.Minute, cfg.LoginRateWindow)
	assert.False(t, cfg.IsProduction())
}

func TestLoadConfigRequiresJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestLoadConfigRejectsUnknownCacheBackend(t *testing.T) {
	t.Setenv("JWT_SECRET", "unit-test-secret")
	t.Setenv("AUTHZ_CACHE_BACKEND", "memcached")

	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "unit-test-secret")
	t.Setenv("APP_ENV", "production")
	t.Setenv("AUTHZ_CACHE_BACKEND", "redis")
	t.Setenv("AUTHZ_TRUST_CLAIMS", "true")
	t.Setenv("JWT_ACCESS_TTL", "10m")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "redis", cfg.AuthzCacheBackend)
	assert.True(t, cfg.AuthzTrustClaims)
	assert.Equal(t, 10*time.Minute, cfg.JWTAccessTTL)
}
