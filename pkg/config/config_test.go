package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, BackendMemory, cfg.Store.Backend)
	assert.Equal(t, "lms", cfg.Store.KeyPrefix)
	assert.Equal(t, 5*time.Second, cfg.Store.RefreshInterval)
	assert.Equal(t, 5*time.Minute, cfg.Dashboard.CacheTTL)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("STORE_BACKEND", "Redis")
	t.Setenv("STORE_REFRESH_INTERVAL", "750ms")
	t.Setenv("ALLOWED_ORIGINS", "http://a.test, http://b.test ,")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, BackendRedis, cfg.Store.Backend)
	assert.Equal(t, 750*time.Millisecond, cfg.Store.RefreshInterval)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORS.AllowedOrigins)
}

func TestParseDurationFallback(t *testing.T) {
	assert.Equal(t, time.Minute, parseDuration("", time.Minute))
	assert.Equal(t, time.Minute, parseDuration("soon", time.Minute))
	assert.Equal(t, 2*time.Second, parseDuration("2s", time.Minute))
}

func TestStoreLocation(t *testing.T) {
	assert.Equal(t, time.Local, StoreConfig{}.Location())
	assert.Equal(t, time.Local, StoreConfig{StreakTimezone: "Not/AZone"}.Location())
	assert.Equal(t, "UTC", StoreConfig{StreakTimezone: "UTC"}.Location().String())
}
