package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("DB_PASSWORD", "pw")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 15*time.Minute, cfg.JWTAccessExpiry)
	assert.Equal(t, "collabhub:live", cfg.RedisChannel)
	assert.Empty(t, cfg.RedisURL)
	assert.Contains(t, cfg.DSN(), "password=pw")
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("JWT_ACCESS_EXPIRY", "1h")
	t.Setenv("LIVE_HEARTBEAT", "5s")
	t.Setenv("PORT", "9090")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, time.Hour, cfg.JWTAccessExpiry)
	assert.Equal(t, 5*time.Second, cfg.HeartbeatInterval)
	assert.Equal(t, "9090", cfg.Port)
}

func TestLoadRejectsBadDuration(t *testing.T) {
	t.Setenv("JWT_REFRESH_EXPIRY", "forever")

	_, err := Load()
	assert.Error(t, err)
}
