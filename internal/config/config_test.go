package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaults(t *testing.T) {
	cfg := NewDefaultConfig()
	assert.Equal(t, ":1111", cfg.Addr)
	assert.Equal(t, "data", cfg.DataDir)
	assert.True(t, cfg.EnableBackups)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SHOPFRONT_ADDR", ":9999")
	t.Setenv("SHOPFRONT_DATA_DIR", "/tmp/shopdata")
	t.Setenv("SHOPFRONT_ENABLE_BACKUPS", "false")
	t.Setenv("SHOPFRONT_SESSION_TTL", "30m")

	cfg := NewDefaultConfig()
	applyEnvConfig(&cfg)

	assert.Equal(t, ":9999", cfg.Addr)
	assert.Equal(t, "/tmp/shopdata", cfg.DataDir)
	assert.False(t, cfg.EnableBackups)
	assert.Equal(t, 30*time.Minute, cfg.SessionTTL)
}

func TestInvalidEnvValuesKeepDefaults(t *testing.T) {
	t.Setenv("SHOPFRONT_SESSION_TTL", "not-a-duration")
	t.Setenv("SHOPFRONT_ENABLE_BACKUPS", "maybe")

	cfg := NewDefaultConfig()
	applyEnvConfig(&cfg)

	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.True(t, cfg.EnableBackups)
}
