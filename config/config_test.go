package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SECRET_KEY", "")
	t.Setenv("PORT", "")
	t.Setenv("DATABASE_PATH", "/tmp/checked-test.db")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8000, cfg.Port)
	assert.Equal(t, "ChessKenya", cfg.AppName)
	assert.Equal(t, "/tmp/checked-test.db", cfg.DatabasePath)
	assert.True(t, cfg.GeneratedSecret)
	assert.Len(t, cfg.SecretKey, 64)
	assert.True(t, cfg.AutoMigrate)
	assert.Equal(t, 5*time.Minute, cfg.AutomationInterval)
	assert.Equal(t, 30*time.Second, cfg.AutomationInitialDelay)
	assert.Equal(t, 7*24*time.Hour, cfg.TokenTTL())
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins())
	assert.False(t, cfg.SMSConfigured())
	assert.False(t, cfg.PushConfigured())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9100")
	t.Setenv("SECRET_KEY", "s3cret")
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("AUTO_MIGRATE", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Port)
	assert.Equal(t, "s3cret", cfg.SecretKey)
	assert.False(t, cfg.GeneratedSecret)
	assert.False(t, cfg.AutoMigrate)
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
	assert.Contains(t, cfg.AllowedOrigins(), "https://checked.co.ke")
}

func TestLoadRejectsBadPort(t *testing.T) {
	t.Setenv("PORT", "70000")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("PORT", "abc")
	_, err = Load()
	assert.Error(t, err)
}
