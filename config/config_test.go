package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("FLEXGE_API_KEY", "fx-key")
	t.Setenv("NOTION_TOKEN", "secret_abc")
	t.Setenv("NOTION_DATABASE_ID", "db-123")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, EnvDevelopment, cfg.App.Environment)
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, 10*time.Minute, cfg.Scheduler.SyncInterval)
	assert.Equal(t, "0 2 * * 1", cfg.Scheduler.WeeklyResetCron)
	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.Equal(t, "json", cfg.Observability.LogFormat)
}

func TestLoadRejectsMissingCredentials(t *testing.T) {
	t.Setenv("FLEXGE_API_KEY", "")
	t.Setenv("NOTION_TOKEN", "")
	t.Setenv("NOTION_DATABASE_ID", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "FLEXGE_API_KEY")
	assert.Contains(t, err.Error(), "NOTION_TOKEN")
	assert.Contains(t, err.Error(), "NOTION_DATABASE_ID")
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("APP_ENV", "production")
	t.Setenv("HTTP_API_KEYS", "key-a, key-b")
	t.Setenv("SCHEDULER_SYNC_INTERVAL", "5m")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, []string{"key-a", "key-b"}, cfg.HTTP.APIKeys)
	assert.Equal(t, 5*time.Minute, cfg.Scheduler.SyncInterval)
	assert.Equal(t, "debug", cfg.Observability.LogLevel)
}

func TestProductionRequiresHTTPAPIKeys(t *testing.T) {
	setRequired(t)
	t.Setenv("APP_ENV", "production")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP_API_KEYS")
}

func TestInvalidValuesFallBackToDefaults(t *testing.T) {
	setRequired(t)
	t.Setenv("SCHEDULER_SYNC_INTERVAL", "not-a-duration")
	t.Setenv("HTTP_PORT", "not-a-port")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 10*time.Minute, cfg.Scheduler.SyncInterval)
	assert.Equal(t, 8080, cfg.HTTP.Port)
}
