package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Server.LogLevel)
	assert.Equal(t, "local", cfg.Storage.Backend)
	assert.Equal(t, "./data", cfg.Storage.DataDir)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("STUDYCORE_SERVER_PORT", "9191")
	t.Setenv("STUDYCORE_SERVER_LOG_LEVEL", "debug")
	t.Setenv("STUDYCORE_STORAGE_DATA_DIR", "/var/lib/studycore")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9191, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Server.LogLevel)
	assert.Equal(t, "/var/lib/studycore", cfg.Storage.DataDir)
}

func TestLoadRejectsInvalidLogLevel(t *testing.T) {
	t.Setenv("STUDYCORE_SERVER_LOG_LEVEL", "verbose")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validating config")
}

func TestLoadRejectsInvalidPort(t *testing.T) {
	t.Setenv("STUDYCORE_SERVER_PORT", "0")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validating config")
}

func TestLoadPostgresBackendRequiresURL(t *testing.T) {
	t.Setenv("STUDYCORE_STORAGE_BACKEND", "postgres")

	_, err := Load()
	require.Error(t, err, "postgres backend without a database URL must not validate")
}
