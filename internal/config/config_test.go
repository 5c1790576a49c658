package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	// Point REVERIE_CONFIG at a non-existent file so a developer's local
	// reverie.yaml cannot leak into the test.
	t.Setenv("REVERIE_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 7171, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Storage.Engine)
	assert.Equal(t, "ollama", cfg.LLM.Provider)
	assert.Equal(t, "development", cfg.Security.Mode)
	assert.Equal(t, DefaultTaskPause, cfg.Engine.TaskPause)
	assert.Equal(t, DefaultRecallTimeout, cfg.Engine.RecallTimeout)
	assert.Equal(t, DefaultDecayInterval, cfg.Engine.DecayInterval)
}

func TestLoadConfigFromYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "reverie.yaml")
	yaml := `
server:
  port: 9999
storage:
  engine: postgres
  postgres_dsn: postgres://localhost/reverie?sslmode=disable
engine:
  recall_timeout: 2s
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))
	t.Setenv("REVERIE_CONFIG", path)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Storage.Engine)
	assert.Equal(t, "postgres://localhost/reverie?sslmode=disable", cfg.Storage.PostgresDSN)
	assert.Equal(t, 2*time.Second, cfg.Engine.RecallTimeout)
	// Unset file values keep their defaults.
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
}

func TestEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "reverie.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 9999\n"), 0o644))

	t.Setenv("REVERIE_CONFIG", path)
	t.Setenv("REVERIE_PORT", "4242")
	t.Setenv("REVERIE_LLM_PROVIDER", "anthropic")
	t.Setenv("REVERIE_TASK_PAUSE", "250ms")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 4242, cfg.Server.Port)
	assert.Equal(t, "anthropic", cfg.LLM.Provider)
	assert.Equal(t, 250*time.Millisecond, cfg.Engine.TaskPause)
}

func TestLoadConfigMalformedYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "reverie.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [not a map"), 0o644))
	t.Setenv("REVERIE_CONFIG", path)

	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("REVERIE_TEST_INT", "not-a-number")
	assert.Equal(t, 7, getEnvInt("REVERIE_TEST_INT", 7))

	t.Setenv("REVERIE_TEST_DUR", "bogus")
	assert.Equal(t, time.Second, getEnvDuration("REVERIE_TEST_DUR", time.Second))

	assert.Equal(t, "fallback", getEnv("REVERIE_TEST_UNSET_KEY", "fallback"))
}
