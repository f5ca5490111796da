package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, ":8000", cfg.Server.Addr)
	assert.Equal(t, "Shanghai", cfg.Demo.City)
	assert.Equal(t, 120, cfg.Gateway.TimeoutSeconds)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
debug = true

[server]
addr = ":9000"

[gateway]
base_url = "http://agent:8000"
timeout_seconds = 30

[demo]
city = "Tokyo"
model = "llama3-8b"
platform = "DeepInfra"
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.True(t, cfg.Debug)
	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, "http://agent:8000", cfg.Gateway.BaseURL)
	assert.Equal(t, 30, cfg.Gateway.TimeoutSeconds)
	assert.Equal(t, "Tokyo", cfg.Demo.City)
	// Unset file keys keep their defaults.
	assert.Equal(t, "agent_move_v6", cfg.Demo.PromptType)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "7070")
	t.Setenv("GATEWAY_URL", "http://localhost:9999")
	t.Setenv("DEMO_CITY", "Beijing")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.Server.Addr)
	assert.Equal(t, "http://localhost:9999", cfg.Gateway.BaseURL)
	assert.Equal(t, "Beijing", cfg.Demo.City)
}

func TestLoadBadTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("not = [valid"), 0o644))
	_, err := Load(path)
	require.Error(t, err)
}
