package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadWithEnvFiles_Defaults(t *testing.T) {
	t.Setenv("SERVER_PORT", "")
	t.Setenv("BRIDGE_CONTEXT_PATH", "alfresco/")

	cfg, err := LoadWithEnvFiles(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "/alfresco", cfg.Bridge.ContextPath)
	assert.Equal(t, "/service", cfg.Bridge.ServicePath)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Address())
}

func TestLoadWithEnvFiles_ReadsDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("BRIDGE_RATE_LIMIT=5\nBRIDGE_RATE_BURST=0\n"), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("BRIDGE_RATE_LIMIT")
		os.Unsetenv("BRIDGE_RATE_BURST")
	})

	cfg, err := LoadWithEnvFiles(path)
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Bridge.RateLimit)
	assert.Equal(t, 5, cfg.Bridge.RateBurst)
}

func TestValidate(t *testing.T) {
	cfg := &Config{Server: ServerConfig{Port: 0}}
	assert.Error(t, cfg.Validate())

	cfg = &Config{Server: ServerConfig{Port: 80}, Bridge: BridgeConfig{ServicePath: "/"}}
	assert.EqualError(t, cfg.Validate(), "bridge service path is required")

	cfg = &Config{Server: ServerConfig{Port: 80}, Bridge: BridgeConfig{ServicePath: "svc", RateLimit: -1}}
	assert.Error(t, cfg.Validate())
}

func TestNormalizePath(t *testing.T) {
	cases := map[string]string{
		"":           "",
		"/":          "",
		"service":    "/service",
		"/service/":  "/service",
		" /a/b/ ":    "/a/b",
	}
	for in, want := range cases {
		assert.Equal(t, want, normalizePath(in), "input %q", in)
	}
}

func TestLoadScriptsConfigFromPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scripts.yaml")
	content := `
scripts:
  mvc:
    enabled: true
    extension: service.json
    servlet_name: repository
  legacy:
    enabled: false
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := LoadScriptsConfigFromPath(path)
	require.NoError(t, err)

	assert.True(t, cfg.IsEnabled("mvc"))
	assert.False(t, cfg.IsEnabled("legacy"))
	assert.False(t, cfg.IsEnabled("unknown"))
	assert.Equal(t, "repository", cfg.GetSettings("mvc").ServletName)
	assert.Equal(t, []string{"mvc"}, cfg.EnabledIDs())
}

func TestLoadScriptsConfigFromPath_RejectsNestedIDs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scripts.yaml")
	require.NoError(t, os.WriteFile(path, []byte("scripts:\n  a/b:\n    enabled: true\n"), 0o600))

	_, err := LoadScriptsConfigFromPath(path)
	assert.Error(t, err)
}

func TestLoadScriptsConfigOrDefault(t *testing.T) {
	cfg := LoadScriptsConfigOrDefault(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Equal(t, []string{"mvc"}, cfg.EnabledIDs())
	assert.Equal(t, "service.json", cfg.GetSettings("mvc").Extension)

	var nilCfg *ScriptsConfig
	assert.Nil(t, nilCfg.GetSettings("mvc"))
}
