package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systmms/opscreds/internal/logging"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "opscreds.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestConfig_MissingDefaultFileUsesDefaults(t *testing.T) {
	t.Parallel()

	cfg := &Config{
		Path:   filepath.Join(t.TempDir(), "opscreds.yaml"),
		Logger: logging.New(false, true),
	}

	require.NoError(t, cfg.Load())
	require.NotNil(t, cfg.Definition)
	assert.Equal(t, "asa", cfg.Definition.Inventory.Type)
	assert.Equal(t, "file", cfg.Definition.Store.Type)
	assert.NotEmpty(t, cfg.Definition.Store.Path)
}

func TestConfig_MissingExplicitFile(t *testing.T) {
	t.Parallel()

	cfg := &Config{
		Path:     "/nonexistent/path/to/opscreds.yaml",
		Explicit: true,
		Logger:   logging.New(false, true),
	}

	err := cfg.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "configuration file not found")
}

func TestConfig_InvalidYAML(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "version: 0\ninventory:\n  type: asa\n  bad syntax here [[[\n")
	cfg := &Config{Path: path, Explicit: true}

	err := cfg.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid YAML syntax")
}

func TestConfig_UnsupportedVersion(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "version: 2\n")
	cfg := &Config{Path: path, Explicit: true}

	err := cfg.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported configuration version")
}

func TestConfig_UnsupportedStore(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "version: 0\nstore:\n  type: s3\n")
	cfg := &Config{Path: path, Explicit: true}

	err := cfg.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.type")
}

func TestConfig_FullDefinition(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `version: 0
inventory:
  type: static
  path: servers.yaml
  timeout_ms: 5000
store:
  type: keyring
metrics:
  textfile: /tmp/opscreds.prom
`)
	cfg := &Config{Path: path, Explicit: true}

	require.NoError(t, cfg.Load())
	def := cfg.Definition
	assert.Equal(t, "static", def.Inventory.Type)
	assert.Equal(t, "servers.yaml", def.Inventory.String("path", ""))
	assert.Equal(t, "fallback", def.Inventory.String("missing", "fallback"))
	assert.Equal(t, 5000, def.Inventory.GetInventoryTimeout())
	assert.Equal(t, "keyring", def.Store.Type)
	assert.Equal(t, StoreName, def.Store.Service)
	assert.Equal(t, "/tmp/opscreds.prom", def.Metrics.Textfile)
}

func TestInventoryTimeoutDefault(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 30000, InventoryConfig{}.GetInventoryTimeout())
}

func TestExpandHome(t *testing.T) {
	t.Parallel()

	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, ".config", "x.json"), ExpandHome("~/.config/x.json"))
	assert.Equal(t, "/etc/opscreds.json", ExpandHome("/etc/opscreds.json"))
	assert.Equal(t, "relative/path", ExpandHome("relative/path"))
}
