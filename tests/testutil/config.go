// Package testutil provides test utilities and helpers for opscreds tests.
//
// This package contains shared test infrastructure including the mock
// command executor, configuration builders, logger capture and assertions.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/systmms/opscreds/internal/config"
)

// TestConfigBuilder provides a fluent API for writing opscreds.yaml files in tests.
//
// Example usage:
//
//	path := NewTestConfig(t).
//	    WithStaticInventory(inventoryPath).
//	    WithFileStore("").
//	    Write()
type TestConfigBuilder struct {
	t       *testing.T
	dir     string
	def     *config.Definition
}

// NewTestConfig starts from version 0 with the asa inventory and a file
// store inside the test's temporary directory.
func NewTestConfig(t *testing.T) *TestConfigBuilder {
	t.Helper()

	dir := t.TempDir()
	return &TestConfigBuilder{
		t:   t,
		dir: dir,
		def: &config.Definition{
			Version:   0,
			Inventory: config.InventoryConfig{Type: "asa", Config: map[string]interface{}{}},
			Store: config.StoreConfig{
				Type: "file",
				Path: filepath.Join(dir, "configstore", config.StoreName+".json"),
			},
		},
	}
}

// Dir returns the temporary directory holding the generated files.
func (b *TestConfigBuilder) Dir() string {
	return b.dir
}

// WithInventory selects the inventory provider and its settings.
func (b *TestConfigBuilder) WithInventory(providerType string, cfg map[string]interface{}) *TestConfigBuilder {
	if cfg == nil {
		cfg = map[string]interface{}{}
	}
	b.def.Inventory = config.InventoryConfig{Type: providerType, Config: cfg}
	return b
}

// WithStaticInventory selects the static provider reading path.
func (b *TestConfigBuilder) WithStaticInventory(path string) *TestConfigBuilder {
	return b.WithInventory("static", map[string]interface{}{"path": path})
}

// WithFileStore selects the file store. An empty path keeps the temporary default.
func (b *TestConfigBuilder) WithFileStore(path string) *TestConfigBuilder {
	b.def.Store.Type = "file"
	if path != "" {
		b.def.Store.Path = path
	}
	return b
}

// WithMetricsTextfile enables the metrics textfile export at path.
func (b *TestConfigBuilder) WithMetricsTextfile(path string) *TestConfigBuilder {
	b.def.Metrics.Textfile = path
	return b
}

// Build returns the definition as configured.
func (b *TestConfigBuilder) Build() *config.Definition {
	return b.def
}

// Write marshals the definition to opscreds.yaml in the temporary directory
// and returns its path.
func (b *TestConfigBuilder) Write() string {
	b.t.Helper()

	data, err := yaml.Marshal(b.def)
	if err != nil {
		b.t.Fatalf("Failed to marshal config: %v", err)
	}

	path := filepath.Join(b.dir, config.DefaultPath)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		b.t.Fatalf("Failed to write config file: %v", err)
	}

	return path
}

// WriteFile writes body to name inside the temporary directory and returns its path.
func (b *TestConfigBuilder) WriteFile(name, body string) string {
	b.t.Helper()

	path := filepath.Join(b.dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		b.t.Fatalf("Failed to create directory for %s: %v", name, err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		b.t.Fatalf("Failed to write %s: %v", name, err)
	}
	return path
}
