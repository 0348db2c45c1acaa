package config

import (
	"os"
	"path/filepath"
	"strings"

	operrors "github.com/systmms/opscreds/internal/errors"
	"github.com/systmms/opscreds/internal/logging"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultPath is the config file looked up when --config is not given
	DefaultPath = "opscreds.yaml"

	// StoreName names the configstore document and the keyring service
	StoreName = "opscreds"

	// MachineIDEnv overrides the machine identity used to derive the local secret
	MachineIDEnv = "OPSCREDS_MACHINE_ID"

	// DBPasswordEnv supplies the database password to the database commands
	DBPasswordEnv = "OPSCREDS_DB_PASSWORD"
)

// Config holds the runtime configuration
type Config struct {
	Path           string
	Explicit       bool // Path was given on the command line
	Logger         *logging.Logger
	NonInteractive bool
	Definition     *Definition
}

// Definition represents the opscreds.yaml structure
type Definition struct {
	Version   int             `yaml:"version"`
	Inventory InventoryConfig `yaml:"inventory"`
	Store     StoreConfig     `yaml:"store"`
	Metrics   MetricsConfig   `yaml:"metrics,omitempty"`
}

// InventoryConfig selects the server inventory provider
type InventoryConfig struct {
	Type      string                 `yaml:"type"`
	TimeoutMs int                    `yaml:"timeout_ms,omitempty"`
	Config    map[string]interface{} `yaml:",inline"`
}

// StoreConfig selects where encrypted credentials are persisted
type StoreConfig struct {
	Type    string `yaml:"type"`
	Path    string `yaml:"path,omitempty"`
	Service string `yaml:"service,omitempty"`
}

// MetricsConfig controls the Prometheus textfile export
type MetricsConfig struct {
	Textfile string `yaml:"textfile,omitempty"`
}

// Defaults returns the definition used when no config file exists
func Defaults() *Definition {
	return &Definition{
		Version:   0,
		Inventory: InventoryConfig{Type: "asa"},
		Store: StoreConfig{
			Type:    "file",
			Path:    DefaultStorePath(),
			Service: StoreName,
		},
	}
}

// DefaultStorePath returns the configstore-compatible location of the credentials file
func DefaultStorePath() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "configstore", StoreName+".json")
	}

	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".config", "configstore", StoreName+".json")
	}

	return filepath.Join(os.TempDir(), StoreName, StoreName+".json")
}

// Load reads and parses the opscreds.yaml file.
// A missing file is only an error when the path was given explicitly.
func (c *Config) Load() error {
	data, err := os.ReadFile(c.Path)
	if err != nil {
		if os.IsNotExist(err) {
			if !c.Explicit {
				c.Definition = Defaults()
				return nil
			}
			return operrors.ConfigError{
				Field:      "path",
				Value:      c.Path,
				Message:    "configuration file not found",
				Suggestion: "Check the --config flag or omit it to use the built-in defaults",
			}
		}
		return operrors.UserError{
			Message:    "Failed to read configuration file",
			Details:    err.Error(),
			Suggestion: "Check file permissions and path",
			Err:        err,
		}
	}

	def := Defaults()
	if err := yaml.Unmarshal(data, def); err != nil {
		return operrors.ConfigError{
			Message:    "invalid YAML syntax in configuration file",
			Suggestion: "Check for indentation errors, missing quotes, or invalid characters. Use a YAML validator",
		}
	}

	if def.Version != 0 {
		return operrors.ConfigError{
			Field:      "version",
			Value:      def.Version,
			Message:    "unsupported configuration version",
			Suggestion: "Set 'version: 0' at the top of your opscreds.yaml file",
		}
	}

	if err := def.normalize(); err != nil {
		return err
	}

	c.Definition = def
	return nil
}

// normalize fills in defaults and validates the store section
func (d *Definition) normalize() error {
	if d.Inventory.Type == "" {
		d.Inventory.Type = "asa"
	}

	switch d.Store.Type {
	case "", "file":
		d.Store.Type = "file"
		if d.Store.Path == "" {
			d.Store.Path = DefaultStorePath()
		}
		d.Store.Path = ExpandHome(d.Store.Path)
	case "keyring":
		if d.Store.Service == "" {
			d.Store.Service = StoreName
		}
	default:
		return operrors.ConfigError{
			Field:      "store.type",
			Value:      d.Store.Type,
			Message:    "unsupported credential store",
			Suggestion: "Use 'file' or 'keyring'",
		}
	}

	if d.Metrics.Textfile != "" {
		d.Metrics.Textfile = ExpandHome(d.Metrics.Textfile)
	}

	return nil
}

// GetInventoryTimeout returns the timeout for inventory calls in milliseconds
func (i InventoryConfig) GetInventoryTimeout() int {
	if i.TimeoutMs <= 0 {
		return 30000 // Default 30 seconds
	}
	return i.TimeoutMs
}

// String returns a config value or the fallback when missing or not a string
func (i InventoryConfig) String(key, fallback string) string {
	if v, ok := i.Config[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

// ExpandHome resolves a leading ~/ against the user's home directory
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
