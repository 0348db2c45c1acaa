package providers

import (
	"fmt"
	"sort"
	"time"

	"github.com/systmms/opscreds/internal/config"
	"github.com/systmms/opscreds/internal/logging"
	pkgexec "github.com/systmms/opscreds/pkg/exec"
	"github.com/systmms/opscreds/pkg/inventory"
)

// Registry manages inventory provider creation and registration
type Registry struct {
	factories map[string]ProviderFactory
	executor  pkgexec.CommandExecutor
	logger    *logging.Logger
}

// ProviderFactory creates a provider instance from configuration
type ProviderFactory func(cfg config.InventoryConfig, executor pkgexec.CommandExecutor, logger *logging.Logger) (inventory.Provider, error)

// NewRegistry creates a new provider registry with built-in providers
func NewRegistry(executor pkgexec.CommandExecutor, logger *logging.Logger) *Registry {
	if executor == nil {
		executor = pkgexec.DefaultExecutor()
	}
	registry := &Registry{
		factories: make(map[string]ProviderFactory),
		executor:  executor,
		logger:    logger,
	}

	registry.RegisterFactory("asa", NewASAProviderFactory)
	registry.RegisterFactory("static", NewStaticProviderFactory)

	return registry
}

// RegisterFactory registers a provider factory for a given type
func (r *Registry) RegisterFactory(providerType string, factory ProviderFactory) {
	r.factories[providerType] = factory
}

// CreateProvider creates the inventory provider described by cfg
func (r *Registry) CreateProvider(cfg config.InventoryConfig) (inventory.Provider, error) {
	factory, exists := r.factories[cfg.Type]
	if !exists {
		return nil, fmt.Errorf("unknown inventory type: %s", cfg.Type)
	}

	return factory(cfg, r.executor, r.logger)
}

// GetSupportedTypes returns the supported provider types, sorted
func (r *Registry) GetSupportedTypes() []string {
	types := make([]string, 0, len(r.factories))
	for providerType := range r.factories {
		types = append(types, providerType)
	}
	sort.Strings(types)
	return types
}

// IsSupported checks if a provider type is supported
func (r *Registry) IsSupported(providerType string) bool {
	_, exists := r.factories[providerType]
	return exists
}

// NewASAProviderFactory creates an ASA provider from configuration
func NewASAProviderFactory(cfg config.InventoryConfig, executor pkgexec.CommandExecutor, logger *logging.Logger) (inventory.Provider, error) {
	return NewASAProviderWithExecutor(ASAConfig{
		SftPath: cfg.String("sft_path", "sft"),
		Timeout: time.Duration(cfg.GetInventoryTimeout()) * time.Millisecond,
	}, logger, executor), nil
}

// NewStaticProviderFactory creates a static provider from configuration
func NewStaticProviderFactory(cfg config.InventoryConfig, _ pkgexec.CommandExecutor, _ *logging.Logger) (inventory.Provider, error) {
	path := cfg.String("path", "")
	if path == "" {
		return nil, fmt.Errorf("missing required 'path' field for static inventory")
	}
	return NewStaticProvider(cfg.String("name", "static"), config.ExpandHome(path)), nil
}
