package providers

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	operrors "github.com/systmms/opscreds/internal/errors"
	"github.com/systmms/opscreds/pkg/inventory"
)

// StaticInventory is the document read by the static provider:
//
//	servers:
//	  - hostname: internal-acme-staging-web-03
//	    project_name: acme
//	    team_name: ops
//	    access_address: 10.0.0.3
//	accounts:
//	  - account: ops
//	    username: jdoe
//	    status: ACTIVE
type StaticInventory struct {
	Servers  []inventory.Server  `yaml:"servers"`
	Accounts []inventory.Account `yaml:"accounts"`
}

// StaticProvider serves an inventory kept in a local YAML file.
type StaticProvider struct {
	name string
	path string

	mu  sync.Mutex
	doc *StaticInventory
}

// NewStaticProvider creates a provider reading path on first use.
func NewStaticProvider(name, path string) *StaticProvider {
	if name == "" {
		name = "static"
	}
	return &StaticProvider{name: name, path: path}
}

// NewStaticProviderFromInventory creates a provider serving doc directly.
func NewStaticProviderFromInventory(name string, doc StaticInventory) *StaticProvider {
	p := NewStaticProvider(name, "")
	p.doc = &doc
	return p
}

func (p *StaticProvider) Name() string {
	return p.name
}

func (p *StaticProvider) EnrollCommand() string {
	return fmt.Sprintf("create the inventory file %s", p.path)
}

// IsEnrolled reports whether the inventory file exists.
func (p *StaticProvider) IsEnrolled(ctx context.Context) (bool, error) {
	_, err := p.load(ctx)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (p *StaticProvider) ListServers(ctx context.Context) ([]inventory.Server, error) {
	doc, err := p.load(ctx)
	if err != nil {
		return nil, err
	}
	return doc.Servers, nil
}

func (p *StaticProvider) ListAccounts(ctx context.Context) ([]inventory.Account, error) {
	doc, err := p.load(ctx)
	if err != nil {
		return nil, err
	}
	return doc.Accounts, nil
}

func (p *StaticProvider) load(ctx context.Context) (*StaticInventory, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.doc != nil {
		return p.doc, nil
	}

	data, err := os.ReadFile(p.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		return nil, operrors.ProviderError("static", "load", err)
	}

	var doc StaticInventory
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, operrors.ConfigError{
			Field:      "inventory.path",
			Value:      p.path,
			Message:    fmt.Sprintf("invalid static inventory: %v", err),
			Suggestion: "The file must contain 'servers' and 'accounts' lists",
		}
	}
	if doc.Servers == nil {
		doc.Servers = []inventory.Server{}
	}
	if doc.Accounts == nil {
		doc.Accounts = []inventory.Account{}
	}

	p.doc = &doc
	return p.doc, nil
}
