package fakes

import (
	"context"
	"fmt"
	"sync"

	"github.com/systmms/opscreds/pkg/inventory"
)

// FakeInventory is a manual fake implementation of inventory.Provider.
//
// Servers added with WithServers belong to team "ops" unless a full entry is
// given with WithServer. Calls are counted per method.
type FakeInventory struct {
	name     string
	enrolled bool

	servers  []inventory.Server
	accounts []inventory.Account

	// Behavior control
	failOn    map[string]error // method -> error to return
	callCount map[string]int

	mu sync.RWMutex
}

// NewFakeInventory creates an enrolled, empty inventory.
func NewFakeInventory(name string) *FakeInventory {
	return &FakeInventory{
		name:      name,
		enrolled:  true,
		failOn:    make(map[string]error),
		callCount: make(map[string]int),
	}
}

// WithServers adds servers with the given hostnames.
func (f *FakeInventory) WithServers(hostnames ...string) *FakeInventory {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, h := range hostnames {
		n := len(f.servers) + 1
		f.servers = append(f.servers, inventory.Server{
			ID:            fmt.Sprintf("srv-%d", n),
			Hostname:      h,
			ProjectName:   h,
			TeamName:      "ops",
			AccessAddress: fmt.Sprintf("10.0.0.%d", n),
		})
	}
	return f
}

// WithServer adds a fully described server.
func (f *FakeInventory) WithServer(s inventory.Server) *FakeInventory {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.servers = append(f.servers, s)
	return f
}

// WithAccount adds the user's account on team.
func (f *FakeInventory) WithAccount(team, username string) *FakeInventory {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accounts = append(f.accounts, inventory.Account{Account: team, Username: username, Status: "ACTIVE"})
	return f
}

// WithEnrolled controls IsEnrolled.
func (f *FakeInventory) WithEnrolled(enrolled bool) *FakeInventory {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.enrolled = enrolled
	return f
}

// WithError makes method ("ListServers", "ListAccounts", "IsEnrolled") fail.
func (f *FakeInventory) WithError(method string, err error) *FakeInventory {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failOn[method] = err
	return f
}

// CallCount returns how often method was called.
func (f *FakeInventory) CallCount(method string) int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.callCount[method]
}

func (f *FakeInventory) Name() string { return f.name }

func (f *FakeInventory) EnrollCommand() string { return "sft enroll" }

func (f *FakeInventory) IsEnrolled(ctx context.Context) (bool, error) {
	if err := f.record(ctx, "IsEnrolled"); err != nil {
		return false, err
	}

	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.enrolled, nil
}

func (f *FakeInventory) ListServers(ctx context.Context) ([]inventory.Server, error) {
	if err := f.record(ctx, "ListServers"); err != nil {
		return nil, err
	}

	f.mu.RLock()
	defer f.mu.RUnlock()
	return append([]inventory.Server{}, f.servers...), nil
}

func (f *FakeInventory) ListAccounts(ctx context.Context) ([]inventory.Account, error) {
	if err := f.record(ctx, "ListAccounts"); err != nil {
		return nil, err
	}

	f.mu.RLock()
	defer f.mu.RUnlock()
	return append([]inventory.Account{}, f.accounts...), nil
}

func (f *FakeInventory) record(ctx context.Context, method string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.callCount[method]++
	if err := ctx.Err(); err != nil {
		return err
	}
	return f.failOn[method]
}

var _ inventory.Provider = (*FakeInventory)(nil)
