package inventory

import (
	"context"
	"testing"
)

// ContractTest defines a standard test suite that all inventory providers must pass
type ContractTest struct {
	// CreateProvider returns an enrolled provider seeded with the expected entries
	CreateProvider func(t *testing.T) Provider

	// Hostnames that ListServers must return
	Hostnames []string

	// Teams that ListAccounts must return an account for
	Teams []string
}

// RunContractTests runs the standard provider contract test suite
func RunContractTests(t *testing.T, contract ContractTest) {
	t.Run("Contract", func(t *testing.T) {
		t.Run("Name", func(t *testing.T) {
			p := contract.CreateProvider(t)
			if p.Name() == "" {
				t.Error("provider name must not be empty")
			}
			if p.EnrollCommand() == "" {
				t.Error("enroll command must not be empty")
			}
		})

		t.Run("IsEnrolled", func(t *testing.T) {
			p := contract.CreateProvider(t)
			ok, err := p.IsEnrolled(context.Background())
			if err != nil {
				t.Fatalf("IsEnrolled failed: %v", err)
			}
			if !ok {
				t.Error("expected provider to be enrolled")
			}
			if err := EnsureEnrolled(context.Background(), p); err != nil {
				t.Errorf("EnsureEnrolled failed: %v", err)
			}
		})

		t.Run("ListServers", func(t *testing.T) {
			p := contract.CreateProvider(t)
			servers, err := p.ListServers(context.Background())
			if err != nil {
				t.Fatalf("ListServers failed: %v", err)
			}
			for _, hostname := range contract.Hostnames {
				if _, ok := FindServer(servers, hostname); !ok {
					t.Errorf("expected server %q in %v", hostname, Hostnames(servers))
				}
			}
		})

		t.Run("ListAccounts", func(t *testing.T) {
			p := contract.CreateProvider(t)
			accounts, err := p.ListAccounts(context.Background())
			if err != nil {
				t.Fatalf("ListAccounts failed: %v", err)
			}
			for _, team := range contract.Teams {
				if _, ok := FindAccount(accounts, team); !ok {
					t.Errorf("expected an account on team %q", team)
				}
			}
		})

		t.Run("ContextCancellation", func(t *testing.T) {
			p := contract.CreateProvider(t)
			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			if _, err := p.ListServers(ctx); err == nil {
				t.Error("expected ListServers to fail with a cancelled context")
			}
		})
	})
}
