package providers_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systmms/opscreds/internal/providers"
	"github.com/systmms/opscreds/pkg/inventory"
)

// runConcurrently calls fn from n goroutines and fails the test on timeout.
func runConcurrently(t *testing.T, n int, fn func(id int) error) []error {
	t.Helper()

	var wg sync.WaitGroup
	wg.Add(n)

	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		go func(id int) {
			defer wg.Done()
			if err := fn(id); err != nil {
				errs <- err
			}
		}(i)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("Timeout waiting for concurrent operations")
	}

	close(errs)
	var out []error
	for err := range errs {
		out = append(out, err)
	}
	return out
}

// TestConcurrentASAListing verifies the server and account caches are filled once
func TestConcurrentASAListing(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping concurrency test in short mode")
	}

	t.Parallel()

	hostnames := make([]string, 50)
	for i := range hostnames {
		hostnames[i] = fmt.Sprintf("client-shop-production-web-%02d", i)
	}

	mock := enrolledASA(hostnames...)
	p := newASA(t, mock)
	ctx := context.Background()

	errs := runConcurrently(t, 100, func(id int) error {
		if id%2 == 0 {
			servers, err := p.ListServers(ctx)
			if err != nil {
				return err
			}
			if len(servers) != len(hostnames) {
				return fmt.Errorf("goroutine %d: got %d servers", id, len(servers))
			}
			return nil
		}

		accounts, err := p.ListAccounts(ctx)
		if err != nil {
			return err
		}
		if _, ok := inventory.FindAccount(accounts, "ops"); !ok {
			return fmt.Errorf("goroutine %d: no ops account", id)
		}
		return nil
	})
	assert.Empty(t, errs)

	assert.Len(t, mock.GetCalls("sft"), 2)
}

// TestConcurrentStaticLoad verifies the inventory file is parsed safely under contention
func TestConcurrentStaticLoad(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping concurrency test in short mode")
	}

	t.Parallel()

	p := providers.NewStaticProvider("", writeInventory(t, staticInventory))
	ctx := context.Background()

	errs := runConcurrently(t, 100, func(id int) error {
		servers, err := p.ListServers(ctx)
		if err != nil {
			return err
		}
		if _, ok := inventory.FindServer(servers, "internal-acme-staging-web-03"); !ok {
			return fmt.Errorf("goroutine %d: server missing", id)
		}
		return nil
	})
	require.Empty(t, errs)
}

// TestConcurrentCancellation verifies cancelled callers fail without blocking others
func TestConcurrentCancellation(t *testing.T) {
	t.Parallel()

	p := newASA(t, enrolledASA("internal-acme-staging-web-03"))

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	var failed, succeeded int
	var mu sync.Mutex

	runConcurrently(t, 20, func(id int) error {
		ctx := context.Background()
		if id%4 == 0 {
			ctx = cancelled
		}

		_, err := p.ListServers(ctx)

		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			failed++
		} else {
			succeeded++
		}
		return nil
	})

	assert.Equal(t, 20, failed+succeeded)
	assert.GreaterOrEqual(t, succeeded, 15)
}
