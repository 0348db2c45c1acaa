package commands

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/systmms/opscreds/internal/config"
	"github.com/systmms/opscreds/internal/kvstore"
	"github.com/systmms/opscreds/internal/machineid"
	"github.com/systmms/opscreds/internal/metrics"
	"github.com/systmms/opscreds/pkg/inventory"
	"github.com/systmms/opscreds/tests/fakes"
	"github.com/systmms/opscreds/tests/testutil"
)

const stagingKey = "internal-acme-staging-web-03"

type harness struct {
	rt       *Runtime
	inv      *fakes.FakeInventory
	backend  *kvstore.MemoryStore
	executor *testutil.MockCommandExecutor
	chooser  *fakes.FakeChooser
	log      *testutil.TestLogger
	missing  map[string]bool
}

func newHarness(t *testing.T, answers ...string) *harness {
	t.Helper()

	h := &harness{
		inv: fakes.NewFakeInventory("ASA").
			WithServer(inventory.Server{
				ID:            "srv-1",
				Hostname:      stagingKey,
				ProjectName:   "acme",
				TeamName:      "ops",
				AccessAddress: "10.1.2.3",
			}).
			WithServers("internal-acme-production-web-00", "client-shop-production-web-00").
			WithAccount("ops", "jdoe"),
		backend:  kvstore.NewMemoryStore(),
		executor: testutil.NewMockCommandExecutor(),
		chooser:  fakes.NewFakeChooser(answers...),
		log:      testutil.NewTestLogger(t),
		missing:  map[string]bool{},
	}

	h.rt = &Runtime{
		Config: &config.Config{
			Path:   filepath.Join(t.TempDir(), "opscreds.yaml"),
			Logger: h.log.Logger(),
		},
		Executor:  h.executor,
		Metrics:   metrics.NewRecorder(),
		Inventory: h.inv,
		Backend:   h.backend,
		Identity:  machineid.Static("test-machine"),
		Chooser:   h.chooser,
		LookPath: func(file string) (string, error) {
			if h.missing[file] {
				return "", errors.New("executable file not found in $PATH")
			}
			return "/usr/bin/" + file, nil
		},
	}

	return h
}

// execute runs cmd with args and stdin, returning stdout and stderr.
func execute(cmd *cobra.Command, stdin string, args ...string) (string, string, error) {
	var stdout, stderr bytes.Buffer

	cmd.SetArgs(args)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true

	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}
