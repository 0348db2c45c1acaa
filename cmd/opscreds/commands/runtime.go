package commands

import (
	"fmt"
	"io"
	osexec "os/exec"

	"github.com/spf13/cobra"

	"github.com/systmms/opscreds/internal/config"
	"github.com/systmms/opscreds/internal/kvstore"
	"github.com/systmms/opscreds/internal/logging"
	"github.com/systmms/opscreds/internal/machineid"
	"github.com/systmms/opscreds/internal/metrics"
	"github.com/systmms/opscreds/internal/prompt"
	"github.com/systmms/opscreds/internal/providers"
	"github.com/systmms/opscreds/pkg/credentials"
	"github.com/systmms/opscreds/pkg/database"
	pkgexec "github.com/systmms/opscreds/pkg/exec"
	"github.com/systmms/opscreds/pkg/inventory"
	"github.com/systmms/opscreds/pkg/server"
)

// Runtime carries what commands share. Nil seams are built from the
// configuration on first use.
type Runtime struct {
	Config   *config.Config
	Executor pkgexec.CommandExecutor
	Metrics  *metrics.Recorder

	Inventory inventory.Provider
	Backend   credentials.Backend
	Identity  credentials.IdentitySource
	Chooser   server.Chooser
	DBOpener  database.Opener
	LookPath  func(file string) (string, error)
}

// NewRuntime creates a runtime using the real executor and host identity.
func NewRuntime(cfg *config.Config) *Runtime {
	return &Runtime{
		Config:   cfg,
		Executor: pkgexec.DefaultExecutor(),
		Metrics:  metrics.NewRecorder(),
		LookPath: osexec.LookPath,
	}
}

func (rt *Runtime) logger() *logging.Logger {
	if rt.Config.Logger == nil {
		rt.Config.Logger = logging.New(false, true)
	}
	return rt.Config.Logger
}

func (rt *Runtime) load() error {
	if rt.Config.Definition != nil {
		return nil
	}
	return rt.Config.Load()
}

func (rt *Runtime) provider() (inventory.Provider, error) {
	if rt.Inventory != nil {
		return rt.Inventory, nil
	}
	if err := rt.load(); err != nil {
		return nil, err
	}

	registry := providers.NewRegistry(rt.Executor, rt.logger())
	p, err := registry.CreateProvider(rt.Config.Definition.Inventory)
	if err != nil {
		return nil, err
	}

	rt.Inventory = p
	return p, nil
}

func (rt *Runtime) backend() (credentials.Backend, error) {
	if rt.Backend != nil {
		return rt.Backend, nil
	}
	if err := rt.load(); err != nil {
		return nil, err
	}

	store := rt.Config.Definition.Store
	switch store.Type {
	case "file":
		rt.Backend = kvstore.NewFileStore(store.Path)
	case "keyring":
		rt.Backend = kvstore.NewKeyringStore(store.Service)
	default:
		return nil, fmt.Errorf("unsupported credential store: %s", store.Type)
	}

	rt.logger().Debug("Using %s credential store", store.Type)
	return rt.Backend, nil
}

// store opens the credential store. Callers must Close it.
func (rt *Runtime) store() (*credentials.Store, error) {
	backend, err := rt.backend()
	if err != nil {
		return nil, err
	}

	identity := rt.Identity
	if identity == nil {
		identity = machineid.FromEnv(config.MachineIDEnv, machineid.NewHost())
	}

	return credentials.NewStore(backend, identity, rt.logger())
}

func (rt *Runtime) finder(cmd *cobra.Command) (*server.Finder, error) {
	p, err := rt.provider()
	if err != nil {
		return nil, err
	}
	notifier := prompt.NewNotifier(cmd.ErrOrStderr(), rt.logger().NoColor())
	return server.NewFinder(p, rt.chooser(cmd.InOrStdin(), cmd.ErrOrStderr()), notifier), nil
}

func (rt *Runtime) chooser(in io.Reader, out io.Writer) server.Chooser {
	if rt.Chooser != nil {
		return rt.Chooser
	}
	if rt.Config.NonInteractive || !prompt.IsTerminal(in) {
		return prompt.NonInteractive{}
	}
	return prompt.NewChooser(in, out, rt.logger().NoColor())
}

// Flush writes the metrics textfile when one is configured.
func (rt *Runtime) Flush() error {
	if rt.Config.Definition == nil {
		return nil
	}
	return rt.Metrics.WriteTextfile(rt.Config.Definition.Metrics.Textfile)
}
