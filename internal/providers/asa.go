package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	osexec "os/exec"
	"strings"
	"sync"
	"time"

	operrors "github.com/systmms/opscreds/internal/errors"
	"github.com/systmms/opscreds/internal/logging"
	pkgexec "github.com/systmms/opscreds/pkg/exec"
	"github.com/systmms/opscreds/pkg/inventory"
)

// ASAConfig represents the configuration for the ASA provider.
type ASAConfig struct {
	SftPath string        `yaml:"sft_path,omitempty"` // Path to the sft binary (default: sft)
	Timeout time.Duration `yaml:"-"`
}

// ASAProvider reads the server inventory from Okta Advanced Server Access
// through the ScaleFT client. Server and account lists are fetched once per
// provider and reused.
type ASAProvider struct {
	config   ASAConfig
	logger   *logging.Logger
	executor pkgexec.CommandExecutor

	mu       sync.Mutex
	servers  []inventory.Server
	accounts []inventory.Account
}

// NewASAProvider creates a new ASA provider.
func NewASAProvider(config ASAConfig, logger *logging.Logger) *ASAProvider {
	return NewASAProviderWithExecutor(config, logger, pkgexec.DefaultExecutor())
}

// NewASAProviderWithExecutor creates an ASA provider with a custom executor.
// This is primarily for testing, allowing sft calls to be mocked.
func NewASAProviderWithExecutor(config ASAConfig, logger *logging.Logger, executor pkgexec.CommandExecutor) *ASAProvider {
	if config.SftPath == "" {
		config.SftPath = "sft"
	}
	if logger == nil {
		logger = logging.New(false, true)
	}
	return &ASAProvider{
		config:   config,
		logger:   logger,
		executor: executor,
	}
}

// Name returns the provider display name.
func (p *ASAProvider) Name() string {
	return "ASA"
}

// EnrollCommand returns the command that enrols this device.
func (p *ASAProvider) EnrollCommand() string {
	return p.config.SftPath + " enroll"
}

// IsEnrolled lists teams; an enrolment failure reports false rather than an error.
func (p *ASAProvider) IsEnrolled(ctx context.Context) (bool, error) {
	stdout, stderr, err := p.sft(ctx, "list-teams")
	if err != nil {
		if isNotEnrolled(err, stderr) {
			p.logger.Debug("sft reports no enrolled team")
			return false, nil
		}
		return false, p.wrap("enrolment check", err, stderr)
	}

	// First line is the table header
	lines := strings.Split(strings.TrimSpace(string(stdout)), "\n")
	return len(lines) > 1, nil
}

// ListServers returns the servers visible to the enrolled user.
func (p *ASAProvider) ListServers(ctx context.Context) ([]inventory.Server, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.servers != nil {
		return p.servers, nil
	}

	var servers []inventory.Server
	if err := p.listJSON(ctx, "list-servers", &servers); err != nil {
		return nil, err
	}
	if servers == nil {
		servers = []inventory.Server{}
	}

	p.logger.Debug("Loaded %d server(s) from ASA", len(servers))
	p.servers = servers
	return servers, nil
}

// ListAccounts returns the user's account on every team.
func (p *ASAProvider) ListAccounts(ctx context.Context) ([]inventory.Account, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.accounts != nil {
		return p.accounts, nil
	}

	var accounts []inventory.Account
	if err := p.listJSON(ctx, "list-accounts", &accounts); err != nil {
		return nil, err
	}
	if accounts == nil {
		accounts = []inventory.Account{}
	}

	p.accounts = accounts
	return accounts, nil
}

func (p *ASAProvider) listJSON(ctx context.Context, subcommand string, out interface{}) error {
	stdout, stderr, err := p.sft(ctx, subcommand, "-o", "json")
	if err != nil {
		if isNotEnrolled(err, stderr) {
			return operrors.NotConnected(p.Name(), p.EnrollCommand())
		}
		return p.wrap(subcommand, err, stderr)
	}

	if err := json.Unmarshal(stdout, out); err != nil {
		return operrors.UserError{
			Message:    fmt.Sprintf("Unexpected output from 'sft %s'", subcommand),
			Details:    err.Error(),
			Suggestion: "Update the ScaleFT client to a version supporting '-o json'",
			Err:        err,
		}
	}
	return nil
}

// sft runs the client under the configured timeout.
func (p *ASAProvider) sft(ctx context.Context, args ...string) ([]byte, []byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	if p.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.config.Timeout)
		defer cancel()
	}

	p.logger.Debug("Running %s %s", p.config.SftPath, strings.Join(args, " "))
	return p.executor.Execute(ctx, p.config.SftPath, args...)
}

func (p *ASAProvider) wrap(op string, err error, stderr []byte) error {
	if errors.Is(err, osexec.ErrNotFound) {
		return operrors.WrapCommandNotFound("sft", err)
	}
	if msg := strings.TrimSpace(string(stderr)); msg != "" {
		err = fmt.Errorf("%w: %s", err, msg)
	}
	return operrors.ProviderError("asa", op, err)
}

func isNotEnrolled(err error, stderr []byte) bool {
	text := strings.ToLower(err.Error() + " " + string(stderr))
	return strings.Contains(text, "not enrolled") ||
		strings.Contains(text, "no enrolled") ||
		strings.Contains(text, "sft enroll")
}
