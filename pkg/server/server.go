package server

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/systmms/opscreds/pkg/database"
	pkgexec "github.com/systmms/opscreds/pkg/exec"
	"github.com/systmms/opscreds/pkg/inventory"
	"github.com/systmms/opscreds/pkg/serverkey"
)

// Defaults applied by New to unset fields.
const (
	DefaultType  = serverkey.TypeWeb
	DefaultIndex = "00"
)

// connectionClosed matches the notice ssh prints when a forced-tty session ends.
var connectionClosed = regexp.MustCompile(`Connection to .+ closed\.`)

var (
	// ErrNotFetched is returned by operations that need FetchCredentials first.
	ErrNotFetched = errors.New("server credentials have not been fetched")

	// ErrNoDatabase is returned by database operations before SetDatabase.
	ErrNoDatabase = errors.New("no database is associated with the server")
)

// Server is a single inventory server reached through ssh. Its host is the
// server key, which is also its inventory hostname.
type Server struct {
	spec     serverkey.Specification
	key      string
	provider inventory.Provider
	executor pkgexec.CommandExecutor

	entry    *inventory.Server
	account  *inventory.Account
	database *database.Database
}

// New builds a server from a specification. Type defaults to web and index
// to 00; every other field must be set.
func New(spec serverkey.Specification, provider inventory.Provider, executor pkgexec.CommandExecutor) (*Server, error) {
	if !spec.IsSet(serverkey.FieldType) {
		spec.Type = DefaultType
	}
	if !spec.IsSet(serverkey.FieldIndex) {
		spec.Index = DefaultIndex
	}

	key, err := serverkey.Encode(spec)
	if err != nil {
		return nil, err
	}

	return newServer(spec, key, provider, executor), nil
}

// FromKey builds a server from a raw inventory hostname. Hostnames that are
// not server keys are accepted; Spec is then empty.
func FromKey(key string, provider inventory.Provider, executor pkgexec.CommandExecutor) (*Server, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, errors.New("server key must not be empty")
	}

	spec, _ := serverkey.Decode(key)
	return newServer(spec, key, provider, executor), nil
}

func newServer(spec serverkey.Specification, key string, provider inventory.Provider, executor pkgexec.CommandExecutor) *Server {
	if executor == nil {
		executor = pkgexec.DefaultExecutor()
	}
	return &Server{spec: spec, key: key, provider: provider, executor: executor}
}

func (s *Server) Spec() serverkey.Specification { return s.spec }
func (s *Server) Key() string                   { return s.key }
func (s *Server) Host() string                  { return s.key }

// Database returns the associated database, or nil.
func (s *Server) Database() *database.Database { return s.database }

// Label renders "Environment Type #index".
func (s *Server) Label() string {
	return fmt.Sprintf("%s %s #%s", s.spec.Environment.Label(), s.spec.Type.Label(), s.spec.Index)
}

// ConnectionLabel renders "host (user@access_address)".
func (s *Server) ConnectionLabel() (string, error) {
	if s.entry == nil || s.account == nil {
		return "", ErrNotFetched
	}
	return fmt.Sprintf("%s (%s@%s)", s.Host(), s.account.Username, s.entry.AccessAddress), nil
}

// ConfirmationLabel renders "🔐 Provider: key".
func (s *Server) ConfirmationLabel() string {
	return fmt.Sprintf("🔐 %s: %s", s.providerName(), s.key)
}

// FetchCredentials looks the server up in the inventory and resolves the
// user's account on the server's team.
func (s *Server) FetchCredentials(ctx context.Context) error {
	if s.provider == nil {
		return errors.New("server has no inventory provider")
	}
	if err := ensureEnrolled(ctx, s.provider); err != nil {
		return err
	}

	servers, err := s.provider.ListServers(ctx)
	if err != nil {
		return fmt.Errorf("%w [%s]", err, s.key)
	}

	entry, ok := inventory.FindServer(servers, s.key)
	if !ok {
		return fmt.Errorf("%w [%s]", inventory.NotFoundError{Provider: s.providerName(), Key: s.key}, s.key)
	}

	accounts, err := s.provider.ListAccounts(ctx)
	if err != nil {
		return fmt.Errorf("%w [%s]", err, s.key)
	}

	account, ok := inventory.FindAccount(accounts, entry.TeamName)
	if !ok {
		return fmt.Errorf("no account on team '%s' available in %s [%s]", entry.TeamName, s.providerName(), s.key)
	}

	s.entry = &entry
	s.account = &account
	return nil
}

// SetDatabase associates the database reached through this server.
func (s *Server) SetDatabase(db *database.Database) error {
	if db == nil {
		return errors.New("database must not be nil")
	}
	s.database = db
	return nil
}

// Connection returns the ssh command opening a tty session on the server.
func (s *Server) Connection() string {
	return fmt.Sprintf("ssh %s -t -t", s.Host())
}

// Tunnel returns the ssh command forwarding port on this machine to
// hostname:port as seen from the server.
func (s *Server) Tunnel(hostname string, port int) string {
	p := strconv.Itoa(port)
	return fmt.Sprintf("ssh %s -N -L %s:%s:%s", s.Host(), p, hostname, p)
}

// DatabaseTunnel returns the ssh command forwarding the database port through the server.
func (s *Server) DatabaseTunnel() (string, error) {
	if s.database == nil {
		return "", ErrNoDatabase
	}
	return s.Tunnel(s.database.Hostname(), s.database.Port()), nil
}

// Command wraps command in single quotes so the remote bash receives it
// unchanged. Newlines become spaces.
func (s *Server) Command(command string) string {
	quoted := strings.NewReplacer("'", `'\''`, "\n", " ").Replace(command)
	return fmt.Sprintf("%s '%s'", s.Connection(), quoted)
}

// CopyFromCommand returns the scp command downloading source into destination.
func (s *Server) CopyFromCommand(source, destination string) (string, error) {
	if source == "" || destination == "" {
		return "", errors.New("source and destination are required")
	}
	return fmt.Sprintf("scp %s:%s %s", s.Host(), source, destination), nil
}

// CopyFrom is CopyFromCommand after creating the local destination directory.
func (s *Server) CopyFrom(source, destination string, destinationIsDirectory bool) (string, error) {
	line, err := s.CopyFromCommand(source, destination)
	if err != nil {
		return "", err
	}

	dir := destination
	if !destinationIsDirectory {
		dir = filepath.Dir(destination)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", dir, err)
	}
	return line, nil
}

// CopyTo returns the scp command uploading source to destination.
func (s *Server) CopyTo(source, destination string) (string, error) {
	if source == "" || destination == "" {
		return "", errors.New("source and destination are required")
	}
	return fmt.Sprintf("scp %s %s:%s", source, s.Host(), destination), nil
}

// Run executes command on the server attached to the terminal.
func (s *Server) Run(ctx context.Context, command string) error {
	if err := requireCommand(command); err != nil {
		return err
	}
	return pkgexec.AttachShell(ctx, s.executor, s.Command(command))
}

// RunAndRead executes command on the server and returns its trimmed output.
func (s *Server) RunAndRead(ctx context.Context, command string) (string, error) {
	if err := requireCommand(command); err != nil {
		return "", err
	}

	stdout, stderr, err := pkgexec.RunShell(ctx, s.executor, s.Command(command))
	if err != nil {
		return "", commandFailed(err, stderr)
	}
	return strings.TrimSpace(string(stdout)), nil
}

// RunAndGet executes command on the server and joins its non-empty output lines with "/".
func (s *Server) RunAndGet(ctx context.Context, command string) (string, error) {
	out, err := s.RunAndRead(ctx, command)
	if err != nil {
		return "", err
	}

	var lines []string
	for _, line := range strings.Split(out, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "/"), nil
}

// Result is the outcome of RunAsync.
type Result struct {
	Stdout string
	Stderr string
	Err    error
}

// RunAsync executes command in the background. The ssh "Connection to … closed."
// notice is removed from stderr and does not count as a failure on its own.
func (s *Server) RunAsync(ctx context.Context, command string) <-chan Result {
	results := make(chan Result, 1)

	if err := requireCommand(command); err != nil {
		results <- Result{Err: err}
		close(results)
		return results
	}

	go func() {
		defer close(results)

		stdout, stderr, err := pkgexec.RunShell(ctx, s.executor, s.Command(command))
		rest := strings.TrimSpace(connectionClosed.ReplaceAllString(string(stderr), ""))
		if err != nil && rest == "" && connectionClosed.Match(stderr) {
			err = nil
		}
		if err != nil {
			err = commandFailed(err, []byte(rest))
		}

		results <- Result{Stdout: string(stdout), Stderr: rest, Err: err}
	}()

	return results
}

// SpawnShell opens an interactive shell on the server.
func (s *Server) SpawnShell(ctx context.Context) error {
	return pkgexec.AttachShell(ctx, s.executor, s.Connection())
}

// CreateTunnel forwards hostname:port until interrupted.
func (s *Server) CreateTunnel(ctx context.Context, hostname string, port int) error {
	return pkgexec.AttachShell(ctx, s.executor, s.Tunnel(hostname, port))
}

// CreateDatabaseTunnel forwards the database port until interrupted.
func (s *Server) CreateDatabaseTunnel(ctx context.Context) error {
	if s.database == nil {
		return ErrNoDatabase
	}
	return s.CreateTunnel(ctx, s.database.Hostname(), s.database.Port())
}

// AvailableSpace returns the free space of directory ("~" when empty) in df -h units.
func (s *Server) AvailableSpace(ctx context.Context, directory string) (string, error) {
	if directory == "" {
		directory = "~"
	}

	out, err := s.RunAndRead(ctx, fmt.Sprintf("df -Ph %s | tail -1", directory))
	if err != nil {
		return "", err
	}

	columns := strings.Fields(out)
	if len(columns) < 4 {
		return "", fmt.Errorf("unexpected df output: %q", out)
	}
	return columns[3], nil
}

func (s *Server) providerName() string {
	if s.provider == nil {
		return "inventory"
	}
	return s.provider.Name()
}

func requireCommand(command string) error {
	if strings.TrimSpace(command) == "" {
		return errors.New("command must not be empty")
	}
	return nil
}

func commandFailed(err error, stderr []byte) error {
	if msg := strings.TrimSpace(string(stderr)); msg != "" {
		return fmt.Errorf("%w: %s", err, msg)
	}
	return err
}
