package server_test

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	operrors "github.com/systmms/opscreds/internal/errors"
	"github.com/systmms/opscreds/pkg/database"
	pkgexec "github.com/systmms/opscreds/pkg/exec"
	"github.com/systmms/opscreds/pkg/inventory"
	"github.com/systmms/opscreds/pkg/server"
	"github.com/systmms/opscreds/pkg/serverkey"
	"github.com/systmms/opscreds/tests/fakes"
	"github.com/systmms/opscreds/tests/testutil"
)

const stagingKey = "internal-acme-staging-web-03"

func inventoryServer(hostname, project string) inventory.Server {
	return inventory.Server{
		ID:            "srv-" + hostname,
		Hostname:      hostname,
		ProjectName:   project,
		TeamName:      "ops",
		AccessAddress: "10.1.2.3",
	}
}

func stagingServer(t *testing.T, executor pkgexec.CommandExecutor) *server.Server {
	t.Helper()

	inv := fakes.NewFakeInventory("ASA").
		WithServer(inventoryServer(stagingKey, "acme")).
		WithAccount("ops", "jdoe")

	s, err := server.FromKey(stagingKey, inv, executor)
	require.NoError(t, err)
	return s
}

func TestNew_Defaults(t *testing.T) {
	t.Parallel()

	s, err := server.New(serverkey.Specification{
		Scope:       serverkey.ScopeClient,
		Project:     "shop",
		Environment: serverkey.EnvironmentProduction,
	}, nil, testutil.NewMockCommandExecutor())
	require.NoError(t, err)

	assert.Equal(t, "client-shop-production-web-00", s.Key())
	assert.Equal(t, "Production Web #00", s.Label())
	assert.Equal(t, "🔐 inventory: client-shop-production-web-00", s.ConfirmationLabel())
}

func TestNew_RequiresFields(t *testing.T) {
	t.Parallel()

	_, err := server.New(serverkey.Specification{Project: "shop"}, nil, nil)
	assert.ErrorIs(t, err, serverkey.ErrIncomplete)

	_, err = server.New(serverkey.Specification{
		Scope: serverkey.ScopeClient, Project: "Shop", Environment: serverkey.EnvironmentDemo,
	}, nil, nil)
	var verr *serverkey.ValidationError
	assert.True(t, errors.As(err, &verr))
}

func TestFromKey(t *testing.T) {
	t.Parallel()

	s := stagingServer(t, testutil.NewMockCommandExecutor())
	assert.Equal(t, serverkey.ScopeInternal, s.Spec().Scope)
	assert.Equal(t, "Staging Web #03", s.Label())
	assert.Equal(t, stagingKey, s.Host())

	raw, err := server.FromKey("bastion", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, serverkey.Specification{}, raw.Spec())

	_, err = server.FromKey("  ", nil, nil)
	assert.Error(t, err)
}

func TestFetchCredentials(t *testing.T) {
	t.Parallel()

	s := stagingServer(t, testutil.NewMockCommandExecutor())

	_, err := s.ConnectionLabel()
	assert.ErrorIs(t, err, server.ErrNotFetched)

	require.NoError(t, s.FetchCredentials(context.Background()))

	label, err := s.ConnectionLabel()
	require.NoError(t, err)
	assert.Equal(t, "internal-acme-staging-web-03 (jdoe@10.1.2.3)", label)
	assert.Equal(t, "🔐 ASA: internal-acme-staging-web-03", s.ConfirmationLabel())
}

func TestFetchCredentials_MissingEntry(t *testing.T) {
	t.Parallel()

	inv := fakes.NewFakeInventory("ASA").WithAccount("ops", "jdoe")
	s, err := server.FromKey(stagingKey, inv, nil)
	require.NoError(t, err)

	err = s.FetchCredentials(context.Background())
	require.Error(t, err)
	assert.Equal(t, "No entry 'internal-acme-staging-web-03' available in ASA [internal-acme-staging-web-03]", err.Error())

	var notFound inventory.NotFoundError
	assert.True(t, errors.As(err, &notFound))
}

func TestFetchCredentials_MissingAccount(t *testing.T) {
	t.Parallel()

	inv := fakes.NewFakeInventory("ASA").WithServer(inventoryServer(stagingKey, "acme"))
	s, err := server.FromKey(stagingKey, inv, nil)
	require.NoError(t, err)

	err = s.FetchCredentials(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no account on team 'ops'")
}

func TestFetchCredentials_NotEnrolled(t *testing.T) {
	t.Parallel()

	inv := fakes.NewFakeInventory("ASA").WithEnrolled(false)
	s, err := server.FromKey(stagingKey, inv, nil)
	require.NoError(t, err)

	err = s.FetchCredentials(context.Background())

	var userErr operrors.UserError
	require.True(t, errors.As(err, &userErr))
	assert.Equal(t, "You are not connected to ASA", userErr.Message)
	assert.Equal(t, "Please run 'sft enroll'", userErr.Suggestion)
}

func TestCommandBuilders(t *testing.T) {
	t.Parallel()

	s := stagingServer(t, testutil.NewMockCommandExecutor())

	assert.Equal(t, "ssh internal-acme-staging-web-03 -t -t", s.Connection())
	assert.Equal(t,
		`ssh internal-acme-staging-web-03 -t -t 'echo "hi" && ls  -la'`,
		s.Command("echo \"hi\" && ls\n -la"))
	assert.Equal(t,
		`ssh internal-acme-staging-web-03 -t -t 'mysql -e '\''SELECT 1'\'''`,
		s.Command("mysql -e 'SELECT 1'"))

	up, err := s.CopyTo("dump.sql", "/tmp/dump.sql")
	require.NoError(t, err)
	assert.Equal(t, "scp dump.sql internal-acme-staging-web-03:/tmp/dump.sql", up)

	_, err = s.CopyTo("", "/tmp")
	assert.Error(t, err)
}

func TestCopyFromCommand_LeavesFilesystemAlone(t *testing.T) {
	t.Parallel()

	s := stagingServer(t, testutil.NewMockCommandExecutor())
	dest := filepath.Join(t.TempDir(), "dumps", "db.sql")

	cmd, err := s.CopyFromCommand("/var/backups/db.sql", dest)
	require.NoError(t, err)
	assert.Equal(t, "scp internal-acme-staging-web-03:/var/backups/db.sql "+dest, cmd)
	assert.NoDirExists(t, filepath.Dir(dest))

	_, err = s.CopyFromCommand("", dest)
	assert.Error(t, err)
}

func TestCopyFrom_CreatesDestination(t *testing.T) {
	t.Parallel()

	s := stagingServer(t, testutil.NewMockCommandExecutor())
	base := t.TempDir()

	file := filepath.Join(base, "dumps", "2024", "db.sql")
	cmd, err := s.CopyFrom("/var/backups/db.sql", file, false)
	require.NoError(t, err)
	assert.Equal(t, "scp internal-acme-staging-web-03:/var/backups/db.sql "+file, cmd)
	assert.DirExists(t, filepath.Dir(file))
	_, err = os.Stat(file)
	assert.True(t, os.IsNotExist(err))

	dir := filepath.Join(base, "media")
	_, err = s.CopyFrom("/var/www/media", dir, true)
	require.NoError(t, err)
	assert.DirExists(t, dir)
}

func TestDatabaseTunnel(t *testing.T) {
	t.Parallel()

	mock := testutil.NewMockCommandExecutor()
	s := stagingServer(t, mock)

	_, err := s.DatabaseTunnel()
	assert.ErrorIs(t, err, server.ErrNoDatabase)
	assert.ErrorIs(t, s.CreateDatabaseTunnel(context.Background()), server.ErrNoDatabase)
	assert.Error(t, s.SetDatabase(nil))

	db, err := database.New(database.Connection{Hostname: "db.internal", Port: 3307, Username: "app", Password: "pw"})
	require.NoError(t, err)
	require.NoError(t, s.SetDatabase(db))
	assert.Same(t, db, s.Database())

	tunnel, err := s.DatabaseTunnel()
	require.NoError(t, err)
	assert.Equal(t, "ssh internal-acme-staging-web-03 -N -L 3307:db.internal:3307", tunnel)

	require.NoError(t, s.CreateDatabaseTunnel(context.Background()))
	calls := mock.Calls()
	require.Len(t, calls, 1)
	assert.True(t, calls[0].Attached)
	assert.Equal(t, tunnel, calls[0].Script())
}

func TestTunnel(t *testing.T) {
	t.Parallel()

	mock := testutil.NewMockCommandExecutor()
	s := stagingServer(t, mock)

	assert.Equal(t, "ssh internal-acme-staging-web-03 -N -L 3306:localhost:3306", s.Tunnel("localhost", 3306))

	require.NoError(t, s.CreateTunnel(context.Background(), "10.0.0.7", 5432))
	calls := mock.Calls()
	require.Len(t, calls, 1)
	assert.True(t, calls[0].Attached)
	assert.Equal(t, "ssh internal-acme-staging-web-03 -N -L 5432:10.0.0.7:5432", calls[0].Script())
}

func TestCommand_ArgumentSurvivesBash(t *testing.T) {
	t.Parallel()

	if _, err := exec.LookPath("bash"); err != nil {
		t.Skip("bash not available")
	}

	tests := []struct {
		name     string
		password string
	}{
		{name: "plain", password: "plainpw1"},
		{name: "double quote", password: `a"b-pw`},
		{name: "dollar", password: "pa$HOMEx"},
		{name: "backslash", password: `back\slash`},
		{name: "single quote", password: "it's-pw"},
		{name: "backtick", password: "tick`pw"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s := stagingServer(t, testutil.NewMockCommandExecutor())
			db, err := database.New(database.Connection{Username: "app", Password: tt.password})
			require.NoError(t, err)

			// cat stands in for mysql, bash -c for the remote login shell
			line := strings.Replace(db.MySQL(), "mysql --defaults-extra-file=", "cat ", 1)
			line = line[:strings.Index(line, " --host=")]
			remote := strings.Replace(s.Command(line), s.Connection()+" ", "bash -c ", 1)

			stdout, stderr, err := pkgexec.RunShell(context.Background(), pkgexec.DefaultExecutor(), remote)
			require.NoError(t, err, string(stderr))
			assert.Equal(t, "[client]\nuser = app\npassword = "+tt.password, string(stdout))
		})
	}
}

func TestRunVariants(t *testing.T) {
	t.Parallel()

	mock := testutil.NewMockCommandExecutor()
	mock.AddResponse(`bash -c ssh internal-acme-staging-web-03 -t -t 'hostname'`, testutil.MockResponse{
		Stdout: []byte("  web-03\n"),
	})
	mock.AddResponse(`bash -c ssh internal-acme-staging-web-03 -t -t 'ls /srv'`, testutil.MockResponse{
		Stdout: []byte("app\n\nshared\r\nreleases\n"),
	})
	s := stagingServer(t, mock)
	ctx := context.Background()

	out, err := s.RunAndRead(ctx, "hostname")
	require.NoError(t, err)
	assert.Equal(t, "web-03", out)

	joined, err := s.RunAndGet(ctx, "ls /srv")
	require.NoError(t, err)
	assert.Equal(t, "app/shared/releases", joined)

	require.NoError(t, s.Run(ctx, "uptime"))
	require.NoError(t, s.SpawnShell(ctx))

	scripts := mock.Scripts()
	assert.Equal(t, []string{
		`ssh internal-acme-staging-web-03 -t -t 'hostname'`,
		`ssh internal-acme-staging-web-03 -t -t 'ls /srv'`,
		`ssh internal-acme-staging-web-03 -t -t 'uptime'`,
		`ssh internal-acme-staging-web-03 -t -t`,
	}, scripts)

	assert.Error(t, s.Run(ctx, " "))
	_, err = s.RunAndRead(ctx, "")
	assert.Error(t, err)
}

func TestRunAndRead_Failure(t *testing.T) {
	t.Parallel()

	mock := testutil.NewMockCommandExecutor()
	mock.AddErrorResponse("bash -c ssh", "Permission denied (publickey).", 255)
	s := stagingServer(t, mock)

	_, err := s.RunAndRead(context.Background(), "hostname")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Permission denied (publickey).")
}

func TestRunAsync(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		response   testutil.MockResponse
		wantErr    bool
		wantStderr string
	}{
		{
			name:     "success",
			response: testutil.MockResponse{Stdout: []byte("done\n")},
		},
		{
			name: "connection_closed_only",
			response: testutil.MockResponse{
				Stdout: []byte("done\n"),
				Stderr: []byte("Connection to internal-acme-staging-web-03 closed.\r\n"),
				Err:    errors.New("exit status 1"),
			},
		},
		{
			name: "real_failure",
			response: testutil.MockResponse{
				Stderr: []byte("ERROR 1049 (42000): Unknown database 'shop'\nConnection to internal-acme-staging-web-03 closed.\n"),
				Err:    errors.New("exit status 1"),
			},
			wantErr:    true,
			wantStderr: "ERROR 1049 (42000): Unknown database 'shop'",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			mock := testutil.NewMockCommandExecutor()
			mock.AddResponse("bash -c", tt.response)
			s := stagingServer(t, mock)

			result := <-s.RunAsync(context.Background(), "mysql -e 'SELECT 1'")
			if tt.wantErr {
				require.Error(t, result.Err)
				assert.Contains(t, result.Err.Error(), "Unknown database")
			} else {
				require.NoError(t, result.Err)
			}
			assert.Equal(t, tt.wantStderr, result.Stderr)
		})
	}
}

func TestRunAsync_EmptyCommand(t *testing.T) {
	t.Parallel()

	s := stagingServer(t, testutil.NewMockCommandExecutor())
	result, ok := <-s.RunAsync(context.Background(), "")
	require.True(t, ok)
	assert.Error(t, result.Err)
}

func TestAvailableSpace(t *testing.T) {
	t.Parallel()

	mock := testutil.NewMockCommandExecutor()
	mock.AddResponse(`bash -c ssh internal-acme-staging-web-03 -t -t 'df -Ph ~ | tail -1'`, testutil.MockResponse{
		Stdout: []byte("/dev/sda1        40G   28G   12G  70% /\n"),
	})
	mock.AddResponse(`bash -c ssh internal-acme-staging-web-03 -t -t 'df -Ph /var/lib/mysql | tail -1'`, testutil.MockResponse{
		Stdout: []byte("/dev/sdb1       200G  150G   50G  75% /var/lib/mysql\n"),
	})
	mock.AddResponse(`bash -c ssh internal-acme-staging-web-03 -t -t 'df -Ph /broken | tail -1'`, testutil.MockResponse{
		Stdout: []byte("df: /broken\n"),
	})
	s := stagingServer(t, mock)

	space, err := s.AvailableSpace(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "12G", space)

	space, err = s.AvailableSpace(context.Background(), "/var/lib/mysql")
	require.NoError(t, err)
	assert.Equal(t, "50G", space)

	_, err = s.AvailableSpace(context.Background(), "/broken")
	assert.Error(t, err)
}
