package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/systmms/opscreds/internal/config"
	operrors "github.com/systmms/opscreds/internal/errors"
	"github.com/systmms/opscreds/internal/prompt"
	"github.com/systmms/opscreds/pkg/database"
	"github.com/systmms/opscreds/pkg/server"
	"github.com/systmms/opscreds/pkg/serverkey"
)

// targetFlags select a server either by key or by a partial specification
// completed through the drilldown.
type targetFlags struct {
	key          string
	values       map[serverkey.Field]*string
	showProvided bool
}

func newTargetFlags() *targetFlags {
	values := make(map[serverkey.Field]*string)
	for _, f := range serverkey.Fields() {
		values[f] = new(string)
	}
	return &targetFlags{values: values}
}

// bindSpec registers one flag per key field.
func (f *targetFlags) bindSpec(cmd *cobra.Command) {
	for _, field := range serverkey.Fields() {
		cmd.Flags().StringVar(f.values[field], field.String(), "", fmt.Sprintf("Server %s", field))
	}
}

// bind registers the specification flags plus --key and --show-provided.
func (f *targetFlags) bind(cmd *cobra.Command) {
	f.bindSpec(cmd)
	cmd.Flags().StringVar(&f.key, "key", "", "Server key (skips the selection)")
	cmd.Flags().BoolVar(&f.showProvided, "show-provided", false, "Also announce values given as flags")
}

func (f *targetFlags) spec() (serverkey.Specification, error) {
	var (
		spec serverkey.Specification
		err  error
	)
	for _, field := range serverkey.Fields() {
		if v := *f.values[field]; v != "" {
			if spec, err = spec.With(field, v); err != nil {
				return serverkey.Specification{}, err
			}
		}
	}
	return spec, nil
}

// resolve returns the targeted server, asking for missing values when needed.
func (f *targetFlags) resolve(cmd *cobra.Command, rt *Runtime) (*server.Server, error) {
	p, err := rt.provider()
	if err != nil {
		return nil, err
	}
	if f.key != "" {
		return server.FromKey(f.key, p, rt.Executor)
	}

	partial, err := f.spec()
	if err != nil {
		return nil, err
	}

	finder, err := rt.finder(cmd)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	spec, err := finder.Drilldown(cmd.Context(), partial, server.DrilldownOptions{ShowProvided: f.showProvided})
	matches := 0
	if err == nil {
		matches = 1
	}
	rt.Metrics.RecordLookup(p.Name(), matches, err, time.Since(start))
	if err != nil {
		return nil, err
	}

	return server.New(spec, p, rt.Executor)
}

// connect fetches the inventory entry of s and reports where it connects.
func connect(ctx context.Context, cmd *cobra.Command, rt *Runtime, s *server.Server) error {
	if err := s.FetchCredentials(ctx); err != nil {
		return err
	}

	label, err := s.ConnectionLabel()
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.ErrOrStderr(), s.ConfirmationLabel())
	rt.logger().Debug("Connecting to %s", label)
	return nil
}

// endpointFlags name the database host and port a tunnel forwards to.
type endpointFlags struct {
	host string
	port int
}

func (f *endpointFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.host, "db-host", database.DefaultHostname, "Database host")
	cmd.Flags().IntVar(&f.port, "db-port", database.DefaultPort, "Database port")
}

func (f *endpointFlags) validate() error {
	if err := database.ValidateEndpoint(f.host, f.port); err != nil {
		return operrors.UserError{
			Message:    "Invalid database endpoint",
			Details:    err.Error(),
			Suggestion: "Check --db-host and --db-port",
			Err:        err,
		}
	}
	return nil
}

// dbFlags describe a MySQL connection. The password comes from the
// environment or is read without echo.
type dbFlags struct {
	host string
	port int
	user string
	name string
}

func (f *dbFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.host, "db-host", database.DefaultHostname, "Database host")
	cmd.Flags().IntVar(&f.port, "db-port", database.DefaultPort, "Database port")
	cmd.Flags().StringVar(&f.user, "db-user", "", "Database user")
	cmd.Flags().StringVar(&f.name, "db-name", "", "Database name")
}

// open validates the flags into a database.
func (f *dbFlags) open(cmd *cobra.Command, rt *Runtime) (*database.Database, error) {
	password := os.Getenv(config.DBPasswordEnv)
	if password == "" {
		if rt.Config.NonInteractive {
			return nil, operrors.UserError{
				Message:    "No database password available",
				Suggestion: fmt.Sprintf("Set %s when running with --non-interactive", config.DBPasswordEnv),
			}
		}

		var err error
		reader := prompt.NewSecretReader(cmd.InOrStdin(), cmd.ErrOrStderr())
		if password, err = reader.Read(fmt.Sprintf("Password for %s", f.user)); err != nil {
			return nil, err
		}
	}

	db, err := database.New(database.Connection{
		Hostname: f.host,
		Port:     f.port,
		Username: f.user,
		Password: password,
		Name:     f.name,
	})
	if err != nil {
		return nil, operrors.UserError{
			Message:    "Invalid database connection",
			Details:    err.Error(),
			Suggestion: "Check --db-host, --db-port and --db-user",
			Err:        err,
		}
	}
	return db, nil
}
