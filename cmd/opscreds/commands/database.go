package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/systmms/opscreds/pkg/database"
	pkgexec "github.com/systmms/opscreds/pkg/exec"
)

// NewDatabaseCommand groups the MySQL client commands.
func NewDatabaseCommand(rt *Runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "database",
		Short: "Run MySQL clients with credentials kept off the disk",
		Long: `Run mysql, mysqldump and mysqlcheck without writing credentials to a file.

The client reads user and password from a bash process substitution. By
default the client runs on a server selected like 'opscreds server ssh';
use --local to run it on this machine. The password is taken from
OPSCREDS_DB_PASSWORD or asked for.

Arguments after -- are passed to the client.`,
	}

	cmd.AddCommand(
		newDatabaseClientCommand(rt, database.BinMySQL, "Open a mysql shell"),
		newDatabaseClientCommand(rt, database.BinMySQLDump, "Dump a database with mysqldump"),
		newDatabaseClientCommand(rt, database.BinMySQLCheck, "Check tables with mysqlcheck"),
		newDatabaseCheckCommand(rt),
	)

	return cmd
}

func newDatabaseClientCommand(rt *Runtime, bin, short string) *cobra.Command {
	target := newTargetFlags()
	db := &dbFlags{}
	var (
		dryRun bool
		local  bool
	)

	cmd := &cobra.Command{
		Use:   bin + " [flags] [-- CLIENT ARGS...]",
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := db.open(cmd, rt)
			if err != nil {
				return err
			}

			build := d.Command
			if dryRun {
				build = d.RedactedCommand
			}
			line, err := build(bin)
			if err != nil {
				return err
			}
			if len(args) > 0 {
				line += " " + strings.Join(args, " ")
			}
			rt.Metrics.RecordCommand(bin)

			if local {
				if dryRun {
					fmt.Fprintln(cmd.OutOrStdout(), line)
					return nil
				}
				return pkgexec.AttachShell(cmd.Context(), rt.Executor, line)
			}

			s, err := target.resolve(cmd, rt)
			if err != nil {
				return err
			}
			if err := connect(cmd.Context(), cmd, rt, s); err != nil {
				return err
			}
			if err := s.SetDatabase(d); err != nil {
				return err
			}

			if dryRun {
				fmt.Fprintln(cmd.OutOrStdout(), s.Command(line))
				return nil
			}
			return s.Run(cmd.Context(), line)
		},
	}

	target.bind(cmd)
	db.bind(cmd)
	cmd.Flags().BoolVar(&local, "local", false, "Run the client on this machine")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the command, password redacted, instead of running it")
	return cmd
}

func newDatabaseCheckCommand(rt *Runtime) *cobra.Command {
	db := &dbFlags{}
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check that the database accepts the credentials",
		Long: `Connect to the database and ping it.

The connection is made from this machine; use 'opscreds server tunnel' first
to reach a database behind a server.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := db.open(cmd, rt)
			if err != nil {
				return err
			}
			if rt.DBOpener != nil {
				d = d.WithOpener(rt.DBOpener)
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			if err := d.Ping(ctx); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "✓ Connected to %s:%d as %s\n", d.Hostname(), d.Port(), d.Username())
			return nil
		},
	}

	db.bind(cmd)
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "Connection timeout")
	return cmd
}

