package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	pkgexec "github.com/systmms/opscreds/pkg/exec"
)

// NewServerCommand groups the commands working on inventory servers.
func NewServerCommand(rt *Runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "server",
		Short: "Find servers and run commands on them",
		Long: `Find servers in the inventory and reach them over ssh.

Servers are named scope-project-environment-type-index
(e.g. internal-acme-staging-web-03). Every flag left out is asked for,
or selected automatically when a single value remains.`,
	}

	cmd.AddCommand(
		newServerFindCommand(rt),
		newServerListCommand(rt),
		newServerSelectCommand(rt),
		newServerSSHCommand(rt),
		newServerRunCommand(rt),
		newServerCopyFromCommand(rt),
		newServerCopyToCommand(rt),
		newServerDFCommand(rt),
		newServerTunnelCommand(rt),
	)

	return cmd
}

func newServerFindCommand(rt *Runtime) *cobra.Command {
	target := newTargetFlags()

	cmd := &cobra.Command{
		Use:   "find",
		Short: "List the server keys matching the given values",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			partial, err := target.spec()
			if err != nil {
				return err
			}

			finder, err := rt.finder(cmd)
			if err != nil {
				return err
			}

			start := time.Now()
			specs, err := finder.Find(cmd.Context(), partial)
			rt.Metrics.RecordLookup(finder.Provider().Name(), len(specs), err, time.Since(start))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, spec := range specs {
				key, err := spec.Key()
				if err != nil {
					return err
				}
				fmt.Fprintln(out, key)
			}
			return nil
		},
	}

	target.bindSpec(cmd)
	return cmd
}

func newServerListCommand(rt *Runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every inventory server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			finder, err := rt.finder(cmd)
			if err != nil {
				return err
			}

			options, err := finder.ServerList(cmd.Context())
			if err != nil {
				return err
			}

			for _, opt := range options {
				fmt.Fprintln(cmd.OutOrStdout(), opt.Label)
			}
			return nil
		},
	}
}

func newServerSelectCommand(rt *Runtime) *cobra.Command {
	target := newTargetFlags()
	var verbose bool

	cmd := &cobra.Command{
		Use:   "select",
		Short: "Select a single server and print its key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := target.resolve(cmd, rt)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, s.Key())
			if !verbose {
				return nil
			}

			if err := s.FetchCredentials(cmd.Context()); err != nil {
				return err
			}
			label, err := s.ConnectionLabel()
			if err != nil {
				return err
			}
			if s.Spec().Complete() {
				fmt.Fprintln(out, s.Label())
			}
			fmt.Fprintln(out, label)
			return nil
		},
	}

	target.bind(cmd)
	cmd.Flags().BoolVar(&verbose, "verbose", false, "Also print the server label and connection")
	return cmd
}

func newServerSSHCommand(rt *Runtime) *cobra.Command {
	target := newTargetFlags()
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "ssh",
		Short: "Open a shell on a server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := target.resolve(cmd, rt)
			if err != nil {
				return err
			}
			if err := connect(cmd.Context(), cmd, rt, s); err != nil {
				return err
			}

			rt.Metrics.RecordCommand("ssh")
			if dryRun {
				fmt.Fprintln(cmd.OutOrStdout(), s.Connection())
				return nil
			}
			return s.SpawnShell(cmd.Context())
		},
	}

	target.bind(cmd)
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the command instead of running it")
	return cmd
}

func newServerRunCommand(rt *Runtime) *cobra.Command {
	target := newTargetFlags()
	var (
		dryRun  bool
		capture bool
	)

	cmd := &cobra.Command{
		Use:   "run [flags] -- COMMAND...",
		Short: "Run a command on a server",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := target.resolve(cmd, rt)
			if err != nil {
				return err
			}
			if err := connect(cmd.Context(), cmd, rt, s); err != nil {
				return err
			}

			command := strings.Join(args, " ")
			rt.Metrics.RecordCommand("ssh")

			switch {
			case dryRun:
				fmt.Fprintln(cmd.OutOrStdout(), s.Command(command))
				return nil
			case capture:
				out, err := s.RunAndRead(cmd.Context(), command)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), out)
				return nil
			}
			return s.Run(cmd.Context(), command)
		},
	}

	target.bind(cmd)
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the command instead of running it")
	cmd.Flags().BoolVar(&capture, "capture", false, "Capture the output instead of attaching the terminal")
	return cmd
}

func newServerCopyFromCommand(rt *Runtime) *cobra.Command {
	target := newTargetFlags()
	var (
		dryRun bool
		dir    bool
	)

	cmd := &cobra.Command{
		Use:   "scp-from SOURCE DESTINATION",
		Short: "Copy a file from a server",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := target.resolve(cmd, rt)
			if err != nil {
				return err
			}
			if err := connect(cmd.Context(), cmd, rt, s); err != nil {
				return err
			}

			var line string
			if dryRun {
				line, err = s.CopyFromCommand(args[0], args[1])
			} else {
				line, err = s.CopyFrom(args[0], args[1], dir)
			}
			if err != nil {
				return err
			}
			return runLine(cmd, rt, "scp", line, dryRun)
		},
	}

	target.bind(cmd)
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the command instead of running it")
	cmd.Flags().BoolVar(&dir, "dir", false, "DESTINATION is a directory")
	return cmd
}

func newServerCopyToCommand(rt *Runtime) *cobra.Command {
	target := newTargetFlags()
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "scp-to SOURCE DESTINATION",
		Short: "Copy a file to a server",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := target.resolve(cmd, rt)
			if err != nil {
				return err
			}
			if err := connect(cmd.Context(), cmd, rt, s); err != nil {
				return err
			}

			line, err := s.CopyTo(args[0], args[1])
			if err != nil {
				return err
			}
			return runLine(cmd, rt, "scp", line, dryRun)
		},
	}

	target.bind(cmd)
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the command instead of running it")
	return cmd
}

func newServerDFCommand(rt *Runtime) *cobra.Command {
	target := newTargetFlags()

	cmd := &cobra.Command{
		Use:   "df [DIRECTORY]",
		Short: "Print the free space of a directory on a server",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := target.resolve(cmd, rt)
			if err != nil {
				return err
			}
			if err := connect(cmd.Context(), cmd, rt, s); err != nil {
				return err
			}

			dir := ""
			if len(args) == 1 {
				dir = args[0]
			}

			rt.Metrics.RecordCommand("ssh")
			space, err := s.AvailableSpace(cmd.Context(), dir)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), space)
			return nil
		},
	}

	target.bind(cmd)
	return cmd
}

func newServerTunnelCommand(rt *Runtime) *cobra.Command {
	target := newTargetFlags()
	endpoint := &endpointFlags{}
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "tunnel",
		Short: "Forward a database port through a server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := endpoint.validate(); err != nil {
				return err
			}

			s, err := target.resolve(cmd, rt)
			if err != nil {
				return err
			}
			if err := connect(cmd.Context(), cmd, rt, s); err != nil {
				return err
			}

			rt.Metrics.RecordCommand("ssh")
			if dryRun {
				fmt.Fprintln(cmd.OutOrStdout(), s.Tunnel(endpoint.host, endpoint.port))
				return nil
			}

			rt.logger().Info("Forwarding %s:%d through %s, press Ctrl+C to stop", endpoint.host, endpoint.port, s.Host())
			return s.CreateTunnel(cmd.Context(), endpoint.host, endpoint.port)
		},
	}

	target.bind(cmd)
	endpoint.bind(cmd)
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the command instead of running it")
	return cmd
}

// runLine runs a local command line, or prints it with --dry-run.
func runLine(cmd *cobra.Command, rt *Runtime, binary, line string, dryRun bool) error {
	rt.Metrics.RecordCommand(binary)
	if dryRun {
		fmt.Fprintln(cmd.OutOrStdout(), line)
		return nil
	}
	return pkgexec.AttachShell(cmd.Context(), rt.Executor, line)
}

