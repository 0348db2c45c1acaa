package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/systmms/opscreds/cmd/opscreds/commands"
	"github.com/systmms/opscreds/internal/config"
	operrors "github.com/systmms/opscreds/internal/errors"
	"github.com/systmms/opscreds/internal/logging"
	"github.com/systmms/opscreds/internal/secure"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", operrors.SimplifyError(err))
		os.Exit(1)
	}
}

func run() error {
	defer secure.Purge()

	// Global flags
	var (
		configFile     string
		noColor        bool
		debug          bool
		nonInteractive bool
	)

	cfg := &config.Config{}
	rt := commands.NewRuntime(cfg)

	rootCmd := &cobra.Command{
		Use:   "opscreds",
		Short: "Operations credentials - reach servers and databases without plaintext secrets",
		Long: `opscreds finds servers in your inventory, connects to them over ssh and
runs MySQL clients with credentials that never touch the disk.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cfg.Path = configFile
			cfg.Explicit = cmd.Flags().Changed("config")
			cfg.Logger = logging.New(debug, noColor)
			cfg.NonInteractive = nonInteractive
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return rt.Flush()
		},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", config.DefaultPath, "Config file path")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&nonInteractive, "non-interactive", false, "Never prompt; fail when a choice is needed")

	rootCmd.AddCommand(
		commands.NewServerCommand(rt),
		commands.NewDatabaseCommand(rt),
		commands.NewCredentialsCommand(rt),
		commands.NewDoctorCommand(rt),
		commands.NewCompletionCommand(rt),
	)

	return rootCmd.Execute()
}
