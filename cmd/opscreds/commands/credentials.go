package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	operrors "github.com/systmms/opscreds/internal/errors"
	"github.com/systmms/opscreds/internal/logging"
	"github.com/systmms/opscreds/internal/prompt"
	"github.com/systmms/opscreds/pkg/credentials"
)

// NewCredentialsCommand groups the local secret store commands.
func NewCredentialsCommand(rt *Runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "credentials",
		Aliases: []string{"creds"},
		Short:   "Manage credentials encrypted for this machine",
		Long: `Store service credentials encrypted with a key derived from this
machine's identity. Stored values cannot be decrypted on another machine.

Supported kinds are listed by 'opscreds credentials list'.`,
	}

	cmd.AddCommand(
		newCredentialsSetCommand(rt),
		newCredentialsGetCommand(rt),
		newCredentialsClearCommand(rt),
		newCredentialsListCommand(rt),
	)

	return cmd
}

func newCredentialsSetCommand(rt *Runtime) *cobra.Command {
	return &cobra.Command{
		Use:       "set KIND",
		Short:     "Store credentials, reading each field without echo",
		Args:      cobra.ExactArgs(1),
		ValidArgs: kindNames(),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := credentials.ParseKind(args[0])
			if err != nil {
				return unknownKind(args[0], err)
			}

			fields, err := kind.Fields()
			if err != nil {
				return err
			}

			reader := prompt.NewSecretReader(cmd.InOrStdin(), cmd.ErrOrStderr())
			record := make(credentials.Record, len(fields))
			for _, field := range fields {
				value, err := reader.Read(field)
				if err != nil {
					return err
				}
				record[field] = value
			}

			store, err := rt.store()
			if err != nil {
				return err
			}
			defer store.Close()

			err = store.SetCredentials(kind, record)
			rt.Metrics.RecordCredentials(kind.String(), "set", err)
			if err != nil {
				return err
			}

			rt.logger().Info("Stored %s credentials", kind)
			return nil
		},
	}
}

func newCredentialsGetCommand(rt *Runtime) *cobra.Command {
	var reveal bool

	cmd := &cobra.Command{
		Use:       "get KIND",
		Short:     "Print stored credentials",
		Args:      cobra.ExactArgs(1),
		ValidArgs: kindNames(),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := credentials.ParseKind(args[0])
			if err != nil {
				return unknownKind(args[0], err)
			}

			store, err := rt.store()
			if err != nil {
				return err
			}
			defer store.Close()

			record, err := store.GetCredentials(kind)
			rt.Metrics.RecordCredentials(kind.String(), "get", err)
			if err != nil {
				return err
			}
			if len(record) == 0 {
				return operrors.UserError{
					Message:    fmt.Sprintf("No %s credentials stored", kind),
					Suggestion: fmt.Sprintf("Run 'opscreds credentials set %s'", kind),
				}
			}

			fields, err := kind.Fields()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, field := range fields {
				var value fmt.Stringer = logging.Secret(record[field])
				if reveal {
					value = plain(record[field])
				}
				fmt.Fprintf(out, "%s: %s\n", field, value)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&reveal, "reveal", false, "Print the values instead of redacting them")
	return cmd
}

func newCredentialsClearCommand(rt *Runtime) *cobra.Command {
	return &cobra.Command{
		Use:       "clear KIND",
		Short:     "Remove stored credentials",
		Args:      cobra.ExactArgs(1),
		ValidArgs: kindNames(),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := credentials.ParseKind(args[0])
			if err != nil {
				return unknownKind(args[0], err)
			}

			store, err := rt.store()
			if err != nil {
				return err
			}
			defer store.Close()

			err = store.ClearCredentials(kind)
			rt.Metrics.RecordCredentials(kind.String(), "clear", err)
			if err != nil {
				return err
			}

			rt.logger().Info("Cleared %s credentials", kind)
			return nil
		},
	}
}

func newCredentialsListCommand(rt *Runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List credential kinds and whether they are stored",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := rt.store()
			if err != nil {
				return err
			}
			defer store.Close()

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintf(w, "KIND\tFIELDS\tSTORED\n")

			for _, kind := range credentials.Kinds() {
				fields, err := kind.Fields()
				if err != nil {
					return err
				}
				stored, err := store.HasCredentials(kind)
				if err != nil {
					return err
				}

				mark := "no"
				if stored {
					mark = "yes"
				}
				_, _ = fmt.Fprintf(w, "%s\t%d\t%s\n", kind, len(fields), mark)
			}
			return w.Flush()
		},
	}
}

type plain string

func (p plain) String() string { return string(p) }

func kindNames() []string {
	kinds := credentials.Kinds()
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = k.String()
	}
	return names
}

func unknownKind(id string, err error) error {
	return operrors.UserError{
		Message:    fmt.Sprintf("Unknown credential kind '%s'", id),
		Suggestion: "Run 'opscreds credentials list' to see the supported kinds",
		Err:        err,
	}
}
