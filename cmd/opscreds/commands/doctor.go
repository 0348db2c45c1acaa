package commands

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/systmms/opscreds/pkg/credentials"
)

// Check statuses
const (
	statusOK      = "ok"
	statusWarning = "warning"
	statusError   = "error"
)

// CheckResult is one line of the doctor report.
type CheckResult struct {
	Name    string
	Status  string
	Message string
}

// requiredTools must be installed; optionalTools only matter to the database commands.
var (
	requiredTools = []string{"bash", "ssh", "scp"}
	optionalTools = []string{"mysql", "mysqldump", "mysqlcheck"}
)

func NewDoctorCommand(rt *Runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check configuration, inventory access and required tools",
		Long: `Verify that opscreds can do its job on this machine.

This command checks:
- Configuration file validity
- Inventory enrolment
- ssh, scp and the MySQL clients
- Access to the credential store`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			results := runChecks(cmd, rt)
			displayCheckResults(cmd.OutOrStdout(), results)

			passed, failed := 0, 0
			for _, r := range results {
				switch r.Status {
				case statusOK:
					passed++
				case statusError:
					failed++
				}
			}

			fmt.Fprintf(cmd.OutOrStdout(), "\nSummary: %d/%d checks passed\n", passed, len(results))
			if failed > 0 {
				return fmt.Errorf("%d check(s) failed", failed)
			}

			rt.logger().Info("All systems operational!")
			return nil
		},
	}

	return cmd
}

func runChecks(cmd *cobra.Command, rt *Runtime) []CheckResult {
	var results []CheckResult

	if err := rt.load(); err != nil {
		return append(results, CheckResult{Name: "configuration", Status: statusError, Message: err.Error()})
	}
	results = append(results, CheckResult{Name: "configuration", Status: statusOK, Message: configMessage(rt)})

	results = append(results, checkInventory(cmd, rt))

	tools := requiredTools
	if rt.Config.Definition.Inventory.Type == "asa" {
		tools = append(append([]string{}, tools...), rt.Config.Definition.Inventory.String("sft_path", "sft"))
	}
	for _, tool := range tools {
		results = append(results, checkTool(rt, tool, statusError))
	}
	for _, tool := range optionalTools {
		results = append(results, checkTool(rt, tool, statusWarning))
	}

	return append(results, checkStore(rt))
}

func configMessage(rt *Runtime) string {
	return fmt.Sprintf("inventory %s, store %s", rt.Config.Definition.Inventory.Type, rt.Config.Definition.Store.Type)
}

func checkInventory(cmd *cobra.Command, rt *Runtime) CheckResult {
	result := CheckResult{Name: "inventory"}

	p, err := rt.provider()
	if err != nil {
		result.Status, result.Message = statusError, err.Error()
		return result
	}

	enrolled, err := p.IsEnrolled(cmd.Context())
	switch {
	case err != nil:
		result.Status, result.Message = statusError, err.Error()
	case !enrolled:
		result.Status = statusError
		result.Message = fmt.Sprintf("not connected to %s, run '%s'", p.Name(), p.EnrollCommand())
	default:
		result.Status, result.Message = statusOK, fmt.Sprintf("connected to %s", p.Name())
	}
	return result
}

func checkTool(rt *Runtime, tool, missing string) CheckResult {
	result := CheckResult{Name: tool}

	if rt.LookPath == nil {
		result.Status, result.Message = statusWarning, "not checked"
		return result
	}

	path, err := rt.LookPath(tool)
	if err != nil {
		result.Status, result.Message = missing, "not found in PATH"
		return result
	}

	result.Status, result.Message = statusOK, path
	return result
}

func checkStore(rt *Runtime) CheckResult {
	result := CheckResult{Name: "credential store"}

	store, err := rt.store()
	if err != nil {
		result.Status, result.Message = statusError, err.Error()
		return result
	}
	defer store.Close()

	stored := 0
	for _, kind := range credentials.Kinds() {
		ok, err := store.HasCredentials(kind)
		if err != nil {
			result.Status, result.Message = statusError, err.Error()
			return result
		}
		if ok {
			stored++
		}
	}

	result.Status = statusOK
	result.Message = fmt.Sprintf("%d/%d kind(s) stored", stored, len(credentials.Kinds()))
	return result
}

// displayCheckResults shows the checks in a formatted table
func displayCheckResults(out io.Writer, results []CheckResult) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	_, _ = fmt.Fprintf(w, "CHECK\tSTATUS\tMESSAGE\n")
	_, _ = fmt.Fprintf(w, "-----\t------\t-------\n")

	for _, r := range results {
		status := r.Status
		switch r.Status {
		case statusOK:
			status = "✓ " + status
		case statusError:
			status = "✗ " + status
		default:
			status = "⚠ " + status
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", r.Name, status, r.Message)
	}

	_ = w.Flush()
}
