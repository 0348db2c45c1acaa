// Package exec provides abstractions for command execution.
// Server and database helpers build shell command lines and hand them to a
// CommandExecutor, so tests can record them instead of spawning ssh or mysql.
package exec

import (
	"bytes"
	"context"
	"os"
	"os/exec"
)

// Shell is the interpreter used for built command lines. Bash is required for
// the process substitution in the mysql credential blocks.
const Shell = "bash"

// CommandExecutor defines an interface for executing shell commands.
type CommandExecutor interface {
	// Execute runs a command with the given context and arguments.
	// Returns stdout, stderr, and any error that occurred.
	Execute(ctx context.Context, name string, args ...string) (stdout []byte, stderr []byte, err error)

	// Attach runs a command connected to the caller's terminal and waits for it.
	Attach(ctx context.Context, name string, args ...string) error
}

// ShellArgs returns the arguments that make Shell run command.
func ShellArgs(command string) []string {
	return []string{"-c", command}
}

// RunShell executes a built command line through Shell.
func RunShell(ctx context.Context, executor CommandExecutor, command string) ([]byte, []byte, error) {
	return executor.Execute(ctx, Shell, ShellArgs(command)...)
}

// AttachShell runs a built command line through Shell on the caller's terminal.
func AttachShell(ctx context.Context, executor CommandExecutor, command string) error {
	return executor.Attach(ctx, Shell, ShellArgs(command)...)
}

// RealCommandExecutor executes actual shell commands using os/exec.
type RealCommandExecutor struct{}

// Execute runs an actual shell command.
func (r *RealCommandExecutor) Execute(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

// Attach runs the command with inherited stdio.
func (r *RealCommandExecutor) Attach(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// DefaultExecutor returns the standard production executor.
func DefaultExecutor() CommandExecutor {
	return &RealCommandExecutor{}
}
