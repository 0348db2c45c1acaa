package errors

import (
	"errors"
	"fmt"
	"strings"
)

// UserError represents an error that should be shown to the user with helpful context
type UserError struct {
	Message    string
	Suggestion string
	Details    string
	Err        error
}

func (e UserError) Error() string {
	var parts []string

	if e.Message != "" {
		parts = append(parts, e.Message)
	} else if e.Err != nil {
		parts = append(parts, e.Err.Error())
	}

	if e.Details != "" {
		parts = append(parts, "\n  Details: "+e.Details)
	}

	if e.Suggestion != "" {
		parts = append(parts, "\n  💡 Try: "+e.Suggestion)
	}

	return strings.Join(parts, "")
}

func (e UserError) Unwrap() error {
	return e.Err
}

// ConfigError represents a configuration error with helpful context
type ConfigError struct {
	Field      string
	Value      interface{}
	Message    string
	Suggestion string
}

func (e ConfigError) Error() string {
	msg := "Configuration error"
	if e.Field != "" {
		msg += fmt.Sprintf(" in field '%s'", e.Field)
	}
	if e.Value != nil {
		msg += fmt.Sprintf(" (value: %v)", e.Value)
	}
	msg += ": " + e.Message

	if e.Suggestion != "" {
		msg += "\n  💡 " + e.Suggestion
	}

	return msg
}

// CommandError represents a command execution error
type CommandError struct {
	Command    string
	ExitCode   int
	Message    string
	Suggestion string
}

func (e CommandError) Error() string {
	msg := fmt.Sprintf("Command '%s' failed", e.Command)
	if e.ExitCode != 0 {
		msg += fmt.Sprintf(" (exit code: %d)", e.ExitCode)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}

	if e.Suggestion != "" {
		msg += "\n  💡 " + e.Suggestion
	}

	return msg
}

// ProviderError enhances provider-specific errors with context
func ProviderError(provider string, operation string, err error) error {
	suggestion := getProviderSuggestion(provider, err)

	return UserError{
		Message:    fmt.Sprintf("%s provider error during %s", provider, operation),
		Suggestion: suggestion,
		Err:        err,
	}
}

// NotConnected reports that the inventory provider has no enrolled session
func NotConnected(provider, enrollCommand string) error {
	return UserError{
		Message:    fmt.Sprintf("You are not connected to %s", provider),
		Suggestion: fmt.Sprintf("Please run '%s'", enrollCommand),
	}
}

// getProviderSuggestion returns helpful suggestions based on provider and error
func getProviderSuggestion(provider string, err error) string {
	errStr := err.Error()

	switch strings.ToLower(provider) {
	case "asa", "sft":
		if strings.Contains(errStr, "not enrolled") || strings.Contains(errStr, "enroll") {
			return "Run 'sft enroll' to register this device with ASA"
		}
		if strings.Contains(errStr, "not logged in") || strings.Contains(errStr, "login") {
			return "Run 'sft login' to open a new ASA session"
		}
		if strings.Contains(errStr, "executable file not found") || strings.Contains(errStr, "command not found") {
			return "Install the ScaleFT client: https://help.okta.com/asa/en-us/content/topics/adv_server_access/docs/client.htm"
		}

	case "keyring", "keychain":
		if strings.Contains(errStr, "locked") {
			return "Unlock your login keychain (or gnome-keyring) and try again"
		}
		if strings.Contains(errStr, "org.freedesktop.secrets") || strings.Contains(errStr, "dbus") {
			return "No Secret Service is running. Start gnome-keyring or use 'store: {type: file}'"
		}

	case "static":
		if strings.Contains(errStr, "no such file") {
			return "Check the 'inventory.path' entry of your opscreds.yaml"
		}

	case "mysql":
		if strings.Contains(errStr, "Access denied") {
			return "Verify the database username and password"
		}
		if strings.Contains(errStr, "Unknown database") {
			return "Check the database name with 'SHOW DATABASES'"
		}
	}

	// Generic suggestions
	if strings.Contains(errStr, "timeout") {
		return "The operation timed out. Check your network connection and try again"
	}
	if strings.Contains(errStr, "connection refused") || strings.Contains(errStr, "no such host") {
		return "Unable to connect. Check your network and provider configuration"
	}

	return ""
}

// WrapCommandNotFound wraps command not found errors with helpful suggestions
func WrapCommandNotFound(command string, err error) error {
	suggestions := map[string]string{
		"sft":        "Install the ScaleFT client and run 'sft enroll'",
		"ssh":        "Install an OpenSSH client (openssh-client, brew install openssh)",
		"scp":        "Install an OpenSSH client (openssh-client, brew install openssh)",
		"mysql":      "Install the MySQL client tools (mysql-client, brew install mysql-client)",
		"mysqldump":  "Install the MySQL client tools (mysql-client, brew install mysql-client)",
		"mysqlcheck": "Install the MySQL client tools (mysql-client, brew install mysql-client)",
		"bash":       "Process substitution requires bash; install it and make sure it is in your PATH",
	}

	suggestion := suggestions[command]
	if suggestion == "" {
		suggestion = fmt.Sprintf("Make sure '%s' is installed and in your PATH", command)
	}

	msg := "command not found"
	if err != nil {
		msg = fmt.Sprintf("command not found (%v)", err)
	}

	return CommandError{
		Command:    command,
		Message:    msg,
		Suggestion: suggestion,
	}
}

// SimplifyError simplifies complex error messages for users
func SimplifyError(err error) error {
	if err == nil {
		return nil
	}

	// Already a user-friendly error
	var userErr UserError
	var configErr ConfigError
	var commandErr CommandError
	if errors.As(err, &userErr) || errors.As(err, &configErr) || errors.As(err, &commandErr) {
		return err
	}

	// Unwrap to get the root cause
	rootErr := err
	for {
		unwrapped := errors.Unwrap(rootErr)
		if unwrapped == nil {
			break
		}
		rootErr = unwrapped
	}

	errStr := rootErr.Error()

	if strings.Contains(errStr, "unable to decrypt credential field") {
		return UserError{
			Message:    "Stored credentials cannot be decrypted on this machine",
			Suggestion: "Credentials are bound to the machine that saved them. Run 'opscreds credentials set' again",
			Err:        err,
		}
	}

	if strings.Contains(errStr, "selection cancelled") {
		return UserError{
			Message: "Server selection cancelled",
			Err:     err,
		}
	}

	if strings.Contains(errStr, "context deadline exceeded") {
		return UserError{
			Message:    "Operation timed out",
			Suggestion: "Check your network connection or raise 'inventory.timeout_ms' in opscreds.yaml",
			Err:        err,
		}
	}

	if strings.Contains(errStr, "yaml:") {
		return ConfigError{
			Message:    "Invalid YAML format",
			Suggestion: "Check for indentation errors and missing quotes",
		}
	}

	if strings.Contains(errStr, "permission denied") {
		return UserError{
			Message:    "Permission denied",
			Suggestion: "Check file permissions or run with appropriate privileges",
			Err:        err,
		}
	}

	if strings.Contains(errStr, "no such file or directory") {
		return UserError{
			Message:    "File or directory not found",
			Suggestion: "Verify the path exists and is spelled correctly",
			Err:        err,
		}
	}

	return err
}
