package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	clog "github.com/charmbracelet/log"
)

// Logger provides leveled logging with redaction support.
// Output goes to stderr so command output on stdout stays pipeable.
type Logger struct {
	debug   bool
	noColor bool
	l       *clog.Logger
}

// New creates a new logger instance writing to stderr
func New(debug, noColor bool) *Logger {
	return NewWithWriter(os.Stderr, debug, noColor)
}

// NewWithWriter creates a logger writing to w. Used by tests to capture output.
func NewWithWriter(w io.Writer, debug, noColor bool) *Logger {
	l := clog.NewWithOptions(w, clog.Options{
		ReportTimestamp: false,
		Level:           clog.InfoLevel,
	})
	if debug {
		l.SetLevel(clog.DebugLevel)
	}
	l.SetStyles(levelStyles(noColor))

	return &Logger{
		debug:   debug,
		noColor: noColor,
		l:       l,
	}
}

// levelStyles replaces the level prefixes with the ✓ ⚠ ✗ markers used across the CLI
func levelStyles(noColor bool) *clog.Styles {
	styles := clog.DefaultStyles()

	marker := func(symbol, color string) lipgloss.Style {
		st := lipgloss.NewStyle().SetString(symbol)
		if !noColor {
			st = st.Foreground(lipgloss.Color(color))
		}
		return st
	}

	styles.Levels[clog.DebugLevel] = marker("[DEBUG]", "6")
	styles.Levels[clog.InfoLevel] = marker("✓", "2")
	styles.Levels[clog.WarnLevel] = marker("⚠", "3")
	styles.Levels[clog.ErrorLevel] = marker("✗", "1")

	return styles
}

// Info logs an informational message
func (l *Logger) Info(format string, args ...interface{}) {
	l.l.Info(fmt.Sprintf(format, args...))
}

// Warn logs a warning message
func (l *Logger) Warn(format string, args ...interface{}) {
	l.l.Warn(fmt.Sprintf(format, args...))
}

// Error logs an error message
func (l *Logger) Error(format string, args ...interface{}) {
	l.l.Error(fmt.Sprintf(format, args...))
}

// Debug logs a debug message if debug mode is enabled
func (l *Logger) Debug(format string, args ...interface{}) {
	if !l.debug {
		return
	}
	l.l.Debug(fmt.Sprintf(format, args...))
}

// IsDebug reports whether debug output is enabled
func (l *Logger) IsDebug() bool {
	return l.debug
}

// NoColor reports whether colored output is disabled
func (l *Logger) NoColor() bool {
	return l.noColor
}

// Secret represents a value that should be redacted in logs
type Secret string

// String implements the Stringer interface, always returning a redacted value
func (s Secret) String() string {
	return "[REDACTED]"
}

// GoString implements the GoStringer interface for %#v formatting
func (s Secret) GoString() string {
	return "[REDACTED]"
}

// Redact replaces sensitive values in a string with [REDACTED]
func Redact(s string, secrets []string) string {
	result := s
	for _, secret := range secrets {
		if secret != "" && len(secret) > 3 { // Only redact non-trivial secrets
			result = strings.ReplaceAll(result, secret, "[REDACTED]")
		}
	}
	return result
}
