// Package prompt implements the terminal side of server selection: a
// bubbletea list for interactive sessions, a chooser that fails with a hint
// for scripted ones, the auto-selection notifier and hidden secret input.
package prompt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	operrors "github.com/systmms/opscreds/internal/errors"
	"github.com/systmms/opscreds/pkg/server"
	"github.com/systmms/opscreds/pkg/serverkey"
)

// ErrCancelled is returned when the user leaves a prompt without choosing.
var ErrCancelled = errors.New("selection cancelled")

// Chooser asks questions with an interactive list.
type Chooser struct {
	in      io.Reader
	out     io.Writer
	noColor bool
}

// NewChooser creates a chooser reading keys from in and drawing on out.
func NewChooser(in io.Reader, out io.Writer, noColor bool) *Chooser {
	return &Chooser{in: in, out: out, noColor: noColor}
}

func (c *Chooser) Choose(ctx context.Context, q server.Question) (string, error) {
	if len(q.Options) == 0 {
		return "", fmt.Errorf("nothing to choose for %s", q.Field)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	p := tea.NewProgram(
		newSelectModel(q, newStyles(c.noColor)),
		tea.WithInput(c.in),
		tea.WithOutput(c.out),
		tea.WithContext(ctx),
	)

	final, err := p.Run()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", fmt.Errorf("prompt failed: %w", err)
	}

	result, ok := final.(selectModel)
	if !ok || !result.done {
		return "", ErrCancelled
	}
	return result.choice, nil
}

// NonInteractive refuses every question. It is used with --non-interactive
// or when stdin is not a terminal.
type NonInteractive struct{}

func (NonInteractive) Choose(_ context.Context, q server.Question) (string, error) {
	values := make([]string, len(q.Options))
	for i, opt := range q.Options {
		values[i] = opt.Value
	}

	return "", operrors.UserError{
		Message:    fmt.Sprintf("Several %s values match", q.Field),
		Details:    "Candidates: " + strings.Join(values, ", "),
		Suggestion: fmt.Sprintf("Pass --%s to pick one, or run the command in a terminal", q.Field),
	}
}

// Notifier prints automatic selections.
type Notifier struct {
	out   io.Writer
	arrow lipgloss.Style
	value lipgloss.Style
}

// NewNotifier creates a notifier writing to out.
func NewNotifier(out io.Writer, noColor bool) *Notifier {
	n := &Notifier{out: out, arrow: lipgloss.NewStyle(), value: lipgloss.NewStyle()}
	if !noColor {
		n.arrow = n.arrow.Foreground(lipgloss.Color("6"))
		n.value = n.value.Bold(true)
	}
	return n
}

func (n *Notifier) AutoSelected(field serverkey.Field, label string) {
	fmt.Fprintf(n.out, "%s Automatic selection of the %s: %s\n", n.arrow.Render("→"), field, n.value.Render(label))
}

var (
	_ server.Chooser  = (*Chooser)(nil)
	_ server.Chooser  = NonInteractive{}
	_ server.Notifier = (*Notifier)(nil)
)
