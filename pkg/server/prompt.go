package server

import (
	"context"
	"fmt"

	"github.com/systmms/opscreds/pkg/serverkey"
)

// Option is one answer offered by a Question.
type Option struct {
	Label string
	Value string
}

// Question asks the user to pick one Option.
type Question struct {
	Field      serverkey.Field
	Message    string
	Options    []Option
	Searchable bool
}

// Chooser asks questions. Choose returns the Value of the selected option.
type Chooser interface {
	Choose(ctx context.Context, q Question) (string, error)
}

// Notifier is told about values picked without asking.
type Notifier interface {
	AutoSelected(field serverkey.Field, label string)
}

// AutoSelectionMessage renders the plain text announcement of an automatic selection.
func AutoSelectionMessage(field serverkey.Field, label string) string {
	return fmt.Sprintf("→ Automatic selection of the %s: %s", field, label)
}

func questionMessage(field serverkey.Field) string {
	switch field {
	case serverkey.FieldEnvironment, serverkey.FieldIndex:
		return fmt.Sprintf("Choose an %s:", field)
	}
	return fmt.Sprintf("Choose a %s:", field)
}
