package fakes

import (
	"context"
	"fmt"
	"sync"

	"github.com/systmms/opscreds/pkg/server"
	"github.com/systmms/opscreds/pkg/serverkey"
)

// FakeChooser answers questions from a scripted list and records them.
type FakeChooser struct {
	mu        sync.Mutex
	answers   []string
	Questions []server.Question

	// Err is returned by every Choose call when set.
	Err error
}

// NewFakeChooser creates a chooser returning answers in order.
func NewFakeChooser(answers ...string) *FakeChooser {
	return &FakeChooser{answers: answers}
}

func (f *FakeChooser) Choose(ctx context.Context, q server.Question) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Questions = append(f.Questions, q)
	if f.Err != nil {
		return "", f.Err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(f.answers) == 0 {
		return "", fmt.Errorf("fake chooser: unexpected question %q", q.Message)
	}

	answer := f.answers[0]
	f.answers = f.answers[1:]
	return answer, nil
}

// AutoSelection records one Notifier call.
type AutoSelection struct {
	Field serverkey.Field
	Label string
}

// FakeNotifier records automatic selections.
type FakeNotifier struct {
	mu         sync.Mutex
	Selections []AutoSelection
}

func (f *FakeNotifier) AutoSelected(field serverkey.Field, label string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Selections = append(f.Selections, AutoSelection{Field: field, Label: label})
}

// Messages renders the recorded selections as printed announcements.
func (f *FakeNotifier) Messages() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]string, len(f.Selections))
	for i, s := range f.Selections {
		out[i] = server.AutoSelectionMessage(s.Field, s.Label)
	}
	return out
}

var (
	_ server.Chooser  = (*FakeChooser)(nil)
	_ server.Notifier = (*FakeNotifier)(nil)
)
