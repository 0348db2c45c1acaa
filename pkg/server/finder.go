// Package server resolves partial server specifications against the
// inventory and runs commands on the selected server over ssh.
package server

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/samber/lo"

	operrors "github.com/systmms/opscreds/internal/errors"
	"github.com/systmms/opscreds/pkg/inventory"
	"github.com/systmms/opscreds/pkg/serverkey"
)

// NoEntriesError reports that no inventory entry matches the values supplied so far.
type NoEntriesError struct {
	Provider string
	Spec     serverkey.Specification
}

func (e *NoEntriesError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "No entries containing these values available in %s:\n\n", e.Provider)
	for _, f := range serverkey.Fields() {
		if e.Spec.IsSet(f) {
			fmt.Fprintf(&b, "%s: %s\n", f.Label(), e.Spec.Display(f))
		}
	}
	return b.String()
}

// DrilldownOptions tunes Drilldown.
type DrilldownOptions struct {
	// ShowProvided announces fields that were already set through the Notifier.
	ShowProvided bool
}

// Finder looks servers up in an inventory provider.
type Finder struct {
	provider inventory.Provider
	chooser  Chooser
	notifier Notifier
}

// NewFinder creates a finder. chooser and notifier are only used by Drilldown.
func NewFinder(provider inventory.Provider, chooser Chooser, notifier Notifier) *Finder {
	return &Finder{provider: provider, chooser: chooser, notifier: notifier}
}

// Provider returns the inventory provider
func (f *Finder) Provider() inventory.Provider {
	return f.provider
}

// Find returns the decoded keys of every server matching partial.
func (f *Finder) Find(ctx context.Context, partial serverkey.Specification) ([]serverkey.Specification, error) {
	pattern, err := serverkey.Pattern(partial)
	if err != nil {
		return nil, err
	}

	if err := f.ensureConnected(ctx); err != nil {
		return nil, err
	}

	servers, err := f.provider.ListServers(ctx)
	if err != nil {
		return nil, err
	}

	hostnames := lo.Filter(inventory.Hostnames(servers), func(hostname string, _ int) bool {
		return pattern.MatchString(hostname)
	})

	return serverkey.ParseEntries(hostnames), nil
}

// Drilldown narrows partial to a single complete specification. Fields are
// resolved in key order; a field with several candidates is asked through
// the Chooser, a field with a single candidate is selected automatically.
func (f *Finder) Drilldown(ctx context.Context, partial serverkey.Specification, opts DrilldownOptions) (serverkey.Specification, error) {
	entries, err := f.Find(ctx, partial)
	if err != nil {
		return serverkey.Specification{}, err
	}
	if len(entries) == 0 {
		return serverkey.Specification{}, &NoEntriesError{Provider: f.provider.Name(), Spec: partial}
	}

	spec := partial
	for _, field := range serverkey.Fields() {
		if spec.IsSet(field) {
			if opts.ShowProvided {
				f.notify(field, spec.Display(field))
			}
			continue
		}

		values := candidates(entries, field)
		switch len(values) {
		case 0:
			return serverkey.Specification{}, &NoEntriesError{Provider: f.provider.Name(), Spec: spec}

		case 1:
			if spec, err = spec.With(field, values[0]); err != nil {
				return serverkey.Specification{}, err
			}
			f.notify(field, spec.Display(field))

		default:
			answer, err := f.ask(ctx, field, values)
			if err != nil {
				return serverkey.Specification{}, err
			}
			if spec, err = spec.With(field, answer); err != nil {
				return serverkey.Specification{}, err
			}
		}

		entries = lo.Filter(entries, func(entry serverkey.Specification, _ int) bool {
			return entry.Value(field) == spec.Value(field)
		})
	}

	return spec, nil
}

// ServerList returns every inventory server as a selectable option.
func (f *Finder) ServerList(ctx context.Context) ([]Option, error) {
	if err := f.ensureConnected(ctx); err != nil {
		return nil, err
	}

	servers, err := f.provider.ListServers(ctx)
	if err != nil {
		return nil, err
	}

	return lo.Map(servers, func(s inventory.Server, _ int) Option {
		return Option{Label: fmt.Sprintf("[%s] %s", s.ProjectName, s.Hostname), Value: s.Hostname}
	}), nil
}

func (f *Finder) ensureConnected(ctx context.Context) error {
	return ensureEnrolled(ctx, f.provider)
}

// ensureEnrolled reports a missing enrollment as a user facing error.
func ensureEnrolled(ctx context.Context, provider inventory.Provider) error {
	err := inventory.EnsureEnrolled(ctx, provider)
	var notEnrolled inventory.NotEnrolledError
	if errors.As(err, &notEnrolled) {
		return operrors.NotConnected(notEnrolled.Provider, notEnrolled.EnrollCommand)
	}
	return err
}

func (f *Finder) ask(ctx context.Context, field serverkey.Field, values []string) (string, error) {
	if f.chooser == nil {
		return "", fmt.Errorf("several %s values match and no chooser is configured", field)
	}

	options := lo.Map(values, func(v string, _ int) Option {
		return Option{Label: displayValue(field, v), Value: v}
	})

	answer, err := f.chooser.Choose(ctx, Question{
		Field:      field,
		Message:    questionMessage(field),
		Options:    options,
		Searchable: field == serverkey.FieldProject,
	})
	if err != nil {
		return "", err
	}
	if !lo.Contains(values, answer) {
		return "", fmt.Errorf("%q is not one of the offered %s values", answer, field)
	}
	return answer, nil
}

func (f *Finder) notify(field serverkey.Field, label string) {
	if f.notifier != nil {
		f.notifier.AutoSelected(field, label)
	}
}

// candidates returns the distinct values of field across entries, enums in
// declaration order and free-form fields sorted.
func candidates(entries []serverkey.Specification, field serverkey.Field) []string {
	values := lo.Uniq(lo.Map(entries, func(entry serverkey.Specification, _ int) string {
		return entry.Value(field)
	}))

	sort.SliceStable(values, func(i, j int) bool {
		ri, rj := rank(field, values[i]), rank(field, values[j])
		if ri != rj {
			return ri < rj
		}
		return values[i] < values[j]
	})
	return values
}

// rank orders enum symbols by declaration; free-form values share rank 0.
func rank(field serverkey.Field, value string) int {
	switch field {
	case serverkey.FieldScope:
		s, _ := serverkey.ParseScope(value)
		return int(s)
	case serverkey.FieldEnvironment:
		e, _ := serverkey.ParseEnvironment(value)
		return int(e)
	case serverkey.FieldType:
		t, _ := serverkey.ParseType(value)
		return int(t)
	}
	return 0
}

func displayValue(field serverkey.Field, value string) string {
	spec, err := serverkey.Specification{}.With(field, value)
	if err != nil {
		return value
	}
	return spec.Display(field)
}
