package server_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	operrors "github.com/systmms/opscreds/internal/errors"
	"github.com/systmms/opscreds/pkg/server"
	"github.com/systmms/opscreds/pkg/serverkey"
	"github.com/systmms/opscreds/tests/fakes"
)

var fleet = []string{
	"internal-acme-staging-web-03",
	"internal-acme-production-web-00",
	"internal-acme-production-database-00",
	"client-shop-production-web-00",
	"client-shop-production-web-01",
	"client-zoo-demo-web-00",
	"bastion.example.com",
	"client-shop-production-web-1",
}

func newInventory() *fakes.FakeInventory {
	return fakes.NewFakeInventory("ASA").WithServers(fleet...).WithAccount("ops", "jdoe")
}

func TestFind(t *testing.T) {
	t.Parallel()

	finder := server.NewFinder(newInventory(), nil, nil)

	tests := []struct {
		name    string
		partial serverkey.Specification
		want    []string
	}{
		{
			name:    "everything",
			partial: serverkey.Specification{},
			want: []string{
				"internal-acme-staging-web-03",
				"internal-acme-production-web-00",
				"internal-acme-production-database-00",
				"client-shop-production-web-00",
				"client-shop-production-web-01",
				"client-zoo-demo-web-00",
			},
		},
		{
			name:    "by_project",
			partial: serverkey.Specification{Project: "shop"},
			want:    []string{"client-shop-production-web-00", "client-shop-production-web-01"},
		},
		{
			name:    "by_type",
			partial: serverkey.Specification{Type: serverkey.TypeDatabase},
			want:    []string{"internal-acme-production-database-00"},
		},
		{
			name:    "no_match",
			partial: serverkey.Specification{Environment: serverkey.EnvironmentIntegration},
			want:    []string{},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			specs, err := finder.Find(context.Background(), tt.partial)
			require.NoError(t, err)

			keys := make([]string, 0, len(specs))
			for _, s := range specs {
				key, err := s.Key()
				require.NoError(t, err)
				keys = append(keys, key)
			}
			assert.Equal(t, tt.want, keys)
		})
	}
}

func TestFind_InvalidPartial(t *testing.T) {
	t.Parallel()

	inv := newInventory()
	finder := server.NewFinder(inv, nil, nil)

	_, err := finder.Find(context.Background(), serverkey.Specification{Project: "Acme"})
	var verr *serverkey.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, 0, inv.CallCount("ListServers"))
}

func TestFind_NotEnrolled(t *testing.T) {
	t.Parallel()

	finder := server.NewFinder(newInventory().WithEnrolled(false), nil, nil)

	_, err := finder.Find(context.Background(), serverkey.Specification{})
	var userErr operrors.UserError
	require.True(t, errors.As(err, &userErr))
	assert.Equal(t, "You are not connected to ASA", userErr.Message)
	assert.Contains(t, userErr.Suggestion, "sft enroll")
}

func TestFind_ProviderFailure(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	finder := server.NewFinder(newInventory().WithError("ListServers", boom), nil, nil)

	_, err := finder.Find(context.Background(), serverkey.Specification{})
	assert.ErrorIs(t, err, boom)
}

func TestDrilldown_AllAutomatic(t *testing.T) {
	t.Parallel()

	chooser := fakes.NewFakeChooser()
	notifier := &fakes.FakeNotifier{}
	finder := server.NewFinder(newInventory(), chooser, notifier)

	spec, err := finder.Drilldown(context.Background(), serverkey.Specification{Project: "zoo"}, server.DrilldownOptions{})
	require.NoError(t, err)

	key, err := spec.Key()
	require.NoError(t, err)
	assert.Equal(t, "client-zoo-demo-web-00", key)
	assert.Empty(t, chooser.Questions)
	assert.Equal(t, []string{
		"→ Automatic selection of the scope: Client",
		"→ Automatic selection of the environment: Demo",
		"→ Automatic selection of the type: Web",
		"→ Automatic selection of the index: 00",
	}, notifier.Messages())
}

func TestDrilldown_ShowProvided(t *testing.T) {
	t.Parallel()

	notifier := &fakes.FakeNotifier{}
	finder := server.NewFinder(newInventory(), fakes.NewFakeChooser(), notifier)

	_, err := finder.Drilldown(context.Background(), serverkey.Specification{Project: "zoo"}, server.DrilldownOptions{ShowProvided: true})
	require.NoError(t, err)

	require.Len(t, notifier.Selections, 5)
	assert.Equal(t, fakes.AutoSelection{Field: serverkey.FieldProject, Label: "zoo"}, notifier.Selections[1])
}

func TestDrilldown_AsksWhenAmbiguous(t *testing.T) {
	t.Parallel()

	chooser := fakes.NewFakeChooser("internal", "production", "database")
	notifier := &fakes.FakeNotifier{}
	finder := server.NewFinder(newInventory(), chooser, notifier)

	spec, err := finder.Drilldown(context.Background(), serverkey.Specification{}, server.DrilldownOptions{})
	require.NoError(t, err)

	key, err := spec.Key()
	require.NoError(t, err)
	assert.Equal(t, "internal-acme-production-database-00", key)

	require.Len(t, chooser.Questions, 3)

	scope := chooser.Questions[0]
	assert.Equal(t, serverkey.FieldScope, scope.Field)
	assert.Equal(t, "Choose a scope:", scope.Message)
	assert.Equal(t, []server.Option{{Label: "Client", Value: "client"}, {Label: "Internal", Value: "internal"}}, scope.Options)
	assert.False(t, scope.Searchable)

	env := chooser.Questions[1]
	assert.Equal(t, "Choose an environment:", env.Message)
	assert.Equal(t, []server.Option{{Label: "Staging", Value: "staging"}, {Label: "Production", Value: "production"}}, env.Options)

	typ := chooser.Questions[2]
	assert.Equal(t, "Choose a type:", typ.Message)
	assert.Equal(t, []server.Option{{Label: "Web", Value: "web"}, {Label: "Database", Value: "database"}}, typ.Options)

	assert.Equal(t, []string{
		"→ Automatic selection of the project: acme",
		"→ Automatic selection of the index: 00",
	}, notifier.Messages())
}

func TestDrilldown_ProjectQuestionIsSearchableAndSorted(t *testing.T) {
	t.Parallel()

	chooser := fakes.NewFakeChooser("zoo")
	finder := server.NewFinder(newInventory(), chooser, nil)

	spec, err := finder.Drilldown(context.Background(), serverkey.Specification{Scope: serverkey.ScopeClient}, server.DrilldownOptions{})
	require.NoError(t, err)
	assert.Equal(t, "zoo", spec.Project)

	require.Len(t, chooser.Questions, 1)
	q := chooser.Questions[0]
	assert.True(t, q.Searchable)
	assert.Equal(t, []server.Option{{Label: "shop", Value: "shop"}, {Label: "zoo", Value: "zoo"}}, q.Options)
}

func TestDrilldown_IndexSorted(t *testing.T) {
	t.Parallel()

	inv := fakes.NewFakeInventory("ASA").WithServers(
		"client-shop-production-web-07",
		"client-shop-production-web-01",
		"client-shop-production-web-03",
	)
	chooser := fakes.NewFakeChooser("03")
	finder := server.NewFinder(inv, chooser, nil)

	spec, err := finder.Drilldown(context.Background(), serverkey.Specification{}, server.DrilldownOptions{})
	require.NoError(t, err)
	assert.Equal(t, "03", spec.Index)

	require.Len(t, chooser.Questions, 1)
	assert.Equal(t, "Choose an index:", chooser.Questions[0].Message)
	assert.Equal(t, []server.Option{
		{Label: "01", Value: "01"},
		{Label: "03", Value: "03"},
		{Label: "07", Value: "07"},
	}, chooser.Questions[0].Options)
}

func TestDrilldown_NoEntries(t *testing.T) {
	t.Parallel()

	chooser := fakes.NewFakeChooser()
	finder := server.NewFinder(newInventory(), chooser, nil)

	_, err := finder.Drilldown(context.Background(), serverkey.Specification{
		Scope:   serverkey.ScopeClient,
		Project: "acme",
	}, server.DrilldownOptions{})

	var noEntries *server.NoEntriesError
	require.True(t, errors.As(err, &noEntries))
	assert.Equal(t, "No entries containing these values available in ASA:\n\nScope: Client\nProject: acme\n", err.Error())
	assert.Empty(t, chooser.Questions)
}

func TestDrilldown_ChooserErrors(t *testing.T) {
	t.Parallel()

	cancelled := errors.New("cancelled")
	chooser := fakes.NewFakeChooser()
	chooser.Err = cancelled

	finder := server.NewFinder(newInventory(), chooser, nil)
	_, err := finder.Drilldown(context.Background(), serverkey.Specification{}, server.DrilldownOptions{})
	assert.ErrorIs(t, err, cancelled)
}

func TestDrilldown_RejectsUnofferedAnswer(t *testing.T) {
	t.Parallel()

	finder := server.NewFinder(newInventory(), fakes.NewFakeChooser("partner"), nil)
	_, err := finder.Drilldown(context.Background(), serverkey.Specification{}, server.DrilldownOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not one of the offered scope values")
}

func TestDrilldown_NoChooser(t *testing.T) {
	t.Parallel()

	finder := server.NewFinder(newInventory(), nil, nil)
	_, err := finder.Drilldown(context.Background(), serverkey.Specification{}, server.DrilldownOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no chooser is configured")
}

func TestServerList(t *testing.T) {
	t.Parallel()

	inv := fakes.NewFakeInventory("ASA").
		WithServer(inventoryServer("internal-acme-staging-web-03", "acme")).
		WithServer(inventoryServer("bastion", "infra"))

	options, err := server.NewFinder(inv, nil, nil).ServerList(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []server.Option{
		{Label: "[acme] internal-acme-staging-web-03", Value: "internal-acme-staging-web-03"},
		{Label: "[infra] bastion", Value: "bastion"},
	}, options)
}

func TestServerList_NotEnrolled(t *testing.T) {
	t.Parallel()

	_, err := server.NewFinder(newInventory().WithEnrolled(false), nil, nil).ServerList(context.Background())
	assert.Error(t, err)
}
