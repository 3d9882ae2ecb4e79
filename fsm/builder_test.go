package fsm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildDerivesStatesInOrder(t *testing.T) {
	t.Parallel()

	def := mustBuild(t, lampBuilder("build-order", &callLog{}))

	assert.Equal(t, []lamp{lampOff, lampOn, lampBroken}, def.States())
	assert.Equal(t, []Edge[lamp]{
		{From: lampOff, To: lampOn},
		{From: lampOn, To: lampOff},
		{From: lampOn, To: lampBroken},
	}, def.Edges())
	assert.Equal(t, lampOff, def.Initial())
	assert.Equal(t, "build-order", def.Name())
	assert.True(t, def.IsTerminal(lampBroken))
	assert.False(t, def.IsTerminal(lampOn))

	rec, ok := def.Table().Record(lampOn)
	require.True(t, ok)
	assert.Equal(t, "turn_on", rec.Entry.Name)
	assert.Equal(t, "leave_on", rec.Exit.Name)
	assert.Equal(t, "has_power", rec.Guard.Name)
}

func TestBuildDuplicateEdgesAreIdempotent(t *testing.T) {
	t.Parallel()

	def := mustBuild(t, NewBuilder[lamp, string, *testData]("dup-edges").
		Initial(lampOff).
		Allow(lampOff, lampOn, lampOn).
		Transitions(Edge[lamp]{From: lampOff, To: lampOn}))

	assert.Len(t, def.Edges(), 1)
	assert.Equal(t, []lamp{lampOn}, def.Table().Destinations(lampOff))
}

func TestBuildErrors(t *testing.T) {
	t.Parallel()

	log := &callLog{}
	noop := log.action("noop")
	guard := log.powerGuard("guard")

	tests := []struct {
		name    string
		builder *Builder[lamp, string, *testData]
		want    []error
	}{
		{
			name:    "no transitions",
			builder: NewBuilder[lamp, string, *testData]("e1").Initial(lampOff),
			want:    []error{ErrNoTransitions},
		},
		{
			name:    "missing initial",
			builder: NewBuilder[lamp, string, *testData]("e2").Allow(lampOff, lampOn),
			want:    []error{ErrMissingInitialState},
		},
		{
			name:    "unknown initial",
			builder: NewBuilder[lamp, string, *testData]("e3").Initial(lampBroken).Allow(lampOff, lampOn),
			want:    []error{ErrUnknownInitialState},
		},
		{
			name: "duplicate entry action",
			builder: NewBuilder[lamp, string, *testData]("e4").Initial(lampOff).Allow(lampOff, lampOn).
				OnEntry(lampOn, "a", noop).OnEntry(lampOn, "b", noop),
			want: []error{ErrDuplicateEntryAction},
		},
		{
			name: "duplicate exit action",
			builder: NewBuilder[lamp, string, *testData]("e5").Initial(lampOff).Allow(lampOff, lampOn).
				OnExit(lampOff, "a", noop).Action(lampOff, "b", OnEntry|OnExit, noop),
			want: []error{ErrDuplicateExitAction},
		},
		{
			name: "duplicate guard",
			builder: NewBuilder[lamp, string, *testData]("e6").Initial(lampOff).Allow(lampOff, lampOn).
				Guard(lampOn, "g1", guard).Guard(lampOn, "g2", guard),
			want: []error{ErrDuplicateGuard},
		},
		{
			name: "action on undeclared state",
			builder: NewBuilder[lamp, string, *testData]("e7").Initial(lampOff).Allow(lampOff, lampOn).
				OnEntry(lampBroken, "a", noop),
			want: []error{ErrUndeclaredState},
		},
		{
			name: "guard on undeclared state",
			builder: NewBuilder[lamp, string, *testData]("e8").Initial(lampOff).Allow(lampOff, lampOn).
				Guard(lampBroken, "g", guard),
			want: []error{ErrUndeclaredState},
		},
		{
			name: "every conflict is reported",
			builder: NewBuilder[lamp, string, *testData]("e9").Initial(lampOff).Allow(lampOff, lampOn).
				OnEntry(lampOn, "a", noop).OnEntry(lampOn, "b", noop).
				Guard(lampOn, "g1", guard).Guard(lampOn, "g2", guard).
				OnExit(lampBroken, "c", noop),
			want: []error{ErrDuplicateEntryAction, ErrDuplicateGuard, ErrUndeclaredState},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			def, err := tt.builder.Build()
			require.Error(t, err)
			assert.Nil(t, def)
			require.ErrorIs(t, err, ErrConfiguration)

			for _, want := range tt.want {
				require.ErrorIs(t, err, want)
			}
		})
	}
}

func TestBuildConflictNamesBothBindings(t *testing.T) {
	t.Parallel()

	noop := func(context.Context, string, *testData) error { return nil }

	_, err := NewBuilder[lamp, string, *testData]("conflict").
		Initial(lampOff).
		Allow(lampOff, lampOn).
		OnEntry(lampOn, "first", noop).
		OnEntry(lampOn, "second", noop).
		Build()

	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "second", cfgErr.Binding)
	assert.Equal(t, "first", cfgErr.Conflict)
	assert.Equal(t, "on", cfgErr.State)
	assert.Contains(t, err.Error(), "conflicts with")
}

func TestMustBuildPanics(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() {
		NewBuilder[lamp, string, *testData]("panics").MustBuild()
	})
}

func TestFingerprint(t *testing.T) {
	t.Parallel()

	a := mustBuild(t, lampBuilder("fp", &callLog{}))
	b := mustBuild(t, lampBuilder("fp", &callLog{}))

	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
	assert.Len(t, a.Fingerprint(), 16)

	reordered := mustBuild(t, NewBuilder[lamp, string, *testData]("fp").
		Initial(lampOff).
		Allow(lampOn, lampBroken, lampOff).
		Allow(lampOff, lampOn).
		Guard(lampOn, "has_power", (&callLog{}).powerGuard("g")).
		OnExit(lampOff, "leave_off", (&callLog{}).action("x")).
		OnEntry(lampOff, "turn_off", (&callLog{}).action("x")).
		OnExit(lampOn, "leave_on", (&callLog{}).action("x")).
		OnEntry(lampOn, "turn_on", (&callLog{}).action("x")))
	assert.Equal(t, a.Fingerprint(), reordered.Fingerprint())

	changed := mustBuild(t, lampBuilder("fp", &callLog{}).Allow(lampBroken, lampOff))
	assert.NotEqual(t, a.Fingerprint(), changed.Fingerprint())
}

func TestBindingsBuiltWithoutDeclareAreChecked(t *testing.T) {
	t.Parallel()

	_, err := BuildTable(
		[]Edge[lamp]{{From: lampOff, To: lampOn}},
		[]ActionBinding[lamp, string, *testData]{{Name: "nil_fn", State: lampOn, Phase: OnEntry}},
		nil,
	)
	require.ErrorIs(t, err, ErrNilCallable)

	_, err = BuildTable[lamp, string, *testData](
		[]Edge[lamp]{{From: lampOff, To: ""}}, nil, nil)
	require.ErrorIs(t, err, ErrMissingState)
}

func TestDescribe(t *testing.T) {
	t.Parallel()

	def := mustBuild(t, lampBuilder("describe", &callLog{}))
	desc := def.Describe()

	assert.Equal(t, "describe", desc.Name)
	assert.Equal(t, "off", desc.Initial)
	assert.Equal(t, def.Fingerprint(), desc.Fingerprint)
	assert.Len(t, desc.Edges, 3)

	on, ok := desc.State("on")
	require.True(t, ok)
	assert.Equal(t, StateInfo{Name: "on", Entry: "turn_on", Exit: "leave_on", Guard: "has_power"}, on)

	broken, ok := desc.State("broken")
	require.True(t, ok)
	assert.True(t, broken.Terminal)

	_, ok = desc.State("missing")
	assert.False(t, ok)

	assert.Equal(t, []string{"off", "broken"}, desc.Outgoing("on"))
}
