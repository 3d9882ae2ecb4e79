package fsm

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMachineStartsInInitialState(t *testing.T) {
	t.Parallel()

	def := mustBuild(t, lampBuilder("initial", &callLog{}))
	m := def.NewMachine()

	assert.Equal(t, lampOff, m.State())
	assert.NotEmpty(t, m.ID())
	assert.Same(t, def, m.Definition())
	assert.NotEqual(t, m.ID(), def.NewMachine().ID())
	assert.Equal(t, "fixed", def.NewMachine(WithID("fixed")).ID())
}

func TestTransitionSuccess(t *testing.T) {
	t.Parallel()

	log := &callLog{}
	m := mustBuild(t, lampBuilder("success", log)).NewMachine()

	state, err := m.Transition(t.Context(), lampOn, "flip", &testData{Power: true})
	require.NoError(t, err)
	assert.Equal(t, lampOn, state)
	assert.Equal(t, lampOn, m.State())
	assert.Equal(t, []string{"guard:on", "exit:off", "enter:on"}, log.get())
}

func TestTransitionPassesEventAndData(t *testing.T) {
	t.Parallel()

	var (
		gotEvent string
		gotData  *testData
	)

	data := &testData{}

	m := mustBuild(t, NewBuilder[lamp, string, *testData]("args").
		Initial(lampOff).
		Allow(lampOff, lampOn).
		OnEntry(lampOn, "capture", func(_ context.Context, event string, d *testData) error {
			gotEvent, gotData = event, d

			return nil
		})).NewMachine()

	_, err := m.Transition(t.Context(), lampOn, "switch-pressed", data)
	require.NoError(t, err)
	assert.Equal(t, "switch-pressed", gotEvent)
	assert.Same(t, data, gotData)
}

func TestTransitionInvalid(t *testing.T) {
	t.Parallel()

	log := &callLog{}
	m := mustBuild(t, lampBuilder("invalid", log)).NewMachine()

	state, err := m.Transition(t.Context(), lampBroken, "smash", &testData{Power: true})
	require.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, lampOff, state)
	assert.Equal(t, lampOff, m.State())
	assert.Empty(t, log.get())

	var trErr *TransitionError
	require.ErrorAs(t, err, &trErr)
	assert.Equal(t, "invalid", trErr.Machine)
	assert.Equal(t, "off", trErr.From)
	assert.Equal(t, "broken", trErr.To)
}

func TestTransitionFromTerminalState(t *testing.T) {
	t.Parallel()

	m := mustBuild(t, lampBuilder("terminal", &callLog{})).NewMachine()
	data := &testData{Power: true}

	_, err := m.Transition(t.Context(), lampOn, "flip", data)
	require.NoError(t, err)

	_, err = m.Transition(t.Context(), lampBroken, "smash", data)
	require.NoError(t, err)
	assert.True(t, m.IsTerminal())
	assert.Empty(t, m.Destinations())

	state, err := m.Transition(t.Context(), lampOff, "flip", data)
	require.ErrorIs(t, err, ErrInvalidState)
	assert.Equal(t, lampBroken, state)
}

func TestTransitionGuardRejects(t *testing.T) {
	t.Parallel()

	log := &callLog{}
	m := mustBuild(t, lampBuilder("guard-rejects", log)).NewMachine()

	state, err := m.Transition(t.Context(), lampOn, "flip", &testData{Power: false})
	require.ErrorIs(t, err, ErrGuardRejected)
	assert.Equal(t, lampOff, state)
	assert.Equal(t, []string{"guard:on"}, log.get(), "no action may run after a rejection")
}

func TestTransitionGuardContract(t *testing.T) {
	t.Parallel()

	m := mustBuild(t, NewBuilder[lamp, string, *testData]("guard-contract").
		Initial(lampOff).
		Allow(lampOff, lampOn).
		Guard(lampOn, "undecided", func(context.Context, *testData) (bool, error) {
			return false, ErrGuardContract
		})).NewMachine()

	_, err := m.Transition(t.Context(), lampOn, "flip", nil)
	require.ErrorIs(t, err, ErrGuardContract)
	assert.NotErrorIs(t, err, ErrGuardRejected)
	assert.Equal(t, lampOff, m.State())
}

func TestTransitionGuardError(t *testing.T) {
	t.Parallel()

	errLookup := errors.New("lookup failed")

	m := mustBuild(t, NewBuilder[lamp, string, *testData]("guard-error").
		Initial(lampOff).
		Allow(lampOff, lampOn).
		Guard(lampOn, "remote", func(context.Context, *testData) (bool, error) {
			return false, errLookup
		})).NewMachine()

	_, err := m.Transition(t.Context(), lampOn, "flip", nil)
	require.ErrorIs(t, err, errLookup)
	assert.Contains(t, err.Error(), `guard "remote"`)
	assert.Equal(t, lampOff, m.State())
}

func TestTransitionExitActionFailure(t *testing.T) {
	t.Parallel()

	log := &callLog{}
	m := mustBuild(t, NewBuilder[lamp, string, *testData]("exit-fails").
		Initial(lampOff).
		Allow(lampOff, lampOn).
		OnExit(lampOff, "leave_off", log.failing("exit:off")).
		OnEntry(lampOn, "turn_on", log.action("enter:on"))).NewMachine()

	state, err := m.Transition(t.Context(), lampOn, "flip", nil)
	require.ErrorIs(t, err, ErrActionFailed)
	require.ErrorIs(t, err, errTestAction)
	assert.Equal(t, lampOff, state)
	assert.Equal(t, []string{"exit:off"}, log.get())

	var actErr *ActionError
	require.ErrorAs(t, err, &actErr)
	assert.Equal(t, "leave_off", actErr.Action)
	assert.Equal(t, "off", actErr.State)
	assert.Equal(t, OnExit, actErr.Phase)
}

func TestTransitionEntryActionFailure(t *testing.T) {
	t.Parallel()

	log := &callLog{}
	m := mustBuild(t, NewBuilder[lamp, string, *testData]("entry-fails").
		Initial(lampOff).
		Allow(lampOff, lampOn).
		OnExit(lampOff, "leave_off", log.action("exit:off")).
		OnEntry(lampOn, "turn_on", log.failing("enter:on"))).NewMachine()

	state, err := m.Transition(t.Context(), lampOn, "flip", nil)
	require.ErrorIs(t, err, ErrActionFailed)
	assert.Equal(t, lampOff, state, "state is not committed when the entry action fails")
	assert.Equal(t, []string{"exit:off", "enter:on"}, log.get())

	_, err = m.Transition(t.Context(), lampOn, "flip", nil)
	require.ErrorIs(t, err, ErrActionFailed, "machine stays usable after a failure")
}

func TestActionBoundToBothPhases(t *testing.T) {
	t.Parallel()

	log := &callLog{}
	m := mustBuild(t, NewBuilder[lamp, string, *testData]("both-phases").
		Initial(lampOff).
		Allow(lampOff, lampOn).
		Allow(lampOn, lampOff).
		Action(lampOn, "blink", OnEntry|OnExit, log.action("blink"))).NewMachine()

	_, err := m.Transition(t.Context(), lampOn, "flip", nil)
	require.NoError(t, err)

	_, err = m.Transition(t.Context(), lampOff, "flip", nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"blink", "blink"}, log.get())
}

func TestCanDestinationsReset(t *testing.T) {
	t.Parallel()

	log := &callLog{}
	m := mustBuild(t, lampBuilder("can", log)).NewMachine()

	assert.True(t, m.Can(t.Context(), lampOn, &testData{Power: true}))
	assert.False(t, m.Can(t.Context(), lampOn, &testData{Power: false}))
	assert.False(t, m.Can(t.Context(), lampBroken, &testData{Power: true}))
	assert.Equal(t, []lamp{lampOn}, m.Destinations())
	assert.Equal(t, []string{"guard:on", "guard:on"}, log.get(), "Can runs no actions")

	_, err := m.Transition(t.Context(), lampOn, "flip", &testData{Power: true})
	require.NoError(t, err)
	assert.Equal(t, []lamp{lampOff, lampBroken}, m.Destinations())

	m.Reset()
	assert.Equal(t, lampOff, m.State())
}

func TestTransitionMetrics(t *testing.T) {
	t.Parallel()

	m := mustBuild(t, lampBuilder("metrics-lamp", &callLog{})).NewMachine()

	_, _ = m.Transition(t.Context(), lampOn, "flip", &testData{Power: false})
	_, _ = m.Transition(t.Context(), lampOn, "flip", &testData{Power: true})
	_, _ = m.Transition(t.Context(), lampOn, "flip", &testData{Power: true})
	_, _ = m.Transition(t.Context(), lamp("no-such-state-1"), "flip", &testData{Power: true})
	_, _ = m.Transition(t.Context(), lamp("no-such-state-2"), "flip", &testData{Power: true})

	assert.InDelta(t, 1, testutil.ToFloat64(
		transitionsTotal.WithLabelValues("metrics-lamp", "off", "on", outcomeGuardRejected)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(
		transitionsTotal.WithLabelValues("metrics-lamp", "off", "on", outcomeSuccess)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(
		transitionsTotal.WithLabelValues("metrics-lamp", "on", "on", outcomeInvalidTransition)), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(
		transitionsTotal.WithLabelValues("metrics-lamp", "on", unknownLabel, outcomeInvalidTransition)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(
		guardEvaluations.WithLabelValues("metrics-lamp", "on", "rejected")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(
		guardEvaluations.WithLabelValues("metrics-lamp", "on", "allowed")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(
		definitionsBuilt.WithLabelValues("metrics-lamp", outcomeSuccess)), 0)
}

func TestSanitizeMachine(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "unknown", sanitizeMachine(""))
	assert.Equal(t, "bulb", sanitizeMachine("bulb"))
}
