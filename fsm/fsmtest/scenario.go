package fsmtest

import (
	"context"
	"testing"

	"github.com/amp-labs/amp-fsm/fsm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Step is one transition request of a scenario and its expected outcome.
// A zero WantState means the state is not checked.
type Step[S ~string, E, D any] struct {
	To        S
	Event     E
	Data      D
	WantErr   error
	WantState S
}

// Scenario drives a fresh machine through a sequence of steps.
type Scenario[S ~string, E, D any] struct {
	Name       string
	Definition *fsm.Definition[S, E, D]
	Steps      []Step[S, E, D]
	Matchers   []Matcher
}

// RunScenario runs the scenario as a subtest and returns the recording.
func RunScenario[S ~string, E, D any](t *testing.T, scenario Scenario[S, E, D]) *Recorder {
	t.Helper()

	rec := NewRecorder()

	t.Run(scenario.Name, func(t *testing.T) {
		machine := scenario.Definition.NewMachine(fsm.WithObserver(rec))

		for i, step := range scenario.Steps {
			before := machine.State()

			state, err := machine.Transition(context.Background(), step.To, step.Event, step.Data)
			if step.WantErr != nil {
				require.ErrorIs(t, err, step.WantErr, "step %d: %s -> %s", i, before, step.To)
				assert.Equal(t, before, state, "step %d: failed transition must not change state", i)
			} else {
				require.NoError(t, err, "step %d: %s -> %s", i, before, step.To)
			}

			if step.WantState != "" {
				assert.Equal(t, step.WantState, machine.State(), "step %d", i)
			}
		}

		AssertMatches(t, rec, scenario.Matchers...)
	})

	return rec
}
