package fsmtest

import (
	"errors"
	"fmt"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
)

// Matcher errors.
var (
	ErrStateNotVisited      = errors.New("state was not visited")
	ErrTransitionNotTaken   = errors.New("transition was not taken")
	ErrActionsMismatch      = errors.New("actions mismatch")
	ErrGuardNotRejected     = errors.New("guard did not reject")
	ErrUnexpectedFailure    = errors.New("unexpected transition failure")
	ErrUnexpectedActionCall = errors.New("action was invoked")
)

// Matcher checks a property of a recording.
type Matcher interface {
	Match(rec *Recorder) error
	Description() string
}

// AssertMatches reports every matcher which does not hold.
func AssertMatches(t *testing.T, rec *Recorder, matchers ...Matcher) bool {
	t.Helper()

	ok := true

	for _, m := range matchers {
		if err := m.Match(rec); err != nil {
			ok = assert.Fail(t, m.Description(), err.Error()) && ok
		}
	}

	return ok
}

type matcherFunc struct {
	description string
	match       func(rec *Recorder) error
}

func (m matcherFunc) Match(rec *Recorder) error { return m.match(rec) }

func (m matcherFunc) Description() string { return m.description }

// StateVisited matches if a committed transition entered or left the state.
func StateVisited(state string) Matcher {
	return matcherFunc{
		description: fmt.Sprintf("state '%s' should be visited", state),
		match: func(rec *Recorder) error {
			if slices.Contains(rec.Path(), state) {
				return nil
			}

			return fmt.Errorf("%w: '%s'", ErrStateNotVisited, state)
		},
	}
}

// TransitionTaken matches if the transition was committed.
func TransitionTaken(from, to string) Matcher {
	return matcherFunc{
		description: fmt.Sprintf("transition from '%s' to '%s' should be taken", from, to),
		match: func(rec *Recorder) error {
			for _, edge := range rec.Committed() {
				if edge.From == from && edge.To == to {
					return nil
				}
			}

			return fmt.Errorf("%w: from '%s' to '%s'", ErrTransitionNotTaken, from, to)
		},
	}
}

// ActionsRan matches if exactly these actions were invoked, in this order.
func ActionsRan(names ...string) Matcher {
	return matcherFunc{
		description: fmt.Sprintf("actions %v should run", names),
		match: func(rec *Recorder) error {
			got := rec.Actions()
			if slices.Equal(got, names) {
				return nil
			}

			return fmt.Errorf("%w: got %v, want %v", ErrActionsMismatch, got, names)
		},
	}
}

// NoActions matches if no action was invoked.
func NoActions() Matcher {
	return matcherFunc{
		description: "no action should run",
		match: func(rec *Recorder) error {
			if got := rec.Actions(); len(got) > 0 {
				return fmt.Errorf("%w: %v", ErrUnexpectedActionCall, got)
			}

			return nil
		},
	}
}

// GuardRejected matches if the named guard rejected a transition.
func GuardRejected(guard string) Matcher {
	return matcherFunc{
		description: fmt.Sprintf("guard '%s' should reject", guard),
		match: func(rec *Recorder) error {
			for _, r := range rec.Records() {
				if r.Kind == KindGuard && r.Name == guard && !r.Allowed && r.Err == nil {
					return nil
				}
			}

			return fmt.Errorf("%w: '%s'", ErrGuardNotRejected, guard)
		},
	}
}

// NoFailures matches if every transition committed.
func NoFailures() Matcher {
	return matcherFunc{
		description: "no transition should fail",
		match: func(rec *Recorder) error {
			if failures := rec.Failures(); len(failures) > 0 {
				return fmt.Errorf("%w: %w", ErrUnexpectedFailure, errors.Join(failures...))
			}

			return nil
		},
	}
}
