// Package fsm is a declarative finite-state-machine engine. A definition is
// assembled from the allowed state-to-state transitions plus per-state entry
// and exit actions and per-state entry guards, compiled once into an
// immutable transition table, and then shared by any number of Machine
// instances which each track their own current state.
//
// A transition to a destination state runs, in order: the guard of the
// destination, the exit action of the origin, the entry action of the
// destination. The new state is committed only when all three succeed.
package fsm

import (
	"context"
	"strings"
)

// Phase selects when an action binding fires. It is a bit set, so a single
// binding may fire both on entry and on exit.
type Phase uint8

const (
	OnEntry Phase = 1 << iota
	OnExit
)

const allPhases = OnEntry | OnExit

// Has reports whether every bit of q is set in p.
func (p Phase) Has(q Phase) bool {
	return q != 0 && p&q == q
}

func (p Phase) valid() bool {
	return p&^allPhases == 0
}

func (p Phase) String() string {
	var parts []string

	if p.Has(OnEntry) {
		parts = append(parts, "entry")
	}

	if p.Has(OnExit) {
		parts = append(parts, "exit")
	}

	if len(parts) == 0 {
		return "none"
	}

	return strings.Join(parts, "|")
}

// Action is a side effect bound to entering or leaving a state. It receives
// the event that triggered the transition and the transition-scoped data.
type Action[E, D any] func(ctx context.Context, event E, data D) error

// Guard decides whether a state may be entered. Returning an error that
// wraps ErrGuardContract signals that the guard could not produce a verdict.
type Guard[D any] func(ctx context.Context, data D) (bool, error)

// ActionBinding associates an Action with a state and the phases in which it fires.
type ActionBinding[S ~string, E, D any] struct {
	Name  string
	State S
	Phase Phase
	Fn    Action[E, D]
}

// GuardBinding associates a Guard with the state it protects.
type GuardBinding[S ~string, D any] struct {
	Name  string
	State S
	Fn    Guard[D]
}

// Edge is one allowed transition.
type Edge[S ~string] struct {
	From S `json:"from" yaml:"from"`
	To   S `json:"to"   yaml:"to"`
}

func (e Edge[S]) String() string {
	return string(e.From) + " -> " + string(e.To)
}

// Data is the transition-scoped data used by definitions loaded from YAML.
type Data map[string]any
