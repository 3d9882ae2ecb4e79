package fsm

import (
	"errors"
	"fmt"
	"slices"

	"github.com/amp-labs/amp-fsm/logger"
)

// Builder collects the declarations of a state machine. Build compiles them
// exactly once into a Definition. Builder methods never fail; problems are
// collected and reported together by Build.
type Builder[S ~string, E, D any] struct {
	name       string
	initial    S
	hasInitial bool
	edges      []Edge[S]
	actions    []ActionBinding[S, E, D]
	guards     []GuardBinding[S, D]
	errs       []error
}

// NewBuilder starts a definition with the given name. The name is used in
// errors, logs, metrics and traces.
func NewBuilder[S ~string, E, D any](name string) *Builder[S, E, D] {
	return &Builder[S, E, D]{name: name}
}

// Initial sets the state new machines start in.
func (b *Builder[S, E, D]) Initial(state S) *Builder[S, E, D] {
	b.initial = state
	b.hasInitial = true

	return b
}

// Allow declares transitions from one state to each of the given destinations.
func (b *Builder[S, E, D]) Allow(from S, to ...S) *Builder[S, E, D] {
	for _, dest := range to {
		b.edges = append(b.edges, Edge[S]{From: from, To: dest})
	}

	return b
}

// Transitions declares transitions from a list of edges.
func (b *Builder[S, E, D]) Transitions(edges ...Edge[S]) *Builder[S, E, D] {
	b.edges = append(b.edges, edges...)

	return b
}

// BindAction adds a previously declared action binding.
func (b *Builder[S, E, D]) BindAction(bindings ...ActionBinding[S, E, D]) *Builder[S, E, D] {
	b.actions = append(b.actions, bindings...)

	return b
}

// BindGuard adds a previously declared guard binding.
func (b *Builder[S, E, D]) BindGuard(bindings ...GuardBinding[S, D]) *Builder[S, E, D] {
	b.guards = append(b.guards, bindings...)

	return b
}

// OnEntry declares an action run when state is entered.
func (b *Builder[S, E, D]) OnEntry(state S, name string, fn Action[E, D]) *Builder[S, E, D] {
	return b.Action(state, name, OnEntry, fn)
}

// OnExit declares an action run when state is left.
func (b *Builder[S, E, D]) OnExit(state S, name string, fn Action[E, D]) *Builder[S, E, D] {
	return b.Action(state, name, OnExit, fn)
}

// Action declares an action with an explicit phase.
func (b *Builder[S, E, D]) Action(state S, name string, phase Phase, fn Action[E, D]) *Builder[S, E, D] {
	binding, err := NewAction(name, state, phase, fn)
	if err != nil {
		b.errs = append(b.errs, err)

		return b
	}

	return b.BindAction(binding)
}

// Guard declares a guard consulted before state is entered.
func (b *Builder[S, E, D]) Guard(state S, name string, fn Guard[D]) *Builder[S, E, D] {
	binding, err := NewGuard(name, state, fn)
	if err != nil {
		b.errs = append(b.errs, err)

		return b
	}

	return b.BindGuard(binding)
}

func (b *Builder[S, E, D]) fail(err error) {
	b.errs = append(b.errs, err)
}

// Build validates the declarations and compiles the transition table.
func (b *Builder[S, E, D]) Build() (*Definition[S, E, D], error) {
	def, err := b.build()

	recordBuild(b.name, err)

	if err != nil {
		logger.Get().Debug("state machine definition rejected", "machine", b.name, "error", err)

		return nil, fmt.Errorf("building %s: %w", b.name, err)
	}

	logger.Get().Debug("state machine definition built",
		"machine", b.name,
		"states", len(def.table.states),
		"edges", len(def.table.edges),
		"fingerprint", def.fingerprint)

	return def, nil
}

// MustBuild is Build that panics on error. It suits definitions declared
// in package-level variables.
func (b *Builder[S, E, D]) MustBuild() *Definition[S, E, D] {
	def, err := b.Build()
	if err != nil {
		panic(err)
	}

	return def
}

func (b *Builder[S, E, D]) build() (*Definition[S, E, D], error) {
	errs := slices.Clone(b.errs)

	if !b.hasInitial || b.initial == "" {
		errs = append(errs, ErrMissingInitialState)
	}

	table, err := BuildTable(b.edges, b.actions, b.guards)
	if err != nil {
		errs = append(errs, err)
	}

	if table != nil && b.initial != "" && !table.Has(b.initial) {
		errs = append(errs, fmt.Errorf("%w: %q", ErrUnknownInitialState, b.initial))
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	return newDefinition(b.name, b.initial, table), nil
}
