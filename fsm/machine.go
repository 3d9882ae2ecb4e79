package fsm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Machine is one running instance of a Definition. It owns a single piece
// of mutable state, the current state. A Machine is not safe for concurrent
// Transition calls; see the mailbox package for a serialized wrapper.
type Machine[S ~string, E, D any] struct {
	def     *Definition[S, E, D]
	id      string
	current S
	opts    machineOptions
}

func newMachine[S ~string, E, D any](def *Definition[S, E, D], opts ...Option) *Machine[S, E, D] {
	m := &Machine[S, E, D]{
		def:     def,
		current: def.initial,
	}

	for _, opt := range opts {
		opt(&m.opts)
	}

	m.id = m.opts.id
	if m.id == "" {
		m.id = uuid.NewString()
	}

	return m
}

// State returns the current state.
func (m *Machine[S, E, D]) State() S { //nolint:ireturn
	return m.current
}

// ID returns the instance ID.
func (m *Machine[S, E, D]) ID() string {
	return m.id
}

// Definition returns the definition this machine was created from.
func (m *Machine[S, E, D]) Definition() *Definition[S, E, D] {
	return m.def
}

// IsTerminal reports whether the current state has no outgoing transitions.
func (m *Machine[S, E, D]) IsTerminal() bool {
	return m.def.table.IsTerminal(m.current)
}

// Destinations returns the states reachable from the current state in one
// step, in declaration order.
func (m *Machine[S, E, D]) Destinations() []S {
	return m.def.table.Destinations(m.current)
}

// Reset puts the machine back in the initial state without running any action.
func (m *Machine[S, E, D]) Reset() {
	m.current = m.def.initial
}

// Can reports whether a transition to the given state would currently be
// accepted: the pair is in the table and the destination's guard allows it.
// No action is run and nothing is observed or recorded.
func (m *Machine[S, E, D]) Can(ctx context.Context, to S, data D) bool {
	route, _, ok := m.def.table.Lookup(m.current, to)
	if !ok {
		return false
	}

	if route.To.Guard == nil {
		return true
	}

	allowed, err := route.To.Guard.Fn(ctx, data)

	return err == nil && allowed
}

// Transition moves the machine to the given state. It evaluates the
// destination's guard, runs the origin's exit action and the destination's
// entry action, then commits. On any failure the current state is left
// unchanged and a *TransitionError is returned alongside it.
func (m *Machine[S, E, D]) Transition(ctx context.Context, to S, event E, data D) (S, error) { //nolint:ireturn
	from := m.current
	info := TransitionInfo{
		Machine:   m.def.name,
		MachineID: m.id,
		From:      string(from),
		To:        string(to),
		Event:     event,
		Started:   time.Now(),
	}

	ctx, span := m.startTransitionSpan(ctx, from, to)

	m.opts.observers.TransitionStarted(ctx, info)

	outcome, err := m.run(ctx, info, from, to, event, data)

	toLabel := info.To
	if !m.def.table.Has(to) {
		toLabel = unknownLabel
	}

	recordTransition(m.def.name, info.From, toLabel, outcome, time.Since(info.Started))

	if err != nil {
		err = &TransitionError{Machine: m.def.name, From: info.From, To: info.To, Err: err}

		endSpan(span, err)
		m.opts.observers.TransitionFailed(ctx, info, err)

		return m.current, err
	}

	m.current = to

	endSpan(span, nil)
	m.opts.observers.TransitionCommitted(ctx, info)

	return m.current, nil
}

func (m *Machine[S, E, D]) run(ctx context.Context, info TransitionInfo, from, to S, event E, data D) (string, error) {
	route, known, allowed := m.def.table.Lookup(from, to)
	if !known {
		return outcomeInvalidState, fmt.Errorf("%w: %q", ErrInvalidState, from)
	}

	if !allowed {
		return outcomeInvalidTransition, ErrInvalidTransition
	}

	if guard := route.To.Guard; guard != nil {
		ok, err := m.evaluate(ctx, info, guard, data)
		if err != nil {
			return outcomeGuardError, err
		}

		if !ok {
			return outcomeGuardRejected, fmt.Errorf("%w (guard %q)", ErrGuardRejected, guard.Name)
		}
	}

	if exit := route.From.Exit; exit != nil {
		if err := m.invoke(ctx, info, exit, OnExit, event, data); err != nil {
			return outcomeActionError, err
		}
	}

	if entry := route.To.Entry; entry != nil {
		if err := m.invoke(ctx, info, entry, OnEntry, event, data); err != nil {
			return outcomeActionError, err
		}
	}

	return outcomeSuccess, nil
}

func (m *Machine[S, E, D]) evaluate(ctx context.Context, info TransitionInfo, guard *GuardBinding[S, D], data D) (bool, error) {
	gctx, span := m.startStepSpan(ctx, "guard", guard.Name, guard.State)

	allowed, err := guard.Fn(gctx, data)
	if err != nil && !errors.Is(err, ErrGuardContract) {
		err = fmt.Errorf("guard %q: %w", guard.Name, err)
	}

	endSpan(span, err)
	recordGuard(m.def.name, string(guard.State), allowed, err)
	m.opts.observers.GuardEvaluated(ctx, info, guard.Name, allowed, err)

	return allowed, err
}

func (m *Machine[S, E, D]) invoke(
	ctx context.Context,
	info TransitionInfo,
	action *ActionBinding[S, E, D],
	phase Phase,
	event E,
	data D,
) error {
	actx, span := m.startStepSpan(ctx, "action", action.Name, action.State)

	var err error
	if fnErr := action.Fn(actx, event, data); fnErr != nil {
		err = &ActionError{State: string(action.State), Action: action.Name, Phase: phase, Err: fnErr}
	}

	endSpan(span, err)
	m.opts.observers.ActionInvoked(ctx, info, action.Name, phase, err)

	return err
}
