package fsm

import "fmt"

// NewAction declares an action binding. The callable is not invoked.
// A zero phase is accepted and yields a binding that never fires.
func NewAction[S ~string, E, D any](name string, state S, phase Phase, fn Action[E, D]) (ActionBinding[S, E, D], error) {
	binding := ActionBinding[S, E, D]{Name: name, State: state, Phase: phase, Fn: fn}

	if err := binding.check(); err != nil {
		return ActionBinding[S, E, D]{}, err
	}

	return binding, nil
}

// NewGuard declares a guard binding. The callable is not invoked.
func NewGuard[S ~string, D any](name string, state S, fn Guard[D]) (GuardBinding[S, D], error) {
	binding := GuardBinding[S, D]{Name: name, State: state, Fn: fn}

	if err := binding.check(); err != nil {
		return GuardBinding[S, D]{}, err
	}

	return binding, nil
}

func (b ActionBinding[S, E, D]) check() error {
	if b.State == "" {
		return &ConfigError{Binding: b.Name, Err: ErrMissingState}
	}

	if b.Fn == nil {
		return &ConfigError{Binding: b.Name, State: string(b.State), Err: ErrNilCallable}
	}

	if !b.Phase.valid() {
		return &AttributeTypeError{Binding: b.Name, Attribute: "phase", Want: "entry and/or exit", Got: fmt.Sprintf("%#x", uint8(b.Phase))}
	}

	return nil
}

func (b GuardBinding[S, D]) check() error {
	if b.State == "" {
		return &ConfigError{Binding: b.Name, Err: ErrMissingState}
	}

	if b.Fn == nil {
		return &ConfigError{Binding: b.Name, State: string(b.State), Err: ErrNilCallable}
	}

	return nil
}
