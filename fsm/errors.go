package fsm

import (
	"errors"
	"fmt"
)

// The error taxonomy. Construction problems all match ErrConfiguration;
// run-time failures are returned as *TransitionError wrapping one of the
// remaining sentinels.
var (
	ErrConfiguration     = errors.New("invalid state machine configuration")
	ErrAttributeType     = fmt.Errorf("%w: attribute has the wrong type", ErrConfiguration)
	ErrInvalidState      = errors.New("the current state is invalid, or a terminal state was entered")
	ErrInvalidTransition = errors.New("the transition is invalid")
	ErrGuardContract     = errors.New("a guard must only return true or false")
	ErrGuardRejected     = errors.New("a guard declined the transition")
	ErrActionFailed      = errors.New("action execution failed")

	ErrMissingState         = fmt.Errorf("%w: a state is required", ErrConfiguration)
	ErrNilCallable          = fmt.Errorf("%w: callable is nil", ErrConfiguration)
	ErrNoTransitions        = fmt.Errorf("%w: at least one transition is required", ErrConfiguration)
	ErrUndeclaredState      = fmt.Errorf("%w: state does not appear in any transition", ErrConfiguration)
	ErrDuplicateEntryAction = fmt.Errorf("%w: state already has an entry action", ErrConfiguration)
	ErrDuplicateExitAction  = fmt.Errorf("%w: state already has an exit action", ErrConfiguration)
	ErrDuplicateGuard       = fmt.Errorf("%w: state already has a guard", ErrConfiguration)
	ErrMissingInitialState  = fmt.Errorf("%w: initial state is required", ErrConfiguration)
	ErrUnknownInitialState  = fmt.Errorf("%w: initial state does not appear in any transition", ErrConfiguration)

	// ErrConfigNameRequired indicates that a YAML definition has no name.
	ErrConfigNameRequired = fmt.Errorf("%w: config name is required", ErrConfiguration)
	// ErrBindingNameRequired indicates that an action or guard has no name.
	ErrBindingNameRequired = fmt.Errorf("%w: binding name is required", ErrConfiguration)
	// ErrActionTypeRequired indicates that a YAML action has no type.
	ErrActionTypeRequired = fmt.Errorf("%w: action type is required", ErrConfiguration)
	// ErrUnknownActionType indicates that no builder is registered for an action type.
	ErrUnknownActionType = fmt.Errorf("%w: unknown action type", ErrConfiguration)
	// ErrUnknownGuard indicates a guard reference with no registered guard.
	ErrUnknownGuard = fmt.Errorf("%w: unknown guard", ErrConfiguration)
	// ErrConfigEncoding indicates a definition whose text encoding could not be determined.
	ErrConfigEncoding = fmt.Errorf("%w: unsupported text encoding", ErrConfiguration)
	// ErrGuardSource indicates a guard with both or neither of expression and ref.
	ErrGuardSource = fmt.Errorf("%w: a guard needs exactly one of expression or ref", ErrConfiguration)
	// ErrInvalidExpression indicates a guard expression that cannot be parsed.
	ErrInvalidExpression = fmt.Errorf("%w: invalid guard expression", ErrConfiguration)
	// ErrMissingParam indicates an action missing a required parameter.
	ErrMissingParam = fmt.Errorf("%w: missing action parameter", ErrConfiguration)
)

// ConfigError ties a construction error to the binding and state it concerns.
type ConfigError struct {
	Binding  string
	State    string
	Conflict string
	Err      error
}

func (e *ConfigError) Error() string {
	msg := fmt.Sprintf("binding %q on state %q: %v", e.Binding, e.State, e.Err)
	if e.Conflict != "" {
		msg += fmt.Sprintf(" (conflicts with %q)", e.Conflict)
	}

	return msg
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// AttributeTypeError reports a binding attribute of the wrong type, such as
// a phase flag that is not a boolean.
type AttributeTypeError struct {
	Binding   string
	Attribute string
	Want      string
	Got       string
}

func (e *AttributeTypeError) Error() string {
	return fmt.Sprintf("binding %q: attribute %s must be %s, got %s", e.Binding, e.Attribute, e.Want, e.Got)
}

func (e *AttributeTypeError) Unwrap() error {
	return ErrAttributeType
}

// TransitionError is returned by Machine.Transition.
type TransitionError struct {
	Machine string
	From    string
	To      string
	Err     error
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: transition %s -> %s: %v", e.Machine, e.From, e.To, e.Err)
}

func (e *TransitionError) Unwrap() error {
	return e.Err
}

// ActionError reports a failing entry or exit action. It matches both
// ErrActionFailed and the action's own error.
type ActionError struct {
	State  string
	Action string
	Phase  Phase
	Err    error
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("%s action %q of state %q: %v", e.Phase, e.Action, e.State, e.Err)
}

func (e *ActionError) Unwrap() []error {
	return []error{ErrActionFailed, e.Err}
}
