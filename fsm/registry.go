package fsm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/amp-labs/amp-fsm/logger"
)

// ErrNilData is returned by the built-in data actions when the transition
// carries no Data map.
var ErrNilData = errors.New("transition data is nil")

// ActionBuilder creates an action from the params of a YAML action binding.
type ActionBuilder func(name string, params map[string]any) (Action[string, Data], error)

// Registry resolves the action types and guard references used by YAML
// definitions. It is safe for concurrent use.
type Registry struct {
	mut      sync.RWMutex
	builders map[string]ActionBuilder
	guards   map[string]Guard[Data]
}

// NewRegistry returns a Registry with the built-in action types:
//
//	noop    does nothing
//	set     params key, value: data[key] = value
//	delete  params key: removes data[key]
//	log     params message, level: logs the message with the event
func NewRegistry() *Registry {
	reg := &Registry{
		builders: make(map[string]ActionBuilder),
		guards:   make(map[string]Guard[Data]),
	}

	reg.RegisterAction("noop", noopActionBuilder)
	reg.RegisterAction("set", setActionBuilder)
	reg.RegisterAction("delete", deleteActionBuilder)
	reg.RegisterAction("log", logActionBuilder)

	return reg
}

// RegisterAction registers or replaces the builder for an action type.
func (r *Registry) RegisterAction(actionType string, builder ActionBuilder) {
	r.mut.Lock()
	defer r.mut.Unlock()

	r.builders[actionType] = builder
}

// RegisterGuard registers a guard that YAML guards can reference by name.
func (r *Registry) RegisterGuard(name string, guard Guard[Data]) {
	r.mut.Lock()
	defer r.mut.Unlock()

	r.guards[name] = guard
}

// ActionTypes lists the registered action types, sorted.
func (r *Registry) ActionTypes() []string {
	r.mut.RLock()
	defer r.mut.RUnlock()

	return slices.Sorted(maps.Keys(r.builders))
}

// CreateAction builds an action from its YAML binding.
func (r *Registry) CreateAction(cfg ActionConfig) (Action[string, Data], error) {
	r.mut.RLock()
	builder, ok := r.builders[cfg.Type]
	r.mut.RUnlock()

	if !ok {
		return nil, &ConfigError{Binding: cfg.Name, State: cfg.State, Err: fmt.Errorf("%w: %s", ErrUnknownActionType, cfg.Type)}
	}

	action, err := builder(cfg.Name, cfg.Params)
	if err != nil {
		return nil, &ConfigError{Binding: cfg.Name, State: cfg.State, Err: err}
	}

	return action, nil
}

// CreateGuard compiles a guard expression or resolves a guard reference.
func (r *Registry) CreateGuard(cfg GuardConfig) (Guard[Data], error) {
	if cfg.Ref != "" {
		r.mut.RLock()
		guard, ok := r.guards[cfg.Ref]
		r.mut.RUnlock()

		if !ok {
			return nil, &ConfigError{Binding: cfg.Name, State: cfg.State, Err: fmt.Errorf("%w: %s", ErrUnknownGuard, cfg.Ref)}
		}

		return guard, nil
	}

	guard, err := CompileExpression(cfg.Expression)
	if err != nil {
		return nil, &ConfigError{Binding: cfg.Name, State: cfg.State, Err: err}
	}

	return guard, nil
}

func stringParam(params map[string]any, key string) (string, error) {
	raw, ok := params[key]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrMissingParam, key)
	}

	s, ok := raw.(string)
	if !ok || s == "" {
		return "", fmt.Errorf("%w: %s must be a non-empty string", ErrMissingParam, key)
	}

	return s, nil
}

func noopActionBuilder(string, map[string]any) (Action[string, Data], error) {
	return func(context.Context, string, Data) error { return nil }, nil
}

func setActionBuilder(_ string, params map[string]any) (Action[string, Data], error) {
	key, err := stringParam(params, "key")
	if err != nil {
		return nil, err
	}

	value := params["value"]

	return func(_ context.Context, _ string, data Data) error {
		if data == nil {
			return ErrNilData
		}

		data[key] = value

		return nil
	}, nil
}

func deleteActionBuilder(_ string, params map[string]any) (Action[string, Data], error) {
	key, err := stringParam(params, "key")
	if err != nil {
		return nil, err
	}

	return func(_ context.Context, _ string, data Data) error {
		if data == nil {
			return ErrNilData
		}

		delete(data, key)

		return nil
	}, nil
}

func logActionBuilder(name string, params map[string]any) (Action[string, Data], error) {
	message, err := stringParam(params, "message")
	if err != nil {
		return nil, err
	}

	level := slog.LevelInfo

	if raw, ok := params["level"].(string); ok {
		if err := level.UnmarshalText([]byte(strings.ToUpper(raw))); err != nil {
			return nil, fmt.Errorf("%w: level %q", ErrMissingParam, raw)
		}
	}

	return func(ctx context.Context, event string, _ Data) error {
		logger.Get(ctx).Log(ctx, level, message, "action", name, "event", event)

		return nil
	}, nil
}
