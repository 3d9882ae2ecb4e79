package fsm

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

type machineOptions struct {
	id        string
	observers observers
	provider  trace.TracerProvider
}

func (o *machineOptions) tracerProvider() trace.TracerProvider { //nolint:ireturn
	if o.provider != nil {
		return o.provider
	}

	return otel.GetTracerProvider()
}

// Option configures a Machine.
type Option func(*machineOptions)

// WithObserver adds an observer. Observers are called in the order added.
func WithObserver(obs Observer) Option {
	return func(o *machineOptions) {
		if obs != nil {
			o.observers = append(o.observers, obs)
		}
	}
}

// WithID sets the machine's instance ID instead of generating one.
func WithID(id string) Option {
	return func(o *machineOptions) {
		o.id = id
	}
}

// WithTracerProvider sets the provider used for transition spans. The
// global provider is used otherwise.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *machineOptions) {
		o.provider = tp
	}
}
