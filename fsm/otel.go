package fsm

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "fsm"

// startTransitionSpan opens the root span of one Transition call.
// The caller is responsible for calling span.End().
//
//nolint:spancheck
func (m *Machine[S, E, D]) startTransitionSpan(ctx context.Context, from, to S) (context.Context, trace.Span) {
	ctx, span := m.tracer().Start(ctx, "fsm.transition")
	span.SetAttributes(
		attribute.String("machine", m.def.name),
		attribute.String("machine_id", m.id),
		attribute.String("from", string(from)),
		attribute.String("to", string(to)),
		attribute.String("fingerprint", m.def.fingerprint),
	)

	return ctx, span
}

// startStepSpan opens a child span for a guard or action.
// The caller is responsible for calling span.End().
//
//nolint:spancheck
func (m *Machine[S, E, D]) startStepSpan(ctx context.Context, kind, name string, state S) (context.Context, trace.Span) {
	ctx, span := m.tracer().Start(ctx, kind+"."+name)
	span.SetAttributes(
		attribute.String(kind, name),
		attribute.String("state", string(state)),
	)

	return ctx, span
}

func (m *Machine[S, E, D]) tracer() trace.Tracer { //nolint:ireturn
	return m.opts.tracerProvider().Tracer(tracerName)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}

	span.End()
}
