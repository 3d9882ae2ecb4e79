package fsm

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/amp-labs/amp-fsm/logger"
)

// TransitionInfo describes the transition an Observer is told about.
type TransitionInfo struct {
	Machine   string
	MachineID string
	From      string
	To        string
	Event     any
	Started   time.Time
}

// Observer receives callbacks while a transition runs. Callbacks run
// synchronously on the goroutine calling Transition, so they must be fast
// and must not call back into the machine.
type Observer interface {
	TransitionStarted(ctx context.Context, info TransitionInfo)
	GuardEvaluated(ctx context.Context, info TransitionInfo, guard string, allowed bool, err error)
	ActionInvoked(ctx context.Context, info TransitionInfo, action string, phase Phase, err error)
	TransitionCommitted(ctx context.Context, info TransitionInfo)
	TransitionFailed(ctx context.Context, info TransitionInfo, err error)
}

type observers []Observer

func (o observers) TransitionStarted(ctx context.Context, info TransitionInfo) {
	for _, obs := range o {
		obs.TransitionStarted(ctx, info)
	}
}

func (o observers) GuardEvaluated(ctx context.Context, info TransitionInfo, guard string, allowed bool, err error) {
	for _, obs := range o {
		obs.GuardEvaluated(ctx, info, guard, allowed, err)
	}
}

func (o observers) ActionInvoked(ctx context.Context, info TransitionInfo, action string, phase Phase, err error) {
	for _, obs := range o {
		obs.ActionInvoked(ctx, info, action, phase, err)
	}
}

func (o observers) TransitionCommitted(ctx context.Context, info TransitionInfo) {
	for _, obs := range o {
		obs.TransitionCommitted(ctx, info)
	}
}

func (o observers) TransitionFailed(ctx context.Context, info TransitionInfo, err error) {
	for _, obs := range o {
		obs.TransitionFailed(ctx, info, err)
	}
}

// LogObserver logs transitions through the logger package.
type LogObserver struct{}

var _ Observer = LogObserver{}

// NewLogObserver returns an Observer which logs every step at debug level
// and failures at info (guard rejections) or warn (everything else).
func NewLogObserver() LogObserver {
	return LogObserver{}
}

func (LogObserver) log(ctx context.Context, info TransitionInfo) *slog.Logger {
	return logger.Get(ctx).With(
		"machine", info.Machine,
		"machine_id", info.MachineID,
		"from", info.From,
		"to", info.To)
}

func (l LogObserver) TransitionStarted(ctx context.Context, info TransitionInfo) {
	l.log(ctx, info).DebugContext(ctx, "transition started", "event", info.Event)
}

func (l LogObserver) GuardEvaluated(ctx context.Context, info TransitionInfo, guard string, allowed bool, err error) {
	l.log(ctx, info).DebugContext(ctx, "guard evaluated", "guard", guard, "allowed", allowed, "error", err)
}

func (l LogObserver) ActionInvoked(ctx context.Context, info TransitionInfo, action string, phase Phase, err error) {
	l.log(ctx, info).DebugContext(ctx, "action invoked", "action", action, "phase", phase.String(), "error", err)
}

func (l LogObserver) TransitionCommitted(ctx context.Context, info TransitionInfo) {
	l.log(ctx, info).DebugContext(ctx, "transition committed", "duration", time.Since(info.Started))
}

func (l LogObserver) TransitionFailed(ctx context.Context, info TransitionInfo, err error) {
	level := slog.LevelWarn
	if errors.Is(err, ErrGuardRejected) {
		level = slog.LevelInfo
	}

	l.log(ctx, info).Log(ctx, level, "transition failed", "error", err)
}
