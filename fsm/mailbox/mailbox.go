// Package mailbox serializes access to a single state machine. A goroutine
// owns the machine exclusively and handles requests from its inbox one at a
// time, so any number of goroutines may drive the machine through a Ref.
package mailbox

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/amp-labs/amp-fsm/fsm"
	"github.com/amp-labs/amp-fsm/logger"
	"go.uber.org/atomic"
)

var (
	// ErrStopped is returned for requests to a mailbox which is no longer running.
	ErrStopped = errors.New("mailbox is stopped")
	// ErrPanic is returned when a guard or action panics while handling a request.
	ErrPanic = errors.New("panic in mailbox")
)

type requestKind int

const (
	kindTransition requestKind = iota
	kindState
	kindReset
)

type result[S ~string] struct {
	state S
	err   error
}

type request[S ~string, E, D any] struct {
	ctx   context.Context //nolint:containedctx
	kind  requestKind
	to    S
	event E
	data  D
	reply chan result[S]
}

// Ref is a handle to a running mailbox.
type Ref[S ~string, E, D any] struct {
	name      string
	subsystem string
	inbox     chan request[S, E, D]
	stop      chan struct{}
	stopOnce  sync.Once
	done      chan struct{}
	dead      *atomic.Bool
}

// Run starts a goroutine which exclusively owns machine and returns a Ref
// to it. The name is used for logging and metrics; queueDepth is the inbox
// buffer size (0 for unbuffered). The loop runs until ctx is done or Stop
// is called. The caller must not use machine directly afterwards.
func Run[S ~string, E, D any](ctx context.Context, name string, machine *fsm.Machine[S, E, D], queueDepth int) *Ref[S, E, D] {
	ref := &Ref[S, E, D]{
		name:      name,
		subsystem: logger.GetSubsystem(ctx),
		inbox:     make(chan request[S, E, D], queueDepth),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
		dead:      atomic.NewBool(false),
	}

	for _, outcome := range []string{outcomeOK, outcomeError, outcomePanic} {
		processed.WithLabelValues(ref.subsystem, name, outcome).Add(0)
	}

	depth.WithLabelValues(ref.subsystem, name).Set(0)
	alive.WithLabelValues(ref.subsystem, name).Inc()

	go ref.loop(ctx, machine)

	return ref
}

func (r *Ref[S, E, D]) loop(ctx context.Context, machine *fsm.Machine[S, E, D]) {
	defer close(r.done)
	defer alive.WithLabelValues(r.subsystem, r.name).Dec()

	for {
		select {
		case <-ctx.Done():
			r.shutdown()

			return
		case <-r.stop:
			r.shutdown()

			return
		case req := <-r.inbox:
			depth.WithLabelValues(r.subsystem, r.name).Set(float64(len(r.inbox)))

			res, outcome := r.handle(machine, req)

			processed.WithLabelValues(r.subsystem, r.name, outcome).Inc()

			req.reply <- res
		}
	}
}

// shutdown marks the mailbox dead and fails every request still queued.
func (r *Ref[S, E, D]) shutdown() {
	r.dead.Store(true)

	for {
		select {
		case req := <-r.inbox:
			req.reply <- result[S]{err: ErrStopped}
		default:
			depth.WithLabelValues(r.subsystem, r.name).Set(0)

			return
		}
	}
}

func (r *Ref[S, E, D]) handle(machine *fsm.Machine[S, E, D], req request[S, E, D]) (res result[S], outcome string) {
	defer func() {
		if p := recover(); p != nil {
			err := panicErr(r.name, p)
			err = logger.AnnotateError(err, "mailbox", r.name, "stack", string(debug.Stack()))

			logger.Get(req.ctx).Error("mailbox recovered from panic",
				"state", machine.State(),
				"error", err)

			res = result[S]{state: machine.State(), err: err}
			outcome = outcomePanic
		}
	}()

	switch req.kind {
	case kindState:
		res.state = machine.State()
	case kindReset:
		machine.Reset()
		res.state = machine.State()
	case kindTransition:
		res.state, res.err = machine.Transition(req.ctx, req.to, req.event, req.data)
	}

	if res.err != nil {
		return res, outcomeError
	}

	return res, outcomeOK
}

func panicErr(name string, p any) error {
	if e, ok := p.(error); ok {
		return fmt.Errorf("%w %s: %w", ErrPanic, name, e)
	}

	return fmt.Errorf("%w %s: %v", ErrPanic, name, p)
}

func (r *Ref[S, E, D]) submit(ctx context.Context, req request[S, E, D]) (S, error) { //nolint:ireturn
	var zero S

	if r.dead.Load() {
		return zero, ErrStopped
	}

	if err := ctx.Err(); err != nil {
		return zero, err
	}

	req.ctx = ctx
	req.reply = make(chan result[S], 1)

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case <-r.done:
		return zero, ErrStopped
	case r.inbox <- req:
	}

	depth.WithLabelValues(r.subsystem, r.name).Set(float64(len(r.inbox)))

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-req.reply:
		return res.state, res.err
	case <-r.done:
		// The loop may have answered just before exiting.
		select {
		case res := <-req.reply:
			return res.state, res.err
		default:
			return zero, ErrStopped
		}
	}
}

// Name returns the mailbox name.
func (r *Ref[S, E, D]) Name() string {
	return r.name
}

// Alive returns true if the loop is still accepting requests.
func (r *Ref[S, E, D]) Alive() bool {
	return !r.dead.Load()
}

// Transition asks the owned machine to transition and waits for the result.
// If ctx is done before the request is handled, the transition may still
// run later.
func (r *Ref[S, E, D]) Transition(ctx context.Context, to S, event E, data D) (S, error) { //nolint:ireturn
	return r.submit(ctx, request[S, E, D]{kind: kindTransition, to: to, event: event, data: data})
}

// State returns the current state of the owned machine.
func (r *Ref[S, E, D]) State(ctx context.Context) (S, error) { //nolint:ireturn
	return r.submit(ctx, request[S, E, D]{kind: kindState})
}

// Reset puts the owned machine back into its initial state.
func (r *Ref[S, E, D]) Reset(ctx context.Context) (S, error) { //nolint:ireturn
	return r.submit(ctx, request[S, E, D]{kind: kindReset})
}

// Stop asks the loop to exit. Requests still queued fail with ErrStopped.
// It is safe to call multiple times.
func (r *Ref[S, E, D]) Stop() {
	r.dead.Store(true)
	r.stopOnce.Do(func() {
		close(r.stop)
	})
}

// Wait blocks until the loop has exited.
func (r *Ref[S, E, D]) Wait() {
	<-r.done
}

// WaitTimeout is Wait with an upper bound; it returns false on timeout.
func (r *Ref[S, E, D]) WaitTimeout(timeout time.Duration) bool {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-r.done:
		return true
	case <-timer.C:
		return false
	}
}
