// Package fleet drives many machine instances built from one definition.
// The definition's transition table is shared read-only; each machine is
// touched by exactly one worker per broadcast.
package fleet

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/alitto/pond/v2"
	"github.com/amp-labs/amp-fsm/envutil"
	"github.com/amp-labs/amp-fsm/fsm"
	"github.com/amp-labs/amp-fsm/logger"
)

const defaultWorkerCount = 10

// ErrInvalidWorkers is returned when the worker count is not positive.
var ErrInvalidWorkers = errors.New("worker count must be positive")

// Result is the outcome of one machine's transition during a broadcast.
type Result[S ~string] struct {
	Index int
	ID    string
	State S
	Err   error
}

type options struct {
	workers     int
	muted       bool
	machineOpts []fsm.Option
}

// Option configures a Fleet.
type Option func(*options)

// WithWorkers sets the size of the worker pool. By default it is read from
// FSM_FLEET_WORKERS.
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

// WithMachineOptions passes options to every machine of the fleet.
func WithMachineOptions(opts ...fsm.Option) Option {
	return func(o *options) {
		o.machineOpts = append(o.machineOpts, opts...)
	}
}

// Muted silences the log output of machines during broadcasts.
func Muted() Option {
	return func(o *options) {
		o.muted = true
	}
}

// Fleet is a set of machines sharing one definition. Broadcasts are
// serialized; within a broadcast machines transition concurrently.
type Fleet[S ~string, E, D any] struct {
	mut      sync.Mutex
	def      *fsm.Definition[S, E, D]
	machines []*fsm.Machine[S, E, D]
	pool     pond.Pool
	muted    bool
}

// New creates n machines from def and a worker pool to drive them.
func New[S ~string, E, D any](ctx context.Context, def *fsm.Definition[S, E, D], n int, opts ...Option) (*Fleet[S, E, D], error) {
	workers, err := envutil.Int(ctx, "FSM_FLEET_WORKERS",
		envutil.Default(defaultWorkerCount)).Value()
	if err != nil {
		return nil, err
	}

	o := &options{workers: workers}

	for _, opt := range opts {
		opt(o)
	}

	if o.workers <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidWorkers, o.workers)
	}

	machines := make([]*fsm.Machine[S, E, D], n)
	for i := range machines {
		machines[i] = def.NewMachine(o.machineOpts...)
	}

	logger.Get(ctx).Debug("fleet created",
		"machine", def.Name(),
		"instances", n,
		"workers", o.workers)

	return &Fleet[S, E, D]{
		def:      def,
		machines: machines,
		pool:     pond.NewPool(o.workers),
		muted:    o.muted,
	}, nil
}

// Definition returns the shared definition.
func (f *Fleet[S, E, D]) Definition() *fsm.Definition[S, E, D] {
	return f.def
}

// Len returns the number of machines.
func (f *Fleet[S, E, D]) Len() int {
	return len(f.machines)
}

// States returns the current state of every machine.
func (f *Fleet[S, E, D]) States() []S {
	f.mut.Lock()
	defer f.mut.Unlock()

	out := make([]S, len(f.machines))
	for i, m := range f.machines {
		out[i] = m.State()
	}

	return out
}

// Census counts machines per state.
func (f *Fleet[S, E, D]) Census() map[S]int {
	census := make(map[S]int)

	for _, state := range f.States() {
		census[state]++
	}

	return census
}

// Broadcast asks every machine to transition to the given state. dataFor
// supplies the transition data of the i-th machine and may be nil. Each
// machine's result is returned in index order; the error joins every
// per-machine failure.
func (f *Fleet[S, E, D]) Broadcast(ctx context.Context, to S, event E, dataFor func(i int) D) ([]Result[S], error) {
	f.mut.Lock()
	defer f.mut.Unlock()

	if f.muted {
		ctx = logger.WithMuted(ctx, true)
	}

	results := make([]Result[S], len(f.machines))
	group := f.pool.NewGroup()

	for i, machine := range f.machines {
		group.Submit(func() {
			var data D
			if dataFor != nil {
				data = dataFor(i)
			}

			state, err := machine.Transition(ctx, to, event, data)
			results[i] = Result[S]{Index: i, ID: machine.ID(), State: state, Err: err}
		})
	}

	if err := group.Wait(); err != nil {
		return results, err
	}

	var errs []error

	for _, r := range results {
		if r.Err != nil {
			errs = append(errs, fmt.Errorf("instance %d: %w", r.Index, r.Err))
		}
	}

	err := errors.Join(errs...)
	if err != nil {
		logger.Get(ctx).InfoContext(ctx, "broadcast partially failed",
			"machine", f.def.Name(),
			"to", string(to),
			"failed", len(errs),
			"instances", len(f.machines))
	}

	return results, err
}

// Reset puts every machine back into the initial state.
func (f *Fleet[S, E, D]) Reset() {
	f.mut.Lock()
	defer f.mut.Unlock()

	for _, m := range f.machines {
		m.Reset()
	}
}

// Stop stops the worker pool, waiting for running tasks.
func (f *Fleet[S, E, D]) Stop() {
	f.pool.StopAndWait()
}
