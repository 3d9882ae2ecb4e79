// Package shutdown turns SIGINT/SIGTERM into context cancellation and runs
// registered cleanup hooks first.
package shutdown

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

var (
	mut     sync.Mutex              //nolint:gochecknoglobals
	hooks   []func(context.Context) //nolint:gochecknoglobals
	trigger chan os.Signal          //nolint:gochecknoglobals
)

// BeforeShutdown registers a hook run before the handler context is
// canceled. Hooks run in reverse registration order, like deferred calls,
// and receive the still-live context.
func BeforeShutdown(h func(ctx context.Context)) {
	mut.Lock()
	defer mut.Unlock()

	hooks = append(hooks, h)
}

// Shutdown triggers the shutdown sequence programmatically. It is a no-op
// when no handler is installed or shutdown is already in progress.
func Shutdown() {
	mut.Lock()
	defer mut.Unlock()

	if trigger == nil {
		return
	}

	select {
	case trigger <- os.Interrupt:
	default:
	}
}

// SetupHandler installs a SIGINT/SIGTERM handler and returns a context
// derived from parent which is canceled once the hooks have run.
func SetupHandler(parent context.Context) context.Context {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)

	mut.Lock()
	trigger = ch
	mut.Unlock()

	ctx, cancel := context.WithCancel(parent)

	go func() {
		defer cancel()

		select {
		case sig := <-ch:
			slog.Warn("Received " + sig.String() + ", shutting down...")
		case <-parent.Done():
		}

		signal.Stop(ch)

		mut.Lock()
		if trigger == ch {
			trigger = nil
		}
		mut.Unlock()

		runHooks(ctx)
	}()

	return ctx
}

func runHooks(ctx context.Context) {
	mut.Lock()
	pending := hooks
	hooks = nil
	mut.Unlock()

	for i := len(pending) - 1; i >= 0; i-- {
		pending[i](ctx)
	}
}
