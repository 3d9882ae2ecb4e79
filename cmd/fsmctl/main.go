// Command fsmctl validates, renders and interactively drives state machines
// defined in YAML.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/amp-labs/amp-fsm/cli"
	"github.com/amp-labs/amp-fsm/logger"
	"github.com/amp-labs/amp-fsm/shutdown"
	"github.com/amp-labs/amp-fsm/stage"
	"github.com/amp-labs/amp-fsm/telemetry"
)

const appName = "fsmctl"

func main() {
	ctx := shutdown.SetupHandler(context.Background())

	logger.ConfigureLogging(ctx, appName, logger.WithOutput(os.Stderr))

	setupTelemetry(ctx)

	err := newApp(os.Stdout, cli.NewPrompter()).run(ctx, os.Args[1:])

	shutdown.Shutdown()
	<-ctx.Done()

	switch {
	case err == nil:
	case errors.Is(err, flag.ErrHelp):
		os.Exit(0)
	case errors.Is(err, ErrUsage):
		fmt.Fprintln(os.Stderr, err)
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2) //nolint:mnd
	default:
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func setupTelemetry(ctx context.Context) {
	env, err := stage.Current(ctx)
	if err != nil {
		slog.Warn("invalid RUNNING_ENV, assuming unknown", "error", err)
	}

	cfg, err := telemetry.LoadConfigFromEnv(ctx, env.String())
	if err != nil {
		slog.Warn("invalid telemetry configuration", "error", err)

		return
	}

	if err := telemetry.Initialize(ctx, cfg); err != nil {
		slog.Warn("failed to initialize telemetry", "error", err)

		return
	}

	if h := telemetry.LogHandler(appName); h != nil {
		logger.ConfigureLogging(ctx, appName, logger.WithOutput(os.Stderr), logger.WithHandler(h))
	}

	shutdown.BeforeShutdown(func(ctx context.Context) {
		if err := telemetry.Shutdown(ctx); err != nil {
			slog.Warn("failed to flush telemetry", "error", err)
		}
	})
}
