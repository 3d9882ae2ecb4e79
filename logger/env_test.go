package logger_test

import (
	"context"

	"github.com/amp-labs/amp-fsm/envutil"
)

func envOverrides(ctx context.Context, kv map[string]string) context.Context {
	for k, v := range kv {
		ctx = envutil.WithEnvOverride(ctx, k, v)
	}

	return ctx
}
