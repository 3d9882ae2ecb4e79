// Package envutil reads typed configuration values from environment variables.
package envutil

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"
)

var ErrInvalidLevel = errors.New("invalid log level")

// String returns a Reader for the given environment variable key.
func String(ctx context.Context, key string, opts ...Option[string]) Reader[string] {
	return apply(get(ctx, key), opts)
}

// Bool returns a Reader which parses the variable with strconv.ParseBool.
func Bool(ctx context.Context, key string, opts ...Option[bool]) Reader[bool] {
	return apply(Map(get(ctx, key), func(s string) (bool, error) {
		return strconv.ParseBool(strings.TrimSpace(s))
	}), opts)
}

// Int returns a Reader which parses the variable as a base-10 integer.
func Int(ctx context.Context, key string, opts ...Option[int]) Reader[int] {
	return apply(Map(get(ctx, key), func(s string) (int, error) {
		return strconv.Atoi(strings.TrimSpace(s))
	}), opts)
}

// Duration returns a Reader which parses the variable with time.ParseDuration.
func Duration(ctx context.Context, key string, opts ...Option[time.Duration]) Reader[time.Duration] {
	return apply(Map(get(ctx, key), func(s string) (time.Duration, error) {
		return time.ParseDuration(strings.TrimSpace(s))
	}), opts)
}

// URL returns a Reader which parses the variable as an absolute URL.
func URL(ctx context.Context, key string, opts ...Option[*url.URL]) Reader[*url.URL] {
	return apply(Map(get(ctx, key), func(s string) (*url.URL, error) {
		u, err := url.Parse(strings.TrimSpace(s))
		if err != nil {
			return nil, err
		}

		if !u.IsAbs() {
			return nil, fmt.Errorf("url %q is not absolute", s)
		}

		return u, nil
	}), opts)
}

// SlogLevel returns a Reader which parses the variable as a slog level
// ("debug", "info", "warn", "error", or an offset form such as "info+2").
func SlogLevel(ctx context.Context, key string, opts ...Option[slog.Level]) Reader[slog.Level] {
	return apply(Map(get(ctx, key), parseLevel), opts)
}

func parseLevel(s string) (slog.Level, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "warning" {
		s = "warn"
	}

	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("%w: %q", ErrInvalidLevel, s)
	}

	return lvl, nil
}
