// Package stage reports the deployment environment a binary runs in, read
// from RUNNING_ENV. It labels telemetry resources.
package stage

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"strings"

	"github.com/amp-labs/amp-fsm/envutil"
)

// Stage represents a deployment environment.
type Stage string

// ErrUnrecognizedStage is returned when RUNNING_ENV holds an unknown value.
var ErrUnrecognizedStage = errors.New("unrecognized stage")

const (
	Unknown Stage = "unknown"
	Local   Stage = "local"
	Test    Stage = "test"
	Dev     Stage = "dev"
	Staging Stage = "staging"
	Prod    Stage = "prod"
)

// Parse converts a RUNNING_ENV value. It is case-insensitive.
func Parse(s string) (Stage, error) {
	switch st := Stage(strings.ToLower(strings.TrimSpace(s))); st {
	case Local, Test, Dev, Staging, Prod:
		return st, nil
	default:
		return Unknown, fmt.Errorf("%w: %q", ErrUnrecognizedStage, s)
	}
}

// Current returns the stage named by RUNNING_ENV. When it is unset the
// stage is Test inside `go test` binaries and Local otherwise. An invalid
// value is an error.
func Current(ctx context.Context) (Stage, error) {
	fallback := Local
	if flag.Lookup("test.v") != nil {
		fallback = Test
	}

	return envutil.Map(envutil.String(ctx, "RUNNING_ENV"), Parse).
		WithDefault(fallback).
		Value()
}

// IsLocal reports whether the stage is a developer machine or a test run.
func (s Stage) IsLocal() bool {
	return s == Local || s == Test
}

func (s Stage) String() string {
	return string(s)
}
