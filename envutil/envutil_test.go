package envutil_test

import (
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/amp-labs/amp-fsm/envutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

//nolint:tparallel // Cannot use t.Parallel() with subtests that call t.Setenv()
func TestString(t *testing.T) {
	t.Run("present value", func(t *testing.T) {
		t.Setenv("FSM_TEST_STRING", "hello")

		reader := envutil.String(t.Context(), "FSM_TEST_STRING")
		value, err := reader.Value()
		require.NoError(t, err)
		assert.Equal(t, "hello", value)
		assert.True(t, reader.HasValue())
	})

	t.Run("missing value", func(t *testing.T) {
		t.Parallel()

		reader := envutil.String(t.Context(), "FSM_TEST_STRING_MISSING")
		_, err := reader.Value()
		require.ErrorIs(t, err, envutil.ErrEnvVarMissing)
		assert.False(t, reader.HasValue())
	})

	t.Run("with default", func(t *testing.T) {
		t.Parallel()

		reader := envutil.String(t.Context(), "FSM_TEST_STRING_MISSING", envutil.Default("default"))
		value, err := reader.Value()
		require.NoError(t, err)
		assert.Equal(t, "default", value)
	})

	t.Run("context override wins", func(t *testing.T) {
		t.Setenv("FSM_TEST_OVERRIDE", "from-env")

		ctx := envutil.WithEnvOverride(t.Context(), "FSM_TEST_OVERRIDE", "from-ctx")
		assert.Equal(t, "from-ctx", envutil.String(ctx, "FSM_TEST_OVERRIDE").ValueOrElse(""))
	})
}

func TestBool(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		value    string
		expected bool
		wantErr  bool
	}{
		{"true lowercase", "true", true, false},
		{"true uppercase", "TRUE", true, false},
		{"one", "1", true, false},
		{"false", "false", false, false},
		{"zero", "0", false, false},
		{"padded", " true ", true, false},
		{"garbage", "yes please", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctx := envutil.WithEnvOverride(t.Context(), "FSM_TEST_BOOL", tt.value)

			value, err := envutil.Bool(ctx, "FSM_TEST_BOOL").Value()
			if tt.wantErr {
				require.ErrorIs(t, err, envutil.ErrBadEnvVar)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.expected, value)
		})
	}
}

func TestIntAndDuration(t *testing.T) {
	t.Parallel()

	ctx := envutil.WithEnvOverride(t.Context(), "FSM_TEST_INT", "42")
	ctx = envutil.WithEnvOverride(ctx, "FSM_TEST_DURATION", "1500ms")

	assert.Equal(t, 42, envutil.Int(ctx, "FSM_TEST_INT").ValueOrElse(0))
	assert.Equal(t, 1500*time.Millisecond, envutil.Duration(ctx, "FSM_TEST_DURATION").ValueOrElse(0))
	assert.Equal(t, 7, envutil.Int(ctx, "FSM_TEST_INT_MISSING", envutil.Default(7)).ValueOrElse(0))
}

func TestSlogLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()

			ctx := envutil.WithEnvOverride(t.Context(), "FSM_TEST_LEVEL", tt.in)

			lvl, err := envutil.SlogLevel(ctx, "FSM_TEST_LEVEL").Value()
			require.NoError(t, err)
			assert.Equal(t, tt.want, lvl)
		})
	}

	ctx := envutil.WithEnvOverride(t.Context(), "FSM_TEST_LEVEL", "loud")
	_, err := envutil.SlogLevel(ctx, "FSM_TEST_LEVEL").Value()
	require.ErrorIs(t, err, envutil.ErrInvalidLevel)
}

func TestURL(t *testing.T) {
	t.Parallel()

	ctx := envutil.WithEnvOverride(t.Context(), "FSM_TEST_URL", "http://collector:4318")
	u, err := envutil.URL(ctx, "FSM_TEST_URL").Value()
	require.NoError(t, err)
	assert.Equal(t, "collector:4318", u.Host)

	ctx = envutil.WithEnvOverride(t.Context(), "FSM_TEST_URL", "collector")
	assert.True(t, envutil.URL(ctx, "FSM_TEST_URL").HasError())
}

func TestValidateAndIfMissing(t *testing.T) {
	t.Parallel()

	errTooSmall := errors.New("too small")
	errRequired := errors.New("required")

	ctx := envutil.WithEnvOverride(t.Context(), "FSM_TEST_DEPTH", "0")

	_, err := envutil.Int(ctx, "FSM_TEST_DEPTH", envutil.Validate(func(i int) error {
		if i < 1 {
			return errTooSmall
		}

		return nil
	})).Value()
	require.ErrorIs(t, err, errTooSmall)

	_, err = envutil.String(ctx, "FSM_TEST_ABSENT", envutil.IfMissing[string](errRequired)).Value()
	require.ErrorIs(t, err, errRequired)
}
