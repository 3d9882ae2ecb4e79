package telemetry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/amp-labs/amp-fsm/envutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func withEnv(ctx context.Context, kv map[string]string) context.Context {
	for k, v := range kv {
		ctx = envutil.WithEnvOverride(ctx, k, v)
	}

	return ctx
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name             string
		env              map[string]string
		expectedEndpoint string
		expectedEnabled  bool
		expectedLogs     bool
	}{
		{
			name:             "kubernetes detected",
			env:              map[string]string{"KUBERNETES_SERVICE_HOST": "10.0.0.1"},
			expectedEndpoint: collectorEndpoint,
		},
		{
			name:             "outside kubernetes",
			env:              map[string]string{"KUBERNETES_SERVICE_HOST": ""},
			expectedEndpoint: "",
		},
		{
			name: "custom endpoint overrides default",
			env: map[string]string{
				"KUBERNETES_SERVICE_HOST":     "10.0.0.1",
				"OTEL_EXPORTER_OTLP_ENDPOINT": "http://custom-collector:4318",
				"OTEL_ENABLED":                "true",
				"OTEL_LOGS_ENABLED":           "true",
			},
			expectedEndpoint: "http://custom-collector:4318",
			expectedEnabled:  true,
			expectedLogs:     true,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			ctx := withEnv(t.Context(), test.env)
			ctx = withEnv(ctx, map[string]string{"OTEL_SERVICE_NAME": "fsmctl"})

			cfg, err := LoadConfigFromEnv(ctx, "test")
			require.NoError(t, err)

			assert.Equal(t, test.expectedEndpoint, cfg.Endpoint)
			assert.Equal(t, test.expectedEnabled, cfg.Enabled)
			assert.Equal(t, test.expectedLogs, cfg.LogsEnabled)
			assert.Equal(t, "fsmctl", cfg.ServiceName)
			assert.Equal(t, "test", cfg.Environment)
			assert.Equal(t, defaultTimeout, cfg.Timeout)
		})
	}
}

func TestLoadConfigFromEnvBadTimeout(t *testing.T) {
	t.Parallel()

	ctx := withEnv(t.Context(), map[string]string{"OTEL_EXPORTER_OTLP_TIMEOUT": "soon"})

	_, err := LoadConfigFromEnv(ctx, "test")
	require.ErrorIs(t, err, envutil.ErrBadEnvVar)
}

func TestInitializeDisabled(t *testing.T) { //nolint:paralleltest
	require.NoError(t, Initialize(t.Context(), &Config{Enabled: false}))
	require.NoError(t, Initialize(t.Context(), &Config{Enabled: true}))
	assert.Nil(t, LogHandler("fsm"))

	ctx, cancel := context.WithTimeout(t.Context(), time.Second)
	defer cancel()

	require.NoError(t, Shutdown(ctx))
}

func TestLoadConfigFromEnvInvalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		env     map[string]string
		wantErr error
	}{
		{
			name:    "enabled without endpoint",
			env:     map[string]string{"KUBERNETES_SERVICE_HOST": "", "OTEL_ENABLED": "true"},
			wantErr: ErrEndpointRequired,
		},
		{
			name:    "unsupported scheme",
			env:     map[string]string{"OTEL_EXPORTER_OTLP_ENDPOINT": "ftp://collector:4318"},
			wantErr: ErrUnsupportedScheme,
		},
		{
			name:    "relative endpoint",
			env:     map[string]string{"OTEL_EXPORTER_OTLP_ENDPOINT": "/v1/traces"},
			wantErr: envutil.ErrBadEnvVar,
		},
		{
			name:    "negative timeout",
			env:     map[string]string{"OTEL_EXPORTER_OTLP_TIMEOUT": "-1s"},
			wantErr: ErrInvalidTimeout,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			_, err := LoadConfigFromEnv(withEnv(t.Context(), test.env), "test")
			require.ErrorIs(t, err, test.wantErr)
			require.ErrorIs(t, err, envutil.ErrBadEnvVar)
		})
	}
}

func TestInitializeLogExporterFailure(t *testing.T) { //nolint:paralleltest
	errExporter := errors.New("exporter unavailable")

	original := newLogExporter
	newLogExporter = func(context.Context, *Config) (sdklog.Exporter, error) {
		return nil, errExporter
	}

	t.Cleanup(func() { newLogExporter = original })

	err := Initialize(t.Context(), &Config{
		ServiceName: "fsmctl",
		Endpoint:    "http://127.0.0.1:4318",
		Enabled:     true,
		LogsEnabled: true,
		Timeout:     time.Second,
	})
	require.ErrorIs(t, err, errExporter)

	mut.Lock()
	assert.Nil(t, tracerProvider)
	assert.Nil(t, loggerProvider)
	mut.Unlock()

	_, installed := otel.GetTracerProvider().(*sdktrace.TracerProvider)
	assert.False(t, installed)
}
