// Package telemetry bootstraps OpenTelemetry trace and log export for fsm binaries.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/amp-labs/amp-fsm/envutil"
	"github.com/amp-labs/amp-fsm/logger"
	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

const (
	defaultServiceVersion = "1.0.0"
	defaultTimeout        = 5 * time.Second
	collectorEndpoint     = "http://opentelemetry-collector.opentelemetry.svc.cluster.local:4318"
)

var (
	// ErrEndpointRequired is returned when telemetry is enabled without a
	// collector to send it to.
	ErrEndpointRequired = errors.New("OTEL_EXPORTER_OTLP_ENDPOINT is required when OTEL_ENABLED is set")
	// ErrUnsupportedScheme is returned for collector endpoints other than http(s).
	ErrUnsupportedScheme = errors.New("unsupported OTLP endpoint scheme")
	// ErrInvalidTimeout is returned for non-positive exporter timeouts.
	ErrInvalidTimeout = errors.New("OTLP timeout must be positive")
)

// newLogExporter is replaced in tests.
var newLogExporter = func(ctx context.Context, config *Config) (sdklog.Exporter, error) { //nolint:gochecknoglobals
	return otlploghttp.New(ctx,
		otlploghttp.WithEndpointURL(config.Endpoint),
		otlploghttp.WithTimeout(config.Timeout),
	)
}

var (
	mut            sync.Mutex               //nolint:gochecknoglobals
	tracerProvider *sdktrace.TracerProvider //nolint:gochecknoglobals
	loggerProvider *sdklog.LoggerProvider   //nolint:gochecknoglobals
)

// Config holds the OpenTelemetry configuration.
type Config struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	Endpoint       string
	Enabled        bool
	LogsEnabled    bool
	Timeout        time.Duration
}

// LoadConfigFromEnv loads OpenTelemetry configuration from environment variables.
func LoadConfigFromEnv(ctx context.Context, runningEnv string) (*Config, error) {
	enabled := envutil.Bool(ctx, "OTEL_ENABLED", envutil.Default(false)).ValueOrElse(false)
	logsEnabled := envutil.Bool(ctx, "OTEL_LOGS_ENABLED", envutil.Default(false)).ValueOrElse(false)

	// Inside Kubernetes the cluster collector is the default destination.
	defaultEndpoint := ""
	if envutil.String(ctx, "KUBERNETES_SERVICE_HOST").ValueOrElse("") != "" {
		defaultEndpoint = collectorEndpoint
	}

	svcName, err := envutil.String(ctx, "OTEL_SERVICE_NAME",
		envutil.Default(logger.GetSubsystem(ctx))).Value()
	if err != nil {
		return nil, err
	}

	svcVersion, err := envutil.String(ctx, "OTEL_SERVICE_VERSION",
		envutil.Default(defaultServiceVersion)).Value()
	if err != nil {
		return nil, err
	}

	endpointOpts := []envutil.Option[*url.URL]{envutil.Validate(httpScheme)}
	if enabled && defaultEndpoint == "" {
		endpointOpts = append(endpointOpts, envutil.IfMissing[*url.URL](ErrEndpointRequired))
	}

	endpointReader := envutil.URL(ctx, "OTEL_EXPORTER_OTLP_ENDPOINT", endpointOpts...)

	endpoint := defaultEndpoint

	endpointURL, err := endpointReader.Value()

	switch {
	case err == nil:
		endpoint = endpointURL.String()
	case endpointReader.HasError():
		return nil, err
	}

	timeout, err := envutil.Duration(ctx, "OTEL_EXPORTER_OTLP_TIMEOUT",
		envutil.Default(defaultTimeout),
		envutil.Validate(func(d time.Duration) error {
			if d <= 0 {
				return fmt.Errorf("%w: %s", ErrInvalidTimeout, d)
			}

			return nil
		})).Value()
	if err != nil {
		return nil, err
	}

	return &Config{
		ServiceName:    svcName,
		ServiceVersion: svcVersion,
		Environment:    runningEnv,
		Endpoint:       endpoint,
		Enabled:        enabled,
		LogsEnabled:    logsEnabled,
		Timeout:        timeout,
	}, nil
}

func httpScheme(u *url.URL) error {
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}

	return nil
}

// Initialize sets up OpenTelemetry tracing (and log export when LogsEnabled)
// with the given configuration. It is a no-op when telemetry is disabled or
// no endpoint is configured.
func Initialize(ctx context.Context, config *Config) error {
	if !config.Enabled {
		slog.Info("OpenTelemetry is disabled")

		return nil
	}

	if config.Endpoint == "" {
		slog.Warn("OpenTelemetry endpoint not configured, telemetry will be disabled")

		return nil
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(config.ServiceName),
			semconv.ServiceVersion(config.ServiceVersion),
			semconv.DeploymentEnvironment(config.Environment),
			semconv.ServiceInstanceID(logger.GetPodName()),
		),
	)
	if err != nil {
		return fmt.Errorf("failed to create resource: %w", err)
	}

	traceExporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpointURL(config.Endpoint),
		otlptracehttp.WithTimeout(config.Timeout),
	)
	if err != nil {
		return fmt.Errorf("failed to create OTLP trace exporter: %w", err)
	}

	// Exporters are created before any provider is installed globally.
	var logExporter sdklog.Exporter

	if config.LogsEnabled {
		logExporter, err = newLogExporter(ctx, config)
		if err != nil {
			if shutdownErr := traceExporter.Shutdown(ctx); shutdownErr != nil {
				slog.Warn("failed to shut down OTLP trace exporter", "error", shutdownErr)
			}

			return fmt.Errorf("failed to create OTLP log exporter: %w", err)
		}
	}

	mut.Lock()
	defer mut.Unlock()

	tracerProvider = sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)

	otel.SetTracerProvider(tracerProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	if logExporter != nil {
		loggerProvider = sdklog.NewLoggerProvider(
			sdklog.WithProcessor(sdklog.NewBatchProcessor(logExporter)),
			sdklog.WithResource(res),
		)
	}

	slog.Info("OpenTelemetry initialized",
		"service", config.ServiceName,
		"version", config.ServiceVersion,
		"environment", config.Environment,
		"endpoint", config.Endpoint,
		"logs", config.LogsEnabled,
	)

	return nil
}

// LogHandler returns an slog handler that forwards records to the OTLP log
// exporter, or nil when log export is not initialized. Pass it to
// logger.WithHandler.
func LogHandler(name string) slog.Handler {
	mut.Lock()
	defer mut.Unlock()

	if loggerProvider == nil {
		return nil
	}

	return otelslog.NewHandler(name, otelslog.WithLoggerProvider(loggerProvider))
}

// Shutdown flushes and shuts down the providers created by Initialize.
func Shutdown(ctx context.Context) error {
	mut.Lock()
	defer mut.Unlock()

	var errs []error

	if tracerProvider != nil {
		slog.Info("Shutting down OpenTelemetry tracer provider")

		errs = append(errs, tracerProvider.Shutdown(ctx))
		tracerProvider = nil
	}

	if loggerProvider != nil {
		errs = append(errs, loggerProvider.Shutdown(ctx))
		loggerProvider = nil
	}

	return errors.Join(errs...)
}
