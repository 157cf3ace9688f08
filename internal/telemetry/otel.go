// Package telemetry wires OpenTelemetry tracing for the server, the worker and the CLI.
package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.20.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// TracerName is the instrumentation name used for stats run spans
const TracerName = "github.com/benvon/video-tag-stats"

// Tracer returns the tracer used for stats run spans. It is a no-op until a
// provider has been installed by Setup or InitTracer.
func Tracer() trace.Tracer {
	return otel.Tracer(TracerName)
}

// InitTracer initializes the OpenTelemetry tracer provider with an OTLP HTTP exporter
func InitTracer(ctx context.Context, serviceName, endpoint string) (*sdktrace.TracerProvider, error) {
	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(endpoint),
		otlptracehttp.WithInsecure(), // use WithTLSClientConfig outside a trusted network
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return tp, nil
}

// Setup installs a tracer provider when enabled and returns its shutdown func.
// When disabled the returned shutdown is a no-op and the global no-op provider stays in place.
func Setup(ctx context.Context, enabled bool, serviceName, endpoint string, logger *zap.Logger) (func(context.Context) error, error) {
	if !enabled {
		return func(context.Context) error { return nil }, nil
	}
	tp, err := InitTracer(ctx, serviceName, endpoint)
	if err != nil {
		return nil, err
	}
	if logger != nil {
		logger.Info("tracing_enabled",
			zap.String("service", serviceName),
			zap.String("endpoint", endpoint),
		)
	}
	return func(ctx context.Context) error {
		return Shutdown(ctx, tp)
	}, nil
}

// Shutdown gracefully shuts down the tracer provider
func Shutdown(ctx context.Context, tp *sdktrace.TracerProvider) error {
	if tp == nil {
		return nil
	}
	return tp.Shutdown(ctx)
}
