// Package telemetry configures OpenTelemetry tracing for the toptag binaries.
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
	"go.uber.org/zap"
)

// InitTracer initializes the OpenTelemetry tracer provider and installs it globally
func InitTracer(ctx context.Context, serviceName, endpoint string) (*sdktrace.TracerProvider, error) {
	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(endpoint),
		otlptracehttp.WithInsecure(),
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
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.AlwaysSample())),
	)

	otel.SetTracerProvider(tp)
	installPropagator()

	return tp, nil
}

// Setup initializes tracing when enabled and returns a shutdown function that is always safe
// to call. Trace context propagation is installed either way so ids still flow through jobs.
func Setup(ctx context.Context, enabled bool, serviceName, endpoint string, logger *zap.Logger) (func(context.Context) error, error) {
	if !enabled {
		installPropagator()
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
	return func(ctx context.Context) error { return Shutdown(ctx, tp) }, nil
}

// Shutdown gracefully shuts down the tracer provider
func Shutdown(ctx context.Context, tp *sdktrace.TracerProvider) error {
	if tp == nil {
		return nil
	}
	return tp.Shutdown(ctx)
}

func installPropagator() {
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
}
