// CLAUDE:SUMMARY OpenTelemetry setup: OTLP/gRPC trace export when an endpoint is configured, no-op otherwise.
package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Config selects the trace collector.
type Config struct {
	// Endpoint is the OTLP/gRPC collector address. Empty disables export.
	Endpoint string `yaml:"endpoint"`
	Service  string `yaml:"service"`
}

// Setup installs a global tracer provider exporting to cfg.Endpoint and
// returns its shutdown function. With no endpoint it installs nothing and
// the global no-op provider stays in place.
func Setup(ctx context.Context, cfg Config) (func(context.Context) error, error) {
	if cfg.Endpoint == "" {
		return func(context.Context) error { return nil }, nil
	}
	if cfg.Service == "" {
		cfg.Service = "shadowq"
	}
	exp, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(cfg.Endpoint),
		otlptracegrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())))
	if err != nil {
		return nil, fmt.Errorf("telemetry: exporter: %w", err)
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(cfg.Service),
		)),
	)
	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}
