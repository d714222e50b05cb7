// Package telemetry wires an optional OpenTelemetry tracer into the
// orchestrator. Tracing is opt-in: when disabled (the default), Setup
// returns a no-op tracer provider and the rest of the gateway pays no
// tracing overhead.
package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// Provider holds the configured tracer and a Shutdown hook to flush it on
// process exit.
type Provider struct {
	Tracer   trace.Tracer
	Shutdown func(context.Context) error
}

// Setup configures tracing for serviceName. When enabled is false it
// returns a no-op Provider whose Shutdown is a no-op. When enabled is true
// it builds a batching stdout exporter, matching the lightweight
// local-process telemetry pattern used by itsneelabh-gomind — a full OTLP
// collector endpoint is out of scope for a single local gateway process.
func Setup(serviceName string, enabled bool) (*Provider, error) {
	if !enabled {
		return &Provider{
			Tracer:   otel.Tracer(serviceName),
			Shutdown: func(context.Context) error { return nil },
		}, nil
	}

	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, fmt.Errorf("telemetry: building stdout exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	otel.SetTracerProvider(tp)

	return &Provider{
		Tracer:   tp.Tracer(serviceName),
		Shutdown: tp.Shutdown,
	}, nil
}

// StartPhase starts a span named for an orchestrator phase. Callers should
// always defer span.End() on the returned span.
func (p *Provider) StartPhase(ctx context.Context, phase string) (context.Context, trace.Span) {
	return p.Tracer.Start(ctx, phase)
}
