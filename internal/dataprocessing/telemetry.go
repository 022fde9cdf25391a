package dataprocessing

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"cianalysis/internal/infrastructure"
)

// Telemetry carries the tracing and metrics handles of a run. The zero value
// records nothing.
type Telemetry struct {
	Tracer  trace.Tracer
	Metrics *infrastructure.PipelineMetrics
}

// NewTelemetry picks the handles out of initialized providers
func NewTelemetry(p *infrastructure.OTelProviders) Telemetry {
	if p == nil {
		return Telemetry{}
	}
	return Telemetry{Tracer: p.Tracer, Metrics: p.Metrics}
}

func (t Telemetry) tracer() trace.Tracer {
	if t.Tracer == nil {
		return infrastructure.NoopTracer()
	}
	return t.Tracer
}

// Start opens a span with the given attributes
func (t Telemetry) Start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return t.tracer().Start(ctx, name, trace.WithAttributes(attrs...))
}
