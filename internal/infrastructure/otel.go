package infrastructure

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

const (
	ServiceName    = "cianalysis"
	ServiceVersion = "1.0.0"
	MeterName      = "cianalysis"
)

// OTelConfig holds OpenTelemetry configuration
type OTelConfig struct {
	ServiceName    string
	ServiceVersion string
	EnableTracing  bool
	EnableMetrics  bool
	// TraceWriter receives JSON spans when tracing is enabled
	TraceWriter io.Writer
	SampleRatio float64
}

// OTelProviders holds the OpenTelemetry providers. Providers are never
// global; each command passes Tracer and Metrics to the components it builds.
type OTelProviders struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *sdkmetric.MeterProvider
	Tracer         trace.Tracer
	Meter          metric.Meter
	Registry       *prometheus.Registry
	Metrics        *PipelineMetrics
	Logger         *slog.Logger
}

// DefaultOTelConfig returns metrics on, tracing off
func DefaultOTelConfig() *OTelConfig {
	return &OTelConfig{
		ServiceName:    ServiceName,
		ServiceVersion: ServiceVersion,
		EnableMetrics:  true,
		SampleRatio:    1.0,
	}
}

// InitializeOTel initializes tracing and metrics. Disabled signals fall back
// to no-op implementations so callers never check for nil.
func InitializeOTel(cfg *OTelConfig, logger *slog.Logger) (*OTelProviders, error) {
	if cfg == nil {
		cfg = DefaultOTelConfig()
	}
	if logger == nil {
		logger = GetLogger()
	}
	ctx := context.Background()

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
	)

	providers := &OTelProviders{
		Logger:   logger,
		Tracer:   tracenoop.NewTracerProvider().Tracer(MeterName),
		Meter:    metricnoop.NewMeterProvider().Meter(MeterName),
		Registry: prometheus.NewRegistry(),
	}

	if cfg.EnableTracing {
		if err := initializeTracing(cfg, res, providers); err != nil {
			return nil, fmt.Errorf("failed to initialize tracing: %w", err)
		}
	}

	if cfg.EnableMetrics {
		if err := initializeMetrics(cfg, res, providers); err != nil {
			return nil, fmt.Errorf("failed to initialize metrics: %w", err)
		}
	}

	metrics, err := CreatePipelineMetrics(providers.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create pipeline metrics: %w", err)
	}
	providers.Metrics = metrics

	logger.DebugContext(ctx, "OpenTelemetry initialization complete",
		slog.Bool("tracing_enabled", cfg.EnableTracing),
		slog.Bool("metrics_enabled", cfg.EnableMetrics))

	return providers, nil
}

func initializeTracing(cfg *OTelConfig, res *resource.Resource, providers *OTelProviders) error {
	if cfg.TraceWriter == nil {
		return fmt.Errorf("tracing enabled without a trace writer")
	}
	exporter, err := stdouttrace.New(stdouttrace.WithWriter(cfg.TraceWriter))
	if err != nil {
		return fmt.Errorf("failed to create trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.TraceIDRatioBased(cfg.SampleRatio)),
	)
	providers.TracerProvider = tp
	providers.Tracer = tp.Tracer(MeterName, trace.WithInstrumentationVersion(cfg.ServiceVersion))
	return nil
}

func initializeMetrics(cfg *OTelConfig, res *resource.Resource, providers *OTelProviders) error {
	exporter, err := otelprom.New(otelprom.WithRegisterer(providers.Registry))
	if err != nil {
		return fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
	)
	providers.MeterProvider = mp
	providers.Meter = mp.Meter(MeterName, metric.WithInstrumentationVersion(cfg.ServiceVersion))
	return nil
}

// PrometheusHandler serves the private registry
func (p *OTelProviders) PrometheusHandler() http.Handler {
	return promhttp.HandlerFor(p.Registry, promhttp.HandlerOpts{})
}

// WriteMetricsFile dumps the registry in text exposition format
func (p *OTelProviders) WriteMetricsFile(path string) error {
	return prometheus.WriteToTextfile(path, p.Registry)
}

// Shutdown flushes spans and stops the providers
func (p *OTelProviders) Shutdown(ctx context.Context) error {
	var errs []error

	if p.TracerProvider != nil {
		if err := p.TracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer provider shutdown: %w", err))
		}
	}
	if p.MeterProvider != nil {
		if err := p.MeterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter provider shutdown: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("opentelemetry shutdown errors: %v", errs)
	}
	return nil
}

// PipelineMetrics groups the instruments recorded by the analysis stages.
// A nil *PipelineMetrics is valid and records nothing.
type PipelineMetrics struct {
	neuronsProcessed   metric.Int64Counter
	filesSkipped       metric.Int64Counter
	undefinedBaselines metric.Int64Counter
	stageDuration      metric.Float64Histogram
}

// CreatePipelineMetrics creates the pipeline instruments on meter
func CreatePipelineMetrics(meter metric.Meter) (*PipelineMetrics, error) {
	neuronsProcessed, err := meter.Int64Counter(
		"cia_neurons_processed",
		metric.WithDescription("Neurons processed by the extractor, by status"),
	)
	if err != nil {
		return nil, err
	}

	filesSkipped, err := meter.Int64Counter(
		"cia_files_skipped",
		metric.WithDescription("Input files skipped because they could not be parsed"),
	)
	if err != nil {
		return nil, err
	}

	undefinedBaselines, err := meter.Int64Counter(
		"cia_undefined_baselines",
		metric.WithDescription("Neurons whose F0 could not be determined"),
	)
	if err != nil {
		return nil, err
	}

	stageDuration, err := meter.Float64Histogram(
		"cia_stage_duration_seconds",
		metric.WithDescription("Pipeline stage duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &PipelineMetrics{
		neuronsProcessed:   neuronsProcessed,
		filesSkipped:       filesSkipped,
		undefinedBaselines: undefinedBaselines,
		stageDuration:      stageDuration,
	}, nil
}

// RecordNeuron counts one neuron with status "success" or "failure"
func (m *PipelineMetrics) RecordNeuron(ctx context.Context, status string) {
	if m == nil {
		return
	}
	m.neuronsProcessed.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}

// RecordSkippedFile counts one skipped input file
func (m *PipelineMetrics) RecordSkippedFile(ctx context.Context, reason string) {
	if m == nil {
		return
	}
	m.filesSkipped.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

// RecordUndefinedBaseline counts one neuron whose dF/F0 is entirely missing
func (m *PipelineMetrics) RecordUndefinedBaseline(ctx context.Context, variant string) {
	if m == nil {
		return
	}
	m.undefinedBaselines.Add(ctx, 1, metric.WithAttributes(attribute.String("variant", variant)))
}

// RecordStageDuration observes how long a stage ran
func (m *PipelineMetrics) RecordStageDuration(ctx context.Context, stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.stageDuration.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.String("stage", stage)))
}

// RecordError marks the span in ctx as failed
func RecordError(ctx context.Context, err error) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// NoopTracer returns a tracer that records nothing, for tests and callers
// that were not handed one
func NoopTracer() trace.Tracer {
	return tracenoop.NewTracerProvider().Tracer(MeterName)
}
