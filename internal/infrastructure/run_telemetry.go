package infrastructure

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"cianalysis/internal/config"
)

// RunTelemetry holds the providers of one command-line run together with the
// files they report to
type RunTelemetry struct {
	*OTelProviders
	metricsFile string
	traceFile   *os.File
	logger      *slog.Logger
}

// StartRunTelemetry initializes providers for a CLI run. Spans go to
// traceFile when tracing is enabled; Close writes the registry to
// metricsFile when metrics are enabled. Empty paths disable that output.
func StartRunTelemetry(cfg config.TelemetryConfig, metricsFile, traceFile string, logger *slog.Logger) (*RunTelemetry, error) {
	if logger == nil {
		logger = GetLogger()
	}

	otelCfg := DefaultOTelConfig()
	if cfg.ServiceName != "" {
		otelCfg.ServiceName = cfg.ServiceName
	}
	otelCfg.EnableMetrics = cfg.MetricsEnabled
	otelCfg.EnableTracing = cfg.TracingEnabled && traceFile != ""

	rt := &RunTelemetry{logger: logger}
	if cfg.MetricsEnabled {
		rt.metricsFile = metricsFile
	}

	if otelCfg.EnableTracing {
		if err := os.MkdirAll(filepath.Dir(traceFile), 0755); err != nil {
			return nil, fmt.Errorf("failed to create trace directory: %w", err)
		}
		f, err := os.OpenFile(traceFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open trace file %s: %w", traceFile, err)
		}
		rt.traceFile = f
		otelCfg.TraceWriter = f
	}

	providers, err := InitializeOTel(otelCfg, logger)
	if err != nil {
		if rt.traceFile != nil {
			rt.traceFile.Close()
		}
		return nil, err
	}
	rt.OTelProviders = providers
	return rt, nil
}

// Close writes the metrics file, flushes spans and closes the trace file.
// Failures are logged; telemetry never changes a run's outcome.
func (rt *RunTelemetry) Close(ctx context.Context) {
	if rt.metricsFile != "" {
		err := os.MkdirAll(filepath.Dir(rt.metricsFile), 0755)
		if err == nil {
			err = rt.WriteMetricsFile(rt.metricsFile)
		}
		if err != nil {
			rt.logger.WarnContext(ctx, "Failed to write metrics file",
				slog.String("path", rt.metricsFile),
				slog.String("error", err.Error()))
		}
	}

	// The Prometheus reader stops collecting once the meter provider is shut
	// down, so the registry is written first.
	if err := rt.Shutdown(ctx); err != nil {
		rt.logger.WarnContext(ctx, "Telemetry shutdown failed", slog.String("error", err.Error()))
	}

	if rt.traceFile != nil {
		if err := rt.traceFile.Close(); err != nil {
			rt.logger.WarnContext(ctx, "Failed to close trace file", slog.String("error", err.Error()))
		}
	}
}
