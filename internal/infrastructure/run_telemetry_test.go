package infrastructure

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cianalysis/internal/config"
	"cianalysis/internal/shared/testutil"
)

func TestRunTelemetry_WritesFiles(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	dir := filepath.Join(t.TempDir(), "results")
	metricsFile := filepath.Join(dir, config.MetricsFile)
	traceFile := filepath.Join(dir, config.TraceFile)

	rt, err := StartRunTelemetry(config.TelemetryConfig{
		TracingEnabled: true,
		MetricsEnabled: true,
	}, metricsFile, traceFile, logger)
	require.NoError(t, err)

	ctx, span := rt.Tracer.Start(context.Background(), "batch.run")
	rt.Metrics.RecordNeuron(ctx, "success")
	span.End()
	rt.Close(context.Background())

	metrics, err := os.ReadFile(metricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(metrics), "cia_neurons_processed_total")
	assert.Contains(t, string(metrics), `status="success"`)

	spans, err := os.ReadFile(traceFile)
	require.NoError(t, err)
	assert.Contains(t, string(spans), "batch.run")
}

func TestRunTelemetry_Disabled(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	dir := t.TempDir()
	metricsFile := filepath.Join(dir, config.MetricsFile)
	traceFile := filepath.Join(dir, config.TraceFile)

	rt, err := StartRunTelemetry(config.TelemetryConfig{}, metricsFile, traceFile, logger)
	require.NoError(t, err)
	assert.Nil(t, rt.TracerProvider)
	assert.NotNil(t, rt.Metrics)
	rt.Close(context.Background())

	assert.NoFileExists(t, metricsFile)
	assert.NoFileExists(t, traceFile)
}
