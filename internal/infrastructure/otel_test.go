package infrastructure

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cianalysis/internal/shared/testutil"
)

func TestInitializeOTel_MetricsOnly(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)

	providers, err := InitializeOTel(DefaultOTelConfig(), logger)
	require.NoError(t, err)
	defer providers.Shutdown(context.Background())

	require.NotNil(t, providers.Metrics)
	assert.Nil(t, providers.TracerProvider)

	ctx := context.Background()
	providers.Metrics.RecordNeuron(ctx, "success")
	providers.Metrics.RecordNeuron(ctx, "failure")
	providers.Metrics.RecordSkippedFile(ctx, "parse")
	providers.Metrics.RecordUndefinedBaseline(ctx, "window_minimum")
	providers.Metrics.RecordStageDuration(ctx, "merge", 250*time.Millisecond)

	w := httptest.NewRecorder()
	providers.PrometheusHandler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "cia_neurons_processed")
	assert.Contains(t, body, `status="failure"`)
	assert.Contains(t, body, "cia_stage_duration_seconds")

	path := filepath.Join(t.TempDir(), "metrics.prom")
	require.NoError(t, providers.WriteMetricsFile(path))
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "cia_files_skipped")
}

func TestInitializeOTel_Tracing(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	var spans bytes.Buffer

	providers, err := InitializeOTel(&OTelConfig{
		ServiceName:    "cianalysis-test",
		ServiceVersion: "test",
		EnableTracing:  true,
		TraceWriter:    &spans,
		SampleRatio:    1.0,
	}, logger)
	require.NoError(t, err)

	ctx, span := providers.Tracer.Start(context.Background(), "neuron.extract")
	RecordError(ctx, errors.New("no channels"))
	span.End()

	require.NoError(t, providers.Shutdown(context.Background()))
	assert.Contains(t, spans.String(), "neuron.extract")
	assert.Contains(t, spans.String(), "no channels")
}

func TestInitializeOTel_TracingWithoutWriter(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)

	_, err := InitializeOTel(&OTelConfig{EnableTracing: true}, logger)
	assert.Error(t, err)
}

func TestPipelineMetrics_NilSafe(t *testing.T) {
	var m *PipelineMetrics
	assert.NotPanics(t, func() {
		m.RecordNeuron(context.Background(), "success")
		m.RecordSkippedFile(context.Background(), "parse")
		m.RecordUndefinedBaseline(context.Background(), "first_timepoint")
		m.RecordStageDuration(context.Background(), "extraction", time.Second)
	})
}
