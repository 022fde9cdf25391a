package testutil

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBufferedSlogHandler_Captures(t *testing.T) {
	logger, handler := NewTestLogger(t)

	logger.Info("neuron extracted", slog.String("neuron", "Neuron 0"))
	logger.Error("neuron failed", slog.Int("neuron", 3))

	require.Len(t, handler.GetRecords(), 2)
	assert.True(t, handler.ContainsMessage("extracted"))
	assert.True(t, handler.ContainsAttr("neuron", "Neuron 0"))
	assert.True(t, handler.ContainsAttr("neuron", 3))
	assert.False(t, handler.ContainsAttr("neuron", "Neuron 3"))
	assert.Len(t, handler.GetRecordsByLevel(slog.LevelError), 1)
}

func TestBufferedSlogHandler_BoundAttrs(t *testing.T) {
	logger, handler := NewTestLogger(t)

	derived := logger.With(slog.String("component", "extractor")).WithGroup("job")
	derived.Info("started", slog.String("label", "Neuron 1"))
	logger.Info("unrelated")

	records := handler.GetRecords()
	require.Len(t, records, 2)
	assert.Equal(t, "extractor", records[0].Attrs["component"])
	assert.Equal(t, "Neuron 1", records[0].Attrs["job.label"])
	assert.NotContains(t, records[1].Attrs, "component")
}

func TestBufferedSlogHandler_Clear(t *testing.T) {
	logger, handler := NewTestLogger(t)

	logger.Info("message 1")
	logger.With("k", "v").Info("message 2")
	assert.Equal(t, 2, handler.Count())

	handler.Clear()
	assert.Zero(t, handler.Count())
}

func TestAssertionHelpers(t *testing.T) {
	logger, handler := NewTestLogger(t)

	logger.Info("merge finished", slog.String("component", "aggregator"))
	logger.Warn("skipping file", slog.Int("retry", 3))

	AssertLogContains(t, handler, slog.LevelInfo, "merge")
	AssertLogAttr(t, handler, "component", "aggregator")
	AssertLogAttr(t, handler, "retry", 3)
	AssertNoErrors(t, handler)
}
