package temperature

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cianalysis/internal/dataprocessing"
	apperrors "cianalysis/internal/errors"
	"cianalysis/internal/shared/testutil"
)

func TestReadTrace(t *testing.T) {
	path := testutil.WriteCSV(t, filepath.Join(t.TempDir(), "response.csv"), [][]string{
		{"Time(s)", "r1", "r2", "r3"},
		{"0", "1", "2", "3"},
		{"30", "1", "", "3"},
		{"", "9", "9", "9"},
		{"60", "5", "", ""},
	})

	trace, err := ReadTrace(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"r1", "r2", "r3"}, trace.Columns)
	assert.Equal(t, []float64{0, 30, 60}, trace.Time)
	assert.Equal(t, []float64{2, 2, 5}, trace.Mean)
	assert.InDelta(t, 1/math.Sqrt(3), trace.SEM[0], 1e-12)
	assert.InDelta(t, 1, trace.SEM[1], 1e-12)
	assert.True(t, math.IsNaN(trace.SEM[2]))
}

func TestReadTrace_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := ReadTrace(filepath.Join(dir, "absent.csv"))
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypePrecondition))

	path := testutil.WriteCSV(t, filepath.Join(dir, "no_time.csv"), [][]string{{"Seconds", "a"}, {"0", "1"}})
	_, err = ReadTrace(path)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeParsing))
}

func TestSummarizer_Summarize(t *testing.T) {
	dir := t.TempDir()
	response := testutil.WriteCSV(t, filepath.Join(dir, "in", "response.csv"), [][]string{
		{"Time", "a", "b"},
		{"0", "0", "0"},
		{"30", "1", "3"},
		{"60", "2", "2"},
	})
	temperature := testutil.WriteCSV(t, filepath.Join(dir, "temps", "temperature.csv"), [][]string{
		{"Time", "t1", "t2"},
		{"0", "20", "22"},
		{"30", "18", "18"},
		{"60", "15", "17"},
	})

	renderer := &recordingStacks{}
	result, err := NewSummarizer(nil, dataprocessing.Telemetry{}, renderer).
		Summarize(context.Background(), response, temperature)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "temps", "combined_gradient_plot.png"), result.PlotPath)
	assert.Equal(t, []float64{0, 2, 2}, result.Response.Mean)
	assert.Equal(t, []float64{21, 18, 16}, result.Temperature.Mean)

	stack, ok := renderer.stacks[result.PlotPath]
	require.True(t, ok)
	assert.Equal(t, 0.75, stack.TopShare)
	assert.Equal(t, "ΔF/F_min", stack.Top.YLabel)
	assert.Equal(t, []float64{30, 60, 90, 120, 150, 180, 210}, stack.Bottom.XTicks)
}

func TestSummarizer_WritesPNG(t *testing.T) {
	dir := t.TempDir()
	response := testutil.WriteCSV(t, filepath.Join(dir, "response.csv"), [][]string{
		{"Time", "a", "b"}, {"0", "0", "1"}, {"30", "1", "3"},
	})
	temperature := testutil.WriteCSV(t, filepath.Join(dir, "temperature.csv"), [][]string{
		{"Time(s)", "t1"}, {"0", "20"}, {"30", "18"},
	})

	result, err := NewSummarizer(nil, dataprocessing.Telemetry{}, nil).
		Summarize(context.Background(), response, temperature)
	require.NoError(t, err)

	data, err := os.ReadFile(result.PlotPath)
	require.NoError(t, err)
	assert.Equal(t, "\x89PNG", string(data[:4]))
}
