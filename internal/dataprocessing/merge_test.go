package dataprocessing

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "cianalysis/internal/errors"
	"cianalysis/internal/shared/testutil"
)

func TestAggregator_Merge(t *testing.T) {
	results := t.TempDir()
	testutil.WriteResultTable(t, filepath.Join(results, "Neuron 1.csv"), testutil.Series{0: 0, 1: 1, 2: nan, 3: 3})
	testutil.WriteResultTable(t, filepath.Join(results, "Neuron 0.csv"), testutil.Series{0: 0, 1: 3, 2: 2, 7: 9})
	testutil.WriteCSV(t, filepath.Join(results, "notes.csv"), [][]string{{"comment"}, {"hello"}})
	testutil.WriteResultTable(t, filepath.Join(results, "Neuron Plots", "nested.csv"), testutil.Series{0: 100})

	renderer := newRecordingRenderer()
	agg := NewAggregator(nil, Telemetry{}, renderer)
	summary, err := agg.Merge(context.Background(), MergeConfig{ResultsDir: results, PositionT: 4})
	require.NoError(t, err)

	assert.Equal(t, []string{"Neuron 0", "Neuron 1"}, summary.Neurons)
	assert.Equal(t, []string{"notes.csv"}, summary.SkippedFiles)
	assert.Equal(t, 4, summary.Rows)
	assert.Equal(t, filepath.Join(results, "merged_data", "merged_data.csv"), summary.TablePath)

	assert.Equal(t, [][]string{
		{"POSITION_T", "Neuron 0", "Neuron 1", "Average", "SEM"},
		{"0", "0", "0", "0", "0"},
		{"1", "3", "1", "2", "1"},
		{"2", "2", "", "2", ""},
		{"3", "", "3", "3", ""},
	}, testutil.ReadCSV(t, summary.TablePath))

	chart, ok := renderer.byName(filepath.Base(summary.PlotPath))
	require.True(t, ok)
	assert.Equal(t, "Average ΔF/F0", chart.Title)
	require.Len(t, chart.Series, 1)
	assert.Len(t, chart.Series[0].Err, 4)
}

func TestAggregator_MergeIsIdempotent(t *testing.T) {
	results := t.TempDir()
	testutil.WriteResultTable(t, filepath.Join(results, "Neuron 0.csv"), testutil.Series{0: 0.5, 1: 1})

	agg := NewAggregator(nil, Telemetry{}, newRecordingRenderer())
	cfg := MergeConfig{ResultsDir: results, PositionT: 2, Title: "run"}

	first, err := agg.Merge(context.Background(), cfg)
	require.NoError(t, err)
	before, err := os.ReadFile(first.TablePath)
	require.NoError(t, err)

	second, err := agg.Merge(context.Background(), cfg)
	require.NoError(t, err)
	after, err := os.ReadFile(second.TablePath)
	require.NoError(t, err)

	assert.Equal(t, string(before), string(after))
	entries, err := os.ReadDir(results)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{"Neuron 0.csv", "merged_data"}, names)
}

func TestAggregator_MergeErrors(t *testing.T) {
	agg := NewAggregator(nil, Telemetry{}, newRecordingRenderer())

	empty := t.TempDir()
	_, err := agg.Merge(context.Background(), MergeConfig{ResultsDir: empty, PositionT: 3})
	assert.True(t, errors.Is(err, apperrors.ErrNoNeuronTables))
	assert.NoDirExists(t, filepath.Join(empty, "merged_data"))

	unreadable := t.TempDir()
	testutil.WriteCSV(t, filepath.Join(unreadable, "x.csv"), [][]string{{"a"}, {"1"}})
	_, err = agg.Merge(context.Background(), MergeConfig{ResultsDir: unreadable, PositionT: 3})
	assert.True(t, errors.Is(err, apperrors.ErrNoNeuronTables))

	_, err = agg.Merge(context.Background(), MergeConfig{ResultsDir: filepath.Join(empty, "absent"), PositionT: 3})
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypePrecondition))
}

// Two neurons extracted with identical channels merge to zero spread.
func TestPipeline_EndToEnd(t *testing.T) {
	paths := newProject(t, [][]string{
		{"Neuron 0", "Neuron 1"},
		{"1.0", "1.0"},
	})
	for i := 0; i < 2; i++ {
		testutil.WriteIntensityCSV(t, filepath.Join(paths.NeuronDir(i), "ch.csv"),
			testutil.Series{0: 3, 1: 5, 2: 4, 3: 7, 4: 3})
	}

	extractor, err := NewExtractor(ExtractorConfig{PositionT: 5, Policy: FirstTimepoint{}}, nil, Telemetry{}, newRecordingRenderer())
	require.NoError(t, err)
	summary, err := NewBatchRunner(extractor, nil, Telemetry{}).Run(context.Background(), BatchConfig{Paths: paths, PositionT: 5})
	require.NoError(t, err)
	require.Len(t, summary.Succeeded, 2)

	merged, err := NewAggregator(nil, Telemetry{}, newRecordingRenderer()).
		Merge(context.Background(), MergeConfig{ResultsDir: paths.ResultsDir, PositionT: 5})
	require.NoError(t, err)

	assert.Equal(t, [][]string{
		{"POSITION_T", "Neuron 0", "Neuron 1", "Average", "SEM"},
		{"0", "0", "0", "0", "0"},
		{"1", "1", "1", "1", "0"},
		{"2", "0.5", "0.5", "0.5", "0"},
		{"3", "2", "2", "2", "0"},
		{"4", "0", "0", "0", "0"},
	}, testutil.ReadCSV(t, merged.TablePath))
}
