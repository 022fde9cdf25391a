package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cianalysis/internal/config"
	apperrors "cianalysis/internal/errors"
	"cianalysis/internal/shared/testutil"
)

func newTestService(t *testing.T) (*ResultsService, *config.ProjectPaths) {
	t.Helper()
	paths, err := config.NewProjectPaths(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, paths.EnsureDirectories())

	logger, _ := testutil.NewTestLogger(t)
	svc, err := NewResultsService(paths, logger)
	require.NoError(t, err)
	return svc, paths
}

func TestResultsService_ListNeurons(t *testing.T) {
	svc, paths := newTestService(t)
	testutil.WriteCSV(t, paths.NeuronResultCSV("Neuron 0"), [][]string{
		{"POSITION_T", "a", "b", "max_value", "dF/F0"},
		{"0", "1", "2", "2", "0"},
		{"1", "3", "", "3", "0.5"},
	})
	testutil.WriteResultTable(t, paths.NeuronResultCSV("Neuron 1"), testutil.Series{0: 0})
	testutil.WriteCSV(t, filepath.Join(paths.ResultsDir, "notes.csv"), [][]string{{"free text"}})
	require.NoError(t, os.WriteFile(paths.NeuronPlot("Neuron 0"), []byte("png"), 0644))

	entries, err := svc.ListNeurons(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []NeuronEntry{
		{Label: "Neuron 0", Rows: 2, Channels: 2, HasPlot: true},
		{Label: "Neuron 1", Rows: 1, Channels: 0, HasPlot: false},
	}, entries)
}

func TestResultsService_ListNeuronsMissingDir(t *testing.T) {
	paths, err := config.NewProjectPaths(filepath.Join(t.TempDir(), "absent"))
	require.NoError(t, err)
	svc, err := NewResultsService(paths, nil)
	require.NoError(t, err)

	_, err = svc.ListNeurons(context.Background())
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypePrecondition))
	assert.Error(t, svc.Health(context.Background()))
}

func TestResultsService_NeuronTable(t *testing.T) {
	svc, paths := newTestService(t)
	testutil.WriteResultTable(t, paths.NeuronResultCSV("Neuron 3"), testutil.Series{0: 0, 1: 0.25})

	table, err := svc.NeuronTable(context.Background(), "Neuron 3")
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, table.Timepoints())
	assert.Equal(t, []string{"dF/F0"}, table.Columns())

	tests := []struct {
		name    string
		label   string
		errType apperrors.ErrorType
	}{
		{"unknown", "Neuron 9", apperrors.ErrTypeNotFound},
		{"separator", "../Neuron 3", apperrors.ErrTypeValidation},
		{"backslash", `a\b`, apperrors.ErrTypeValidation},
		{"dot dot", "..", apperrors.ErrTypeValidation},
		{"empty", "", apperrors.ErrTypeValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.NeuronTable(context.Background(), tt.label)
			require.Error(t, err)
			assert.Equal(t, tt.errType, apperrors.TypeOf(err))
		})
	}
}

func TestResultsService_MergedTable(t *testing.T) {
	svc, paths := newTestService(t)

	_, err := svc.MergedTable(context.Background())
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeNotFound))

	testutil.WriteCSV(t, paths.MergedCSV(), [][]string{
		{"POSITION_T", "Neuron 0", "Average", "SEM"},
		{"0", "1", "1", ""},
	})
	table, err := svc.MergedTable(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Neuron 0", "Average", "SEM"}, table.Columns())
	require.NoError(t, svc.Health(context.Background()))
}

func TestNewResultsService_RequiresPaths(t *testing.T) {
	_, err := NewResultsService(nil, nil)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeConfig))
}
