package main

import (
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cianalysis/internal/config"
	"cianalysis/internal/shared/testutil"
)

func TestParseFlags(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    options
		wantErr bool
	}{
		{"minimal", []string{"-i", "exp", "-n", "3"}, options{folder: "exp", neurons: 3, footerRows: -1}, false},
		{"footer", []string{"-i", "exp", "-n", "1", "-footer", "0"}, options{folder: "exp", neurons: 1}, false},
		{"missing folder", []string{"-n", "3"}, options{}, true},
		{"missing count", []string{"-i", "exp"}, options{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts, err := parseFlags(tt.args, io.Discard)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, *opts)
		})
	}
}

func TestRun_WritesCombinedTableAndCharts(t *testing.T) {
	folder := filepath.Join(t.TempDir(), "rec-3")
	testutil.WriteCSV(t, filepath.Join(folder, config.MergedCSVFile), [][]string{
		{"POSITION_T", "Neuron 0", "Average", "SEM"},
		{"0", "0", "0", ""},
		{"1", "0.5", "0.5", ""},
		{"2", "1", "1", ""},
		{"3", "7", "7", ""},
	})
	testutil.WriteAnalogLog(t, filepath.Join(folder, "Analog 1.csv"), 5)

	cfg := config.Default()
	logger, _ := testutil.NewTestLogger(t)
	summary, err := run(context.Background(), &cfg, &options{folder: folder, neurons: 1, footerRows: 1}, logger)
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Rows)
	// tmax 4 over POSITION_T 2: tt 0, 2, 4
	assert.Equal(t, [][]string{
		{"POSITION_T", "tt", "Time (s)", "Temperature(°C)", "Neuron 0"},
		{"0", "0", "0", "20", "0"},
		{"1", "2", "30", "21", "0.5"},
		{"2", "4", "60", "22", "1"},
	}, testutil.ReadCSV(t, summary.TablePath))
	for _, p := range summary.PlotPaths {
		assert.FileExists(t, p)
	}
}
