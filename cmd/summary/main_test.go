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
	opts, err := parseFlags([]string{"-config", "c.yaml", "resp.csv", "temp.csv"}, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, options{responseCSV: "resp.csv", temperatureCSV: "temp.csv", configFile: "c.yaml"}, *opts)

	_, err = parseFlags([]string{"resp.csv"}, io.Discard)
	assert.Error(t, err)
}

func TestRun_WritesSummaryPlot(t *testing.T) {
	dir := t.TempDir()
	response := testutil.WriteCSV(t, filepath.Join(dir, "responses", "neurons.csv"), [][]string{
		{"Time(s)", "rec1", "rec2"},
		{"0", "0", "0.2"},
		{"30", "0.5", "0.7"},
		{"60", "1", ""},
	})
	temps := testutil.WriteCSV(t, filepath.Join(dir, "temps", "temperature.csv"), [][]string{
		{"Time", "rec1", "rec2"},
		{"0", "20", "21"},
		{"30", "22", "23"},
		{"60", "24", "25"},
	})

	cfg := config.Default()
	logger, _ := testutil.NewTestLogger(t)
	result, err := run(context.Background(), &cfg, &options{responseCSV: response, temperatureCSV: temps}, logger)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "temps", config.SummaryPlotFile), result.PlotPath)
	assert.FileExists(t, result.PlotPath)
	assert.InDelta(t, 0.6, result.Response.Mean[1], 1e-9)
	assert.InDelta(t, 1.0, result.Response.Mean[2], 1e-9)
	assert.InDelta(t, 24.5, result.Temperature.Mean[2], 1e-9)
}
