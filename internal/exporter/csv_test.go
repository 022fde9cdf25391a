package exporter

import (
	"encoding/csv"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "cianalysis/internal/errors"
	"cianalysis/internal/shared/testutil"
)

func readAll(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return records
}

func TestCSVWriter_WriteCSV(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	w := NewCSVWriter(logger)
	path := filepath.Join(t.TempDir(), "results", "Neuron 0.csv")

	err := w.WriteCSV(path, WriteOptions{
		Headers: []string{"POSITION_T", "dF/F0"},
		Records: [][]string{
			FormatRow(0, []float64{0}),
			FormatRow(1, []float64{math.NaN()}),
			FormatRow(2, []float64{0.25}),
		},
	})
	require.NoError(t, err)

	assert.Equal(t, [][]string{
		{"POSITION_T", "dF/F0"},
		{"0", "0"},
		{"1", ""},
		{"2", "0.25"},
	}, readAll(t, path))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary file must not be left behind")
}

func TestCSVWriter_Replace(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	w := NewCSVWriter(logger)
	path := filepath.Join(t.TempDir(), "merged_data.csv")

	require.NoError(t, w.WriteSimpleCSV(path, []string{"a"}, [][]string{{"1"}}))
	require.NoError(t, w.WriteSimpleCSV(path, []string{"a"}, [][]string{{"2"}}))

	assert.Equal(t, [][]string{{"a"}, {"2"}}, readAll(t, path))
}

func TestCSVWriter_NoOverwrite(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	w := NewCSVWriter(logger)
	path := filepath.Join(t.TempDir(), "Background_list.csv")
	require.NoError(t, os.WriteFile(path, []byte("original\n"), 0644))

	err := w.WriteCSV(path, WriteOptions{
		Headers:     []string{"Neuron 0"},
		Records:     [][]string{{"1.5"}},
		NoOverwrite: true,
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrOutputExists))
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypePrecondition))

	content, readErr := os.ReadFile(path)
	require.NoError(t, readErr)
	assert.Equal(t, "original\n", string(content))
}

func TestCSVWriter_BOMPrefix(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	w := NewCSVWriter(logger)
	path := filepath.Join(t.TempDir(), "out.csv")

	require.NoError(t, w.WriteCSV(path, WriteOptions{Headers: []string{"x"}, BOMPrefix: true}))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xEF, 0xBB, 0xBF, 'x', '\n'}, content)
}

func TestFormatFloat(t *testing.T) {
	a, b := 0.1, 0.2
	tests := []struct {
		name  string
		input float64
		want  string
	}{
		{"integral", 3, "3"},
		{"fraction", -0.125, "-0.125"},
		{"missing", math.NaN(), ""},
		{"infinite", math.Inf(1), ""},
		{"shortest", a + b, "0.30000000000000004"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatFloat(tt.input))
		})
	}
}

func TestFormatDecimal(t *testing.T) {
	tests := []struct {
		name  string
		input float64
		want  string
	}{
		{"integral", 101, "101.0"},
		{"zero", 0, "0.0"},
		{"negative integral", -2, "-2.0"},
		{"fraction", 50.5, "50.5"},
		{"missing", math.NaN(), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatDecimal(tt.input))
		})
	}
}
