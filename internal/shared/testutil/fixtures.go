package testutil

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// Series maps a timepoint to a value. NaN values are written as empty cells.
type Series map[int]float64

// trackMateHeader mirrors the spot statistics export, which carries three
// descriptive rows below the column names
var trackMateHeader = [][]string{
	{"LABEL", "ID", "TRACK_ID", "POSITION_T", "FRAME", "MEAN_INTENSITY_CH1"},
	{"Label", "Spot ID", "Track ID", "T", "Frame", "Mean intensity ch1"},
	{"Label", "Spot ID", "Track ID", "T", "Frame", "Mean ch1"},
	{"", "", "", "(frame)", "", "(counts)"},
}

// analogPreamble precedes the column names of a thermal controller log
var analogPreamble = []string{
	"Instrument,TC-720",
	"Operator,lab",
	"Date,2025-01-21",
	"Rate,1 Hz",
	"Channels,1",
	"",
}

// WriteCSV writes records to path, creating parent directories
func WriteCSV(t *testing.T, path string, records [][]string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))

	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w := csv.NewWriter(f)
	require.NoError(t, w.WriteAll(records))
	return path
}

// WriteIntensityCSV writes a minimal raw intensity export for one channel
func WriteIntensityCSV(t *testing.T, path string, series Series) string {
	t.Helper()
	records := [][]string{{"LABEL", "POSITION_T", "MEAN_INTENSITY_CH1"}}
	for _, tp := range sortedKeys(series) {
		records = append(records, []string{
			"ID" + strconv.Itoa(tp), strconv.Itoa(tp), formatCell(series[tp]),
		})
	}
	return WriteCSV(t, path, records)
}

// WriteTrackMateCSV writes a raw intensity export including the descriptive
// header rows newer exporters emit
func WriteTrackMateCSV(t *testing.T, path string, series Series) string {
	t.Helper()
	records := append([][]string{}, trackMateHeader...)
	for i, tp := range sortedKeys(series) {
		records = append(records, []string{
			"ID" + strconv.Itoa(i), strconv.Itoa(i), "0", strconv.Itoa(tp), strconv.Itoa(tp), formatCell(series[tp]),
		})
	}
	return WriteCSV(t, path, records)
}

// WriteResultTable writes a per-neuron result table holding only the
// timepoint and dF/F0 columns
func WriteResultTable(t *testing.T, path string, series Series) string {
	t.Helper()
	records := [][]string{{"POSITION_T", "dF/F0"}}
	for _, tp := range sortedKeys(series) {
		records = append(records, []string{strconv.Itoa(tp), formatCell(series[tp])})
	}
	return WriteCSV(t, path, records)
}

// WriteBackgroundXLSX writes a background workbook. header names the
// columns; a nil cell in rows is left empty.
func WriteBackgroundXLSX(t *testing.T, path string, header []string, rows [][]interface{}) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))

	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)

	for col, name := range header {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		require.NoError(t, err)
		require.NoError(t, f.SetCellValue(sheet, cell, name))
	}
	for r, row := range rows {
		for col, value := range row {
			if value == nil {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(col+1, r+2)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue(sheet, cell, value))
		}
	}

	require.NoError(t, f.SaveAs(path))
	return path
}

// WriteAnalogLog writes a temperature log with one sample every 15 s at
// 20 + s/2 °C, preceded by six preamble lines
func WriteAnalogLog(t *testing.T, path string, samples int) string {
	t.Helper()
	lines := append([]string{}, analogPreamble...)
	lines = append(lines, "Sample,Time (s),AI0 (°C)")
	for s := 0; s < samples; s++ {
		secs := s * 15
		lines = append(lines, fmt.Sprintf("%d,%02d:%04.1f,%v", s, secs/60, float64(secs%60), 20+float64(s)/2))
	}
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0644))
	return path
}

// ReadCSV returns every record of path
func ReadCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	require.NoError(t, err)
	return records
}

func sortedKeys(series Series) []int {
	keys := make([]int, 0, len(series))
	for k := range series {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

func formatCell(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
