package dataprocessing

import (
	"fmt"
	"math"
	"os"
	"sort"

	"cianalysis/internal/config"
	apperrors "cianalysis/internal/errors"
	"cianalysis/internal/exporter"
)

// Table is a set of float columns aligned on integer timepoints. Missing
// values are NaN. The timepoint column is implicit and always written first.
type Table struct {
	timepoints []int
	index      map[int]int
	names      []string
	columns    map[string][]float64
}

// NewTimeline returns an empty table over timepoints 0..positionT-1
func NewTimeline(positionT int) (*Table, error) {
	if positionT < 1 {
		return nil, apperrors.NewValidationError(
			fmt.Sprintf("position t must be at least 1, got %d", positionT), nil)
	}
	tps := make([]int, positionT)
	for i := range tps {
		tps[i] = i
	}
	return newTable(tps), nil
}

func newTable(timepoints []int) *Table {
	index := make(map[int]int, len(timepoints))
	for i, tp := range timepoints {
		index[tp] = i
	}
	return &Table{
		timepoints: timepoints,
		index:      index,
		columns:    make(map[string][]float64),
	}
}

// Len returns the number of rows
func (t *Table) Len() int {
	return len(t.timepoints)
}

// Timepoints returns the row keys in order. The slice must not be modified.
func (t *Table) Timepoints() []int {
	return t.timepoints
}

// Columns returns the value column names in their current order
func (t *Table) Columns() []string {
	return append([]string(nil), t.names...)
}

// Column returns the values of name aligned with Timepoints
func (t *Table) Column(name string) ([]float64, bool) {
	values, ok := t.columns[name]
	return values, ok
}

// Join left-joins values onto the timeline as column name. Timepoints that
// values does not cover stay missing; entries outside the timeline are
// dropped.
func (t *Table) Join(name string, values map[int]float64) error {
	col := make([]float64, len(t.timepoints))
	for i := range col {
		col[i] = math.NaN()
	}
	for tp, v := range values {
		if row, ok := t.index[tp]; ok {
			col[row] = v
		}
	}
	return t.AddColumn(name, col)
}

// AddColumn appends a column that is already aligned with the timeline
func (t *Table) AddColumn(name string, values []float64) error {
	if name == "" || name == config.ColumnTimepoint {
		return apperrors.NewValidationError(fmt.Sprintf("invalid column name %q", name), nil)
	}
	if _, exists := t.columns[name]; exists {
		return apperrors.NewValidationError(fmt.Sprintf("duplicate column %q", name), nil)
	}
	if len(values) != len(t.timepoints) {
		return apperrors.NewValidationError(
			fmt.Sprintf("column %q has %d values for %d timepoints", name, len(values), len(t.timepoints)), nil)
	}
	t.names = append(t.names, name)
	t.columns[name] = values
	return nil
}

// SortColumns orders the value columns by name
func (t *Table) SortColumns() {
	sort.Strings(t.names)
}

// Series returns column name keyed by timepoint, missing values included
func (t *Table) Series(name string) (map[int]float64, bool) {
	values, ok := t.columns[name]
	if !ok {
		return nil, false
	}
	series := make(map[int]float64, len(values))
	for i, tp := range t.timepoints {
		series[tp] = values[i]
	}
	return series, true
}

// Select returns a table sharing the timeline with only the named columns
func (t *Table) Select(names ...string) (*Table, error) {
	out := newTable(t.timepoints)
	for _, name := range names {
		values, ok := t.columns[name]
		if !ok {
			return nil, apperrors.NewNotFoundError(fmt.Sprintf("column %q", name))
		}
		if err := out.AddColumn(name, values); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Head returns a table with the first n rows. n is clamped to the table
// length.
func (t *Table) Head(n int) *Table {
	n = max(0, min(n, len(t.timepoints)))
	out := newTable(t.timepoints[:n])
	for _, name := range t.names {
		out.names = append(out.names, name)
		out.columns[name] = t.columns[name][:n]
	}
	return out
}

// Headers returns the CSV header row
func (t *Table) Headers() []string {
	return append([]string{config.ColumnTimepoint}, t.names...)
}

// Records returns the CSV body rows, missing values as empty fields
func (t *Table) Records() [][]string {
	records := make([][]string, len(t.timepoints))
	row := make([]float64, len(t.names))
	for i, tp := range t.timepoints {
		for j, name := range t.names {
			row[j] = t.columns[name][i]
		}
		records[i] = exporter.FormatRow(tp, row)
	}
	return records
}

// ReadTable loads a CSV table with a POSITION_T column. Rows whose timepoint
// is not a whole number are skipped, as are repeats of an earlier timepoint.
// Empty or non-numeric cells become missing.
func ReadTable(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.NewPreconditionError(fmt.Sprintf("table %s does not exist", path), err)
		}
		return nil, apperrors.NewStorageError(fmt.Sprintf("failed to open %s", path), err)
	}
	defer f.Close()

	header, rows, err := ReadRecords(f)
	if err != nil {
		return nil, apperrors.NewParsingError(fmt.Sprintf("failed to read %s", path), err)
	}

	tcol := HeaderIndex(header, config.ColumnTimepoint)
	if tcol < 0 {
		return nil, apperrors.NewParsingError(
			fmt.Sprintf("%s has no %s column", path, config.ColumnTimepoint), nil)
	}

	var tps []int
	var kept [][]string
	seen := make(map[int]bool)
	for _, row := range rows {
		tp, ok := ParseWhole(Cell(row, tcol))
		if !ok || seen[tp] {
			continue
		}
		seen[tp] = true
		tps = append(tps, tp)
		kept = append(kept, row)
	}

	table := newTable(tps)
	for c, name := range header {
		if c == tcol {
			continue
		}
		values := make([]float64, len(kept))
		for i, row := range kept {
			values[i] = ParseValue(Cell(row, c))
		}
		if err := table.AddColumn(name, values); err != nil {
			return nil, apperrors.NewParsingError(fmt.Sprintf("invalid header in %s", path), err)
		}
	}
	return table, nil
}
