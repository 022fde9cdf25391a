package dataprocessing

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/montanaflynn/stats"
	"github.com/xuri/excelize/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"cianalysis/internal/config"
	apperrors "cianalysis/internal/errors"
	"cianalysis/internal/exporter"
	"cianalysis/internal/infrastructure"
	"cianalysis/internal/validation"
)

// BackgroundLists holds each neuron's background averages, keyed by the
// neuron's column label
type BackgroundLists struct {
	Path   string
	labels []string
	values map[string][]float64
}

// Len returns the number of neuron columns
func (b *BackgroundLists) Len() int {
	return len(b.labels)
}

// Labels returns the column labels in file order
func (b *BackgroundLists) Labels() []string {
	return append([]string(nil), b.labels...)
}

// Values returns the background list of label
func (b *BackgroundLists) Values(label string) ([]float64, bool) {
	v, ok := b.values[label]
	return v, ok
}

// ForNeuron returns the background list of neuron i
func (b *BackgroundLists) ForNeuron(i int) ([]float64, error) {
	label := config.NeuronLabel(i)
	v, ok := b.values[label]
	if !ok {
		return nil, apperrors.NewPreconditionError(
			fmt.Sprintf("background list %s has no %q column", b.Path, label), nil)
	}
	return v, nil
}

// ReadBackgroundLists reads Background_list.csv. Cells that are plain digit
// strings are annotations and skipped; the remaining cells that parse as
// numbers form the neuron's list. Build writes whole means as "101.0" so they
// are never mistaken for annotations.
func ReadBackgroundLists(path string) (*BackgroundLists, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.NewPreconditionError(fmt.Sprintf("background list %s does not exist", path), err)
		}
		return nil, apperrors.NewStorageError(fmt.Sprintf("failed to open %s", path), err)
	}
	defer f.Close()

	header, rows, err := ReadRecords(f)
	if err != nil {
		return nil, apperrors.NewParsingError(fmt.Sprintf("failed to read %s", path), err)
	}

	lists := &BackgroundLists{
		Path:   path,
		labels: header,
		values: make(map[string][]float64, len(header)),
	}
	for c, label := range header {
		values := []float64{}
		for _, row := range rows {
			s := Cell(row, c)
			if isDigits(s) {
				continue
			}
			v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
			if err != nil {
				continue
			}
			values = append(values, v)
		}
		lists.values[label] = values
	}
	return lists, nil
}

// BackgroundBuilder turns the per-stack background workbook into
// Background_list.csv
type BackgroundBuilder struct {
	logger    *slog.Logger
	telemetry Telemetry
	validator *validation.FileValidator
	csv       *exporter.CSVWriter
}

// NewBackgroundBuilder creates a builder
func NewBackgroundBuilder(logger *slog.Logger, telemetry Telemetry) *BackgroundBuilder {
	if logger == nil {
		logger = slog.Default()
	}
	logger = infrastructure.WithComponent(logger, "background_builder")
	return &BackgroundBuilder{
		logger:    logger,
		telemetry: telemetry,
		validator: validation.NewFileValidator(logger),
		csv:       exporter.NewCSVWriter(logger),
	}
}

// Build averages every stack per neuron, drops stacks with no data at all and
// writes one left-justified column per neuron to output. An empty output
// selects Background_list.csv next to input. Build never replaces an existing
// file.
func (b *BackgroundBuilder) Build(ctx context.Context, input, output string) (*BackgroundLists, error) {
	ctx, span := b.telemetry.tracer().Start(ctx, "background.build",
		trace.WithAttributes(attribute.String("input", input)))
	defer span.End()

	if output == "" {
		output = filepath.Join(filepath.Dir(input), config.BackgroundListFile)
	}

	lists, err := b.build(ctx, input, output)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		b.logger.ErrorContext(ctx, "Background list generation failed",
			slog.String("input", input),
			slog.String("output", output),
			slog.String("error", err.Error()))
		return nil, err
	}

	b.logger.InfoContext(ctx, "Background list generated",
		slog.String("output", output),
		slog.Int("neurons", lists.Len()))
	return lists, nil
}

func (b *BackgroundBuilder) build(ctx context.Context, input, output string) (*BackgroundLists, error) {
	if err := b.validator.ValidateExcelFile(input); err != nil {
		return nil, err
	}
	if err := b.validator.ValidateNoOverwrite(output); err != nil {
		return nil, err
	}

	rows, err := readFirstSheet(input)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, apperrors.NewParsingError(fmt.Sprintf("%s is empty", input), nil)
	}

	header := rows[0]
	ncol := HeaderIndex(trimAll(header), config.ColumnNeuronsGroup)
	if ncol < 0 {
		return nil, apperrors.NewParsingError(
			fmt.Sprintf("%s has no %q column", input, config.ColumnNeuronsGroup), nil)
	}

	width := 0
	for _, row := range rows {
		width = max(width, len(row))
	}
	var stacks []int
	for c := 0; c < width; c++ {
		if c != ncol {
			stacks = append(stacks, c)
		}
	}

	// samples[label][k] collects the values of stacks[k]
	samples := make(map[string][][]float64)
	var labels []string
	for _, row := range rows[1:] {
		label := strings.TrimSpace(Cell(row, ncol))
		if label == "" {
			continue
		}
		if _, ok := samples[label]; !ok {
			samples[label] = make([][]float64, len(stacks))
			labels = append(labels, label)
		}
		for k, c := range stacks {
			if v := ParseValue(Cell(row, c)); !math.IsNaN(v) {
				samples[label][k] = append(samples[label][k], v)
			}
		}
	}
	if len(labels) == 0 {
		return nil, apperrors.NewParsingError(
			fmt.Sprintf("%s has no rows with a %q value", input, config.ColumnNeuronsGroup), nil)
	}
	sort.Slice(labels, func(i, j int) bool { return naturalLess(labels[i], labels[j]) })

	means := make(map[string][]float64, len(labels))
	retained := make([]bool, len(stacks))
	for _, label := range labels {
		m := make([]float64, len(stacks))
		for k, vals := range samples[label] {
			mean, err := stats.Mean(vals)
			if err != nil {
				m[k] = math.NaN()
				continue
			}
			m[k] = mean
			retained[k] = true
		}
		means[label] = m
	}

	lists := &BackgroundLists{
		Path:   output,
		labels: labels,
		values: make(map[string][]float64, len(labels)),
	}
	depth := 0
	for _, label := range labels {
		col := []float64{}
		for k, mean := range means[label] {
			if retained[k] && !math.IsNaN(mean) {
				col = append(col, mean)
			}
		}
		lists.values[label] = col
		depth = max(depth, len(col))
	}

	dropped := 0
	for _, keep := range retained {
		if !keep {
			dropped++
		}
	}
	b.logger.DebugContext(ctx, "Background stacks averaged",
		slog.Int("stacks", len(stacks)),
		slog.Int("empty_stacks", dropped),
		slog.Int("neurons", len(labels)))

	records := make([][]string, depth)
	for r := range records {
		records[r] = make([]string, len(labels))
		for c, label := range labels {
			if col := lists.values[label]; r < len(col) {
				records[r][c] = exporter.FormatDecimal(col[r])
			}
		}
	}

	if err := b.csv.WriteCSV(output, exporter.WriteOptions{
		Headers:     labels,
		Records:     records,
		NoOverwrite: true,
	}); err != nil {
		return nil, err
	}
	return lists, nil
}

// readFirstSheet returns the raw cell values of the workbook's first sheet
func readFirstSheet(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, apperrors.NewParsingError(fmt.Sprintf("failed to open workbook %s", path), err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, apperrors.NewParsingError(fmt.Sprintf("workbook %s has no sheets", path), nil)
	}
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, apperrors.NewParsingError(fmt.Sprintf("failed to read sheet %q", sheets[0]), err)
	}
	return rows, nil
}

func trimAll(ss []string) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = strings.TrimSpace(s)
	}
	return out
}

// isDigits reports whether s is a non-empty run of digits
func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// naturalLess compares strings with embedded numbers by value, so that
// "Neuron 2" sorts before "Neuron 10"
func naturalLess(a, b string) bool {
	for a != "" && b != "" {
		ra, rb := a[0], b[0]
		if isASCIIDigit(ra) && isASCIIDigit(rb) {
			na, restA := leadingNumber(a)
			nb, restB := leadingNumber(b)
			if len(na) != len(nb) {
				return len(na) < len(nb)
			}
			if na != nb {
				return na < nb
			}
			a, b = restA, restB
			continue
		}
		if ra != rb {
			return ra < rb
		}
		a, b = a[1:], b[1:]
	}
	return len(a) < len(b)
}

func isASCIIDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// leadingNumber splits off the digit run at the start of s. Leading zeros are
// dropped so "007" and "7" compare equal by value.
func leadingNumber(s string) (string, string) {
	i := 0
	for i < len(s) && isASCIIDigit(s[i]) {
		i++
	}
	digits := strings.TrimLeft(s[:i], "0")
	return digits, s[i:]
}
