package temperature

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"path/filepath"
	"strconv"

	"go.opentelemetry.io/otel/attribute"

	"cianalysis/internal/config"
	"cianalysis/internal/dataprocessing"
	apperrors "cianalysis/internal/errors"
	"cianalysis/internal/exporter"
	"cianalysis/internal/files"
	"cianalysis/internal/infrastructure"
	"cianalysis/internal/plotting"
	"cianalysis/internal/validation"
	"cianalysis/pkg/contracts/domain"
)

// Output column names of the combined table
const (
	ColumnScaledSample = "tt"
	ColumnSeconds      = "Time (s)"
	ColumnCelsius      = "Temperature(°C)"
)

// Chart layout of the combined plots
const (
	chartWidth    = 10
	chartHeight   = 6
	chartTopShare = 2.0 / 3.0
)

var (
	guideTicks      = []float64{0, 30, 60, 90, 120, 150, 180, 210}
	temperatureAxis = plotting.Range{Min: 10, Max: 30}
	zoomedAxis      = plotting.Range{Min: -1, Max: 10}
)

// StackRenderer draws two-panel charts
type StackRenderer interface {
	RenderStacked(path string, stack plotting.Stack) error
}

// AlignConfig describes one alignment
type AlignConfig struct {
	Folder string
	// Neurons is how many neuron columns, counted from the left, are kept
	Neurons int
	// FooterRows trailing rows of merged_data.csv are ignored
	FooterRows int
	// SkipRows preamble lines precede the analog log header
	SkipRows int
}

// Aligner combines merged fluorescence data with the analog temperature log
type Aligner struct {
	logger    *slog.Logger
	telemetry dataprocessing.Telemetry
	discovery *files.Discovery
	validator *validation.FileValidator
	csv       *exporter.CSVWriter
	renderer  StackRenderer
}

// NewAligner creates an aligner. A nil renderer selects the gonum/plot
// renderer.
func NewAligner(logger *slog.Logger, telemetry dataprocessing.Telemetry, renderer StackRenderer) *Aligner {
	if logger == nil {
		logger = slog.Default()
	}
	logger = infrastructure.WithComponent(logger, "temperature_aligner")
	if renderer == nil {
		renderer = plotting.NewRenderer(logger)
	}
	return &Aligner{
		logger:    logger,
		telemetry: telemetry,
		discovery: files.NewDiscovery(),
		validator: validation.NewFileValidator(logger),
		csv:       exporter.NewCSVWriter(logger),
		renderer:  renderer,
	}
}

// mergedInput is merged_data.csv reduced to what the alignment needs
type mergedInput struct {
	positions []float64
	neurons   []string
	values    [][]float64
}

// Align writes <folder>-cbind.csv and the two combined charts into the
// folder. The input files are left untouched.
func (a *Aligner) Align(ctx context.Context, cfg AlignConfig) (*domain.AlignmentSummary, error) {
	ctx, span := a.telemetry.Start(ctx, "temperature.align",
		attribute.String("folder", cfg.Folder),
		attribute.Int("neurons", cfg.Neurons))
	defer span.End()

	summary, err := a.align(ctx, cfg)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		a.logger.ErrorContext(ctx, "Temperature alignment failed",
			slog.String("folder", cfg.Folder),
			slog.String("error", err.Error()))
		return nil, err
	}

	a.logger.InfoContext(ctx, "Temperature aligned",
		slog.String("folder", summary.Folder),
		slog.Int("rows", summary.Rows),
		slog.Any("neurons", summary.Neurons),
		slog.String("table", summary.TablePath))
	return summary, nil
}

func (a *Aligner) align(ctx context.Context, cfg AlignConfig) (*domain.AlignmentSummary, error) {
	if cfg.Neurons < 1 {
		return nil, apperrors.NewValidationError(
			fmt.Sprintf("neuron count must be at least 1, got %d", cfg.Neurons), nil)
	}
	if cfg.FooterRows < 0 || cfg.SkipRows < 0 {
		return nil, apperrors.NewValidationError("footer and skip rows must not be negative", nil)
	}

	folder, err := filepath.Abs(cfg.Folder)
	if err != nil {
		return nil, apperrors.NewPreconditionError(fmt.Sprintf("invalid folder %s", cfg.Folder), err)
	}
	if err := a.validator.ValidateInputDirectory(folder); err != nil {
		return nil, err
	}
	name := filepath.Base(folder)

	mergedPath := filepath.Join(folder, config.MergedCSVFile)
	if err := a.validator.ValidateCSVFile(mergedPath); err != nil {
		return nil, err
	}
	analogPath, err := a.findAnalogLog(ctx, folder)
	if err != nil {
		return nil, err
	}

	merged, err := readMerged(mergedPath, cfg.Neurons, cfg.FooterRows)
	if err != nil {
		return nil, err
	}
	analog, err := ParseAnalogLog(analogPath, cfg.SkipRows)
	if err != nil {
		return nil, err
	}

	scaled, seconds, celsius, err := resample(merged.positions, analog)
	if err != nil {
		return nil, err
	}

	a.logger.DebugContext(ctx, "Resampled temperature onto timeline",
		slog.Int("rows", len(scaled)),
		slog.Int("last_sample", analog.LastSample()),
		slog.String("analog_log", filepath.Base(analogPath)))

	tablePath := filepath.Join(folder, name+"-cbind.csv")
	headers := append([]string{config.ColumnTimepoint, ColumnScaledSample, ColumnSeconds, ColumnCelsius}, merged.neurons...)
	records := make([][]string, len(scaled))
	for i := range scaled {
		row := []string{
			exporter.FormatFloat(merged.positions[i]),
			exporter.FormatInt(scaled[i]),
			exporter.FormatInt(seconds[i]),
			exporter.FormatFloat(celsius[i]),
		}
		for _, col := range merged.values {
			row = append(row, exporter.FormatFloat(col[i]))
		}
		records[i] = row
	}
	if err := a.csv.WriteSimpleCSV(tablePath, headers, records); err != nil {
		return nil, err
	}

	x := make([]float64, len(seconds))
	xMax := 0.0
	for i, s := range seconds {
		x[i] = float64(s)
		xMax = math.Max(xMax, x[i])
	}

	var plots []string
	for i, zoom := range []*plotting.Range{nil, &zoomedAxis} {
		path := filepath.Join(folder, name+"-cbind"+strconv.Itoa(i)+".pdf")
		if err := a.renderer.RenderStacked(path, combinedStack(name, x, xMax, merged, celsius, zoom)); err != nil {
			return nil, err
		}
		plots = append(plots, path)
	}

	return &domain.AlignmentSummary{
		Folder:    name,
		Neurons:   merged.neurons,
		Rows:      len(scaled),
		TablePath: tablePath,
		PlotPaths: plots,
	}, nil
}

// findAnalogLog returns the first Analog*.csv in folder by name
func (a *Aligner) findAnalogLog(ctx context.Context, folder string) (string, error) {
	found, err := a.discovery.FindDataFiles(folder, config.AnalogLogPrefix, ".csv")
	if err != nil {
		return "", apperrors.NewStorageError(fmt.Sprintf("failed to list %s", folder), err)
	}
	if len(found) == 0 {
		return "", apperrors.NewPreconditionError(
			fmt.Sprintf("no %s*.csv temperature log in %s", config.AnalogLogPrefix, folder), nil)
	}
	if len(found) > 1 {
		a.logger.WarnContext(ctx, "Several analog logs found, using the first",
			slog.String("using", found[0].Name),
			slog.Int("count", len(found)))
	}
	return found[0].Path, nil
}

// resample maps each fluorescence timepoint onto the analog sample clock
func resample(positions []float64, analog *AnalogLog) (scaled, seconds []int, celsius []float64, err error) {
	maxPosition := math.Inf(-1)
	for _, p := range positions {
		maxPosition = math.Max(maxPosition, p)
	}
	if !(maxPosition > 0) {
		return nil, nil, nil, apperrors.NewValidationError(
			fmt.Sprintf("largest %s must be positive, got %v", config.ColumnTimepoint, maxPosition), nil)
	}

	tmax := float64(analog.LastSample())
	scaled = make([]int, len(positions))
	seconds = make([]int, len(positions))
	celsius = make([]float64, len(positions))
	for i, p := range positions {
		tt := int(math.RoundToEven(p * tmax / maxPosition))
		reading, ok := analog.Lookup(tt)
		if !ok {
			return nil, nil, nil, apperrors.NewParsingError(
				fmt.Sprintf("no analog sample %d for %s %v", tt, config.ColumnTimepoint, p), nil).
				WithContext("analog_log", analog.Path)
		}
		s, err := reading.Seconds()
		if err != nil {
			return nil, nil, nil, err
		}
		scaled[i] = tt
		seconds[i] = s
		celsius[i] = reading.Celsius
	}
	return scaled, seconds, celsius, nil
}

// readMerged loads merged_data.csv without its last footer rows and keeps the
// first n neuron columns. The Average and SEM columns are not neurons.
func readMerged(path string, n, footer int) (*mergedInput, error) {
	table, err := dataprocessing.ReadTable(path)
	if err != nil {
		return nil, err
	}
	if footer >= table.Len() {
		return nil, apperrors.NewValidationError(
			fmt.Sprintf("%s has %d rows, none left after dropping %d footer rows", path, table.Len(), footer), nil)
	}
	table = table.Head(table.Len() - footer)

	var neurons []string
	for _, name := range table.Columns() {
		if name != config.ColumnAverage && name != config.ColumnSEM {
			neurons = append(neurons, name)
		}
	}
	if len(neurons) < n {
		return nil, apperrors.NewValidationError(
			fmt.Sprintf("%d neurons requested but %s has %d neuron columns", n, filepath.Base(path), len(neurons)), nil)
	}

	in := &mergedInput{
		positions: make([]float64, table.Len()),
		neurons:   neurons[:n],
		values:    make([][]float64, n),
	}
	for i, tp := range table.Timepoints() {
		in.positions[i] = float64(tp)
	}
	for k, name := range in.neurons {
		in.values[k], _ = table.Column(name)
	}
	return in, nil
}

func combinedStack(title string, x []float64, xMax float64, merged *mergedInput, celsius []float64, zoom *plotting.Range) plotting.Stack {
	var xRange *plotting.Range
	if xMax > 0 {
		xRange = &plotting.Range{Min: 0, Max: xMax}
	}

	top := plotting.Chart{
		Title:    title,
		YLabel:   dataprocessing.AxisDeltaF,
		XRange:   xRange,
		YRange:   zoom,
		XTicks:   guideTicks,
		Guides:   true,
		ZeroLine: true,
		Legend:   true,
	}
	for i, name := range merged.neurons {
		top.Series = append(top.Series, plotting.Series{
			Name:    name,
			X:       x,
			Y:       merged.values[i],
			Color:   plotting.PaletteColor(i),
			Markers: true,
		})
	}

	bottom := plotting.Chart{
		XLabel: ColumnSeconds,
		YLabel: "Temperature (°C)",
		XRange: xRange,
		YRange: &temperatureAxis,
		XTicks: guideTicks,
		Guides: true,
		Legend: true,
		Series: []plotting.Series{{
			Name:    "Temperature",
			X:       x,
			Y:       celsius,
			Color:   plotting.Black(),
			Markers: true,
		}},
	}

	return plotting.Stack{
		Top:      top,
		Bottom:   bottom,
		TopShare: chartTopShare,
		Width:    chartWidth,
		Height:   chartHeight,
	}
}
