package dataprocessing

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"cianalysis/internal/config"
	apperrors "cianalysis/internal/errors"
	"cianalysis/internal/exporter"
	"cianalysis/internal/files"
	"cianalysis/internal/infrastructure"
	"cianalysis/internal/plotting"
	"cianalysis/internal/validation"
	"cianalysis/pkg/contracts/domain"
)

// Axis labels of the per-neuron and merged charts
const (
	AxisPositionT = "Position T"
	AxisDeltaF    = "ΔF/F0"
)

// ChartRenderer draws a chart to a file
type ChartRenderer interface {
	Render(path string, chart plotting.Chart) error
}

// ExtractorConfig holds the settings shared by every neuron of a run
type ExtractorConfig struct {
	PositionT          int
	Policy             BaselinePolicy
	WriteIntermediates bool
}

// NeuronJob is the input of one extractor run
type NeuronJob struct {
	Label      string
	WorkDir    string
	ResultsDir string
	// Background holds one value per channel, in channel id order
	Background []float64
}

// ResultCSV returns where the job's table is written
func (j NeuronJob) ResultCSV() string {
	return filepath.Join(j.ResultsDir, j.Label+".csv")
}

// PlotPath returns where the job's chart is written
func (j NeuronJob) PlotPath() string {
	return filepath.Join(j.ResultsDir, config.NeuronPlotsDirName, j.Label+".png")
}

// Extractor computes one neuron's dF/F0 table from its raw channel exports
type Extractor struct {
	config    ExtractorConfig
	logger    *slog.Logger
	telemetry Telemetry
	discovery *files.Discovery
	files     *files.Manager
	validator *validation.FileValidator
	csv       *exporter.CSVWriter
	renderer  ChartRenderer
}

// NewExtractor creates an extractor. A nil renderer selects the gonum/plot
// renderer.
func NewExtractor(cfg ExtractorConfig, logger *slog.Logger, telemetry Telemetry, renderer ChartRenderer) (*Extractor, error) {
	if cfg.PositionT < 1 {
		return nil, apperrors.NewValidationError(
			fmt.Sprintf("position t must be at least 1, got %d", cfg.PositionT), nil)
	}
	if cfg.Policy == nil {
		return nil, apperrors.NewValidationError("baseline policy is required", nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = infrastructure.WithComponent(logger, "extractor")
	if renderer == nil {
		renderer = plotting.NewRenderer(logger)
	}

	return &Extractor{
		config:    cfg,
		logger:    logger,
		telemetry: telemetry,
		discovery: files.NewDiscovery(),
		files:     files.NewManager(logger),
		validator: validation.NewFileValidator(logger),
		csv:       exporter.NewCSVWriter(logger),
		renderer:  renderer,
	}, nil
}

// Policy returns the baseline policy in use
func (e *Extractor) Policy() BaselinePolicy {
	return e.config.Policy
}

// Extract processes one neuron. Unreadable channel files are logged and
// skipped; the neuron fails when no channel is left or when the background
// list does not cover the channels exactly.
func (e *Extractor) Extract(ctx context.Context, job NeuronJob) (*domain.NeuronResult, error) {
	ctx, span := e.telemetry.tracer().Start(ctx, "neuron.extract",
		trace.WithAttributes(
			attribute.String("neuron", job.Label),
			attribute.String("policy", e.config.Policy.Name()),
		))
	defer span.End()

	logger := e.logger.With(slog.String("neuron", job.Label))
	result, err := e.extract(ctx, logger, job)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		return nil, err
	}

	span.SetAttributes(attribute.Int("channels", len(result.Channels)))
	logger.InfoContext(ctx, "Neuron extracted",
		slog.Int("channels", len(result.Channels)),
		slog.Int("skipped_files", len(result.SkippedFiles)),
		slog.Bool("baseline_defined", result.BaselineDefined()),
		slog.String("table", result.TablePath))
	return result, nil
}

func (e *Extractor) extract(ctx context.Context, logger *slog.Logger, job NeuronJob) (*domain.NeuronResult, error) {
	if err := e.validator.ValidateInputDirectory(job.WorkDir); err != nil {
		return nil, err
	}

	channels, skipped, err := e.readChannels(ctx, logger, job.WorkDir)
	if err != nil {
		return nil, err
	}
	if len(channels) == 0 {
		return nil, apperrors.NewParsingError(
			fmt.Sprintf("no usable intensity files in %s", job.WorkDir), apperrors.ErrNoChannels).
			WithContext("skipped_files", skipped)
	}

	background, err := mapBackground(channels, job.Background)
	if err != nil {
		return nil, err
	}

	table, err := NewTimeline(e.config.PositionT)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(channels))
	columns := make([][]float64, len(channels))
	for i, ch := range channels {
		ids[i] = ch.ID
		if err := table.Join(ch.ID, ch.subtract(background[ch.ID])); err != nil {
			return nil, err
		}
		columns[i], _ = table.Column(ch.ID)
	}

	maxValues := RowMax(columns, table.Len())
	if err := table.AddColumn(config.ColumnMaxValue, maxValues); err != nil {
		return nil, err
	}

	f0 := e.config.Policy.Baseline(table.Timepoints(), maxValues)
	if !UsableBaseline(f0) {
		logger.WarnContext(ctx, "Baseline undefined, dF/F0 left empty",
			slog.String("policy", e.config.Policy.Name()),
			slog.Float64("f0", f0))
		e.telemetry.Metrics.RecordUndefinedBaseline(ctx, e.config.Policy.Name())
	}
	deltaF := DeltaF(maxValues, f0)
	if err := table.AddColumn(config.ColumnDeltaF, deltaF); err != nil {
		return nil, err
	}

	if e.config.WriteIntermediates {
		if err := e.writeIntermediates(job, table, ids); err != nil {
			return nil, err
		}
	}

	if err := e.csv.WriteSimpleCSV(job.ResultCSV(), table.Headers(), table.Records()); err != nil {
		return nil, err
	}
	if err := e.renderer.Render(job.PlotPath(), neuronChart(job.Label, table.Timepoints(), deltaF)); err != nil {
		return nil, err
	}

	result := &domain.NeuronResult{
		Label:        job.Label,
		Channels:     ids,
		SkippedFiles: skipped,
		Rows:         table.Len(),
		TablePath:    job.ResultCSV(),
		PlotPath:     job.PlotPath(),
	}
	if UsableBaseline(f0) {
		result.F0 = &f0
	}
	return result, nil
}

// readChannels parses every data file in dir, sorted by channel id. Files
// that fail to parse or repeat a channel id are skipped and returned by name.
func (e *Extractor) readChannels(ctx context.Context, logger *slog.Logger, dir string) ([]*Channel, []string, error) {
	found, err := e.discovery.FindCSVFiles(dir)
	if err != nil {
		return nil, nil, apperrors.NewStorageError(fmt.Sprintf("failed to list %s", dir), err)
	}

	var channels []*Channel
	var skipped []string
	seen := make(map[string]bool)
	for _, file := range found {
		ch, err := ParseIntensityFile(file.Path)
		if err != nil {
			logger.WarnContext(ctx, "Skipping unreadable intensity file",
				slog.String("file", file.Name),
				slog.String("error", err.Error()))
			e.telemetry.Metrics.RecordSkippedFile(ctx, "parse")
			skipped = append(skipped, file.Name)
			continue
		}
		if seen[ch.ID] {
			logger.WarnContext(ctx, "Skipping intensity file with duplicate channel id",
				slog.String("file", file.Name),
				slog.String("channel", ch.ID))
			e.telemetry.Metrics.RecordSkippedFile(ctx, "duplicate")
			skipped = append(skipped, file.Name)
			continue
		}
		seen[ch.ID] = true
		channels = append(channels, ch)
	}

	sort.Slice(channels, func(i, j int) bool { return channels[i].ID < channels[j].ID })
	return channels, skipped, nil
}

// mapBackground pairs the i-th background value with the i-th channel in id
// order. The list must cover every channel exactly.
func mapBackground(channels []*Channel, background []float64) (map[string]float64, error) {
	if len(background) != len(channels) {
		return nil, apperrors.NewValidationError(
			fmt.Sprintf("%d background values for %d channels", len(background), len(channels)),
			apperrors.ErrBackgroundMismatch).
			WithContext("channels", len(channels)).
			WithContext("background_values", len(background))
	}
	mapping := make(map[string]float64, len(channels))
	for i, ch := range channels {
		mapping[ch.ID] = background[i]
	}
	return mapping, nil
}

// writeIntermediates replaces <workdir>/intermediate with the subtracted
// channels and the channels plus max_value
func (e *Extractor) writeIntermediates(job NeuronJob, table *Table, ids []string) error {
	dest := filepath.Join(job.WorkDir, config.IntermediateDirName)
	staged, err := e.files.StageDirectory(dest)
	if err != nil {
		return apperrors.NewStorageError("failed to stage intermediate directory", err)
	}
	published := false
	defer func() {
		if !published {
			e.files.Discard(staged)
		}
	}()

	subtracted, err := table.Select(ids...)
	if err != nil {
		return err
	}
	withMax, err := table.Select(append(append([]string(nil), ids...), config.ColumnMaxValue)...)
	if err != nil {
		return err
	}

	outputs := map[string]*Table{
		job.Label + "_subtracted_averages.csv": subtracted,
		job.Label + "_max_value.csv":           withMax,
	}
	for name, t := range outputs {
		if err := e.csv.WriteSimpleCSV(filepath.Join(staged, name), t.Headers(), t.Records()); err != nil {
			return err
		}
	}

	if err := e.files.PublishDirectory(staged, dest); err != nil {
		return apperrors.NewStorageError("failed to publish intermediate directory", err)
	}
	published = true
	return nil
}

func neuronChart(label string, timepoints []int, deltaF []float64) plotting.Chart {
	return plotting.Chart{
		Title:    label,
		XLabel:   AxisPositionT,
		YLabel:   AxisDeltaF,
		IntegerX: true,
		XRange:   timelineRange(timepoints),
		Series: []plotting.Series{{
			X:     timeAxis(timepoints),
			Y:     deltaF,
			Color: plotting.Black(),
		}},
	}
}

func timeAxis(timepoints []int) []float64 {
	x := make([]float64, len(timepoints))
	for i, tp := range timepoints {
		x[i] = float64(tp)
	}
	return x
}

func timelineRange(timepoints []int) *plotting.Range {
	if len(timepoints) == 0 {
		return nil
	}
	return &plotting.Range{
		Min: float64(timepoints[0]),
		Max: float64(timepoints[len(timepoints)-1]),
	}
}
