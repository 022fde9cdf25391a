package dataprocessing

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"cianalysis/internal/config"
	apperrors "cianalysis/internal/errors"
	"cianalysis/internal/exporter"
	"cianalysis/internal/files"
	"cianalysis/internal/infrastructure"
	"cianalysis/internal/plotting"
	"cianalysis/pkg/contracts/domain"
)

// MergeConfig describes one aggregation
type MergeConfig struct {
	ResultsDir string
	PositionT  int
	Title      string
}

// Aggregator merges the per-neuron dF/F0 tables of a results directory
type Aggregator struct {
	logger    *slog.Logger
	telemetry Telemetry
	discovery *files.Discovery
	files     *files.Manager
	csv       *exporter.CSVWriter
	renderer  ChartRenderer
}

// NewAggregator creates an aggregator. A nil renderer selects the gonum/plot
// renderer.
func NewAggregator(logger *slog.Logger, telemetry Telemetry, renderer ChartRenderer) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	logger = infrastructure.WithComponent(logger, "aggregator")
	if renderer == nil {
		renderer = plotting.NewRenderer(logger)
	}
	return &Aggregator{
		logger:    logger,
		telemetry: telemetry,
		discovery: files.NewDiscovery(),
		files:     files.NewManager(logger),
		csv:       exporter.NewCSVWriter(logger),
		renderer:  renderer,
	}
}

// Merge joins the dF/F0 column of every table directly inside ResultsDir
// onto the timeline, one column per neuron named after the file, then adds
// Average and SEM across neurons. Output replaces results/merged_data as a
// whole.
func (a *Aggregator) Merge(ctx context.Context, cfg MergeConfig) (*domain.MergeSummary, error) {
	ctx, span := a.telemetry.tracer().Start(ctx, "merge.run",
		trace.WithAttributes(attribute.String("results_dir", cfg.ResultsDir)))
	defer span.End()

	summary, err := a.merge(ctx, cfg)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		a.logger.ErrorContext(ctx, "Merge failed",
			slog.String("results_dir", cfg.ResultsDir),
			slog.String("error", err.Error()))
		return nil, err
	}

	span.SetAttributes(attribute.Int("neurons", len(summary.Neurons)))
	a.logger.InfoContext(ctx, "Merged neuron tables",
		slog.Int("neurons", len(summary.Neurons)),
		slog.Int("skipped_files", len(summary.SkippedFiles)),
		slog.String("table", summary.TablePath))
	return summary, nil
}

func (a *Aggregator) merge(ctx context.Context, cfg MergeConfig) (*domain.MergeSummary, error) {
	table, err := NewTimeline(cfg.PositionT)
	if err != nil {
		return nil, err
	}

	found, err := a.discovery.FindCSVFiles(cfg.ResultsDir)
	if err != nil {
		return nil, apperrors.NewPreconditionError(
			fmt.Sprintf("results directory %s is not readable", cfg.ResultsDir), err)
	}

	var skipped []string
	for _, file := range found {
		label := file.Stem()
		series, err := readDeltaF(file.Path)
		if err == nil {
			err = table.Join(label, series)
		}
		if err != nil {
			a.logger.WarnContext(ctx, "Skipping results file",
				slog.String("file", file.Name),
				slog.String("error", err.Error()))
			a.telemetry.Metrics.RecordSkippedFile(ctx, "merge")
			skipped = append(skipped, file.Name)
		}
	}

	neurons := table.Columns()
	if len(neurons) == 0 {
		return nil, apperrors.NewPreconditionError(
			fmt.Sprintf("no dF/F0 tables in %s", cfg.ResultsDir), apperrors.ErrNoNeuronTables)
	}
	table.SortColumns()
	neurons = table.Columns()

	columns := make([][]float64, len(neurons))
	for i, name := range neurons {
		columns[i], _ = table.Column(name)
	}
	means, sems := RowMeanSEM(columns, table.Len())
	if err := table.AddColumn(config.ColumnAverage, means); err != nil {
		return nil, err
	}
	if err := table.AddColumn(config.ColumnSEM, sems); err != nil {
		return nil, err
	}

	title := cfg.Title
	if title == "" {
		title = config.DefaultMergePlotTitle
	}

	dest := filepath.Join(cfg.ResultsDir, config.MergedDirName)
	if err := a.publish(dest, table, mergedChart(title, table.Timepoints(), means, sems)); err != nil {
		return nil, err
	}

	return &domain.MergeSummary{
		Neurons:      neurons,
		SkippedFiles: skipped,
		Rows:         table.Len(),
		TablePath:    filepath.Join(dest, config.MergedCSVFile),
		PlotPath:     filepath.Join(dest, config.MergedPlotFile),
	}, nil
}

// publish writes the merged table and chart into a staging directory and
// swaps it in for dest
func (a *Aggregator) publish(dest string, table *Table, chart plotting.Chart) error {
	staged, err := a.files.StageDirectory(dest)
	if err != nil {
		return apperrors.NewStorageError("failed to stage merged output", err)
	}
	published := false
	defer func() {
		if !published {
			a.files.Discard(staged)
		}
	}()

	if err := a.csv.WriteSimpleCSV(filepath.Join(staged, config.MergedCSVFile), table.Headers(), table.Records()); err != nil {
		return err
	}
	if err := a.renderer.Render(filepath.Join(staged, config.MergedPlotFile), chart); err != nil {
		return err
	}

	if err := a.files.PublishDirectory(staged, dest); err != nil {
		return apperrors.NewStorageError("failed to publish merged output", err)
	}
	published = true
	return nil
}

// readDeltaF returns the dF/F0 column of a per-neuron table
func readDeltaF(path string) (map[int]float64, error) {
	t, err := ReadTable(path)
	if err != nil {
		return nil, err
	}
	series, ok := t.Series(config.ColumnDeltaF)
	if !ok {
		return nil, apperrors.NewParsingError(
			fmt.Sprintf("%s has no %s column", filepath.Base(path), config.ColumnDeltaF), nil)
	}
	return series, nil
}

func mergedChart(title string, timepoints []int, means, sems []float64) plotting.Chart {
	return plotting.Chart{
		Title:    title,
		XLabel:   AxisPositionT,
		YLabel:   AxisDeltaF,
		IntegerX: true,
		XRange:   timelineRange(timepoints),
		Series: []plotting.Series{{
			X:     timeAxis(timepoints),
			Y:     means,
			Err:   sems,
			Color: plotting.Black(),
		}},
	}
}
