package dataprocessing

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"cianalysis/internal/config"
	"cianalysis/internal/files"
	"cianalysis/internal/infrastructure"
	"cianalysis/pkg/contracts/domain"
)

// NeuronExtractor processes a single neuron
type NeuronExtractor interface {
	Extract(ctx context.Context, job NeuronJob) (*domain.NeuronResult, error)
}

// BatchRunner runs the extractor for every neuron listed in the background
// table, one after another
type BatchRunner struct {
	logger    *slog.Logger
	telemetry Telemetry
	extractor NeuronExtractor
	files     *files.Manager
}

// NewBatchRunner creates a batch runner
func NewBatchRunner(extractor NeuronExtractor, logger *slog.Logger, telemetry Telemetry) *BatchRunner {
	if logger == nil {
		logger = slog.Default()
	}
	logger = infrastructure.WithComponent(logger, "batch_runner")
	return &BatchRunner{
		logger:    logger,
		telemetry: telemetry,
		extractor: extractor,
		files:     files.NewManager(logger),
	}
}

// BatchConfig describes one batch run
type BatchConfig struct {
	Paths     *config.ProjectPaths
	CellType  domain.CellType
	PositionT int
	// Background, when set, is used instead of reading Paths.BackgroundList
	Background *BackgroundLists
}

// Run reads the background list and extracts neurons 0..n-1, where n is the
// number of columns in the list. A failing neuron is recorded, its table and
// chart from any earlier run are removed, and the run continues. The returned
// error is reserved for shared preconditions: an unreadable background list,
// a missing "Neuron i" column or an unwritable results directory.
func (b *BatchRunner) Run(ctx context.Context, cfg BatchConfig) (*domain.BatchSummary, error) {
	start := time.Now()
	ctx, span := b.telemetry.tracer().Start(ctx, "batch.run",
		trace.WithAttributes(
			attribute.String("cell_type", string(cfg.CellType)),
			attribute.Int("position_t", cfg.PositionT),
		))
	defer span.End()

	lists := cfg.Background
	if lists == nil {
		var err error
		if lists, err = ReadBackgroundLists(cfg.Paths.BackgroundList); err != nil {
			infrastructure.RecordError(ctx, err)
			return nil, err
		}
	}

	n := lists.Len()
	backgrounds := make([][]float64, n)
	for i := 0; i < n; i++ {
		var err error
		if backgrounds[i], err = lists.ForNeuron(i); err != nil {
			infrastructure.RecordError(ctx, err)
			return nil, err
		}
	}

	if err := cfg.Paths.EnsureDirectories(); err != nil {
		infrastructure.RecordError(ctx, err)
		return nil, err
	}

	summary := &domain.BatchSummary{
		CellType:  cfg.CellType,
		PositionT: cfg.PositionT,
		Succeeded: []domain.NeuronResult{},
		Failed:    []domain.NeuronFailure{},
	}

	b.logger.InfoContext(ctx, "Starting batch extraction",
		slog.Int("neurons", n),
		slog.String("cell_type", string(cfg.CellType)))

	for i := 0; i < n; i++ {
		job := NeuronJob{
			Label:      config.NeuronLabel(i),
			WorkDir:    cfg.Paths.NeuronDir(i),
			ResultsDir: cfg.Paths.ResultsDir,
			Background: backgrounds[i],
		}

		result, err := b.extractor.Extract(ctx, job)
		if err != nil {
			b.logger.ErrorContext(ctx, "Neuron extraction failed",
				slog.Int("neuron", i),
				slog.String("label", job.Label),
				slog.String("error", err.Error()))
			b.telemetry.Metrics.RecordNeuron(ctx, "failure")
			// outputs of an earlier run must not reach the merge
			if err := b.files.RemoveFiles(job.ResultCSV(), job.PlotPath()); err != nil {
				b.logger.WarnContext(ctx, "Failed to remove previous neuron outputs",
					slog.String("label", job.Label),
					slog.String("error", err.Error()))
			}
			summary.Failed = append(summary.Failed, domain.NeuronFailure{
				Index: i,
				Label: job.Label,
				Error: err.Error(),
			})
			continue
		}

		b.telemetry.Metrics.RecordNeuron(ctx, "success")
		summary.Succeeded = append(summary.Succeeded, *result)
	}

	summary.Duration = time.Since(start)
	span.SetAttributes(
		attribute.Int("succeeded", len(summary.Succeeded)),
		attribute.Int("failed", len(summary.Failed)),
	)
	b.logger.InfoContext(ctx, "Batch extraction finished",
		slog.Int("succeeded", len(summary.Succeeded)),
		slog.Int("failed", len(summary.Failed)),
		slog.Duration("duration", summary.Duration))
	return summary, nil
}
