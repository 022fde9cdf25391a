// Command cianalysis runs the ΔF/F0 pipeline over one experiment: it builds
// the background list if needed, extracts every neuron and optionally merges
// the results.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"cianalysis/internal/config"
	"cianalysis/internal/dataprocessing"
	"cianalysis/internal/infrastructure"
	"cianalysis/internal/operations"
	"cianalysis/pkg/contracts"
	"cianalysis/pkg/contracts/domain"
)

// options are the command-line settings; zero values defer to the config
type options struct {
	root       string
	positionT  int
	cellType   string
	merge      bool
	configFile string
}

func parseFlags(args []string, output io.Writer) (*options, error) {
	fs := flag.NewFlagSet("cianalysis", flag.ContinueOnError)
	fs.SetOutput(output)

	opts := &options{}
	fs.StringVar(&opts.root, "i", ".", "project directory holding the Neuron <i> folders")
	fs.IntVar(&opts.positionT, "t", 0, "number of timepoints (default from config, 100)")
	fs.StringVar(&opts.cellType, "cell_type", "", "cell type: DOCC or DOWC")
	fs.BoolVar(&opts.merge, "r", false, "merge the per-neuron results")
	fs.StringVar(&opts.configFile, "config", "", "YAML configuration file (default $CIA_CONFIG or config.yaml)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	return opts, nil
}

// apply overlays the flags on cfg and checks the result
func (o *options) apply(cfg *config.Config) error {
	if o.positionT != 0 {
		cfg.Analysis.PositionT = o.positionT
	}
	if o.cellType != "" {
		cfg.Analysis.CellType = o.cellType
	}
	if cfg.Analysis.CellType == "" {
		return fmt.Errorf("a cell type is required (--cell_type DOCC or DOWC)")
	}
	return cfg.Validate()
}

func main() {
	opts, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		os.Exit(2)
	}

	var cfg *config.Config
	if opts.configFile != "" {
		cfg, err = config.LoadFrom(opts.configFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		slog.Error("Failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if err := opts.apply(cfg); err != nil {
		slog.Error("Invalid settings", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Error("Failed to initialize logger", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer infrastructure.CloseLogFile()

	paths, err := config.NewProjectPaths(opts.root)
	if err != nil {
		logger.Error("Invalid project directory", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if _, err := run(ctx, cfg, paths, opts.merge, logger); err != nil {
		logger.ErrorContext(ctx, "Pipeline failed", slog.String("error", err.Error()))
		stop()
		infrastructure.CloseLogFile()
		os.Exit(1)
	}
}

// run executes background -> extraction [-> merge] for the project at paths
// and returns the final pipeline state
func run(ctx context.Context, cfg *config.Config, paths *config.ProjectPaths, merge bool, logger *slog.Logger) (*operations.OperationState, error) {
	ctx, runID := infrastructure.NewRunContext(ctx)

	if info, err := os.Stat(paths.Root); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("project directory %s does not exist", paths.Root)
	}

	cellType, err := domain.ParseCellType(cfg.Analysis.CellType)
	if err != nil {
		return nil, err
	}
	policy, err := dataprocessing.PolicyFor(cellType, cfg.Analysis)
	if err != nil {
		return nil, err
	}

	rt, err := infrastructure.StartRunTelemetry(cfg.Telemetry, paths.MetricsFile, paths.TraceFile, logger)
	if err != nil {
		return nil, err
	}
	defer rt.Close(context.WithoutCancel(ctx))
	telemetry := dataprocessing.NewTelemetry(rt.OTelProviders)

	logger.InfoContext(ctx, "Starting analysis",
		slog.String("version", contracts.GetVersionString()),
		slog.String("run_id", runID),
		slog.String("project", paths.Root),
		slog.String("cell_type", string(cellType)),
		slog.String("baseline", policy.Name()),
		slog.Int("position_t", cfg.Analysis.PositionT),
		slog.Bool("merge", merge),
		slog.Bool("tracing", cfg.Telemetry.TracingEnabled))

	extractor, err := dataprocessing.NewExtractor(dataprocessing.ExtractorConfig{
		PositionT:          cfg.Analysis.PositionT,
		Policy:             policy,
		WriteIntermediates: cfg.Analysis.WriteIntermediates,
	}, logger, telemetry, nil)
	if err != nil {
		return nil, err
	}

	manager := operations.NewManager(logger, telemetry, operations.NewRegistry(), operations.NewConfig())
	steps := []operations.Step{
		operations.NewBackgroundStage(dataprocessing.NewBackgroundBuilder(logger, telemetry), paths, logger),
		operations.NewExtractionStage(dataprocessing.NewBatchRunner(extractor, logger, telemetry), dataprocessing.BatchConfig{
			Paths:     paths,
			CellType:  cellType,
			PositionT: cfg.Analysis.PositionT,
		}),
	}
	if merge {
		steps = append(steps, operations.NewMergeStage(dataprocessing.NewAggregator(logger, telemetry, nil), dataprocessing.MergeConfig{
			ResultsDir: paths.ResultsDir,
			PositionT:  cfg.Analysis.PositionT,
			Title:      cfg.Analysis.MergePlotTitle,
		}, logger))
	}
	for _, step := range steps {
		if err := manager.RegisterStage(step); err != nil {
			return nil, err
		}
	}

	_, state, err := manager.Execute(ctx, operations.OperationRequest{
		ID: runID,
		Parameters: map[string]interface{}{
			"project":    paths.Root,
			"cell_type":  string(cellType),
			"position_t": cfg.Analysis.PositionT,
			"merge":      merge,
		},
	})
	report(ctx, logger, state)
	return state, err
}

// report logs the per-neuron outcome of a run
func report(ctx context.Context, logger *slog.Logger, state *operations.OperationState) {
	if state == nil {
		return
	}
	if v, ok := state.GetContext(operations.ContextKeyBatch); ok {
		summary := v.(*domain.BatchSummary)
		for _, f := range summary.Failed {
			logger.WarnContext(ctx, "Neuron not processed",
				slog.String("neuron", f.Label),
				slog.String("error", f.Error))
		}
		logger.InfoContext(ctx, "Extraction summary",
			slog.Int("succeeded", len(summary.Succeeded)),
			slog.Int("failed", len(summary.Failed)),
			slog.Duration("duration", summary.Duration))
	}
	if v, ok := state.GetContext(operations.ContextKeyMerge); ok {
		summary := v.(*domain.MergeSummary)
		logger.InfoContext(ctx, "Merge summary",
			slog.Int("neurons", len(summary.Neurons)),
			slog.String("table", summary.TablePath),
			slog.String("plot", summary.PlotPath))
	}
}
