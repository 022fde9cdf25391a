// Command background averages the per-stack background workbook of an
// experiment into Background_list.csv.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"cianalysis/internal/config"
	"cianalysis/internal/dataprocessing"
	"cianalysis/internal/infrastructure"
)

type options struct {
	root       string
	input      string
	output     string
	configFile string
}

func parseFlags(args []string, output io.Writer) (*options, error) {
	fs := flag.NewFlagSet("background", flag.ContinueOnError)
	fs.SetOutput(output)

	opts := &options{}
	fs.StringVar(&opts.root, "i", ".", "project directory holding background_i.xlsx")
	fs.StringVar(&opts.input, "f", "", "explicit workbook path (overrides -i)")
	fs.StringVar(&opts.output, "o", "", "output CSV (default Background_list.csv next to the workbook)")
	fs.StringVar(&opts.configFile, "config", "", "YAML configuration file")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	switch fs.NArg() {
	case 0:
	case 1:
		// background /path/to/background_i.xlsx
		if opts.input == "" {
			opts.input = fs.Arg(0)
		}
	default:
		return nil, fmt.Errorf("expected at most one workbook, got %v", fs.Args())
	}
	return opts, nil
}

func main() {
	opts, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		os.Exit(2)
	}

	cfg, err := loadConfig(opts.configFile)
	if err != nil {
		slog.Error("Failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Error("Failed to initialize logger", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, _ := infrastructure.NewRunContext(context.Background())
	lists, err := run(ctx, cfg, opts, logger)
	if err != nil {
		logger.ErrorContext(ctx, "Background list not written", slog.String("error", err.Error()))
		infrastructure.CloseLogFile()
		os.Exit(1)
	}
	logger.InfoContext(ctx, "Done",
		slog.String("output", lists.Path),
		slog.Any("neurons", lists.Labels()))
	infrastructure.CloseLogFile()
}

// loadConfig reads the named file, or $CIA_CONFIG / config.yaml without one
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFrom(path)
	}
	return config.Load()
}

func run(ctx context.Context, cfg *config.Config, opts *options, logger *slog.Logger) (*dataprocessing.BackgroundLists, error) {
	input := opts.input
	if input == "" {
		paths, err := config.NewProjectPaths(opts.root)
		if err != nil {
			return nil, err
		}
		input = paths.BackgroundInput
	}

	rt, err := infrastructure.StartRunTelemetry(cfg.Telemetry, "", "", logger)
	if err != nil {
		return nil, err
	}
	defer rt.Close(context.WithoutCancel(ctx))

	builder := dataprocessing.NewBackgroundBuilder(logger, dataprocessing.NewTelemetry(rt.OTelProviders))
	return builder.Build(ctx, input, opts.output)
}
