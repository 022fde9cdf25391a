// Command cbind aligns the analog temperature log of one recording with its
// merged ΔF/F0 table and draws the combined charts.
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
	"cianalysis/internal/temperature"
	"cianalysis/pkg/contracts/domain"
)

type options struct {
	folder     string
	neurons    int
	footerRows int
	configFile string
}

func parseFlags(args []string, output io.Writer) (*options, error) {
	fs := flag.NewFlagSet("cbind", flag.ContinueOnError)
	fs.SetOutput(output)

	opts := &options{}
	fs.StringVar(&opts.folder, "i", "", "folder holding merged_data.csv and Analog*.csv")
	fs.IntVar(&opts.neurons, "n", 0, "number of neuron columns to keep")
	fs.IntVar(&opts.footerRows, "footer", -1, "trailing merged rows to drop (default from config, 12)")
	fs.StringVar(&opts.configFile, "config", "", "YAML configuration file")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if opts.folder == "" {
		return nil, fmt.Errorf("-i is required")
	}
	if opts.neurons < 1 {
		return nil, fmt.Errorf("-n must be at least 1")
	}
	return opts, nil
}

func main() {
	opts, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintln(os.Stderr, err)
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
	summary, err := run(ctx, cfg, opts, logger)
	if err != nil {
		logger.ErrorContext(ctx, "Alignment failed", slog.String("error", err.Error()))
		infrastructure.CloseLogFile()
		os.Exit(1)
	}
	logger.InfoContext(ctx, "Done",
		slog.String("table", summary.TablePath),
		slog.Any("plots", summary.PlotPaths))
	infrastructure.CloseLogFile()
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFrom(path)
	}
	return config.Load()
}

func run(ctx context.Context, cfg *config.Config, opts *options, logger *slog.Logger) (*domain.AlignmentSummary, error) {
	footer := cfg.Analysis.CbindFooterRows
	if opts.footerRows >= 0 {
		footer = opts.footerRows
	}

	rt, err := infrastructure.StartRunTelemetry(cfg.Telemetry, "", "", logger)
	if err != nil {
		return nil, err
	}
	defer rt.Close(context.WithoutCancel(ctx))

	aligner := temperature.NewAligner(logger, dataprocessing.NewTelemetry(rt.OTelProviders), nil)
	return aligner.Align(ctx, temperature.AlignConfig{
		Folder:     opts.folder,
		Neurons:    opts.neurons,
		FooterRows: footer,
		SkipRows:   config.DefaultAnalogSkipRows,
	})
}
