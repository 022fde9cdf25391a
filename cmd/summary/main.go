// Command summary plots the mean ± SEM neuron response above the mean
// temperature ramp of several recordings.
//
// Usage:
//
//	summary [-config file] <neuron_csv> <temperature_csv>
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
)

type options struct {
	responseCSV    string
	temperatureCSV string
	configFile     string
}

func parseFlags(args []string, output io.Writer) (*options, error) {
	fs := flag.NewFlagSet("summary", flag.ContinueOnError)
	fs.SetOutput(output)

	opts := &options{}
	fs.StringVar(&opts.configFile, "config", "", "YAML configuration file")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() != 2 {
		return nil, fmt.Errorf("usage: summary <neuron_csv> <temperature_csv>")
	}
	opts.responseCSV, opts.temperatureCSV = fs.Arg(0), fs.Arg(1)
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
	result, err := run(ctx, cfg, opts, logger)
	if err != nil {
		logger.ErrorContext(ctx, "Summary failed", slog.String("error", err.Error()))
		infrastructure.CloseLogFile()
		os.Exit(1)
	}
	logger.InfoContext(ctx, "Done", slog.String("plot", result.PlotPath))
	infrastructure.CloseLogFile()
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFrom(path)
	}
	return config.Load()
}

func run(ctx context.Context, cfg *config.Config, opts *options, logger *slog.Logger) (*temperature.SummaryResult, error) {
	rt, err := infrastructure.StartRunTelemetry(cfg.Telemetry, "", "", logger)
	if err != nil {
		return nil, err
	}
	defer rt.Close(context.WithoutCancel(ctx))

	summarizer := temperature.NewSummarizer(logger, dataprocessing.NewTelemetry(rt.OTelProviders), nil)
	return summarizer.Summarize(ctx, opts.responseCSV, opts.temperatureCSV)
}
