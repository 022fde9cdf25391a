package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"cianalysis/internal/config"
	"cianalysis/internal/dataprocessing"
	apperrors "cianalysis/internal/errors"
	"cianalysis/internal/files"
	"cianalysis/internal/infrastructure"
)

// NeuronEntry describes one per-neuron result table
type NeuronEntry struct {
	Label    string
	Rows     int
	Channels int
	HasPlot  bool
}

// ResultsService reads the tables a pipeline run left in a project
type ResultsService struct {
	paths     *config.ProjectPaths
	logger    *slog.Logger
	discovery *files.Discovery
}

// NewResultsService creates a results service for the project at paths
func NewResultsService(paths *config.ProjectPaths, logger *slog.Logger) (*ResultsService, error) {
	if paths == nil {
		return nil, apperrors.NewConfigError("project paths are required", nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = infrastructure.WithComponent(logger, "results_service")

	logger.Info("Results service initialized",
		slog.String("results_dir", paths.ResultsDir))

	return &ResultsService{
		paths:     paths,
		logger:    logger,
		discovery: files.NewDiscovery(),
	}, nil
}

// ResultsDir returns the directory the service reads
func (s *ResultsService) ResultsDir() string {
	return s.paths.ResultsDir
}

// Health reports whether the results directory can be read
func (s *ResultsService) Health(ctx context.Context) error {
	info, err := os.Stat(s.paths.ResultsDir)
	if err != nil {
		return apperrors.NewPreconditionError(
			fmt.Sprintf("results directory %s is not available", s.paths.ResultsDir), err)
	}
	if !info.IsDir() {
		return apperrors.NewPreconditionError(
			fmt.Sprintf("results path %s is not a directory", s.paths.ResultsDir), nil)
	}
	return nil
}

// ListNeurons returns every readable neuron table in label order. Tables
// that cannot be parsed are logged and left out.
func (s *ResultsService) ListNeurons(ctx context.Context) ([]NeuronEntry, error) {
	found, err := s.discovery.FindCSVFiles(s.paths.ResultsDir)
	if err != nil {
		return nil, apperrors.NewPreconditionError(
			fmt.Sprintf("results directory %s is not readable", s.paths.ResultsDir), err)
	}

	entries := make([]NeuronEntry, 0, len(found))
	for _, file := range found {
		table, err := dataprocessing.ReadTable(file.Path)
		if err != nil {
			s.logger.WarnContext(ctx, "Skipping unreadable results table",
				slog.String("file", file.Name),
				slog.String("error", err.Error()))
			continue
		}
		label := file.Stem()
		entries = append(entries, NeuronEntry{
			Label:    label,
			Rows:     table.Len(),
			Channels: countChannels(table.Columns()),
			HasPlot:  config.FileExists(s.paths.NeuronPlot(label)),
		})
	}

	s.logger.DebugContext(ctx, "Listed neuron tables",
		slog.Int("neurons", len(entries)))
	return entries, nil
}

// NeuronTable reads the table of one neuron
func (s *ResultsService) NeuronTable(ctx context.Context, label string) (*dataprocessing.Table, error) {
	if err := ValidateLabel(label); err != nil {
		return nil, err
	}
	path := s.paths.NeuronResultCSV(label)
	if !config.FileExists(path) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("neuron %q", label))
	}

	table, err := dataprocessing.ReadTable(path)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to read neuron table",
			slog.String("label", label),
			slog.String("error", err.Error()))
		return nil, err
	}
	return table, nil
}

// MergedTable reads results/merged_data/merged_data.csv
func (s *ResultsService) MergedTable(ctx context.Context) (*dataprocessing.Table, error) {
	path := s.paths.MergedCSV()
	if !config.FileExists(path) {
		return nil, apperrors.NewNotFoundError("merged table")
	}

	table, err := dataprocessing.ReadTable(path)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to read merged table",
			slog.String("error", err.Error()))
		return nil, err
	}
	return table, nil
}

// ValidateLabel rejects labels that are not a plain file name
func ValidateLabel(label string) error {
	if label == "" || label == "." || label == ".." || strings.ContainsAny(label, `/\`) {
		return apperrors.NewValidationError(fmt.Sprintf("invalid neuron label %q", label), nil)
	}
	return nil
}

// countChannels counts the subtracted channel columns of a neuron table
func countChannels(columns []string) int {
	n := 0
	for _, c := range columns {
		if c != config.ColumnMaxValue && c != config.ColumnDeltaF {
			n++
		}
	}
	return n
}
