package temperature

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"

	"go.opentelemetry.io/otel/attribute"

	"cianalysis/internal/config"
	"cianalysis/internal/dataprocessing"
	apperrors "cianalysis/internal/errors"
	"cianalysis/internal/infrastructure"
	"cianalysis/internal/plotting"
)

// Time column names accepted by the summary plotter, in order of preference
var timeColumns = []string{"Time", "Time(s)"}

var (
	summaryRange = plotting.Range{Min: 0, Max: 210}
	summaryTicks = []float64{30, 60, 90, 120, 150, 180, 210}
)

// Layout of the summary chart
const (
	summaryWidth    = 8
	summaryHeight   = 4
	summaryTopShare = 0.75
)

// Trace is a row-wise mean and SEM over the replicate columns of a table
type Trace struct {
	Columns []string
	Time    []float64
	Mean    []float64
	SEM     []float64
}

// SummaryResult describes a written summary chart
type SummaryResult struct {
	Response    Trace
	Temperature Trace
	PlotPath    string
}

// Summarizer draws the mean response of several recordings above the mean
// temperature ramp
type Summarizer struct {
	logger    *slog.Logger
	telemetry dataprocessing.Telemetry
	renderer  StackRenderer
}

// NewSummarizer creates a summarizer. A nil renderer selects the gonum/plot
// renderer.
func NewSummarizer(logger *slog.Logger, telemetry dataprocessing.Telemetry, renderer StackRenderer) *Summarizer {
	if logger == nil {
		logger = slog.Default()
	}
	logger = infrastructure.WithComponent(logger, "summarizer")
	if renderer == nil {
		renderer = plotting.NewRenderer(logger)
	}
	return &Summarizer{logger: logger, telemetry: telemetry, renderer: renderer}
}

// Summarize reads both tables and writes combined_gradient_plot.png next to
// the temperature table
func (s *Summarizer) Summarize(ctx context.Context, responseCSV, temperatureCSV string) (*SummaryResult, error) {
	ctx, span := s.telemetry.Start(ctx, "temperature.summarize",
		attribute.String("response", responseCSV),
		attribute.String("temperature", temperatureCSV))
	defer span.End()

	result, err := s.summarize(responseCSV, temperatureCSV)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		s.logger.ErrorContext(ctx, "Summary failed", slog.String("error", err.Error()))
		return nil, err
	}

	s.logger.InfoContext(ctx, "Summary chart written",
		slog.Int("response_columns", len(result.Response.Columns)),
		slog.Int("temperature_columns", len(result.Temperature.Columns)),
		slog.String("plot", result.PlotPath))
	return result, nil
}

func (s *Summarizer) summarize(responseCSV, temperatureCSV string) (*SummaryResult, error) {
	response, err := ReadTrace(responseCSV)
	if err != nil {
		return nil, err
	}
	temperature, err := ReadTrace(temperatureCSV)
	if err != nil {
		return nil, err
	}

	result := &SummaryResult{
		Response:    *response,
		Temperature: *temperature,
		PlotPath:    filepath.Join(filepath.Dir(temperatureCSV), config.SummaryPlotFile),
	}

	stack := plotting.Stack{
		Top: plotting.Chart{
			YLabel: "ΔF/F_min",
			XRange: &summaryRange,
			XTicks: summaryTicks,
			Series: []plotting.Series{{
				X:     response.Time,
				Y:     response.Mean,
				Err:   response.SEM,
				Color: plotting.Black(),
			}},
		},
		Bottom: plotting.Chart{
			XLabel: ColumnSeconds,
			YLabel: "Temperature (°C)",
			XRange: &summaryRange,
			YRange: &temperatureAxis,
			XTicks: summaryTicks,
			Series: []plotting.Series{{
				X:     temperature.Time,
				Y:     temperature.Mean,
				Err:   temperature.SEM,
				Color: plotting.Black(),
			}},
		},
		TopShare: summaryTopShare,
		Width:    summaryWidth,
		Height:   summaryHeight,
	}
	if err := s.renderer.RenderStacked(result.PlotPath, stack); err != nil {
		return nil, err
	}
	return result, nil
}

// ReadTrace loads a table with a Time or Time(s) column and reduces every
// other column to a row-wise mean and SEM. Rows without a numeric time are
// skipped.
func ReadTrace(path string) (*Trace, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.NewPreconditionError(fmt.Sprintf("%s does not exist", path), err)
		}
		return nil, apperrors.NewStorageError(fmt.Sprintf("failed to open %s", path), err)
	}
	defer f.Close()

	header, rows, err := dataprocessing.ReadRecords(f)
	if err != nil {
		return nil, apperrors.NewParsingError(fmt.Sprintf("failed to read %s", path), err)
	}

	tcol := -1
	for _, name := range timeColumns {
		if tcol = dataprocessing.HeaderIndex(header, name); tcol >= 0 {
			break
		}
	}
	if tcol < 0 {
		return nil, apperrors.NewParsingError(
			fmt.Sprintf("%s must have a Time or Time(s) column", filepath.Base(path)), nil)
	}

	trace := &Trace{}
	var columns []int
	for c, h := range header {
		if c != tcol {
			columns = append(columns, c)
			trace.Columns = append(trace.Columns, h)
		}
	}

	row := make([]float64, len(columns))
	for _, record := range rows {
		t := dataprocessing.ParseValue(dataprocessing.Cell(record, tcol))
		if math.IsNaN(t) {
			continue
		}
		for k, c := range columns {
			row[k] = dataprocessing.ParseValue(dataprocessing.Cell(record, c))
		}
		mean, sem := dataprocessing.MeanSEM(row)
		trace.Time = append(trace.Time, t)
		trace.Mean = append(trace.Mean, mean)
		trace.SEM = append(trace.SEM, sem)
	}
	return trace, nil
}
