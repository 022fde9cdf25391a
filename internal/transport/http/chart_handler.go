package http

import (
	"bytes"
	"log/slog"
	"math"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"cianalysis/internal/config"
	"cianalysis/internal/dataprocessing"
	apperrors "cianalysis/internal/errors"
)

// echarts renders "-" as a gap in a line
const missingPoint = "-"

// ChartHandler serves interactive HTML charts of the result tables
type ChartHandler struct {
	service      ResultsServiceInterface
	logger       *slog.Logger
	errorHandler *apperrors.ErrorHandler
	assetsHost   string
}

// NewChartHandler creates a chart handler. An empty assetsHost keeps the
// go-echarts CDN.
func NewChartHandler(service ResultsServiceInterface, logger *slog.Logger, errorHandler *apperrors.ErrorHandler, assetsHost string) *ChartHandler {
	return &ChartHandler{
		service:      service,
		logger:       logger.With(slog.String("component", "chart_handler")),
		errorHandler: errorHandler,
		assetsHost:   assetsHost,
	}
}

// Routes returns the /charts routes
func (h *ChartHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/merged", h.MergedChart)
	r.With(LabelCtx(h.errorHandler)).Get("/neurons/{label}", h.NeuronChart)
	return r
}

// NeuronChart handles GET /charts/neurons/{label}
func (h *ChartHandler) NeuronChart(w http.ResponseWriter, r *http.Request) {
	label := labelFrom(r.Context())
	table, err := h.service.NeuronTable(r.Context(), label)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	line := h.newLine(label, "")
	line.SetXAxis(table.Timepoints())
	deltaF, ok := table.Column(config.ColumnDeltaF)
	if !ok {
		h.errorHandler.HandleError(w, r, apperrors.NewParsingError(label+" has no "+config.ColumnDeltaF+" column", nil))
		return
	}
	line.AddSeries(config.ColumnDeltaF, lineData(deltaF))

	h.write(w, r, line)
}

// MergedChart handles GET /charts/merged. Average is drawn with Average±SEM
// bands and every neuron as a thin line.
func (h *ChartHandler) MergedChart(w http.ResponseWriter, r *http.Request) {
	table, err := h.service.MergedTable(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	line := h.newLine(config.DefaultMergePlotTitle, "mean ± SEM")
	line.SetXAxis(table.Timepoints())

	for _, col := range table.Columns() {
		if col == config.ColumnAverage || col == config.ColumnSEM {
			continue
		}
		values, _ := table.Column(col)
		line.AddSeries(col, lineData(values),
			charts.WithLineStyleOpts(opts.LineStyle{Width: 1, Opacity: opts.Float(0.4)}),
			charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}))
	}

	means, hasMean := table.Column(config.ColumnAverage)
	sems, hasSEM := table.Column(config.ColumnSEM)
	if hasMean {
		line.AddSeries(config.ColumnAverage, lineData(means),
			charts.WithLineStyleOpts(opts.LineStyle{Width: 3, Color: "black"}))
	}
	if hasMean && hasSEM {
		lower, upper := bands(means, sems)
		line.AddSeries("Average - SEM", lineData(lower),
			charts.WithLineStyleOpts(opts.LineStyle{Type: "dashed", Color: "gray"}))
		line.AddSeries("Average + SEM", lineData(upper),
			charts.WithLineStyleOpts(opts.LineStyle{Type: "dashed", Color: "gray"}))
	}

	h.write(w, r, line)
}

func (h *ChartHandler) newLine(title, subtitle string) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle:  title,
			Width:      "1000px",
			Height:     "560px",
			AssetsHost: h.assetsHost,
		}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Type: "scroll", Top: "bottom"}),
		charts.WithXAxisOpts(opts.XAxis{Name: dataprocessing.AxisPositionT, NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: dataprocessing.AxisDeltaF}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "inside"}),
	)
	return line
}

func (h *ChartHandler) write(w http.ResponseWriter, r *http.Request, line *charts.Line) {
	var buf bytes.Buffer
	if err := line.Render(&buf); err != nil {
		h.logger.ErrorContext(r.Context(), "Failed to render chart",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()))
		h.errorHandler.HandleError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

func lineData(values []float64) []opts.LineData {
	data := make([]opts.LineData, len(values))
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			data[i] = opts.LineData{Value: missingPoint}
			continue
		}
		data[i] = opts.LineData{Value: v}
	}
	return data
}

// bands returns mean-sem and mean+sem; a missing SEM leaves both missing
func bands(means, sems []float64) ([]float64, []float64) {
	lower := make([]float64, len(means))
	upper := make([]float64, len(means))
	for i := range means {
		lower[i] = means[i] - sems[i]
		upper[i] = means[i] + sems[i]
	}
	return lower, upper
}
