package http

import (
	"context"
	"log/slog"
	"math"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"cianalysis/internal/config"
	"cianalysis/internal/dataprocessing"
	apperrors "cianalysis/internal/errors"
	"cianalysis/internal/services"
	api "cianalysis/pkg/contracts/api/v1"
)

type labelKey struct{}

// ResultsHandler serves the result tables as JSON
type ResultsHandler struct {
	service      ResultsServiceInterface
	logger       *slog.Logger
	errorHandler *apperrors.ErrorHandler
}

// NewResultsHandler creates a results handler
func NewResultsHandler(service ResultsServiceInterface, logger *slog.Logger, errorHandler *apperrors.ErrorHandler) *ResultsHandler {
	return &ResultsHandler{
		service:      service,
		logger:       logger.With(slog.String("component", "results_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the /api/v1 routes
func (h *ResultsHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Get("/neurons", h.ListNeurons)
	r.With(LabelCtx(h.errorHandler)).Get("/neurons/{label}", h.GetNeuron)
	r.Get("/merged", h.GetMerged)
	return r
}

// LabelCtx decodes and validates the {label} URL parameter
func LabelCtx(errorHandler *apperrors.ErrorHandler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			label, err := url.PathUnescape(chi.URLParam(r, "label"))
			if err != nil {
				errorHandler.HandleError(w, r, apperrors.NewValidationError("label is not valid URL encoding", err))
				return
			}
			if err := services.ValidateLabel(label); err != nil {
				errorHandler.HandleError(w, r, err)
				return
			}
			ctx := context.WithValue(r.Context(), labelKey{}, label)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func labelFrom(ctx context.Context) string {
	label, _ := ctx.Value(labelKey{}).(string)
	return label
}

// ListNeurons handles GET /api/v1/neurons
func (h *ResultsHandler) ListNeurons(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.ListNeurons(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	resp := api.NeuronListResponse{
		Neurons: make([]api.NeuronSummary, 0, len(entries)),
		Count:   len(entries),
	}
	for _, e := range entries {
		escaped := url.PathEscape(e.Label)
		summary := api.NeuronSummary{
			Label:    e.Label,
			Rows:     e.Rows,
			Channels: e.Channels,
			TableURL: "/api/v1/neurons/" + escaped,
			ChartURL: "/charts/neurons/" + escaped,
		}
		if e.HasPlot {
			summary.PlotURL = "/plots/" + url.PathEscape(config.NeuronPlotsDirName) + "/" + escaped + ".png"
		}
		resp.Neurons = append(resp.Neurons, summary)
	}
	render.JSON(w, r, resp)
}

// GetNeuron handles GET /api/v1/neurons/{label}
func (h *ResultsHandler) GetNeuron(w http.ResponseWriter, r *http.Request) {
	label := labelFrom(r.Context())
	table, err := h.service.NeuronTable(r.Context(), label)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, tableResponse(label, table))
}

// GetMerged handles GET /api/v1/merged
func (h *ResultsHandler) GetMerged(w http.ResponseWriter, r *http.Request) {
	table, err := h.service.MergedTable(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, tableResponse(config.MergedDirName, table))
}

// tableResponse converts a table to its JSON form, missing values as null
func tableResponse(name string, table *dataprocessing.Table) api.TableResponse {
	resp := api.TableResponse{
		Name:       name,
		Timepoints: table.Timepoints(),
		Columns:    table.Columns(),
		Values:     make(map[string][]*float64, len(table.Columns())),
	}
	for _, col := range resp.Columns {
		values, _ := table.Column(col)
		out := make([]*float64, len(values))
		for i, v := range values {
			if !math.IsNaN(v) {
				out[i] = &v
			}
		}
		resp.Values[col] = out
	}
	return resp
}
