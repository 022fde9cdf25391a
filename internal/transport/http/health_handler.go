package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"cianalysis/pkg/contracts"
	api "cianalysis/pkg/contracts/api/v1"
)

// HealthHandler handles health-related HTTP requests
type HealthHandler struct {
	service ResultsServiceInterface
	logger  *slog.Logger
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(service ResultsServiceInterface, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		service: service,
		logger:  logger.With(slog.String("handler", "health")),
	}
}

// HealthCheck handles GET /healthz. An unreadable results directory is
// reported as 503 with status "degraded".
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	resp := api.HealthResponse{
		Status:     "ok",
		Version:    contracts.Version,
		ResultsDir: h.service.ResultsDir(),
	}
	if err := h.service.Health(r.Context()); err != nil {
		h.logger.WarnContext(r.Context(), "Health check failed",
			slog.String("error", err.Error()))
		resp.Status = "degraded"
		render.Status(r, http.StatusServiceUnavailable)
	}
	render.JSON(w, r, resp)
}
