package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"cianalysis/internal/config"
	apperrors "cianalysis/internal/errors"
	"cianalysis/internal/infrastructure"
	customMiddleware "cianalysis/internal/middleware"
	"cianalysis/internal/services"
	handlers "cianalysis/internal/transport/http"
	"cianalysis/pkg/contracts"
)

// Application is the results browser container
type Application struct {
	Config        *config.Config
	Paths         *config.ProjectPaths
	Router        *chi.Mux
	Server        *http.Server
	Logger        *slog.Logger
	OTelProviders *infrastructure.OTelProviders
	Results       *services.ResultsService
	ErrorHandler  *apperrors.ErrorHandler
}

// NewApplication builds the browser for the project at paths
func NewApplication(cfg *config.Config, paths *config.ProjectPaths, logger *slog.Logger, providers *infrastructure.OTelProviders) (*Application, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if providers == nil {
		var err error
		if providers, err = infrastructure.InitializeOTel(infrastructure.DefaultOTelConfig(), logger); err != nil {
			return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
		}
	}

	results, err := services.NewResultsService(paths, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create results service: %w", err)
	}

	a := &Application{
		Config:        cfg,
		Paths:         paths,
		Logger:        logger,
		OTelProviders: providers,
		Results:       results,
		ErrorHandler:  apperrors.NewErrorHandler(logger, false),
	}
	a.setupRouter()
	a.createServer()
	return a, nil
}

func (a *Application) setupRouter() {
	r := chi.NewRouter()

	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)

	otelMiddleware, err := customMiddleware.NewOTelMiddleware(a.OTelProviders)
	if err != nil {
		a.Logger.Error("Failed to create OpenTelemetry middleware", slog.String("error", err.Error()))
	} else {
		r.Use(otelMiddleware.Handler)
	}

	r.Use(customMiddleware.StructuredLogger(a.Logger))
	r.Use(a.ErrorHandler.Recoverer)
	r.Use(customMiddleware.SecurityHeaders)

	if rl := a.Config.Server.RateLimit; rl.Enabled {
		r.Use(customMiddleware.NewRateLimiter(rl.RPS, rl.Burst, a.Logger).Handler)
	}

	r.NotFound(a.ErrorHandler.NotFound)
	r.MethodNotAllowed(a.ErrorHandler.MethodNotAllowed)

	healthHandler := handlers.NewHealthHandler(a.Results, a.Logger)
	r.Get("/healthz", healthHandler.HealthCheck)
	r.Handle("/metrics", a.OTelProviders.PrometheusHandler())

	r.Mount("/api/"+contracts.APIVersion, handlers.NewResultsHandler(a.Results, a.Logger, a.ErrorHandler).Routes())
	r.Mount("/charts", handlers.NewChartHandler(a.Results, a.Logger, a.ErrorHandler, "").Routes())

	// Pipeline PNGs, read-only
	r.Route("/plots", func(r chi.Router) {
		r.Use(middleware.SetHeader("Cache-Control", "no-cache"))
		r.Handle("/*", http.StripPrefix("/plots", handlers.PlotServer(a.Paths.ResultsDir)))
	})

	a.Router = r
}

// createServer creates the HTTP server
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:         fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:      a.Router,
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
		IdleTimeout:  a.Config.Server.IdleTimeout,
	}
}

// Start serves until ctx is cancelled or the listener fails, then shuts
// the server down
func (a *Application) Start(ctx context.Context) error {
	info := contracts.GetVersionInfo()
	a.Logger.InfoContext(ctx, "Starting results browser",
		slog.String("version", info.Version),
		slog.String("commit", info.GitCommit),
		slog.String("build_time", info.BuildTime),
		slog.Int("port", a.Config.Server.Port),
		slog.String("results_dir", a.Paths.ResultsDir))

	if err := a.Results.Health(ctx); err != nil {
		a.Logger.WarnContext(ctx, "Results directory not available yet",
			slog.String("error", err.Error()))
	}

	errCh := make(chan error, 1)
	go func() {
		if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
		return a.Stop(context.Background())
	}
}

// Stop gracefully stops the server
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down results browser")

	timeout := a.Config.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}
	if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
		a.Logger.WarnContext(ctx, "Telemetry shutdown failed", slog.String("error", err.Error()))
	}
	return nil
}
