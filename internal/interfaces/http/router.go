package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/AAriam/rdkit/internal/infrastructure/monitoring/logging"
	"github.com/AAriam/rdkit/internal/infrastructure/monitoring/prometheus"
	"github.com/AAriam/rdkit/internal/interfaces/http/handlers"
	"github.com/AAriam/rdkit/internal/interfaces/http/middleware"
)

// RouterConfig aggregates the handler and middleware dependencies required
// to construct the HTTP route tree. Nil handlers leave their routes unmounted.
type RouterConfig struct {
	StandardizeHandler *handlers.StandardizeHandler
	HealthHandler      *handlers.HealthHandler

	Logger           logging.Logger
	Logging          *middleware.LoggingConfig
	MetricsCollector prometheus.MetricsCollector
	Metrics          *prometheus.AppMetrics
	MetricsPath      string
}

// NewRouter constructs the HTTP route tree.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID)
	r.Use(chimw.Recoverer)

	if cfg.Logger != nil {
		lc := middleware.DefaultLoggingConfig()
		if cfg.Logging != nil {
			lc = *cfg.Logging
		}
		r.Use(middleware.RequestLogging(cfg.Logger, lc))
	}
	if cfg.Metrics != nil {
		r.Use(middleware.Metrics(cfg.Metrics))
	}

	if cfg.HealthHandler != nil {
		r.Get("/healthz", cfg.HealthHandler.Liveness)
		r.Get("/readyz", cfg.HealthHandler.Readiness)
	}

	if cfg.MetricsCollector != nil {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.Handle(path, cfg.MetricsCollector.Handler())
	}

	r.Route("/api/v1", func(api chi.Router) {
		registerStandardizeRoutes(api, cfg.StandardizeHandler)
	})

	return r
}

func registerStandardizeRoutes(r chi.Router, h *handlers.StandardizeHandler) {
	if h == nil {
		return
	}
	r.Post("/reionize", h.Reionize)
	r.Post("/uncharge", h.Uncharge)
	r.Post("/standardize", h.Standardize)
	r.Get("/catalog", h.Catalog)
}
