// Package http assembles the taskboard HTTP API.
package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/turtacn/taskboard/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/taskboard/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/taskboard/internal/interfaces/http/handlers"
	"github.com/turtacn/taskboard/internal/interfaces/http/middleware"
)

// RouterConfig aggregates all handler and middleware dependencies required
// to construct the route tree.
type RouterConfig struct {
	RecurrenceHandler *handlers.RecurrenceHandler
	HealthHandler     *handlers.HealthHandler

	Logger           logging.Logger
	LoggingConfig    *middleware.LoggingConfig
	Metrics          *prometheus.AppMetrics
	MetricsCollector prometheus.MetricsCollector
	MetricsPath      string
}

// NewRouter constructs the complete HTTP route tree from cfg.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(middleware.RequestContext)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	if cfg.Logger != nil {
		lc := middleware.DefaultLoggingConfig()
		if cfg.LoggingConfig != nil {
			lc = *cfg.LoggingConfig
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
		registerRecurrenceRoutes(api, cfg.RecurrenceHandler)
	})

	return r
}

func registerRecurrenceRoutes(r chi.Router, h *handlers.RecurrenceHandler) {
	if h == nil {
		return
	}
	r.Route("/tasks/{taskID}", func(item chi.Router) {
		item.Post("/complete-recurring", h.CompleteRecurring)
		item.Post("/skip-occurrence", h.SkipOccurrence)
		item.Get("/recurrence-summary", h.Summary)
		item.Get("/calendar.ics", h.Calendar)
	})
	r.Post("/recurrence/preview", h.Preview)
}

//Personal.AI order the ending
