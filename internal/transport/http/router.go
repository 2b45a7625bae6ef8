package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"retailpulse/internal/config"
	apierrors "retailpulse/internal/errors"
	"retailpulse/internal/middleware"
	"retailpulse/internal/services"
)

// NewRouter builds the full HTTP router: middleware chain, analytics
// routes under /api, health check, and Prometheus metrics.
func NewRouter(service *services.AnalyticsService, cfg *config.Config, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.StructuredLogger(logger))
	r.Use(middleware.Recoverer(logger))
	r.Use(middleware.Compress(5))
	r.Use(middleware.Metrics)
	if cfg.Server.RateLimit.Enabled {
		limiter := middleware.NewRateLimiter(cfg.Server.RateLimit.RPS, cfg.Server.RateLimit.Burst, logger)
		r.Use(limiter.Handler)
	}

	errorHandler := apierrors.NewErrorHandler(logger)
	r.NotFound(errorHandler.NotFound)
	r.MethodNotAllowed(errorHandler.MethodNotAllowed)

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		render.JSON(w, req, map[string]interface{}{
			"status":  "ok",
			"records": service.DatasetSize(),
		})
	})
	r.Handle("/metrics", promhttp.Handler())

	handler := NewAnalyticsHandler(service, logger)
	r.Route("/api/v1", func(r chi.Router) {
		handler.RegisterRoutes(r)
	})

	return r
}
