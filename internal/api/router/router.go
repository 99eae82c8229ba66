package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/clinic-occupancy-maps/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/clinic-occupancy-maps/internal/http/middleware"
	"github.com/wolfman30/clinic-occupancy-maps/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger         *logging.Logger
	Reports        *handlers.ReportsHandler
	MetricsHandler http.Handler
	JWTSecret      string
	// RateLimiter throttles map generation per token subject. Nil disables it.
	RateLimiter *httpmiddleware.RateLimiter
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Get("/health", handlers.Health)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	if cfg.Reports == nil {
		return r
	}
	r.Route("/v1", func(v1 chi.Router) {
		v1.Use(httpmiddleware.RequireJWT(cfg.JWTSecret))
		v1.Get("/units", cfg.Reports.ListUnits)
		v1.Get("/runs", cfg.Reports.ListRuns)
		v1.Get("/appointments", cfg.Reports.ListAppointments)
		v1.Route("/reports", func(reports chi.Router) {
			if cfg.RateLimiter != nil {
				reports.Use(httpmiddleware.RateLimit(cfg.RateLimiter))
			}
			reports.Get("/weekly", cfg.Reports.Weekly)
			reports.Get("/daily", cfg.Reports.Daily)
		})
	})
	return r
}
