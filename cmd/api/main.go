package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/wolfman30/clinic-occupancy-maps/internal/api/router"
	"github.com/wolfman30/clinic-occupancy-maps/internal/app/bootstrap"
	appconfig "github.com/wolfman30/clinic-occupancy-maps/internal/config"
	"github.com/wolfman30/clinic-occupancy-maps/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/clinic-occupancy-maps/internal/http/middleware"
	"github.com/wolfman30/clinic-occupancy-maps/internal/runlog"
	"github.com/wolfman30/clinic-occupancy-maps/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting occupancy maps API server",
		"env", cfg.Env,
		"port", cfg.Port,
		"timezone", cfg.MapTimezone,
	)

	ctx := context.Background()
	handler, cleanup, err := buildHandler(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize API", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	srv := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     handler,
		ReadTimeout: 15 * time.Second,
		// map generation can run up to the report deadline
		WriteTimeout: cfg.ReportDeadline + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}

// buildHandler wires the pipeline and router. The returned cleanup closes Redis
// and Postgres connections.
func buildHandler(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (http.Handler, func(), error) {
	metricsHandler, pipelineMetrics := bootstrap.BuildMetrics()
	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)

	pipeline, err := bootstrap.BuildPipeline(cfg, redisClient, pipelineMetrics, logger)
	if err != nil {
		if redisClient != nil {
			_ = redisClient.Close()
		}
		return nil, func() {}, err
	}

	var runs handlers.RunLister
	pool := bootstrap.BuildPostgresPool(ctx, cfg.DatabaseURL, logger)
	if pool != nil {
		runs = runlog.NewRepository(pool)
	}

	if cfg.AdminJWTSecret == "" {
		logger.Warn("ADMIN_JWT_SECRET not set; /v1 routes will reject every request")
	}

	var limiter *httpmiddleware.RateLimiter
	if cfg.ReportRatePerMinute > 0 {
		limiter = httpmiddleware.NewRateLimiter(float64(cfg.ReportRatePerMinute), cfg.ReportRateBurst)
	}

	h := router.New(&router.Config{
		Logger:         logger,
		Reports:        handlers.NewReportsHandler(pipeline.Reports, pipeline.Catalog, runs, logger),
		MetricsHandler: metricsHandler,
		JWTSecret:      cfg.AdminJWTSecret,
		RateLimiter:    limiter,
	})

	cleanup := func() {
		if pool != nil {
			pool.Close()
		}
		if redisClient != nil {
			_ = redisClient.Close()
		}
	}
	return h, cleanup, nil
}
