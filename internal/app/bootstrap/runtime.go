package bootstrap

import (
	"context"
	"crypto/tls"
	"net/http"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	appconfig "github.com/wolfman30/clinic-occupancy-maps/internal/config"
	"github.com/wolfman30/clinic-occupancy-maps/internal/observability/metrics"
	"github.com/wolfman30/clinic-occupancy-maps/pkg/logging"
)

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available, reference tables cached in memory only", "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

// BuildPostgresPool connects to the run log database. An empty URL or a failed
// connection returns nil and the run log is skipped.
func BuildPostgresPool(ctx context.Context, databaseURL string, logger *logging.Logger) *pgxpool.Pool {
	if strings.TrimSpace(databaseURL) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		logger.Warn("postgres not available, run log disabled", "error", err)
		return nil
	}
	if err := pool.Ping(ctx); err != nil {
		logger.Warn("postgres ping failed, run log disabled", "error", err)
		pool.Close()
		return nil
	}
	return pool
}

// BuildMetrics registers pipeline metrics on a fresh registry and returns the
// handler that exposes them.
func BuildMetrics() (http.Handler, *metrics.PipelineMetrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.NewPipelineMetrics(reg)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), m
}
