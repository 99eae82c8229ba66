package bootstrap

import (
	"fmt"

	"github.com/redis/go-redis/v9"

	appconfig "github.com/wolfman30/clinic-occupancy-maps/internal/config"
	"github.com/wolfman30/clinic-occupancy-maps/internal/feegow"
	"github.com/wolfman30/clinic-occupancy-maps/internal/observability/metrics"
	"github.com/wolfman30/clinic-occupancy-maps/internal/occupancy"
	"github.com/wolfman30/clinic-occupancy-maps/internal/refcache"
	"github.com/wolfman30/clinic-occupancy-maps/internal/report"
	"github.com/wolfman30/clinic-occupancy-maps/internal/schedule"
	"github.com/wolfman30/clinic-occupancy-maps/pkg/logging"
)

// Pipeline bundles the services shared by the API and the map job.
type Pipeline struct {
	Feegow  *feegow.Client
	Catalog *refcache.Catalog
	Reports *report.Service
}

// BuildPipeline wires the scheduling client, the reference cache and the report
// service. redisClient and m may be nil.
func BuildPipeline(cfg *appconfig.Config, redisClient *redis.Client, m *metrics.PipelineMetrics, logger *logging.Logger) (*Pipeline, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	clientCfg := feegow.Config{
		BaseURL:    cfg.FeegowBaseURL,
		Token:      cfg.FeegowAccessToken,
		Timeout:    cfg.FeegowTimeout,
		MaxRetries: cfg.FeegowMaxRetries,
		Backoff:    cfg.FeegowBackoff,
		Logger:     logger.With("feegow"),
	}
	if m != nil {
		clientCfg.Observer = m
	}
	client, err := feegow.New(clientCfg)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: feegow client: %w", err)
	}

	catalogCfg := refcache.Config{
		Source: client,
		TTL:    cfg.ReferenceCacheTTL,
		Logger: logger.With("refcache"),
	}
	if redisClient != nil {
		catalogCfg.Store = refcache.NewRedisStore(redisClient, "")
	}
	catalog, err := refcache.NewCatalog(catalogCfg)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: reference catalog: %w", err)
	}

	reportCfg := report.Config{
		Appointments: client,
		Slots:        client,
		Blocks:       client,
		Catalog:      catalog,
		Location:     cfg.Location(),
		Workers:      cfg.AvailabilityWorkers,
		Deadline:     cfg.ReportDeadline,
		HistoryDays:  cfg.HistoryDays,
		Options:      MatrixOptions(cfg),
		Logger:       logger.With("report"),
	}
	if m != nil {
		reportCfg.Recorder = m
	}
	reports, err := report.New(reportCfg)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: report service: %w", err)
	}

	return &Pipeline{Feegow: client, Catalog: catalog, Reports: reports}, nil
}

// MatrixOptions maps configuration onto matrix options, keeping the built-in room
// lists when none are configured.
func MatrixOptions(cfg *appconfig.Config) occupancy.Options {
	opts := occupancy.DefaultOptions()
	if len(cfg.ActiveStatusIDs) > 0 {
		statuses := make([]schedule.Status, 0, len(cfg.ActiveStatusIDs))
		for _, id := range cfg.ActiveStatusIDs {
			statuses = append(statuses, schedule.Status(id))
		}
		opts.Active = schedule.NewStatusSet(statuses...)
	}
	if len(cfg.ExcludedRooms) > 0 {
		opts.ExcludedRooms = cfg.ExcludedRooms
	}
	if len(cfg.AdminRoomKeywords) > 0 {
		opts.AdminRoomKeywords = cfg.AdminRoomKeywords
	}
	return opts
}
