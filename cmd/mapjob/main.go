package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/wolfman30/clinic-occupancy-maps/cmd/mainconfig"
	"github.com/wolfman30/clinic-occupancy-maps/internal/app/bootstrap"
	appconfig "github.com/wolfman30/clinic-occupancy-maps/internal/config"
	"github.com/wolfman30/clinic-occupancy-maps/internal/mapjob"
	"github.com/wolfman30/clinic-occupancy-maps/internal/publish"
	"github.com/wolfman30/clinic-occupancy-maps/internal/report"
	"github.com/wolfman30/clinic-occupancy-maps/internal/runlog"
	"github.com/wolfman30/clinic-occupancy-maps/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()

	exitCode := mapjob.ExitOK
	root := newRootCmd(cfg, func(code int) { exitCode = code })
	if err := root.Execute(); err != nil {
		os.Exit(mapjob.ExitError)
	}
	os.Exit(exitCode)
}

type flags struct {
	mapType       string
	when          string
	date          string
	units         []string
	timezone      string
	outputDir     string
	saveLocal     bool
	upload        bool
	failOnWarning bool
	workers       int
}

func newRootCmd(cfg *appconfig.Config, setExit func(int)) *cobra.Command {
	f := &flags{}
	cmd := &cobra.Command{
		Use:           "mapjob",
		Short:         "Generate and publish occupancy maps for clinic units",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if f.timezone != "" {
				cfg.MapTimezone = f.timezone
			}
			logger := logging.New(cfg.LogLevel)
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			setExit(run(ctx, cfg, f, logger))
			return nil
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&f.mapType, "type", string(report.TypeDaily), "map type: daily or weekly")
	fl.StringVar(&f.when, "when", "today", "target day: today, tomorrow or date")
	fl.StringVar(&f.date, "date", "", "target date (DD-MM-YYYY) when --when=date")
	fl.StringSliceVar(&f.units, "units", cfg.MapAutomationUnits, "unit names or ids; empty selects every unit")
	fl.StringVar(&f.timezone, "timezone", cfg.MapTimezone, "IANA timezone used to resolve today")
	fl.StringVar(&f.outputDir, "output-dir", cfg.MapAutomationOutputDir, "directory for local copies")
	fl.BoolVar(&f.saveLocal, "save-local", cfg.MapAutomationSaveLocal, "write maps to --output-dir")
	fl.BoolVar(&f.upload, "upload", cfg.MapAutomationUpload, "upload maps to the configured bucket")
	fl.BoolVar(&f.failOnWarning, "fail-on-warning", cfg.MapAutomationFailOnWarning, "exit with status 3 when any unit has a warning")
	fl.IntVar(&f.workers, "workers", cfg.MapAutomationWorkers, "units generated concurrently")
	return cmd
}

func run(ctx context.Context, cfg *appconfig.Config, f *flags, logger *logging.Logger) int {
	_, pipelineMetrics := bootstrap.BuildMetrics()
	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	if redisClient != nil {
		defer redisClient.Close()
	}

	pipeline, err := bootstrap.BuildPipeline(cfg, redisClient, pipelineMetrics, logger)
	if err != nil {
		logger.Error("failed to initialize map pipeline", "error", err)
		return mapjob.ExitError
	}

	runner := &mapjob.Runner{
		Builder:  pipeline.Reports,
		Catalog:  pipeline.Catalog,
		Renderer: report.JSONRenderer{},
		Today:    pipeline.Reports.Today,
		Logger:   logger.With("mapjob"),
	}

	if f.upload && cfg.MapsS3Bucket != "" {
		awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
		if err != nil {
			logger.Error("failed to load AWS config", "error", err)
			return mapjob.ExitError
		}
		client := mainconfig.NewS3Client(awsCfg, cfg)
		runner.Uploader = publish.NewStore(client, cfg.MapsS3Bucket, cfg.MapsS3Prefix, logger.With("publish"))
	}

	if pool := bootstrap.BuildPostgresPool(ctx, cfg.DatabaseURL, logger); pool != nil {
		defer pool.Close()
		runner.Runs = runlog.NewRepository(pool)
	}

	opts := mapjob.Options{
		Type:          report.Type(f.mapType),
		When:          f.when,
		Date:          f.date,
		Units:         f.units,
		OutputDir:     f.outputDir,
		SaveLocal:     f.saveLocal,
		Upload:        f.upload,
		FailOnWarning: f.failOnWarning,
		Workers:       f.workers,
	}
	out, err := runner.Run(ctx, opts)
	if err != nil {
		logger.Error("map job failed", "error", err)
	} else {
		for _, res := range out.Results {
			if res.Status != report.StatusSuccess {
				logger.Warn("unit not generated cleanly", "unit", res.Unit.Name, "status", res.Status, "message", res.Message)
			}
		}
	}
	return mapjob.ExitCode(out, err, f.failOnWarning)
}
