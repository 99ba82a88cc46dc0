package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/pharmacore-backend/internal/alertconfig"
	"github.com/angelmondragon/pharmacore-backend/internal/alerts"
	"github.com/angelmondragon/pharmacore-backend/internal/batches"
	"github.com/angelmondragon/pharmacore-backend/internal/checkruns"
	"github.com/angelmondragon/pharmacore-backend/internal/cron"
	"github.com/angelmondragon/pharmacore-backend/internal/notifications"
	"github.com/angelmondragon/pharmacore-backend/internal/quarantine"
	"github.com/angelmondragon/pharmacore-backend/pkg/config"
	"github.com/angelmondragon/pharmacore-backend/pkg/db"
	"github.com/angelmondragon/pharmacore-backend/pkg/logger"
	"github.com/angelmondragon/pharmacore-backend/pkg/metrics"
	"github.com/angelmondragon/pharmacore-backend/pkg/migrate"
	"github.com/angelmondragon/pharmacore-backend/pkg/outbox"
	"github.com/angelmondragon/pharmacore-backend/pkg/redis"
)

func main() {
	runOnce := flag.String("run", "", "run one job immediately and exit: expiry-check|expiry-sweep|outbox-retention")
	flag.Parse()

	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	metricsCollector := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)
	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey("cron-worker", lockScope(cfg.App.Env)), 0)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	registry, err := buildRegistry(cfg, dbClient, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to build cron registry", err)
		os.Exit(1)
	}
	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metricsCollector,
		Tick:     cfg.Expiry.SchedulerTick,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})

	if *runOnce != "" {
		jobCtx := logg.WithField(ctx, "job", *runOnce)
		if err := service.RunNow(jobCtx, *runOnce); err != nil {
			logg.Error(jobCtx, "one-off job failed", err)
			os.Exit(1)
		}
		logg.Info(jobCtx, "one-off job finished")
		return
	}

	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func lockScope(env string) string {
	if env == "" {
		return "local"
	}
	return env
}

func buildRegistry(cfg *config.Config, dbClient *db.Client, logg *logger.Logger) (*cron.Registry, error) {
	checkAt, err := cfg.Expiry.CheckTime()
	if err != nil {
		return nil, err
	}
	sweepAt, err := cfg.Expiry.SweepTime()
	if err != nil {
		return nil, err
	}

	expiryMetrics := metrics.NewExpiryMetrics(prometheus.DefaultRegisterer)
	outboxRepo := outbox.NewRepository(dbClient.DB())
	gateway, err := notifications.NewOutboxGateway(outbox.NewService(outboxRepo, logg), dbClient, logg)
	if err != nil {
		return nil, err
	}
	tiers, err := alertconfig.NewService(alertconfig.NewRepository(dbClient.DB()), logg)
	if err != nil {
		return nil, err
	}
	alertSvc, err := alerts.NewService(alerts.NewRepository(dbClient.DB()), dbClient, logg)
	if err != nil {
		return nil, err
	}
	batchRepo := batches.NewRepository(dbClient.DB())

	runs, err := checkruns.NewService(checkruns.ServiceParams{
		Runs:       checkruns.NewRepository(dbClient.DB()),
		Tiers:      tiers,
		Stock:      batchRepo,
		Alerts:     alertSvc,
		Gateway:    gateway,
		Metrics:    expiryMetrics,
		Logger:     logg,
		StaleAfter: cfg.Expiry.StaleRunTimeout,
	})
	if err != nil {
		return nil, err
	}
	checkJob, err := cron.NewExpiryCheckJob(cron.ExpiryCheckJobParams{Logger: logg, Checker: runs})
	if err != nil {
		return nil, err
	}

	sweeper, err := batches.NewSweeper(batchRepo, logg)
	if err != nil {
		return nil, err
	}
	sweepParams := cron.ExpirySweepJobParams{Logger: logg, Sweeper: sweeper}
	if cfg.FeatureFlags.AutoQuarantine {
		cases, err := quarantine.NewService(quarantine.ServiceParams{
			Repo:    quarantine.NewRepository(dbClient.DB()),
			Tx:      dbClient,
			Batches: batchRepo,
			Alerts:  alertSvc,
			Gateway: gateway,
			Metrics: expiryMetrics,
			Logger:  logg,
		})
		if err != nil {
			return nil, err
		}
		sweepParams.Quarantine = cases
	}
	sweepJob, err := cron.NewExpirySweepJob(sweepParams)
	if err != nil {
		return nil, err
	}

	retentionJob, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:        logg,
		DB:            dbClient,
		Events:        outboxRepo,
		DeadLetters:   outbox.NewDLQRepository(dbClient.DB()),
		EventRetain:   time.Duration(cfg.Outbox.RetentionDays) * 24 * time.Hour,
		DeadLetterTTL: time.Duration(cfg.Outbox.DLQRetainDays) * 24 * time.Hour,
	})
	if err != nil {
		return nil, err
	}

	// entries due in the same cycle run in registration order
	return cron.NewRegistry(
		cron.Entry{Job: sweepJob, At: sweepAt},
		cron.Entry{Job: checkJob, At: checkAt},
		cron.Entry{Job: retentionJob, At: sweepAt},
	), nil
}
