package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/pharmacore-backend/api/routes"
	"github.com/angelmondragon/pharmacore-backend/internal/alertconfig"
	"github.com/angelmondragon/pharmacore-backend/internal/alerts"
	"github.com/angelmondragon/pharmacore-backend/internal/batches"
	"github.com/angelmondragon/pharmacore-backend/internal/checkruns"
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
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
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

	services, err := buildServices(cfg, dbClient, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to wire services", err)
		os.Exit(1)
	}

	seedCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	seeded, err := services.Tiers.SeedDefaults(seedCtx, cfg.Expiry.TierSeedFile)
	cancel()
	if err != nil {
		logg.Error(context.Background(), "failed to seed alert tiers", err)
		os.Exit(1)
	}
	if seeded > 0 {
		logg.Info(logg.WithField(context.Background(), "tiers", seeded), "alert tiers seeded")
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(cfg, logg, routes.Dependencies{
			DB:          dbClient,
			Redis:       redisClient,
			Idempotency: redisClient,
		}, services),
		ReadHeaderTimeout: 10 * time.Second,
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func buildServices(cfg *config.Config, dbClient *db.Client, logg *logger.Logger) (routes.Services, error) {
	expiryMetrics := metrics.NewExpiryMetrics(prometheus.DefaultRegisterer)

	gateway, err := notifications.NewOutboxGateway(outbox.NewService(outbox.NewRepository(dbClient.DB()), logg), dbClient, logg)
	if err != nil {
		return routes.Services{}, err
	}

	tiers, err := alertconfig.NewService(alertconfig.NewRepository(dbClient.DB()), logg)
	if err != nil {
		return routes.Services{}, err
	}
	alertSvc, err := alerts.NewService(alerts.NewRepository(dbClient.DB()), dbClient, logg)
	if err != nil {
		return routes.Services{}, err
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
		return routes.Services{}, err
	}

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
		return routes.Services{}, err
	}

	return routes.Services{Tiers: tiers, Runs: runs, Alerts: alertSvc, Quarantine: cases}, nil
}
