package main

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/pharmacore-backend/pkg/config"
	"github.com/angelmondragon/pharmacore-backend/pkg/db"
	"github.com/angelmondragon/pharmacore-backend/pkg/jetstream"
	"github.com/angelmondragon/pharmacore-backend/pkg/logger"
	"github.com/angelmondragon/pharmacore-backend/pkg/migrate"
	"github.com/angelmondragon/pharmacore-backend/pkg/outbox"
	"github.com/angelmondragon/pharmacore-backend/pkg/outbox/registry"
	"github.com/angelmondragon/pharmacore-backend/pkg/pubsub"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "outbox-publisher"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "outbox-publisher"

	logg = logger.New(logger.Options{
		ServiceName: "outbox-publisher",
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

	notificationSink, destination, closer, err := buildSink(context.Background(), cfg, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap notification sink", err)
		os.Exit(1)
	}
	defer func() {
		if err := closer.Close(); err != nil {
			logg.Error(context.Background(), "error closing notification sink", err)
		}
	}()

	eventRegistry, err := registry.NewEventRegistry(destination)
	if err != nil {
		logg.Error(context.Background(), "failed to build event registry", err)
		os.Exit(1)
	}
	service, err := NewService(ServiceParams{
		Config:        cfg,
		Logger:        logg,
		DB:            dbClient,
		Sink:          notificationSink,
		Repository:    outbox.NewRepository(dbClient.DB()),
		Registry:      eventRegistry,
		DLQRepository: outbox.NewDLQRepository(dbClient.DB()),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create outbox publisher", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"sink":        notificationSink.Name(),
	})
	logg.Info(ctx, "starting outbox publisher")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "outbox publisher stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "outbox publisher shutting down gracefully")
}

// buildSink picks Pub/Sub or JetStream from PHARMACORE_NOTIFICATIONS_SINK and
// returns the topic or subject notification events are routed to.
func buildSink(ctx context.Context, cfg *config.Config, logg *logger.Logger) (sink, string, io.Closer, error) {
	if cfg.Notifications.UsesNATS() {
		publisher, err := jetstream.NewPublisher(ctx, cfg.NATS, logg)
		if err != nil {
			return nil, "", nil, err
		}
		s, err := newJetStreamSink(publisher)
		if err != nil {
			_ = publisher.Close()
			return nil, "", nil, err
		}
		return s, publisher.Subject(), publisher, nil
	}

	client, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		return nil, "", nil, err
	}
	s, err := newPubSubSink(client)
	if err != nil {
		_ = client.Close()
		return nil, "", nil, err
	}
	return s, cfg.PubSub.NotificationTopic, client, nil
}
