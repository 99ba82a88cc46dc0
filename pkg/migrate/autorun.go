package migrate

import (
	"context"
	"fmt"

	"github.com/angelmondragon/pharmacore-backend/pkg/config"
	"github.com/angelmondragon/pharmacore-backend/pkg/db"
	"github.com/angelmondragon/pharmacore-backend/pkg/logger"
)

// Up brings the schema to the latest version: goose files from dir on
// Postgres, the embedded schema on SQLite.
func Up(ctx context.Context, client *db.Client, dir string) error {
	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("sql handle: %w", err)
	}
	if client.Dialect() == "sqlite3" {
		return RunSQLite(ctx, sqlDB)
	}
	return Run(ctx, sqlDB, dir, "up")
}

// autoRun reports whether a service binary should migrate on boot. Local
// SQLite files always do; Postgres only in dev with the flag on.
func autoRun(cfg *config.Config) bool {
	if cfg.FeatureFlags.UseSQLite {
		return true
	}
	return cfg.App.IsDev() && cfg.FeatureFlags.AutoMigrate
}

// MaybeRunDev migrates on service start when autoRun allows it.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !autoRun(cfg) {
		return nil
	}
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "dialect": client.Dialect()})
	logg.Info(ctx, "migrate.autorun.start")
	if err := Up(ctx, client, DefaultDir); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	logg.Info(ctx, "migrate.autorun.done")
	return nil
}
