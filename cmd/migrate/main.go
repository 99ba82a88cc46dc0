package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/pharmacore-backend/internal/alertconfig"
	"github.com/angelmondragon/pharmacore-backend/pkg/config"
	"github.com/angelmondragon/pharmacore-backend/pkg/db"
	"github.com/angelmondragon/pharmacore-backend/pkg/logger"
	"github.com/angelmondragon/pharmacore-backend/pkg/migrate"
)

const sqliteDialect = "sqlite3"

const usage = "migration command: up|down|status|version|create|validate|seed-tiers"

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "migrate"})

	_ = godotenv.Load()

	cmd := flag.String("cmd", "up", usage)
	dir := flag.String("dir", migrate.DefaultDir, "goose migrations directory")
	name := flag.String("name", "", "migration name (for create)")
	version := flag.String("version", "", "target version (YYYYMMDDHHMMSS) for -cmd=version")
	seedFile := flag.String("seed-file", "", "tier seed TOML for -cmd=seed-tiers (defaults to the built-in ladder)")
	flag.Parse()

	// create and validate only touch the filesystem
	switch *cmd {
	case "create":
		if *name == "" {
			exitf("missing -name for create")
		}
		path, err := migrate.CreateSQLMigration(*dir, *name)
		if err != nil {
			exitf("failed to create migration: %v", err)
		}
		fmt.Println("created migration:", path)
		return
	case "validate":
		if err := migrate.ValidateDir(*dir); err != nil {
			exitf("migration validation failed: %v", err)
		}
		fmt.Println("migration validation passed")
		return
	}

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})
	ctx = logg.WithFields(ctx, map[string]any{
		"env":    cfg.App.Env,
		"cmd":    *cmd,
		"dir":    *dir,
		"driver": cfg.DB.Driver,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer dbClient.Close()

	sqlDB, err := dbClient.DB().DB()
	requireResource(ctx, logg, "sql database", err)

	switch *cmd {
	case "up":
		if err := migrate.Up(ctx, dbClient, *dir); err != nil {
			exitf("migrate up failed: %v", err)
		}
	case "down", "status":
		requirePostgres(dbClient, *cmd)
		if err := migrate.Run(ctx, sqlDB, *dir, *cmd); err != nil {
			exitf("goose %s failed: %v", *cmd, err)
		}
	case "version":
		requirePostgres(dbClient, *cmd)
		if *version == "" {
			exitf("missing -version for version command")
		}
		if err := migrate.MigrateToVersion(ctx, sqlDB, *dir, *version); err != nil {
			exitf("goose version migrate failed: %v", err)
		}
	case "seed-tiers":
		tiers, err := alertconfig.NewService(alertconfig.NewRepository(dbClient.DB()), logg)
		requireResource(ctx, logg, "alert tier service", err)
		path := *seedFile
		if path == "" {
			path = cfg.Expiry.TierSeedFile
		}
		created, err := tiers.SeedDefaults(ctx, path)
		if err != nil {
			exitf("seed tiers failed: %v", err)
		}
		fmt.Printf("seeded %d alert tiers\n", created)
	default:
		exitf("unknown -cmd value: %s (%s)", *cmd, usage)
	}
	logg.Info(ctx, "migrate finished")
}

func requirePostgres(client *db.Client, cmd string) {
	if client.Dialect() == sqliteDialect {
		exitf("-cmd=%s is only supported on postgres", cmd)
	}
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}

func exitf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
