// Command catalog-seed loads the bundled product catalog into PostgreSQL so the
// quote service can run with CATALOG_DRIVER=postgres. It applies the catalog
// migrations first and is safe to re-run.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/utafrali/partsquote/internal/catalog/memory"
	"github.com/utafrali/partsquote/internal/catalog/postgres"
	"github.com/utafrali/partsquote/internal/config"
	"github.com/utafrali/partsquote/pkg/database"
	"github.com/utafrali/partsquote/pkg/logger"
)

func main() {
	deactivate := flag.Bool("deactivate-missing", false, "hide active products that are not in the seed catalog")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	log := logger.New("catalog-seed", cfg.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg.PostgresConfig(), log)
	if err != nil {
		log.Error("failed to connect to postgres", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	if err := database.RunMigrations(ctx, pool, postgres.Migrations(), log); err != nil {
		log.Error("failed to run catalog migrations", slog.String("error", err.Error()))
		os.Exit(1)
	}

	res, err := postgres.Upsert(ctx, pool, memory.SeedProducts(), *deactivate)
	if err != nil {
		log.Error("failed to seed catalog", slog.String("error", err.Error()))
		os.Exit(1)
	}

	log.Info("catalog seeded",
		slog.String("database", cfg.PostgresDB),
		slog.Int("brands", res.Brands),
		slog.Int("categories", res.Categories),
		slog.Int("products", res.Products),
		slog.Int64("deactivated", res.Deactivated),
	)
}
