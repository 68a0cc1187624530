// Command seed fills the database with generated catalog and sales data for
// development environments.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/mbellec/retail-backoffice/internal/dataset"
	"github.com/mbellec/retail-backoffice/internal/dataset/fixtures"
	"github.com/mbellec/retail-backoffice/internal/store"
	pgstore "github.com/mbellec/retail-backoffice/internal/store/postgres"
	"github.com/mbellec/retail-backoffice/pkg/config"
	"github.com/mbellec/retail-backoffice/pkg/db"
	"github.com/mbellec/retail-backoffice/pkg/metrics"
)

func main() {
	products := flag.Int("products", 25, "number of catalog entries to generate")
	numSales := flag.Int("sales", 500, "number of sale records to generate")
	days := flag.Int("days", 90, "spread sales over the past N days")
	seed := flag.Int64("seed", 0, "generator seed, 0 for random")
	flag.Parse()

	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	if err := run(logger, *products, *numSales, *days, *seed); err != nil {
		logger.Error("seeding failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(logger *slog.Logger, products, numSales, days int, seed int64) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	if cfg.Database.Backend != "postgres" {
		return fmt.Errorf("seeding requires the postgres backend, got %q", cfg.Database.Backend)
	}

	database, err := db.New(db.Config{DSN: cfg.Database.DSN()}, logger)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer database.Close()

	if err := database.RunMigrations(); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	st := store.NewChunkedStore(pgstore.New(database.Pool), cfg.Import.BatchSize)
	ds := dataset.New(st, logger, metrics.NewUnregistered(), nil, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := ds.Load(ctx); err != nil {
		return fmt.Errorf("load dataset: %w", err)
	}
	if len(ds.Products()) > 0 || len(ds.Sales()) > 0 {
		return fmt.Errorf("database already holds %d products and %d sales, refusing to seed",
			len(ds.Products()), len(ds.Sales()))
	}

	gen := fixtures.NewGenerator(seed)
	catalogEntries := gen.Products(products)

	if result := ds.CreateProducts(ctx, catalogEntries); result.Outcome == dataset.OutcomeFailed {
		return fmt.Errorf("write products: %w", result.Err)
	}

	records := gen.Sales(ds.Products(), numSales, days)
	if result := ds.CreateSales(ctx, records); result.Outcome == dataset.OutcomeFailed {
		return fmt.Errorf("write sales: %w", result.Err)
	}

	logger.Info("seeding complete",
		slog.Int("products", len(catalogEntries)),
		slog.Int("sales", len(records)),
	)
	return nil
}
