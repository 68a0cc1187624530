package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"

	"github.com/mbellec/retail-backoffice/internal/dataset"
	"github.com/mbellec/retail-backoffice/internal/domain/catalog"
	importsvc "github.com/mbellec/retail-backoffice/internal/domain/imports/service"
	"github.com/mbellec/retail-backoffice/internal/httpapi"
	"github.com/mbellec/retail-backoffice/internal/store"
	"github.com/mbellec/retail-backoffice/internal/store/memory"
	pgstore "github.com/mbellec/retail-backoffice/internal/store/postgres"
	"github.com/mbellec/retail-backoffice/pkg/alerts"
	"github.com/mbellec/retail-backoffice/pkg/config"
	"github.com/mbellec/retail-backoffice/pkg/cron"
	"github.com/mbellec/retail-backoffice/pkg/db"
	"github.com/mbellec/retail-backoffice/pkg/metrics"
	"github.com/mbellec/retail-backoffice/pkg/storage"
)

// Dependencies holds all application dependencies
type Dependencies struct {
	Config *config.Config
	DB     *db.DB
	Logger *slog.Logger

	Registry *prometheus.Registry
	Metrics  *metrics.Metrics

	Store   store.Store
	Search  *catalog.SearchIndex
	Archive storage.Archive

	Dataset *dataset.Service
	Imports *importsvc.Service

	Notifier  alerts.Notifier
	Scheduler *cron.Scheduler

	Router *gin.Engine
}

// InitDependencies initializes all application dependencies
func InitDependencies(cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	if err := deps.initDatabase(); err != nil {
		return nil, fmt.Errorf("failed to init database: %w", err)
	}

	if err := deps.initStore(); err != nil {
		return nil, fmt.Errorf("failed to init store: %w", err)
	}

	if err := deps.initServices(); err != nil {
		return nil, fmt.Errorf("failed to init services: %w", err)
	}

	if err := deps.initRouter(); err != nil {
		return nil, fmt.Errorf("failed to init router: %w", err)
	}

	logger.Info("all dependencies initialized successfully")

	return deps, nil
}

// initDatabase connects the pool and runs migrations. Skipped entirely when
// the memory backend is selected.
func (d *Dependencies) initDatabase() error {
	if d.Config.Database.Backend == "memory" {
		d.Logger.Info("store backend: in-memory, skipping database init")
		return nil
	}

	database, err := db.New(db.Config{
		DSN:             d.Config.Database.DSN(),
		MaxConns:        25,
		MinConns:        5,
		MaxConnLifetime: 5 * time.Minute,
		MaxConnIdleTime: 10 * time.Minute,
	}, d.Logger)
	if err != nil {
		return err
	}

	d.DB = database

	if err := d.DB.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	d.Logger.Info("database connected and migrations completed successfully")
	return nil
}

// initStore wires the document store the dataset writes through. Postgres
// writes are retried with backoff and batches are split into fixed chunks.
func (d *Dependencies) initStore() error {
	if d.DB == nil {
		d.Store = memory.New()
		return nil
	}

	st := store.NewRetryingStore(pgstore.New(d.DB.Pool), 3, 200*time.Millisecond)
	d.Store = store.NewChunkedStore(st, d.Config.Import.BatchSize)
	return nil
}

// initServices initializes all service layer dependencies
func (d *Dependencies) initServices() error {
	d.Registry = prometheus.NewRegistry()
	d.Metrics = metrics.New(d.Registry)

	search, err := catalog.NewSearchIndex()
	if err != nil {
		return fmt.Errorf("failed to init search index: %w", err)
	}
	d.Search = search

	tracer := otel.Tracer("retail-backoffice")
	d.Dataset = dataset.New(d.Store, d.Logger, d.Metrics, tracer, d.Search)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := d.Dataset.Load(ctx); err != nil {
		return fmt.Errorf("failed to load dataset: %w", err)
	}

	archive, err := storage.NewLocalArchive(d.Config.Import.UploadDir)
	if err != nil {
		return fmt.Errorf("failed to init upload archive: %w", err)
	}
	d.Archive = archive

	d.Imports = importsvc.New(d.Dataset, d.Archive, d.Logger, d.Metrics, tracer, d.Config.Import.DefaultRegister)

	if d.Config.Alerts.ResendAPIKey != "" {
		d.Notifier = alerts.NewEmailNotifier(
			d.Config.Alerts.ResendAPIKey,
			d.Config.Alerts.FromAddress,
			d.Config.Alerts.ToAddress,
			d.Logger,
		)
	} else {
		d.Notifier = alerts.NoopNotifier{}
		d.Logger.Info("stock alert emails disabled, no API key configured")
	}

	d.Scheduler = cron.NewScheduler(d.Dataset, d.Notifier, d.Logger)

	d.Logger.Info("services initialized")
	return nil
}

// initRouter builds the HTTP router over the services
func (d *Dependencies) initRouter() error {
	d.Router = httpapi.NewRouter(d.Dataset, d.Imports, d.Logger, httpapi.Config{
		RateLimitPerSecond: float64(d.Config.Server.RateLimitPerSecond),
		RateLimitBurst:     d.Config.Server.RateLimitBurst,
		MetricsEnabled:     d.Config.Observability.MetricsEnabled,
		Registry:           d.Registry,
		Archive:            d.Archive,
	})
	return nil
}

// Cleanup closes all resources
func (d *Dependencies) Cleanup() {
	if d.Scheduler != nil {
		<-d.Scheduler.Stop().Done()
	}
	if d.DB != nil {
		d.DB.Close()
	}
	d.Logger.Info("cleanup completed")
}
