// Package cron provides scheduled background jobs using robfig/cron.
package cron

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/mbellec/retail-backoffice/internal/dataset"
	"github.com/mbellec/retail-backoffice/internal/domain/catalog"
	"github.com/mbellec/retail-backoffice/pkg/alerts"
)

// Scheduler manages background scheduled jobs using robfig/cron.
type Scheduler struct {
	cron     *cron.Cron
	dataset  *dataset.Service
	notifier alerts.Notifier
	logger   *slog.Logger
}

// NewScheduler creates a new job scheduler.
func NewScheduler(ds *dataset.Service, notifier alerts.Notifier, logger *slog.Logger) *Scheduler {
	c := cron.New(cron.WithLogger(cron.VerbosePrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelDebug))))

	return &Scheduler{
		cron:     c,
		dataset:  ds,
		notifier: notifier,
		logger:   logger,
	}
}

// Start begins scheduled jobs.
func (s *Scheduler) Start() error {
	// Nightly reconciliation sweep at 2:00 AM: full stock recomputation plus
	// a refreshed low-stock alert digest.
	_, err := s.cron.AddFunc("0 2 * * *", s.nightlySweep)
	if err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("cron scheduler started",
		slog.Int("jobs", len(s.cron.Entries())),
	)
	return nil
}

// Stop gracefully stops all scheduled jobs.
func (s *Scheduler) Stop() context.Context {
	s.logger.Info("cron scheduler stopping")
	return s.cron.Stop()
}

// nightlySweep reloads the dataset, reconciles stock and sends the alert
// digest when anything is low or out.
func (s *Scheduler) nightlySweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	s.logger.Info("starting nightly reconciliation sweep")

	if err := s.dataset.Load(ctx); err != nil {
		s.logger.Error("nightly sweep reload failed", slog.Any("error", err))
		return
	}

	stockAlerts := catalog.StockAlerts(s.dataset.Products())
	if len(stockAlerts) == 0 {
		s.logger.Info("nightly sweep completed", slog.Int("alerts", 0))
		return
	}

	if err := s.notifier.NotifyStockAlerts(ctx, stockAlerts); err != nil {
		s.logger.Warn("failed to send stock alert digest", slog.Any("error", err))
	}

	s.logger.Info("nightly sweep completed",
		slog.Int("alerts", len(stockAlerts)),
	)
}
