// Package service orchestrates spreadsheet imports: parsing, validation,
// preview and the confirmed commit into the dataset.
package service

import (
	"bytes"
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/mbellec/retail-backoffice/internal/dataset"
	"github.com/mbellec/retail-backoffice/internal/domain/catalog"
	"github.com/mbellec/retail-backoffice/internal/domain/imports/parser"
	"github.com/mbellec/retail-backoffice/internal/domain/sales"
	"github.com/mbellec/retail-backoffice/pkg/metrics"
	"github.com/mbellec/retail-backoffice/pkg/storage"
)

// Service runs the import pipeline. Preview is side-effect free apart from
// archiving the upload; Commit writes through the dataset service.
type Service struct {
	dataset         *dataset.Service
	archive         storage.Archive
	logger          *slog.Logger
	metrics         *metrics.Metrics
	tracer          trace.Tracer
	defaultRegister string
}

// New wires the import service. archive and tracer may be nil.
func New(ds *dataset.Service, archive storage.Archive, logger *slog.Logger, m *metrics.Metrics, tracer trace.Tracer, defaultRegister string) *Service {
	if defaultRegister == "" {
		defaultRegister = sales.Register1
	}
	return &Service{
		dataset:         ds,
		archive:         archive,
		logger:          logger,
		metrics:         m,
		tracer:          tracer,
		defaultRegister: defaultRegister,
	}
}

// PreviewSales parses an uploaded sales spreadsheet and returns the dry-run
// preview. The upload is archived regardless of the outcome so rejected
// files can be inspected later.
func (s *Service) PreviewSales(ctx context.Context, filename string, data []byte) (*ImportPreview, error) {
	started := time.Now()
	defer func() {
		s.metrics.ImportDuration.Observe(time.Since(started).Seconds())
	}()

	s.archiveUpload(ctx, filename, data)

	table, err := parser.Parse(filename, data)
	if err != nil {
		return nil, err
	}

	preview, err := BuildPreview(table, s.defaultRegister)
	if err != nil {
		return nil, err
	}

	s.metrics.RowsRejected.Add(float64(len(preview.Errors)))
	s.metrics.RowsDuplicated.Add(float64(len(preview.Duplicates)))

	s.logger.Info("sales import preview built",
		slog.String("file", filename),
		slog.Int("valid", len(preview.Valid)),
		slog.Int("duplicates", len(preview.Duplicates)),
		slog.Int("errors", len(preview.Errors)),
	)
	return preview, nil
}

// CommitSales persists the confirmed records of a preview. The caller passes
// back the valid records it wants committed (possibly a subset).
func (s *Service) CommitSales(ctx context.Context, records []sales.Sale) dataset.MutationResult {
	if s.tracer != nil {
		var span trace.Span
		ctx, span = s.tracer.Start(ctx, "imports.commit_sales",
			trace.WithAttributes(attribute.Int("records", len(records))))
		defer span.End()
	}

	result := s.dataset.CreateSales(ctx, records)
	if result.Outcome == dataset.OutcomeApplied {
		s.metrics.RowsImported.Add(float64(result.Written))
	}

	s.logger.Info("sales import committed",
		slog.Int("records", len(records)),
		slog.String("outcome", string(result.Outcome)),
	)
	return result
}

// PreviewStock parses an uploaded stock spreadsheet into a preview of the
// products it would create.
func (s *Service) PreviewStock(ctx context.Context, filename string, data []byte) (*StockPreview, error) {
	s.archiveUpload(ctx, filename, data)

	table, err := parser.Parse(filename, data)
	if err != nil {
		return nil, err
	}

	preview, err := BuildStockPreview(table)
	if err != nil {
		return nil, err
	}

	s.metrics.RowsRejected.Add(float64(len(preview.Errors)))
	s.metrics.RowsDuplicated.Add(float64(len(preview.Duplicates)))
	return preview, nil
}

// CommitStock persists the products of a stock preview.
func (s *Service) CommitStock(ctx context.Context, products []catalog.Product) dataset.MutationResult {
	if s.tracer != nil {
		var span trace.Span
		ctx, span = s.tracer.Start(ctx, "imports.commit_stock",
			trace.WithAttributes(attribute.Int("products", len(products))))
		defer span.End()
	}

	result := s.dataset.CreateProducts(ctx, products)
	if result.Outcome == dataset.OutcomeApplied {
		s.metrics.RowsImported.Add(float64(result.Written))
	}

	s.logger.Info("stock import committed",
		slog.Int("products", len(products)),
		slog.String("outcome", string(result.Outcome)),
	)
	return result
}

// archiveUpload is best effort: a full archive never blocks an import.
func (s *Service) archiveUpload(ctx context.Context, filename string, data []byte) {
	if s.archive == nil {
		return
	}
	if _, err := s.archive.Save(ctx, filename, "application/octet-stream", bytes.NewReader(data)); err != nil {
		s.logger.Warn("failed to archive upload",
			slog.String("file", filename), slog.Any("error", err))
	}
}
