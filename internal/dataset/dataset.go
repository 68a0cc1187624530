// Package dataset owns the in-memory sales and products collections and
// keeps them consistent with the document store. All mutations follow the
// same cycle: write to the store, reload the affected collection, then run a
// full reconciliation pass and persist the resulting stock deltas. The
// reconciliation step is explicit and runs only after a reload has completed,
// never inferred from collection counts.
package dataset

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/mbellec/retail-backoffice/internal/domain/catalog"
	"github.com/mbellec/retail-backoffice/internal/domain/sales"
	"github.com/mbellec/retail-backoffice/internal/store"
	"github.com/mbellec/retail-backoffice/pkg/metrics"
)

// Outcome classifies how a mutation ended.
type Outcome string

const (
	// OutcomeApplied: the write and the follow-up reconciliation both
	// persisted.
	OutcomeApplied Outcome = "applied"
	// OutcomeDegraded: the primary write persisted but a follow-up step
	// (reload, stock delta persistence) failed; in-memory state is ahead of
	// the store.
	OutcomeDegraded Outcome = "degraded"
	// OutcomeFailed: the primary write failed; nothing changed.
	OutcomeFailed Outcome = "failed"
)

// MutationResult reports a mutation's outcome. Err is set for Degraded and
// Failed outcomes.
type MutationResult struct {
	Outcome Outcome
	Written int
	Err     error
}

// Service is the single owner of the loaded dataset. Safe for concurrent
// use; reads return copies.
type Service struct {
	store   store.Store
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
	search  *catalog.SearchIndex

	mu       sync.RWMutex
	sales    []sales.Sale
	products []catalog.Product

	subMu sync.Mutex
	subs  []chan struct{}
}

// New creates a dataset service. The search index is optional; when present
// it is rebuilt after every product reload.
func New(st store.Store, logger *slog.Logger, m *metrics.Metrics, tracer trace.Tracer, search *catalog.SearchIndex) *Service {
	return &Service{
		store:   st,
		logger:  logger,
		metrics: m,
		tracer:  tracer,
		search:  search,
	}
}

// Load fetches both collections from the store and then runs an explicit
// reconciliation pass over the freshly loaded data.
func (s *Service) Load(ctx context.Context) error {
	loadedSales, err := s.fetchSales(ctx)
	if err != nil {
		return err
	}
	loadedProducts, err := s.fetchProducts(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.sales = loadedSales
	s.products = loadedProducts
	s.mu.Unlock()

	s.logger.Info("dataset loaded",
		slog.Int("sales", len(loadedSales)),
		slog.Int("products", len(loadedProducts)),
	)

	if _, err := s.Reconcile(ctx); err != nil {
		return fmt.Errorf("initial reconciliation failed: %w", err)
	}

	s.rebuildSearch()
	s.notify()
	return nil
}

// Sales returns a copy of the loaded sales collection.
func (s *Service) Sales() []sales.Sale {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]sales.Sale, len(s.sales))
	copy(out, s.sales)
	return out
}

// Products returns a copy of the loaded product catalog.
func (s *Service) Products() []catalog.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]catalog.Product, len(s.products))
	copy(out, s.products)
	return out
}

// Product returns one product by id.
func (s *Service) Product(id string) (catalog.Product, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.products {
		if p.ID == id {
			return p, true
		}
	}
	return catalog.Product{}, false
}

// Subscribe returns a channel that receives a signal after every dataset
// change, and a cancel function. Signals are coalesced; a slow consumer
// never blocks mutations.
func (s *Service) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	s.subMu.Lock()
	s.subs = append(s.subs, ch)
	s.subMu.Unlock()

	cancel := func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		for i, sub := range s.subs {
			if sub == ch {
				s.subs = append(s.subs[:i], s.subs[i+1:]...)
				return
			}
		}
	}
	return ch, cancel
}

func (s *Service) notify() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// CreateSales persists new sales, reloads the collection and reconciles
// stock. Assigns ids to the incoming records.
func (s *Service) CreateSales(ctx context.Context, records []sales.Sale) MutationResult {
	if len(records) == 0 {
		return MutationResult{Outcome: OutcomeApplied}
	}

	docs := make([]store.Document, len(records))
	for i := range records {
		records[i].ID = uuid.NewString()
		data, err := json.Marshal(records[i])
		if err != nil {
			return MutationResult{Outcome: OutcomeFailed, Err: fmt.Errorf("failed to encode sale: %w", err)}
		}
		docs[i] = store.Document{ID: records[i].ID, Data: data}
	}

	if err := s.store.CreateBatch(ctx, store.CollectionSales, docs); err != nil {
		s.metrics.StoreWriteErrors.Inc()
		return MutationResult{Outcome: OutcomeFailed, Err: fmt.Errorf("failed to persist sales: %w", err)}
	}

	return s.refreshAfterSalesWrite(ctx, len(records))
}

// DeleteSales removes sales by id, then reloads and reconciles.
func (s *Service) DeleteSales(ctx context.Context, ids []string) MutationResult {
	if len(ids) == 0 {
		return MutationResult{Outcome: OutcomeApplied}
	}

	if err := s.store.DeleteBatch(ctx, store.CollectionSales, ids); err != nil {
		s.metrics.StoreWriteErrors.Inc()
		return MutationResult{Outcome: OutcomeFailed, Err: fmt.Errorf("failed to delete sales: %w", err)}
	}

	return s.refreshAfterSalesWrite(ctx, len(ids))
}

// refreshAfterSalesWrite reloads the sales collection and reconciles. The
// primary write already succeeded, so failures here degrade rather than fail.
func (s *Service) refreshAfterSalesWrite(ctx context.Context, written int) MutationResult {
	loadedSales, err := s.fetchSales(ctx)
	if err != nil {
		s.logger.Error("sales reload after write failed", slog.Any("error", err))
		return MutationResult{Outcome: OutcomeDegraded, Written: written, Err: err}
	}

	s.mu.Lock()
	s.sales = loadedSales
	s.mu.Unlock()

	if _, err := s.Reconcile(ctx); err != nil {
		return MutationResult{Outcome: OutcomeDegraded, Written: written, Err: err}
	}

	s.notify()
	return MutationResult{Outcome: OutcomeApplied, Written: written}
}

// CreateProducts persists new products and reloads the catalog.
func (s *Service) CreateProducts(ctx context.Context, products []catalog.Product) MutationResult {
	if len(products) == 0 {
		return MutationResult{Outcome: OutcomeApplied}
	}

	docs := make([]store.Document, len(products))
	for i := range products {
		if products[i].ID == "" {
			products[i].ID = uuid.NewString()
		}
		data, err := json.Marshal(products[i])
		if err != nil {
			return MutationResult{Outcome: OutcomeFailed, Err: fmt.Errorf("failed to encode product: %w", err)}
		}
		docs[i] = store.Document{ID: products[i].ID, Data: data}
	}

	if err := s.store.CreateBatch(ctx, store.CollectionProducts, docs); err != nil {
		s.metrics.StoreWriteErrors.Inc()
		return MutationResult{Outcome: OutcomeFailed, Err: fmt.Errorf("failed to persist products: %w", err)}
	}

	return s.refreshAfterProductWrite(ctx, len(products))
}

// UpdateProduct merges fields into one product document, then reloads and
// reconciles.
func (s *Service) UpdateProduct(ctx context.Context, id string, fields map[string]any) MutationResult {
	if err := s.store.UpdateOne(ctx, store.CollectionProducts, store.Update{ID: id, Fields: fields}); err != nil {
		s.metrics.StoreWriteErrors.Inc()
		return MutationResult{Outcome: OutcomeFailed, Err: fmt.Errorf("failed to update product: %w", err)}
	}
	return s.refreshAfterProductWrite(ctx, 1)
}

// DeleteProducts removes products by id, then reloads.
func (s *Service) DeleteProducts(ctx context.Context, ids []string) MutationResult {
	if len(ids) == 0 {
		return MutationResult{Outcome: OutcomeApplied}
	}

	if err := s.store.DeleteBatch(ctx, store.CollectionProducts, ids); err != nil {
		s.metrics.StoreWriteErrors.Inc()
		return MutationResult{Outcome: OutcomeFailed, Err: fmt.Errorf("failed to delete products: %w", err)}
	}
	return s.refreshAfterProductWrite(ctx, len(ids))
}

func (s *Service) refreshAfterProductWrite(ctx context.Context, written int) MutationResult {
	loadedProducts, err := s.fetchProducts(ctx)
	if err != nil {
		s.logger.Error("product reload after write failed", slog.Any("error", err))
		return MutationResult{Outcome: OutcomeDegraded, Written: written, Err: err}
	}

	s.mu.Lock()
	s.products = loadedProducts
	s.mu.Unlock()

	if _, err := s.Reconcile(ctx); err != nil {
		return MutationResult{Outcome: OutcomeDegraded, Written: written, Err: err}
	}

	s.rebuildSearch()
	s.notify()
	return MutationResult{Outcome: OutcomeApplied, Written: written}
}

// Reconcile recomputes every product's stock fields from the full sales
// history and persists only the changed products, batched. Running it twice
// over unchanged data writes nothing the second time.
func (s *Service) Reconcile(ctx context.Context) (catalog.ReconcileResult, error) {
	if s.tracer != nil {
		var span trace.Span
		ctx, span = s.tracer.Start(ctx, "dataset.reconcile")
		defer span.End()
	}

	s.mu.RLock()
	productsSnapshot := make([]catalog.Product, len(s.products))
	copy(productsSnapshot, s.products)
	salesSnapshot := make([]sales.Sale, len(s.sales))
	copy(salesSnapshot, s.sales)
	s.mu.RUnlock()

	result := catalog.Reconcile(productsSnapshot, salesSnapshot, s.logger)

	s.metrics.ReconcilePasses.Inc()
	s.metrics.UnmatchedSales.Add(float64(result.UnmatchedSales))

	if len(result.Deltas) > 0 {
		updates := make([]store.Update, len(result.Deltas))
		for i, delta := range result.Deltas {
			updates[i] = store.Update{ID: delta.ProductID, Fields: delta.Fields}
		}
		if err := s.store.UpdateBatch(ctx, store.CollectionProducts, updates); err != nil {
			s.metrics.StoreWriteErrors.Inc()
			return result, fmt.Errorf("failed to persist stock deltas: %w", err)
		}
		s.metrics.ReconcileWrites.Add(float64(len(updates)))
	}

	s.mu.Lock()
	s.products = result.Products
	s.mu.Unlock()

	s.logger.Info("reconciliation pass complete",
		slog.Int("products", len(result.Products)),
		slog.Int("changed", len(result.Deltas)),
		slog.Int("unmatched_sales", result.UnmatchedSales),
	)
	return result, nil
}

// UnmatchedSales lists the sales the last reconciliation state cannot
// attribute to any product, each with up to limit ranked catalog candidates
// for triage.
func (s *Service) UnmatchedSales(limit int) []catalog.UnmatchedSale {
	s.mu.RLock()
	productsSnapshot := make([]catalog.Product, len(s.products))
	copy(productsSnapshot, s.products)
	salesSnapshot := make([]sales.Sale, len(s.sales))
	copy(salesSnapshot, s.sales)
	s.mu.RUnlock()

	return catalog.UnmatchedReport(productsSnapshot, salesSnapshot, limit)
}

// SearchProducts queries the product search index.
func (s *Service) SearchProducts(query string, limit int) ([]catalog.SearchHit, error) {
	if s.search == nil {
		return nil, nil
	}
	return s.search.Search(query, limit)
}

func (s *Service) rebuildSearch() {
	if s.search == nil {
		return
	}
	if err := s.search.Rebuild(s.Products()); err != nil {
		s.logger.Warn("search index rebuild failed", slog.Any("error", err))
	}
}

func (s *Service) fetchSales(ctx context.Context) ([]sales.Sale, error) {
	docs, err := s.store.FetchAll(ctx, store.CollectionSales)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch sales: %w", err)
	}

	out := make([]sales.Sale, 0, len(docs))
	for _, doc := range docs {
		var sale sales.Sale
		if err := json.Unmarshal(doc.Data, &sale); err != nil {
			s.logger.Warn("skipping undecodable sale document",
				slog.String("id", doc.ID), slog.Any("error", err))
			continue
		}
		sale.ID = doc.ID
		out = append(out, sale)
	}
	return out, nil
}

func (s *Service) fetchProducts(ctx context.Context) ([]catalog.Product, error) {
	docs, err := s.store.FetchAll(ctx, store.CollectionProducts)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch products: %w", err)
	}

	out := make([]catalog.Product, 0, len(docs))
	for _, doc := range docs {
		var product catalog.Product
		if err := json.Unmarshal(doc.Data, &product); err != nil {
			s.logger.Warn("skipping undecodable product document",
				slog.String("id", doc.ID), slog.Any("error", err))
			continue
		}
		product.ID = doc.ID
		out = append(out, product)
	}
	return out, nil
}
