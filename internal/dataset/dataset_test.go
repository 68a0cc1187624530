package dataset

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbellec/retail-backoffice/internal/domain/catalog"
	"github.com/mbellec/retail-backoffice/internal/domain/sales"
	"github.com/mbellec/retail-backoffice/internal/store"
	"github.com/mbellec/retail-backoffice/internal/store/memory"
	"github.com/mbellec/retail-backoffice/pkg/metrics"
)

func newTestService(t *testing.T, st store.Store) *Service {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(st, logger, metrics.NewUnregistered(), nil, nil)
}

func seedProducts(t *testing.T, svc *Service, products ...catalog.Product) {
	t.Helper()
	res := svc.CreateProducts(context.Background(), products)
	require.Equal(t, OutcomeApplied, res.Outcome, "seed products: %v", res.Err)
}

func testSale(product, category string, qty float64, total string) sales.Sale {
	return sales.Sale{
		Product:  product,
		Category: category,
		Register: sales.Register1,
		Date:     time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
		Seller:   "Marie",
		Quantity: qty,
		Total:    decimal.RequireFromString(total),
	}
}

func TestServiceLoad(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, memory.New())

	seedProducts(t, svc, catalog.Product{
		Name: "Pain", Category: "Boulangerie",
		Price: decimal.RequireFromString("1.50"), InitialStock: 10, Stock: 10,
	})
	res := svc.CreateSales(ctx, []sales.Sale{testSale("Pain", "Boulangerie", 2, "3.00")})
	require.Equal(t, OutcomeApplied, res.Outcome)

	// A fresh service over the same store sees the reconciled state.
	other := newTestService(t, svcStore(svc))
	require.NoError(t, other.Load(ctx))

	products := other.Products()
	require.Len(t, products, 1)
	assert.Equal(t, float64(2), products[0].QuantitySold)
	assert.Equal(t, float64(8), products[0].Stock)

	loaded := other.Sales()
	require.Len(t, loaded, 1)
	assert.Equal(t, "Pain", loaded[0].Product)
	assert.True(t, decimal.RequireFromString("3.00").Equal(loaded[0].Total))
}

// svcStore extracts the store from a service for sharing between instances.
func svcStore(s *Service) store.Store { return s.store }

func TestCreateSalesReconcilesStock(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, memory.New())

	seedProducts(t, svc, catalog.Product{
		Name: "Pain", Category: "Boulangerie",
		Price: decimal.RequireFromString("1.50"), InitialStock: 10, Stock: 10,
	})

	res := svc.CreateSales(ctx, []sales.Sale{
		testSale("Pain", "Boulangerie", 2, "3.00"),
		testSale("Pain", "Boulangerie", 3, "4.50"),
	})
	require.Equal(t, OutcomeApplied, res.Outcome)
	assert.Equal(t, 2, res.Written)

	products := svc.Products()
	require.Len(t, products, 1)
	assert.Equal(t, float64(5), products[0].QuantitySold)
	assert.Equal(t, float64(5), products[0].Stock)
}

func TestReconcileIdempotence(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, memory.New())

	seedProducts(t, svc, catalog.Product{
		Name: "Lait", Category: "Cremerie",
		Price: decimal.RequireFromString("1.20"), InitialStock: 20, Stock: 20,
	})
	res := svc.CreateSales(ctx, []sales.Sale{testSale("Lait", "Cremerie", 4, "4.80")})
	require.Equal(t, OutcomeApplied, res.Outcome)

	first, err := svc.Reconcile(ctx)
	require.NoError(t, err)

	second, err := svc.Reconcile(ctx)
	require.NoError(t, err)

	assert.Empty(t, second.Deltas, "second pass over unchanged data must write nothing")
	assert.Equal(t, first.Products, second.Products)
}

func TestDeleteSalesRestoresStock(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, memory.New())

	seedProducts(t, svc, catalog.Product{
		Name: "Pain", Category: "Boulangerie",
		Price: decimal.RequireFromString("1.50"), InitialStock: 10, Stock: 10,
	})
	res := svc.CreateSales(ctx, []sales.Sale{testSale("Pain", "Boulangerie", 2, "3.00")})
	require.Equal(t, OutcomeApplied, res.Outcome)
	require.Equal(t, float64(8), svc.Products()[0].Stock)

	ids := make([]string, 0, 1)
	for _, s := range svc.Sales() {
		ids = append(ids, s.ID)
	}
	res = svc.DeleteSales(ctx, ids)
	require.Equal(t, OutcomeApplied, res.Outcome)

	products := svc.Products()
	assert.Equal(t, float64(0), products[0].QuantitySold)
	assert.Equal(t, float64(10), products[0].Stock)
	assert.Empty(t, svc.Sales())
}

func TestUpdateProduct(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, memory.New())

	seedProducts(t, svc, catalog.Product{
		Name: "Pain", Category: "Boulangerie",
		Price: decimal.RequireFromString("1.50"), InitialStock: 10, Stock: 10,
	})
	id := svc.Products()[0].ID

	res := svc.UpdateProduct(ctx, id, map[string]any{"minStock": 5})
	require.Equal(t, OutcomeApplied, res.Outcome)
	assert.Equal(t, float64(5), svc.Products()[0].MinStock)

	res = svc.UpdateProduct(ctx, "ghost", map[string]any{"minStock": 5})
	assert.Equal(t, OutcomeFailed, res.Outcome)
}

// failingReads wraps a store and fails FetchAll after a threshold, to force
// the degraded path.
type failingReads struct {
	store.Store
	allowed int
	calls   int
}

func (f *failingReads) FetchAll(ctx context.Context, collection string) ([]store.Document, error) {
	f.calls++
	if f.calls > f.allowed {
		return nil, errors.New("store unavailable")
	}
	return f.Store.FetchAll(ctx, collection)
}

func TestCreateSalesDegradedWhenReloadFails(t *testing.T) {
	ctx := context.Background()
	flaky := &failingReads{Store: memory.New(), allowed: 1000}
	svc := newTestService(t, flaky)

	seedProducts(t, svc, catalog.Product{
		Name: "Pain", Category: "Boulangerie",
		Price: decimal.RequireFromString("1.50"), InitialStock: 10, Stock: 10,
	})

	flaky.allowed = flaky.calls // every further read fails
	res := svc.CreateSales(ctx, []sales.Sale{testSale("Pain", "Boulangerie", 1, "1.50")})

	assert.Equal(t, OutcomeDegraded, res.Outcome)
	assert.Equal(t, 1, res.Written)
	assert.Error(t, res.Err)
}

func TestSubscribe(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, memory.New())

	ch, cancel := svc.Subscribe()
	defer cancel()

	seedProducts(t, svc, catalog.Product{
		Name: "Pain", Category: "Boulangerie",
		Price: decimal.RequireFromString("1.50"), InitialStock: 10, Stock: 10,
	})
	_ = ctx

	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("expected a change notification")
	}
}
