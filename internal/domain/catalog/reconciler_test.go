package catalog

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbellec/retail-backoffice/internal/domain/sales"
)

func saleOf(product, category string, qty float64) sales.Sale {
	return sales.Sale{
		Product:  product,
		Category: category,
		Register: sales.Register1,
		Date:     time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
		Seller:   "Marie",
		Quantity: qty,
		Total:    decimal.NewFromFloat(qty * 1.5),
	}
}

func TestReconcile(t *testing.T) {
	t.Run("recomputes sold and stock", func(t *testing.T) {
		products := []Product{
			{ID: "p1", Name: "Pain", Category: "Boulangerie", InitialStock: 10, Stock: 10},
		}
		history := []sales.Sale{
			saleOf("Pain", "Boulangerie", 2),
			saleOf("Pain", "Boulangerie", 3),
		}

		result := Reconcile(products, history, nil)

		require.Len(t, result.Products, 1)
		assert.Equal(t, float64(5), result.Products[0].QuantitySold)
		assert.Equal(t, float64(5), result.Products[0].Stock)
		assert.Equal(t, 0, result.UnmatchedSales)

		require.Len(t, result.Deltas, 1)
		assert.Equal(t, "p1", result.Deltas[0].ProductID)
		assert.Equal(t, float64(5), result.Deltas[0].Fields["quantitySold"])
		assert.Equal(t, float64(5), result.Deltas[0].Fields["stock"])
	})

	t.Run("stock never goes negative", func(t *testing.T) {
		products := []Product{
			{ID: "p1", Name: "Pain", Category: "Boulangerie", InitialStock: 2, Stock: 2},
		}
		history := []sales.Sale{saleOf("Pain", "Boulangerie", 5)}

		result := Reconcile(products, history, nil)
		assert.Equal(t, float64(5), result.Products[0].QuantitySold)
		assert.Equal(t, float64(0), result.Products[0].Stock)
	})

	t.Run("initial stock backfilled from legacy fields", func(t *testing.T) {
		products := []Product{
			{ID: "p1", Name: "Pain", Category: "Boulangerie", Stock: 7, QuantitySold: 3},
		}

		result := Reconcile(products, nil, nil)
		assert.Equal(t, float64(10), result.Products[0].InitialStock)
		assert.Equal(t, float64(0), result.Products[0].QuantitySold)
		assert.Equal(t, float64(10), result.Products[0].Stock)
	})

	t.Run("idempotent", func(t *testing.T) {
		products := []Product{
			{ID: "p1", Name: "Pain", Category: "Boulangerie", InitialStock: 10, Stock: 10},
			{ID: "p2", Name: "Lait", Category: "Cremerie", InitialStock: 20, Stock: 20},
		}
		history := []sales.Sale{
			saleOf("Pain", "Boulangerie", 2),
			saleOf("Lait", "Cremerie", 4),
		}

		first := Reconcile(products, history, nil)
		require.Len(t, first.Deltas, 2)

		second := Reconcile(first.Products, history, nil)
		assert.Empty(t, second.Deltas, "second pass over unchanged data must produce no deltas")
		assert.Equal(t, first.Products, second.Products)
	})

	t.Run("unmatched sales counted not failed", func(t *testing.T) {
		products := []Product{
			{ID: "p1", Name: "Pain", Category: "Boulangerie", InitialStock: 10, Stock: 10},
		}
		history := []sales.Sale{
			saleOf("Pain", "Boulangerie", 2),
			saleOf("Aspirateur", "Electromenager", 1),
		}

		result := Reconcile(products, history, nil)
		assert.Equal(t, 1, result.UnmatchedSales)
		assert.Equal(t, float64(2), result.Products[0].QuantitySold)
	})

	t.Run("fuzzy names reconcile through the matcher", func(t *testing.T) {
		products := []Product{
			{ID: "p1", Name: "Smarties 100S", Category: "CONFISERIES", InitialStock: 25, Stock: 25},
		}
		history := []sales.Sale{
			saleOf("Smarties", "Confiseries", 3),
			saleOf("SMARTIES 20", "CONFISERIES", 2),
		}

		result := Reconcile(products, history, nil)
		assert.Equal(t, 0, result.UnmatchedSales)
		assert.Equal(t, float64(5), result.Products[0].QuantitySold)
		assert.Equal(t, float64(20), result.Products[0].Stock)
	})

	t.Run("products without sales untouched", func(t *testing.T) {
		products := []Product{
			{ID: "p1", Name: "Pain", Category: "Boulangerie", InitialStock: 10, Stock: 10},
		}

		result := Reconcile(products, nil, nil)
		assert.Empty(t, result.Deltas)
		assert.Equal(t, float64(10), result.Products[0].Stock)
	})
}

func TestStockAlerts(t *testing.T) {
	products := []Product{
		{ID: "p1", Name: "Pain", Category: "Boulangerie", Stock: 10, MinStock: 3},
		{ID: "p2", Name: "Lait", Category: "Cremerie", Price: decimal.RequireFromString("1.20"), Stock: 2, MinStock: 3},
		{ID: "p3", Name: "Oeufs", Category: "Cremerie", Stock: 0, MinStock: 5},
	}

	alerts := StockAlerts(products)
	require.Len(t, alerts, 2)

	// Out-of-stock entries come first.
	assert.Equal(t, "p3", alerts[0].ProductID)
	assert.True(t, alerts[0].OutOfStock)
	assert.Equal(t, "p2", alerts[1].ProductID)
	assert.False(t, alerts[1].OutOfStock)

	// The catalog price rides along for the email digest.
	assert.True(t, decimal.RequireFromString("1.20").Equal(alerts[1].Price))
}
