// Package catalog holds the product model, the fuzzy product matcher used to
// reconcile imported sales against the catalog, and the stock reconciler.
package catalog

import (
	"github.com/shopspring/decimal"

	"github.com/mbellec/retail-backoffice/pkg/alerts"
)

// Product is a catalog entry. Stock is never edited directly: it is always
// max(0, InitialStock-QuantitySold), recomputed by the reconciler.
type Product struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	// InitialStock is the baseline set at creation or import, not re-derived
	// from sales.
	InitialStock float64 `json:"initialStock"`
	// QuantitySold is recomputed from scratch on every reconciliation pass.
	QuantitySold float64 `json:"quantitySold"`
	Stock        float64 `json:"stock"`
	MinStock     float64 `json:"minStock"`
}

// LowStock reports whether the product is at or below its reorder threshold.
func (p Product) LowStock() bool {
	return p.Stock <= p.MinStock
}

// OutOfStock reports whether the product has no stock left.
func (p Product) OutOfStock() bool {
	return p.Stock == 0
}

// StockAlerts lists every product at or below its reorder threshold, out of
// stock entries first.
func StockAlerts(products []Product) []alerts.StockAlert {
	var out, low []alerts.StockAlert

	for _, p := range products {
		if !p.LowStock() {
			continue
		}
		alert := alerts.StockAlert{
			ProductID:  p.ID,
			Name:       p.Name,
			Category:   p.Category,
			Price:      p.Price,
			Stock:      p.Stock,
			MinStock:   p.MinStock,
			OutOfStock: p.OutOfStock(),
		}
		if alert.OutOfStock {
			out = append(out, alert)
		} else {
			low = append(low, alert)
		}
	}

	return append(out, low...)
}
