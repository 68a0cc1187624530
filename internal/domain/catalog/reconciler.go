package catalog

import (
	"log/slog"

	"github.com/mbellec/retail-backoffice/internal/domain/sales"
)

// ProductDelta carries the changed stock fields of one product, ready to be
// persisted as a partial document update.
type ProductDelta struct {
	ProductID string
	Fields    map[string]any
}

// ReconcileResult is the outcome of one reconciliation pass.
type ReconcileResult struct {
	// Products is the full catalog with recomputed stock fields, in the
	// original order.
	Products []Product
	// Deltas holds one entry per product whose quantitySold, stock or
	// initialStock actually changed. Running the reconciler twice over
	// unchanged data yields no deltas.
	Deltas []ProductDelta
	// UnmatchedSales counts sales that resolved to no catalog product.
	// They are observable for triage but are not errors.
	UnmatchedSales int
}

// Reconcile recomputes every product's quantitySold and stock from the full
// sales history. It is a complete recomputation, not an incremental delta:
// callers run it after any sales mutation, against a freshly reloaded sales
// collection.
func Reconcile(products []Product, history []sales.Sale, logger *slog.Logger) ReconcileResult {
	matcher := NewMatcher(products)

	soldByID := make(map[string]float64, len(products))
	unmatched := 0
	for _, s := range history {
		p, ok := matcher.Match(s.Product, s.Category)
		if !ok {
			unmatched++
			if logger != nil {
				logger.Debug("sale matched no catalog product",
					slog.String("product", s.Product),
					slog.String("category", s.Category),
					slog.String("sale_id", s.ID),
				)
			}
			continue
		}
		soldByID[p.ID] += s.Quantity
	}

	result := ReconcileResult{
		Products:       make([]Product, len(products)),
		UnmatchedSales: unmatched,
	}

	for i, p := range products {
		// Establish the baseline once: a product imported before the
		// baseline field existed gets it backfilled so the invariant
		// stock = max(0, initialStock-quantitySold) is never undefined.
		initial := p.InitialStock
		if initial == 0 && (p.Stock != 0 || p.QuantitySold != 0) {
			initial = p.Stock + p.QuantitySold
		}

		sold := soldByID[p.ID]
		stock := initial - sold
		if stock < 0 {
			stock = 0
		}

		updated := p
		updated.InitialStock = initial
		updated.QuantitySold = sold
		updated.Stock = stock
		result.Products[i] = updated

		if p.QuantitySold != sold || p.Stock != stock || p.InitialStock != initial {
			result.Deltas = append(result.Deltas, ProductDelta{
				ProductID: p.ID,
				Fields: map[string]any{
					"initialStock": initial,
					"quantitySold": sold,
					"stock":        stock,
				},
			})
		}
	}

	return result
}
