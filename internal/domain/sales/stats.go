package sales

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// Rollup is an aggregated quantity/revenue pair. Revenue is summed from each
// sale's Total directly, never recomputed from unit price times quantity.
type Rollup struct {
	Quantity float64         `json:"quantity"`
	Revenue  decimal.Decimal `json:"revenue"`
}

func (r Rollup) add(s Sale) Rollup {
	r.Quantity += s.Quantity
	r.Revenue = r.Revenue.Add(s.Total)
	return r
}

// RollupTotals groups quantity/revenue by product, seller and register, plus
// an overall total. It backs both the import preview and the dashboard.
type RollupTotals struct {
	ByProduct  map[string]Rollup `json:"byProduct"`
	BySeller   map[string]Rollup `json:"bySeller"`
	ByRegister map[string]Rollup `json:"byRegister"`
	Overall    Rollup            `json:"overall"`
}

// ComputeRollups aggregates the given sales.
func ComputeRollups(list []Sale) RollupTotals {
	totals := RollupTotals{
		ByProduct:  make(map[string]Rollup),
		BySeller:   make(map[string]Rollup),
		ByRegister: make(map[string]Rollup),
		Overall:    Rollup{Revenue: decimal.Zero},
	}

	for _, s := range list {
		product := strings.TrimSpace(s.Product)
		seller := strings.TrimSpace(s.Seller)

		totals.ByProduct[product] = totals.ByProduct[product].add(s)
		totals.BySeller[seller] = totals.BySeller[seller].add(s)
		totals.ByRegister[s.Register] = totals.ByRegister[s.Register].add(s)
		totals.Overall = totals.Overall.add(s)
	}

	return totals
}

// RankedEntry is one row of a "top N" listing.
type RankedEntry struct {
	Name     string          `json:"name"`
	Quantity float64         `json:"quantity"`
	Revenue  decimal.Decimal `json:"revenue"`
}

// Stats is the dashboard summary block.
type Stats struct {
	SalesCount    int               `json:"salesCount"`
	Revenue       decimal.Decimal   `json:"revenue"`
	AverageBasket decimal.Decimal   `json:"averageBasket"`
	TopProducts   []RankedEntry     `json:"topProducts"`
	TopSellers    []RankedEntry     `json:"topSellers"`
	ByRegister    map[string]Rollup `json:"byRegister"`
}

// ComputeStats derives the dashboard summary from the full sales list.
func ComputeStats(list []Sale, topN int) Stats {
	rollups := ComputeRollups(list)

	stats := Stats{
		SalesCount:  len(list),
		Revenue:     rollups.Overall.Revenue,
		ByRegister:  rollups.ByRegister,
		TopProducts: rank(rollups.ByProduct, topN),
		TopSellers:  rank(rollups.BySeller, topN),
	}

	if len(list) > 0 {
		stats.AverageBasket = rollups.Overall.Revenue.
			Div(decimal.NewFromInt(int64(len(list)))).Round(2)
	} else {
		stats.AverageBasket = decimal.Zero
	}

	return stats
}

// rank orders a rollup map by revenue descending, name ascending on ties so
// the result is deterministic.
func rank(m map[string]Rollup, topN int) []RankedEntry {
	entries := make([]RankedEntry, 0, len(m))
	for name, r := range m {
		entries = append(entries, RankedEntry{Name: name, Quantity: r.Quantity, Revenue: r.Revenue})
	}

	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].Revenue.Equal(entries[j].Revenue) {
			return entries[i].Revenue.GreaterThan(entries[j].Revenue)
		}
		return entries[i].Name < entries[j].Name
	})

	if topN > 0 && topN < len(entries) {
		entries = entries[:topN]
	}
	return entries
}
