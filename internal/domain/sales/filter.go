package sales

import (
	"sort"
	"strings"
	"time"
)

// Query describes the dashboard's filter and sort state for the sales table.
// Zero values mean "no constraint".
type Query struct {
	Register string
	Seller   string
	Category string
	Search   string // matched against product name, case-insensitive
	From     time.Time
	To       time.Time

	SortBy   string // "date", "product", "seller", "total", "quantity"
	SortDesc bool
}

// Filter returns the sales matching the query, sorted. The input slice is
// never modified.
func Filter(all []Sale, q Query) []Sale {
	out := make([]Sale, 0, len(all))

	search := strings.ToLower(strings.TrimSpace(q.Search))
	for _, s := range all {
		if q.Register != "" && s.Register != q.Register {
			continue
		}
		if q.Seller != "" && !strings.EqualFold(s.Seller, q.Seller) {
			continue
		}
		if q.Category != "" && !strings.EqualFold(s.Category, q.Category) {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(s.Product), search) {
			continue
		}
		if !q.From.IsZero() && s.Date.Before(q.From) {
			continue
		}
		if !q.To.IsZero() && s.Date.After(q.To) {
			continue
		}
		out = append(out, s)
	}

	sortSales(out, q.SortBy, q.SortDesc)
	return out
}

func sortSales(list []Sale, by string, desc bool) {
	less := func(i, j int) bool {
		a, b := list[i], list[j]
		switch by {
		case "product":
			return strings.ToLower(a.Product) < strings.ToLower(b.Product)
		case "seller":
			return strings.ToLower(a.Seller) < strings.ToLower(b.Seller)
		case "total":
			return a.Total.LessThan(b.Total)
		case "quantity":
			return a.Quantity < b.Quantity
		default: // date
			return a.Date.Before(b.Date)
		}
	}

	if desc {
		sort.SliceStable(list, func(i, j int) bool { return less(j, i) })
		return
	}
	sort.SliceStable(list, less)
}
