package catalog

import (
	"github.com/mbellec/retail-backoffice/internal/domain/sales"
)

// Suggestion is one "did you mean" candidate for an unattributed sale.
type Suggestion struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	Category  string `json:"category"`
	// Rank is the edit distance between the names; lower is closer.
	Rank int `json:"rank"`
}

// UnmatchedSale pairs a sale that reconciliation could not attribute to any
// product with its closest catalog candidates.
type UnmatchedSale struct {
	Sale        sales.Sale   `json:"sale"`
	Suggestions []Suggestion `json:"suggestions"`
}

// UnmatchedReport lists every sale in the history that resolves to no catalog
// product, each with up to limit ranked candidates. Candidates ignore the
// category constraint on purpose: a miscategorized row is exactly what the
// triage view is for.
func UnmatchedReport(products []Product, history []sales.Sale, limit int) []UnmatchedSale {
	matcher := NewMatcher(products)

	var out []UnmatchedSale
	for _, s := range history {
		if _, ok := matcher.Match(s.Product, s.Category); ok {
			continue
		}

		candidates := matcher.Closest(s.Product, limit)
		suggestions := make([]Suggestion, 0, len(candidates))
		for _, c := range candidates {
			suggestions = append(suggestions, Suggestion{
				ProductID: c.Product.ID,
				Name:      c.Product.Name,
				Category:  c.Product.Category,
				Rank:      c.Rank,
			})
		}
		out = append(out, UnmatchedSale{Sale: s, Suggestions: suggestions})
	}
	return out
}
