// Package sales holds the sale record model and the pure computations the
// dashboard runs over the in-memory sales collection: filtering, aggregate
// statistics and CSV export.
package sales

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Canonical register tokens. Every free-text register name a spreadsheet or
// operator enters is folded onto one of these two.
const (
	Register1 = "Register1"
	Register2 = "Register2"
)

// Sale is one point-of-sale transaction. Sales are immutable once created;
// corrections happen by delete-and-reimport.
type Sale struct {
	ID       string          `json:"id"`
	Product  string          `json:"product"`
	Category string          `json:"category"`
	Register string          `json:"register"`
	Date     time.Time       `json:"date"`
	Seller   string          `json:"seller"`
	Quantity float64         `json:"quantity"`
	// Total is the authoritative transaction value. Negative totals represent
	// refunds and payouts; Quantity stays positive either way.
	Total decimal.Decimal `json:"total"`
	// Price is always derived as Total/Quantity rounded to 2 decimals,
	// never authored independently.
	Price decimal.Decimal `json:"price"`
}

// NormalizeRegister folds a raw register name onto a canonical token.
// Anything mentioning "1" maps to Register1, anything mentioning "2" to
// Register2. The second return value reports whether the value was ambiguous
// and the fallback was used, so importers can surface a warning instead of
// silently defaulting.
func NormalizeRegister(raw, fallback string) (string, bool) {
	cleaned := strings.ToLower(strings.TrimSpace(raw))
	cleaned = strings.ReplaceAll(cleaned, " ", "")

	switch {
	case strings.Contains(cleaned, "1"):
		return Register1, false
	case strings.Contains(cleaned, "2"):
		return Register2, false
	default:
		return fallback, true
	}
}

// CompositeKey identifies a sale by its content rather than its id, for
// import deduplication. Two rows with the same key are the same transaction.
func (s Sale) CompositeKey() string {
	return fmt.Sprintf("%s|%s|%s|%s|%s|%v|%s",
		strings.ToLower(strings.TrimSpace(s.Product)),
		strings.ToLower(strings.TrimSpace(s.Category)),
		s.Register,
		s.Date.Format("2006-01-02"),
		strings.ToLower(strings.TrimSpace(s.Seller)),
		s.Quantity,
		s.Total.StringFixed(2),
	)
}
