// Package money provides parsing and formatting for the monetary amounts that
// appear in register exports: optional currency glyph, French decimal comma,
// minus sign anywhere before the digits. Arithmetic goes through
// shopspring/decimal so derived unit prices round deterministically.
package money

import (
	"strings"
	"unicode"

	gomoney "github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// currencyGlyphs are stripped before numeric parsing. Order matters only in
// that multi-rune symbols must be replaced before their prefixes.
var currencyGlyphs = []string{"€", "EUR", "£", "$", "CHF"}

// ParseAmount converts a raw cell value into a signed amount.
//
// It accepts "12,50 €", "-3,20€", "1 234,56", "12.50" and plain integers.
// The second return value reports whether the input was parseable at all;
// callers must use it to distinguish "zero" from "garbage".
func ParseAmount(raw string) (decimal.Decimal, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.Zero, false
	}

	for _, glyph := range currencyGlyphs {
		s = strings.ReplaceAll(s, glyph, "")
	}

	// Detect the sign independently of digit grouping: "- 12,50" and
	// "-12,50" both count.
	negative := false
	s = strings.Map(func(r rune) rune {
		switch {
		case r == '-' || r == '−':
			negative = true
			return -1
		case unicode.IsSpace(r) || r == ' ' || r == ' ':
			return -1
		default:
			return r
		}
	}, s)

	// Decimal comma to decimal point.
	s = strings.ReplaceAll(s, ",", ".")

	// A trailing "+" or stray punctuation means unparseable, not zero.
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}

	if negative {
		d = d.Neg()
	}
	return d, true
}

// UnitPrice derives the per-unit amount from a transaction total, rounded to
// two decimals. Quantity is assumed positive; a zero quantity yields zero.
func UnitPrice(total decimal.Decimal, quantity float64) decimal.Decimal {
	if quantity == 0 {
		return decimal.Zero
	}
	return total.Div(decimal.NewFromFloat(quantity)).Round(2)
}

// Round2 rounds an amount to two decimals, the precision every persisted
// amount carries.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// FormatEUR renders an amount for display, e.g. "€1,234.56".
func FormatEUR(d decimal.Decimal) string {
	cents := d.Round(2).Shift(2).IntPart()
	return gomoney.New(cents, gomoney.EUR).Display()
}
