// Package normalizer maps arbitrary human-entered spreadsheet headers onto
// the canonical import schema and parses heterogeneous cell encodings.
package normalizer

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Canonical field names for sales imports. Every recognized header maps onto
// exactly one of these.
const (
	FieldProduct  = "Product"
	FieldCategory = "Category"
	FieldRegister = "Register"
	FieldDate     = "Date"
	FieldSeller   = "Seller"
	FieldQuantity = "Quantity"
	FieldAmount   = "Amount"
)

// RequiredSalesFields lists the canonical columns a sales import must carry.
var RequiredSalesFields = []string{
	FieldProduct, FieldCategory, FieldRegister, FieldDate,
	FieldSeller, FieldQuantity, FieldAmount,
}

// RequiredStockFields lists the canonical columns a stock import must carry.
var RequiredStockFields = []string{
	FieldProduct, FieldCategory, FieldDate, FieldQuantity,
}

// synonym pairs a cleaned header pattern with its canonical field. The table
// is an ordered slice, not a map: substring fallback matching walks it in
// declaration order, so ties always resolve the same way on every runtime.
type synonym struct {
	pattern   string
	canonical string
}

var synonymTable = []synonym{
	// Product
	{"produit", FieldProduct},
	{"product", FieldProduct},
	{"article", FieldProduct},
	{"item", FieldProduct},
	{"designation", FieldProduct},
	{"libelle", FieldProduct},

	// Category
	{"categorie", FieldCategory},
	{"category", FieldCategory},
	{"famille", FieldCategory},
	{"rayon", FieldCategory},
	{"type", FieldCategory},

	// Register
	{"caisse", FieldRegister},
	{"register", FieldRegister},
	{"till", FieldRegister},
	{"terminal", FieldRegister},
	{"tpv", FieldRegister},

	// Date
	{"date", FieldDate},
	{"jour", FieldDate},
	{"day", FieldDate},

	// Seller
	{"vendeur", FieldSeller},
	{"vendeuse", FieldSeller},
	{"seller", FieldSeller},
	{"employe", FieldSeller},
	{"employee", FieldSeller},
	{"staff", FieldSeller},

	// Quantity
	{"quantite", FieldQuantity},
	{"quantity", FieldQuantity},
	{"qte", FieldQuantity},
	{"qty", FieldQuantity},
	{"nombre", FieldQuantity},

	// Amount
	{"montant", FieldAmount},
	{"amount", FieldAmount},
	{"prix", FieldAmount},
	{"price", FieldAmount},
	{"total", FieldAmount},
	{"cost", FieldAmount},
	{"somme", FieldAmount},
	{"valeur", FieldAmount},
}

// NormalizeHeader maps one raw header onto a canonical field name. The
// second return value is false when the header was not recognized; the
// returned value is then a title-cased cleanup of the input, surfaced to the
// user as an unrecognized column rather than silently dropped.
func NormalizeHeader(raw string) (string, bool) {
	cleaned := CleanHeader(raw)
	if cleaned == "" {
		return "", false
	}

	for _, s := range synonymTable {
		if cleaned == s.pattern {
			return s.canonical, true
		}
	}

	// Substring containment in both directions, first table entry wins.
	for _, s := range synonymTable {
		if strings.Contains(cleaned, s.pattern) || strings.Contains(s.pattern, cleaned) {
			return s.canonical, true
		}
	}

	return titleCase(cleaned), false
}

// HeaderMapping is the resolved header→canonical mapping for one import.
type HeaderMapping struct {
	// ByRaw maps every raw header to what it resolved to, recognized or not.
	ByRaw map[string]string
	// ByCanonical maps each canonical field to the raw header that provides
	// it. Only recognized fields appear.
	ByCanonical map[string]string
	// Unrecognized lists raw headers that mapped to no canonical field.
	Unrecognized []string
}

// MapHeaders resolves every raw header and records the full mapping, so a
// missing-columns report can show the user exactly how each header was
// interpreted.
func MapHeaders(raw []string) HeaderMapping {
	m := HeaderMapping{
		ByRaw:       make(map[string]string, len(raw)),
		ByCanonical: make(map[string]string, len(raw)),
	}

	for _, h := range raw {
		canonical, ok := NormalizeHeader(h)
		m.ByRaw[h] = canonical
		if !ok {
			m.Unrecognized = append(m.Unrecognized, h)
			continue
		}
		// First header providing a canonical field wins; later duplicates
		// keep their mapping in ByRaw for the diagnostics report.
		if _, exists := m.ByCanonical[canonical]; !exists {
			m.ByCanonical[canonical] = h
		}
	}

	return m
}

// Missing returns the canonical fields from required that no raw header
// provides.
func (m HeaderMapping) Missing(required []string) []string {
	var missing []string
	for _, f := range required {
		if _, ok := m.ByCanonical[f]; !ok {
			missing = append(missing, f)
		}
	}
	return missing
}

// CleanHeader strips diacritics and punctuation from a raw header, collapses
// whitespace and lowercases, producing the form the synonym table is keyed on.
func CleanHeader(raw string) string {
	stripped := stripDiacritics(raw)

	var b strings.Builder
	for _, r := range stripped {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(unicode.ToLower(r))
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}

	return strings.Join(strings.Fields(b.String()), " ")
}

// stripDiacritics decomposes to NFD and removes combining marks, so that
// "Catégorie" and "Categorie" clean to the same key.
func stripDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, word := range words {
		// Uppercase the first rune, not the first byte, so multibyte
		// initials survive.
		r, size := utf8.DecodeRuneInString(word)
		words[i] = string(unicode.ToUpper(r)) + word[size:]
	}
	return strings.Join(words, " ")
}
