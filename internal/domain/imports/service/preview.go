package service

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mbellec/retail-backoffice/internal/domain/catalog"
	"github.com/mbellec/retail-backoffice/internal/domain/imports/normalizer"
	"github.com/mbellec/retail-backoffice/internal/domain/imports/parser"
	"github.com/mbellec/retail-backoffice/internal/domain/sales"
)

// StructuralError blocks an entire import before any row is processed: an
// empty file or required columns that no header resolves to. Mapping carries
// how every raw header was interpreted so the user can see what went wrong.
type StructuralError struct {
	Reason  string
	Missing []string
	Mapping normalizer.HeaderMapping
}

func (e *StructuralError) Error() string {
	if len(e.Missing) == 0 {
		return e.Reason
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s: missing %s", e.Reason, strings.Join(e.Missing, ", "))
	if len(e.Mapping.ByRaw) > 0 {
		b.WriteString(" (")
		for i, raw := range sortedKeys(e.Mapping.ByRaw) {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%q -> %s", raw, e.Mapping.ByRaw[raw])
		}
		b.WriteString(")")
	}
	return b.String()
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ImportPreview is the dry-run result of a sales import: everything the user
// needs to confirm or fix the batch, computed without side effects.
type ImportPreview struct {
	Valid      []sales.Sale       `json:"valid"`
	Duplicates []sales.Sale       `json:"duplicates"`
	Errors     []FieldError       `json:"errors"`
	Warnings   []FieldError       `json:"warnings"`
	Totals     sales.RollupTotals `json:"totals"`
	Mapping    map[string]string  `json:"headerMapping"`
}

// BuildPreview validates a parsed sales spreadsheet end to end. Row failures
// never abort the batch; only structural problems do. Duplicate rows, keyed
// on the full composite of their fields, are reported separately rather than
// silently dropped. Given the same table the preview is identical on every
// run.
func BuildPreview(table *parser.RawTable, defaultRegister string) (*ImportPreview, error) {
	if table == nil || len(table.Rows) == 0 {
		return nil, &StructuralError{Reason: "import contains no data rows"}
	}

	mapping := normalizer.MapHeaders(table.Headers)
	if missing := mapping.Missing(normalizer.RequiredSalesFields); len(missing) > 0 {
		return nil, &StructuralError{
			Reason:  "required columns not found",
			Missing: missing,
			Mapping: mapping,
		}
	}

	reader := newRowReader(table.Headers, mapping)
	preview := &ImportPreview{Mapping: mapping.ByRaw}
	seen := make(map[string]struct{}, len(table.Rows))

	for i, row := range table.Rows {
		// +2: spreadsheet rows are 1-based and the header occupies row 1.
		rowNum := i + 2

		sale, errs, warnings := validateSaleRow(reader, row, rowNum, defaultRegister)
		preview.Warnings = append(preview.Warnings, warnings...)
		if len(errs) > 0 {
			preview.Errors = append(preview.Errors, errs...)
			continue
		}

		key := sale.CompositeKey()
		if _, dup := seen[key]; dup {
			preview.Duplicates = append(preview.Duplicates, sale)
			continue
		}
		seen[key] = struct{}{}
		preview.Valid = append(preview.Valid, sale)
	}

	preview.Totals = sales.ComputeRollups(preview.Valid)
	return preview, nil
}

// StockPreview is the dry-run result of a stock import.
type StockPreview struct {
	Products   []catalog.Product `json:"products"`
	Duplicates []catalog.Product `json:"duplicates"`
	Errors     []FieldError      `json:"errors"`
	Mapping    map[string]string `json:"headerMapping"`
}

// BuildStockPreview validates a stock spreadsheet. The reduced schema needs
// only product, category, date and quantity; the rest of the product record
// is defaulted: price stays zero pending manual entry, the imported quantity
// becomes both the initial and the current stock, and the low-stock threshold
// defaults to a tenth of it, rounded up.
func BuildStockPreview(table *parser.RawTable) (*StockPreview, error) {
	if table == nil || len(table.Rows) == 0 {
		return nil, &StructuralError{Reason: "import contains no data rows"}
	}

	mapping := normalizer.MapHeaders(table.Headers)
	if missing := mapping.Missing(normalizer.RequiredStockFields); len(missing) > 0 {
		return nil, &StructuralError{
			Reason:  "required columns not found",
			Missing: missing,
			Mapping: mapping,
		}
	}

	reader := newRowReader(table.Headers, mapping)
	preview := &StockPreview{Mapping: mapping.ByRaw}
	seen := make(map[string]struct{}, len(table.Rows))

	for i, row := range table.Rows {
		rowNum := i + 2

		parsed, errs := validateStockRow(reader, row, rowNum)
		if len(errs) > 0 {
			preview.Errors = append(preview.Errors, errs...)
			continue
		}

		product := catalog.Product{
			Name:         parsed.Product,
			Category:     parsed.Category,
			Price:        decimal.Zero,
			InitialStock: parsed.Quantity,
			Stock:        parsed.Quantity,
			MinStock:     math.Ceil(parsed.Quantity * 0.1),
		}

		key := strings.ToLower(parsed.Product) + "|" + strings.ToLower(parsed.Category)
		if _, dup := seen[key]; dup {
			preview.Duplicates = append(preview.Duplicates, product)
			continue
		}
		seen[key] = struct{}{}
		preview.Products = append(preview.Products, product)
	}

	return preview, nil
}
