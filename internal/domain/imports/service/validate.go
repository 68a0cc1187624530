package service

import (
	"fmt"
	"strings"

	"github.com/mbellec/retail-backoffice/internal/domain/imports/normalizer"
	"github.com/mbellec/retail-backoffice/internal/domain/sales"
	"github.com/mbellec/retail-backoffice/pkg/money"
)

// FieldError pins one invalid cell to its spreadsheet position. Row is the
// 1-based row number as the user sees it in their spreadsheet, header
// included.
type FieldError struct {
	Row     int    `json:"row"`
	Field   string `json:"field"`
	Value   string `json:"value"`
	Message string `json:"message"`
}

func (e FieldError) Error() string {
	return fmt.Sprintf("row %d, field %s: %s", e.Row, e.Field, e.Message)
}

// rowReader resolves canonical fields to cells of one positional row.
type rowReader struct {
	index map[string]int
}

func newRowReader(headers []string, mapping normalizer.HeaderMapping) rowReader {
	index := make(map[string]int, len(mapping.ByCanonical))
	for canonical, raw := range mapping.ByCanonical {
		for i, h := range headers {
			if h == raw {
				index[canonical] = i
				break
			}
		}
	}
	return rowReader{index: index}
}

func (r rowReader) cell(row []string, canonical string) string {
	idx, ok := r.index[canonical]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// validateSaleRow checks one raw row against the sales schema. It reports an
// error per invalid field rather than stopping at the first, so the user can
// fix a whole row in one pass. The returned sale is only meaningful when errs
// is empty. An ambiguous register value is not an error: it falls back to
// defaultRegister and comes back as a warning.
func validateSaleRow(reader rowReader, row []string, rowNum int, defaultRegister string) (sales.Sale, []FieldError, []FieldError) {
	var errs, warnings []FieldError
	fail := func(field, value, message string) {
		errs = append(errs, FieldError{Row: rowNum, Field: field, Value: value, Message: message})
	}

	sale := sales.Sale{}

	if sale.Product = reader.cell(row, normalizer.FieldProduct); sale.Product == "" {
		fail(normalizer.FieldProduct, "", "product name is required")
	}
	if sale.Category = reader.cell(row, normalizer.FieldCategory); sale.Category == "" {
		fail(normalizer.FieldCategory, "", "category is required")
	}
	if sale.Seller = reader.cell(row, normalizer.FieldSeller); sale.Seller == "" {
		fail(normalizer.FieldSeller, "", "seller is required")
	}

	rawRegister := reader.cell(row, normalizer.FieldRegister)
	if rawRegister == "" {
		fail(normalizer.FieldRegister, "", "register is required")
	} else {
		register, ambiguous := sales.NormalizeRegister(rawRegister, defaultRegister)
		sale.Register = register
		if ambiguous {
			warnings = append(warnings, FieldError{
				Row:     rowNum,
				Field:   normalizer.FieldRegister,
				Value:   rawRegister,
				Message: fmt.Sprintf("register %q is ambiguous, defaulted to %s", rawRegister, register),
			})
		}
	}

	rawDate := reader.cell(row, normalizer.FieldDate)
	if date, ok := normalizer.ParseDate(rawDate); ok {
		sale.Date = date
	} else {
		fail(normalizer.FieldDate, rawDate, "unrecognized date format")
	}

	rawQuantity := reader.cell(row, normalizer.FieldQuantity)
	if qty, ok := money.ParseAmount(rawQuantity); ok && qty.IsPositive() {
		sale.Quantity = qty.InexactFloat64()
	} else {
		fail(normalizer.FieldQuantity, rawQuantity, "quantity must be a strictly positive number")
	}

	rawAmount := reader.cell(row, normalizer.FieldAmount)
	total, totalOK := money.ParseAmount(rawAmount)
	if !totalOK {
		fail(normalizer.FieldAmount, rawAmount, "unparseable amount")
	}

	if len(errs) > 0 {
		return sales.Sale{}, errs, warnings
	}

	// The parsed amount is the transaction total; the unit price is always
	// derived from it, never read from the file.
	sale.Total = money.Round2(total)
	sale.Price = money.UnitPrice(sale.Total, sale.Quantity)
	return sale, nil, warnings
}

// stockRow is the validated form of one stock import line.
type stockRow struct {
	Product  string
	Category string
	Quantity float64
}

// validateStockRow checks one raw row against the reduced stock schema.
func validateStockRow(reader rowReader, row []string, rowNum int) (stockRow, []FieldError) {
	var errs []FieldError
	fail := func(field, value, message string) {
		errs = append(errs, FieldError{Row: rowNum, Field: field, Value: value, Message: message})
	}

	out := stockRow{}

	if out.Product = reader.cell(row, normalizer.FieldProduct); out.Product == "" {
		fail(normalizer.FieldProduct, "", "product name is required")
	}
	if out.Category = reader.cell(row, normalizer.FieldCategory); out.Category == "" {
		fail(normalizer.FieldCategory, "", "category is required")
	}

	rawDate := reader.cell(row, normalizer.FieldDate)
	if _, ok := normalizer.ParseDate(rawDate); !ok {
		fail(normalizer.FieldDate, rawDate, "unrecognized date format")
	}

	rawQuantity := reader.cell(row, normalizer.FieldQuantity)
	if qty, ok := money.ParseAmount(rawQuantity); ok && qty.IsPositive() {
		out.Quantity = qty.InexactFloat64()
	} else {
		fail(normalizer.FieldQuantity, rawQuantity, "quantity must be a strictly positive number")
	}

	if len(errs) > 0 {
		return stockRow{}, errs
	}
	return out, nil
}
