package sales

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/gocarina/gocsv"
)

// exportRow fixes the CSV export column order. Amount is the derived unit
// price; Total is the transaction value.
type exportRow struct {
	Product  string     `csv:"Product"`
	Category string     `csv:"Category"`
	Register string     `csv:"Register"`
	Date     exportDate `csv:"Date"`
	Seller   string     `csv:"Seller"`
	Quantity float64    `csv:"Quantity"`
	Amount   string     `csv:"Amount"`
	Total    string     `csv:"Total"`
}

// exportDate renders dates as day/month/year, matching the dashboard locale.
type exportDate struct {
	year, month, day int
}

func (d exportDate) MarshalCSV() (string, error) {
	return fmt.Sprintf("%02d/%02d/%04d", d.day, d.month, d.year), nil
}

// quotedWriter emits CSV rows with every text field double-quoted, which
// encoding/csv cannot be told to do. Numeric fields stay bare so spreadsheet
// tools keep treating them as numbers.
type quotedWriter struct {
	w   io.Writer
	err error
}

func (q *quotedWriter) Write(row []string) error {
	if q.err != nil {
		return q.err
	}
	parts := make([]string, len(row))
	for i, field := range row {
		parts[i] = quoteField(field)
	}
	_, q.err = io.WriteString(q.w, strings.Join(parts, ",")+"\n")
	return q.err
}

func (q *quotedWriter) Flush() {}

func (q *quotedWriter) Error() error { return q.err }

func quoteField(field string) string {
	if _, err := strconv.ParseFloat(field, 64); err == nil {
		return field
	}
	return `"` + strings.ReplaceAll(field, `"`, `""`) + `"`
}

// ExportCSV writes the sales as a CSV document with the fixed column order
// Product, Category, Register, Date, Seller, Quantity, Amount, Total. Text
// fields are always quoted.
func ExportCSV(w io.Writer, list []Sale) error {
	rows := make([]exportRow, 0, len(list))
	for _, s := range list {
		rows = append(rows, exportRow{
			Product:  s.Product,
			Category: s.Category,
			Register: s.Register,
			Date:     exportDate{year: s.Date.Year(), month: int(s.Date.Month()), day: s.Date.Day()},
			Seller:   s.Seller,
			Quantity: s.Quantity,
			Amount:   s.Price.StringFixed(2),
			Total:    s.Total.StringFixed(2),
		})
	}

	if err := gocsv.MarshalCSV(&rows, &quotedWriter{w: w}); err != nil {
		return fmt.Errorf("failed to write sales CSV: %w", err)
	}
	return nil
}
