package parser

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestParseCSV(t *testing.T) {
	t.Run("semicolon delimited", func(t *testing.T) {
		data := []byte("Produit;Montant;Date\nPain;3,00;15/03/2024\nLait;1,20;15/03/2024\n")

		table, err := ParseCSV(data)
		require.NoError(t, err)

		assert.Equal(t, []string{"Produit", "Montant", "Date"}, table.Headers)
		require.Len(t, table.Rows, 2)
		assert.Equal(t, []string{"Pain", "3,00", "15/03/2024"}, table.Rows[0])
	})

	t.Run("comma delimited", func(t *testing.T) {
		data := []byte("Product,Amount\nBread,\"3.00\"\n")

		table, err := ParseCSV(data)
		require.NoError(t, err)
		assert.Equal(t, []string{"Product", "Amount"}, table.Headers)
		assert.Equal(t, []string{"Bread", "3.00"}, table.Rows[0])
	})

	t.Run("tab delimited", func(t *testing.T) {
		data := []byte("Produit\tMontant\nPain\t3,00\n")

		table, err := ParseCSV(data)
		require.NoError(t, err)
		assert.Equal(t, []string{"Produit", "Montant"}, table.Headers)
	})

	t.Run("utf8 bom is stripped", func(t *testing.T) {
		data := append([]byte{0xEF, 0xBB, 0xBF}, []byte("Produit;Montant\nPain;3,00\n")...)

		table, err := ParseCSV(data)
		require.NoError(t, err)
		assert.Equal(t, "Produit", table.Headers[0])
	})

	t.Run("latin1 fallback", func(t *testing.T) {
		// "Catégorie" encoded in ISO-8859-1: é is the single byte 0xE9.
		data := []byte("Cat\xe9gorie;Produit\nBoulangerie;Pain\n")

		table, err := ParseCSV(data)
		require.NoError(t, err)
		assert.Equal(t, "Catégorie", table.Headers[0])
	})

	t.Run("blank lines are skipped", func(t *testing.T) {
		data := []byte("Produit;Montant\n\nPain;3,00\n;\n")

		table, err := ParseCSV(data)
		require.NoError(t, err)
		assert.Len(t, table.Rows, 1)
	})

	t.Run("ragged rows survive", func(t *testing.T) {
		data := []byte("Produit;Montant;Date\nPain;3,00\n")

		table, err := ParseCSV(data)
		require.NoError(t, err)
		require.Len(t, table.Rows, 1)
		assert.Equal(t, "", table.Cell(table.Rows[0], 2))
	})

	t.Run("empty file", func(t *testing.T) {
		_, err := ParseCSV([]byte("  \n "))
		assert.ErrorIs(t, err, ErrEmptyFile)
	})

	t.Run("single column has no delimiter", func(t *testing.T) {
		_, err := ParseCSV([]byte("Produit\nPain\n"))
		assert.ErrorIs(t, err, ErrInvalidDelimiter)
	})
}

func TestParseXLSX(t *testing.T) {
	buildWorkbook := func(t *testing.T, sheet string, rows [][]any) []byte {
		t.Helper()
		f := excelize.NewFile()
		require.NoError(t, f.SetSheetName("Sheet1", sheet))
		for i, row := range rows {
			cell, err := excelize.CoordinatesToCellName(1, i+1)
			require.NoError(t, err)
			require.NoError(t, f.SetSheetRow(sheet, cell, &row))
		}
		var buf bytes.Buffer
		require.NoError(t, f.Write(&buf))
		return buf.Bytes()
	}

	t.Run("reads header and rows", func(t *testing.T) {
		data := buildWorkbook(t, "Ventes", [][]any{
			{"Produit", "Montant", "Date"},
			{"Pain", "3,00", "15/03/2024"},
		})

		table, err := ParseXLSX(data)
		require.NoError(t, err)
		assert.Equal(t, []string{"Produit", "Montant", "Date"}, table.Headers)
		require.Len(t, table.Rows, 1)
		assert.Equal(t, "Pain", table.Rows[0][0])
	})

	t.Run("empty workbook", func(t *testing.T) {
		data := buildWorkbook(t, "Feuil1", nil)

		_, err := ParseXLSX(data)
		assert.ErrorIs(t, err, ErrNoHeaderRow)
	})
}

func TestParseDispatch(t *testing.T) {
	csvData := []byte("Produit;Montant\nPain;3,00\n")

	t.Run("csv extension", func(t *testing.T) {
		table, err := Parse("ventes_mars.CSV", csvData)
		require.NoError(t, err)
		assert.Len(t, table.Rows, 1)
	})

	t.Run("unknown extension", func(t *testing.T) {
		_, err := Parse("ventes.pdf", csvData)
		assert.ErrorIs(t, err, ErrUnsupportedFile)
	})
}
