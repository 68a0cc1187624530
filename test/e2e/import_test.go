// Package e2etest runs the full import pipeline end to end: spreadsheet
// bytes through preview, commit and stock reconciliation over an in-memory
// store.
package e2etest

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/mbellec/retail-backoffice/internal/dataset"
	importsvc "github.com/mbellec/retail-backoffice/internal/domain/imports/service"
	"github.com/mbellec/retail-backoffice/internal/domain/sales"
	"github.com/mbellec/retail-backoffice/internal/store/memory"
	"github.com/mbellec/retail-backoffice/pkg/metrics"
)

func newPipeline(t *testing.T) (*importsvc.Service, *dataset.Service) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := metrics.NewUnregistered()
	ds := dataset.New(memory.New(), logger, m, nil, nil)
	require.NoError(t, ds.Load(context.Background()))
	return importsvc.New(ds, nil, logger, m, nil, sales.Register1), ds
}

const stockCSV = "Produit;Catégorie;Date;Quantité\n" +
	"Smarties 100S;Confiseries;01/03/2024;40\n" +
	"Pain;Boulangerie;01/03/2024;25\n" +
	"Lait;Cremerie;01/03/2024;60\n"

const salesCSV = "Produit;Catégorie;Caisse;Date;Vendeur;Quantité;Montant\n" +
	"Pain;Boulangerie;Caisse 1;15/03/2024;Marie;2;3,00\n" +
	"smarties 100s;CONFISERIES;Caisse 2;15/03/2024;Luc;5;7,50\n" +
	"Lait;Cremerie;caisse 2;16/03/2024;Marie;1;1,20\n"

func importStock(t *testing.T, svc *importsvc.Service) {
	t.Helper()
	ctx := context.Background()

	preview, err := svc.PreviewStock(ctx, "stock.csv", []byte(stockCSV))
	require.NoError(t, err)
	require.Len(t, preview.Products, 3)
	require.Empty(t, preview.Errors)

	result := svc.CommitStock(ctx, preview.Products)
	require.Equal(t, dataset.OutcomeApplied, result.Outcome)
}

func TestFrenchSalesImport(t *testing.T) {
	svc, _ := newPipeline(t)

	preview, err := svc.PreviewSales(context.Background(), "ventes.csv", []byte(salesCSV))
	require.NoError(t, err)
	require.Len(t, preview.Valid, 3)
	require.Empty(t, preview.Errors)
	require.Empty(t, preview.Duplicates)

	pain := preview.Valid[0]
	assert.Equal(t, sales.Register1, pain.Register)
	assert.Equal(t, "2024-03-15", pain.Date.Format("2006-01-02"))
	assert.Equal(t, "3.00", pain.Total.StringFixed(2))
	assert.Equal(t, "1.50", pain.Price.StringFixed(2))

	assert.Equal(t, sales.Register2, preview.Valid[1].Register)
	assert.Equal(t, sales.Register2, preview.Valid[2].Register)
}

func TestImportThenReconcileStock(t *testing.T) {
	svc, ds := newPipeline(t)
	ctx := context.Background()

	importStock(t, svc)

	preview, err := svc.PreviewSales(ctx, "ventes.csv", []byte(salesCSV))
	require.NoError(t, err)
	require.Len(t, preview.Valid, 3)

	result := svc.CommitSales(ctx, preview.Valid)
	require.Equal(t, dataset.OutcomeApplied, result.Outcome)
	require.Equal(t, 3, result.Written)

	byName := map[string]float64{}
	sold := map[string]float64{}
	for _, p := range ds.Products() {
		byName[p.Name] = p.Stock
		sold[p.Name] = p.QuantitySold
	}

	// The sale row spells the product "smarties 100s" under "CONFISERIES";
	// matching is case and accent insensitive.
	assert.Equal(t, float64(5), sold["Smarties 100S"])
	assert.Equal(t, float64(35), byName["Smarties 100S"])
	assert.Equal(t, float64(23), byName["Pain"])
	assert.Equal(t, float64(59), byName["Lait"])
}

func TestReimportIsFullyDeduplicated(t *testing.T) {
	svc, ds := newPipeline(t)
	ctx := context.Background()

	first, err := svc.PreviewSales(ctx, "ventes.csv", []byte(salesCSV))
	require.NoError(t, err)
	result := svc.CommitSales(ctx, first.Valid)
	require.Equal(t, dataset.OutcomeApplied, result.Outcome)

	// The preview deduplicates within the file. Committed records carry ids,
	// so a second commit of the same preview would duplicate; the operator
	// guards against that by comparing composite keys.
	second, err := svc.PreviewSales(ctx, "ventes.csv", []byte(salesCSV))
	require.NoError(t, err)
	require.Len(t, second.Valid, 3)

	existing := map[string]bool{}
	for _, s := range ds.Sales() {
		existing[s.CompositeKey()] = true
	}

	fresh := second.Valid[:0:0]
	for _, s := range second.Valid {
		if !existing[s.CompositeKey()] {
			fresh = append(fresh, s)
		}
	}
	assert.Empty(t, fresh)
}

func TestXLSXImport(t *testing.T) {
	svc, _ := newPipeline(t)

	f := excelize.NewFile()
	sheet := "Ventes"
	_, err := f.NewSheet(sheet)
	require.NoError(t, err)
	require.NoError(t, f.SetSheetRow(sheet, "A1",
		&[]any{"Produit", "Catégorie", "Caisse", "Date", "Vendeur", "Quantité", "Montant"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2",
		&[]any{"Pain", "Boulangerie", "Caisse 1", "15/03/2024", "Marie", 2, "3,00"}))

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))

	preview, err := svc.PreviewSales(context.Background(), "ventes.xlsx", buf.Bytes())
	require.NoError(t, err)
	require.Len(t, preview.Valid, 1)
	assert.Equal(t, "1.50", preview.Valid[0].Price.StringFixed(2))
}

func TestDeleteSalesRestoresStock(t *testing.T) {
	svc, ds := newPipeline(t)
	ctx := context.Background()

	importStock(t, svc)

	preview, err := svc.PreviewSales(ctx, "ventes.csv", []byte(salesCSV))
	require.NoError(t, err)
	require.Equal(t, dataset.OutcomeApplied, svc.CommitSales(ctx, preview.Valid).Outcome)

	var ids []string
	for _, s := range ds.Sales() {
		ids = append(ids, s.ID)
	}
	require.Equal(t, dataset.OutcomeApplied, ds.DeleteSales(ctx, ids).Outcome)

	for _, p := range ds.Products() {
		assert.Equal(t, p.InitialStock, p.Stock, p.Name)
		assert.Zero(t, p.QuantitySold, p.Name)
	}
}
