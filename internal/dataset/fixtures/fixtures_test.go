package fixtures

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeededGenerationIsReproducible(t *testing.T) {
	first := NewGenerator(42).Products(12)
	second := NewGenerator(42).Products(12)
	assert.Equal(t, first, second)

	firstSales := NewGenerator(42)
	secondSales := NewGenerator(42)
	assert.Equal(t,
		firstSales.Sales(first, 50, 30),
		secondSales.Sales(second, 50, 30))
}

func TestProductsCoverAllCategories(t *testing.T) {
	products := NewGenerator(1).Products(10)
	require.Len(t, products, 10)

	seen := map[string]bool{}
	for _, p := range products {
		seen[p.Category] = true
		assert.NotEmpty(t, p.Name)
		assert.True(t, p.Price.IsPositive())
		assert.Equal(t, p.InitialStock, p.Stock)
	}
	assert.Len(t, seen, len(categoryShelves))
}

func TestSalesReferenceCatalog(t *testing.T) {
	g := NewGenerator(7)
	products := g.Products(8)
	records := g.Sales(products, 100, 30)
	require.Len(t, records, 100)

	byName := map[string]string{}
	for _, p := range products {
		byName[p.Name] = p.Category
	}
	for _, s := range records {
		assert.Equal(t, byName[s.Product], s.Category)
		assert.Positive(t, s.Quantity)
	}
}
