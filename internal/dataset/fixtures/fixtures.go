// Package fixtures generates realistic catalog and sales data for seeding
// development environments.
package fixtures

import (
	"fmt"
	"sort"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/shopspring/decimal"

	"github.com/mbellec/retail-backoffice/internal/domain/catalog"
	"github.com/mbellec/retail-backoffice/internal/domain/sales"
	"github.com/mbellec/retail-backoffice/pkg/money"
)

// Generator produces plausible French retail data using gofakeit.
type Generator struct {
	faker *gofakeit.Faker
}

// NewGenerator creates a generator with a specific seed for reproducibility.
// Seed 0 gives a random sequence.
func NewGenerator(seed int64) *Generator {
	return &Generator{faker: gofakeit.New(seed)}
}

// categoryShelves maps each store category to typical product name stems.
var categoryShelves = map[string][]string{
	"Boulangerie": {"Pain", "Baguette", "Croissant", "Pain au chocolat", "Brioche"},
	"Cremerie":    {"Lait", "Beurre", "Yaourt nature", "Creme fraiche", "Fromage rape"},
	"Confiseries": {"Smarties 100S", "Dragibus", "Carambar", "Tablette chocolat", "Chewing-gum"},
	"Boissons":    {"Eau minerale", "Jus d'orange", "Limonade", "Sirop de menthe", "Cafe moulu"},
	"Epicerie":    {"Pates", "Riz", "Huile d'olive", "Farine", "Sucre en poudre"},
}

var sellers = []string{"Marie", "Luc", "Sophie", "Karim", "Nathalie"}

// Products generates n catalog entries spread over the store categories.
func (g *Generator) Products(n int) []catalog.Product {
	products := make([]catalog.Product, 0, n)
	categories := make([]string, 0, len(categoryShelves))
	for c := range categoryShelves {
		categories = append(categories, c)
	}
	// Map iteration order would break seeded reproducibility.
	sort.Strings(categories)

	for i := 0; i < n; i++ {
		category := categories[i%len(categories)]
		stems := categoryShelves[category]
		name := stems[g.faker.IntRange(0, len(stems)-1)]
		if i >= len(categories)*len(stems) {
			name = fmt.Sprintf("%s %s", name, g.faker.LetterN(3))
		}

		initial := float64(g.faker.IntRange(20, 200))
		products = append(products, catalog.Product{
			Name:         name,
			Category:     category,
			Description:  g.faker.ProductDescription(),
			Price:        decimal.NewFromFloat(g.faker.Float64Range(0.5, 25)).Round(2),
			InitialStock: initial,
			Stock:        initial,
			MinStock:     float64(g.faker.IntRange(3, 15)),
		})
	}
	return products
}

// Sales generates n sale records against the given products, spread over the
// past days. Roughly one record in forty is a refund.
func (g *Generator) Sales(products []catalog.Product, n, days int) []sales.Sale {
	if len(products) == 0 || n <= 0 {
		return nil
	}
	// Anchor to midnight so a seeded run does not depend on the wall clock
	// within the day.
	now := time.Now().Truncate(24 * time.Hour)
	records := make([]sales.Sale, 0, n)
	for i := 0; i < n; i++ {
		p := products[g.faker.IntRange(0, len(products)-1)]
		qty := float64(g.faker.IntRange(1, 5))

		total := money.Round2(p.Price.Mul(decimal.NewFromFloat(qty)))
		if g.faker.IntRange(1, 40) == 1 {
			total = total.Neg()
		}

		register := sales.Register1
		if g.faker.Bool() {
			register = sales.Register2
		}

		records = append(records, sales.Sale{
			Product:  p.Name,
			Category: p.Category,
			Register: register,
			Date:     g.faker.DateRange(now.AddDate(0, 0, -days), now).Truncate(24 * time.Hour),
			Seller:   sellers[g.faker.IntRange(0, len(sellers)-1)],
			Quantity: qty,
			Total:    total,
			Price:    money.UnitPrice(total, qty),
		})
	}
	return records
}
