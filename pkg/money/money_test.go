package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
		ok       bool
	}{
		{"plain dot decimal", "12.50", "12.5", true},
		{"french decimal comma", "12,50", "12.5", true},
		{"comma with euro glyph", "12,50 €", "12.5", true},
		{"negative with glyph", "-3,20€", "-3.2", true},
		{"minus separated by space", "- 8,00", "-8", true},
		{"unicode minus", "−4,10", "-4.1", true},
		{"thin space grouping", "1 234,56", "1234.56", true},
		{"plain integer", "3", "3", true},
		{"zero", "0", "0", true},
		{"eur code", "15,00 EUR", "15", true},
		{"empty", "", "", false},
		{"letters", "abc", "", false},
		{"lone glyph", "€", "", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ParseAmount(tc.input)
			assert.Equal(t, tc.ok, ok)
			if tc.ok {
				expected, err := decimal.NewFromString(tc.expected)
				require.NoError(t, err)
				assert.True(t, expected.Equal(got), "expected %s, got %s", expected, got)
			}
		})
	}
}

// The comma and dot encodings of the same value must parse identically.
func TestParseAmount_CommaDotEquivalence(t *testing.T) {
	pairs := [][2]string{
		{"12,50 €", "12.50"},
		{"-3,20€", "-3.20"},
		{"0,99", "0.99"},
		{"-1 000,01", "-1000.01"},
	}

	for _, pair := range pairs {
		comma, ok := ParseAmount(pair[0])
		require.True(t, ok, pair[0])
		dot, ok := ParseAmount(pair[1])
		require.True(t, ok, pair[1])
		assert.True(t, comma.Equal(dot), "%s != %s", pair[0], pair[1])
	}
}

func TestUnitPrice(t *testing.T) {
	total, _ := ParseAmount("3,00")
	price := UnitPrice(total, 2)
	assert.Equal(t, "1.5", price.String())

	// Rounds to two decimals.
	total, _ = ParseAmount("10,00")
	price = UnitPrice(total, 3)
	assert.Equal(t, "3.33", price.String())

	// Negative totals keep their sign on the unit price.
	total, _ = ParseAmount("-9,00")
	price = UnitPrice(total, 2)
	assert.Equal(t, "-4.5", price.String())

	assert.True(t, UnitPrice(total, 0).IsZero())
}

func TestFormatEUR(t *testing.T) {
	d, _ := ParseAmount("1234,56")
	assert.Contains(t, FormatEUR(d), "1,234.56")
}

func BenchmarkParseAmount(b *testing.B) {
	inputs := []string{"12,50 €", "1 234,56", "-3,20€", "12.50", "45000"}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ParseAmount(inputs[i%len(inputs)])
	}
}
