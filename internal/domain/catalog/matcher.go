package catalog

import (
	"sort"
	"strings"
	"unicode"

	"github.com/cloudflare/ahocorasick"
	"github.com/lithammer/fuzzysearch/fuzzy"
)

// tokenOverlapThreshold is the fraction of a sale's name tokens that must
// find a counterpart in a product's name for a tier-3 match.
const tokenOverlapThreshold = 0.7

// Matcher resolves a sale's free-text (product, category) pair to a catalog
// product. Matching runs in three tiers, first hit wins:
//
//  1. normalized name equality
//  2. substring containment in either direction
//  3. token overlap of at least 70%
//
// Category equality is mandatory at every tier; a sale never matches a
// product from another category, however close the names are.
type Matcher struct {
	products  []Product
	normNames []string
	normCats  []string

	// exact lookup on "name|category"
	byExact map[string]int

	// Aho-Corasick over all normalized product names, for the
	// "product name contained in sale name" direction of tier 2.
	aho *ahocorasick.Matcher
}

// NewMatcher builds a matcher over the given catalog. Product order is
// preserved: when several products tie at the same tier, the first one in
// catalog order wins, keeping results deterministic.
func NewMatcher(products []Product) *Matcher {
	m := &Matcher{
		products:  products,
		normNames: make([]string, len(products)),
		normCats:  make([]string, len(products)),
		byExact:   make(map[string]int, len(products)),
	}

	for i, p := range products {
		m.normNames[i] = NormalizeName(p.Name)
		m.normCats[i] = normalizeCategory(p.Category)

		key := m.normNames[i] + "|" + m.normCats[i]
		if _, exists := m.byExact[key]; !exists {
			m.byExact[key] = i
		}
	}

	if len(m.normNames) > 0 {
		m.aho = ahocorasick.NewStringMatcher(m.normNames)
	}

	return m
}

// Match returns the best catalog product for a sale's product name and
// category, or false when nothing matches. No match is not an error: the
// caller records the sale as unreconciled.
func (m *Matcher) Match(product, category string) (Product, bool) {
	name := NormalizeName(product)
	cat := normalizeCategory(category)
	if name == "" {
		return Product{}, false
	}

	// Tier 1: exact normalized name within the same category.
	if idx, ok := m.byExact[name+"|"+cat]; ok {
		return m.products[idx], true
	}

	// Tier 2a: a product name contained in the sale name. The Aho-Corasick
	// pass finds every candidate in one scan; the lowest catalog index in
	// the right category wins.
	if m.aho != nil {
		best := -1
		for _, hit := range m.aho.Match([]byte(name)) {
			if m.normCats[hit] != cat {
				continue
			}
			if best == -1 || hit < best {
				best = hit
			}
		}
		if best >= 0 {
			return m.products[best], true
		}
	}

	// Tier 2b: the sale name contained in a product name.
	for i := range m.products {
		if m.normCats[i] != cat {
			continue
		}
		if strings.Contains(m.normNames[i], name) {
			return m.products[i], true
		}
	}

	// Tier 3: token overlap.
	saleTokens := matchTokens(name)
	if len(saleTokens) == 0 {
		return Product{}, false
	}

	for i := range m.products {
		if m.normCats[i] != cat {
			continue
		}
		if tokenOverlap(saleTokens, matchTokens(m.normNames[i])) >= tokenOverlapThreshold {
			return m.products[i], true
		}
	}

	return Product{}, false
}

// Candidate is a ranked suggestion for an unmatched sale name, used for
// data-quality triage.
type Candidate struct {
	Product Product
	Rank    int // edit distance; lower is closer
}

// Closest returns up to limit products ranked by name similarity, ignoring
// category. It backs the "did you mean" triage view for unreconciled sales.
func (m *Matcher) Closest(product string, limit int) []Candidate {
	name := NormalizeName(product)
	if name == "" {
		return nil
	}

	ranks := fuzzy.RankFindNormalizedFold(name, m.normNames)
	sort.Sort(ranks)

	out := make([]Candidate, 0, limit)
	for _, r := range ranks {
		if limit > 0 && len(out) >= limit {
			break
		}
		out = append(out, Candidate{Product: m.products[r.OriginalIndex], Rank: r.Distance})
	}
	return out
}

// NormalizeName folds a product name for comparison: lowercase, punctuation
// replaced by spaces, whitespace collapsed, trailing pack-size tokens such
// as "100s", "20" or "25" removed.
func NormalizeName(raw string) string {
	lower := strings.ToLower(strings.TrimSpace(raw))

	var b strings.Builder
	for _, r := range lower {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}

	tokens := strings.Fields(b.String())

	// Drop trailing pack-size tokens ("smarties 100s" == "smarties").
	for len(tokens) > 1 && isPackSize(tokens[len(tokens)-1]) {
		tokens = tokens[:len(tokens)-1]
	}

	return strings.Join(tokens, " ")
}

func isPackSize(token string) bool {
	trimmed := strings.TrimSuffix(token, "s")
	if trimmed == "" {
		return false
	}
	for _, r := range trimmed {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

func normalizeCategory(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// matchTokens returns the words of a normalized name longer than two runes;
// short particles carry no signal for overlap matching.
func matchTokens(normalized string) []string {
	fields := strings.Fields(normalized)
	out := fields[:0]
	for _, f := range fields {
		if len([]rune(f)) > 2 {
			out = append(out, f)
		}
	}
	return out
}

// tokenOverlap computes the fraction of sale tokens with a counterpart
// product token that contains them or is contained by them.
func tokenOverlap(saleTokens, productTokens []string) float64 {
	if len(saleTokens) == 0 || len(productTokens) == 0 {
		return 0
	}

	matched := 0
	for _, st := range saleTokens {
		for _, pt := range productTokens {
			if strings.Contains(pt, st) || strings.Contains(st, pt) {
				matched++
				break
			}
		}
	}

	return float64(matched) / float64(len(saleTokens))
}
