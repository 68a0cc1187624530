package catalog

import (
	"fmt"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/simple"
	"github.com/blevesearch/bleve/v2/mapping"
)

// searchDocument is the indexed shape of a product.
type searchDocument struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Category    string  `json:"category"`
	Description string  `json:"description"`
	Stock       float64 `json:"stock"`
}

// SearchHit is one product search result with its relevance score.
type SearchHit struct {
	ProductID string
	Name      string
	Category  string
	Score     float64
}

// SearchIndex provides full-text product search for the dashboard search box,
// backed by an in-memory Bleve index. Rebuild it whenever the catalog reloads.
type SearchIndex struct {
	index bleve.Index
	mu    sync.RWMutex
}

// NewSearchIndex creates an empty in-memory index.
func NewSearchIndex() (*SearchIndex, error) {
	index, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create search index: %w", err)
	}
	return &SearchIndex{index: index}, nil
}

func buildIndexMapping() mapping.IndexMapping {
	textFieldMapping := bleve.NewTextFieldMapping()
	textFieldMapping.Analyzer = simple.Name

	keywordFieldMapping := bleve.NewTextFieldMapping()
	keywordFieldMapping.Analyzer = keyword.Name

	docMapping := bleve.NewDocumentMapping()
	docMapping.AddFieldMappingsAt("name", textFieldMapping)
	docMapping.AddFieldMappingsAt("category", keywordFieldMapping)
	docMapping.AddFieldMappingsAt("description", textFieldMapping)
	docMapping.AddFieldMappingsAt("stock", bleve.NewNumericFieldMapping())

	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultMapping = docMapping
	indexMapping.DefaultAnalyzer = simple.Name

	return indexMapping
}

// Rebuild replaces the index contents with the given catalog.
func (si *SearchIndex) Rebuild(products []Product) error {
	si.mu.Lock()
	defer si.mu.Unlock()

	// Drop the previous generation wholesale; the catalog is small enough
	// that a full rebuild is cheaper than diffing.
	fresh, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return fmt.Errorf("failed to rebuild search index: %w", err)
	}

	batch := fresh.NewBatch()
	for _, p := range products {
		doc := searchDocument{
			ID:          p.ID,
			Name:        p.Name,
			Category:    p.Category,
			Description: p.Description,
			Stock:       p.Stock,
		}
		if err := batch.Index(p.ID, doc); err != nil {
			return fmt.Errorf("failed to index product %s: %w", p.ID, err)
		}
	}

	if err := fresh.Batch(batch); err != nil {
		return fmt.Errorf("failed to execute index batch: %w", err)
	}

	old := si.index
	si.index = fresh
	if old != nil {
		_ = old.Close()
	}
	return nil
}

// Search runs a fuzzy full-text query over product names, categories and
// descriptions.
func (si *SearchIndex) Search(query string, limit int) ([]SearchHit, error) {
	si.mu.RLock()
	defer si.mu.RUnlock()

	if limit <= 0 {
		limit = 10
	}

	matchQuery := bleve.NewMatchQuery(query)
	matchQuery.SetFuzziness(1) // typo tolerance

	searchRequest := bleve.NewSearchRequest(matchQuery)
	searchRequest.Size = limit
	searchRequest.Fields = []string{"name", "category"}

	searchResults, err := si.index.Search(searchRequest)
	if err != nil {
		return nil, fmt.Errorf("product search failed: %w", err)
	}

	hits := make([]SearchHit, 0, len(searchResults.Hits))
	for _, hit := range searchResults.Hits {
		h := SearchHit{ProductID: hit.ID, Score: hit.Score}
		if name, ok := hit.Fields["name"].(string); ok {
			h.Name = name
		}
		if cat, ok := hit.Fields["category"].(string); ok {
			h.Category = cat
		}
		hits = append(hits, h)
	}
	return hits, nil
}
