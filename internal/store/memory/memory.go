// Package memory provides an in-memory document store, used by tests and as
// a fallback for running the service without a database.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"

	"github.com/mbellec/retail-backoffice/internal/store"
)

// Store keeps every collection in process memory, preserving insertion
// order. Safe for concurrent use.
type Store struct {
	mu          sync.RWMutex
	collections map[string]*collection
}

type collection struct {
	order []string
	byID  map[string]store.Document
}

// New returns an empty store.
func New() *Store {
	return &Store{collections: make(map[string]*collection)}
}

func (s *Store) coll(name string) *collection {
	c, ok := s.collections[name]
	if !ok {
		c = &collection{byID: make(map[string]store.Document)}
		s.collections[name] = c
	}
	return c
}

func (s *Store) FetchAll(_ context.Context, name string) ([]store.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.collections[name]
	if !ok {
		return nil, nil
	}

	out := make([]store.Document, 0, len(c.order))
	for _, id := range c.order {
		doc := c.byID[id]
		out = append(out, store.Document{ID: doc.ID, Data: slices.Clone(doc.Data)})
	}
	return out, nil
}

func (s *Store) CreateOne(_ context.Context, name string, doc store.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.coll(name).insert(doc)
}

func (s *Store) CreateBatch(_ context.Context, name string, docs []store.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.coll(name)
	for _, doc := range docs {
		if err := c.insert(doc); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) UpdateOne(_ context.Context, name string, update store.Update) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.coll(name).merge(update)
}

func (s *Store) UpdateBatch(_ context.Context, name string, updates []store.Update) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.coll(name)
	for _, update := range updates {
		if err := c.merge(update); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) DeleteBatch(_ context.Context, name string, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.coll(name)
	for _, id := range ids {
		if _, ok := c.byID[id]; !ok {
			continue
		}
		delete(c.byID, id)
		if idx := slices.Index(c.order, id); idx >= 0 {
			c.order = slices.Delete(c.order, idx, idx+1)
		}
	}
	return nil
}

func (c *collection) insert(doc store.Document) error {
	if _, exists := c.byID[doc.ID]; exists {
		return fmt.Errorf("document %s already exists", doc.ID)
	}
	c.byID[doc.ID] = store.Document{ID: doc.ID, Data: slices.Clone(doc.Data)}
	c.order = append(c.order, doc.ID)
	return nil
}

func (c *collection) merge(update store.Update) error {
	doc, ok := c.byID[update.ID]
	if !ok {
		return fmt.Errorf("merge %s: %w", update.ID, store.ErrNotFound)
	}

	payload := make(map[string]any)
	if len(doc.Data) > 0 {
		if err := json.Unmarshal(doc.Data, &payload); err != nil {
			return fmt.Errorf("corrupt document %s: %w", update.ID, err)
		}
	}
	for k, v := range update.Fields {
		payload[k] = v
	}

	merged, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("merge %s: %w", update.ID, err)
	}

	doc.Data = merged
	c.byID[update.ID] = doc
	return nil
}
