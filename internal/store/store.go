// Package store defines the persistence collaborator for the dataset layer:
// named collections of JSON documents with batch-oriented writes. Concrete
// backends live in the postgres and memory subpackages; this package adds the
// chunking and retry wrappers every backend is used through.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/sethvargo/go-retry"
)

// Collection names used by the service.
const (
	CollectionSales    = "sales"
	CollectionProducts = "products"
)

// ErrNotFound reports an update against a document id that does not exist.
var ErrNotFound = errors.New("document not found")

// Document is one record of a collection: an opaque JSON payload under a
// caller-assigned id.
type Document struct {
	ID   string
	Data json.RawMessage
}

// Update is a partial document update: the named fields are merged into the
// existing payload, everything else is left untouched.
type Update struct {
	ID     string
	Fields map[string]any
}

// Store is the persistence collaborator. Batch operations are atomic per
// call at this level; the ChunkedStore wrapper above it splits oversized
// batches into sequential, individually-atomic chunks.
type Store interface {
	FetchAll(ctx context.Context, collection string) ([]Document, error)
	CreateOne(ctx context.Context, collection string, doc Document) error
	CreateBatch(ctx context.Context, collection string, docs []Document) error
	UpdateOne(ctx context.Context, collection string, update Update) error
	UpdateBatch(ctx context.Context, collection string, updates []Update) error
	DeleteBatch(ctx context.Context, collection string, ids []string) error
}

// DefaultChunkSize bounds one backend write. Remote document APIs cap batch
// sizes well below typical import volumes, so large writes always go through
// chunking.
const DefaultChunkSize = 200

// ChunkedStore splits batch writes into fixed-size chunks executed
// sequentially. A chunk failure stops the sequence; earlier chunks stay
// written, which the caller surfaces as a degraded outcome rather than
// rolling back.
type ChunkedStore struct {
	inner Store
	size  int
}

// NewChunkedStore wraps inner with chunked batch writes.
func NewChunkedStore(inner Store, size int) *ChunkedStore {
	if size <= 0 {
		size = DefaultChunkSize
	}
	return &ChunkedStore{inner: inner, size: size}
}

func (s *ChunkedStore) FetchAll(ctx context.Context, collection string) ([]Document, error) {
	return s.inner.FetchAll(ctx, collection)
}

func (s *ChunkedStore) CreateOne(ctx context.Context, collection string, doc Document) error {
	return s.inner.CreateOne(ctx, collection, doc)
}

func (s *ChunkedStore) CreateBatch(ctx context.Context, collection string, docs []Document) error {
	for start := 0; start < len(docs); start += s.size {
		end := min(start+s.size, len(docs))
		if err := s.inner.CreateBatch(ctx, collection, docs[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (s *ChunkedStore) UpdateOne(ctx context.Context, collection string, update Update) error {
	return s.inner.UpdateOne(ctx, collection, update)
}

func (s *ChunkedStore) UpdateBatch(ctx context.Context, collection string, updates []Update) error {
	for start := 0; start < len(updates); start += s.size {
		end := min(start+s.size, len(updates))
		if err := s.inner.UpdateBatch(ctx, collection, updates[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (s *ChunkedStore) DeleteBatch(ctx context.Context, collection string, ids []string) error {
	for start := 0; start < len(ids); start += s.size {
		end := min(start+s.size, len(ids))
		if err := s.inner.DeleteBatch(ctx, collection, ids[start:end]); err != nil {
			return err
		}
	}
	return nil
}

// RetryingStore retries failed operations with fibonacci backoff, bounded by
// a fixed attempt count. Exhausting the attempts surfaces the last error to
// the caller; there is no silent local fallback.
type RetryingStore struct {
	inner       Store
	maxRetries  uint64
	baseBackoff time.Duration
}

// NewRetryingStore wraps inner with bounded retries.
func NewRetryingStore(inner Store, maxRetries uint64, baseBackoff time.Duration) *RetryingStore {
	if baseBackoff <= 0 {
		baseBackoff = 100 * time.Millisecond
	}
	return &RetryingStore{inner: inner, maxRetries: maxRetries, baseBackoff: baseBackoff}
}

func (s *RetryingStore) do(ctx context.Context, op func(context.Context) error) error {
	backoff := retry.WithMaxRetries(s.maxRetries, retry.NewFibonacci(s.baseBackoff))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := op(ctx); err != nil {
			if errors.Is(err, ErrNotFound) {
				return err
			}
			return retry.RetryableError(err)
		}
		return nil
	})
}

func (s *RetryingStore) FetchAll(ctx context.Context, collection string) ([]Document, error) {
	var docs []Document
	err := s.do(ctx, func(ctx context.Context) error {
		var innerErr error
		docs, innerErr = s.inner.FetchAll(ctx, collection)
		return innerErr
	})
	return docs, err
}

func (s *RetryingStore) CreateOne(ctx context.Context, collection string, doc Document) error {
	return s.do(ctx, func(ctx context.Context) error {
		return s.inner.CreateOne(ctx, collection, doc)
	})
}

func (s *RetryingStore) CreateBatch(ctx context.Context, collection string, docs []Document) error {
	return s.do(ctx, func(ctx context.Context) error {
		return s.inner.CreateBatch(ctx, collection, docs)
	})
}

func (s *RetryingStore) UpdateOne(ctx context.Context, collection string, update Update) error {
	return s.do(ctx, func(ctx context.Context) error {
		return s.inner.UpdateOne(ctx, collection, update)
	})
}

func (s *RetryingStore) UpdateBatch(ctx context.Context, collection string, updates []Update) error {
	return s.do(ctx, func(ctx context.Context) error {
		return s.inner.UpdateBatch(ctx, collection, updates)
	})
}

func (s *RetryingStore) DeleteBatch(ctx context.Context, collection string, ids []string) error {
	return s.do(ctx, func(ctx context.Context) error {
		return s.inner.DeleteBatch(ctx, collection, ids)
	})
}
