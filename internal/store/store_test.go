package store

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingStore counts calls and batch sizes, optionally failing the first
// few operations.
type recordingStore struct {
	batchSizes []int
	calls      int
	failFirst  int
	err        error
}

func (r *recordingStore) fail() error {
	r.calls++
	if r.calls <= r.failFirst {
		if r.err != nil {
			return r.err
		}
		return fmt.Errorf("transient failure %d", r.calls)
	}
	return nil
}

func (r *recordingStore) FetchAll(context.Context, string) ([]Document, error) {
	return nil, r.fail()
}

func (r *recordingStore) CreateOne(context.Context, string, Document) error {
	return r.fail()
}

func (r *recordingStore) CreateBatch(_ context.Context, _ string, docs []Document) error {
	r.batchSizes = append(r.batchSizes, len(docs))
	return r.fail()
}

func (r *recordingStore) UpdateOne(context.Context, string, Update) error {
	return r.fail()
}

func (r *recordingStore) UpdateBatch(_ context.Context, _ string, updates []Update) error {
	r.batchSizes = append(r.batchSizes, len(updates))
	return r.fail()
}

func (r *recordingStore) DeleteBatch(_ context.Context, _ string, ids []string) error {
	r.batchSizes = append(r.batchSizes, len(ids))
	return r.fail()
}

func makeDocs(n int) []Document {
	docs := make([]Document, n)
	for i := range docs {
		docs[i] = Document{ID: fmt.Sprintf("doc-%03d", i), Data: []byte(`{}`)}
	}
	return docs
}

func TestChunkedStore(t *testing.T) {
	ctx := context.Background()

	t.Run("splits create batches", func(t *testing.T) {
		inner := &recordingStore{}
		chunked := NewChunkedStore(inner, 200)

		require.NoError(t, chunked.CreateBatch(ctx, CollectionSales, makeDocs(450)))
		assert.Equal(t, []int{200, 200, 50}, inner.batchSizes)
	})

	t.Run("small batch goes through whole", func(t *testing.T) {
		inner := &recordingStore{}
		chunked := NewChunkedStore(inner, 200)

		require.NoError(t, chunked.CreateBatch(ctx, CollectionSales, makeDocs(3)))
		assert.Equal(t, []int{3}, inner.batchSizes)
	})

	t.Run("stops at first failing chunk", func(t *testing.T) {
		inner := &recordingStore{failFirst: 2}
		chunked := NewChunkedStore(inner, 100)

		err := chunked.CreateBatch(ctx, CollectionSales, makeDocs(300))
		require.Error(t, err)
		// First chunk failed, no further chunks attempted.
		assert.Equal(t, []int{100}, inner.batchSizes)
	})

	t.Run("splits deletes", func(t *testing.T) {
		inner := &recordingStore{}
		chunked := NewChunkedStore(inner, 2)

		ids := []string{"a", "b", "c", "d", "e"}
		require.NoError(t, chunked.DeleteBatch(ctx, CollectionSales, ids))
		assert.Equal(t, []int{2, 2, 1}, inner.batchSizes)
	})

	t.Run("zero size falls back to default", func(t *testing.T) {
		chunked := NewChunkedStore(&recordingStore{}, 0)
		assert.Equal(t, DefaultChunkSize, chunked.size)
	})
}

func TestRetryingStore(t *testing.T) {
	ctx := context.Background()

	t.Run("retries transient failures", func(t *testing.T) {
		inner := &recordingStore{failFirst: 2}
		retrying := NewRetryingStore(inner, 3, time.Millisecond)

		err := retrying.CreateOne(ctx, CollectionSales, Document{ID: "x", Data: []byte(`{}`)})
		require.NoError(t, err)
		assert.Equal(t, 3, inner.calls)
	})

	t.Run("gives up after bounded attempts", func(t *testing.T) {
		inner := &recordingStore{failFirst: 100}
		retrying := NewRetryingStore(inner, 2, time.Millisecond)

		err := retrying.CreateOne(ctx, CollectionSales, Document{ID: "x", Data: []byte(`{}`)})
		require.Error(t, err)
		// Initial attempt plus two retries.
		assert.Equal(t, 3, inner.calls)
	})

	t.Run("not found is not retried", func(t *testing.T) {
		inner := &recordingStore{failFirst: 100, err: fmt.Errorf("merge x: %w", ErrNotFound)}
		retrying := NewRetryingStore(inner, 5, time.Millisecond)

		err := retrying.UpdateOne(ctx, CollectionSales, Update{ID: "x"})
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrNotFound))
		assert.Equal(t, 1, inner.calls)
	})
}
