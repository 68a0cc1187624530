// Package postgres implements the document store on Postgres: one table per
// collection, payload in a JSONB column, partial updates via JSONB merge.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/mbellec/retail-backoffice/internal/store"
)

// DB is the subset of pgxpool.Pool the store needs; pgxmock satisfies it in
// tests.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}

// tableFor whitelists collection names. Identifiers cannot be bound as query
// parameters, so anything outside the whitelist is rejected outright.
var tableFor = map[string]string{
	store.CollectionSales:    "sales",
	store.CollectionProducts: "products",
}

// Store is the Postgres-backed document store.
type Store struct {
	db DB
}

// New wraps a pgx pool (or mock) in a Store.
func New(db DB) *Store {
	return &Store{db: db}
}

func (s *Store) table(collection string) (string, error) {
	t, ok := tableFor[collection]
	if !ok {
		return "", fmt.Errorf("unknown collection %q", collection)
	}
	return t, nil
}

func (s *Store) FetchAll(ctx context.Context, collection string) ([]store.Document, error) {
	table, err := s.table(collection)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query(ctx,
		fmt.Sprintf(`SELECT id, data FROM %s ORDER BY created_at, id`, table))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", collection, err)
	}
	defer rows.Close()

	var docs []store.Document
	for rows.Next() {
		var doc store.Document
		var data []byte
		if err := rows.Scan(&doc.ID, &data); err != nil {
			return nil, fmt.Errorf("failed to scan %s row: %w", collection, err)
		}
		doc.Data = json.RawMessage(data)
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate %s: %w", collection, err)
	}
	return docs, nil
}

func (s *Store) CreateOne(ctx context.Context, collection string, doc store.Document) error {
	table, err := s.table(collection)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(ctx,
		fmt.Sprintf(`INSERT INTO %s (id, data) VALUES ($1, $2)`, table),
		doc.ID, []byte(doc.Data))
	if err != nil {
		return fmt.Errorf("failed to create %s document: %w", collection, err)
	}
	return nil
}

// CreateBatch inserts all documents in one transaction; the batch is atomic.
func (s *Store) CreateBatch(ctx context.Context, collection string, docs []store.Document) error {
	if len(docs) == 0 {
		return nil
	}
	table, err := s.table(collection)
	if err != nil {
		return err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin batch insert: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	batch := &pgx.Batch{}
	sql := fmt.Sprintf(`INSERT INTO %s (id, data) VALUES ($1, $2)`, table)
	for _, doc := range docs {
		batch.Queue(sql, doc.ID, []byte(doc.Data))
	}

	results := tx.SendBatch(ctx, batch)
	for range docs {
		if _, err := results.Exec(); err != nil {
			_ = results.Close()
			return fmt.Errorf("failed to insert into %s: %w", collection, err)
		}
	}
	if err := results.Close(); err != nil {
		return fmt.Errorf("failed to close batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit batch insert: %w", err)
	}
	return nil
}

func (s *Store) UpdateOne(ctx context.Context, collection string, update store.Update) error {
	table, err := s.table(collection)
	if err != nil {
		return err
	}

	fields, err := json.Marshal(update.Fields)
	if err != nil {
		return fmt.Errorf("failed to encode update fields: %w", err)
	}

	tag, err := s.db.Exec(ctx,
		fmt.Sprintf(`UPDATE %s SET data = data || $2, updated_at = now() WHERE id = $1`, table),
		update.ID, fields)
	if err != nil {
		return fmt.Errorf("failed to update %s document: %w", collection, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update %s %s: %w", collection, update.ID, store.ErrNotFound)
	}
	return nil
}

// UpdateBatch merges all updates in one transaction.
func (s *Store) UpdateBatch(ctx context.Context, collection string, updates []store.Update) error {
	if len(updates) == 0 {
		return nil
	}
	table, err := s.table(collection)
	if err != nil {
		return err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin batch update: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	batch := &pgx.Batch{}
	sql := fmt.Sprintf(`UPDATE %s SET data = data || $2, updated_at = now() WHERE id = $1`, table)
	for _, update := range updates {
		fields, err := json.Marshal(update.Fields)
		if err != nil {
			return fmt.Errorf("failed to encode update fields: %w", err)
		}
		batch.Queue(sql, update.ID, fields)
	}

	results := tx.SendBatch(ctx, batch)
	for range updates {
		if _, err := results.Exec(); err != nil {
			_ = results.Close()
			return fmt.Errorf("failed to update %s: %w", collection, err)
		}
	}
	if err := results.Close(); err != nil {
		return fmt.Errorf("failed to close batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit batch update: %w", err)
	}
	return nil
}

func (s *Store) DeleteBatch(ctx context.Context, collection string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	table, err := s.table(collection)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE id = ANY($1)`, table), ids)
	if err != nil {
		return fmt.Errorf("failed to delete from %s: %w", collection, err)
	}
	return nil
}
