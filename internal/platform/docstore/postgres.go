package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/lib/pq"

	"warden/pkg/platform/sentinel"
)

// Schema creates the documents table. Applied by EnsureSchema; kept as a
// constant so deployments can run it through their own migration tooling.
const Schema = `
CREATE TABLE IF NOT EXISTS documents (
	collection TEXT NOT NULL,
	id         TEXT NOT NULL,
	doc        JSONB NOT NULL,
	PRIMARY KEY (collection, id)
)`

// Postgres is a postgres-backed Store. Documents live in a single jsonb table;
// merge semantics use the jsonb || operator, which is a top-level merge.
type Postgres struct {
	db *sql.DB
}

// NewPostgres constructs a postgres-backed document store.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// EnsureSchema applies the documents table schema.
func (s *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("ensure documents schema: %w", err)
	}
	return nil
}

func (s *Postgres) Get(ctx context.Context, collection, id string) (Document, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT doc FROM documents WHERE collection = $1 AND id = $2`,
		collection, id,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}

	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return doc, nil
}

func (s *Postgres) Set(ctx context.Context, collection, id string, doc Document, merge bool) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}

	query := `
		INSERT INTO documents (collection, id, doc)
		VALUES ($1, $2, $3)
		ON CONFLICT (collection, id) DO UPDATE SET doc = EXCLUDED.doc`
	if merge {
		query = `
			INSERT INTO documents (collection, id, doc)
			VALUES ($1, $2, $3)
			ON CONFLICT (collection, id) DO UPDATE SET doc = documents.doc || EXCLUDED.doc`
	}
	if _, err := s.db.ExecContext(ctx, query, collection, id, raw); err != nil {
		return fmt.Errorf("set document: %w", err)
	}
	return nil
}

func (s *Postgres) Update(ctx context.Context, collection, id string, partial Document) error {
	raw, err := json.Marshal(partial)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE documents SET doc = doc || $3 WHERE collection = $1 AND id = $2`,
		collection, id, raw,
	)
	if err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
