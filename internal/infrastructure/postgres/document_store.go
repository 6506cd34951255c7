package postgres

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"horizon/internal/infrastructure/docstore"
)

const uniqueViolation = "23505"

// DocumentStore keeps every collection in one JSONB table keyed by
// (collection, id).
type DocumentStore struct {
	db *DB
}

func NewDocumentStore(db *DB) *DocumentStore {
	return &DocumentStore{db: db}
}

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	collection TEXT NOT NULL,
	id TEXT NOT NULL,
	data JSONB NOT NULL DEFAULT '{}'::jsonb,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (collection, id)
);

CREATE INDEX IF NOT EXISTS documents_data_idx ON documents USING GIN (data jsonb_path_ops);

CREATE OR REPLACE FUNCTION notify_document_created() RETURNS trigger AS $$
BEGIN
	PERFORM pg_notify('document_created', json_build_object('collection', NEW.collection, 'id', NEW.id)::text);
	RETURN NEW;
END;
$$ LANGUAGE plpgsql;

DROP TRIGGER IF EXISTS documents_created ON documents;
CREATE TRIGGER documents_created AFTER INSERT ON documents
	FOR EACH ROW EXECUTE FUNCTION notify_document_created();
`

// EnsureSchema creates the documents table and its insert trigger.
func (s *DocumentStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create documents schema: %w", err)
	}
	return nil
}

func (s *DocumentStore) Create(ctx context.Context, collection, id string, data map[string]any) (*docstore.Document, error) {
	if id == "" {
		id = docstore.NewID()
	}
	payload, err := marshalData(data)
	if err != nil {
		return nil, err
	}

	query := `
		INSERT INTO documents (collection, id, data)
		VALUES ($1, $2, $3::jsonb)
		RETURNING data, created_at, updated_at
	`

	doc := &docstore.Document{ID: id, Collection: collection}
	var raw []byte
	err = s.db.QueryRowContext(ctx, query, collection, id, payload).Scan(&raw, &doc.CreatedAt, &doc.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return nil, fmt.Errorf("%s/%s: %w", collection, id, docstore.ErrAlreadyExists)
		}
		return nil, fmt.Errorf("failed to insert document: %w", err)
	}

	if doc.Data, err = unmarshalData(raw); err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *DocumentStore) Get(ctx context.Context, collection, id string) (*docstore.Document, error) {
	query := `
		SELECT data, created_at, updated_at
		FROM documents
		WHERE collection = $1 AND id = $2
	`

	doc := &docstore.Document{ID: id, Collection: collection}
	var raw []byte
	err := s.db.QueryRowContext(ctx, query, collection, id).Scan(&raw, &doc.CreatedAt, &doc.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%s/%s: %w", collection, id, docstore.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}

	if doc.Data, err = unmarshalData(raw); err != nil {
		return nil, err
	}
	return doc, nil
}

// List matches filters with JSONB containment, ordered by creation time.
func (s *DocumentStore) List(ctx context.Context, collection string, filters ...docstore.Filter) ([]*docstore.Document, error) {
	match := make(map[string]any, len(filters))
	for _, f := range filters {
		match[f.Field] = f.Value
	}
	payload, err := marshalData(match)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT id, data, created_at, updated_at
		FROM documents
		WHERE collection = $1 AND data @> $2::jsonb
		ORDER BY created_at, id
	`

	rows, err := s.db.QueryContext(ctx, query, collection, payload)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var docs []*docstore.Document
	for rows.Next() {
		doc := &docstore.Document{Collection: collection}
		var raw []byte
		if err := rows.Scan(&doc.ID, &raw, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		if doc.Data, err = unmarshalData(raw); err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate documents: %w", err)
	}
	return docs, nil
}

func (s *DocumentStore) Update(ctx context.Context, collection, id string, data map[string]any) error {
	payload, err := marshalData(data)
	if err != nil {
		return err
	}

	query := `
		UPDATE documents
		SET data = data || $3::jsonb, updated_at = $4
		WHERE collection = $1 AND id = $2
	`

	result, err := s.db.ExecContext(ctx, query, collection, id, payload, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to update document: %w", err)
	}
	return requireRow(result, collection, id)
}

func (s *DocumentStore) Delete(ctx context.Context, collection, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE collection = $1 AND id = $2`, collection, id)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return requireRow(result, collection, id)
}

func requireRow(result sql.Result, collection, id string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s/%s: %w", collection, id, docstore.ErrNotFound)
	}
	return nil
}

// marshalData returns a string since lib/pq sends []byte as bytea.
func marshalData(data map[string]any) (string, error) {
	if data == nil {
		data = map[string]any{}
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("failed to encode document: %w", err)
	}
	return string(payload), nil
}

func unmarshalData(raw []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	data := make(map[string]any)
	if err := dec.Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}
	return data, nil
}
