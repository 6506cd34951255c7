// Package docstore is a small document-store abstraction with one collection
// per entity and map-shaped documents. Backends live in the firebase and
// postgres packages; MemoryStore serves tests and local runs.
package docstore

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound      = errors.New("document not found")
	ErrAlreadyExists = errors.New("document already exists")
)

type Document struct {
	ID         string
	Collection string
	Data       map[string]any
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Filter is an equality match on a top-level field.
type Filter struct {
	Field string
	Value any
}

func Equal(field string, value any) Filter {
	return Filter{Field: field, Value: value}
}

// Store is implemented by every document backend.
type Store interface {
	Create(ctx context.Context, collection, id string, data map[string]any) (*Document, error)
	Get(ctx context.Context, collection, id string) (*Document, error)
	List(ctx context.Context, collection string, filters ...Filter) ([]*Document, error)
	// Update merges data into the existing document.
	Update(ctx context.Context, collection, id string, data map[string]any) error
	Delete(ctx context.Context, collection, id string) error
}

func NewID() string {
	return uuid.NewString()
}
