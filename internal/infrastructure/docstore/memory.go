package docstore

import (
	"context"
	"fmt"
	"maps"
	"sort"
	"sync"
	"time"
)

// MemoryStore keeps documents in process. Values are compared with == so
// filters should use strings, bools or ints.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]map[string]*Document
	now         func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		collections: make(map[string]map[string]*Document),
		now:         time.Now,
	}
}

func (s *MemoryStore) Create(ctx context.Context, collection, id string, data map[string]any) (*Document, error) {
	if id == "" {
		id = NewID()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	docs, ok := s.collections[collection]
	if !ok {
		docs = make(map[string]*Document)
		s.collections[collection] = docs
	}
	if _, exists := docs[id]; exists {
		return nil, fmt.Errorf("%s/%s: %w", collection, id, ErrAlreadyExists)
	}

	now := s.now().UTC()
	doc := &Document{
		ID:         id,
		Collection: collection,
		Data:       cloneData(data),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	docs[id] = doc
	return copyDocument(doc), nil
}

func (s *MemoryStore) Get(ctx context.Context, collection, id string) (*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.collections[collection][id]
	if !ok {
		return nil, fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	}
	return copyDocument(doc), nil
}

// List returns matching documents ordered by creation time.
func (s *MemoryStore) List(ctx context.Context, collection string, filters ...Filter) ([]*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Document
	for _, doc := range s.collections[collection] {
		if matches(doc, filters) {
			out = append(out, copyDocument(doc))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *MemoryStore) Update(ctx context.Context, collection, id string, data map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.collections[collection][id]
	if !ok {
		return fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	}
	maps.Copy(doc.Data, data)
	doc.UpdatedAt = s.now().UTC()
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, collection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.collections[collection][id]; !ok {
		return fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	}
	delete(s.collections[collection], id)
	return nil
}

func matches(doc *Document, filters []Filter) bool {
	for _, f := range filters {
		if v, ok := doc.Data[f.Field]; !ok || v != f.Value {
			return false
		}
	}
	return true
}

func copyDocument(doc *Document) *Document {
	c := *doc
	c.Data = cloneData(doc.Data)
	return &c
}

func cloneData(data map[string]any) map[string]any {
	if data == nil {
		return make(map[string]any)
	}
	return maps.Clone(data)
}
