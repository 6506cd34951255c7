package firebase

import (
	"context"
	"fmt"
	"sort"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"horizon/internal/infrastructure/docstore"
)

// DocumentStore implements docstore.Store on Cloud Firestore.
type DocumentStore struct {
	client *firestore.Client
}

func NewDocumentStore(ctx context.Context, app *firebase.App) (*DocumentStore, error) {
	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firestore client: %w", err)
	}
	return &DocumentStore{client: client}, nil
}

func (s *DocumentStore) Close() error {
	return s.client.Close()
}

func (s *DocumentStore) Create(ctx context.Context, collection, id string, data map[string]any) (*docstore.Document, error) {
	if id == "" {
		id = docstore.NewID()
	}
	if data == nil {
		data = map[string]any{}
	}

	wr, err := s.client.Collection(collection).Doc(id).Create(ctx, data)
	if err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return nil, fmt.Errorf("%s/%s: %w", collection, id, docstore.ErrAlreadyExists)
		}
		return nil, fmt.Errorf("failed to create document: %w", err)
	}

	return &docstore.Document{
		ID:         id,
		Collection: collection,
		Data:       data,
		CreatedAt:  wr.UpdateTime,
		UpdatedAt:  wr.UpdateTime,
	}, nil
}

func (s *DocumentStore) Get(ctx context.Context, collection, id string) (*docstore.Document, error) {
	snap, err := s.client.Collection(collection).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, fmt.Errorf("%s/%s: %w", collection, id, docstore.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return toDocument(collection, snap), nil
}

// List runs equality filters server side and orders by creation time in
// memory so no composite index is needed.
func (s *DocumentStore) List(ctx context.Context, collection string, filters ...docstore.Filter) ([]*docstore.Document, error) {
	q := s.client.Collection(collection).Query
	for _, f := range filters {
		q = q.Where(f.Field, "==", f.Value)
	}

	snaps, err := q.Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}

	docs := make([]*docstore.Document, 0, len(snaps))
	for _, snap := range snaps {
		docs = append(docs, toDocument(collection, snap))
	}
	sort.SliceStable(docs, func(i, j int) bool {
		return docs[i].CreatedAt.Before(docs[j].CreatedAt)
	})
	return docs, nil
}

func (s *DocumentStore) Update(ctx context.Context, collection, id string, data map[string]any) error {
	if len(data) == 0 {
		return nil
	}

	updates := make([]firestore.Update, 0, len(data))
	for k, v := range data {
		updates = append(updates, firestore.Update{Path: k, Value: v})
	}

	if _, err := s.client.Collection(collection).Doc(id).Update(ctx, updates); err != nil {
		if status.Code(err) == codes.NotFound {
			return fmt.Errorf("%s/%s: %w", collection, id, docstore.ErrNotFound)
		}
		return fmt.Errorf("failed to update document: %w", err)
	}
	return nil
}

func (s *DocumentStore) Delete(ctx context.Context, collection, id string) error {
	if _, err := s.client.Collection(collection).Doc(id).Delete(ctx, firestore.Exists); err != nil {
		if status.Code(err) == codes.NotFound {
			return fmt.Errorf("%s/%s: %w", collection, id, docstore.ErrNotFound)
		}
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return nil
}

func toDocument(collection string, snap *firestore.DocumentSnapshot) *docstore.Document {
	return &docstore.Document{
		ID:         snap.Ref.ID,
		Collection: collection,
		Data:       snap.Data(),
		CreatedAt:  snap.CreateTime,
		UpdatedAt:  snap.UpdateTime,
	}
}
