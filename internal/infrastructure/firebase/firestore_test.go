package firebase

import (
	"context"
	"errors"
	"os"
	"testing"

	"cloud.google.com/go/firestore"

	"horizon/internal/infrastructure/docstore"
)

// newEmulatorStore connects to FIRESTORE_EMULATOR_HOST and skips otherwise.
func newEmulatorStore(t *testing.T) *DocumentStore {
	t.Helper()
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set")
	}
	client, err := firestore.NewClient(context.Background(), "horizon-test")
	if err != nil {
		t.Fatalf("firestore.NewClient() error: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return &DocumentStore{client: client}
}

func TestDocumentStore_Lifecycle(t *testing.T) {
	s := newEmulatorStore(t)
	ctx := context.Background()
	collection := "banks-" + docstore.NewID()

	created, err := s.Create(ctx, collection, "", map[string]any{"userId": "u1", "accountId": "a1"})
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if _, err := s.Create(ctx, collection, created.ID, nil); !errors.Is(err, docstore.ErrAlreadyExists) {
		t.Errorf("duplicate Create() error = %v, want ErrAlreadyExists", err)
	}

	s.Create(ctx, collection, "", map[string]any{"userId": "u2", "accountId": "a2"})
	docs, err := s.List(ctx, collection, docstore.Equal("userId", "u1"))
	if err != nil || len(docs) != 1 || docs[0].ID != created.ID {
		t.Fatalf("List() = %v, %v", docs, err)
	}

	if err := s.Update(ctx, collection, created.ID, map[string]any{"status": "linked"}); err != nil {
		t.Fatalf("Update() error: %v", err)
	}
	got, err := s.Get(ctx, collection, created.ID)
	if err != nil || got.Data["status"] != "linked" || got.Data["userId"] != "u1" {
		t.Fatalf("Get() = %v, %v", got, err)
	}

	if err := s.Delete(ctx, collection, created.ID); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	if _, err := s.Get(ctx, collection, created.ID); !errors.Is(err, docstore.ErrNotFound) {
		t.Errorf("Get() after delete error = %v, want ErrNotFound", err)
	}
	if err := s.Update(ctx, collection, "missing", map[string]any{"x": 1}); !errors.Is(err, docstore.ErrNotFound) {
		t.Errorf("Update(missing) error = %v, want ErrNotFound", err)
	}
}
