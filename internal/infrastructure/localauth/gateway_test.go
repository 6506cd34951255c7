package localauth

import (
	"context"
	"errors"
	"testing"
	"time"

	"horizon/internal/domain/user"
	"horizon/internal/infrastructure/docstore"
	"horizon/internal/shared/auth"
)

func newTestGateway() (*Gateway, *docstore.MemoryStore) {
	store := docstore.NewMemoryStore()
	return NewGateway(store, "identities", auth.NewJWT("test-secret", time.Hour), nil), store
}

func TestGateway_SignUpSignInFlow(t *testing.T) {
	g, store := newTestGateway()
	ctx := context.Background()

	id, err := g.CreateAccount(ctx, " Jane@Example.com ", "correct horse", "Jane Doe")
	if err != nil {
		t.Fatalf("CreateAccount() error: %v", err)
	}

	doc, _ := store.Get(ctx, "identities", id)
	if doc.Data["passwordHash"] == "correct horse" {
		t.Error("password must be hashed")
	}

	session, err := g.StartSession(ctx, "jane@example.com", "correct horse")
	if err != nil {
		t.Fatalf("StartSession() error: %v", err)
	}
	if session.IdentityID != id || session.Secret == "" {
		t.Errorf("unexpected session: %+v", session)
	}

	identity, err := g.CurrentUser(ctx, session.Secret)
	if err != nil {
		t.Fatalf("CurrentUser() error: %v", err)
	}
	if identity.ID != id || identity.Email != "jane@example.com" || identity.Name != "Jane Doe" {
		t.Errorf("unexpected identity: %+v", identity)
	}
}

func TestGateway_EmailTaken(t *testing.T) {
	g, _ := newTestGateway()
	ctx := context.Background()

	if _, err := g.CreateAccount(ctx, "jane@example.com", "password1", "Jane"); err != nil {
		t.Fatalf("CreateAccount() error: %v", err)
	}
	if _, err := g.CreateAccount(ctx, "JANE@example.com", "password2", "Jane"); !errors.Is(err, user.ErrEmailTaken) {
		t.Errorf("error = %v, want ErrEmailTaken", err)
	}
}

func TestGateway_InvalidCredentials(t *testing.T) {
	g, _ := newTestGateway()
	ctx := context.Background()
	g.CreateAccount(ctx, "jane@example.com", "password1", "Jane")

	tests := []struct {
		name     string
		email    string
		password string
	}{
		{"wrong password", "jane@example.com", "password2"},
		{"unknown email", "john@example.com", "password1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := g.StartSession(ctx, tt.email, tt.password); !errors.Is(err, user.ErrInvalidCredentials) {
				t.Errorf("error = %v, want ErrInvalidCredentials", err)
			}
		})
	}
}

func TestGateway_EndSessionRevokes(t *testing.T) {
	g, _ := newTestGateway()
	ctx := context.Background()
	g.CreateAccount(ctx, "jane@example.com", "password1", "Jane")

	first, _ := g.StartSession(ctx, "jane@example.com", "password1")
	second, _ := g.StartSession(ctx, "jane@example.com", "password1")

	if err := g.EndSession(ctx, first.Secret); err != nil {
		t.Fatalf("EndSession() error: %v", err)
	}
	if _, err := g.CurrentUser(ctx, first.Secret); !errors.Is(err, user.ErrSessionInvalid) {
		t.Errorf("ended session error = %v, want ErrSessionInvalid", err)
	}
	if _, err := g.CurrentUser(ctx, second.Secret); err != nil {
		t.Errorf("other session should stay valid, got %v", err)
	}

	if err := g.EndSession(ctx, "not-a-token"); err != nil {
		t.Errorf("EndSession(garbage) error = %v, want nil", err)
	}
}

func TestGateway_DeletedIdentityInvalidatesSession(t *testing.T) {
	g, _ := newTestGateway()
	ctx := context.Background()
	id, _ := g.CreateAccount(ctx, "jane@example.com", "password1", "Jane")
	session, _ := g.StartSession(ctx, "jane@example.com", "password1")

	if err := g.DeleteAccount(ctx, id); err != nil {
		t.Fatalf("DeleteAccount() error: %v", err)
	}
	if err := g.DeleteAccount(ctx, id); err != nil {
		t.Errorf("second DeleteAccount() error = %v, want nil", err)
	}
	if _, err := g.CurrentUser(ctx, session.Secret); !errors.Is(err, user.ErrSessionInvalid) {
		t.Errorf("error = %v, want ErrSessionInvalid", err)
	}
}

func TestMemoryRevoker_Expiry(t *testing.T) {
	r := NewMemoryRevoker()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now }
	ctx := context.Background()

	r.Revoke(ctx, "s1", now.Add(time.Minute))
	r.Revoke(ctx, "s2", now.Add(-time.Minute))

	if ok, _ := r.IsRevoked(ctx, "s1"); !ok {
		t.Error("s1 should be revoked")
	}
	if ok, _ := r.IsRevoked(ctx, "s2"); ok {
		t.Error("s2 expired before revocation and should not be tracked")
	}

	now = now.Add(2 * time.Minute)
	if ok, _ := r.IsRevoked(ctx, "s1"); ok {
		t.Error("s1 revocation should lapse after expiry")
	}
}
