// Package localauth is a self-hosted identity gateway: bcrypt password
// hashes in the document store and HS256 session tokens.
package localauth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"horizon/internal/domain/user"
	"horizon/internal/infrastructure/docstore"
	"horizon/internal/shared/auth"
)

// Revoker tracks sessions ended before their token expiry.
type Revoker interface {
	Revoke(ctx context.Context, sessionID string, until time.Time) error
	IsRevoked(ctx context.Context, sessionID string) (bool, error)
}

// Gateway implements user.IdentityGateway.
type Gateway struct {
	store      docstore.Store
	collection string
	tokens     *auth.JWT
	revoked    Revoker
}

func NewGateway(store docstore.Store, collection string, tokens *auth.JWT, revoked Revoker) *Gateway {
	if revoked == nil {
		revoked = NewMemoryRevoker()
	}
	return &Gateway{store: store, collection: collection, tokens: tokens, revoked: revoked}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (g *Gateway) CreateAccount(ctx context.Context, email, password, displayName string) (string, error) {
	email = normalizeEmail(email)

	existing, err := g.store.List(ctx, g.collection, docstore.Equal("email", email))
	if err != nil {
		return "", fmt.Errorf("failed to check email: %w", err)
	}
	if len(existing) > 0 {
		return "", user.ErrEmailTaken
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	doc, err := g.store.Create(ctx, g.collection, docstore.NewID(), map[string]any{
		"email":        email,
		"passwordHash": hash,
		"displayName":  displayName,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create identity: %w", err)
	}
	return doc.ID, nil
}

func (g *Gateway) StartSession(ctx context.Context, email, password string) (*user.Session, error) {
	docs, err := g.store.List(ctx, g.collection, docstore.Equal("email", normalizeEmail(email)))
	if err != nil {
		return nil, fmt.Errorf("failed to look up identity: %w", err)
	}
	if len(docs) == 0 {
		return nil, user.ErrInvalidCredentials
	}

	doc := docs[0]
	hash, _ := doc.Data["passwordHash"].(string)
	if err := auth.VerifyPassword(hash, password); err != nil {
		return nil, user.ErrInvalidCredentials
	}

	stored, _ := doc.Data["email"].(string)
	token, expiresAt, err := g.tokens.Generate(doc.ID, stored)
	if err != nil {
		return nil, fmt.Errorf("failed to issue session: %w", err)
	}

	return &user.Session{Secret: token, IdentityID: doc.ID, ExpiresAt: expiresAt}, nil
}

func (g *Gateway) CurrentUser(ctx context.Context, secret string) (*user.Identity, error) {
	claims, err := g.tokens.Validate(secret)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", user.ErrSessionInvalid, err)
	}

	revoked, err := g.revoked.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, user.ErrSessionInvalid
	}

	doc, err := g.store.Get(ctx, g.collection, claims.Subject)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, user.ErrSessionInvalid
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load identity: %w", err)
	}

	email, _ := doc.Data["email"].(string)
	name, _ := doc.Data["displayName"].(string)
	return &user.Identity{ID: doc.ID, Email: email, Name: name}, nil
}

// EndSession revokes the session until its token would expire. Invalid
// tokens are already unusable and are ignored.
func (g *Gateway) EndSession(ctx context.Context, secret string) error {
	claims, err := g.tokens.Validate(secret)
	if err != nil {
		return nil
	}
	if claims.ExpiresAt == nil {
		return nil
	}
	return g.revoked.Revoke(ctx, claims.ID, claims.ExpiresAt.Time)
}

func (g *Gateway) DeleteAccount(ctx context.Context, identityID string) error {
	err := g.store.Delete(ctx, g.collection, identityID)
	if err != nil && !errors.Is(err, docstore.ErrNotFound) {
		return fmt.Errorf("failed to delete identity: %w", err)
	}
	return nil
}

// MemoryRevoker keeps revocations in process; they are lost on restart.
type MemoryRevoker struct {
	mu      sync.Mutex
	revoked map[string]time.Time
	now     func() time.Time
}

func NewMemoryRevoker() *MemoryRevoker {
	return &MemoryRevoker{revoked: make(map[string]time.Time), now: time.Now}
}

func (r *MemoryRevoker) Revoke(ctx context.Context, sessionID string, until time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	for id, exp := range r.revoked {
		if !exp.After(now) {
			delete(r.revoked, id)
		}
	}
	if until.After(now) {
		r.revoked[sessionID] = until
	}
	return nil
}

func (r *MemoryRevoker) IsRevoked(ctx context.Context, sessionID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	exp, ok := r.revoked[sessionID]
	return ok && exp.After(r.now()), nil
}
