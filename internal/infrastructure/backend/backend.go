// Package backend opens the document store and identity provider selected
// by configuration.
package backend

import (
	"context"
	"errors"
	"fmt"
	"log"

	firebasesdk "firebase.google.com/go/v4"

	"horizon/internal/domain/user"
	"horizon/internal/infrastructure/docstore"
	"horizon/internal/infrastructure/firebase"
	"horizon/internal/infrastructure/localauth"
	"horizon/internal/infrastructure/postgres"
	"horizon/internal/infrastructure/redis"
	"horizon/internal/shared/auth"
	"horizon/internal/shared/config"
)

// Backend holds the opened storage and identity clients.
type Backend struct {
	Store    docstore.Store
	Identity user.IdentityGateway

	// DB is set when the store is Postgres.
	DB    *postgres.DB
	Redis *redis.Client

	app     *firebasesdk.App
	closers []func() error
}

// Open connects the configured store. Identity is opened separately with
// OpenIdentity since command-line tools do not need it.
func Open(ctx context.Context, cfg *config.Config) (*Backend, error) {
	b := &Backend{}

	switch cfg.Store.Backend {
	case config.StoreFirestore:
		app, err := b.firebaseApp(ctx, cfg)
		if err != nil {
			return nil, err
		}
		store, err := firebase.NewDocumentStore(ctx, app)
		if err != nil {
			return nil, err
		}
		b.Store = store
		b.closers = append(b.closers, store.Close)
		log.Println("Using Firestore document store")

	case config.StorePostgres:
		db, err := postgres.New(cfg.Database.ConnectionString())
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, db.Close)
		store := postgres.NewDocumentStore(db)
		if err := store.EnsureSchema(ctx); err != nil {
			b.Close()
			return nil, err
		}
		b.DB = db
		b.Store = store
		log.Println("Using Postgres document store")

	case config.StoreMemory:
		b.Store = docstore.NewMemoryStore()
		log.Println("Using in-memory document store; data is lost on restart")

	default:
		return nil, fmt.Errorf("unsupported store backend %q", cfg.Store.Backend)
	}

	if cfg.Redis.Enabled() {
		client, err := redis.NewClient(cfg.Redis)
		if err != nil {
			b.Close()
			return nil, err
		}
		b.Redis = client
		b.closers = append(b.closers, client.Close)
		log.Printf("Connected to Redis at %s", cfg.Redis.Addr)
	}

	return b, nil
}

// OpenIdentity sets up the configured identity gateway.
func (b *Backend) OpenIdentity(ctx context.Context, cfg *config.Config) error {
	switch cfg.Identity.Provider {
	case config.IdentityFirebase:
		app, err := b.firebaseApp(ctx, cfg)
		if err != nil {
			return err
		}
		gateway, err := firebase.NewIdentityGateway(ctx, app, cfg.Firebase.WebAPIKey, cfg.Identity.SessionTTL)
		if err != nil {
			return err
		}
		b.Identity = gateway
		log.Println("Using Firebase identity provider")

	case config.IdentityLocal:
		var revoked localauth.Revoker
		if b.Redis != nil {
			revoked = redis.NewSessionRevocations(b.Redis.Client)
		}
		tokens := auth.NewJWT(cfg.Identity.JWTSecret, cfg.Identity.SessionTTL)
		b.Identity = localauth.NewGateway(b.Store, cfg.Store.IdentityCollection, tokens, revoked)
		log.Println("Using local identity provider")

	default:
		return fmt.Errorf("unsupported identity provider %q", cfg.Identity.Provider)
	}
	return nil
}

func (b *Backend) firebaseApp(ctx context.Context, cfg *config.Config) (*firebasesdk.App, error) {
	if b.app != nil {
		return b.app, nil
	}
	app, err := firebase.NewApp(ctx, cfg.Firebase)
	if err != nil {
		return nil, err
	}
	b.app = app
	return app, nil
}

// Close releases connections in reverse order of opening.
func (b *Backend) Close() error {
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		errs = append(errs, b.closers[i]())
	}
	b.closers = nil
	return errors.Join(errs...)
}
