package user

import "context"

// Repository defines the interface for user data access
type Repository interface {
	Create(ctx context.Context, params CreateUserParams) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	GetByIdentityID(ctx context.Context, identityID string) (*User, error)
}

// IdentityGateway creates accounts and manages sessions with the identity provider.
type IdentityGateway interface {
	CreateAccount(ctx context.Context, email, password, displayName string) (string, error)
	StartSession(ctx context.Context, email, password string) (*Session, error)
	CurrentUser(ctx context.Context, secret string) (*Identity, error)
	EndSession(ctx context.Context, secret string) error
	DeleteAccount(ctx context.Context, identityID string) error
}
