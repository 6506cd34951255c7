package bank

import "context"

// Repository defines the interface for bank account data access
type Repository interface {
	Create(ctx context.Context, params CreateParams) (*BankAccount, error)
	GetByID(ctx context.Context, id string) (*BankAccount, error)
	GetByAccountID(ctx context.Context, accountID string) (*BankAccount, error)
	ListByUserID(ctx context.Context, userID string) ([]*BankAccount, error)
	// FindByUserAndAccount returns nil, nil when the pair is not linked.
	FindByUserAndAccount(ctx context.Context, userID, accountID string) (*BankAccount, error)
}
