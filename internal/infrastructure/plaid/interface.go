package plaid

import (
	"context"
)

// ClientInterface defines the methods required from the aggregator client
type ClientInterface interface {
	CreateLinkToken(ctx context.Context, req LinkTokenRequest) (*LinkTokenResponse, error)
	ExchangePublicToken(ctx context.Context, publicToken string) (*ExchangeResponse, error)
	GetAccounts(ctx context.Context, accessToken string) (*AccountsResponse, error)
	GetBalances(ctx context.Context, accessToken string) (*AccountsResponse, error)
	CreateProcessorToken(ctx context.Context, accessToken, accountID, processor string) (string, error)
	RemoveItem(ctx context.Context, accessToken string) error
}
