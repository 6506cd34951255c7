package dwolla

import "context"

// ClientInterface defines the methods required from the payment network client
type ClientInterface interface {
	CreateCustomer(ctx context.Context, req CustomerRequest) (string, error)
	CreateFundingSource(ctx context.Context, customerID, processorToken, name string) (string, error)
	RemoveFundingSource(ctx context.Context, fundingSourceURL string) error
}
