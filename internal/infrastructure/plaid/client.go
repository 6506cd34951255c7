package plaid

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	defaultTimeout = 30 * time.Second

	linkTokenPath      = "/link/token/create"
	exchangePath       = "/item/public_token/exchange"
	accountsPath       = "/accounts/get"
	balancesPath       = "/accounts/balance/get"
	processorTokenPath = "/processor/token/create"
	itemRemovePath     = "/item/remove"
)

var environments = map[string]string{
	"sandbox":     "https://sandbox.plaid.com",
	"development": "https://development.plaid.com",
	"production":  "https://production.plaid.com",
}

// Client handles communication with the Plaid API
type Client struct {
	httpClient *http.Client
	baseURL    string
	clientID   string
	secret     string
}

// Ensure Client implements ClientInterface
var _ ClientInterface = (*Client)(nil)

// NewClient creates a client for the named environment (sandbox, development, production).
func NewClient(clientID, secret, env string) (*Client, error) {
	baseURL, ok := environments[env]
	if !ok {
		return nil, fmt.Errorf("unknown plaid environment %q", env)
	}

	return &Client{
		httpClient: &http.Client{
			Timeout:   defaultTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		baseURL:  baseURL,
		clientID: clientID,
		secret:   secret,
	}, nil
}

// CreateLinkToken issues a link token for the client-side linking UI.
func (c *Client) CreateLinkToken(ctx context.Context, req LinkTokenRequest) (*LinkTokenResponse, error) {
	body := linkTokenBody{
		User:         linkTokenUser{ClientUserID: req.ClientUserID},
		ClientName:   req.ClientName,
		Products:     req.Products,
		CountryCodes: req.CountryCodes,
		Language:     req.Language,
	}

	var resp LinkTokenResponse
	if err := c.post(ctx, linkTokenPath, body, &resp); err != nil {
		return nil, err
	}
	if resp.LinkToken == "" {
		return nil, errors.New("plaid returned an empty link token")
	}
	return &resp, nil
}

// ExchangePublicToken trades a public token for an access token and item ID.
func (c *Client) ExchangePublicToken(ctx context.Context, publicToken string) (*ExchangeResponse, error) {
	var resp ExchangeResponse
	if err := c.post(ctx, exchangePath, publicTokenBody{PublicToken: publicToken}, &resp); err != nil {
		return nil, err
	}
	if resp.AccessToken == "" || resp.ItemID == "" {
		return nil, errors.New("plaid returned an incomplete token exchange")
	}
	return &resp, nil
}

// GetAccounts fetches account descriptors with cached balances.
func (c *Client) GetAccounts(ctx context.Context, accessToken string) (*AccountsResponse, error) {
	var resp AccountsResponse
	if err := c.post(ctx, accountsPath, accessTokenBody{AccessToken: accessToken}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetBalances fetches accounts with balances refreshed from the institution.
func (c *Client) GetBalances(ctx context.Context, accessToken string) (*AccountsResponse, error) {
	var resp AccountsResponse
	if err := c.post(ctx, balancesPath, accessTokenBody{AccessToken: accessToken}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CreateProcessorToken derives a token the payment network can use to pull
// account and routing details for one account.
func (c *Client) CreateProcessorToken(ctx context.Context, accessToken, accountID, processor string) (string, error) {
	body := processorTokenBody{AccessToken: accessToken, AccountID: accountID, Processor: processor}

	var resp processorTokenResponse
	if err := c.post(ctx, processorTokenPath, body, &resp); err != nil {
		return "", err
	}
	if resp.ProcessorToken == "" {
		return "", errors.New("plaid returned an empty processor token")
	}
	return resp.ProcessorToken, nil
}

// RemoveItem invalidates the access token and deletes the item. An item
// that is already gone counts as removed.
func (c *Client) RemoveItem(ctx context.Context, accessToken string) error {
	err := c.post(ctx, itemRemovePath, accessTokenBody{AccessToken: accessToken}, nil)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.IsItemGone() {
		return nil
	}
	return err
}

func (c *Client) post(ctx context.Context, path string, payload, out any) error {
	reqBody, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(reqBody))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("PLAID-CLIENT-ID", c.clientID)
	req.Header.Set("PLAID-SECRET", c.secret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if err := json.Unmarshal(body, apiErr); err != nil {
			apiErr.ErrorMessage = string(body)
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}
