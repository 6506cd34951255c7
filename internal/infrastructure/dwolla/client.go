package dwolla

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	defaultTimeout = 30 * time.Second
	halJSON        = "application/vnd.dwolla.v1.hal+json"

	customersPath      = "/customers"
	authorizationsPath = "/on-demand-authorizations"
)

var environments = map[string]string{
	"sandbox":    "https://api-sandbox.dwolla.com",
	"production": "https://api.dwolla.com",
}

// ErrMissingLocation is returned when a create call succeeds without
// telling us where the new resource lives.
var ErrMissingLocation = errors.New("dwolla response has no Location header")

// Client handles communication with the Dwolla API
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// Ensure Client implements ClientInterface
var _ ClientInterface = (*Client)(nil)

// NewClient creates a client authenticated with OAuth client credentials.
func NewClient(ctx context.Context, key, secret, env string) (*Client, error) {
	baseURL, ok := environments[env]
	if !ok {
		return nil, fmt.Errorf("unknown dwolla environment %q", env)
	}

	cc := clientcredentials.Config{
		ClientID:     key,
		ClientSecret: secret,
		TokenURL:     baseURL + "/token",
		AuthStyle:    oauth2.AuthStyleInHeader,
	}

	base := &http.Client{
		Timeout:   defaultTimeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
	httpClient := cc.Client(context.WithValue(ctx, oauth2.HTTPClient, base))
	httpClient.Timeout = defaultTimeout

	return &Client{httpClient: httpClient, baseURL: baseURL}, nil
}

// CreateCustomer provisions a personal customer and returns its URL.
func (c *Client) CreateCustomer(ctx context.Context, req CustomerRequest) (string, error) {
	if req.Type == "" {
		req.Type = "personal"
	}

	resp, err := c.do(ctx, http.MethodPost, c.baseURL+customersPath, req, http.StatusCreated)
	if err != nil {
		return "", fmt.Errorf("failed to create customer: %w", err)
	}
	return location(resp)
}

// CreateFundingSource attaches the bank account behind a processor token to
// a customer and returns the funding source URL.
func (c *Client) CreateFundingSource(ctx context.Context, customerID, processorToken, name string) (string, error) {
	authURL, err := c.createOnDemandAuthorization(ctx)
	if err != nil {
		return "", err
	}

	body := fundingSourceBody{
		PlaidToken: processorToken,
		Name:       name,
		Links:      map[string]link{"on-demand-authorization": {Href: authURL}},
	}
	endpoint := fmt.Sprintf("%s%s/%s/funding-sources", c.baseURL, customersPath, customerID)

	resp, err := c.do(ctx, http.MethodPost, endpoint, body, http.StatusCreated)
	if err != nil {
		return "", fmt.Errorf("failed to create funding source: %w", err)
	}
	return location(resp)
}

// RemoveFundingSource soft-deletes a funding source. A funding source that
// no longer exists counts as removed.
func (c *Client) RemoveFundingSource(ctx context.Context, fundingSourceURL string) error {
	if !strings.HasPrefix(fundingSourceURL, c.baseURL+"/funding-sources/") {
		return fmt.Errorf("funding source URL %q does not belong to %s", fundingSourceURL, c.baseURL)
	}

	_, err := c.do(ctx, http.MethodPost, fundingSourceURL, removeBody{Removed: true}, http.StatusOK)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to remove funding source: %w", err)
	}
	return nil
}

func (c *Client) createOnDemandAuthorization(ctx context.Context) (string, error) {
	resp, err := c.do(ctx, http.MethodPost, c.baseURL+authorizationsPath, nil, http.StatusOK)
	if err != nil {
		return "", fmt.Errorf("failed to create on-demand authorization: %w", err)
	}

	var auth onDemandAuthorization
	if err := json.Unmarshal(resp.body, &auth); err != nil {
		return "", fmt.Errorf("failed to unmarshal on-demand authorization: %w", err)
	}
	self := auth.Links["self"].Href
	if self == "" {
		return "", errors.New("on-demand authorization has no self link")
	}
	return self, nil
}

type response struct {
	header http.Header
	body   []byte
}

func (c *Client) do(ctx context.Context, method, endpoint string, payload any, want int) (*response, error) {
	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", halJSON)
	if payload != nil {
		req.Header.Set("Content-Type", halJSON)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != want {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if err := json.Unmarshal(body, apiErr); err != nil {
			apiErr.Message = string(body)
		}
		return nil, apiErr
	}

	return &response{header: resp.Header, body: body}, nil
}

func location(resp *response) (string, error) {
	loc := resp.header.Get("Location")
	if loc == "" {
		return "", ErrMissingLocation
	}
	return loc, nil
}
