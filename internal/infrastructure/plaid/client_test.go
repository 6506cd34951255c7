package plaid

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type ClientTestSuite struct {
	suite.Suite
}

func TestClientTestSuite(t *testing.T) {
	suite.Run(t, new(ClientTestSuite))
}

func (s *ClientTestSuite) newClient(handler http.HandlerFunc) (*Client, func()) {
	server := httptest.NewServer(handler)
	client := &Client{
		httpClient: server.Client(),
		baseURL:    server.URL,
		clientID:   "client-id",
		secret:     "secret",
	}
	return client, server.Close
}

func (s *ClientTestSuite) assertAuth(r *http.Request) {
	s.Equal(http.MethodPost, r.Method)
	s.Equal("application/json", r.Header.Get("Content-Type"))
	s.Equal("client-id", r.Header.Get("PLAID-CLIENT-ID"))
	s.Equal("secret", r.Header.Get("PLAID-SECRET"))
}

func (s *ClientTestSuite) TestNewClient() {
	client, err := NewClient("id", "secret", "sandbox")
	s.Require().NoError(err)
	s.Equal("https://sandbox.plaid.com", client.baseURL)
	s.Equal(defaultTimeout, client.httpClient.Timeout)

	_, err = NewClient("id", "secret", "staging")
	s.Error(err)
}

func (s *ClientTestSuite) TestCreateLinkToken_Success() {
	client, done := s.newClient(func(w http.ResponseWriter, r *http.Request) {
		s.assertAuth(r)
		s.Equal(linkTokenPath, r.URL.Path)

		var body linkTokenBody
		s.NoError(json.NewDecoder(r.Body).Decode(&body))
		s.Equal("user-1", body.User.ClientUserID)
		s.Equal("Ada Lovelace", body.ClientName)
		s.Equal([]string{"auth"}, body.Products)
		s.Equal([]string{"US"}, body.CountryCodes)
		s.Equal("en", body.Language)

		json.NewEncoder(w).Encode(map[string]string{"link_token": "link-sandbox-123", "expiration": "2026-01-01T00:00:00Z"})
	})
	defer done()

	resp, err := client.CreateLinkToken(context.Background(), LinkTokenRequest{
		ClientUserID: "user-1",
		ClientName:   "Ada Lovelace",
		Products:     []string{"auth"},
		CountryCodes: []string{"US"},
		Language:     "en",
	})
	s.NoError(err)
	s.Equal("link-sandbox-123", resp.LinkToken)
}

func (s *ClientTestSuite) TestExchangePublicToken_Success() {
	client, done := s.newClient(func(w http.ResponseWriter, r *http.Request) {
		s.assertAuth(r)
		s.Equal(exchangePath, r.URL.Path)

		var body publicTokenBody
		s.NoError(json.NewDecoder(r.Body).Decode(&body))
		s.Equal("pub-xyz", body.PublicToken)

		json.NewEncoder(w).Encode(map[string]string{"access_token": "acc-1", "item_id": "item-1"})
	})
	defer done()

	resp, err := client.ExchangePublicToken(context.Background(), "pub-xyz")
	s.NoError(err)
	s.Equal("acc-1", resp.AccessToken)
	s.Equal("item-1", resp.ItemID)
}

func (s *ClientTestSuite) TestExchangePublicToken_InvalidToken() {
	client, done := s.newClient(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error_type":"INVALID_INPUT","error_code":"INVALID_PUBLIC_TOKEN","error_message":"provided public token is expired"}`))
	})
	defer done()

	resp, err := client.ExchangePublicToken(context.Background(), "pub-used")
	s.Nil(resp)
	s.Error(err)

	var apiErr *APIError
	s.Require().True(errors.As(err, &apiErr))
	s.Equal(http.StatusBadRequest, apiErr.StatusCode)
	s.Equal("INVALID_PUBLIC_TOKEN", apiErr.ErrorCode)
	s.True(IsInvalidInput(err))
}

func (s *ClientTestSuite) TestExchangePublicToken_IncompleteResponse() {
	client, done := s.newClient(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"access_token":"acc-1"}`))
	})
	defer done()

	_, err := client.ExchangePublicToken(context.Background(), "pub-xyz")
	s.Error(err)
	s.False(IsInvalidInput(err))
}

func (s *ClientTestSuite) TestGetAccounts_DecodesBalances() {
	client, done := s.newClient(func(w http.ResponseWriter, r *http.Request) {
		s.assertAuth(r)
		s.Equal(accountsPath, r.URL.Path)
		w.Write([]byte(`{
			"accounts": [
				{"account_id": "a-1", "name": "Checking", "mask": "0000", "type": "depository", "subtype": "checking",
				 "balances": {"available": 100.25, "current": 110.5, "limit": null, "iso_currency_code": "USD"}},
				{"account_id": "a-2", "name": "Savings", "type": "depository", "subtype": "savings",
				 "balances": {"available": null, "current": null, "iso_currency_code": "USD"}}
			],
			"item": {"item_id": "item-1", "institution_id": "ins_109508"}
		}`))
	})
	defer done()

	resp, err := client.GetAccounts(context.Background(), "acc-1")
	s.Require().NoError(err)
	s.Len(resp.Accounts, 2)
	s.Equal("item-1", resp.Item.ItemID)

	checking := resp.Accounts[0]
	s.Equal("a-1", checking.AccountID)
	s.True(checking.Balances.Current.Valid)
	s.True(checking.Balances.Current.Decimal.Equal(decimal.RequireFromString("110.5")))
	s.True(checking.Balances.Available.Decimal.Equal(decimal.RequireFromString("100.25")))
	s.False(checking.Balances.Limit.Valid)

	s.False(resp.Accounts[1].Balances.Current.Valid)
}

func (s *ClientTestSuite) TestGetBalances_UsesBalanceEndpoint() {
	client, done := s.newClient(func(w http.ResponseWriter, r *http.Request) {
		s.Equal(balancesPath, r.URL.Path)
		w.Write([]byte(`{"accounts": [], "item": {"item_id": "item-1"}}`))
	})
	defer done()

	resp, err := client.GetBalances(context.Background(), "acc-1")
	s.NoError(err)
	s.Empty(resp.Accounts)
}

func (s *ClientTestSuite) TestCreateProcessorToken() {
	client, done := s.newClient(func(w http.ResponseWriter, r *http.Request) {
		s.assertAuth(r)
		s.Equal(processorTokenPath, r.URL.Path)

		var body processorTokenBody
		s.NoError(json.NewDecoder(r.Body).Decode(&body))
		s.Equal("acc-1", body.AccessToken)
		s.Equal("a-1", body.AccountID)
		s.Equal("dwolla", body.Processor)

		w.Write([]byte(`{"processor_token": "ptok-1"}`))
	})
	defer done()

	token, err := client.CreateProcessorToken(context.Background(), "acc-1", "a-1", "dwolla")
	s.NoError(err)
	s.Equal("ptok-1", token)
}

func (s *ClientTestSuite) TestCreateProcessorToken_ServerError() {
	client, done := s.newClient(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`upstream exploded`))
	})
	defer done()

	_, err := client.CreateProcessorToken(context.Background(), "acc-1", "a-1", "dwolla")
	s.Error(err)
	s.False(IsInvalidInput(err))
	s.Contains(err.Error(), "upstream exploded")
}

func (s *ClientTestSuite) TestRemoveItem() {
	calls := 0
	client, done := s.newClient(func(w http.ResponseWriter, r *http.Request) {
		calls++
		s.Equal(itemRemovePath, r.URL.Path)
		w.Write([]byte(`{"request_id": "r-1"}`))
	})
	defer done()

	s.NoError(client.RemoveItem(context.Background(), "acc-1"))
	s.Equal(1, calls)
}

func (s *ClientTestSuite) TestRemoveItem_AlreadyGone() {
	client, done := s.newClient(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error_type":"INVALID_INPUT","error_code":"INVALID_ACCESS_TOKEN","error_message":"gone"}`))
	})
	defer done()

	s.NoError(client.RemoveItem(context.Background(), "acc-1"))
}

func (s *ClientTestSuite) TestRequestFailure() {
	client := &Client{httpClient: http.DefaultClient, baseURL: "http://127.0.0.1:9"}

	_, err := client.GetAccounts(context.Background(), "acc-1")
	s.Error(err)
	s.Contains(err.Error(), "failed to execute request")
	s.False(IsInvalidInput(err))
}
