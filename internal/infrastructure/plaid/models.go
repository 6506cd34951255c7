package plaid

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"
)

// LinkTokenRequest scopes a link token to one user and one product/locale set.
type LinkTokenRequest struct {
	ClientUserID string
	ClientName   string
	Products     []string
	CountryCodes []string
	Language     string
}

type linkTokenBody struct {
	User         linkTokenUser `json:"user"`
	ClientName   string        `json:"client_name"`
	Products     []string      `json:"products"`
	CountryCodes []string      `json:"country_codes"`
	Language     string        `json:"language"`
}

type linkTokenUser struct {
	ClientUserID string `json:"client_user_id"`
}

type LinkTokenResponse struct {
	LinkToken  string `json:"link_token"`
	Expiration string `json:"expiration"`
	RequestID  string `json:"request_id"`
}

type ExchangeResponse struct {
	AccessToken string `json:"access_token"`
	ItemID      string `json:"item_id"`
	RequestID   string `json:"request_id"`
}

type AccountsResponse struct {
	Accounts  []Account `json:"accounts"`
	Item      Item      `json:"item"`
	RequestID string    `json:"request_id"`
}

type Item struct {
	ItemID        string `json:"item_id"`
	InstitutionID string `json:"institution_id"`
}

// Account represents an account descriptor returned by the aggregator
type Account struct {
	AccountID    string   `json:"account_id"`
	Name         string   `json:"name"`
	OfficialName string   `json:"official_name"`
	Mask         string   `json:"mask"`
	Type         string   `json:"type"`
	Subtype      string   `json:"subtype"`
	Balances     Balances `json:"balances"`
}

// Balances are nullable on the wire; a missing current balance counts as zero.
type Balances struct {
	Available       decimal.NullDecimal `json:"available"`
	Current         decimal.NullDecimal `json:"current"`
	Limit           decimal.NullDecimal `json:"limit"`
	ISOCurrencyCode string              `json:"iso_currency_code"`
}

type processorTokenBody struct {
	AccessToken string `json:"access_token"`
	AccountID   string `json:"account_id"`
	Processor   string `json:"processor"`
}

type processorTokenResponse struct {
	ProcessorToken string `json:"processor_token"`
	RequestID      string `json:"request_id"`
}

type accessTokenBody struct {
	AccessToken string `json:"access_token"`
}

type publicTokenBody struct {
	PublicToken string `json:"public_token"`
}

// Error types reported by the aggregator.
const (
	ErrorTypeInvalidRequest = "INVALID_REQUEST"
	ErrorTypeInvalidInput   = "INVALID_INPUT"
	ErrorTypeItemError      = "ITEM_ERROR"
	ErrorTypeAPIError       = "API_ERROR"
	ErrorTypeRateLimit      = "RATE_LIMIT_EXCEEDED"
)

// APIError represents an error response from the aggregator
type APIError struct {
	StatusCode     int    `json:"-"`
	ErrorType      string `json:"error_type"`
	ErrorCode      string `json:"error_code"`
	ErrorMessage   string `json:"error_message"`
	DisplayMessage string `json:"display_message"`
	RequestID      string `json:"request_id"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("plaid error (status %d): %s %s - %s", e.StatusCode, e.ErrorType, e.ErrorCode, e.ErrorMessage)
}

// IsInvalidInput reports whether the caller's input was rejected, as
// opposed to the aggregator being unavailable.
func (e *APIError) IsInvalidInput() bool {
	switch e.ErrorType {
	case ErrorTypeInvalidInput, ErrorTypeInvalidRequest:
		return true
	}
	return e.StatusCode == http.StatusBadRequest && e.ErrorType == ""
}

// IsItemGone reports whether the item behind an access token no longer exists.
func (e *APIError) IsItemGone() bool {
	return e.ErrorCode == "ITEM_NOT_FOUND" || e.ErrorCode == "INVALID_ACCESS_TOKEN"
}

// IsInvalidInput reports whether err is an aggregator input rejection.
func IsInvalidInput(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.IsInvalidInput()
}
