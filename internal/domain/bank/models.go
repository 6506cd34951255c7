package bank

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Domain errors
var (
	ErrBankAccountNotFound   = errors.New("bank account not found")
	ErrForbidden             = errors.New("access forbidden")
	ErrIncompleteBankAccount = errors.New("bank account is missing required fields")
	ErrInvalidShareableID    = errors.New("invalid shareable ID")
)

// BankAccount is one linked external account. ItemID identifies the
// aggregator connection, AccountID the account within it.
type BankAccount struct {
	ID               string    `json:"id"`
	UserID           string    `json:"userId"`
	ItemID           string    `json:"bankId"`
	AccountID        string    `json:"accountId"`
	AccessToken      string    `json:"-"`
	FundingSourceURL string    `json:"fundingSourceUrl"`
	ShareableID      string    `json:"shareableId"`
	CreatedAt        time.Time `json:"createdAt"`
}

// CreateParams contains every field of a BankAccount; all are required.
type CreateParams struct {
	UserID           string
	ItemID           string
	AccountID        string
	AccessToken      string
	FundingSourceURL string
	ShareableID      string
}

// Validate rejects partially linked records.
func (p CreateParams) Validate() error {
	switch "" {
	case p.UserID, p.ItemID, p.AccountID, p.AccessToken, p.FundingSourceURL, p.ShareableID:
		return ErrIncompleteBankAccount
	}
	return nil
}

// AccountBalance is an aggregator account as seen on the dashboard.
type AccountBalance struct {
	AccountID        string              `json:"accountId"`
	Name             string              `json:"name"`
	Mask             string              `json:"mask,omitempty"`
	Type             string              `json:"type"`
	Subtype          string              `json:"subtype,omitempty"`
	CurrentBalance   decimal.Decimal     `json:"currentBalance"`
	AvailableBalance decimal.NullDecimal `json:"availableBalance"`
	Currency         string              `json:"currency"`
}
