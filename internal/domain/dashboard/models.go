package dashboard

import (
	"time"

	"github.com/shopspring/decimal"

	"horizon/internal/domain/bank"
	"horizon/internal/domain/user"
)

// Home is the dashboard view of a user's linked accounts.
type Home struct {
	User                *user.User      `json:"user"`
	Banks               []BankSummary   `json:"banks"`
	TotalBanks          int             `json:"totalBanks"`
	TotalCurrentBalance decimal.Decimal `json:"totalCurrentBalance"`
	GeneratedAt         time.Time       `json:"generatedAt"`
}

// BankSummary pairs a linked account with its balances. Unavailable is set
// when the aggregator could not be reached for this account.
type BankSummary struct {
	ID          string `json:"id"`
	ShareableID string `json:"shareableId"`
	bank.AccountBalance
	Unavailable bool `json:"unavailable,omitempty"`
}
