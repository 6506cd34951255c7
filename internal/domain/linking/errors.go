package linking

import (
	"errors"
	"fmt"
	"strings"

	"horizon/internal/infrastructure/dwolla"
	"horizon/internal/infrastructure/plaid"
)

// Kind classifies why a link attempt failed so callers can branch on cause.
type Kind string

const (
	KindUpstreamUnavailable Kind = "upstream_unavailable"
	KindInvalidInput        Kind = "invalid_input"
	KindAlreadyLinked       Kind = "already_linked"
	KindPartialFailure      Kind = "partial_failure"
)

// Step names a stage of the linking pipeline.
type Step string

const (
	StepLinkToken      Step = "create_link_token"
	StepExchange       Step = "exchange_public_token"
	StepFetchAccounts  Step = "fetch_accounts"
	StepDuplicateCheck Step = "duplicate_check"
	StepProcessorToken Step = "create_processor_token"
	StepFundingSource  Step = "create_funding_source"
	StepPersist        Step = "persist_bank_account"
)

var (
	ErrEmptyPublicToken   = errors.New("public token is required")
	ErrNoPaymentCustomer  = errors.New("user has no payment customer")
	ErrNoAccounts         = errors.New("aggregator returned no accounts")
	ErrEmptyFundingSource = errors.New("payment network returned no funding source")
	ErrAlreadyLinked      = errors.New("bank account is already linked")
)

// Error is returned by every failed orchestrator operation.
type Error struct {
	Kind Kind
	Step Step
	// Remote lists provider artifacts that still exist after compensation.
	Remote []string
	// ReconciliationID is set when remaining artifacts were queued for cleanup.
	ReconciliationID string
	Err              error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("link %s failed at %s: %v", e.Kind, e.Step, e.Err)
	if len(e.Remote) > 0 {
		msg += " (remaining: " + strings.Join(e.Remote, ", ") + ")"
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of a linking error, or "" for other errors.
func KindOf(err error) Kind {
	var linkErr *Error
	if errors.As(err, &linkErr) {
		return linkErr.Kind
	}
	return ""
}

// classify maps a step failure to the kind reported when nothing remote is left behind.
func classify(err error) Kind {
	switch {
	case errors.Is(err, ErrAlreadyLinked):
		return KindAlreadyLinked
	case errors.Is(err, ErrEmptyPublicToken),
		errors.Is(err, ErrNoPaymentCustomer),
		errors.Is(err, ErrNoAccounts),
		plaid.IsInvalidInput(err):
		return KindInvalidInput
	}

	var dwollaErr *dwolla.APIError
	if errors.As(err, &dwollaErr) && dwollaErr.IsInvalidInput() {
		return KindInvalidInput
	}
	return KindUpstreamUnavailable
}
