// Package linking turns an aggregator public token into a linked bank
// account, coordinating the aggregator, the payment network and the store.
package linking

import (
	"context"
	"errors"
	"log"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"horizon/internal/domain/bank"
	"horizon/internal/domain/user"
	"horizon/internal/infrastructure/dwolla"
	"horizon/internal/infrastructure/plaid"
)

const (
	StatusComplete = "complete"

	defaultCompensationTimeout = 30 * time.Second
)

var (
	tracer           = otel.Tracer("horizon/linking")
	meter            = otel.Meter("horizon/linking")
	exchangeTotal, _ = meter.Int64Counter("link.exchange.total",
		metric.WithDescription("Public token exchanges by outcome and error kind"),
	)
	reconciliationTotal, _ = meter.Int64Counter("reconciliation.records.total",
		metric.WithDescription("Reconciliation records by resulting status"),
	)
)

// Config is the link configuration injected at startup.
type Config struct {
	Products            []string
	CountryCodes        []string
	Language            string
	Processor           string
	CompensationTimeout time.Duration
}

// ViewInvalidator drops cached renderings of a user's dashboard.
type ViewInvalidator interface {
	Invalidate(ctx context.Context, userID string) error
}

// AccountSelector picks the account to link from an item's accounts.
type AccountSelector func(accounts []plaid.Account) (plaid.Account, error)

// FirstAccount links the first account the aggregator returns.
func FirstAccount(accounts []plaid.Account) (plaid.Account, error) {
	if len(accounts) == 0 {
		return plaid.Account{}, ErrNoAccounts
	}
	return accounts[0], nil
}

// Result is the outcome of a completed exchange.
type Result struct {
	Status      string
	BankAccount *bank.BankAccount
}

type Orchestrator struct {
	cfg             Config
	aggregator      plaid.ClientInterface
	payments        dwolla.ClientInterface
	banks           *bank.Service
	reconciliations ReconciliationRepository
	views           ViewInvalidator
	comp            compensator

	SelectAccount AccountSelector
}

func NewOrchestrator(
	cfg Config,
	aggregator plaid.ClientInterface,
	payments dwolla.ClientInterface,
	banks *bank.Service,
	reconciliations ReconciliationRepository,
	views ViewInvalidator,
) *Orchestrator {
	if cfg.CompensationTimeout <= 0 {
		cfg.CompensationTimeout = defaultCompensationTimeout
	}
	if views == nil {
		views = noopInvalidator{}
	}
	return &Orchestrator{
		cfg:             cfg,
		aggregator:      aggregator,
		payments:        payments,
		banks:           banks,
		reconciliations: reconciliations,
		views:           views,
		comp:            compensator{aggregator: aggregator, payments: payments},
		SelectAccount:   FirstAccount,
	}
}

// CreateLinkToken issues a link token scoped to the configured products and locale.
func (o *Orchestrator) CreateLinkToken(ctx context.Context, u *user.User) (string, error) {
	ctx, span := tracer.Start(ctx, "linking.CreateLinkToken", trace.WithAttributes(attribute.String("user.id", u.ID)))
	defer span.End()

	resp, err := o.aggregator.CreateLinkToken(ctx, plaid.LinkTokenRequest{
		ClientUserID: u.ID,
		ClientName:   u.FullName(),
		Products:     o.cfg.Products,
		CountryCodes: o.cfg.CountryCodes,
		Language:     o.cfg.Language,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Printf("User %s: Error creating link token: %v", u.ID, err)
		return "", &Error{Kind: classify(err), Step: StepLinkToken, Err: err}
	}
	return resp.LinkToken, nil
}

// ExchangePublicToken runs the linking pipeline. Steps run strictly in
// order; on failure the remote artifacts created so far are compensated and
// anything that cannot be undone is recorded for reconciliation.
func (o *Orchestrator) ExchangePublicToken(ctx context.Context, publicToken string, u *user.User) (*Result, error) {
	ctx, span := tracer.Start(ctx, "linking.ExchangePublicToken", trace.WithAttributes(attribute.String("user.id", u.ID)))
	defer span.End()

	result, err := o.exchange(ctx, publicToken, u)

	outcome := StatusComplete
	if err != nil {
		outcome = "failed"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Printf("User %s: Error exchanging public token: %v", u.ID, err)
	}
	exchangeTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("outcome", outcome),
		attribute.String("kind", string(KindOf(err))),
	))
	return result, err
}

func (o *Orchestrator) exchange(ctx context.Context, publicToken string, u *user.User) (*Result, error) {
	if publicToken == "" {
		return nil, &Error{Kind: KindInvalidInput, Step: StepExchange, Err: ErrEmptyPublicToken}
	}
	if u.PaymentCustomerID == "" {
		return nil, &Error{Kind: KindInvalidInput, Step: StepFundingSource, Err: ErrNoPaymentCustomer}
	}

	s := &saga{}

	// 1. Public token for access token and item.
	var exch *plaid.ExchangeResponse
	err := o.step(ctx, StepExchange, func(ctx context.Context) (err error) {
		exch, err = o.aggregator.ExchangePublicToken(ctx, publicToken)
		return err
	})
	if err != nil {
		return nil, o.fail(ctx, s, u, "", StepExchange, err)
	}
	s.artifacts.ItemID = exch.ItemID
	s.artifacts.AccessToken = exch.AccessToken
	s.add(o.comp.removeItem())

	// 2. Account details.
	var account plaid.Account
	err = o.step(ctx, StepFetchAccounts, func(ctx context.Context) error {
		resp, err := o.aggregator.GetAccounts(ctx, exch.AccessToken)
		if err != nil {
			return err
		}
		account, err = o.SelectAccount(resp.Accounts)
		return err
	})
	if err != nil {
		return nil, o.fail(ctx, s, u, "", StepFetchAccounts, err)
	}

	err = o.step(ctx, StepDuplicateCheck, func(ctx context.Context) error {
		linked, err := o.banks.IsLinked(ctx, u.ID, account.AccountID)
		if err != nil {
			return err
		}
		if linked {
			return ErrAlreadyLinked
		}
		return nil
	})
	if err != nil {
		return nil, o.fail(ctx, s, u, account.AccountID, StepDuplicateCheck, err)
	}

	// 3. Processor token for the payment network.
	var processorToken string
	err = o.step(ctx, StepProcessorToken, func(ctx context.Context) (err error) {
		processorToken, err = o.aggregator.CreateProcessorToken(ctx, exch.AccessToken, account.AccountID, o.cfg.Processor)
		return err
	})
	if err != nil {
		return nil, o.fail(ctx, s, u, account.AccountID, StepProcessorToken, err)
	}

	// 4. Funding source on the user's payment customer.
	var fundingSourceURL string
	err = o.step(ctx, StepFundingSource, func(ctx context.Context) (err error) {
		fundingSourceURL, err = o.payments.CreateFundingSource(ctx, u.PaymentCustomerID, processorToken, account.Name)
		if err == nil && fundingSourceURL == "" {
			err = ErrEmptyFundingSource
		}
		return err
	})
	if err != nil {
		return nil, o.fail(ctx, s, u, account.AccountID, StepFundingSource, err)
	}
	s.artifacts.FundingSourceURL = fundingSourceURL
	s.add(o.comp.removeFundingSource())

	// 5. Persist the fully formed record.
	var created *bank.BankAccount
	err = o.step(ctx, StepPersist, func(ctx context.Context) (err error) {
		created, err = o.banks.CreateBankAccount(ctx, bank.CreateParams{
			UserID:           u.ID,
			ItemID:           exch.ItemID,
			AccountID:        account.AccountID,
			AccessToken:      exch.AccessToken,
			FundingSourceURL: fundingSourceURL,
			ShareableID:      bank.EncodeShareableID(account.AccountID),
		})
		return err
	})
	if err != nil {
		return nil, o.fail(ctx, s, u, account.AccountID, StepPersist, err)
	}

	// 6. Drop the cached dashboard. The link itself already succeeded.
	if err := o.views.Invalidate(ctx, u.ID); err != nil {
		log.Printf("User %s: Error invalidating dashboard cache: %v", u.ID, err)
	}

	log.Printf("User %s: Linked account %s (item %s)", u.ID, created.ID, exch.ItemID)
	return &Result{Status: StatusComplete, BankAccount: created}, nil
}

func (o *Orchestrator) step(ctx context.Context, step Step, fn func(ctx context.Context) error) error {
	ctx, span := tracer.Start(ctx, "linking."+string(step))
	defer span.End()

	if err := fn(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

// fail compensates the saga and builds the error returned to the caller.
// Compensation runs on a context detached from the request so a cancelled
// request still cleans up.
func (o *Orchestrator) fail(ctx context.Context, s *saga, u *user.User, accountID string, step Step, cause error) error {
	if len(s.compensations) == 0 {
		return &Error{Kind: classify(cause), Step: step, Err: cause}
	}

	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.cfg.CompensationTimeout)
	defer cancel()

	remaining, compErr := s.compensate(cctx)
	if remaining.Empty() {
		log.Printf("User %s: Compensated link attempt after %s failure", u.ID, step)
		return &Error{Kind: classify(cause), Step: step, Err: cause}
	}

	lastErr := cause.Error()
	if compErr != nil {
		lastErr = compErr.Error()
	}
	linkErr := &Error{
		Kind:   KindPartialFailure,
		Step:   step,
		Remote: remaining.Describe(),
		Err:    errors.Join(cause, compErr),
	}

	rec, err := o.reconciliations.Create(cctx, &Reconciliation{
		UserID:     u.ID,
		AccountID:  accountID,
		Artifacts:  remaining,
		FailedStep: step,
		LastError:  lastErr,
		Status:     StatusPending,
	})
	if err != nil {
		log.Printf("User %s: Error recording reconciliation for %v: %v", u.ID, remaining.Describe(), err)
		return linkErr
	}

	linkErr.ReconciliationID = rec.ID
	reconciliationTotal.Add(cctx, 1, metric.WithAttributes(attribute.String("status", string(StatusPending))))
	log.Printf("User %s: Queued reconciliation %s for %v", u.ID, rec.ID, remaining.Describe())
	return linkErr
}

type noopInvalidator struct{}

func (noopInvalidator) Invalidate(context.Context, string) error { return nil }
