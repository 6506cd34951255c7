package linking

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"horizon/internal/domain/bank"
	"horizon/internal/infrastructure/dwolla"
	"horizon/internal/infrastructure/plaid"
)

type MockAggregator struct {
	CreateLinkTokenFunc      func(ctx context.Context, req plaid.LinkTokenRequest) (*plaid.LinkTokenResponse, error)
	ExchangePublicTokenFunc  func(ctx context.Context, publicToken string) (*plaid.ExchangeResponse, error)
	GetAccountsFunc          func(ctx context.Context, accessToken string) (*plaid.AccountsResponse, error)
	GetBalancesFunc          func(ctx context.Context, accessToken string) (*plaid.AccountsResponse, error)
	CreateProcessorTokenFunc func(ctx context.Context, accessToken, accountID, processor string) (string, error)
	RemoveItemFunc           func(ctx context.Context, accessToken string) error

	calls []string
}

func (m *MockAggregator) CreateLinkToken(ctx context.Context, req plaid.LinkTokenRequest) (*plaid.LinkTokenResponse, error) {
	m.calls = append(m.calls, "CreateLinkToken")
	if m.CreateLinkTokenFunc != nil {
		return m.CreateLinkTokenFunc(ctx, req)
	}
	return &plaid.LinkTokenResponse{LinkToken: "link-sandbox-1"}, nil
}

func (m *MockAggregator) ExchangePublicToken(ctx context.Context, publicToken string) (*plaid.ExchangeResponse, error) {
	m.calls = append(m.calls, "ExchangePublicToken")
	if m.ExchangePublicTokenFunc != nil {
		return m.ExchangePublicTokenFunc(ctx, publicToken)
	}
	return &plaid.ExchangeResponse{AccessToken: "acc-1", ItemID: "item-1"}, nil
}

func (m *MockAggregator) GetAccounts(ctx context.Context, accessToken string) (*plaid.AccountsResponse, error) {
	m.calls = append(m.calls, "GetAccounts")
	if m.GetAccountsFunc != nil {
		return m.GetAccountsFunc(ctx, accessToken)
	}
	return &plaid.AccountsResponse{Accounts: []plaid.Account{{AccountID: "a-1", Name: "Checking"}}}, nil
}

func (m *MockAggregator) GetBalances(ctx context.Context, accessToken string) (*plaid.AccountsResponse, error) {
	m.calls = append(m.calls, "GetBalances")
	if m.GetBalancesFunc != nil {
		return m.GetBalancesFunc(ctx, accessToken)
	}
	return &plaid.AccountsResponse{}, nil
}

func (m *MockAggregator) CreateProcessorToken(ctx context.Context, accessToken, accountID, processor string) (string, error) {
	m.calls = append(m.calls, "CreateProcessorToken")
	if m.CreateProcessorTokenFunc != nil {
		return m.CreateProcessorTokenFunc(ctx, accessToken, accountID, processor)
	}
	return "ptok-1", nil
}

func (m *MockAggregator) RemoveItem(ctx context.Context, accessToken string) error {
	m.calls = append(m.calls, "RemoveItem")
	if m.RemoveItemFunc != nil {
		return m.RemoveItemFunc(ctx, accessToken)
	}
	return nil
}

func (m *MockAggregator) called(name string) bool {
	for _, c := range m.calls {
		if c == name {
			return true
		}
	}
	return false
}

type MockPayments struct {
	CreateCustomerFunc      func(ctx context.Context, req dwolla.CustomerRequest) (string, error)
	CreateFundingSourceFunc func(ctx context.Context, customerID, processorToken, name string) (string, error)
	RemoveFundingSourceFunc func(ctx context.Context, fundingSourceURL string) error

	calls []string
}

func (m *MockPayments) CreateCustomer(ctx context.Context, req dwolla.CustomerRequest) (string, error) {
	m.calls = append(m.calls, "CreateCustomer")
	if m.CreateCustomerFunc != nil {
		return m.CreateCustomerFunc(ctx, req)
	}
	return "https://api-sandbox.dwolla.com/customers/cust_123", nil
}

func (m *MockPayments) CreateFundingSource(ctx context.Context, customerID, processorToken, name string) (string, error) {
	m.calls = append(m.calls, "CreateFundingSource")
	if m.CreateFundingSourceFunc != nil {
		return m.CreateFundingSourceFunc(ctx, customerID, processorToken, name)
	}
	return "https://fund/1", nil
}

func (m *MockPayments) RemoveFundingSource(ctx context.Context, fundingSourceURL string) error {
	m.calls = append(m.calls, "RemoveFundingSource")
	if m.RemoveFundingSourceFunc != nil {
		return m.RemoveFundingSourceFunc(ctx, fundingSourceURL)
	}
	return nil
}

func (m *MockPayments) called(name string) bool {
	for _, c := range m.calls {
		if c == name {
			return true
		}
	}
	return false
}

// memoryBankRepo is a minimal in-memory bank.Repository.
type memoryBankRepo struct {
	mu        sync.Mutex
	accounts  []*bank.BankAccount
	createErr error
}

func (r *memoryBankRepo) Create(ctx context.Context, params bank.CreateParams) (*bank.BankAccount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return nil, r.createErr
	}
	b := &bank.BankAccount{
		ID:               fmt.Sprintf("bank-%d", len(r.accounts)+1),
		UserID:           params.UserID,
		ItemID:           params.ItemID,
		AccountID:        params.AccountID,
		AccessToken:      params.AccessToken,
		FundingSourceURL: params.FundingSourceURL,
		ShareableID:      params.ShareableID,
	}
	r.accounts = append(r.accounts, b)
	return b, nil
}

func (r *memoryBankRepo) GetByID(ctx context.Context, id string) (*bank.BankAccount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.accounts {
		if b.ID == id {
			return b, nil
		}
	}
	return nil, bank.ErrBankAccountNotFound
}

func (r *memoryBankRepo) GetByAccountID(ctx context.Context, accountID string) (*bank.BankAccount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.accounts {
		if b.AccountID == accountID {
			return b, nil
		}
	}
	return nil, bank.ErrBankAccountNotFound
}

func (r *memoryBankRepo) ListByUserID(ctx context.Context, userID string) ([]*bank.BankAccount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*bank.BankAccount
	for _, b := range r.accounts {
		if b.UserID == userID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (r *memoryBankRepo) FindByUserAndAccount(ctx context.Context, userID, accountID string) (*bank.BankAccount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.accounts {
		if b.UserID == userID && b.AccountID == accountID {
			return b, nil
		}
	}
	return nil, nil
}

// memoryReconciliationRepo is a minimal in-memory ReconciliationRepository.
type memoryReconciliationRepo struct {
	mu        sync.Mutex
	records   map[string]*Reconciliation
	order     []string
	createErr error
	updateErr error
}

func newMemoryReconciliationRepo() *memoryReconciliationRepo {
	return &memoryReconciliationRepo{records: make(map[string]*Reconciliation)}
}

func (r *memoryReconciliationRepo) Create(ctx context.Context, rec *Reconciliation) (*Reconciliation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return nil, r.createErr
	}
	cp := *rec
	cp.ID = fmt.Sprintf("rec-%d", len(r.order)+1)
	r.records[cp.ID] = &cp
	r.order = append(r.order, cp.ID)
	out := cp
	return &out, nil
}

func (r *memoryReconciliationRepo) GetByID(ctx context.Context, id string) (*Reconciliation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok {
		return nil, ErrReconciliationNotFound
	}
	cp := *rec
	return &cp, nil
}

func (r *memoryReconciliationRepo) ListByStatus(ctx context.Context, status ReconciliationStatus) ([]*Reconciliation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*Reconciliation
	for _, id := range r.order {
		if rec := r.records[id]; rec.Status == status {
			cp := *rec
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memoryReconciliationRepo) Update(ctx context.Context, rec *Reconciliation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return r.updateErr
	}
	if _, ok := r.records[rec.ID]; !ok {
		return ErrReconciliationNotFound
	}
	cp := *rec
	r.records[rec.ID] = &cp
	return nil
}

type MockInvalidator struct {
	InvalidateFunc func(ctx context.Context, userID string) error
	invalidated    []string
}

func (m *MockInvalidator) Invalidate(ctx context.Context, userID string) error {
	m.invalidated = append(m.invalidated, userID)
	if m.InvalidateFunc != nil {
		return m.InvalidateFunc(ctx, userID)
	}
	return nil
}

var errUpstream = errors.New("connection reset by peer")
