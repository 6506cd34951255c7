package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"

	"horizon/internal/domain/bank"
	"horizon/internal/domain/dashboard"
	"horizon/internal/domain/linking"
	"horizon/internal/domain/user"
	"horizon/internal/shared/middleware"
)

// MockUserService implements UserService for testing
type MockUserService struct {
	SignUpFunc func(ctx context.Context, params user.SignUpParams) (*user.User, *user.Session, error)
	SignInFunc func(ctx context.Context, email, password string) (*user.User, *user.Session, error)
	LogoutFunc func(ctx context.Context, secret string) error
}

func (m *MockUserService) SignUp(ctx context.Context, params user.SignUpParams) (*user.User, *user.Session, error) {
	if m.SignUpFunc != nil {
		return m.SignUpFunc(ctx, params)
	}
	return nil, nil, nil
}

func (m *MockUserService) SignIn(ctx context.Context, email, password string) (*user.User, *user.Session, error) {
	if m.SignInFunc != nil {
		return m.SignInFunc(ctx, email, password)
	}
	return nil, nil, nil
}

func (m *MockUserService) Logout(ctx context.Context, secret string) error {
	if m.LogoutFunc != nil {
		return m.LogoutFunc(ctx, secret)
	}
	return nil
}

// MockLinkService implements LinkService for testing
type MockLinkService struct {
	CreateLinkTokenFunc     func(ctx context.Context, u *user.User) (string, error)
	ExchangePublicTokenFunc func(ctx context.Context, publicToken string, u *user.User) (*linking.Result, error)
}

func (m *MockLinkService) CreateLinkToken(ctx context.Context, u *user.User) (string, error) {
	if m.CreateLinkTokenFunc != nil {
		return m.CreateLinkTokenFunc(ctx, u)
	}
	return "", nil
}

func (m *MockLinkService) ExchangePublicToken(ctx context.Context, publicToken string, u *user.User) (*linking.Result, error) {
	if m.ExchangePublicTokenFunc != nil {
		return m.ExchangePublicTokenFunc(ctx, publicToken, u)
	}
	return &linking.Result{Status: linking.StatusComplete}, nil
}

// MockBankService implements BankService for testing
type MockBankService struct {
	ListBanksFunc        func(ctx context.Context, userID string) ([]*bank.BankAccount, error)
	GetBankFunc          func(ctx context.Context, id, userID string) (*bank.BankAccount, error)
	GetByShareableIDFunc func(ctx context.Context, shareableID, userID string) (*bank.BankAccount, error)
}

func (m *MockBankService) ListBanks(ctx context.Context, userID string) ([]*bank.BankAccount, error) {
	if m.ListBanksFunc != nil {
		return m.ListBanksFunc(ctx, userID)
	}
	return nil, nil
}

func (m *MockBankService) GetBank(ctx context.Context, id, userID string) (*bank.BankAccount, error) {
	if m.GetBankFunc != nil {
		return m.GetBankFunc(ctx, id, userID)
	}
	return nil, bank.ErrBankAccountNotFound
}

func (m *MockBankService) GetByShareableID(ctx context.Context, shareableID, userID string) (*bank.BankAccount, error) {
	if m.GetByShareableIDFunc != nil {
		return m.GetByShareableIDFunc(ctx, shareableID, userID)
	}
	return nil, bank.ErrBankAccountNotFound
}

// MockDashboardService implements DashboardService for testing
type MockDashboardService struct {
	GetHomeFunc func(ctx context.Context, u *user.User) (*dashboard.Home, error)
}

func (m *MockDashboardService) GetHome(ctx context.Context, u *user.User) (*dashboard.Home, error) {
	if m.GetHomeFunc != nil {
		return m.GetHomeFunc(ctx, u)
	}
	return &dashboard.Home{User: u}, nil
}

var testUser = &user.User{
	ID:                "user-1",
	IdentityID:        "identity-1",
	Email:             "ada@example.com",
	FirstName:         "Ada",
	LastName:          "Lovelace",
	PaymentCustomerID: "cust-1",
}

func authedRequest(method, target, body string) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	return req.WithContext(middleware.WithUser(req.Context(), testUser))
}
