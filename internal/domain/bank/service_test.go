package bank

import (
	"context"
	"errors"
	"testing"
)

// MockRepository is a mock implementation of Repository interface
type MockRepository struct {
	CreateFunc               func(ctx context.Context, params CreateParams) (*BankAccount, error)
	GetByIDFunc              func(ctx context.Context, id string) (*BankAccount, error)
	GetByAccountIDFunc       func(ctx context.Context, accountID string) (*BankAccount, error)
	ListByUserIDFunc         func(ctx context.Context, userID string) ([]*BankAccount, error)
	FindByUserAndAccountFunc func(ctx context.Context, userID, accountID string) (*BankAccount, error)
}

func (m *MockRepository) Create(ctx context.Context, params CreateParams) (*BankAccount, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, params)
	}
	return &BankAccount{ID: "bank-1", UserID: params.UserID, AccountID: params.AccountID}, nil
}

func (m *MockRepository) GetByID(ctx context.Context, id string) (*BankAccount, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, ErrBankAccountNotFound
}

func (m *MockRepository) GetByAccountID(ctx context.Context, accountID string) (*BankAccount, error) {
	if m.GetByAccountIDFunc != nil {
		return m.GetByAccountIDFunc(ctx, accountID)
	}
	return nil, ErrBankAccountNotFound
}

func (m *MockRepository) ListByUserID(ctx context.Context, userID string) ([]*BankAccount, error) {
	if m.ListByUserIDFunc != nil {
		return m.ListByUserIDFunc(ctx, userID)
	}
	return nil, nil
}

func (m *MockRepository) FindByUserAndAccount(ctx context.Context, userID, accountID string) (*BankAccount, error) {
	if m.FindByUserAndAccountFunc != nil {
		return m.FindByUserAndAccountFunc(ctx, userID, accountID)
	}
	return nil, nil
}

func completeParams() CreateParams {
	return CreateParams{
		UserID:           "user-1",
		ItemID:           "item-1",
		AccountID:        "a-1",
		AccessToken:      "acc-1",
		FundingSourceURL: "https://fund/1",
		ShareableID:      EncodeShareableID("a-1"),
	}
}

func TestCreateBankAccount(t *testing.T) {
	blank := func(f func(p *CreateParams)) CreateParams {
		p := completeParams()
		f(&p)
		return p
	}

	tests := []struct {
		name    string
		params  CreateParams
		wantErr error
	}{
		{"complete", completeParams(), nil},
		{"missing user", blank(func(p *CreateParams) { p.UserID = "" }), ErrIncompleteBankAccount},
		{"missing item", blank(func(p *CreateParams) { p.ItemID = "" }), ErrIncompleteBankAccount},
		{"missing account", blank(func(p *CreateParams) { p.AccountID = "" }), ErrIncompleteBankAccount},
		{"missing access token", blank(func(p *CreateParams) { p.AccessToken = "" }), ErrIncompleteBankAccount},
		{"missing funding source", blank(func(p *CreateParams) { p.FundingSourceURL = "" }), ErrIncompleteBankAccount},
		{"missing shareable id", blank(func(p *CreateParams) { p.ShareableID = "" }), ErrIncompleteBankAccount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			created := false
			repo := &MockRepository{
				CreateFunc: func(ctx context.Context, params CreateParams) (*BankAccount, error) {
					created = true
					return &BankAccount{ID: "bank-1"}, nil
				},
			}
			svc := NewService(repo)

			_, err := svc.CreateBankAccount(context.Background(), tt.params)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("CreateBankAccount() error = %v, want %v", err, tt.wantErr)
			}
			if created != (tt.wantErr == nil) {
				t.Errorf("repository Create called = %v, want %v", created, tt.wantErr == nil)
			}
		})
	}
}

func TestGetBank_Ownership(t *testing.T) {
	repo := &MockRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*BankAccount, error) {
			if id != "bank-1" {
				return nil, ErrBankAccountNotFound
			}
			return &BankAccount{ID: id, UserID: "owner"}, nil
		},
	}
	svc := NewService(repo)

	if _, err := svc.GetBank(context.Background(), "bank-1", "owner"); err != nil {
		t.Errorf("GetBank() owner error = %v", err)
	}
	if _, err := svc.GetBank(context.Background(), "bank-1", "intruder"); !errors.Is(err, ErrForbidden) {
		t.Errorf("GetBank() intruder error = %v, want ErrForbidden", err)
	}
	if _, err := svc.GetBank(context.Background(), "missing", "owner"); !errors.Is(err, ErrBankAccountNotFound) {
		t.Errorf("GetBank() missing error = %v, want ErrBankAccountNotFound", err)
	}
}

func TestListBanks_RequiresUser(t *testing.T) {
	svc := NewService(&MockRepository{})
	if _, err := svc.ListBanks(context.Background(), ""); err == nil {
		t.Error("ListBanks(\"\") expected error, got nil")
	}
}

func TestGetByShareableID(t *testing.T) {
	repo := &MockRepository{
		GetByAccountIDFunc: func(ctx context.Context, accountID string) (*BankAccount, error) {
			if accountID != "a-1" {
				return nil, ErrBankAccountNotFound
			}
			return &BankAccount{ID: "bank-1", UserID: "owner", AccountID: accountID}, nil
		},
	}
	svc := NewService(repo)
	ctx := context.Background()

	b, err := svc.GetByShareableID(ctx, EncodeShareableID("a-1"), "owner")
	if err != nil {
		t.Fatalf("GetByShareableID() failed: %v", err)
	}
	if b.ID != "bank-1" {
		t.Errorf("GetByShareableID() = %q, want bank-1", b.ID)
	}

	if _, err := svc.GetByShareableID(ctx, EncodeShareableID("a-1"), "intruder"); !errors.Is(err, ErrForbidden) {
		t.Errorf("GetByShareableID() intruder error = %v, want ErrForbidden", err)
	}
	if _, err := svc.GetByShareableID(ctx, "!!not-base64!!", "owner"); !errors.Is(err, ErrInvalidShareableID) {
		t.Errorf("GetByShareableID() garbage error = %v, want ErrInvalidShareableID", err)
	}
	if _, err := svc.GetByShareableID(ctx, EncodeShareableID("a-2"), "owner"); !errors.Is(err, ErrBankAccountNotFound) {
		t.Errorf("GetByShareableID() unknown error = %v, want ErrBankAccountNotFound", err)
	}
}

func TestIsLinked(t *testing.T) {
	repo := &MockRepository{
		FindByUserAndAccountFunc: func(ctx context.Context, userID, accountID string) (*BankAccount, error) {
			if userID == "user-1" && accountID == "a-1" {
				return &BankAccount{ID: "bank-1"}, nil
			}
			if accountID == "boom" {
				return nil, errors.New("store unavailable")
			}
			return nil, nil
		},
	}
	svc := NewService(repo)
	ctx := context.Background()

	if linked, err := svc.IsLinked(ctx, "user-1", "a-1"); err != nil || !linked {
		t.Errorf("IsLinked(user-1, a-1) = %v, %v; want true, nil", linked, err)
	}
	if linked, err := svc.IsLinked(ctx, "user-2", "a-1"); err != nil || linked {
		t.Errorf("IsLinked(user-2, a-1) = %v, %v; want false, nil", linked, err)
	}
	if _, err := svc.IsLinked(ctx, "user-1", "boom"); err == nil {
		t.Error("IsLinked() expected store error, got nil")
	}
}
