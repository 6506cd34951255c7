package bank

import (
	"context"
	"errors"
	"fmt"
)

// Service contains the read path for linked bank accounts.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// CreateBankAccount persists a fully formed bank account.
func (s *Service) CreateBankAccount(ctx context.Context, params CreateParams) (*BankAccount, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return s.repo.Create(ctx, params)
}

// GetBank retrieves a bank account by ID and verifies user ownership
func (s *Service) GetBank(ctx context.Context, id, userID string) (*BankAccount, error) {
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.UserID != userID {
		return nil, ErrForbidden
	}
	return b, nil
}

// IsLinked reports whether the user already has a record for the account.
func (s *Service) IsLinked(ctx context.Context, userID, accountID string) (bool, error) {
	b, err := s.repo.FindByUserAndAccount(ctx, userID, accountID)
	if err != nil {
		return false, err
	}
	return b != nil, nil
}

func (s *Service) GetBankByAccountID(ctx context.Context, accountID string) (*BankAccount, error) {
	return s.repo.GetByAccountID(ctx, accountID)
}

func (s *Service) ListBanks(ctx context.Context, userID string) ([]*BankAccount, error) {
	if userID == "" {
		return nil, errors.New("valid user ID is required")
	}
	return s.repo.ListByUserID(ctx, userID)
}

// GetByShareableID resolves a shared link for its owner.
func (s *Service) GetByShareableID(ctx context.Context, shareableID, userID string) (*BankAccount, error) {
	accountID, err := DecodeShareableID(shareableID)
	if err != nil {
		return nil, err
	}

	b, err := s.repo.GetByAccountID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve shareable ID: %w", err)
	}
	if b.UserID != userID {
		return nil, ErrForbidden
	}
	return b, nil
}
