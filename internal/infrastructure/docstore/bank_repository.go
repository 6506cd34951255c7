package docstore

import (
	"context"
	"errors"
	"fmt"

	"horizon/internal/domain/bank"
	"horizon/internal/infrastructure/crypto"
)

// BankRepository stores linked accounts with the aggregator access token
// sealed at rest.
type BankRepository struct {
	store      Store
	collection string
	encryptor  *crypto.Encryptor
}

func NewBankRepository(store Store, collection string, encryptor *crypto.Encryptor) *BankRepository {
	return &BankRepository{store: store, collection: collection, encryptor: encryptor}
}

func (r *BankRepository) Create(ctx context.Context, params bank.CreateParams) (*bank.BankAccount, error) {
	token, err := r.encryptor.Encrypt(params.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt access token: %w", err)
	}

	doc, err := r.store.Create(ctx, r.collection, NewID(), map[string]any{
		"userId":           params.UserID,
		"bankId":           params.ItemID,
		"accountId":        params.AccountID,
		"accessToken":      token,
		"fundingSourceUrl": params.FundingSourceURL,
		"shareableId":      params.ShareableID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create bank account: %w", err)
	}

	return r.toBankAccount(doc)
}

func (r *BankRepository) GetByID(ctx context.Context, id string) (*bank.BankAccount, error) {
	doc, err := r.store.Get(ctx, r.collection, id)
	if errors.Is(err, ErrNotFound) {
		return nil, bank.ErrBankAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bank account: %w", err)
	}
	return r.toBankAccount(doc)
}

func (r *BankRepository) GetByAccountID(ctx context.Context, accountID string) (*bank.BankAccount, error) {
	docs, err := r.store.List(ctx, r.collection, Equal("accountId", accountID))
	if err != nil {
		return nil, fmt.Errorf("failed to query bank account: %w", err)
	}
	if len(docs) == 0 {
		return nil, bank.ErrBankAccountNotFound
	}
	return r.toBankAccount(docs[0])
}

func (r *BankRepository) ListByUserID(ctx context.Context, userID string) ([]*bank.BankAccount, error) {
	docs, err := r.store.List(ctx, r.collection, Equal("userId", userID))
	if err != nil {
		return nil, fmt.Errorf("failed to list bank accounts: %w", err)
	}

	banks := make([]*bank.BankAccount, 0, len(docs))
	for _, doc := range docs {
		b, err := r.toBankAccount(doc)
		if err != nil {
			return nil, err
		}
		banks = append(banks, b)
	}
	return banks, nil
}

func (r *BankRepository) FindByUserAndAccount(ctx context.Context, userID, accountID string) (*bank.BankAccount, error) {
	docs, err := r.store.List(ctx, r.collection, Equal("userId", userID), Equal("accountId", accountID))
	if err != nil {
		return nil, fmt.Errorf("failed to query bank account: %w", err)
	}
	if len(docs) == 0 {
		return nil, nil
	}
	return r.toBankAccount(docs[0])
}

func (r *BankRepository) toBankAccount(doc *Document) (*bank.BankAccount, error) {
	token, err := r.encryptor.Decrypt(stringField(doc.Data, "accessToken"))
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt access token for bank %s: %w", doc.ID, err)
	}

	return &bank.BankAccount{
		ID:               doc.ID,
		UserID:           stringField(doc.Data, "userId"),
		ItemID:           stringField(doc.Data, "bankId"),
		AccountID:        stringField(doc.Data, "accountId"),
		AccessToken:      token,
		FundingSourceURL: stringField(doc.Data, "fundingSourceUrl"),
		ShareableID:      stringField(doc.Data, "shareableId"),
		CreatedAt:        doc.CreatedAt,
	}, nil
}
