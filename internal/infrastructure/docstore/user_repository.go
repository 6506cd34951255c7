package docstore

import (
	"context"
	"errors"
	"fmt"

	"horizon/internal/domain/user"
	"horizon/internal/infrastructure/crypto"
)

type UserRepository struct {
	store      Store
	collection string
	encryptor  *crypto.Encryptor
}

func NewUserRepository(store Store, collection string, encryptor *crypto.Encryptor) *UserRepository {
	return &UserRepository{store: store, collection: collection, encryptor: encryptor}
}

func (r *UserRepository) Create(ctx context.Context, params user.CreateUserParams) (*user.User, error) {
	ssn, err := r.encryptor.Encrypt(params.Profile.SSN)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt SSN: %w", err)
	}

	p := params.Profile
	doc, err := r.store.Create(ctx, r.collection, NewID(), map[string]any{
		"identityId":         params.IdentityID,
		"email":              params.Email,
		"firstName":          p.FirstName,
		"lastName":           p.LastName,
		"address1":           p.Address1,
		"city":               p.City,
		"state":              p.State,
		"postalCode":         p.PostalCode,
		"dateOfBirth":        p.DateOfBirth,
		"ssn":                ssn,
		"paymentCustomerId":  params.PaymentCustomerID,
		"paymentCustomerUrl": params.PaymentCustomerURL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return r.toUser(doc)
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*user.User, error) {
	doc, err := r.store.Get(ctx, r.collection, id)
	if errors.Is(err, ErrNotFound) {
		return nil, user.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return r.toUser(doc)
}

func (r *UserRepository) GetByIdentityID(ctx context.Context, identityID string) (*user.User, error) {
	docs, err := r.store.List(ctx, r.collection, Equal("identityId", identityID))
	if err != nil {
		return nil, fmt.Errorf("failed to query user by identity: %w", err)
	}
	if len(docs) == 0 {
		return nil, user.ErrUserNotFound
	}
	return r.toUser(docs[0])
}

func (r *UserRepository) toUser(doc *Document) (*user.User, error) {
	ssn, err := r.encryptor.Decrypt(stringField(doc.Data, "ssn"))
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt SSN for user %s: %w", doc.ID, err)
	}

	return &user.User{
		ID:                 doc.ID,
		IdentityID:         stringField(doc.Data, "identityId"),
		Email:              stringField(doc.Data, "email"),
		FirstName:          stringField(doc.Data, "firstName"),
		LastName:           stringField(doc.Data, "lastName"),
		Address1:           stringField(doc.Data, "address1"),
		City:               stringField(doc.Data, "city"),
		State:              stringField(doc.Data, "state"),
		PostalCode:         stringField(doc.Data, "postalCode"),
		DateOfBirth:        stringField(doc.Data, "dateOfBirth"),
		SSN:                ssn,
		PaymentCustomerID:  stringField(doc.Data, "paymentCustomerId"),
		PaymentCustomerURL: stringField(doc.Data, "paymentCustomerUrl"),
		CreatedAt:          doc.CreatedAt,
	}, nil
}
