package docstore

import (
	"context"
	"errors"
	"fmt"

	"horizon/internal/domain/linking"
	"horizon/internal/infrastructure/crypto"
)

type ReconciliationRepository struct {
	store      Store
	collection string
	encryptor  *crypto.Encryptor
}

func NewReconciliationRepository(store Store, collection string, encryptor *crypto.Encryptor) *ReconciliationRepository {
	return &ReconciliationRepository{store: store, collection: collection, encryptor: encryptor}
}

func (r *ReconciliationRepository) Create(ctx context.Context, rec *linking.Reconciliation) (*linking.Reconciliation, error) {
	data, err := r.toData(rec)
	if err != nil {
		return nil, err
	}

	id := rec.ID
	if id == "" {
		id = NewID()
	}
	doc, err := r.store.Create(ctx, r.collection, id, data)
	if err != nil {
		return nil, fmt.Errorf("failed to create reconciliation: %w", err)
	}
	return r.toReconciliation(doc)
}

func (r *ReconciliationRepository) GetByID(ctx context.Context, id string) (*linking.Reconciliation, error) {
	doc, err := r.store.Get(ctx, r.collection, id)
	if errors.Is(err, ErrNotFound) {
		return nil, linking.ErrReconciliationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get reconciliation: %w", err)
	}
	return r.toReconciliation(doc)
}

func (r *ReconciliationRepository) ListByStatus(ctx context.Context, status linking.ReconciliationStatus) ([]*linking.Reconciliation, error) {
	docs, err := r.store.List(ctx, r.collection, Equal("status", string(status)))
	if err != nil {
		return nil, fmt.Errorf("failed to list reconciliations: %w", err)
	}

	out := make([]*linking.Reconciliation, 0, len(docs))
	for _, doc := range docs {
		rec, err := r.toReconciliation(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func (r *ReconciliationRepository) Update(ctx context.Context, rec *linking.Reconciliation) error {
	data, err := r.toData(rec)
	if err != nil {
		return err
	}
	if err := r.store.Update(ctx, r.collection, rec.ID, data); err != nil {
		if errors.Is(err, ErrNotFound) {
			return linking.ErrReconciliationNotFound
		}
		return fmt.Errorf("failed to update reconciliation: %w", err)
	}
	return nil
}

func (r *ReconciliationRepository) toData(rec *linking.Reconciliation) (map[string]any, error) {
	token, err := r.encryptor.Encrypt(rec.Artifacts.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt access token: %w", err)
	}

	return map[string]any{
		"userId":           rec.UserID,
		"accountId":        rec.AccountID,
		"itemId":           rec.Artifacts.ItemID,
		"accessToken":      token,
		"fundingSourceUrl": rec.Artifacts.FundingSourceURL,
		"failedStep":       string(rec.FailedStep),
		"lastError":        rec.LastError,
		"attempts":         rec.Attempts,
		"status":           string(rec.Status),
		"recordedAt":       formatTime(rec.CreatedAt),
		"touchedAt":        formatTime(rec.UpdatedAt),
	}, nil
}

func (r *ReconciliationRepository) toReconciliation(doc *Document) (*linking.Reconciliation, error) {
	token, err := r.encryptor.Decrypt(stringField(doc.Data, "accessToken"))
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt access token for reconciliation %s: %w", doc.ID, err)
	}

	rec := &linking.Reconciliation{
		ID:        doc.ID,
		UserID:    stringField(doc.Data, "userId"),
		AccountID: stringField(doc.Data, "accountId"),
		Artifacts: linking.Artifacts{
			ItemID:           stringField(doc.Data, "itemId"),
			AccessToken:      token,
			FundingSourceURL: stringField(doc.Data, "fundingSourceUrl"),
		},
		FailedStep: linking.Step(stringField(doc.Data, "failedStep")),
		LastError:  stringField(doc.Data, "lastError"),
		Attempts:   intField(doc.Data, "attempts"),
		Status:     linking.ReconciliationStatus(stringField(doc.Data, "status")),
		CreatedAt:  timeField(doc.Data, "recordedAt"),
		UpdatedAt:  timeField(doc.Data, "touchedAt"),
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = doc.CreatedAt
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = doc.UpdatedAt
	}
	return rec, nil
}
