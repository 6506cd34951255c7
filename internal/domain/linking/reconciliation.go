package linking

import (
	"context"
	"errors"
	"time"
)

type ReconciliationStatus string

const (
	StatusPending   ReconciliationStatus = "pending"
	StatusResolved  ReconciliationStatus = "resolved"
	StatusAbandoned ReconciliationStatus = "abandoned"
)

var ErrReconciliationNotFound = errors.New("reconciliation not found")

// Reconciliation records provider artifacts that a failed link attempt
// could not clean up.
type Reconciliation struct {
	ID         string               `json:"id"`
	UserID     string               `json:"userId"`
	AccountID  string               `json:"accountId,omitempty"`
	Artifacts  Artifacts            `json:"-"`
	FailedStep Step                 `json:"failedStep"`
	LastError  string               `json:"lastError"`
	Attempts   int                  `json:"attempts"`
	Status     ReconciliationStatus `json:"status"`
	CreatedAt  time.Time            `json:"createdAt"`
	UpdatedAt  time.Time            `json:"updatedAt"`
}

// ReconciliationRepository defines the interface for reconciliation data access
type ReconciliationRepository interface {
	Create(ctx context.Context, r *Reconciliation) (*Reconciliation, error)
	GetByID(ctx context.Context, id string) (*Reconciliation, error)
	ListByStatus(ctx context.Context, status ReconciliationStatus) ([]*Reconciliation, error)
	Update(ctx context.Context, r *Reconciliation) error
}
