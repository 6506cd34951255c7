package linking

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"horizon/internal/infrastructure/dwolla"
	"horizon/internal/infrastructure/plaid"
)

// Reconciler retries the cleanup of artifacts left by failed link attempts.
type Reconciler struct {
	repo        ReconciliationRepository
	comp        compensator
	maxAttempts int
	now         func() time.Time
}

func NewReconciler(repo ReconciliationRepository, aggregator plaid.ClientInterface, payments dwolla.ClientInterface, maxAttempts int) *Reconciler {
	return &Reconciler{
		repo:        repo,
		comp:        compensator{aggregator: aggregator, payments: payments},
		maxAttempts: maxAttempts,
		now:         time.Now,
	}
}

// ReconcileSummary counts the outcomes of one pass.
type ReconcileSummary struct {
	Processed int
	Resolved  int
	Abandoned int
	Failed    int
}

func (r *Reconciler) Pending(ctx context.Context) ([]*Reconciliation, error) {
	return r.repo.ListByStatus(ctx, StatusPending)
}

// Reconcile retries the outstanding compensations of one record and stores
// the new state. Records that exhaust their attempts are abandoned for
// manual cleanup.
func (r *Reconciler) Reconcile(ctx context.Context, rec *Reconciliation) error {
	if rec.Status != StatusPending {
		return nil
	}

	remaining, err := r.comp.resume(rec.Artifacts).compensate(ctx)
	rec.Artifacts = remaining
	rec.Attempts++
	rec.UpdatedAt = r.now()

	switch {
	case remaining.Empty():
		rec.Status = StatusResolved
		rec.LastError = ""
		log.Printf("Reconciliation %s: resolved after %d attempts", rec.ID, rec.Attempts)
	case rec.Attempts >= r.maxAttempts:
		rec.Status = StatusAbandoned
		rec.LastError = errString(err)
		log.Printf("Reconciliation %s: abandoned after %d attempts, remaining %v", rec.ID, rec.Attempts, remaining.Describe())
	default:
		rec.LastError = errString(err)
		log.Printf("Reconciliation %s: attempt %d failed: %v", rec.ID, rec.Attempts, err)
	}

	if updateErr := r.repo.Update(ctx, rec); updateErr != nil {
		return fmt.Errorf("failed to update reconciliation %s: %w", rec.ID, updateErr)
	}
	reconciliationTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("status", string(rec.Status))))

	if rec.Status == StatusPending {
		return fmt.Errorf("reconciliation %s still pending: %w", rec.ID, err)
	}
	return nil
}

// ReconcileByID loads a record and reconciles it. Records that were resolved
// or abandoned since they were queued are left alone.
func (r *Reconciler) ReconcileByID(ctx context.Context, id string) error {
	rec, err := r.repo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load reconciliation %s: %w", id, err)
	}
	return r.Reconcile(ctx, rec)
}

// RunOnce reconciles every pending record sequentially.
func (r *Reconciler) RunOnce(ctx context.Context) (*ReconcileSummary, error) {
	pending, err := r.Pending(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending reconciliations: %w", err)
	}

	summary := &ReconcileSummary{}
	for _, rec := range pending {
		if ctx.Err() != nil {
			return summary, ctx.Err()
		}
		summary.Processed++
		if err := r.Reconcile(ctx, rec); err != nil {
			summary.Failed++
			continue
		}
		switch rec.Status {
		case StatusResolved:
			summary.Resolved++
		case StatusAbandoned:
			summary.Abandoned++
		}
	}
	return summary, nil
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
