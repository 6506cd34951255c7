package scheduler

import (
	"context"
	"fmt"
	"log"

	"horizon/internal/domain/linking"
	"horizon/internal/infrastructure/postgres/listener"
)

// Reconciler is the part of linking.Reconciler the jobs use.
type Reconciler interface {
	Pending(ctx context.Context) ([]*linking.Reconciliation, error)
	ReconcileByID(ctx context.Context, id string) error
}

// ReconcileJob retries the cleanup recorded by one reconciliation. The
// record is reloaded on execution so a stale queue entry is a no-op.
type ReconcileJob struct {
	id         string
	reconciler Reconciler
}

func NewReconcileJob(id string, reconciler Reconciler) *ReconcileJob {
	return &ReconcileJob{id: id, reconciler: reconciler}
}

func (j *ReconcileJob) Execute(ctx context.Context) error {
	if err := j.reconciler.ReconcileByID(ctx, j.id); err != nil {
		return fmt.Errorf("reconcile failed: %w", err)
	}
	return nil
}

func (j *ReconcileJob) Key() string {
	return "reconciliation:" + j.id
}

func (j *ReconcileJob) Description() string {
	return "reconciliation " + j.id
}

// PendingReconciliations is a JobProvider yielding one job per pending record.
func PendingReconciliations(reconciler Reconciler) JobProvider {
	return func(ctx context.Context) ([]Job, error) {
		pending, err := reconciler.Pending(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list pending reconciliations: %w", err)
		}
		jobs := make([]Job, 0, len(pending))
		for _, rec := range pending {
			jobs = append(jobs, NewReconcileJob(rec.ID, reconciler))
		}
		return jobs, nil
	}
}

// Submitter accepts jobs outside the schedule.
type Submitter interface {
	Submit(job Job) error
}

// OnReconciliationCreated queues a retry as soon as a reconciliation record
// is written, rather than waiting for the next scheduled run.
func OnReconciliationCreated(reconciler Reconciler, jobs Submitter) listener.Handler {
	return func(ctx context.Context, n listener.Notification) {
		if err := jobs.Submit(NewReconcileJob(n.ID, reconciler)); err != nil {
			log.Printf("Scheduler: Could not queue reconciliation %s: %v", n.ID, err)
		}
	}
}
