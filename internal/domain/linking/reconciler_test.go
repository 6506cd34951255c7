package linking

import (
	"context"
	"errors"
	"testing"
	"time"
)

func seedReconciliation(t *testing.T, repo *memoryReconciliationRepo, a Artifacts, attempts int) *Reconciliation {
	t.Helper()
	rec, err := repo.Create(context.Background(), &Reconciliation{
		UserID:     "user-1",
		AccountID:  "a-1",
		Artifacts:  a,
		FailedStep: StepPersist,
		LastError:  "store unavailable",
		Attempts:   attempts,
		Status:     StatusPending,
	})
	if err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	return rec
}

func TestReconcile_Resolves(t *testing.T) {
	repo := newMemoryReconciliationRepo()
	aggregator := &MockAggregator{}
	payments := &MockPayments{}
	r := NewReconciler(repo, aggregator, payments, 3)
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return fixed }

	rec := seedReconciliation(t, repo, Artifacts{ItemID: "item-1", AccessToken: "acc-1", FundingSourceURL: "https://fund/1"}, 0)

	if err := r.Reconcile(context.Background(), rec); err != nil {
		t.Fatalf("Reconcile() failed: %v", err)
	}

	stored, _ := repo.GetByID(context.Background(), rec.ID)
	if stored.Status != StatusResolved {
		t.Errorf("Status = %q, want %q", stored.Status, StatusResolved)
	}
	if stored.Attempts != 1 || !stored.UpdatedAt.Equal(fixed) {
		t.Errorf("Attempts = %d, UpdatedAt = %v", stored.Attempts, stored.UpdatedAt)
	}
	if !stored.Artifacts.Empty() || stored.LastError != "" {
		t.Errorf("resolved record still carries %+v / %q", stored.Artifacts, stored.LastError)
	}
	if len(payments.calls) != 1 || len(aggregator.calls) != 1 {
		t.Errorf("calls = %v / %v", payments.calls, aggregator.calls)
	}
}

func TestReconcile_PartialProgressStaysPending(t *testing.T) {
	repo := newMemoryReconciliationRepo()
	aggregator := &MockAggregator{
		RemoveItemFunc: func(ctx context.Context, accessToken string) error {
			return errUpstream
		},
	}
	r := NewReconciler(repo, aggregator, &MockPayments{}, 3)

	rec := seedReconciliation(t, repo, Artifacts{ItemID: "item-1", AccessToken: "acc-1", FundingSourceURL: "https://fund/1"}, 0)

	err := r.Reconcile(context.Background(), rec)
	if !errors.Is(err, errUpstream) {
		t.Errorf("Reconcile() error = %v, want wrapped upstream error", err)
	}

	stored, _ := repo.GetByID(context.Background(), rec.ID)
	if stored.Status != StatusPending {
		t.Errorf("Status = %q, want pending", stored.Status)
	}
	if stored.Artifacts.FundingSourceURL != "" {
		t.Error("removed funding source still recorded")
	}
	if stored.Artifacts.ItemID != "item-1" || stored.Artifacts.AccessToken != "acc-1" {
		t.Errorf("outstanding item lost: %+v", stored.Artifacts)
	}
	if stored.Attempts != 1 || stored.LastError == "" {
		t.Errorf("Attempts = %d, LastError = %q", stored.Attempts, stored.LastError)
	}
}

func TestReconcile_AbandonsAfterMaxAttempts(t *testing.T) {
	repo := newMemoryReconciliationRepo()
	payments := &MockPayments{
		RemoveFundingSourceFunc: func(ctx context.Context, url string) error {
			return errUpstream
		},
	}
	r := NewReconciler(repo, &MockAggregator{}, payments, 3)

	rec := seedReconciliation(t, repo, Artifacts{FundingSourceURL: "https://fund/1"}, 2)

	if err := r.Reconcile(context.Background(), rec); err != nil {
		t.Fatalf("Reconcile() error = %v, want nil for abandoned record", err)
	}

	stored, _ := repo.GetByID(context.Background(), rec.ID)
	if stored.Status != StatusAbandoned {
		t.Errorf("Status = %q, want abandoned", stored.Status)
	}
	if stored.Attempts != 3 {
		t.Errorf("Attempts = %d, want 3", stored.Attempts)
	}
}

func TestReconcile_SkipsSettledRecords(t *testing.T) {
	repo := newMemoryReconciliationRepo()
	aggregator := &MockAggregator{}
	r := NewReconciler(repo, aggregator, &MockPayments{}, 3)

	rec := &Reconciliation{ID: "rec-x", Status: StatusResolved, Artifacts: Artifacts{ItemID: "item-1", AccessToken: "acc-1"}}
	if err := r.Reconcile(context.Background(), rec); err != nil {
		t.Errorf("Reconcile() error = %v", err)
	}
	if len(aggregator.calls) != 0 {
		t.Error("resolved record was compensated again")
	}
}

func TestReconcile_UpdateFails(t *testing.T) {
	repo := newMemoryReconciliationRepo()
	r := NewReconciler(repo, &MockAggregator{}, &MockPayments{}, 3)
	rec := seedReconciliation(t, repo, Artifacts{ItemID: "item-1", AccessToken: "acc-1"}, 0)
	repo.updateErr = errors.New("store unavailable")

	if err := r.Reconcile(context.Background(), rec); err == nil {
		t.Error("Reconcile() expected error when update fails")
	}
}

func TestRunOnce(t *testing.T) {
	repo := newMemoryReconciliationRepo()
	payments := &MockPayments{
		RemoveFundingSourceFunc: func(ctx context.Context, url string) error {
			if url == "https://fund/stuck" {
				return errUpstream
			}
			return nil
		},
	}
	r := NewReconciler(repo, &MockAggregator{}, payments, 2)

	seedReconciliation(t, repo, Artifacts{ItemID: "item-1", AccessToken: "acc-1"}, 0)
	seedReconciliation(t, repo, Artifacts{FundingSourceURL: "https://fund/stuck"}, 0)
	seedReconciliation(t, repo, Artifacts{FundingSourceURL: "https://fund/stuck"}, 1)
	settled := seedReconciliation(t, repo, Artifacts{}, 0)
	settled.Status = StatusResolved
	repo.Update(context.Background(), settled)

	summary, err := r.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce() failed: %v", err)
	}

	want := ReconcileSummary{Processed: 3, Resolved: 1, Abandoned: 1, Failed: 1}
	if *summary != want {
		t.Errorf("summary = %+v, want %+v", *summary, want)
	}

	pending, _ := r.Pending(context.Background())
	if len(pending) != 1 {
		t.Errorf("pending after pass = %d, want 1", len(pending))
	}
}

func TestRunOnce_StopsOnCancel(t *testing.T) {
	repo := newMemoryReconciliationRepo()
	r := NewReconciler(repo, &MockAggregator{}, &MockPayments{}, 3)
	seedReconciliation(t, repo, Artifacts{ItemID: "item-1", AccessToken: "acc-1"}, 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := r.RunOnce(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("RunOnce() error = %v, want context.Canceled", err)
	}
	if summary.Processed != 0 {
		t.Errorf("Processed = %d, want 0", summary.Processed)
	}
}

func TestSaga_CompensateAttemptsEveryStep(t *testing.T) {
	aggregator := &MockAggregator{}
	payments := &MockPayments{
		RemoveFundingSourceFunc: func(ctx context.Context, url string) error {
			return errUpstream
		},
	}
	comp := compensator{aggregator: aggregator, payments: payments}
	s := comp.resume(Artifacts{ItemID: "item-1", AccessToken: "acc-1", FundingSourceURL: "https://fund/1"})

	remaining, err := s.compensate(context.Background())
	if !errors.Is(err, errUpstream) {
		t.Errorf("compensate() error = %v", err)
	}
	if !aggregator.called("RemoveItem") {
		t.Error("item removal skipped after funding source removal failed")
	}
	if remaining.ItemID != "" || remaining.FundingSourceURL != "https://fund/1" {
		t.Errorf("remaining = %+v", remaining)
	}
	if got := remaining.Describe(); len(got) != 1 || got[0] != "funding source https://fund/1" {
		t.Errorf("Describe() = %v", got)
	}
}

func TestReconcileByID(t *testing.T) {
	repo := newMemoryReconciliationRepo()
	aggregator := &MockAggregator{}
	r := NewReconciler(repo, aggregator, &MockPayments{}, 3)

	rec := seedReconciliation(t, repo, Artifacts{ItemID: "item-1", AccessToken: "acc-1"}, 0)

	if err := r.ReconcileByID(context.Background(), rec.ID); err != nil {
		t.Fatalf("ReconcileByID() failed: %v", err)
	}
	stored, _ := repo.GetByID(context.Background(), rec.ID)
	if stored.Status != StatusResolved {
		t.Errorf("Status = %q, want resolved", stored.Status)
	}

	// A second run sees the resolved record and does nothing.
	if err := r.ReconcileByID(context.Background(), rec.ID); err != nil {
		t.Fatalf("second ReconcileByID() failed: %v", err)
	}
	if len(aggregator.calls) != 1 {
		t.Errorf("aggregator calls = %v, want one removal", aggregator.calls)
	}
}

func TestReconcileByID_NotFound(t *testing.T) {
	r := NewReconciler(newMemoryReconciliationRepo(), &MockAggregator{}, &MockPayments{}, 3)

	err := r.ReconcileByID(context.Background(), "missing")
	if !errors.Is(err, ErrReconciliationNotFound) {
		t.Errorf("ReconcileByID() error = %v, want ErrReconciliationNotFound", err)
	}
}
