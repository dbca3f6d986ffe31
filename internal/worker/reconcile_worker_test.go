package worker

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/storage"
)

func newTestWorker(t *testing.T) (*ReconcileWorker, *storage.SQLiteRepository) {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "fintrack.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return NewReconcileWorker(repo), repo
}

func seedTransaction(t *testing.T, repo *storage.SQLiteRepository, user uuid.UUID, typ core.TransactionType, cents int64) {
	t.Helper()
	_, err := repo.CreateTransaction(context.Background(), core.Transaction{
		UserID: user, Type: typ, Amount: core.Money{Cents: cents},
		Category: "misc", Date: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}
}

func TestReconcileRepairsDrift(t *testing.T) {
	w, repo := newTestWorker(t)
	ctx := context.Background()
	user := uuid.New()

	seedTransaction(t, repo, user, core.Income, 10000)
	seedTransaction(t, repo, user, core.Expense, 4000)

	// Summary row diverged from the transaction set.
	skewed := core.Summary{UserID: user, TotalIncome: core.Money{Cents: 7}, TotalExpenses: core.Money{Cents: 99999}}
	if err := repo.SaveSummary(ctx, skewed); err != nil {
		t.Fatalf("SaveSummary: %v", err)
	}

	if err := w.Reconcile(ctx, user); err != nil {
		t.Fatalf("Reconcile: %v", err)
	}

	got, err := repo.GetSummary(ctx, user)
	if err != nil {
		t.Fatalf("GetSummary: %v", err)
	}
	if got.TotalIncome.Cents != 10000 || got.TotalExpenses.Cents != 4000 {
		t.Fatalf("reconciled summary = %+v", got)
	}
}

func TestReconcileCreatesMissingSummary(t *testing.T) {
	w, repo := newTestWorker(t)
	ctx := context.Background()
	user := uuid.New()

	seedTransaction(t, repo, user, core.Income, 2500)

	if err := w.Reconcile(ctx, user); err != nil {
		t.Fatalf("Reconcile: %v", err)
	}

	got, err := repo.GetSummary(ctx, user)
	if err != nil {
		t.Fatalf("GetSummary: %v", err)
	}
	if got.TotalIncome.Cents != 2500 || got.TotalExpenses.Cents != 0 {
		t.Fatalf("reconciled summary = %+v", got)
	}
}

func TestReconcileNoTransactionsNoSummary(t *testing.T) {
	w, repo := newTestWorker(t)
	ctx := context.Background()
	user := uuid.New()

	if err := w.Reconcile(ctx, user); err != nil {
		t.Fatalf("Reconcile: %v", err)
	}

	// Must not create a summary row for a user with no activity.
	users, err := repo.ListSummaryUsers(ctx)
	if err != nil {
		t.Fatalf("ListSummaryUsers: %v", err)
	}
	if len(users) != 0 {
		t.Fatalf("Reconcile created %d summary rows", len(users))
	}
}

func TestHandleEvent(t *testing.T) {
	w, repo := newTestWorker(t)
	ctx := context.Background()
	user := uuid.New()

	seedTransaction(t, repo, user, core.Expense, 750)
	if err := repo.SaveSummary(ctx, core.Summary{UserID: user}); err != nil {
		t.Fatalf("SaveSummary: %v", err)
	}

	msg := amqp.NewTransactionEventMessage(1, user, amqp.ActionCreated)
	if err := w.HandleEvent(ctx, msg); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}

	got, err := repo.GetSummary(ctx, user)
	if err != nil {
		t.Fatalf("GetSummary: %v", err)
	}
	if got.TotalExpenses.Cents != 750 {
		t.Fatalf("summary after event = %+v", got)
	}

	// Garbage user ids are dropped, not retried forever.
	bad := &amqp.TransactionEventMessage{TransactionID: 1, UserID: "not-a-uuid", Action: amqp.ActionCreated}
	if err := w.HandleEvent(ctx, bad); err != nil {
		t.Fatalf("HandleEvent bad uuid = %v, want nil", err)
	}
}

func TestSweepAll(t *testing.T) {
	w, repo := newTestWorker(t)
	ctx := context.Background()

	users := []uuid.UUID{uuid.New(), uuid.New()}
	for i, u := range users {
		seedTransaction(t, repo, u, core.Income, int64(1000*(i+1)))
		// Both summary rows start wrong.
		if err := repo.SaveSummary(ctx, core.Summary{UserID: u, TotalIncome: core.Money{Cents: 1}}); err != nil {
			t.Fatalf("SaveSummary: %v", err)
		}
	}

	if err := w.SweepAll(ctx); err != nil {
		t.Fatalf("SweepAll: %v", err)
	}

	for i, u := range users {
		got, err := repo.GetSummary(ctx, u)
		if err != nil {
			t.Fatalf("GetSummary: %v", err)
		}
		if want := int64(1000 * (i + 1)); got.TotalIncome.Cents != want {
			t.Fatalf("user %d summary income = %d, want %d", i, got.TotalIncome.Cents, want)
		}
	}
}
