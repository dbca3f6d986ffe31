package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"fintrack/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "fintrack.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestTransactionCRUD(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	user := uuid.New()

	created, err := repo.CreateTransaction(ctx, core.Transaction{
		UserID:   user,
		Type:     core.Income,
		Amount:   core.Money{Cents: 10000},
		Category: "salary",
		Date:     time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}
	if created.ID == 0 {
		t.Fatal("CreateTransaction returned zero ID")
	}

	got, err := repo.GetTransaction(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetTransaction: %v", err)
	}
	if got.UserID != user || got.Type != core.Income || got.Amount.Cents != 10000 || got.Category != "salary" {
		t.Fatalf("GetTransaction = %+v", got)
	}

	got.Type = core.Expense
	got.Amount.Cents = 4000
	got.Category = "groceries"
	if err := repo.UpdateTransaction(ctx, got); err != nil {
		t.Fatalf("UpdateTransaction: %v", err)
	}
	updated, err := repo.GetTransaction(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetTransaction after update: %v", err)
	}
	if updated.Type != core.Expense || updated.Amount.Cents != 4000 || updated.Category != "groceries" {
		t.Fatalf("update not persisted: %+v", updated)
	}

	if err := repo.DeleteTransaction(ctx, created.ID); err != nil {
		t.Fatalf("DeleteTransaction: %v", err)
	}
	if _, err := repo.GetTransaction(ctx, created.ID); !errors.Is(err, core.ErrTransactionNotFound) {
		t.Fatalf("GetTransaction after delete = %v, want ErrTransactionNotFound", err)
	}
	if err := repo.DeleteTransaction(ctx, created.ID); !errors.Is(err, core.ErrTransactionNotFound) {
		t.Fatalf("second delete = %v, want ErrTransactionNotFound", err)
	}
}

func TestListTransactionsScopedToUser(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	alice, bob := uuid.New(), uuid.New()

	for i, owner := range []uuid.UUID{alice, bob, alice} {
		_, err := repo.CreateTransaction(ctx, core.Transaction{
			UserID:   owner,
			Type:     core.Income,
			Amount:   core.Money{Cents: int64(100 * (i + 1))},
			Category: "misc",
			Date:     time.Now().UTC(),
		})
		if err != nil {
			t.Fatalf("CreateTransaction: %v", err)
		}
	}

	list, err := repo.ListTransactions(ctx, alice)
	if err != nil {
		t.Fatalf("ListTransactions: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("ListTransactions returned %d rows, want 2", len(list))
	}
	if list[0].ID > list[1].ID {
		t.Fatal("ListTransactions not in storage order")
	}
	for _, tx := range list {
		if tx.UserID != alice {
			t.Fatalf("transaction %d owned by %s, want %s", tx.ID, tx.UserID, alice)
		}
	}
}

func TestSummaryRoundtrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	user := uuid.New()

	if _, err := repo.GetSummary(ctx, user); !errors.Is(err, core.ErrSummaryMissing) {
		t.Fatalf("GetSummary on empty = %v, want ErrSummaryMissing", err)
	}

	s := core.Summary{UserID: user, TotalIncome: core.Money{Cents: 15000}, TotalExpenses: core.Money{Cents: 4000}}
	if err := repo.SaveSummary(ctx, s); err != nil {
		t.Fatalf("SaveSummary: %v", err)
	}

	// Upsert overwrites in place, one row per user.
	s.TotalExpenses.Cents = 0
	if err := repo.SaveSummary(ctx, s); err != nil {
		t.Fatalf("SaveSummary upsert: %v", err)
	}

	got, err := repo.GetSummary(ctx, user)
	if err != nil {
		t.Fatalf("GetSummary: %v", err)
	}
	if got.TotalIncome.Cents != 15000 || got.TotalExpenses.Cents != 0 {
		t.Fatalf("GetSummary = %+v", got)
	}

	users, err := repo.ListSummaryUsers(ctx)
	if err != nil {
		t.Fatalf("ListSummaryUsers: %v", err)
	}
	if len(users) != 1 || users[0] != user {
		t.Fatalf("ListSummaryUsers = %v, want [%s]", users, user)
	}
}

func TestSumByType(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	user := uuid.New()

	fixtures := []struct {
		typ   core.TransactionType
		cents int64
	}{
		{core.Income, 10000},
		{core.Income, 5000},
		{core.Expense, 4000},
	}
	for _, f := range fixtures {
		_, err := repo.CreateTransaction(ctx, core.Transaction{
			UserID: user, Type: f.typ, Amount: core.Money{Cents: f.cents},
			Category: "misc", Date: time.Now().UTC(),
		})
		if err != nil {
			t.Fatalf("CreateTransaction: %v", err)
		}
	}

	derived, err := repo.SumByType(ctx, user)
	if err != nil {
		t.Fatalf("SumByType: %v", err)
	}
	if derived.TotalIncome.Cents != 15000 || derived.TotalExpenses.Cents != 4000 {
		t.Fatalf("SumByType = %+v", derived)
	}

	empty, err := repo.SumByType(ctx, uuid.New())
	if err != nil {
		t.Fatalf("SumByType empty: %v", err)
	}
	if empty.TotalIncome.Cents != 0 || empty.TotalExpenses.Cents != 0 {
		t.Fatalf("SumByType empty = %+v", empty)
	}
}

func TestUsers(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	u := core.User{ID: uuid.New(), Email: "a@example.com", PasswordHash: "x", CreatedAt: time.Now().UTC()}
	if err := repo.CreateUser(ctx, u); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	dup := core.User{ID: uuid.New(), Email: "a@example.com", PasswordHash: "y", CreatedAt: time.Now().UTC()}
	if err := repo.CreateUser(ctx, dup); !errors.Is(err, core.ErrEmailTaken) {
		t.Fatalf("duplicate CreateUser = %v, want ErrEmailTaken", err)
	}

	got, err := repo.GetUserByEmail(ctx, "a@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail: %v", err)
	}
	if got.ID != u.ID {
		t.Fatalf("GetUserByEmail ID = %s, want %s", got.ID, u.ID)
	}

	if _, err := repo.GetUserByEmail(ctx, "nobody@example.com"); !errors.Is(err, core.ErrUserNotFound) {
		t.Fatalf("GetUserByEmail missing = %v, want ErrUserNotFound", err)
	}
}

func TestExecTxRollsBack(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	user := uuid.New()

	wantErr := errors.New("boom")
	err := repo.ExecTx(ctx, func(q *Queries) error {
		if _, err := q.CreateTransaction(ctx, core.Transaction{
			UserID: user, Type: core.Income, Amount: core.Money{Cents: 100},
			Category: "misc", Date: time.Now().UTC(),
		}); err != nil {
			return err
		}
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("ExecTx = %v, want boom", err)
	}

	n, err := repo.CountTransactions(ctx, user)
	if err != nil {
		t.Fatalf("CountTransactions: %v", err)
	}
	if n != 0 {
		t.Fatalf("rolled-back insert visible, count = %d", n)
	}
}
