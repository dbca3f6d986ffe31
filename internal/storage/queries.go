package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"fintrack/internal/core"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx so the same queries run
// standalone or inside ExecTx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) CreateUser(ctx context.Context, u core.User) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash, created_at) VALUES (?, ?, ?, ?)`,
		u.ID, u.Email, u.PasswordHash, u.CreatedAt)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return core.ErrEmailTaken
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (core.User, error) {
	var u core.User
	err := q.db.QueryRowContext(ctx,
		`SELECT id, email, password_hash, created_at FROM users WHERE email = ?`, email).
		Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, core.ErrUserNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

func (q *Queries) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO transactions (user_id, type, amount_cents, category, date) VALUES (?, ?, ?, ?, ?)`,
		t.UserID, string(t.Type), t.Amount.Cents, t.Category, t.Date)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Transaction{}, fmt.Errorf("last insert id: %w", err)
	}
	t.ID = id
	return t, nil
}

func (q *Queries) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	var (
		t   core.Transaction
		typ string
	)
	err := q.db.QueryRowContext(ctx,
		`SELECT id, user_id, type, amount_cents, category, date FROM transactions WHERE id = ?`, id).
		Scan(&t.ID, &t.UserID, &typ, &t.Amount.Cents, &t.Category, &t.Date)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, core.ErrTransactionNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	t.Type = core.TransactionType(typ)
	return t, nil
}

// ListTransactions returns all of the user's transactions in storage order.
func (q *Queries) ListTransactions(ctx context.Context, userID uuid.UUID) ([]core.Transaction, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, user_id, type, amount_cents, category, date FROM transactions WHERE user_id = ? ORDER BY id`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	out := make([]core.Transaction, 0)
	for rows.Next() {
		var (
			t   core.Transaction
			typ string
		)
		if err := rows.Scan(&t.ID, &t.UserID, &typ, &t.Amount.Cents, &t.Category, &t.Date); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		t.Type = core.TransactionType(typ)
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return out, nil
}

func (q *Queries) UpdateTransaction(ctx context.Context, t core.Transaction) error {
	res, err := q.db.ExecContext(ctx,
		`UPDATE transactions SET type = ?, amount_cents = ?, category = ? WHERE id = ?`,
		string(t.Type), t.Amount.Cents, t.Category, t.ID)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return core.ErrTransactionNotFound
	}
	return nil
}

func (q *Queries) DeleteTransaction(ctx context.Context, id int64) error {
	res, err := q.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return core.ErrTransactionNotFound
	}
	return nil
}

func (q *Queries) CountTransactions(ctx context.Context, userID uuid.UUID) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM transactions WHERE user_id = ?`, userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count transactions: %w", err)
	}
	return n, nil
}

// SumByType derives the summary totals directly from the transaction set.
func (q *Queries) SumByType(ctx context.Context, userID uuid.UUID) (core.Summary, error) {
	s := core.Summary{UserID: userID}
	err := q.db.QueryRowContext(ctx,
		`SELECT
			COALESCE(SUM(CASE WHEN type = 'income' THEN amount_cents END), 0),
			COALESCE(SUM(CASE WHEN type = 'expense' THEN amount_cents END), 0)
		 FROM transactions WHERE user_id = ?`,
		userID).Scan(&s.TotalIncome.Cents, &s.TotalExpenses.Cents)
	if err != nil {
		return core.Summary{}, fmt.Errorf("sum transactions by type: %w", err)
	}
	return s, nil
}

func (q *Queries) GetSummary(ctx context.Context, userID uuid.UUID) (core.Summary, error) {
	s := core.Summary{UserID: userID}
	err := q.db.QueryRowContext(ctx,
		`SELECT total_income_cents, total_expenses_cents FROM summaries WHERE user_id = ?`, userID).
		Scan(&s.TotalIncome.Cents, &s.TotalExpenses.Cents)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Summary{}, core.ErrSummaryMissing
	}
	if err != nil {
		return core.Summary{}, fmt.Errorf("get summary: %w", err)
	}
	return s, nil
}

func (q *Queries) SaveSummary(ctx context.Context, s core.Summary) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO summaries (user_id, total_income_cents, total_expenses_cents, updated_at)
		 VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(user_id) DO UPDATE SET
			total_income_cents = excluded.total_income_cents,
			total_expenses_cents = excluded.total_expenses_cents,
			updated_at = CURRENT_TIMESTAMP`,
		s.UserID, s.TotalIncome.Cents, s.TotalExpenses.Cents)
	if err != nil {
		return fmt.Errorf("save summary: %w", err)
	}
	return nil
}

// ListSummaryUsers returns every user that has a summary row, for sweeps.
func (q *Queries) ListSummaryUsers(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT user_id FROM summaries`)
	if err != nil {
		return nil, fmt.Errorf("list summary users: %w", err)
	}
	defer rows.Close()

	var out []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan summary user: %w", err)
		}
		out = append(out, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list summary users: %w", err)
	}
	return out, nil
}
