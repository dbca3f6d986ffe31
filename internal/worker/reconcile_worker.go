package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/storage"
)

// ReconcileWorker re-derives summaries from the transaction set and repairs
// any drift. The API keeps summaries consistent transactionally; this worker
// is the safety net for rows touched out-of-band or corrupted historically.
type ReconcileWorker struct {
	repo *storage.SQLiteRepository
}

func NewReconcileWorker(repo *storage.SQLiteRepository) *ReconcileWorker {
	return &ReconcileWorker{repo: repo}
}

// HandleEvent processes a single transaction event from AMQP
func (w *ReconcileWorker) HandleEvent(ctx context.Context, msg *amqp.TransactionEventMessage) error {
	userID, err := uuid.Parse(msg.UserID)
	if err != nil {
		// Malformed user id can never succeed on retry; drop it.
		slog.ErrorContext(ctx, "Event carries invalid user id",
			"user_id", msg.UserID, "transaction_id", msg.TransactionID)
		return nil
	}

	slog.DebugContext(ctx, "Processing transaction event",
		"transaction_id", msg.TransactionID,
		"user_id", msg.UserID,
		"action", msg.Action)

	return w.Reconcile(ctx, userID)
}

// Reconcile recomputes one user's totals from their live transactions and
// rewrites the summary row if it disagrees.
func (w *ReconcileWorker) Reconcile(ctx context.Context, userID uuid.UUID) error {
	return w.repo.ExecTx(ctx, func(q *storage.Queries) error {
		derived, err := q.SumByType(ctx, userID)
		if err != nil {
			return err
		}

		stored, err := q.GetSummary(ctx, userID)
		if errors.Is(err, core.ErrSummaryMissing) {
			if derived.TotalIncome.Cents == 0 && derived.TotalExpenses.Cents == 0 {
				// No transactions and no summary: nothing to create.
				// Lazy creation stays with the first mutation.
				return nil
			}
			stored = core.Summary{UserID: userID}
		} else if err != nil {
			return err
		}

		if stored.TotalIncome == derived.TotalIncome && stored.TotalExpenses == derived.TotalExpenses {
			return nil
		}

		slog.WarnContext(ctx, "Summary drift detected, repairing",
			"user_id", userID,
			"stored_income_cents", stored.TotalIncome.Cents,
			"stored_expenses_cents", stored.TotalExpenses.Cents,
			"derived_income_cents", derived.TotalIncome.Cents,
			"derived_expenses_cents", derived.TotalExpenses.Cents)

		return q.SaveSummary(ctx, derived)
	})
}

// SweepAll reconciles every user that has a summary row. Run periodically to
// cover events lost while the broker or worker was down.
func (w *ReconcileWorker) SweepAll(ctx context.Context) error {
	users, err := w.repo.ListSummaryUsers(ctx)
	if err != nil {
		return fmt.Errorf("list summary users: %w", err)
	}

	var failed int
	for _, userID := range users {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := w.Reconcile(ctx, userID); err != nil {
			failed++
			slog.ErrorContext(ctx, "Sweep reconcile failed", "user_id", userID, "error", err)
		}
	}

	slog.InfoContext(ctx, "Reconcile sweep completed", "users", len(users), "failed", failed)
	if failed > 0 {
		return fmt.Errorf("sweep: %d of %d users failed", failed, len(users))
	}
	return nil
}
