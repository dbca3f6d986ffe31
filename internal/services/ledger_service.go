package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/storage"
)

// TransactionInput carries the caller-supplied fields of a mutation.
type TransactionInput struct {
	Type     core.TransactionType
	Amount   core.Money
	Category string
	Date     time.Time // zero means "now"; only honored on Create
}

// LedgerService keeps each user's Summary consistent with their transaction
// set. Every mutation pairs the transaction write with an incremental summary
// adjustment inside one database transaction, then publishes an event for the
// reconcile worker best-effort.
type LedgerService struct {
	repo   *storage.SQLiteRepository
	events *amqp.Client
}

func NewLedgerService(repo *storage.SQLiteRepository, events *amqp.Client) *LedgerService {
	return &LedgerService{
		repo:   repo,
		events: events,
	}
}

// Create validates and persists a new transaction and adds its amount to the
// matching summary bucket, creating the summary row on first use.
func (s *LedgerService) Create(ctx context.Context, userID uuid.UUID, in TransactionInput) (core.Transaction, core.Summary, error) {
	draft := core.Transaction{
		UserID:   userID,
		Type:     in.Type,
		Amount:   in.Amount,
		Category: in.Category,
		Date:     in.Date,
	}
	if draft.Date.IsZero() {
		draft.Date = time.Now().UTC()
	}
	if err := draft.Validate(); err != nil {
		return core.Transaction{}, core.Summary{}, err
	}

	var (
		created core.Transaction
		summary core.Summary
	)
	err := s.repo.ExecTx(ctx, func(q *storage.Queries) error {
		var err error
		created, err = q.CreateTransaction(ctx, draft)
		if err != nil {
			return err
		}

		summary, err = q.GetSummary(ctx, userID)
		if errors.Is(err, core.ErrSummaryMissing) {
			summary = core.Summary{UserID: userID}
		} else if err != nil {
			return err
		}

		applyToSummary(&summary, created, +1)
		return q.SaveSummary(ctx, summary)
	})
	if err != nil {
		return core.Transaction{}, core.Summary{}, err
	}

	slog.InfoContext(ctx, "Transaction created",
		"id", created.ID,
		"user_id", userID,
		"type", created.Type,
		"amount_cents", created.Amount.Cents)

	s.publishEvent(ctx, created.ID, userID, amqp.ActionCreated)
	return created, summary, nil
}

// Update rewrites a transaction's type/amount/category and moves its
// contribution between summary buckets accordingly.
func (s *LedgerService) Update(ctx context.Context, userID uuid.UUID, id int64, in TransactionInput) (core.Transaction, core.Summary, error) {
	var (
		updated core.Transaction
		summary core.Summary
	)
	err := s.repo.ExecTx(ctx, func(q *storage.Queries) error {
		existing, err := q.GetTransaction(ctx, id)
		if err != nil {
			return err
		}
		if existing.UserID != userID {
			return core.ErrNotOwner
		}

		summary, err = q.GetSummary(ctx, userID)
		if err != nil {
			return err
		}

		draft := existing
		draft.Type = in.Type
		draft.Amount = in.Amount
		draft.Category = in.Category
		if err := draft.Validate(); err != nil {
			return err
		}

		applyToSummary(&summary, existing, -1)
		applyToSummary(&summary, draft, +1)

		if err := q.UpdateTransaction(ctx, draft); err != nil {
			return err
		}
		updated = draft
		return q.SaveSummary(ctx, summary)
	})
	if err != nil {
		return core.Transaction{}, core.Summary{}, err
	}

	slog.InfoContext(ctx, "Transaction updated",
		"id", updated.ID,
		"user_id", userID,
		"type", updated.Type,
		"amount_cents", updated.Amount.Cents)

	s.publishEvent(ctx, updated.ID, userID, amqp.ActionUpdated)
	return updated, summary, nil
}

// Delete removes a transaction and subtracts its amount from the summary.
// When the user's last transaction goes away both totals are forced to
// exactly zero, healing any residue left by earlier drift.
func (s *LedgerService) Delete(ctx context.Context, userID uuid.UUID, id int64) (core.Summary, error) {
	var summary core.Summary
	err := s.repo.ExecTx(ctx, func(q *storage.Queries) error {
		existing, err := q.GetTransaction(ctx, id)
		if err != nil {
			return err
		}
		if existing.UserID != userID {
			return core.ErrNotOwner
		}

		summary, err = q.GetSummary(ctx, userID)
		if err != nil {
			return err
		}

		applyToSummary(&summary, existing, -1)

		if err := q.DeleteTransaction(ctx, id); err != nil {
			return err
		}

		remaining, err := q.CountTransactions(ctx, userID)
		if err != nil {
			return err
		}
		if remaining == 0 {
			summary.TotalIncome.Cents = 0
			summary.TotalExpenses.Cents = 0
		}

		return q.SaveSummary(ctx, summary)
	})
	if err != nil {
		return core.Summary{}, err
	}

	slog.InfoContext(ctx, "Transaction deleted", "id", id, "user_id", userID)

	s.publishEvent(ctx, id, userID, amqp.ActionDeleted)
	return summary, nil
}

// List returns all of the user's transactions in storage order.
func (s *LedgerService) List(ctx context.Context, userID uuid.UUID) ([]core.Transaction, error) {
	return s.repo.ListTransactions(ctx, userID)
}

// Summary returns the user's totals, all-zero when no summary row exists.
// Reads never create the row; only the first mutation does.
func (s *LedgerService) Summary(ctx context.Context, userID uuid.UUID) (core.Summary, error) {
	summary, err := s.repo.GetSummary(ctx, userID)
	if errors.Is(err, core.ErrSummaryMissing) {
		return core.Summary{UserID: userID}, nil
	}
	if err != nil {
		return core.Summary{}, err
	}
	return summary, nil
}

func (s *LedgerService) publishEvent(ctx context.Context, transactionID int64, userID uuid.UUID, action string) {
	if s.events == nil {
		slog.DebugContext(ctx, "AMQP client not available, skipping event publish",
			"transaction_id", transactionID, "action", action)
		return
	}

	msg := amqp.NewTransactionEventMessage(transactionID, userID, action)
	if err := s.events.PublishTransactionEvent(ctx, msg); err != nil {
		// The mutation is already committed; the periodic sweep covers
		// anything a lost event would have reconciled.
		slog.ErrorContext(ctx, "Failed to publish transaction event",
			"transaction_id", transactionID, "action", action, "error", err)
	}
}

// Close closes both storage and AMQP connections
func (s *LedgerService) Close() error {
	var errs []error

	if s.repo != nil {
		if err := s.repo.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if s.events != nil {
		if err := s.events.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close ledger service: %v", errs)
	}
	return nil
}

func applyToSummary(s *core.Summary, t core.Transaction, sign int64) {
	switch t.Type {
	case core.Income:
		s.TotalIncome.Cents += sign * t.Amount.Cents
	case core.Expense:
		s.TotalExpenses.Cents += sign * t.Amount.Cents
	}
}
