package core

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

type (
	// TransactionType is either Income or Expense.
	TransactionType string

	// Money is an amount in integer cents to keep summary arithmetic exact.
	Money struct {
		Cents int64
	}

	// Transaction is a single income or expense event owned by a user.
	Transaction struct {
		ID       int64
		UserID   uuid.UUID
		Type     TransactionType
		Amount   Money
		Category string
		Date     time.Time
	}

	// Summary is the denormalized per-user aggregate maintained in lockstep
	// with the user's transactions. One row per user.
	Summary struct {
		UserID        uuid.UUID
		TotalIncome   Money
		TotalExpenses Money
	}

	// User is an authenticated account owner.
	User struct {
		ID           uuid.UUID
		Email        string
		PasswordHash string
		CreatedAt    time.Time
	}
)

func (t TransactionType) Valid() bool {
	return t == Income || t == Expense
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Float returns the decimal representation used on the wire.
func (m Money) Float() float64 {
	return float64(m.Cents) / 100
}

func (t Transaction) Validate() error {
	if !t.Type.Valid() {
		return ErrInvalidType
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(t.Category) == "" {
		return ErrEmptyCategory
	}
	return nil
}

func (s Summary) Balance() Money {
	return Money{Cents: s.TotalIncome.Cents - s.TotalExpenses.Cents}
}

// ParseAmountToCents parses a decimal amount string ("100", "12.34") into
// cents. Amounts must be positive and carry at most two fraction digits.
func ParseAmountToCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}

	whole, frac, hasFrac := strings.Cut(s, ".")
	if whole == "" || strings.HasPrefix(whole, "-") || strings.HasPrefix(whole, "+") {
		return 0, ErrInvalidAmount
	}

	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}

	var cents int64
	if hasFrac {
		if len(frac) == 0 || len(frac) > 2 {
			return 0, ErrInvalidAmount
		}
		c, err := strconv.ParseInt(frac, 10, 64)
		if err != nil {
			return 0, ErrInvalidAmount
		}
		if len(frac) == 1 {
			c *= 10
		}
		cents = c
	}

	total := units*100 + cents
	if total <= 0 {
		return 0, ErrInvalidAmount
	}
	return total, nil
}
