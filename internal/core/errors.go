package core

import "errors"

var (
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrInvalidType         = errors.New("invalid transaction type")
	ErrEmptyCategory       = errors.New("empty category")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrNotOwner            = errors.New("not the transaction owner")
	ErrSummaryMissing      = errors.New("summary not found")
	ErrEmailTaken          = errors.New("email already registered")
	ErrUserNotFound        = errors.New("user not found")
)
