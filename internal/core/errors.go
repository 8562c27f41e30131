package core

import (
	"errors"
	"fmt"
)

// Sentinels for errors.Is. The typed errors below match them.
var (
	ErrNotFound          = errors.New("not found")
	ErrInsufficientLimit = errors.New("insufficient credit limit")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrRepository        = errors.New("repository failure")
)

// InsufficientLimitError is returned when a purchase exceeds the card's
// available credit.
type InsufficientLimitError struct {
	CardID    string
	Requested Money
	Available Money
}

func (e *InsufficientLimitError) Error() string {
	return fmt.Sprintf("card %s: purchase of %s exceeds available limit %s", e.CardID, e.Requested, e.Available)
}

func (e *InsufficientLimitError) Is(target error) bool { return target == ErrInsufficientLimit }

// InsufficientFundsError is returned when a withdrawal exceeds an
// investment's principal. InvestmentID is empty when no investment at all
// could cover the amount.
type InsufficientFundsError struct {
	InvestmentID string
	Requested    Money
	Available    Money
}

func (e *InsufficientFundsError) Error() string {
	if e.InvestmentID == "" {
		return fmt.Sprintf("no investment can cover %s (largest balance %s)", e.Requested, e.Available)
	}
	return fmt.Sprintf("investment %s: withdrawal of %s exceeds balance %s", e.InvestmentID, e.Requested, e.Available)
}

func (e *InsufficientFundsError) Is(target error) bool { return target == ErrInsufficientFunds }

// NotFoundError reports an unknown card, investment or transaction id.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// RepositoryError wraps a storage failure. The wrapped error is opaque.
type RepositoryError struct {
	Op  string
	Err error
}

func (e *RepositoryError) Error() string {
	return fmt.Sprintf("repository %s: %v", e.Op, e.Err)
}

func (e *RepositoryError) Unwrap() error { return e.Err }

func (e *RepositoryError) Is(target error) bool { return target == ErrRepository }
