package storage

import (
	"errors"

	"solana-presale/internal/domain"
)

// Storage errors for append-only stores.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when attempting to insert a record
	// with a key that already exists. Append-only stores do not allow updates.
	ErrDuplicateKey = errors.New("duplicate key: append-only store does not allow updates")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")
)

// ValidateEvent checks the fields every journal backend requires.
func ValidateEvent(e *domain.LedgerEvent) error {
	if e == nil || e.EventID == "" || e.SaleID == "" || e.Seq == 0 || !e.Kind.IsValid() {
		return ErrInvalidInput
	}
	return nil
}
