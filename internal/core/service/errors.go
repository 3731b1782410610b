package service

import "errors"

var (
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrLedgerUnavailable = errors.New("stock ledger unavailable")
	ErrReleaseRejected   = errors.New("stock release rejected")
	ErrInvalidHydration  = errors.New("invalid cart snapshot")

	// ErrPartialReservation means the ledger confirmed a different quantity
	// than requested. The confirmed units are handed back.
	ErrPartialReservation = errors.New("ledger reserved a different quantity")
)
