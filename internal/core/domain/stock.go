package domain

import "errors"

var ErrInvalidQuantity = errors.New("quantity must be positive")

type StockOutcome string

const (
	OutcomeOK                StockOutcome = "ok"
	OutcomeInsufficientStock StockOutcome = "insufficient_stock"
)

type StockEntry struct {
	TicketID  string
	Remaining int
}

// StockResult is the reply of a ledger reserve or release. Quantity is the
// amount actually moved and is zero unless Outcome is OutcomeOK.
type StockResult struct {
	Outcome   StockOutcome
	Quantity  int
	Remaining int
}

func (r StockResult) OK() bool { return r.Outcome == OutcomeOK }

func Reserved(qty, remaining int) StockResult {
	return StockResult{Outcome: OutcomeOK, Quantity: qty, Remaining: remaining}
}

func Insufficient(remaining int) StockResult {
	return StockResult{Outcome: OutcomeInsufficientStock, Remaining: remaining}
}

func Released(qty, remaining int) StockResult {
	return StockResult{Outcome: OutcomeOK, Quantity: qty, Remaining: remaining}
}
