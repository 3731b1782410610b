package port

import (
	"context"

	"github.com/rl1809/lottery-cart/internal/core/domain"
)

// StockLedger is the authoritative remaining-stock counter per ticket. A
// non-nil error is a transport failure; business outcomes are carried in the
// returned result.
type StockLedger interface {
	// Reserve atomically takes quantity units, failing with
	// OutcomeInsufficientStock when fewer remain
	Reserve(ctx context.Context, ticketID string, quantity int) (domain.StockResult, error)

	// Release atomically returns quantity units
	Release(ctx context.Context, ticketID string, quantity int) (domain.StockResult, error)

	// Seed sets the initial stock of an unknown ticket, returns false if the ticket was already known
	Seed(ctx context.Context, ticketID string, initial int) (bool, error)

	// Remaining reads the current count, zero for unknown tickets
	Remaining(ctx context.Context, ticketID string) (int, error)
}
