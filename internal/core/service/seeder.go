package service

import (
	"context"
	"fmt"

	"github.com/rl1809/lottery-cart/internal/core/domain"
	"github.com/rl1809/lottery-cart/internal/port"
)

// SeedStock seeds the ledger from every catalog ticket. Tickets the ledger
// already knows keep their count, so re-running it never undoes holds. It
// returns how many tickets were newly seeded.
func SeedStock(ctx context.Context, catalog port.Catalog, ledger port.StockLedger) (int, error) {
	tickets, err := catalog.ListTickets(ctx)
	if err != nil {
		return 0, fmt.Errorf("list tickets: %w", err)
	}

	entries := make([]domain.StockEntry, 0, len(tickets))
	for _, t := range tickets {
		entries = append(entries, domain.StockEntry{TicketID: t.ID, Remaining: t.Remaining})
	}
	return SeedEntries(ctx, ledger, entries)
}

func SeedEntries(ctx context.Context, ledger port.StockLedger, entries []domain.StockEntry) (int, error) {
	seeded := 0
	for _, e := range entries {
		ok, err := ledger.Seed(ctx, e.TicketID, e.Remaining)
		if err != nil {
			return seeded, fmt.Errorf("seed %s: %w", e.TicketID, err)
		}
		if ok {
			seeded++
		}
	}
	return seeded, nil
}
