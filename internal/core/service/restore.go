package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rl1809/lottery-cart/internal/core/domain"
	"github.com/rl1809/lottery-cart/internal/port"
)

// CartSnapshot is a saved cart, typically read from a bootstrap file.
type CartSnapshot struct {
	SessionID string
	Lines     []SnapshotLine
}

type SnapshotLine struct {
	// CartID is generated when empty
	CartID   string
	TicketID string
	Quantity int
	// ReservedAt defaults to the restore time
	ReservedAt time.Time
}

// Restore reserves every line of snap against the ledger and hydrates the
// session's cart with the lines the ledger granted in full. Unknown and
// sold-out tickets are skipped. It returns the number of restored lines.
// Restore is meant for startup, before the session serves requests.
func (r *Registry) Restore(ctx context.Context, cat port.Catalog, snap CartSnapshot) (int, error) {
	if snap.SessionID == "" {
		return 0, fmt.Errorf("%w: snapshot without session id", ErrInvalidHydration)
	}

	now := r.cfg.Clock.Now()
	candidates := make([]domain.CartItem, 0, len(snap.Lines))
	for _, l := range snap.Lines {
		item := domain.CartItem{
			CartID:     l.CartID,
			Ticket:     domain.Ticket{ID: l.TicketID},
			Quantity:   l.Quantity,
			ReservedAt: l.ReservedAt,
		}
		if item.CartID == "" {
			item.CartID = r.cfg.NewID()
		}
		if item.ReservedAt.IsZero() {
			item.ReservedAt = now
		}
		candidates = append(candidates, item)
	}
	if err := validateLines(candidates); err != nil {
		return 0, err
	}

	store := r.GetOrCreate(snap.SessionID)
	if store.Len() > 0 {
		return 0, fmt.Errorf("%w: session %s already has a cart", ErrInvalidHydration, snap.SessionID)
	}

	var restored []domain.CartItem
	rollback := func() {
		for _, item := range restored {
			store.returnPartial(ctx, item.ID, item.Quantity)
		}
	}

	for _, item := range candidates {
		ticket, err := cat.GetTicket(ctx, item.ID)
		if err != nil {
			r.log.Warn("restore skipped line", "session_id", snap.SessionID, "ticket_id", item.ID, "err", err)
			continue
		}

		res, err := store.reserve(ctx, item.ID, item.Quantity)
		if err != nil {
			rollback()
			return 0, fmt.Errorf("%w: %w", ErrLedgerUnavailable, err)
		}
		if !res.OK() || res.Quantity != item.Quantity {
			if res.OK() {
				store.returnPartial(ctx, item.ID, res.Quantity)
			}
			r.log.Warn("restore skipped line", "session_id", snap.SessionID, "ticket_id", item.ID,
				"quantity", item.Quantity, "remaining", res.Remaining)
			continue
		}

		item.Ticket = ticket
		item.RemainingSnapshot = res.Remaining
		restored = append(restored, item)
	}

	if err := store.Hydrate(restored); err != nil {
		rollback()
		return 0, err
	}
	r.log.Info("cart restored", "session_id", snap.SessionID, "lines", len(restored), "skipped", len(candidates)-len(restored))
	return len(restored), nil
}
