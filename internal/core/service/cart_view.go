package service

import (
	"time"

	"github.com/rl1809/lottery-cart/internal/core/clock"
	"github.com/rl1809/lottery-cart/internal/core/domain"
)

// LineView is a cart line with its hold state at the time the view was built.
type LineView struct {
	domain.CartItem
	State         domain.LineState
	RemainingHold time.Duration
	Subtotal      int64
}

// CartView is the read-side projection used for countdown and summary display.
type CartView struct {
	SessionID     string
	Items         []LineView
	SoonestExpiry time.Duration
	TotalQuantity int
	TotalPrice    int64
	GeneratedAt   time.Time
}

func (v CartView) Empty() bool { return len(v.Items) == 0 }

// View projects the current items. It never mutates the store.
func (s *CartStore) View() CartView {
	items := s.Items()
	now := s.cfg.Clock.Now()
	return project(s.sessionID, items, now, s.cfg.Window)
}

func project(sessionID string, items []domain.CartItem, now time.Time, window time.Duration) CartView {
	view := CartView{
		SessionID:   sessionID,
		Items:       make([]LineView, 0, len(items)),
		GeneratedAt: now,
	}

	starts := make([]time.Time, 0, len(items))
	for _, item := range items {
		view.Items = append(view.Items, LineView{
			CartItem:      item,
			State:         item.State(now, window),
			RemainingHold: clock.Remaining(item.ReservedAt, now, window),
			Subtotal:      item.Subtotal(),
		})
		view.TotalQuantity += item.Quantity
		view.TotalPrice += item.Subtotal()
		starts = append(starts, item.ReservedAt)
	}
	view.SoonestExpiry = clock.SoonestExpiry(starts, now, window)
	return view
}
