package domain

import "time"

// ReservationDuration is the hold window after which an unreleased cart line
// becomes eligible for eviction.
const ReservationDuration = 10 * time.Minute

type LineState string

const (
	LineHeld     LineState = "held"
	LineExpired  LineState = "expired"
	LineReleased LineState = "released"
)

// CartItem is one held line of a cart. A store keeps at most one line per
// ticket id.
type CartItem struct {
	CartID string
	Ticket
	Quantity          int
	ReservedAt        time.Time
	RemainingSnapshot int
}

func (c CartItem) Expired(now time.Time, window time.Duration) bool {
	return now.Sub(c.ReservedAt) >= window
}

func (c CartItem) State(now time.Time, window time.Duration) LineState {
	if c.Expired(now, window) {
		return LineExpired
	}
	return LineHeld
}

func (c CartItem) Subtotal() int64 {
	return int64(c.Quantity) * c.Price
}
