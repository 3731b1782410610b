package domain

import "time"

type NotificationKind string

const (
	ReservationSucceeded NotificationKind = "reservation_succeeded"
	ReservationFailed    NotificationKind = "reservation_failed"
	ReleaseSucceeded     NotificationKind = "release_succeeded"
	ReleaseFailed        NotificationKind = "release_failed"
	ExpirySweepEvicted   NotificationKind = "expiry_sweep_evicted"
)

type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
	LevelWarning Level = "warning"
)

// Notification is a user-facing outcome emitted by a cart store.
type Notification struct {
	Kind      NotificationKind `json:"kind"`
	Level     Level            `json:"level"`
	SessionID string           `json:"session_id,omitempty"`
	CartID    string           `json:"cart_id,omitempty"`
	TicketID  string           `json:"ticket_id,omitempty"`
	Quantity  int              `json:"quantity,omitempty"`
	Count     int              `json:"count,omitempty"`
	Message   string           `json:"message"`
	At        time.Time        `json:"at"`
}

func (k NotificationKind) Level() Level {
	switch k {
	case ReservationSucceeded, ReleaseSucceeded:
		return LevelSuccess
	case ExpirySweepEvicted:
		return LevelWarning
	default:
		return LevelError
	}
}
