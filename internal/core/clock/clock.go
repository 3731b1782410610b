// Package clock computes reservation hold times. Apart from Manual it has no
// state.
package clock

import (
	"fmt"
	"sync"
	"time"
)

type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// System returns the wall clock.
func System() Clock { return systemClock{} }

// Manual is a settable clock for tests and replays.
type Manual struct {
	mu  sync.Mutex
	now time.Time
}

func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	m.now = m.now.Add(d)
	m.mu.Unlock()
}

func (m *Manual) Set(t time.Time) {
	m.mu.Lock()
	m.now = t
	m.mu.Unlock()
}

// Remaining returns how much of the window is left for a hold that started at
// reservedAt, floored at zero.
func Remaining(reservedAt, now time.Time, window time.Duration) time.Duration {
	left := window - now.Sub(reservedAt)
	if left < 0 {
		return 0
	}
	return left
}

func Expired(reservedAt, now time.Time, window time.Duration) bool {
	return Remaining(reservedAt, now, window) == 0
}

// SoonestExpiry returns the smallest positive remaining hold across starts.
// Holds that already ran out are ignored; if none remain it returns zero.
func SoonestExpiry(starts []time.Time, now time.Time, window time.Duration) time.Duration {
	var soonest time.Duration
	for _, s := range starts {
		left := Remaining(s, now, window)
		if left == 0 {
			continue
		}
		if soonest == 0 || left < soonest {
			soonest = left
		}
	}
	return soonest
}

// FormatCountdown renders d as mm:ss, truncating to whole seconds.
func FormatCountdown(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d / time.Second)
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}
