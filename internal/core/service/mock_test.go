package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rl1809/lottery-cart/internal/core/domain"
)

var errTransport = errors.New("connection reset")

// Mock StockLedger
type mockLedger struct {
	mu           sync.Mutex
	stock        map[string]int
	failReserve  bool
	failRelease  bool
	releaseCalls map[string]int
	// reserveCap, when positive, limits how much one reserve grants.
	reserveCap int

	// reserveStarted receives when a reserve is issued, reserveGate blocks
	// it until closed. Both are optional.
	reserveStarted chan struct{}
	reserveGate    chan struct{}
}

func newMockLedger(stock map[string]int) *mockLedger {
	m := &mockLedger{
		stock:        make(map[string]int),
		releaseCalls: make(map[string]int),
	}
	for id, n := range stock {
		m.stock[id] = n
	}
	return m
}

func (m *mockLedger) Reserve(ctx context.Context, ticketID string, quantity int) (domain.StockResult, error) {
	if m.reserveStarted != nil {
		m.reserveStarted <- struct{}{}
	}
	if m.reserveGate != nil {
		<-m.reserveGate
	}
	if err := ctx.Err(); err != nil {
		return domain.StockResult{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failReserve {
		return domain.StockResult{}, errTransport
	}
	current := m.stock[ticketID]
	if current < quantity {
		return domain.Insufficient(current), nil
	}
	if m.reserveCap > 0 && quantity > m.reserveCap {
		quantity = m.reserveCap
	}
	m.stock[ticketID] = current - quantity
	return domain.Reserved(quantity, current-quantity), nil
}

func (m *mockLedger) Release(ctx context.Context, ticketID string, quantity int) (domain.StockResult, error) {
	if err := ctx.Err(); err != nil {
		return domain.StockResult{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failRelease {
		return domain.StockResult{}, errTransport
	}
	m.releaseCalls[ticketID]++
	m.stock[ticketID] += quantity
	return domain.Released(quantity, m.stock[ticketID]), nil
}

func (m *mockLedger) Seed(ctx context.Context, ticketID string, initial int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.stock[ticketID]; ok {
		return false, nil
	}
	m.stock[ticketID] = initial
	return true, nil
}

func (m *mockLedger) Remaining(ctx context.Context, ticketID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stock[ticketID], nil
}

func (m *mockLedger) remaining(ticketID string) int {
	n, _ := m.Remaining(context.Background(), ticketID)
	return n
}

func (m *mockLedger) setFailRelease(v bool) {
	m.mu.Lock()
	m.failRelease = v
	m.mu.Unlock()
}

func (m *mockLedger) releases(ticketID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.releaseCalls[ticketID]
}

// Mock Notifier
type recordingNotifier struct {
	mu     sync.Mutex
	events []domain.Notification
}

func (r *recordingNotifier) Notify(ctx context.Context, n domain.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, n)
}

func (r *recordingNotifier) kinds() []domain.NotificationKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	kinds := make([]domain.NotificationKind, 0, len(r.events))
	for _, e := range r.events {
		kinds = append(kinds, e.Kind)
	}
	return kinds
}

func (r *recordingNotifier) count(kind domain.NotificationKind) int {
	n := 0
	for _, k := range r.kinds() {
		if k == kind {
			n++
		}
	}
	return n
}

func (r *recordingNotifier) last() domain.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.events) == 0 {
		return domain.Notification{}
	}
	return r.events[len(r.events)-1]
}

// lockCheckingNotifier checks on every notification whether the ticket lock of
// store is free.
type lockCheckingNotifier struct {
	store    *CartStore
	ticketID string
	locked   atomic.Int32
	calls    atomic.Int32
}

func (n *lockCheckingNotifier) Notify(ctx context.Context, _ domain.Notification) {
	n.calls.Add(1)
	acquired := make(chan struct{})
	go func() {
		unlock := n.store.locks.Lock(n.ticketID)
		unlock()
		close(acquired)
	}()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		n.locked.Add(1)
		<-acquired
	}
}
