package storage

import (
	"context"
	"sync"

	"github.com/rl1809/lottery-cart/internal/core/domain"
)

// MemoryLedger keeps remaining stock in process memory. It stands in for a
// real stock table and is the default backend for a single instance.
type MemoryLedger struct {
	mu    sync.Mutex
	stock map[string]int
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{stock: make(map[string]int)}
}

func (m *MemoryLedger) Reserve(ctx context.Context, ticketID string, quantity int) (domain.StockResult, error) {
	if quantity <= 0 {
		return domain.StockResult{}, domain.ErrInvalidQuantity
	}
	if err := ctx.Err(); err != nil {
		return domain.StockResult{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	current := m.stock[ticketID]
	if current < quantity {
		return domain.Insufficient(current), nil
	}
	m.stock[ticketID] = current - quantity
	return domain.Reserved(quantity, current-quantity), nil
}

func (m *MemoryLedger) Release(ctx context.Context, ticketID string, quantity int) (domain.StockResult, error) {
	if quantity <= 0 {
		return domain.StockResult{}, domain.ErrInvalidQuantity
	}
	if err := ctx.Err(); err != nil {
		return domain.StockResult{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.stock[ticketID] += quantity
	return domain.Released(quantity, m.stock[ticketID]), nil
}

func (m *MemoryLedger) Seed(ctx context.Context, ticketID string, initial int) (bool, error) {
	if initial < 0 {
		return false, domain.ErrInvalidQuantity
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.stock[ticketID]; ok {
		return false, nil
	}
	m.stock[ticketID] = initial
	return true, nil
}

func (m *MemoryLedger) Remaining(ctx context.Context, ticketID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stock[ticketID], nil
}

// Snapshot returns a copy of every known entry.
func (m *MemoryLedger) Snapshot() []domain.StockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entries := make([]domain.StockEntry, 0, len(m.stock))
	for id, n := range m.stock {
		entries = append(entries, domain.StockEntry{TicketID: id, Remaining: n})
	}
	return entries
}
