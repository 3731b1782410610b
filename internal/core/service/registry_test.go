package service

import (
	"context"
	"errors"
	"reflect"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rl1809/lottery-cart/internal/core/clock"
	"github.com/rl1809/lottery-cart/internal/core/domain"
)

func TestRegistry_SharesLedgerAcrossSessions(t *testing.T) {
	ledger := newMockLedger(map[string]int{"T1": 1})
	reg := NewRegistry(ledger, &recordingNotifier{}, StoreConfig{})
	ctx := context.Background()

	alice := reg.GetOrCreate("alice")
	bob := reg.GetOrCreate("bob")

	if _, err := alice.AddItem(ctx, t1); err != nil {
		t.Fatalf("alice add failed: %v", err)
	}
	if _, err := bob.AddItem(ctx, t1); !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("expected bob to see sold out, got: %v", err)
	}

	if reg.GetOrCreate("alice") != alice {
		t.Error("expected GetOrCreate to return the existing store")
	}
	if got := reg.Sessions(); !reflect.DeepEqual(got, []string{"alice", "bob"}) {
		t.Errorf("unexpected sessions %v", got)
	}
}

func TestRegistry_DropReleasesHolds(t *testing.T) {
	ledger := newMockLedger(map[string]int{"T1": 2})
	reg := NewRegistry(ledger, &recordingNotifier{}, StoreConfig{})
	ctx := context.Background()

	s := reg.GetOrCreate("alice")
	s.AddItem(ctx, t1)
	s.AddItem(ctx, t1)

	reg.Drop(ctx, "alice")
	if _, ok := reg.Get("alice"); ok {
		t.Error("expected session to be forgotten")
	}
	if ledger.remaining("T1") != 2 {
		t.Errorf("expected stock restored to 2, got %d", ledger.remaining("T1"))
	}

	// unknown sessions are ignored
	reg.Drop(ctx, "nobody")
}

func TestRegistry_ClearExpiredAndReleaseAll(t *testing.T) {
	ledger := newMockLedger(map[string]int{"T1": 5, "T2": 5})
	clk := clock.NewManual(time.Now())
	reg := NewRegistry(ledger, &recordingNotifier{}, StoreConfig{Clock: clk})
	ctx := context.Background()

	reg.GetOrCreate("a").AddItem(ctx, t1)
	clk.Advance(5 * time.Minute)
	reg.GetOrCreate("b").AddItem(ctx, domain.Ticket{ID: "T2"})
	clk.Advance(5 * time.Minute)

	if n := reg.ClearExpired(ctx); n != 1 {
		t.Fatalf("expected 1 eviction across sessions, got %d", n)
	}
	if ledger.remaining("T1") != 5 {
		t.Errorf("expected T1 restored, got %d", ledger.remaining("T1"))
	}

	if n := reg.ReleaseAll(ctx); n != 1 {
		t.Fatalf("expected 1 released line, got %d", n)
	}
	if ledger.remaining("T2") != 5 {
		t.Errorf("expected T2 restored, got %d", ledger.remaining("T2"))
	}
}

func TestRegistry_SweepDropsIdleSessions(t *testing.T) {
	ledger := newMockLedger(map[string]int{"T1": 5})
	clk := clock.NewManual(time.Now())
	reg := NewRegistry(ledger, &recordingNotifier{}, StoreConfig{
		Clock:      clk,
		Window:     2 * time.Hour,
		SessionTTL: time.Hour,
	})
	ctx := context.Background()

	reg.GetOrCreate("idle").AddItem(ctx, t1)
	clk.Advance(30 * time.Minute)
	reg.GetOrCreate("active").AddItem(ctx, t1)

	clk.Advance(30*time.Minute - time.Millisecond)
	reg.ClearExpired(ctx)
	if got := reg.Sessions(); !reflect.DeepEqual(got, []string{"active", "idle"}) {
		t.Fatalf("expected both sessions before the TTL, got %v", got)
	}

	clk.Advance(time.Millisecond)
	if n := reg.ClearExpired(ctx); n != 0 {
		t.Errorf("expected no expired lines, got %d", n)
	}
	if got := reg.Sessions(); !reflect.DeepEqual(got, []string{"active"}) {
		t.Fatalf("expected only the active session, got %v", got)
	}
	if ledger.remaining("T1") != 4 {
		t.Errorf("expected the idle session's hold credited back, got %d", ledger.remaining("T1"))
	}

	// seeing a session again keeps it alive
	clk.Advance(50 * time.Minute)
	reg.GetOrCreate("active")
	clk.Advance(50 * time.Minute)
	if n := reg.DropIdle(ctx); n != 0 {
		t.Errorf("expected the refreshed session kept, dropped %d", n)
	}
}

func TestRegistry_NoSessionTTLKeepsSessions(t *testing.T) {
	clk := clock.NewManual(time.Now())
	reg := NewRegistry(newMockLedger(nil), nil, StoreConfig{Clock: clk})
	reg.GetOrCreate("alice")

	clk.Advance(365 * 24 * time.Hour)
	if n := reg.DropIdle(context.Background()); n != 0 {
		t.Errorf("expected nothing dropped without a TTL, got %d", n)
	}
}

type countingExpirer struct {
	calls atomic.Int32
}

func (c *countingExpirer) ClearExpired(ctx context.Context) int {
	c.calls.Add(1)
	return 0
}

func TestSweeper_RunsUntilCancelled(t *testing.T) {
	target := &countingExpirer{}
	sweeper := NewSweeper(target, 5*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sweeper.Run(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for target.calls.Load() < 3 {
		select {
		case <-deadline:
			t.Fatalf("expected at least 3 sweeps, got %d", target.calls.Load())
		case <-time.After(time.Millisecond):
		}
	}
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after cancel")
	}
}

func TestSweeper_DefaultInterval(t *testing.T) {
	s := NewSweeper(&countingExpirer{}, 0, nil)
	if s.interval != DefaultSweepInterval {
		t.Errorf("expected default interval %v, got %v", DefaultSweepInterval, s.interval)
	}
}

type staticCatalog struct {
	tickets []domain.Ticket
	err     error
}

func (c staticCatalog) ListTickets(ctx context.Context) ([]domain.Ticket, error) {
	return c.tickets, c.err
}

func (c staticCatalog) GetTicket(ctx context.Context, id string) (domain.Ticket, error) {
	for _, t := range c.tickets {
		if t.ID == id {
			return t, nil
		}
	}
	return domain.Ticket{}, domain.ErrTicketNotFound
}

func TestSeedStock_Idempotent(t *testing.T) {
	ledger := newMockLedger(nil)
	catalog := staticCatalog{tickets: []domain.Ticket{
		{ID: "T1", Remaining: 3},
		{ID: "T2", Remaining: 0},
	}}
	ctx := context.Background()

	n, err := SeedStock(ctx, catalog, ledger)
	if err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 seeded, got %d", n)
	}

	ledger.Reserve(ctx, "T1", 1)
	n, err = SeedStock(ctx, catalog, ledger)
	if err != nil {
		t.Fatalf("reseed failed: %v", err)
	}
	if n != 0 {
		t.Errorf("expected nothing reseeded, got %d", n)
	}
	if ledger.remaining("T1") != 2 {
		t.Errorf("expected reseed to keep held stock, got %d", ledger.remaining("T1"))
	}
}

func TestSeedStock_CatalogError(t *testing.T) {
	boom := errors.New("catalog offline")
	_, err := SeedStock(context.Background(), staticCatalog{err: boom}, newMockLedger(nil))
	if !errors.Is(err, boom) {
		t.Errorf("expected wrapped catalog error, got: %v", err)
	}
}

func TestRegistry_RestoreReservesBeforeHydrating(t *testing.T) {
	ledger := newMockLedger(map[string]int{"T1": 3, "T2": 0})
	clk := clock.NewManual(time.Now())
	reg := NewRegistry(ledger, nil, StoreConfig{Clock: clk})
	cat := staticCatalog{tickets: []domain.Ticket{t1, t2}}
	ctx := context.Background()

	saved := clk.Now().Add(-time.Minute)
	n, err := reg.Restore(ctx, cat, CartSnapshot{
		SessionID: "alice",
		Lines: []SnapshotLine{
			{CartID: "c-1", TicketID: "T1", Quantity: 2, ReservedAt: saved},
			{CartID: "c-2", TicketID: "T2", Quantity: 1},
			{CartID: "c-3", TicketID: "GONE", Quantity: 1},
		},
	})
	if err != nil {
		t.Fatalf("restore failed: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 restored line, got %d", n)
	}

	store, _ := reg.Get("alice")
	items := store.Items()
	if len(items) != 1 || items[0].CartID != "c-1" || items[0].Quantity != 2 {
		t.Fatalf("unexpected items %+v", items)
	}
	if !items[0].ReservedAt.Equal(saved) || items[0].Price != t1.Price {
		t.Errorf("expected saved hold time and catalog ticket, got %+v", items[0])
	}
	if got := totalHeld(items, "T1") + ledger.remaining("T1"); got != 3 {
		t.Errorf("expected held + remaining = 3, got %d", got)
	}
	if ledger.remaining("T2") != 0 {
		t.Errorf("expected sold-out T2 untouched, got %d", ledger.remaining("T2"))
	}
}

func TestRegistry_RestoreRejectsInvalidSnapshots(t *testing.T) {
	ledger := newMockLedger(map[string]int{"T1": 5})
	reg := NewRegistry(ledger, nil, StoreConfig{})
	cat := staticCatalog{tickets: []domain.Ticket{t1}}
	ctx := context.Background()

	one := SnapshotLine{TicketID: "T1", Quantity: 1}
	cases := map[string]CartSnapshot{
		"no session":       {Lines: []SnapshotLine{one}},
		"zero quantity":    {SessionID: "a", Lines: []SnapshotLine{{TicketID: "T1"}}},
		"duplicate ticket": {SessionID: "b", Lines: []SnapshotLine{one, one}},
	}
	for name, snap := range cases {
		if _, err := reg.Restore(ctx, cat, snap); !errors.Is(err, ErrInvalidHydration) {
			t.Errorf("%s: expected ErrInvalidHydration, got: %v", name, err)
		}
	}
	if ledger.remaining("T1") != 5 {
		t.Errorf("expected ledger untouched, got %d", ledger.remaining("T1"))
	}

	reg.GetOrCreate("busy").AddItem(ctx, t1)
	_, err := reg.Restore(ctx, cat, CartSnapshot{SessionID: "busy", Lines: []SnapshotLine{one}})
	if !errors.Is(err, ErrInvalidHydration) {
		t.Errorf("expected restore into a non-empty cart to fail, got: %v", err)
	}
}

func TestRegistry_RestoreRollsBackOnLedgerFailure(t *testing.T) {
	ledger := newMockLedger(map[string]int{"T1": 5, "T2": 5})
	reg := NewRegistry(&failAfterLedger{mockLedger: ledger, okCalls: 1}, nil, StoreConfig{})
	cat := staticCatalog{tickets: []domain.Ticket{t1, {ID: "T2"}}}
	ctx := context.Background()

	_, err := reg.Restore(ctx, cat, CartSnapshot{SessionID: "a", Lines: []SnapshotLine{
		{TicketID: "T1", Quantity: 2},
		{TicketID: "T2", Quantity: 1},
	}})
	if !errors.Is(err, ErrLedgerUnavailable) {
		t.Fatalf("expected ErrLedgerUnavailable, got: %v", err)
	}
	if ledger.remaining("T1") != 5 {
		t.Errorf("expected T1 handed back, got %d", ledger.remaining("T1"))
	}
	if store, _ := reg.Get("a"); store.Len() != 0 {
		t.Errorf("expected empty cart after rollback, got %d lines", store.Len())
	}
}

// failAfterLedger lets okCalls reserves through and fails the rest.
type failAfterLedger struct {
	*mockLedger
	okCalls int
	calls   int
}

func (f *failAfterLedger) Reserve(ctx context.Context, ticketID string, quantity int) (domain.StockResult, error) {
	f.calls++
	if f.calls > f.okCalls {
		return domain.StockResult{}, errTransport
	}
	return f.mockLedger.Reserve(ctx, ticketID, quantity)
}
