package storage

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/rl1809/lottery-cart/internal/core/domain"
)

func TestMemoryLedger_ReserveAndRelease(t *testing.T) {
	ctx := context.Background()
	ledger := NewMemoryLedger()
	ledger.Seed(ctx, "T1", 3)

	res, err := ledger.Reserve(ctx, "T1", 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.OK() || res.Quantity != 2 || res.Remaining != 1 {
		t.Errorf("unexpected reserve result %+v", res)
	}

	res, _ = ledger.Reserve(ctx, "T1", 2)
	if res.Outcome != domain.OutcomeInsufficientStock || res.Remaining != 1 {
		t.Errorf("expected insufficient with remaining 1, got %+v", res)
	}

	res, _ = ledger.Release(ctx, "T1", 2)
	if !res.OK() || res.Remaining != 3 {
		t.Errorf("unexpected release result %+v", res)
	}
}

func TestMemoryLedger_UnknownTicketIsZero(t *testing.T) {
	ctx := context.Background()
	ledger := NewMemoryLedger()

	res, err := ledger.Reserve(ctx, "nope", 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.OK() || res.Remaining != 0 {
		t.Errorf("expected insufficient stock for unknown ticket, got %+v", res)
	}
}

func TestMemoryLedger_RejectsNonPositive(t *testing.T) {
	ctx := context.Background()
	ledger := NewMemoryLedger()

	if _, err := ledger.Reserve(ctx, "T1", 0); !errors.Is(err, domain.ErrInvalidQuantity) {
		t.Errorf("expected ErrInvalidQuantity on reserve, got: %v", err)
	}
	if _, err := ledger.Release(ctx, "T1", -1); !errors.Is(err, domain.ErrInvalidQuantity) {
		t.Errorf("expected ErrInvalidQuantity on release, got: %v", err)
	}
	if _, err := ledger.Seed(ctx, "T1", -1); !errors.Is(err, domain.ErrInvalidQuantity) {
		t.Errorf("expected ErrInvalidQuantity on seed, got: %v", err)
	}
}

func TestMemoryLedger_SeedIsIdempotent(t *testing.T) {
	ctx := context.Background()
	ledger := NewMemoryLedger()

	if ok, _ := ledger.Seed(ctx, "T1", 5); !ok {
		t.Error("expected first seed to apply")
	}
	ledger.Reserve(ctx, "T1", 1)
	if ok, _ := ledger.Seed(ctx, "T1", 5); ok {
		t.Error("expected second seed to be ignored")
	}
	if n, _ := ledger.Remaining(ctx, "T1"); n != 4 {
		t.Errorf("expected remaining 4, got %d", n)
	}
	if got := ledger.Snapshot(); len(got) != 1 || got[0].Remaining != 4 {
		t.Errorf("unexpected snapshot %+v", got)
	}
}

func TestMemoryLedger_Concurrent(t *testing.T) {
	ctx := context.Background()
	ledger := NewMemoryLedger()

	initialStock := 20
	totalRequests := 50
	ledger.Seed(ctx, "concurrent-test", initialStock)

	var successCount atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := ledger.Reserve(ctx, "concurrent-test", 1)
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			if res.OK() {
				successCount.Add(1)
			}
		}()
	}
	wg.Wait()

	if successCount.Load() != int32(initialStock) {
		t.Errorf("expected %d successes, got %d", initialStock, successCount.Load())
	}
	if n, _ := ledger.Remaining(ctx, "concurrent-test"); n != 0 {
		t.Errorf("expected stock 0, got %d", n)
	}
}
