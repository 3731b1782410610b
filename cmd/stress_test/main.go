package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"

	"github.com/rl1809/lottery-cart/internal/adapter/storage"
	"github.com/rl1809/lottery-cart/internal/core/domain"
	"github.com/rl1809/lottery-cart/internal/core/service"
	"github.com/rl1809/lottery-cart/internal/port"
)

const ticketID = "stress-ticket"

func main() {
	var (
		backend       string
		redisAddr     string
		initialStock  int
		totalSessions int
	)
	pflag.StringVar(&backend, "ledger", "memory", "ledger backend: memory or redis")
	pflag.StringVar(&redisAddr, "redis-addr", "localhost:6379", "redis address for --ledger=redis")
	pflag.IntVar(&initialStock, "stock", 20, "units seeded for the contested ticket")
	pflag.IntVar(&totalSessions, "sessions", 50, "concurrent sessions adding the ticket")
	pflag.Parse()

	ctx := context.Background()

	var ledger port.StockLedger
	switch backend {
	case "redis":
		rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			fmt.Fprintf(os.Stderr, "failed to connect redis: %v\n", err)
			os.Exit(1)
		}
		defer rdb.Close()

		// Clear previous test data
		rdb.Del(ctx, "stock:"+ticketID)
		ledger = storage.NewRedisAdapter(rdb)
	default:
		ledger = storage.NewMemoryLedger()
	}

	if _, err := ledger.Seed(ctx, ticketID, initialStock); err != nil {
		fmt.Fprintf(os.Stderr, "failed to seed stock: %v\n", err)
		os.Exit(1)
	}

	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	registry := service.NewRegistry(ledger, nil, service.StoreConfig{Logger: quiet})
	ticket := domain.Ticket{ID: ticketID, Number: "000000", Price: 8000}

	// Counters
	var successCount atomic.Int32
	var failCount atomic.Int32

	// One goroutine per session
	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < totalSessions; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			store := registry.GetOrCreate(fmt.Sprintf("session-%d", n))
			if _, err := store.AddItem(ctx, ticket); err == nil {
				successCount.Add(1)
			} else {
				failCount.Add(1)
			}
		}(i)
	}

	wg.Wait()
	elapsed := time.Since(start)

	success := successCount.Load()
	fail := failCount.Load()

	held := 0
	for _, id := range registry.Sessions() {
		store, _ := registry.Get(id)
		for _, item := range store.Items() {
			held += item.Quantity
		}
	}
	remaining, _ := ledger.Remaining(ctx, ticketID)

	fmt.Println("========== STRESS TEST RESULTS ==========")
	fmt.Printf("Ledger:           %s\n", backend)
	fmt.Printf("Initial Stock:    %d\n", initialStock)
	fmt.Printf("Sessions:         %d\n", totalSessions)
	fmt.Printf("Successful:       %d\n", success)
	fmt.Printf("Failed:           %d\n", fail)
	fmt.Printf("Held In Carts:    %d\n", held)
	fmt.Printf("Ledger Remaining: %d\n", remaining)
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("==========================================")

	ok := true
	want := min(initialStock, totalSessions)
	if int(success) == want {
		fmt.Printf("PASS: exactly %d reservations succeeded\n", want)
	} else {
		fmt.Printf("FAIL: expected %d successes, got %d\n", want, success)
		ok = false
	}

	if held+remaining == initialStock {
		fmt.Println("PASS: held + remaining equals initial stock")
	} else {
		fmt.Printf("FAIL: held %d + remaining %d != %d\n", held, remaining, initialStock)
		ok = false
	}

	registry.ReleaseAll(ctx)
	final, _ := ledger.Remaining(ctx, ticketID)
	if final == initialStock {
		fmt.Println("PASS: releasing every cart restored the stock")
	} else {
		fmt.Printf("FAIL: expected stock %d after release, got %d\n", initialStock, final)
		ok = false
	}

	if !ok {
		os.Exit(1)
	}
}
