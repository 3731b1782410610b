package service

import (
	"context"
	"log/slog"
	"time"
)

const DefaultSweepInterval = time.Second

// Expirer is anything that can evict expired holds: a single CartStore or a
// whole Registry.
type Expirer interface {
	ClearExpired(ctx context.Context) int
}

// Sweeper calls ClearExpired on a fixed period until its context ends.
type Sweeper struct {
	target   Expirer
	interval time.Duration
	log      *slog.Logger
}

func NewSweeper(target Expirer, interval time.Duration, log *slog.Logger) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	if log == nil {
		log = slog.Default()
	}
	return &Sweeper{target: target, interval: interval, log: log}
}

// Run sweeps once immediately, then on every tick. It blocks until ctx is done.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	if n := s.target.ClearExpired(ctx); n > 0 {
		s.log.Info("sweep evicted expired holds", "count", n)
	}
}
