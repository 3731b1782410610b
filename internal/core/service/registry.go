package service

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/rl1809/lottery-cart/internal/port"
)

// Registry owns one CartStore per session. All stores share the ledger and
// the notifier.
type Registry struct {
	ledger   port.StockLedger
	notifier port.Notifier
	cfg      StoreConfig
	log      *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*session
}

type session struct {
	store *CartStore
	// lastSeen is the unix nano time of the last GetOrCreate
	lastSeen atomic.Int64
}

func NewRegistry(ledger port.StockLedger, notifier port.Notifier, cfg StoreConfig) *Registry {
	cfg = cfg.withDefaults()
	return &Registry{
		ledger:   ledger,
		notifier: notifier,
		cfg:      cfg,
		log:      cfg.Logger,
		sessions: make(map[string]*session),
	}
}

func (r *Registry) Get(sessionID string) (*CartStore, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if s, ok := r.sessions[sessionID]; ok {
		return s.store, true
	}
	return nil, false
}

// GetOrCreate returns the session's cart and marks the session as seen.
func (r *Registry) GetOrCreate(sessionID string) *CartStore {
	now := r.cfg.Clock.Now().UnixNano()

	r.mu.RLock()
	s, ok := r.sessions[sessionID]
	if ok {
		s.lastSeen.Store(now)
	}
	r.mu.RUnlock()
	if ok {
		return s.store
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[sessionID]; ok {
		s.lastSeen.Store(now)
		return s.store
	}
	s = &session{store: NewCartStore(sessionID, r.ledger, r.notifier, r.cfg)}
	s.lastSeen.Store(now)
	r.sessions[sessionID] = s
	r.log.Debug("session cart created", "session_id", sessionID)
	return s.store
}

// Drop abandons a session's cart and forgets the session.
func (r *Registry) Drop(ctx context.Context, sessionID string) {
	r.mu.Lock()
	s, ok := r.sessions[sessionID]
	delete(r.sessions, sessionID)
	r.mu.Unlock()

	if ok {
		s.store.ClearAll(ctx)
	}
}

func (r *Registry) Sessions() []string {
	r.mu.RLock()
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	r.mu.RUnlock()
	sort.Strings(ids)
	return ids
}

func (r *Registry) snapshot() []*CartStore {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stores := make([]*CartStore, 0, len(r.sessions))
	for _, s := range r.sessions {
		stores = append(stores, s.store)
	}
	return stores
}

// ClearExpired sweeps every session, then drops idle sessions. It returns
// the total evicted lines.
func (r *Registry) ClearExpired(ctx context.Context) int {
	total := 0
	for _, s := range r.snapshot() {
		total += s.ClearExpired(ctx)
	}
	r.DropIdle(ctx)
	return total
}

// DropIdle abandons the carts of sessions not seen for SessionTTL and
// returns how many sessions were forgotten.
func (r *Registry) DropIdle(ctx context.Context) int {
	if r.cfg.SessionTTL <= 0 {
		return 0
	}
	cutoff := r.cfg.Clock.Now().Add(-r.cfg.SessionTTL).UnixNano()

	r.mu.Lock()
	var idle []*CartStore
	for id, s := range r.sessions {
		if s.lastSeen.Load() <= cutoff {
			idle = append(idle, s.store)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	for _, s := range idle {
		s.ClearAll(ctx)
	}
	if len(idle) > 0 {
		r.log.Info("idle sessions dropped", "count", len(idle))
	}
	return len(idle)
}

// ReleaseAll abandons every cart and credits the held stock back.
func (r *Registry) ReleaseAll(ctx context.Context) int {
	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		total int
	)
	for _, s := range r.snapshot() {
		wg.Add(1)
		go func(s *CartStore) {
			defer wg.Done()
			n := s.ClearAll(ctx)
			mu.Lock()
			total += n
			mu.Unlock()
		}(s)
	}
	wg.Wait()
	return total
}
