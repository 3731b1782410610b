package service

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/rl1809/lottery-cart/internal/core/clock"
	"github.com/rl1809/lottery-cart/internal/core/domain"
	"github.com/rl1809/lottery-cart/internal/port"
)

const defaultLedgerTimeout = 5 * time.Second

type StoreConfig struct {
	// Window is the hold duration, domain.ReservationDuration when zero
	Window time.Duration
	// LedgerTimeout bounds every ledger call
	LedgerTimeout time.Duration
	Clock         clock.Clock
	Logger        *slog.Logger
	// NewID generates cart line ids, uuid.NewString when nil
	NewID func() string
	// SessionTTL makes a Registry forget sessions it has not seen for this
	// long. Zero keeps them until Drop.
	SessionTTL time.Duration
}

func (c StoreConfig) withDefaults() StoreConfig {
	if c.Window <= 0 {
		c.Window = domain.ReservationDuration
	}
	if c.LedgerTimeout <= 0 {
		c.LedgerTimeout = defaultLedgerTimeout
	}
	if c.Clock == nil {
		c.Clock = clock.System()
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.NewID == nil {
		c.NewID = uuid.NewString
	}
	return c
}

// CartStore holds the reserved lines of one session. Every quantity increase
// is committed only after the ledger confirmed the reservation, and every
// line is removed only after its stock was credited back (ClearAll aside).
//
// Operations that touch the same ticket are serialized by a per-ticket lock;
// the item list has its own mutex which is never held across a ledger call.
type CartStore struct {
	sessionID string
	ledger    port.StockLedger
	notifier  port.Notifier
	cfg       StoreConfig
	log       *slog.Logger

	locks *keyedMutex

	mu    sync.Mutex
	items []domain.CartItem
}

func NewCartStore(sessionID string, ledger port.StockLedger, notifier port.Notifier, cfg StoreConfig) *CartStore {
	cfg = cfg.withDefaults()
	return &CartStore{
		sessionID: sessionID,
		ledger:    ledger,
		notifier:  notifier,
		cfg:       cfg,
		log:       cfg.Logger.With("session_id", sessionID),
		locks:     newKeyedMutex(),
	}
}

func (s *CartStore) SessionID() string { return s.sessionID }

func (s *CartStore) Window() time.Duration { return s.cfg.Window }

// AddItem reserves one unit of ticket. A new line is created for an unknown
// ticket; otherwise the existing line grows by what the ledger reserved and
// its hold is refreshed.
func (s *CartStore) AddItem(ctx context.Context, ticket domain.Ticket) (domain.CartItem, error) {
	if ticket.ID == "" {
		return domain.CartItem{}, domain.ErrTicketNotFound
	}

	var pending outbox
	defer s.flush(ctx, &pending)

	unlock := s.locks.Lock(ticket.ID)
	defer unlock()

	res, err := s.reserve(ctx, ticket.ID, 1)
	if err != nil {
		s.log.Warn("reserve failed", "ticket_id", ticket.ID, "err", err)
		pending.add(domain.Notification{
			Kind:     domain.ReservationFailed,
			TicketID: ticket.ID,
			Quantity: 1,
			Message:  "could not reserve stock, please try again",
		})
		return domain.CartItem{}, fmt.Errorf("%w: %w", ErrLedgerUnavailable, err)
	}
	if !res.OK() {
		pending.add(domain.Notification{
			Kind:     domain.ReservationFailed,
			TicketID: ticket.ID,
			Quantity: 1,
			Message:  "this ticket is sold out",
		})
		return domain.CartItem{}, ErrInsufficientStock
	}

	now := s.cfg.Clock.Now()

	s.mu.Lock()
	var item domain.CartItem
	if i := s.indexByTicket(ticket.ID); i >= 0 {
		line := &s.items[i]
		line.Quantity += res.Quantity
		line.ReservedAt = now
		line.RemainingSnapshot = res.Remaining
		item = *line
	} else {
		item = domain.CartItem{
			CartID:            s.cfg.NewID(),
			Ticket:            ticket,
			Quantity:          res.Quantity,
			ReservedAt:        now,
			RemainingSnapshot: res.Remaining,
		}
		s.items = append(s.items, item)
	}
	s.mu.Unlock()

	pending.add(domain.Notification{
		Kind:     domain.ReservationSucceeded,
		CartID:   item.CartID,
		TicketID: ticket.ID,
		Quantity: res.Quantity,
		Message:  "added to cart",
	})
	return item, nil
}

// RemoveItem releases the whole line. The line stays in the cart if the
// release fails. Unknown cart ids are ignored.
func (s *CartStore) RemoveItem(ctx context.Context, cartID string) error {
	ticketID, ok := s.ticketOf(cartID)
	if !ok {
		return nil
	}

	var pending outbox
	defer s.flush(ctx, &pending)

	unlock := s.locks.Lock(ticketID)
	defer unlock()

	line, ok := s.Item(cartID)
	if !ok {
		return nil
	}

	if err := s.releaseLine(ctx, line, line.Quantity, &pending); err != nil {
		return err
	}

	s.mu.Lock()
	s.deleteLine(cartID)
	s.mu.Unlock()

	pending.add(domain.Notification{
		Kind:     domain.ReleaseSucceeded,
		CartID:   cartID,
		TicketID: ticketID,
		Quantity: line.Quantity,
		Message:  "removed from cart",
	})
	return nil
}

// UpdateItemQuantity moves a line to quantity by reserving or releasing the
// difference. Use RemoveItem to drop a line; quantity must be positive.
func (s *CartStore) UpdateItemQuantity(ctx context.Context, cartID string, quantity int) (domain.CartItem, error) {
	if quantity <= 0 {
		return domain.CartItem{}, domain.ErrInvalidQuantity
	}

	ticketID, ok := s.ticketOf(cartID)
	if !ok {
		return domain.CartItem{}, nil
	}

	var pending outbox
	defer s.flush(ctx, &pending)

	unlock := s.locks.Lock(ticketID)
	defer unlock()

	line, ok := s.Item(cartID)
	if !ok {
		return domain.CartItem{}, nil
	}

	diff := quantity - line.Quantity
	var res domain.StockResult
	switch {
	case diff == 0:
		return line, nil
	case diff > 0:
		r, err := s.reserve(ctx, ticketID, diff)
		if err != nil {
			s.log.Warn("reserve failed", "ticket_id", ticketID, "cart_id", cartID, "err", err)
			pending.add(domain.Notification{
				Kind:     domain.ReservationFailed,
				CartID:   cartID,
				TicketID: ticketID,
				Quantity: diff,
				Message:  "could not update quantity, please try again",
			})
			return line, fmt.Errorf("%w: %w", ErrLedgerUnavailable, err)
		}
		if !r.OK() {
			pending.add(domain.Notification{
				Kind:     domain.ReservationFailed,
				CartID:   cartID,
				TicketID: ticketID,
				Quantity: diff,
				Message:  "not enough stock for this quantity",
			})
			return line, ErrInsufficientStock
		}
		if r.Quantity != diff {
			s.log.Warn("ledger reserved a different quantity", "ticket_id", ticketID, "cart_id", cartID,
				"requested", diff, "reserved", r.Quantity)
			s.returnPartial(ctx, ticketID, r.Quantity)
			pending.add(domain.Notification{
				Kind:     domain.ReservationFailed,
				CartID:   cartID,
				TicketID: ticketID,
				Quantity: diff,
				Message:  "could not update quantity, please try again",
			})
			return line, fmt.Errorf("%w: reserved %d of %d", ErrPartialReservation, r.Quantity, diff)
		}
		res = r
	default:
		if err := s.releaseLine(ctx, line, -diff, &pending); err != nil {
			return line, err
		}
		res = domain.StockResult{Outcome: domain.OutcomeOK, Quantity: -diff}
	}

	now := s.cfg.Clock.Now()

	s.mu.Lock()
	i := s.indexByCart(cartID)
	if i < 0 {
		// Only Hydrate can drop a line without the ticket lock.
		s.mu.Unlock()
		s.log.Warn("line replaced during update", "cart_id", cartID, "ticket_id", ticketID)
		return domain.CartItem{}, nil
	}
	updated := &s.items[i]
	if diff > 0 {
		updated.Quantity += res.Quantity
		updated.RemainingSnapshot = res.Remaining
	} else {
		updated.Quantity -= res.Quantity
	}
	updated.ReservedAt = now
	out := *updated
	s.mu.Unlock()

	kind, msg := domain.ReservationSucceeded, "quantity increased"
	if diff < 0 {
		kind, msg = domain.ReleaseSucceeded, "quantity decreased"
	}
	pending.add(domain.Notification{
		Kind:     kind,
		CartID:   cartID,
		TicketID: ticketID,
		Quantity: res.Quantity,
		Message:  msg,
	})
	return out, nil
}

// ClearExpired releases every line whose hold ran out and evicts the lines
// the ledger credited back. Failed releases stay for the next sweep. It
// returns the number of evicted lines.
func (s *CartStore) ClearExpired(ctx context.Context) int {
	now := s.cfg.Clock.Now()

	s.mu.Lock()
	var expired []domain.CartItem
	for _, item := range s.items {
		if item.Expired(now, s.cfg.Window) {
			expired = append(expired, item)
		}
	}
	s.mu.Unlock()

	if len(expired) == 0 {
		return 0
	}

	var (
		wg      sync.WaitGroup
		evicted atomic.Int32
	)
	for _, line := range expired {
		wg.Add(1)
		go func(line domain.CartItem) {
			defer wg.Done()
			if s.evictExpired(ctx, line.CartID, line.ID) {
				evicted.Add(1)
			}
		}(line)
	}
	wg.Wait()

	n := int(evicted.Load())
	if n > 0 {
		s.log.Info("expired holds evicted", "count", n)
		s.emit(ctx, domain.Notification{
			Kind:    domain.ExpirySweepEvicted,
			Count:   n,
			Message: fmt.Sprintf("%d item(s) reached the hold limit and were returned to stock", n),
		})
	}
	return n
}

func (s *CartStore) evictExpired(ctx context.Context, cartID, ticketID string) bool {
	var pending outbox
	defer s.flush(ctx, &pending)

	unlock := s.locks.Lock(ticketID)
	defer unlock()

	// The line may have been removed or refreshed while waiting for the lock.
	line, ok := s.Item(cartID)
	if !ok || !line.Expired(s.cfg.Clock.Now(), s.cfg.Window) {
		return false
	}

	if err := s.releaseLine(ctx, line, line.Quantity, &pending); err != nil {
		return false
	}

	s.mu.Lock()
	s.deleteLine(cartID)
	s.mu.Unlock()
	return true
}

// ClearAll abandons the cart: every line present when it is called is
// released and removed, whether or not the ledger accepted the release. It
// returns how many lines were credited back.
func (s *CartStore) ClearAll(ctx context.Context) int {
	lines := s.Items()
	if len(lines) == 0 {
		return 0
	}

	var (
		wg       sync.WaitGroup
		released atomic.Int32
	)
	for _, line := range lines {
		wg.Add(1)
		go func(line domain.CartItem) {
			defer wg.Done()

			var pending outbox
			defer s.flush(ctx, &pending)

			unlock := s.locks.Lock(line.ID)
			defer unlock()

			current, ok := s.Item(line.CartID)
			if !ok {
				return
			}
			if err := s.releaseLine(ctx, current, current.Quantity, &pending); err == nil {
				released.Add(1)
			}

			s.mu.Lock()
			s.deleteLine(current.CartID)
			s.mu.Unlock()
		}(line)
	}
	wg.Wait()

	return int(released.Load())
}

// Hydrate replaces the cart wholesale without calling the ledger. The
// snapshot must already be consistent with the ledger.
func (s *CartStore) Hydrate(items []domain.CartItem) error {
	if err := validateLines(items); err != nil {
		return err
	}

	s.mu.Lock()
	s.items = slices.Clone(items)
	s.mu.Unlock()
	return nil
}

func validateLines(items []domain.CartItem) error {
	cartIDs := make(map[string]struct{}, len(items))
	ticketIDs := make(map[string]struct{}, len(items))
	for _, item := range items {
		if item.CartID == "" || item.ID == "" {
			return fmt.Errorf("%w: line without id", ErrInvalidHydration)
		}
		if item.Quantity <= 0 {
			return fmt.Errorf("%w: line %s has quantity %d", ErrInvalidHydration, item.CartID, item.Quantity)
		}
		if _, dup := cartIDs[item.CartID]; dup {
			return fmt.Errorf("%w: duplicate cart id %s", ErrInvalidHydration, item.CartID)
		}
		if _, dup := ticketIDs[item.ID]; dup {
			return fmt.Errorf("%w: duplicate ticket %s", ErrInvalidHydration, item.ID)
		}
		cartIDs[item.CartID] = struct{}{}
		ticketIDs[item.ID] = struct{}{}
	}
	return nil
}

// Items returns a copy of the held lines in insertion order.
func (s *CartStore) Items() []domain.CartItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.items)
}

func (s *CartStore) Item(cartID string) (domain.CartItem, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexByCart(cartID); i >= 0 {
		return s.items[i], true
	}
	return domain.CartItem{}, false
}

func (s *CartStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// releaseLine credits quantity of line back to the ledger and queues a
// failure notification.
func (s *CartStore) releaseLine(ctx context.Context, line domain.CartItem, quantity int, pending *outbox) error {
	res, err := s.release(ctx, line.ID, quantity)
	if err == nil && res.OK() {
		return nil
	}

	if err != nil {
		s.log.Warn("release failed", "ticket_id", line.ID, "cart_id", line.CartID, "err", err)
		err = fmt.Errorf("%w: %w", ErrLedgerUnavailable, err)
	} else {
		s.log.Warn("release rejected", "ticket_id", line.ID, "cart_id", line.CartID, "outcome", res.Outcome)
		err = ErrReleaseRejected
	}
	pending.add(domain.Notification{
		Kind:     domain.ReleaseFailed,
		CartID:   line.CartID,
		TicketID: line.ID,
		Quantity: quantity,
		Message:  "could not return stock, please try again",
	})
	return err
}

// Ledger calls run to completion even if the caller goes away; only the
// ledger timeout bounds them.
func (s *CartStore) reserve(ctx context.Context, ticketID string, quantity int) (domain.StockResult, error) {
	lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.LedgerTimeout)
	defer cancel()
	return s.ledger.Reserve(lctx, ticketID, quantity)
}

func (s *CartStore) release(ctx context.Context, ticketID string, quantity int) (domain.StockResult, error) {
	lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.LedgerTimeout)
	defer cancel()
	return s.ledger.Release(lctx, ticketID, quantity)
}

// returnPartial hands back a reservation the cart will not record.
func (s *CartStore) returnPartial(ctx context.Context, ticketID string, quantity int) {
	if quantity <= 0 {
		return
	}
	if _, err := s.release(ctx, ticketID, quantity); err != nil {
		s.log.Error("return partial reservation failed", "ticket_id", ticketID, "quantity", quantity, "err", err)
	}
}

// outbox collects notifications raised under a ticket lock. flush sends them
// after the lock is released.
type outbox []domain.Notification

func (o *outbox) add(n domain.Notification) { *o = append(*o, n) }

func (s *CartStore) flush(ctx context.Context, pending *outbox) {
	for _, n := range *pending {
		s.emit(ctx, n)
	}
}

func (s *CartStore) emit(ctx context.Context, n domain.Notification) {
	if s.notifier == nil {
		return
	}
	n.SessionID = s.sessionID
	n.Level = n.Kind.Level()
	n.At = s.cfg.Clock.Now()
	s.notifier.Notify(context.WithoutCancel(ctx), n)
}

func (s *CartStore) ticketOf(cartID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexByCart(cartID); i >= 0 {
		return s.items[i].ID, true
	}
	return "", false
}

// indexByCart and indexByTicket require s.mu.
func (s *CartStore) indexByCart(cartID string) int {
	return slices.IndexFunc(s.items, func(c domain.CartItem) bool { return c.CartID == cartID })
}

func (s *CartStore) indexByTicket(ticketID string) int {
	return slices.IndexFunc(s.items, func(c domain.CartItem) bool { return c.ID == ticketID })
}

// deleteLine requires s.mu.
func (s *CartStore) deleteLine(cartID string) {
	s.items = slices.DeleteFunc(s.items, func(c domain.CartItem) bool { return c.CartID == cartID })
}
