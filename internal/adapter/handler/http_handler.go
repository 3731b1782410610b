package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/rl1809/lottery-cart/internal/core/domain"
	"github.com/rl1809/lottery-cart/internal/core/service"
	"github.com/rl1809/lottery-cart/internal/port"
)

type HTTPHandler struct {
	registry *service.Registry
	ledger   port.StockLedger
	catalog  port.Catalog
	sessions *Sessions
	log      *slog.Logger

	ledgerAPI bool
}

func NewHTTPHandler(registry *service.Registry, ledger port.StockLedger, catalog port.Catalog, sessions *Sessions, log *slog.Logger) *HTTPHandler {
	if log == nil {
		log = slog.Default()
	}
	return &HTTPHandler{
		registry: registry,
		ledger:   ledger,
		catalog:  catalog,
		sessions: sessions,
		log:      log,
	}
}

// NewServer builds an echo instance with every route registered.
func (h *HTTPHandler) NewServer() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{Generator: uuid.NewString}))
	h.Register(e)
	return e
}

// EnableLedgerAPI exposes the raw reserve, release and seed endpoints. They
// move stock without a cart and are meant for local development only.
func (h *HTTPHandler) EnableLedgerAPI() *HTTPHandler {
	h.ledgerAPI = true
	return h
}

func (h *HTTPHandler) Register(e *echo.Echo) {
	e.GET("/healthz", h.HealthCheck)

	if h.ledgerAPI {
		e.POST("/api/cart/reserve", h.Reserve)
		e.POST("/api/cart/release", h.Release)
		e.POST("/api/stock/seed", h.Seed)
	}
	e.PUT("/api/cart/update", h.UpdateLine, h.sessions.Middleware())
	e.GET("/api/stock/:ticketId", h.Stock)

	e.POST("/v1/sessions", h.CreateSession)
	e.GET("/v1/tickets", h.ListTickets)
	e.GET("/v1/tickets/:id", h.GetTicket)

	cart := e.Group("/v1/cart", h.sessions.Middleware())
	cart.GET("", h.GetCart)
	cart.DELETE("", h.ClearCart)
	cart.POST("/items", h.AddItem)
	cart.DELETE("/items/:cartId", h.RemoveItem)
	cart.PATCH("/items/:cartId", h.UpdateItem)
}

func (h *HTTPHandler) HealthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
}

func (h *HTTPHandler) Reserve(c echo.Context) error {
	var req StockRequest
	if err := c.Bind(&req); err != nil || req.TicketID == "" {
		return c.JSON(http.StatusBadRequest, ReserveResponse{Message: "invalid request body"})
	}

	res, err := h.ledger.Reserve(c.Request().Context(), req.TicketID, req.Quantity)
	if err != nil {
		status, msg := h.statusOf(c, err)
		return c.JSON(status, ReserveResponse{Message: msg})
	}
	if !res.OK() {
		return c.JSON(http.StatusConflict, ReserveResponse{RemainingStock: res.Remaining, Message: "insufficient stock"})
	}
	return c.JSON(http.StatusOK, ReserveResponse{
		Success:          true,
		ReservedQuantity: res.Quantity,
		RemainingStock:   res.Remaining,
	})
}

func (h *HTTPHandler) Release(c echo.Context) error {
	var req StockRequest
	if err := c.Bind(&req); err != nil || req.TicketID == "" {
		return c.JSON(http.StatusBadRequest, ReleaseResponse{Message: "invalid request body"})
	}

	res, err := h.ledger.Release(c.Request().Context(), req.TicketID, req.Quantity)
	if err != nil {
		status, msg := h.statusOf(c, err)
		return c.JSON(status, ReleaseResponse{Message: msg})
	}
	return c.JSON(http.StatusOK, ReleaseResponse{
		Success:          res.OK(),
		ReleasedQuantity: res.Quantity,
		RemainingStock:   res.Remaining,
	})
}

// UpdateLine is the storefront's updateCartItem call, scoped to the caller's
// session cart.
func (h *HTTPHandler) UpdateLine(c echo.Context) error {
	var req UpdateRequest
	if err := c.Bind(&req); err != nil || req.CartID == "" {
		return c.JSON(http.StatusBadRequest, UpdateResponse{Message: "invalid request body"})
	}

	store := h.registry.GetOrCreate(sessionID(c))
	item, err := store.UpdateItemQuantity(c.Request().Context(), req.CartID, req.Quantity)
	if err != nil {
		status, msg := h.statusOf(c, err)
		return c.JSON(status, UpdateResponse{UpdatedQuantity: item.Quantity, Message: msg})
	}
	if item.CartID == "" {
		return c.JSON(http.StatusNotFound, UpdateResponse{Message: "cart item not found"})
	}
	return c.JSON(http.StatusOK, UpdateResponse{
		Success:         true,
		UpdatedQuantity: item.Quantity,
		RemainingStock:  h.remainingOr(c, item.ID, item.RemainingSnapshot),
	})
}

func (h *HTTPHandler) Seed(c echo.Context) error {
	var req []SeedEntry
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	entries := make([]domain.StockEntry, 0, len(req))
	for _, e := range req {
		if e.TicketID == "" || e.InitialRemaining < 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid seed entry"})
		}
		entries = append(entries, domain.StockEntry{TicketID: e.TicketID, Remaining: e.InitialRemaining})
	}

	seeded, err := service.SeedEntries(c.Request().Context(), h.ledger, entries)
	if err != nil {
		status, msg := h.statusOf(c, err)
		return c.JSON(status, echo.Map{"error": msg, "seeded": seeded})
	}
	return c.JSON(http.StatusOK, echo.Map{"seeded": seeded})
}

func (h *HTTPHandler) Stock(c echo.Context) error {
	id := c.Param("ticketId")
	n, err := h.ledger.Remaining(c.Request().Context(), id)
	if err != nil {
		status, msg := h.statusOf(c, err)
		return c.JSON(status, echo.Map{"error": msg})
	}
	return c.JSON(http.StatusOK, StockResponse{TicketID: id, RemainingStock: n})
}

func (h *HTTPHandler) CreateSession(c echo.Context) error {
	tok, err := h.sessions.Issue()
	if err != nil {
		h.log.Error("issue session failed", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
	h.registry.GetOrCreate(tok.SessionID)
	return c.JSON(http.StatusCreated, SessionResponse{
		Token:     tok.Token,
		SessionID: tok.SessionID,
		ExpiresAt: tok.ExpiresAt.UnixMilli(),
	})
}

func (h *HTTPHandler) ListTickets(c echo.Context) error {
	ctx := c.Request().Context()
	tickets, err := h.catalog.ListTickets(ctx)
	if err != nil {
		status, msg := h.statusOf(c, err)
		return c.JSON(status, echo.Map{"error": msg})
	}

	out := make([]TicketResponse, 0, len(tickets))
	for _, t := range tickets {
		out = append(out, TicketResponse{Ticket: t, Remaining: h.remainingOr(c, t.ID, t.Remaining)})
	}
	return c.JSON(http.StatusOK, out)
}

func (h *HTTPHandler) GetTicket(c echo.Context) error {
	t, err := h.catalog.GetTicket(c.Request().Context(), c.Param("id"))
	if err != nil {
		status, msg := h.statusOf(c, err)
		return c.JSON(status, echo.Map{"error": msg})
	}
	return c.JSON(http.StatusOK, TicketResponse{Ticket: t, Remaining: h.remainingOr(c, t.ID, t.Remaining)})
}

func (h *HTTPHandler) GetCart(c echo.Context) error {
	store := h.registry.GetOrCreate(sessionID(c))
	return c.JSON(http.StatusOK, cartResponse(store.View()))
}

func (h *HTTPHandler) AddItem(c echo.Context) error {
	var req AddItemRequest
	if err := c.Bind(&req); err != nil || req.TicketID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "ticketId is required"})
	}

	ctx := c.Request().Context()
	ticket, err := h.catalog.GetTicket(ctx, req.TicketID)
	if err != nil {
		status, msg := h.statusOf(c, err)
		return c.JSON(status, echo.Map{"error": msg})
	}

	item, err := h.registry.GetOrCreate(sessionID(c)).AddItem(ctx, ticket)
	if err != nil {
		status, msg := h.statusOf(c, err)
		return c.JSON(status, echo.Map{"error": msg})
	}
	return c.JSON(http.StatusCreated, lineResponse(item))
}

func (h *HTTPHandler) RemoveItem(c echo.Context) error {
	store := h.registry.GetOrCreate(sessionID(c))
	if err := store.RemoveItem(c.Request().Context(), c.Param("cartId")); err != nil {
		status, msg := h.statusOf(c, err)
		return c.JSON(status, echo.Map{"error": msg})
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *HTTPHandler) UpdateItem(c echo.Context) error {
	var req QuantityRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	store := h.registry.GetOrCreate(sessionID(c))
	item, err := store.UpdateItemQuantity(c.Request().Context(), c.Param("cartId"), req.Quantity)
	if err != nil {
		status, msg := h.statusOf(c, err)
		return c.JSON(status, echo.Map{"error": msg})
	}
	if item.CartID == "" {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "cart item not found"})
	}
	return c.JSON(http.StatusOK, lineResponse(item))
}

func (h *HTTPHandler) ClearCart(c echo.Context) error {
	store := h.registry.GetOrCreate(sessionID(c))
	released := store.ClearAll(c.Request().Context())
	return c.JSON(http.StatusOK, echo.Map{"released": released})
}

func (h *HTTPHandler) remainingOr(c echo.Context, ticketID string, fallback int) int {
	n, err := h.ledger.Remaining(c.Request().Context(), ticketID)
	if err != nil {
		h.log.Warn("read remaining stock failed", "ticket_id", ticketID, "err", err)
		return fallback
	}
	return n
}

func (h *HTTPHandler) statusOf(c echo.Context, err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrInsufficientStock):
		return http.StatusConflict, "insufficient stock"
	case errors.Is(err, domain.ErrInvalidQuantity):
		return http.StatusBadRequest, "quantity must be positive"
	case errors.Is(err, domain.ErrTicketNotFound):
		return http.StatusNotFound, "ticket not found"
	default:
		h.log.Warn("ledger unavailable",
			"request_id", c.Response().Header().Get(echo.HeaderXRequestID),
			"path", c.Path(),
			"session_id", sessionID(c),
			"err", err,
		)
		return http.StatusServiceUnavailable, "stock service unavailable, please try again"
	}
}
