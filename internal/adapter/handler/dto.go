package handler

import (
	"github.com/rl1809/lottery-cart/internal/core/clock"
	"github.com/rl1809/lottery-cart/internal/core/domain"
	"github.com/rl1809/lottery-cart/internal/core/service"
)

// Ledger API, shaped like the storefront's stock endpoints.

type StockRequest struct {
	TicketID string `json:"ticketId"`
	Quantity int    `json:"quantity"`
}

type ReserveResponse struct {
	Success          bool   `json:"success"`
	ReservedQuantity int    `json:"reservedQuantity"`
	RemainingStock   int    `json:"remainingStock"`
	Message          string `json:"message,omitempty"`
}

type ReleaseResponse struct {
	Success          bool   `json:"success"`
	ReleasedQuantity int    `json:"releasedQuantity"`
	RemainingStock   int    `json:"remainingStock"`
	Message          string `json:"message,omitempty"`
}

type UpdateRequest struct {
	CartID   string `json:"cartId"`
	Quantity int    `json:"quantity"`
}

type UpdateResponse struct {
	Success         bool   `json:"success"`
	UpdatedQuantity int    `json:"updatedQuantity"`
	RemainingStock  int    `json:"remainingStock"`
	Message         string `json:"message,omitempty"`
}

type SeedEntry struct {
	TicketID         string `json:"ticketId"`
	InitialRemaining int    `json:"initialRemaining"`
}

type StockResponse struct {
	TicketID       string `json:"ticketId"`
	RemainingStock int    `json:"remainingStock"`
}

// Session and cart API.

type SessionResponse struct {
	Token     string `json:"token"`
	SessionID string `json:"sessionId"`
	ExpiresAt int64  `json:"expiresAt"`
}

type AddItemRequest struct {
	TicketID string `json:"ticketId"`
}

type QuantityRequest struct {
	Quantity int `json:"quantity"`
}

type LineResponse struct {
	CartID            string            `json:"cartId"`
	TicketID          string            `json:"ticketId"`
	Number            string            `json:"number"`
	DrawDate          string            `json:"drawDate"`
	Price             int64             `json:"price"`
	Kind              domain.TicketKind `json:"type"`
	Image             string            `json:"image,omitempty"`
	Quantity          int               `json:"quantity"`
	ReservedAt        int64             `json:"reservedAt"`
	RemainingSnapshot int               `json:"remainingStock"`
	State             domain.LineState  `json:"state,omitempty"`
	RemainingMs       int64             `json:"remainingMs"`
	Countdown         string            `json:"countdown,omitempty"`
	Subtotal          int64             `json:"subtotal"`
}

type CartResponse struct {
	SessionID       string         `json:"sessionId"`
	Items           []LineResponse `json:"items"`
	TotalQuantity   int            `json:"totalQuantity"`
	TotalPrice      int64          `json:"totalPrice"`
	SoonestExpiryMs int64          `json:"soonestExpiryMs"`
	Countdown       string         `json:"countdown"`
	GeneratedAt     int64          `json:"generatedAt"`
}

type TicketResponse struct {
	domain.Ticket
	// Remaining is the live ledger count, not the seed value
	Remaining int `json:"remaining"`
}

func lineResponse(item domain.CartItem) LineResponse {
	return LineResponse{
		CartID:            item.CartID,
		TicketID:          item.ID,
		Number:            item.Number,
		DrawDate:          item.DrawDate,
		Price:             item.Price,
		Kind:              item.Kind,
		Image:             item.Image,
		Quantity:          item.Quantity,
		ReservedAt:        item.ReservedAt.UnixMilli(),
		RemainingSnapshot: item.RemainingSnapshot,
		Subtotal:          item.Subtotal(),
	}
}

func cartResponse(v service.CartView) CartResponse {
	resp := CartResponse{
		SessionID:       v.SessionID,
		Items:           make([]LineResponse, 0, len(v.Items)),
		TotalQuantity:   v.TotalQuantity,
		TotalPrice:      v.TotalPrice,
		SoonestExpiryMs: v.SoonestExpiry.Milliseconds(),
		Countdown:       clock.FormatCountdown(v.SoonestExpiry),
		GeneratedAt:     v.GeneratedAt.UnixMilli(),
	}
	for _, line := range v.Items {
		l := lineResponse(line.CartItem)
		l.State = line.State
		l.RemainingMs = line.RemainingHold.Milliseconds()
		l.Countdown = clock.FormatCountdown(line.RemainingHold)
		resp.Items = append(resp.Items, l)
	}
	return resp
}
