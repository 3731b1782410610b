package handler

import (
	"context"
	"errors"
	"log/slog"
	"math"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/rl1809/lottery-cart/internal/adapter/handler/ledgerpb"
	"github.com/rl1809/lottery-cart/internal/core/domain"
	"github.com/rl1809/lottery-cart/internal/port"
)

// GRPCHandler exposes a StockLedger to other processes.
type GRPCHandler struct {
	ledgerpb.UnimplementedStockLedgerServer
	ledger port.StockLedger
	log    *slog.Logger
}

func NewGRPCHandler(ledger port.StockLedger, log *slog.Logger) *GRPCHandler {
	if log == nil {
		log = slog.Default()
	}
	return &GRPCHandler{ledger: ledger, log: log}
}

func (h *GRPCHandler) Reserve(ctx context.Context, req *ledgerpb.StockRequest) (*ledgerpb.StockReply, error) {
	res, err := h.ledger.Reserve(ctx, req.GetTicketId(), int(req.GetQuantity()))
	if err != nil {
		return nil, h.toStatus("reserve", req.GetTicketId(), err)
	}
	return stockReply(res), nil
}

func (h *GRPCHandler) Release(ctx context.Context, req *ledgerpb.StockRequest) (*ledgerpb.StockReply, error) {
	res, err := h.ledger.Release(ctx, req.GetTicketId(), int(req.GetQuantity()))
	if err != nil {
		return nil, h.toStatus("release", req.GetTicketId(), err)
	}
	return stockReply(res), nil
}

func (h *GRPCHandler) Seed(ctx context.Context, req *ledgerpb.SeedRequest) (*ledgerpb.SeedReply, error) {
	seeded, err := h.ledger.Seed(ctx, req.TicketId, int(req.Initial))
	if err != nil {
		return nil, h.toStatus("seed", req.TicketId, err)
	}
	return &ledgerpb.SeedReply{Seeded: seeded}, nil
}

func (h *GRPCHandler) Remaining(ctx context.Context, req *ledgerpb.RemainingRequest) (*ledgerpb.RemainingReply, error) {
	n, err := h.ledger.Remaining(ctx, req.TicketId)
	if err != nil {
		return nil, h.toStatus("remaining", req.TicketId, err)
	}
	return &ledgerpb.RemainingReply{RemainingStock: clamp32(n)}, nil
}

func (h *GRPCHandler) toStatus(op, ticketID string, err error) error {
	if errors.Is(err, domain.ErrInvalidQuantity) {
		return status.Error(codes.InvalidArgument, err.Error())
	}
	h.log.Warn("ledger call failed", "op", op, "ticket_id", ticketID, "err", err)
	return status.Error(codes.Unavailable, "ledger unavailable")
}

func stockReply(res domain.StockResult) *ledgerpb.StockReply {
	return &ledgerpb.StockReply{
		Success:        res.OK(),
		Outcome:        string(res.Outcome),
		Quantity:       clamp32(res.Quantity),
		RemainingStock: clamp32(res.Remaining),
	}
}

// clamp32 caps counts from backends that store more than an int32 holds.
func clamp32(n int) int32 {
	switch {
	case n > math.MaxInt32:
		return math.MaxInt32
	case n < math.MinInt32:
		return math.MinInt32
	}
	return int32(n)
}
