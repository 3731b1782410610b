package storage

import (
	"context"
	"fmt"
	"math"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"github.com/rl1809/lottery-cart/internal/adapter/handler/ledgerpb"
	"github.com/rl1809/lottery-cart/internal/core/domain"
)

// RemoteLedger talks to the StockLedger gRPC service of another instance.
// Quantities travel as int32; larger values are rejected before the call.
type RemoteLedger struct {
	client ledgerpb.StockLedgerClient
}

func NewRemoteLedger(cc grpc.ClientConnInterface) *RemoteLedger {
	return &RemoteLedger{client: ledgerpb.NewStockLedgerClient(cc)}
}

// DialRemoteLedger opens a plaintext connection to addr. The connection is
// established lazily on the first call.
func DialRemoteLedger(addr string) (*RemoteLedger, *grpc.ClientConn, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, nil, fmt.Errorf("dial ledger %s: %w", addr, err)
	}
	return NewRemoteLedger(conn), conn, nil
}

func (r *RemoteLedger) Reserve(ctx context.Context, ticketID string, quantity int) (domain.StockResult, error) {
	if quantity <= 0 || quantity > math.MaxInt32 {
		return domain.StockResult{}, domain.ErrInvalidQuantity
	}
	reply, err := r.client.Reserve(ctx, &ledgerpb.StockRequest{TicketId: ticketID, Quantity: int32(quantity)})
	if err != nil {
		return domain.StockResult{}, fromStatus("reserve", err)
	}
	return fromReply(reply), nil
}

func (r *RemoteLedger) Release(ctx context.Context, ticketID string, quantity int) (domain.StockResult, error) {
	if quantity <= 0 || quantity > math.MaxInt32 {
		return domain.StockResult{}, domain.ErrInvalidQuantity
	}
	reply, err := r.client.Release(ctx, &ledgerpb.StockRequest{TicketId: ticketID, Quantity: int32(quantity)})
	if err != nil {
		return domain.StockResult{}, fromStatus("release", err)
	}
	return fromReply(reply), nil
}

func (r *RemoteLedger) Seed(ctx context.Context, ticketID string, initial int) (bool, error) {
	if initial > math.MaxInt32 {
		return false, domain.ErrInvalidQuantity
	}
	reply, err := r.client.Seed(ctx, &ledgerpb.SeedRequest{TicketId: ticketID, Initial: int32(initial)})
	if err != nil {
		return false, fromStatus("seed", err)
	}
	return reply.Seeded, nil
}

func (r *RemoteLedger) Remaining(ctx context.Context, ticketID string) (int, error) {
	reply, err := r.client.Remaining(ctx, &ledgerpb.RemainingRequest{TicketId: ticketID})
	if err != nil {
		return 0, fromStatus("remaining", err)
	}
	return int(reply.RemainingStock), nil
}

func fromReply(reply *ledgerpb.StockReply) domain.StockResult {
	if !reply.Success {
		return domain.Insufficient(int(reply.RemainingStock))
	}
	return domain.StockResult{
		Outcome:   domain.OutcomeOK,
		Quantity:  int(reply.Quantity),
		Remaining: int(reply.RemainingStock),
	}
}

func fromStatus(op string, err error) error {
	if status.Code(err) == codes.InvalidArgument {
		return domain.ErrInvalidQuantity
	}
	return fmt.Errorf("remote %s: %w", op, err)
}
