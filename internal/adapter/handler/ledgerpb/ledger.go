// Package ledgerpb defines the StockLedger gRPC service: its messages, the
// service descriptor, and a client stub.
package ledgerpb

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const ServiceName = "lottery.ledger.v1.StockLedger"

const (
	StockLedger_Reserve_FullMethodName   = "/" + ServiceName + "/Reserve"
	StockLedger_Release_FullMethodName   = "/" + ServiceName + "/Release"
	StockLedger_Seed_FullMethodName      = "/" + ServiceName + "/Seed"
	StockLedger_Remaining_FullMethodName = "/" + ServiceName + "/Remaining"
)

type StockRequest struct {
	TicketId string `json:"ticket_id"`
	Quantity int32  `json:"quantity"`
}

func (r *StockRequest) GetTicketId() string {
	if r == nil {
		return ""
	}
	return r.TicketId
}

func (r *StockRequest) GetQuantity() int32 {
	if r == nil {
		return 0
	}
	return r.Quantity
}

// StockReply answers both Reserve and Release. Outcome is "ok" or
// "insufficient_stock".
type StockReply struct {
	Success        bool   `json:"success"`
	Outcome        string `json:"outcome"`
	Quantity       int32  `json:"quantity"`
	RemainingStock int32  `json:"remaining_stock"`
}

type SeedRequest struct {
	TicketId string `json:"ticket_id"`
	Initial  int32  `json:"initial"`
}

type SeedReply struct {
	Seeded bool `json:"seeded"`
}

type RemainingRequest struct {
	TicketId string `json:"ticket_id"`
}

type RemainingReply struct {
	RemainingStock int32 `json:"remaining_stock"`
}

type StockLedgerServer interface {
	Reserve(context.Context, *StockRequest) (*StockReply, error)
	Release(context.Context, *StockRequest) (*StockReply, error)
	Seed(context.Context, *SeedRequest) (*SeedReply, error)
	Remaining(context.Context, *RemainingRequest) (*RemainingReply, error)
}

// UnimplementedStockLedgerServer can be embedded to keep servers compiling
// when methods are added.
type UnimplementedStockLedgerServer struct{}

func (UnimplementedStockLedgerServer) Reserve(context.Context, *StockRequest) (*StockReply, error) {
	return nil, status.Error(codes.Unimplemented, "method Reserve not implemented")
}

func (UnimplementedStockLedgerServer) Release(context.Context, *StockRequest) (*StockReply, error) {
	return nil, status.Error(codes.Unimplemented, "method Release not implemented")
}

func (UnimplementedStockLedgerServer) Seed(context.Context, *SeedRequest) (*SeedReply, error) {
	return nil, status.Error(codes.Unimplemented, "method Seed not implemented")
}

func (UnimplementedStockLedgerServer) Remaining(context.Context, *RemainingRequest) (*RemainingReply, error) {
	return nil, status.Error(codes.Unimplemented, "method Remaining not implemented")
}

func RegisterStockLedgerServer(s grpc.ServiceRegistrar, srv StockLedgerServer) {
	s.RegisterService(&StockLedger_ServiceDesc, srv)
}

var StockLedger_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*StockLedgerServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Reserve", Handler: _StockLedger_Reserve_Handler},
		{MethodName: "Release", Handler: _StockLedger_Release_Handler},
		{MethodName: "Seed", Handler: _StockLedger_Seed_Handler},
		{MethodName: "Remaining", Handler: _StockLedger_Remaining_Handler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "ledger.json",
}

func _StockLedger_Reserve_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(StockRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(StockLedgerServer).Reserve(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: StockLedger_Reserve_FullMethodName}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(StockLedgerServer).Reserve(ctx, req.(*StockRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _StockLedger_Release_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(StockRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(StockLedgerServer).Release(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: StockLedger_Release_FullMethodName}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(StockLedgerServer).Release(ctx, req.(*StockRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _StockLedger_Seed_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(SeedRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(StockLedgerServer).Seed(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: StockLedger_Seed_FullMethodName}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(StockLedgerServer).Seed(ctx, req.(*SeedRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _StockLedger_Remaining_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(RemainingRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(StockLedgerServer).Remaining(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: StockLedger_Remaining_FullMethodName}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(StockLedgerServer).Remaining(ctx, req.(*RemainingRequest))
	}
	return interceptor(ctx, in, info, handler)
}

type StockLedgerClient interface {
	Reserve(ctx context.Context, in *StockRequest, opts ...grpc.CallOption) (*StockReply, error)
	Release(ctx context.Context, in *StockRequest, opts ...grpc.CallOption) (*StockReply, error)
	Seed(ctx context.Context, in *SeedRequest, opts ...grpc.CallOption) (*SeedReply, error)
	Remaining(ctx context.Context, in *RemainingRequest, opts ...grpc.CallOption) (*RemainingReply, error)
}

type stockLedgerClient struct {
	cc grpc.ClientConnInterface
}

func NewStockLedgerClient(cc grpc.ClientConnInterface) StockLedgerClient {
	return &stockLedgerClient{cc: cc}
}

func (c *stockLedgerClient) invoke(ctx context.Context, method string, in, out any, opts []grpc.CallOption) error {
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	return c.cc.Invoke(ctx, method, in, out, opts...)
}

func (c *stockLedgerClient) Reserve(ctx context.Context, in *StockRequest, opts ...grpc.CallOption) (*StockReply, error) {
	out := new(StockReply)
	if err := c.invoke(ctx, StockLedger_Reserve_FullMethodName, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *stockLedgerClient) Release(ctx context.Context, in *StockRequest, opts ...grpc.CallOption) (*StockReply, error) {
	out := new(StockReply)
	if err := c.invoke(ctx, StockLedger_Release_FullMethodName, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *stockLedgerClient) Seed(ctx context.Context, in *SeedRequest, opts ...grpc.CallOption) (*SeedReply, error) {
	out := new(SeedReply)
	if err := c.invoke(ctx, StockLedger_Seed_FullMethodName, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *stockLedgerClient) Remaining(ctx context.Context, in *RemainingRequest, opts ...grpc.CallOption) (*RemainingReply, error) {
	out := new(RemainingReply)
	if err := c.invoke(ctx, StockLedger_Remaining_FullMethodName, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}
