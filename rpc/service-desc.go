package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const ServiceName = "liquiditybridge.v1.MarketMonitor"

// MarketMonitorServer is built from well-known protobuf types only, so the
// service needs no generated code.
type MarketMonitorServer interface {
	GetStatus(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	GetBooks(context.Context, *wrapperspb.UInt32Value) (*structpb.Struct, error)
	GetSpreadHistory(context.Context, *wrapperspb.UInt32Value) (*structpb.Struct, error)
	GetSlippageHistory(context.Context, *wrapperspb.UInt32Value) (*structpb.Struct, error)
	Quote(context.Context, *wrapperspb.DoubleValue) (*structpb.Struct, error)
	SelectMarket(context.Context, *wrapperspb.StringValue) (*emptypb.Empty, error)
	SetTrackedAmount(context.Context, *wrapperspb.DoubleValue) (*emptypb.Empty, error)
}

func RegisterMarketMonitorServer(s grpc.ServiceRegistrar, srv MarketMonitorServer) {
	s.RegisterService(&marketMonitorServiceDesc, srv)
}

var marketMonitorServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*MarketMonitorServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod("GetStatus", newEmpty, MarketMonitorServer.GetStatus),
		unaryMethod("GetBooks", newUInt32, MarketMonitorServer.GetBooks),
		unaryMethod("GetSpreadHistory", newUInt32, MarketMonitorServer.GetSpreadHistory),
		unaryMethod("GetSlippageHistory", newUInt32, MarketMonitorServer.GetSlippageHistory),
		unaryMethod("Quote", newDouble, MarketMonitorServer.Quote),
		unaryMethod("SelectMarket", newString, MarketMonitorServer.SelectMarket),
		unaryMethod("SetTrackedAmount", newDouble, MarketMonitorServer.SetTrackedAmount),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "liquiditybridge/v1/market_monitor.proto",
}

func newEmpty() *emptypb.Empty { return &emptypb.Empty{} }
func newUInt32() *wrapperspb.UInt32Value { return &wrapperspb.UInt32Value{} }
func newDouble() *wrapperspb.DoubleValue { return &wrapperspb.DoubleValue{} }
func newString() *wrapperspb.StringValue { return &wrapperspb.StringValue{} }

func unaryMethod[Req, Resp proto.Message](
	name string,
	newReq func() Req,
	call func(MarketMonitorServer, context.Context, Req) (Resp, error),
) grpc.MethodDesc {
	fullMethod := "/" + ServiceName + "/" + name

	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := newReq()
			if err := dec(in); err != nil {
				return nil, err
			}

			impl := srv.(MarketMonitorServer)
			if interceptor == nil {
				return call(impl, ctx, in)
			}

			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(impl, ctx, req.(Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

const maxResponseSize = 64 << 20

// MarketMonitorClient mirrors MarketMonitorServer over a client connection.
type MarketMonitorClient struct {
	cc grpc.ClientConnInterface
}

func NewMarketMonitorClient(cc grpc.ClientConnInterface) *MarketMonitorClient {
	return &MarketMonitorClient{cc: cc}
}

func (c *MarketMonitorClient) GetStatus(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return invoke[*structpb.Struct](ctx, c.cc, "GetStatus", &emptypb.Empty{}, &structpb.Struct{}, opts)
}

func (c *MarketMonitorClient) GetBooks(ctx context.Context, depth uint32, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return invoke[*structpb.Struct](ctx, c.cc, "GetBooks", wrapperspb.UInt32(depth), &structpb.Struct{}, opts)
}

func (c *MarketMonitorClient) GetSpreadHistory(ctx context.Context, limit uint32, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return invoke[*structpb.Struct](ctx, c.cc, "GetSpreadHistory", wrapperspb.UInt32(limit), &structpb.Struct{}, opts)
}

func (c *MarketMonitorClient) GetSlippageHistory(ctx context.Context, limit uint32, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return invoke[*structpb.Struct](ctx, c.cc, "GetSlippageHistory", wrapperspb.UInt32(limit), &structpb.Struct{}, opts)
}

func (c *MarketMonitorClient) Quote(ctx context.Context, amount float64, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return invoke[*structpb.Struct](ctx, c.cc, "Quote", wrapperspb.Double(amount), &structpb.Struct{}, opts)
}

func (c *MarketMonitorClient) SelectMarket(ctx context.Context, market string, opts ...grpc.CallOption) error {
	_, err := invoke[*emptypb.Empty](ctx, c.cc, "SelectMarket", wrapperspb.String(market), &emptypb.Empty{}, opts)
	return err
}

func (c *MarketMonitorClient) SetTrackedAmount(ctx context.Context, amount float64, opts ...grpc.CallOption) error {
	_, err := invoke[*emptypb.Empty](ctx, c.cc, "SetTrackedAmount", wrapperspb.Double(amount), &emptypb.Empty{}, opts)
	return err
}

func invoke[Resp proto.Message](ctx context.Context, cc grpc.ClientConnInterface, method string, in proto.Message, out Resp, opts []grpc.CallOption) (Resp, error) {
	// a full slippage buffer is larger than grpc's 4MB receive default
	opts = append([]grpc.CallOption{grpc.MaxCallRecvMsgSize(maxResponseSize)}, opts...)
	if err := cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...); err != nil {
		var zero Resp
		return zero, err
	}
	return out, nil
}
