package rpc

import (
	"context"

	"google.golang.org/grpc"
)

// Full method names of the sync contract
const (
	OrderServiceName          = "Order"
	InitializationServiceName = "Initialization"

	SynchroSaleOrderListMethod = "/Order/SynchroSaleOrderList"
	CheckErpConnectionMethod   = "/Initialization/CheckErpConnection"
)

// OrderServer is the server API of the Order service
type OrderServer interface {
	SynchroSaleOrderList(ctx context.Context, req *SyncBillListRequest) (*SyncBillListInfoResponse, error)
}

// InitializationServer is the server API of the Initialization service
type InitializationServer interface {
	CheckErpConnection(ctx context.Context, req *Empty) (*CheckErpConnectionResponse, error)
}

// OrderServiceDesc describes the Order service for grpc.ServiceRegistrar
var OrderServiceDesc = grpc.ServiceDesc{
	ServiceName: OrderServiceName,
	HandlerType: (*OrderServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "SynchroSaleOrderList",
			Handler:    synchroSaleOrderListHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "order.proto",
}

// InitializationServiceDesc describes the Initialization service for grpc.ServiceRegistrar
var InitializationServiceDesc = grpc.ServiceDesc{
	ServiceName: InitializationServiceName,
	HandlerType: (*InitializationServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "CheckErpConnection",
			Handler:    checkErpConnectionHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "initialization.proto",
}

// RegisterOrderServer registers an Order implementation
func RegisterOrderServer(s grpc.ServiceRegistrar, srv OrderServer) {
	s.RegisterService(&OrderServiceDesc, srv)
}

// RegisterInitializationServer registers an Initialization implementation
func RegisterInitializationServer(s grpc.ServiceRegistrar, srv InitializationServer) {
	s.RegisterService(&InitializationServiceDesc, srv)
}

func synchroSaleOrderListHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(SyncBillListRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(OrderServer).SynchroSaleOrderList(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: SynchroSaleOrderListMethod,
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(OrderServer).SynchroSaleOrderList(ctx, req.(*SyncBillListRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func checkErpConnectionHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(InitializationServer).CheckErpConnection(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: CheckErpConnectionMethod,
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(InitializationServer).CheckErpConnection(ctx, req.(*Empty))
	}
	return interceptor(ctx, in, info, handler)
}
