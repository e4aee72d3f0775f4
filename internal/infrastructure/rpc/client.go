package rpc

import (
	"context"

	"google.golang.org/grpc"
)

// OrderClient is the client API of the Order service
type OrderClient interface {
	SynchroSaleOrderList(ctx context.Context, in *SyncBillListRequest, opts ...grpc.CallOption) (*SyncBillListInfoResponse, error)
}

// InitializationClient is the client API of the Initialization service
type InitializationClient interface {
	CheckErpConnection(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*CheckErpConnectionResponse, error)
}

type orderClient struct {
	cc grpc.ClientConnInterface
}

// NewOrderClient creates an Order client over an established connection
func NewOrderClient(cc grpc.ClientConnInterface) OrderClient {
	return &orderClient{cc: cc}
}

func (c *orderClient) SynchroSaleOrderList(ctx context.Context, in *SyncBillListRequest, opts ...grpc.CallOption) (*SyncBillListInfoResponse, error) {
	out := new(SyncBillListInfoResponse)
	if err := c.cc.Invoke(ctx, SynchroSaleOrderListMethod, in, out, withCodec(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

type initializationClient struct {
	cc grpc.ClientConnInterface
}

// NewInitializationClient creates an Initialization client over an established connection
func NewInitializationClient(cc grpc.ClientConnInterface) InitializationClient {
	return &initializationClient{cc: cc}
}

func (c *initializationClient) CheckErpConnection(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*CheckErpConnectionResponse, error) {
	out := new(CheckErpConnectionResponse)
	if err := c.cc.Invoke(ctx, CheckErpConnectionMethod, in, out, withCodec(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}
