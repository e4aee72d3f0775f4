// Package syncrpc serves the inbound Order and Initialization gRPC services
// on top of the order sync application service.
package syncrpc

import (
	"context"

	"go.uber.org/zap"
	"google.golang.org/grpc"

	integrationapp "github.com/erp/syncbridge/internal/application/integration"
	"github.com/erp/syncbridge/internal/domain/integration"
	"github.com/erp/syncbridge/internal/infrastructure/logger"
	"github.com/erp/syncbridge/internal/infrastructure/rpc"
)

// BillSyncer validates a batch of bills and records their outcomes
type BillSyncer interface {
	SyncBills(ctx context.Context, bills []integration.Bill) *integrationapp.SyncBatchResult
}

// OrderHandler implements rpc.OrderServer
type OrderHandler struct {
	syncer BillSyncer
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(syncer BillSyncer) *OrderHandler {
	return &OrderHandler{syncer: syncer}
}

// SynchroSaleOrderList classifies every bill of the batch and answers with one
// outcome per bill, in request order. Persistence failures never fail the call.
func (h *OrderHandler) SynchroSaleOrderList(ctx context.Context, req *rpc.SyncBillListRequest) (*rpc.SyncBillListInfoResponse, error) {
	bills := rpc.BillsFromWire(req)
	result := h.syncer.SyncBills(ctx, bills)

	if result.StorageFailures+result.UnexpectedFailures > 0 {
		logger.L(ctx).Warn("Batch answered with unrecorded outcomes",
			zap.Int("bills", len(bills)),
			zap.Int("storage_failures", result.StorageFailures),
			zap.Int("unexpected_failures", result.UnexpectedFailures),
		)
	}
	return rpc.OutcomesToWire(result.Outcomes), nil
}

// InitializationHandler implements rpc.InitializationServer
type InitializationHandler struct{}

// NewInitializationHandler creates a new InitializationHandler
func NewInitializationHandler() *InitializationHandler {
	return &InitializationHandler{}
}

// CheckErpConnection reports that the bridge is reachable
func (h *InitializationHandler) CheckErpConnection(context.Context, *rpc.Empty) (*rpc.CheckErpConnectionResponse, error) {
	return &rpc.CheckErpConnectionResponse{Success: true, Msg: "OK"}, nil
}

// Register installs both services on s
func Register(s grpc.ServiceRegistrar, syncer BillSyncer) {
	rpc.RegisterOrderServer(s, NewOrderHandler(syncer))
	rpc.RegisterInitializationServer(s, NewInitializationHandler())
}
