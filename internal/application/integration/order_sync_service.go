package integration

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/erp/syncbridge/internal/domain/integration"
	"github.com/erp/syncbridge/internal/infrastructure/logger"
	"github.com/erp/syncbridge/internal/infrastructure/telemetry"
)

// Persistence failure kinds, used in logs and metrics
const (
	FailureKindStorage    = "storage"
	FailureKindUnexpected = "unexpected"
)

// OrderSyncService handles inbound bill batches
type OrderSyncService struct {
	repo    integration.SyncOutcomeRepository
	metrics *telemetry.SyncMetrics
	logger  *zap.Logger
}

// OrderSyncServiceOption configures an OrderSyncService
type OrderSyncServiceOption func(*OrderSyncService)

// WithSyncMetrics records batch counters on m
func WithSyncMetrics(m *telemetry.SyncMetrics) OrderSyncServiceOption {
	return func(s *OrderSyncService) {
		s.metrics = m
	}
}

// NewOrderSyncService creates a new OrderSyncService
func NewOrderSyncService(repo integration.SyncOutcomeRepository, logger *zap.Logger, opts ...OrderSyncServiceOption) *OrderSyncService {
	s := &OrderSyncService{
		repo:   repo,
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SyncBills classifies every bill and appends each outcome to the result
// store. Persistence failures are logged and counted but never change the
// returned outcomes, which are always one per bill in input order.
func (s *OrderSyncService) SyncBills(ctx context.Context, bills []integration.Bill) *SyncBatchResult {
	ctx, span := telemetry.StartSpan(ctx, "integration.sync_bills",
		attribute.Int("bills", len(bills)),
	)
	defer span.End()
	log := logger.WithLogger(ctx, s.logger)

	outcomes := integration.ClassifyBills(bills)
	result := &SyncBatchResult{Outcomes: outcomes}

	for i := range outcomes {
		// the store assigns ID and CreatedAt on a copy; the response stays as classified
		record := outcomes[i]
		err := s.repo.Append(ctx, &record)
		switch {
		case err == nil:
			result.Persisted++
		case integration.IsStorageError(err):
			result.StorageFailures++
			s.metrics.RecordPersistenceFailure(ctx, FailureKindStorage)
			log.Warn("Failed to persist sync outcome",
				zap.String("bill_key", record.BillKey),
				zap.String("failure_kind", FailureKindStorage),
				zap.Error(err),
			)
		default:
			result.UnexpectedFailures++
			s.metrics.RecordPersistenceFailure(ctx, FailureKindUnexpected)
			log.Error("Unexpected failure persisting sync outcome",
				zap.String("bill_key", record.BillKey),
				zap.String("failure_kind", FailureKindUnexpected),
				zap.Error(err),
			)
		}
	}

	succeeded := result.Succeeded()
	failed := len(outcomes) - succeeded
	s.metrics.RecordBatch(ctx, len(bills), succeeded, failed)
	span.SetAttributes(
		attribute.Int("succeeded", succeeded),
		attribute.Int("persisted", result.Persisted),
	)

	log.Info("Processed bill batch",
		zap.Int("bills", len(bills)),
		zap.Int("succeeded", succeeded),
		zap.Int("failed", failed),
		zap.Int("persisted", result.Persisted),
		zap.Int("storage_failures", result.StorageFailures),
		zap.Int("unexpected_failures", result.UnexpectedFailures),
	)
	return result
}
