package telemetry

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// ErrMeterNil is returned when metrics are created without a meter
var ErrMeterNil = errors.New("telemetry: meter cannot be nil")

// SyncMetrics records order-sync activity. A nil *SyncMetrics is valid and records nothing.
type SyncMetrics struct {
	billsReceived       *Counter
	outcomes            *Counter
	persistenceFailures *Counter
	dispatchAttempts    *Counter
	dispatchDuration    *Histogram
	tokenAcquisitions   *Counter
	tasks               *Counter
}

// NewSyncMetrics creates the sync instruments on meter.
func NewSyncMetrics(meter metric.Meter, logger *zap.Logger) (*SyncMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	m := &SyncMetrics{}
	var err error

	if m.billsReceived, err = NewCounter(meter, "sync_bills_received_total",
		"Total number of bills received in sync batches", "{bill}"); err != nil {
		return nil, err
	}
	if m.outcomes, err = NewCounter(meter, "sync_outcomes_total",
		"Total number of sync outcomes by state", "{outcome}"); err != nil {
		return nil, err
	}
	if m.persistenceFailures, err = NewCounter(meter, "sync_persistence_failures_total",
		"Total number of outcomes that could not be recorded", "{outcome}"); err != nil {
		return nil, err
	}
	if m.dispatchAttempts, err = NewCounter(meter, "dispatch_attempts_total",
		"Total number of outbound sync call attempts by status code", "{call}"); err != nil {
		return nil, err
	}
	if m.dispatchDuration, err = NewHistogram(meter, HistogramOpts{
		Name:        "dispatch_duration_seconds",
		Description: "Duration of outbound sync calls",
		Unit:        "s",
		Boundaries:  RPCDurationBuckets,
	}); err != nil {
		return nil, err
	}
	if m.tokenAcquisitions, err = NewCounter(meter, "credential_acquisitions_total",
		"Total number of token acquisitions by result", "{request}"); err != nil {
		return nil, err
	}
	if m.tasks, err = NewCounter(meter, "trigger_tasks_total",
		"Total number of finished trigger tasks by action and status", "{task}"); err != nil {
		return nil, err
	}

	logger.Info("Sync metrics initialized")
	return m, nil
}

// RecordBatch records a received batch and its outcome states
func (m *SyncMetrics) RecordBatch(ctx context.Context, bills, succeeded, failed int) {
	if m == nil {
		return
	}
	m.billsReceived.Add(ctx, int64(bills))
	if succeeded > 0 {
		m.outcomes.Add(ctx, int64(succeeded), AttrSyncState.String("SUCCESS"))
	}
	if failed > 0 {
		m.outcomes.Add(ctx, int64(failed), AttrSyncState.String("FAIL"))
	}
}

// RecordPersistenceFailure records an outcome that was not stored; kind is "storage" or "unexpected"
func (m *SyncMetrics) RecordPersistenceFailure(ctx context.Context, kind string) {
	if m == nil {
		return
	}
	m.persistenceFailures.Inc(ctx, AttrFailureKind.String(kind))
}

// RecordDispatchAttempt records one outbound call attempt
func (m *SyncMetrics) RecordDispatchAttempt(ctx context.Context, attempt int, code string, d time.Duration) {
	if m == nil {
		return
	}
	m.dispatchAttempts.Inc(ctx, AttrRPCCode.String(code), AttrAttempt.Int(attempt))
	m.dispatchDuration.RecordDuration(ctx, d, AttrRPCCode.String(code))
}

// RecordTokenAcquisition records a token acquisition; result is "ok" or "error"
func (m *SyncMetrics) RecordTokenAcquisition(ctx context.Context, result string) {
	if m == nil {
		return
	}
	m.tokenAcquisitions.Inc(ctx, AttrResult.String(result))
}

// RecordTask records a finished trigger task
func (m *SyncMetrics) RecordTask(ctx context.Context, action, status string) {
	if m == nil {
		return
	}
	m.tasks.Inc(ctx, AttrAction.String(action), AttrResult.String(status))
}
