package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func fieldMap(entry observer.LoggedEntry) map[string]any {
	return entry.ContextMap()
}

func TestFromContext(t *testing.T) {
	assert.NotNil(t, FromContext(context.Background()))

	l := zap.NewExample()
	assert.Same(t, l, FromContext(WithContext(context.Background(), l)))
}

func TestWithRequestIDAndTaskID(t *testing.T) {
	core, recorded := observer.New(zapcore.InfoLevel)
	base := zap.New(core)

	ctx, reqLogger := WithRequestID(context.Background(), base, "req-1")
	ctx, _ = WithTaskID(ctx, FromContext(ctx), "task-9")

	assert.Equal(t, "req-1", GetRequestID(ctx))
	assert.Equal(t, "task-9", GetTaskID(ctx))

	reqLogger.Info("direct")
	L(ctx).Info("via context")

	logs := recorded.All()
	require.Len(t, logs, 2)
	assert.Equal(t, "req-1", fieldMap(logs[0])["request_id"])

	fields := fieldMap(logs[1])
	assert.Equal(t, "req-1", fields["request_id"])
	assert.Equal(t, "task-9", fields["task_id"])
}

func TestWithRPCMethod(t *testing.T) {
	core, recorded := observer.New(zapcore.InfoLevel)
	ctx, _ := WithRPCMethod(context.Background(), zap.New(core), "/Order/SynchroSaleOrderList")

	assert.Equal(t, "/Order/SynchroSaleOrderList", GetRPCMethod(ctx))
	L(ctx).Info("handled")

	require.Len(t, recorded.All(), 1)
	assert.Equal(t, "/Order/SynchroSaleOrderList", fieldMap(recorded.All()[0])["rpc_method"])
}

func TestL_TraceCorrelation(t *testing.T) {
	core, recorded := observer.New(zapcore.InfoLevel)

	traceID, err := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	require.NoError(t, err)
	spanID, err := trace.SpanIDFromHex("00f067aa0ba902b7")
	require.NoError(t, err)
	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	WithLogger(ctx, zap.New(core)).Info("traced")

	fields := fieldMap(recorded.All()[0])
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", fields["trace_id"])
	assert.Equal(t, "00f067aa0ba902b7", fields["span_id"])
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", GetTraceID(ctx))
}

func TestL_NoSpanNoLogger(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, GetTraceID(ctx))
	assert.NotPanics(t, func() {
		L(ctx).With(zap.String("k", "v")).Warn("nothing attached")
	})
}
