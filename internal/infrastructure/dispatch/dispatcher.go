// Package dispatch sends order batches to a remote sync core with a bearer
// credential, refreshing the credential and retrying once when the remote
// rejects it.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/erp/syncbridge/internal/domain/integration"
	"github.com/erp/syncbridge/internal/infrastructure/rpc"
	"github.com/erp/syncbridge/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
)

// authorizationKey is the outgoing metadata key of the bearer token
const authorizationKey = "authorization"

// TokenSource hands out bearer tokens
type TokenSource interface {
	Token(ctx context.Context) (string, error)
	Refresh(ctx context.Context) (string, error)
}

// Config holds outbound call settings
type Config struct {
	Timeout           time.Duration // per attempt, 0 means no deadline beyond ctx
	RequireCredential bool          // fail instead of calling without a token
}

// Dispatcher issues SynchroSaleOrderList calls to remote targets
type Dispatcher struct {
	tokens   TokenSource
	cfg      Config
	dialOpts []grpc.DialOption
	metrics  *telemetry.SyncMetrics
	logger   *zap.Logger
}

// Option configures a Dispatcher
type Option func(*Dispatcher)

// WithDialOptions replaces the default dial options (plaintext transport)
func WithDialOptions(opts ...grpc.DialOption) Option {
	return func(d *Dispatcher) {
		d.dialOpts = opts
	}
}

// WithMetrics records call attempts on m
func WithMetrics(m *telemetry.SyncMetrics) Option {
	return func(d *Dispatcher) {
		d.metrics = m
	}
}

// New creates a Dispatcher. tokens may be nil, in which case calls carry no credential.
func New(tokens TokenSource, cfg Config, logger *zap.Logger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		tokens: tokens,
		cfg:    cfg,
		dialOpts: []grpc.DialOption{
			grpc.WithTransportCredentials(insecure.NewCredentials()),
		},
		logger: logger,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch sends req to target. An Unauthenticated or PermissionDenied reply
// forces one credential refresh and one retry; a second failure is returned
// as a *DispatchError. Other failures are returned as a *CallError.
func (d *Dispatcher) Dispatch(ctx context.Context, target string, req *rpc.SyncBillListRequest) (*rpc.SyncBillListInfoResponse, error) {
	ctx, span := telemetry.StartClientSpan(ctx, "dispatch.synchro_sale_order_list",
		attribute.String("rpc.target", target),
		attribute.Int("bills", len(req.Data)),
	)
	defer span.End()

	token, err := d.initialToken(ctx)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	conn, err := grpc.NewClient(target, d.dialOpts...)
	if err != nil {
		err = fmt.Errorf("dispatch: invalid target %q: %w", target, err)
		telemetry.RecordError(span, err)
		return nil, err
	}
	defer conn.Close()
	client := rpc.NewOrderClient(conn)

	resp, err := d.call(ctx, client, req, token, 1)
	if err == nil {
		telemetry.SetOK(span)
		return resp, nil
	}

	var first *CallError
	if !errors.As(err, &first) || !first.IsAuthFailure() || d.tokens == nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	d.logger.Warn("Remote rejected credential, refreshing",
		zap.String("target", target),
		zap.String("code", first.Code.String()),
	)
	token, refreshErr := d.tokens.Refresh(ctx)
	if refreshErr != nil {
		err = &DispatchError{Attempts: []*CallError{first}, RefreshErr: refreshErr}
		telemetry.RecordError(span, err)
		return nil, err
	}

	resp, err = d.call(ctx, client, req, token, 2)
	if err != nil {
		var second *CallError
		errors.As(err, &second)
		err = &DispatchError{Attempts: []*CallError{first, second}}
		telemetry.RecordError(span, err)
		return nil, err
	}

	telemetry.SetOK(span)
	return resp, nil
}

// DispatchBills converts bills to the wire form, dispatches them and converts the outcomes back
func (d *Dispatcher) DispatchBills(ctx context.Context, target string, bills []integration.Bill) ([]integration.SyncOutcome, error) {
	resp, err := d.Dispatch(ctx, target, rpc.BillsToWire(bills))
	if err != nil {
		return nil, err
	}
	return rpc.OutcomesFromWire(resp), nil
}

// initialToken returns the token for the first attempt. Without a token
// source, or when acquisition fails and no credential is required, the call
// proceeds unauthenticated.
func (d *Dispatcher) initialToken(ctx context.Context) (string, error) {
	if d.tokens == nil {
		if d.cfg.RequireCredential {
			return "", ErrCredentialRequired
		}
		return "", nil
	}

	token, err := d.tokens.Token(ctx)
	if err == nil {
		d.metrics.RecordTokenAcquisition(ctx, "ok")
		return token, nil
	}
	d.metrics.RecordTokenAcquisition(ctx, "error")

	if d.cfg.RequireCredential {
		return "", fmt.Errorf("%w: %w", ErrCredentialRequired, err)
	}
	d.logger.Warn("Credential unavailable, calling without token", zap.Error(err))
	return "", nil
}

func (d *Dispatcher) call(ctx context.Context, client rpc.OrderClient, req *rpc.SyncBillListRequest, token string, attempt int) (*rpc.SyncBillListInfoResponse, error) {
	if d.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.cfg.Timeout)
		defer cancel()
	}
	if token != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, authorizationKey, "Bearer "+token)
	}

	start := time.Now()
	resp, err := client.SynchroSaleOrderList(ctx, req)
	elapsed := time.Since(start)
	if err != nil {
		callErr := newCallError(attempt, err)
		d.metrics.RecordDispatchAttempt(ctx, attempt, callErr.Code.String(), elapsed)
		d.logger.Debug("Dispatch attempt failed",
			zap.Int("attempt", attempt),
			zap.String("code", callErr.Code.String()),
			zap.Duration("latency", elapsed),
		)
		return nil, callErr
	}

	d.metrics.RecordDispatchAttempt(ctx, attempt, "OK", elapsed)
	return resp, nil
}
