package integration

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/erp/syncbridge/internal/domain/integration"
	"github.com/erp/syncbridge/internal/infrastructure/credential"
	"github.com/erp/syncbridge/internal/infrastructure/logger"
	"github.com/erp/syncbridge/internal/infrastructure/telemetry"
)

// TokenRequester acquires tokens directly from the token endpoint
type TokenRequester interface {
	Acquire(ctx context.Context) (*credential.Grant, error)
	Preview(mask func(string) string) credential.RequestPreview
}

// BillDispatcher sends bills to a remote sync endpoint
type BillDispatcher interface {
	DispatchBills(ctx context.Context, target string, bills []integration.Bill) ([]integration.SyncOutcome, error)
}

// TriggerConfig holds trigger settings
type TriggerConfig struct {
	// DefaultTarget is used when a call-order request names no target
	DefaultTarget string
	// Mask hides secrets in results; nil leaves them as they are
	Mask func(string) string
}

// TriggerService runs the diagnostic actions behind the admin API, the
// interval trigger and the CLI. Dry runs build the outbound request and
// return it without contacting any remote system.
type TriggerService struct {
	tokens     TokenRequester
	dispatcher BillDispatcher
	cfg        TriggerConfig
	logger     *zap.Logger
}

// NewTriggerService creates a new TriggerService
func NewTriggerService(tokens TokenRequester, dispatcher BillDispatcher, cfg TriggerConfig, logger *zap.Logger) *TriggerService {
	if cfg.Mask == nil {
		cfg.Mask = func(s string) string { return s }
	}
	return &TriggerService{
		tokens:     tokens,
		dispatcher: dispatcher,
		cfg:        cfg,
		logger:     logger,
	}
}

// Execute runs the requested action. Unknown actions fail with ErrUnknownAction.
func (s *TriggerService) Execute(ctx context.Context, req integration.TriggerRequest) (any, error) {
	ctx, span := telemetry.StartSpan(ctx, "integration.trigger",
		telemetry.AttrAction.String(req.Action.String()),
		attribute.Bool("dry_run", req.DryRun),
	)
	defer span.End()

	var (
		result any
		err    error
	)
	switch req.Action {
	case integration.TriggerActionGetToken:
		result, err = s.GetToken(ctx, req.DryRun)
	case integration.TriggerActionCallOrder:
		result, err = s.CallOrder(ctx, req.Target, req.DryRun)
	default:
		err = fmt.Errorf("%w: %q", integration.ErrUnknownAction, req.Action)
	}

	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetOK(span)
	return result, nil
}

// GetToken previews or performs a token request. A live request probes the
// token endpoint directly: it does not use the dispatcher's credential, so an
// explicitly configured token is ignored and the token cache is left untouched.
func (s *TriggerService) GetToken(ctx context.Context, dryRun bool) (*TokenResult, error) {
	if s.tokens == nil {
		return nil, fmt.Errorf("%w: token endpoint not configured", integration.ErrInvalidTriggerRequest)
	}

	preview := s.tokens.Preview(s.cfg.Mask)
	if dryRun {
		return &TokenResult{Mode: ModeDryRun, Request: preview}, nil
	}

	grant, err := s.tokens.Acquire(ctx)
	if err != nil {
		return nil, err
	}

	logger.WithLogger(ctx, s.logger).Info("Token acquired by trigger",
		zap.Bool("ttl_known", grant.TTLKnown),
		zap.Duration("ttl", grant.TTL),
	)
	return &TokenResult{
		Mode:      ModeLive,
		Request:   preview,
		Token:     s.cfg.Mask(grant.Token),
		ExpiresIn: int64(grant.TTL.Seconds()),
		TTLKnown:  grant.TTLKnown,
	}, nil
}

// CallOrder previews or sends the sample bill batch. An empty target falls
// back to the configured default.
func (s *TriggerService) CallOrder(ctx context.Context, target string, dryRun bool) (*CallOrderResult, error) {
	target = s.resolveTarget(target)
	if target == "" {
		return nil, fmt.Errorf("%w: no dispatch target configured", integration.ErrInvalidTriggerRequest)
	}

	bills := SampleBills()
	result := &CallOrderResult{
		Mode:    ModeDryRun,
		Target:  target,
		Request: toBillPreviews(bills),
	}
	if dryRun {
		return result, nil
	}

	outcomes, err := s.dispatch(ctx, target, bills)
	if err != nil {
		return nil, err
	}
	result.Mode = ModeLive
	result.Response = toOutcomePreviews(outcomes)
	return result, nil
}

// Report sends the report sample to the default target and returns the
// remote response or the error. It never returns a Go error.
func (s *TriggerService) Report(ctx context.Context) *ReportResult {
	target := s.cfg.DefaultTarget
	result := &ReportResult{Target: target}
	if target == "" {
		result.Error = fmt.Sprintf("%v: no dispatch target configured", integration.ErrInvalidTriggerRequest)
		return result
	}

	outcomes, err := s.dispatch(ctx, target, ReportBills())
	if err != nil {
		result.Error = err.Error()
		return result
	}
	result.OK = true
	result.Response = toOutcomePreviews(outcomes)
	return result
}

func (s *TriggerService) dispatch(ctx context.Context, target string, bills []integration.Bill) ([]integration.SyncOutcome, error) {
	if s.dispatcher == nil {
		return nil, fmt.Errorf("%w: dispatcher not configured", integration.ErrInvalidTriggerRequest)
	}
	return s.dispatcher.DispatchBills(ctx, target, bills)
}

func (s *TriggerService) resolveTarget(target string) string {
	if t := strings.TrimSpace(target); t != "" {
		return t
	}
	return s.cfg.DefaultTarget
}
