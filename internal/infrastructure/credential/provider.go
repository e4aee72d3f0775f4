package credential

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Acquirer issues new tokens
type Acquirer interface {
	Acquire(ctx context.Context) (*Grant, error)
}

// ProviderConfig holds token lifetime settings
type ProviderConfig struct {
	// Token is an explicitly configured token; it always wins over acquisition
	Token string
	// StaticTTL is the validity assigned to an explicit token
	StaticTTL time.Duration
	// DefaultTTL is used when the endpoint reports no expiry
	DefaultTTL time.Duration
}

// Provider hands out bearer tokens, serving the cache while it is valid and
// acquiring a new token otherwise.
type Provider struct {
	acquirer Acquirer
	cache    TokenCache
	cfg      ProviderConfig
	now      func() time.Time
	logger   *zap.Logger
}

// ProviderOption configures a Provider
type ProviderOption func(*Provider)

// WithClock sets the provider clock
func WithClock(now func() time.Time) ProviderOption {
	return func(p *Provider) {
		p.now = now
	}
}

// NewProvider creates a token provider
func NewProvider(acquirer Acquirer, cache TokenCache, cfg ProviderConfig, logger *zap.Logger, opts ...ProviderOption) *Provider {
	if cfg.StaticTTL <= 0 {
		cfg.StaticTTL = time.Hour
	}
	if cfg.DefaultTTL <= 0 {
		cfg.DefaultTTL = 300 * time.Second
	}
	p := &Provider{
		acquirer: acquirer,
		cache:    cache,
		cfg:      cfg,
		now:      time.Now,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Token returns a valid token, acquiring one when the cache has none
func (p *Provider) Token(ctx context.Context) (string, error) {
	if p.cfg.Token != "" {
		p.cache.Set(ctx, p.cfg.Token, p.cfg.StaticTTL, p.now())
		return p.cfg.Token, nil
	}

	if token, ok := p.cache.Get(ctx, p.now()); ok {
		p.logger.Debug("Using cached token")
		return token, nil
	}
	return p.acquire(ctx)
}

// Refresh acquires a new token regardless of the cache.
// An explicit token is returned unchanged.
func (p *Provider) Refresh(ctx context.Context) (string, error) {
	if p.cfg.Token != "" {
		return p.cfg.Token, nil
	}
	return p.acquire(ctx)
}

// HasStaticToken reports whether an explicit token is configured
func (p *Provider) HasStaticToken() bool {
	return p.cfg.Token != ""
}

func (p *Provider) acquire(ctx context.Context) (string, error) {
	grant, err := p.acquirer.Acquire(ctx)
	if err != nil {
		return "", err
	}

	ttl := p.cfg.DefaultTTL
	if grant.TTLKnown {
		ttl = grant.TTL
	}
	p.cache.Set(ctx, grant.Token, ttl, p.now())

	p.logger.Info("Token acquired",
		zap.Duration("ttl", ttl),
		zap.Bool("ttl_reported", grant.TTLKnown),
	)
	return grant.Token, nil
}
