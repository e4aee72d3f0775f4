package credential

import (
	"context"
	"sync"
	"time"
)

// TokenCache holds the current bearer token. A cached token stops being
// served SafetyMargin before its expiry.
type TokenCache interface {
	Get(ctx context.Context, now time.Time) (string, bool)
	Set(ctx context.Context, token string, ttl time.Duration, now time.Time)
}

// MemoryTokenCache is a process-local TokenCache. Last writer wins.
type MemoryTokenCache struct {
	mu        sync.Mutex
	token     string
	expiresAt time.Time
	margin    time.Duration
}

// NewMemoryTokenCache creates an empty cache with the given safety margin
func NewMemoryTokenCache(margin time.Duration) *MemoryTokenCache {
	return &MemoryTokenCache{margin: margin}
}

// Get returns the cached token while now is before expiry minus the margin
func (c *MemoryTokenCache) Get(_ context.Context, now time.Time) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token == "" || !now.Before(c.expiresAt.Add(-c.margin)) {
		return "", false
	}
	return c.token, true
}

// Set stores token with validity ttl measured from now
func (c *MemoryTokenCache) Set(_ context.Context, token string, ttl time.Duration, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.token = token
	c.expiresAt = now.Add(ttl)
}

// ExpiresAt returns the expiry of the cached token, zero when empty
func (c *MemoryTokenCache) ExpiresAt() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.expiresAt
}

var _ TokenCache = (*MemoryTokenCache)(nil)
