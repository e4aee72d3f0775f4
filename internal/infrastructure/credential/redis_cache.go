package credential

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DefaultRedisKey is the key the shared token is stored under
const DefaultRedisKey = "syncbridge:credential:token"

// RedisTokenCache shares the token between bridge instances.
// Redis failures are logged and treated as cache misses.
type RedisTokenCache struct {
	client *redis.Client
	key    string
	margin time.Duration
	logger *zap.Logger
}

type redisTokenEntry struct {
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expires_at"` // unix milliseconds
}

// NewRedisTokenCache creates a cache over an existing client
func NewRedisTokenCache(client *redis.Client, key string, margin time.Duration, logger *zap.Logger) *RedisTokenCache {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisTokenCache{
		client: client,
		key:    key,
		margin: margin,
		logger: logger,
	}
}

// Get returns the shared token while now is before expiry minus the margin
func (c *RedisTokenCache) Get(ctx context.Context, now time.Time) (string, bool) {
	raw, err := c.client.Get(ctx, c.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return "", false
	}
	if err != nil {
		c.logger.Warn("Token cache read failed", zap.String("key", c.key), zap.Error(err))
		return "", false
	}

	entry, err := decodeRedisEntry(raw)
	if err != nil {
		c.logger.Warn("Token cache entry undecodable", zap.String("key", c.key), zap.Error(err))
		return "", false
	}
	if entry.Token == "" || !now.Before(time.UnixMilli(entry.ExpiresAt).Add(-c.margin)) {
		return "", false
	}
	return entry.Token, true
}

// Set stores token with validity ttl measured from now. The key expires when
// the token stops being served, so stale tokens do not linger.
func (c *RedisTokenCache) Set(ctx context.Context, token string, ttl time.Duration, now time.Time) {
	keyTTL := ttl - c.margin
	if keyTTL <= 0 {
		return
	}

	raw, err := json.Marshal(redisTokenEntry{
		Token:     token,
		ExpiresAt: now.Add(ttl).UnixMilli(),
	})
	if err != nil {
		c.logger.Warn("Token cache entry encode failed", zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, c.key, raw, keyTTL).Err(); err != nil {
		c.logger.Warn("Token cache write failed", zap.String("key", c.key), zap.Error(err))
	}
}

// Close closes the Redis client
func (c *RedisTokenCache) Close() error {
	return c.client.Close()
}

func decodeRedisEntry(raw []byte) (redisTokenEntry, error) {
	var entry redisTokenEntry
	err := json.Unmarshal(raw, &entry)
	return entry, err
}

var _ TokenCache = (*RedisTokenCache)(nil)
