package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mfirdausali/wif-fin-sub004/internal/infrastructure/config"
)

// DefaultKeyPrefix namespaces rate limit counters in a shared Redis
const DefaultKeyPrefix = "pdf:ratelimit:"

// incrementScript opens the window on the first hit and repairs keys that
// lost their expiry. Replies {count, pttl_ms}.
var incrementScript = redis.NewScript(`
local n = redis.call('INCR', KEYS[1])
local ttl = redis.call('PTTL', KEYS[1])
if n == 1 or ttl < 0 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
  ttl = tonumber(ARGV[1])
end
return {n, ttl}
`)

// RedisRateLimitStore implements RateLimitStore using Redis so every
// instance behind a load balancer shares one counter per client
type RedisRateLimitStore struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisRateLimitStore connects to Redis and verifies the connection
func NewRedisRateLimitStore(cfg config.RedisConfig) (*RedisRateLimitStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisRateLimitStoreWithClient(client, DefaultKeyPrefix), nil
}

// NewRedisRateLimitStoreWithClient creates a store with an existing client
func NewRedisRateLimitStoreWithClient(client *redis.Client, keyPrefix string) *RedisRateLimitStore {
	return &RedisRateLimitStore{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// Increment implements RateLimitStore with a fixed window
func (s *RedisRateLimitStore) Increment(ctx context.Context, key string, window time.Duration) (int64, time.Time, error) {
	res, err := incrementScript.Run(ctx, s.client, []string{s.keyPrefix + key}, window.Milliseconds()).Int64Slice()
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("failed to increment rate limit counter: %w", err)
	}
	if len(res) != 2 {
		return 0, time.Time{}, fmt.Errorf("unexpected rate limit reply: %v", res)
	}
	return res[0], time.Now().Add(time.Duration(res[1]) * time.Millisecond), nil
}

// Close closes the Redis client
func (s *RedisRateLimitStore) Close() error {
	return s.client.Close()
}

// GetClient returns the underlying Redis client (for testing)
func (s *RedisRateLimitStore) GetClient() *redis.Client {
	return s.client
}

var _ RateLimitStore = (*RedisRateLimitStore)(nil)
