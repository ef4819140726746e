package cache

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mfirdausali/wif-fin-sub004/internal/infrastructure/config"
)

// RateLimitStoreFactory creates rate limit stores based on configuration
type RateLimitStoreFactory struct {
	redis                 config.RedisConfig
	cleanupEvery          time.Duration
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// RateLimitStoreFactoryOption is a functional option for configuring the factory
type RateLimitStoreFactoryOption func(*RateLimitStoreFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) RateLimitStoreFactoryOption {
	return func(f *RateLimitStoreFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether an unreachable Redis degrades to the
// in-memory store. Default is true.
func WithInMemoryFallback(allow bool) RateLimitStoreFactoryOption {
	return func(f *RateLimitStoreFactory) {
		f.allowInMemoryFallback = allow
	}
}

// WithCleanupInterval sets how often the in-memory store evicts expired windows
func WithCleanupInterval(d time.Duration) RateLimitStoreFactoryOption {
	return func(f *RateLimitStoreFactory) {
		f.cleanupEvery = d
	}
}

// NewRateLimitStoreFactory creates a new factory
func NewRateLimitStoreFactory(redisCfg config.RedisConfig, opts ...RateLimitStoreFactoryOption) *RateLimitStoreFactory {
	f := &RateLimitStoreFactory{
		redis:                 redisCfg,
		cleanupEvery:          time.Minute,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// CreateStore returns the store for backend (config.RateLimitBackendMemory
// or config.RateLimitBackendRedis)
func (f *RateLimitStoreFactory) CreateStore(backend string) (RateLimitStore, error) {
	switch backend {
	case config.RateLimitBackendMemory, "":
		f.logger.Info("Using in-memory rate limit store")
		return NewInMemoryRateLimitStore(f.cleanupEvery), nil
	case config.RateLimitBackendRedis:
	default:
		return nil, fmt.Errorf("unknown rate limit backend %q", backend)
	}

	store, err := NewRedisRateLimitStore(f.redis)
	if err == nil {
		f.logger.Info("Using Redis rate limit store", zap.String("addr", f.redis.Addr()))
		return store, nil
	}
	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("redis required for rate limiting but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory rate limit store. "+
		"Limits are enforced per instance.",
		zap.Error(err),
	)
	return NewInMemoryRateLimitStore(f.cleanupEvery), nil
}
