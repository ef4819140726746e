package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mfirdausali/wif-fin-sub004/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// RateLimitStore counts hits per key in fixed windows. The cache package
// provides in-memory and Redis implementations.
type RateLimitStore interface {
	// Increment records one hit for key and returns the hit count in the
	// current window together with the time that window ends
	Increment(ctx context.Context, key string, window time.Duration) (count int64, resetAt time.Time, err error)
}

// RateLimitConfig configures RateLimit
type RateLimitConfig struct {
	// Limit is the maximum number of requests per key per window
	Limit  int
	Window time.Duration
	Store  RateLimitStore
	// KeyFunc derives the client key; defaults to the client IP
	KeyFunc func(*gin.Context) string
	Logger  *zap.Logger
}

// RateLimit rejects requests beyond cfg.Limit per window with 429. Store
// failures let the request through.
func RateLimit(cfg RateLimitConfig) gin.HandlerFunc {
	keyFunc := cfg.KeyFunc
	if keyFunc == nil {
		keyFunc = func(c *gin.Context) string { return c.ClientIP() }
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	limit := strconv.Itoa(cfg.Limit)

	return func(c *gin.Context) {
		key := keyFunc(c)
		hits, resetAt, err := cfg.Store.Increment(c.Request.Context(), key, cfg.Window)
		if err != nil {
			logger.Warn("rate limit store unavailable, allowing request",
				zap.String("key", key), zap.Error(err))
			c.Next()
			return
		}

		remaining := max(int64(cfg.Limit)-hits, 0)
		c.Header("X-RateLimit-Limit", limit)
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))

		if hits > int64(cfg.Limit) {
			retryAfter := max(int64(time.Until(resetAt).Round(time.Second)/time.Second), 1)
			c.Header("Retry-After", strconv.FormatInt(retryAfter, 10))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, dto.NewErrorResponse(
				http.StatusTooManyRequests,
				dto.ErrCodeRateLimited,
				"Too many requests from this IP, please try again later.",
				GetRequestID(c),
			))
			return
		}

		c.Next()
	}
}
