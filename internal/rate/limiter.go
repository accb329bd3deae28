package rate

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Limiter is a per-project token bucket on redis, guarding the push
// ingestion endpoint. rps <= 0 disables limiting entirely.
type Limiter struct {
	redis  redis.UniversalClient
	logger *zap.Logger
	rps    int
	burst  int
}

func NewLimiter(client redis.UniversalClient, logger *zap.Logger, rps, burst int) *Limiter {
	if burst < rps {
		burst = rps
	}
	return &Limiter{
		redis:  client,
		logger: logger,
		rps:    rps,
		burst:  burst,
	}
}

func (l *Limiter) Enabled() bool {
	return l != nil && l.rps > 0
}

// Allow consumes one token for the project, reporting how long the caller
// should wait when the bucket is empty.
func (l *Limiter) Allow(ctx context.Context, projectID string) (bool, time.Duration, error) {
	if !l.Enabled() {
		return true, 0, nil
	}

	key := fmt.Sprintf("rate_limit:%s", projectID)
	now := time.Now()
	windowStart := now.Truncate(time.Second)

	currentTokens := l.burst
	lastRefill := windowStart

	value, err := l.redis.Get(ctx, key).Result()
	if err != nil && err != redis.Nil {
		return false, 0, fmt.Errorf("failed to read rate limit state: %w", err)
	}
	if err == nil {
		var lastRefillUnix int64
		fmt.Sscanf(value, "%d:%d", &currentTokens, &lastRefillUnix)
		lastRefill = time.Unix(lastRefillUnix, 0)
	}

	tokensToAdd := int(windowStart.Sub(lastRefill).Seconds()) * l.rps
	currentTokens = min(currentTokens+tokensToAdd, l.burst)

	if currentTokens <= 0 {
		retryAfter := time.Second - time.Duration(now.Nanosecond())
		return false, retryAfter, nil
	}

	currentTokens--

	newValue := fmt.Sprintf("%d:%d", currentTokens, windowStart.Unix())
	if err := l.redis.Set(ctx, key, newValue, time.Minute).Err(); err != nil {
		return false, 0, fmt.Errorf("failed to write rate limit state: %w", err)
	}

	return true, 0, nil
}

// Reset clears the bucket for a project.
func (l *Limiter) Reset(ctx context.Context, projectID string) error {
	key := fmt.Sprintf("rate_limit:%s", projectID)
	return l.redis.Del(ctx, key).Err()
}
