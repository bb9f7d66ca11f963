package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/catrace/backend/internal/core/ports"
)

const keyPrefix = "ratelimit:login:"

// RateLimiter is a fixed-window limiter shared by every instance pointing at
// the same Redis. Key format: ratelimit:login:<client key>
type RateLimiter struct {
	client redis.Cmdable
	limit  int64
	window time.Duration
}

func NewRateLimiter(client redis.Cmdable, limit int, window time.Duration) *RateLimiter {
	if limit <= 0 {
		limit = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &RateLimiter{client: client, limit: int64(limit), window: window}
}

// Allow opens the window with SET NX PX, counts the attempt with INCR and reads
// the remaining lifetime, all inside one MULTI/EXEC.
func (l *RateLimiter) Allow(ctx context.Context, key string) (ports.RateDecision, error) {
	k := keyPrefix + key

	var (
		incr *redis.IntCmd
		pttl *redis.DurationCmd
	)
	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SetNX(ctx, k, 0, l.window)
		incr = pipe.Incr(ctx, k)
		pttl = pipe.PTTL(ctx, k)
		return nil
	})
	if err != nil {
		return ports.RateDecision{}, fmt.Errorf("rate limit: %w", err)
	}

	ttl := pttl.Val()
	if ttl <= 0 {
		// The key lost its expiry; restart the window instead of limiting forever.
		if err := l.client.PExpire(ctx, k, l.window).Err(); err != nil {
			return ports.RateDecision{}, fmt.Errorf("rate limit: %w", err)
		}
		ttl = l.window
	}

	if incr.Val() > l.limit {
		return ports.RateDecision{RetryAfter: ttl}, nil
	}
	return ports.RateDecision{Allowed: true}, nil
}

var _ ports.RateLimiter = (*RateLimiter)(nil)
