package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"guardian/internal/consent/models"
)

const windowKeyPrefix = "guardian:ratelimit:"

// WindowLimiter is a sliding-window limiter on a sorted set per key, scored
// by attempt time in milliseconds.
type WindowLimiter struct {
	client goredis.UniversalClient
}

func NewWindowLimiter(client goredis.UniversalClient) *WindowLimiter {
	return &WindowLimiter{client: client}
}

// Allow adds the attempt first and withdraws it when the window is over the
// limit, so concurrent callers can only err towards denial.
func (l *WindowLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration, now time.Time) (models.RateLimitResult, error) {
	k := windowKeyPrefix + key
	member := uuid.NewString()
	cutoff := now.Add(-window).UnixMilli()

	var (
		count  *goredis.IntCmd
		oldest *goredis.ZSliceCmd
	)
	_, err := l.client.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		p.ZRemRangeByScore(ctx, k, "-inf", strconv.FormatInt(cutoff, 10))
		p.ZAdd(ctx, k, goredis.Z{Score: float64(now.UnixMilli()), Member: member})
		count = p.ZCard(ctx, k)
		oldest = p.ZRangeWithScores(ctx, k, 0, 0)
		p.PExpire(ctx, k, window)
		return nil
	})
	if err != nil {
		return models.RateLimitResult{}, fmt.Errorf("rate limit window: %w", err)
	}

	resetAt := now.Add(window)
	if zs := oldest.Val(); len(zs) > 0 {
		resetAt = time.UnixMilli(int64(zs[0].Score)).Add(window)
	}
	n := int(count.Val())
	if n > limit {
		if err := l.client.ZRem(ctx, k, member).Err(); err != nil {
			return models.RateLimitResult{}, fmt.Errorf("withdraw rate limit attempt: %w", err)
		}
		return models.RateLimitResult{Allowed: false, Limit: limit, ResetAt: resetAt}, nil
	}
	return models.RateLimitResult{Allowed: true, Limit: limit, Remaining: limit - n, ResetAt: resetAt}, nil
}
