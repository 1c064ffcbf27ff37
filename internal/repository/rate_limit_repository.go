package repository

import (
	"context"
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/tourline/tourline-accounts/pkg/logger"
)

// RateLimitRepository enforces a fixed-window attempt budget per key
// using Redis counters. Keys are hashed before storage.
type RateLimitRepository interface {
	Check(ctx context.Context, key string, limit int, window time.Duration) (allowed bool, resetAt time.Time, err error)
}

type rateLimitRepository struct {
	client redis.UniversalClient
}

func NewRateLimitRepository(client redis.UniversalClient) RateLimitRepository {
	return &rateLimitRepository{client: client}
}

func (r *rateLimitRepository) Check(ctx context.Context, key string, limit int, window time.Duration) (bool, time.Time, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	hashed := fmt.Sprintf("rl:%x", sha256.Sum256([]byte(key)))
	now := time.Now()

	count, err := r.client.Incr(ctx, hashed).Result()
	if err != nil {
		// Fail open: a Redis outage must not take logins down with it.
		logger.WarnContext(ctx, "Rate limit check failed, allowing request", "error", err)
		return true, now, nil
	}

	if count == 1 {
		if err := r.client.Expire(ctx, hashed, window).Err(); err != nil {
			logger.WarnContext(ctx, "Failed to set rate limit window", "error", err)
		}
	}

	ttl, err := r.client.PTTL(ctx, hashed).Result()
	if err != nil || ttl < 0 {
		ttl = window
	}
	resetAt := now.Add(ttl)

	return count <= int64(limit), resetAt, nil
}
