package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	attemptWindow = 15 * time.Minute
	maxAttempts   = 5
)

// AttemptLimiter counts failed attempts per scope+key in a fixed window.
// Key format: attempts:<scope>:<key>
type AttemptLimiter struct {
	client *redis.Client
}

// NewAttemptLimiter creates an AttemptLimiter wrapping the given Redis client.
func NewAttemptLimiter(client *redis.Client) *AttemptLimiter {
	return &AttemptLimiter{client: client}
}

// TooMany reports whether the key has exhausted its attempts in the window.
func (l *AttemptLimiter) TooMany(ctx context.Context, scope, key string) (bool, error) {
	n, err := l.client.Get(ctx, l.key(scope, key)).Int64()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("attempt count: %w", err)
	}
	return n >= maxAttempts, nil
}

// Hit records one failed attempt; the window starts at the first hit.
func (l *AttemptLimiter) Hit(ctx context.Context, scope, key string) error {
	k := l.key(scope, key)
	n, err := l.client.Incr(ctx, k).Result()
	if err != nil {
		return fmt.Errorf("attempt incr: %w", err)
	}
	if n == 1 {
		if err := l.client.Expire(ctx, k, attemptWindow).Err(); err != nil {
			return fmt.Errorf("attempt expire: %w", err)
		}
	}
	return nil
}

// Reset clears the counter, used after a successful attempt.
func (l *AttemptLimiter) Reset(ctx context.Context, scope, key string) error {
	return l.client.Del(ctx, l.key(scope, key)).Err()
}

func (l *AttemptLimiter) key(scope, key string) string {
	return fmt.Sprintf("attempts:%s:%s", scope, key)
}
