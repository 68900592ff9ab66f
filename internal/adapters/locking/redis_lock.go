package locking

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/zatekoja/viewingscheduler/internal/domain/providers"
	redisclient "github.com/zatekoja/viewingscheduler/internal/infrastructure/clients/redis"
)

const (
	lockKeyPrefix     = "lock:booking:"
	lockPollInterval  = 25 * time.Millisecond
	lockReleaseWindow = 2 * time.Second
)

// releaseScript deletes the key only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisBookingLocker implements BookingLocker with SET NX PX and a token-checked release.
type RedisBookingLocker struct {
	client *redisclient.Client
	wait   time.Duration
}

// NewRedisBookingLocker creates a locker that waits up to wait for a held lock.
func NewRedisBookingLocker(client *redisclient.Client, wait time.Duration) providers.BookingLocker {
	return &RedisBookingLocker{client: client, wait: wait}
}

// Acquire blocks until the lock is held, the wait budget is spent or ctx ends.
func (l *RedisBookingLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, error) {
	token := uuid.NewString()
	redisKey := lockKeyPrefix + key

	waitCtx := ctx
	if l.wait > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, l.wait)
		defer cancel()
	}

	ticker := time.NewTicker(lockPollInterval)
	defer ticker.Stop()

	for {
		ok, err := l.client.Client().SetNX(waitCtx, redisKey, token, ttl).Result()
		if err != nil && waitCtx.Err() == nil {
			return nil, fmt.Errorf("failed to acquire booking lock %s: %w", key, err)
		}
		if ok {
			return l.releaser(redisKey, token), nil
		}

		select {
		case <-waitCtx.Done():
			return nil, fmt.Errorf("%w: %s", providers.ErrLockNotAcquired, key)
		case <-ticker.C:
		}
	}
}

func (l *RedisBookingLocker) releaser(redisKey, token string) func(context.Context) error {
	return func(ctx context.Context) error {
		// Release even when the request context is already cancelled.
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), lockReleaseWindow)
		defer cancel()
		if err := releaseScript.Run(ctx, l.client.Client(), []string{redisKey}, token).Err(); err != nil {
			return fmt.Errorf("failed to release booking lock: %w", err)
		}
		return nil
	}
}
