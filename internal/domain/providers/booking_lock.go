package providers

import (
	"context"
	"errors"
	"time"
)

// ErrLockNotAcquired is returned when another booking holds the lock past the wait budget
var ErrLockNotAcquired = errors.New("booking lock not acquired")

// BookingLocker serializes the conflict check and write for one agent on one date.
type BookingLocker interface {
	// Acquire blocks until the lock is held or ctx ends. The returned func releases it.
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(context.Context) error, err error)
}
