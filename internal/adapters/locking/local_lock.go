package locking

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/zatekoja/viewingscheduler/internal/domain/providers"
)

// LocalBookingLocker serializes bookings within one process.
// Used when Redis is disabled; it does not coordinate between replicas.
type LocalBookingLocker struct {
	mu   sync.Mutex
	held map[string]chan struct{}
	wait time.Duration
}

// NewLocalBookingLocker creates an in-process locker
func NewLocalBookingLocker(wait time.Duration) providers.BookingLocker {
	return &LocalBookingLocker{held: make(map[string]chan struct{}), wait: wait}
}

// Acquire blocks until key is free, the wait budget is spent or ctx ends. ttl is ignored.
func (l *LocalBookingLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, error) {
	if l.wait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.wait)
		defer cancel()
	}

	for {
		l.mu.Lock()
		released, busy := l.held[key]
		if !busy {
			done := make(chan struct{})
			l.held[key] = done
			l.mu.Unlock()
			return l.releaser(key, done), nil
		}
		l.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %s", providers.ErrLockNotAcquired, key)
		case <-released:
		}
	}
}

func (l *LocalBookingLocker) releaser(key string, done chan struct{}) func(context.Context) error {
	var once sync.Once
	return func(context.Context) error {
		once.Do(func() {
			l.mu.Lock()
			if l.held[key] == done {
				delete(l.held, key)
			}
			l.mu.Unlock()
			close(done)
		})
		return nil
	}
}

// NoopBookingLocker never blocks. Concurrent bookings may both pass the conflict check.
type NoopBookingLocker struct{}

// Acquire returns immediately
func (NoopBookingLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, error) {
	return func(context.Context) error { return nil }, nil
}
