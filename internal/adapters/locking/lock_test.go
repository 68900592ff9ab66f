package locking

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/viewingscheduler/internal/domain/providers"
	redisclient "github.com/zatekoja/viewingscheduler/internal/infrastructure/clients/redis"
)

func newRedisLocker(t *testing.T, wait time.Duration) (providers.BookingLocker, *miniredis.Miniredis) {
	t.Helper()
	server := miniredis.RunT(t)
	client := redisclient.NewClientFromRedis(goredis.NewClient(&goredis.Options{Addr: server.Addr()}))
	t.Cleanup(func() { client.Close() })
	return NewRedisBookingLocker(client, wait), server
}

func TestRedisBookingLocker_ExclusiveUntilReleased(t *testing.T) {
	locker, server := newRedisLocker(t, 100*time.Millisecond)
	ctx := context.Background()

	release, err := locker.Acquire(ctx, "agent-1:2026-03-02", 5*time.Second)
	require.NoError(t, err)
	assert.True(t, server.Exists(lockKeyPrefix+"agent-1:2026-03-02"))

	_, err = locker.Acquire(ctx, "agent-1:2026-03-02", 5*time.Second)
	assert.ErrorIs(t, err, providers.ErrLockNotAcquired)

	other, err := locker.Acquire(ctx, "agent-2:2026-03-02", 5*time.Second)
	require.NoError(t, err)
	require.NoError(t, other(ctx))

	require.NoError(t, release(ctx))
	assert.False(t, server.Exists(lockKeyPrefix+"agent-1:2026-03-02"))

	again, err := locker.Acquire(ctx, "agent-1:2026-03-02", 5*time.Second)
	require.NoError(t, err)
	require.NoError(t, again(ctx))
}

func TestRedisBookingLocker_ReleaseKeepsForeignLock(t *testing.T) {
	locker, server := newRedisLocker(t, 50*time.Millisecond)
	ctx := context.Background()

	release, err := locker.Acquire(ctx, "agent-1:2026-03-02", time.Second)
	require.NoError(t, err)

	// Simulate expiry followed by another holder taking the key.
	require.NoError(t, server.Set(lockKeyPrefix+"agent-1:2026-03-02", "someone-else"))

	require.NoError(t, release(ctx))
	value, err := server.Get(lockKeyPrefix + "agent-1:2026-03-02")
	require.NoError(t, err)
	assert.Equal(t, "someone-else", value)
}

func TestLocalBookingLocker_WaitsForRelease(t *testing.T) {
	locker := NewLocalBookingLocker(time.Second)
	ctx := context.Background()

	release, err := locker.Acquire(ctx, "agent-1:2026-03-02", 0)
	require.NoError(t, err)

	acquired := make(chan struct{})
	go func() {
		second, err := locker.Acquire(ctx, "agent-1:2026-03-02", 0)
		if err == nil {
			_ = second(ctx)
		}
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatal("second acquire should block while the lock is held")
	case <-time.After(50 * time.Millisecond):
	}

	require.NoError(t, release(ctx))

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second acquire did not proceed after release")
	}
}

func TestLocalBookingLocker_TimesOut(t *testing.T) {
	locker := NewLocalBookingLocker(30 * time.Millisecond)
	ctx := context.Background()

	release, err := locker.Acquire(ctx, "k", 0)
	require.NoError(t, err)
	defer release(ctx)

	_, err = locker.Acquire(ctx, "k", 0)
	assert.ErrorIs(t, err, providers.ErrLockNotAcquired)
}
