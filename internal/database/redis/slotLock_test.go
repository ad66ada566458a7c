package redislock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/ds124wfegd/tablebooker/internal/entity"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *SlotLock) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return mr, NewSlotLock(client, 5*time.Second)
}

func TestLockAndRelease(t *testing.T) {
	mr, lock := setupTestRedis(t)

	unlock, err := lock.Lock(context.Background(), "1:2026-11-02:7")
	require.NoError(t, err)
	assert.True(t, mr.Exists(keyPrefix+"1:2026-11-02:7"))
	assert.Equal(t, 5*time.Second, mr.TTL(keyPrefix+"1:2026-11-02:7"))

	unlock()
	assert.False(t, mr.Exists(keyPrefix+"1:2026-11-02:7"))
}

func TestLockWaitsForHolder(t *testing.T) {
	_, lock := setupTestRedis(t)
	ctx := context.Background()

	unlock, err := lock.Lock(ctx, "slot")
	require.NoError(t, err)

	acquired := make(chan struct{})
	go func() {
		second, err := lock.Lock(ctx, "slot")
		if assert.NoError(t, err) {
			second()
		}
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatal("second caller got the lock while it was held")
	case <-time.After(50 * time.Millisecond):
	}

	unlock()

	select {
	case <-acquired:
	case <-time.After(2 * time.Second):
		t.Fatal("second caller never got the lock")
	}
}

func TestLockTimesOut(t *testing.T) {
	_, lock := setupTestRedis(t)

	unlock, err := lock.Lock(context.Background(), "slot")
	require.NoError(t, err)
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 40*time.Millisecond)
	defer cancel()

	_, err = lock.Lock(ctx, "slot")
	assert.ErrorIs(t, err, entity.ErrConcurrentConflict)
}

func TestReleaseKeepsForeignLease(t *testing.T) {
	mr, lock := setupTestRedis(t)

	unlock, err := lock.Lock(context.Background(), "slot")
	require.NoError(t, err)

	// аренда истекла и ключ занят другим владельцем
	mr.FastForward(6 * time.Second)
	require.NoError(t, mr.Set(keyPrefix+"slot", "someone-else"))

	unlock()

	value, err := mr.Get(keyPrefix + "slot")
	require.NoError(t, err)
	assert.Equal(t, "someone-else", value)
}

func TestLockFallsBackWhenRedisDown(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1})
	defer client.Close()
	lock := NewSlotLock(client, time.Second)

	unlock, err := lock.Lock(context.Background(), "slot")
	require.NoError(t, err)

	// без Redis слот всё равно сериализуется внутри процесса
	ctx, cancel := context.WithTimeout(context.Background(), 40*time.Millisecond)
	defer cancel()
	_, err = lock.Lock(ctx, "slot")
	assert.ErrorIs(t, err, entity.ErrConcurrentConflict)

	unlock()

	again, err := lock.Lock(context.Background(), "slot")
	require.NoError(t, err)
	again()
}

func TestLockFallsBackAfterRedisStops(t *testing.T) {
	mr, lock := setupTestRedis(t)
	mr.Close()

	unlock, err := lock.Lock(context.Background(), "slot")
	require.NoError(t, err)
	unlock()
}
