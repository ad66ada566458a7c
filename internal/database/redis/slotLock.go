package redislock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ds124wfegd/tablebooker/internal/database/memory"
	"github.com/ds124wfegd/tablebooker/internal/entity"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	keyPrefix            = "tablebooker:lock:"
	defaultRetryInterval = 15 * time.Millisecond
)

// release deletes the key only while it still holds our token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// SlotLock is a lease lock shared by every instance talking to the same Redis.
// The lease expires after ttl so a crashed holder cannot block a slot forever.
// While Redis is unreachable it degrades to a per-process lock; the slot
// transaction in the store still rejects conflicting writers.
type SlotLock struct {
	client        *redis.Client
	local         *memory.KeyedLocker
	ttl           time.Duration
	retryInterval time.Duration
	log           *logrus.Entry
}

func NewSlotLock(client *redis.Client, ttl time.Duration) *SlotLock {
	return &SlotLock{
		client:        client,
		local:         memory.NewKeyedLocker(),
		ttl:           ttl,
		retryInterval: defaultRetryInterval,
		log:           logrus.WithField("component", "slot_lock"),
	}
}

func (l *SlotLock) Lock(ctx context.Context, key string) (func(), error) {
	redisKey := keyPrefix + key
	token := uuid.NewString()

	for {
		ok, err := l.client.SetNX(ctx, redisKey, token, l.ttl).Result()
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, fmt.Errorf("%w: waiting for %s: %w", entity.ErrConcurrentConflict, key, err)
			}
			l.log.WithError(err).WithField("key", key).Warn("Redis unavailable, using in-process slot lock")
			return l.local.Lock(ctx, key)
		}
		if ok {
			return func() { l.release(redisKey, token) }, nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: waiting for %s: %w", entity.ErrConcurrentConflict, key, ctx.Err())
		case <-time.After(l.retryInterval):
		}
	}
}

func (l *SlotLock) release(redisKey, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	deleted, err := releaseScript.Run(ctx, l.client, []string{redisKey}, token).Int()
	if err != nil {
		l.log.WithError(err).WithField("key", redisKey).Error("Failed to release slot lock")
		return
	}
	if deleted == 0 {
		l.log.WithField("key", redisKey).Warn("Slot lock lease expired before release")
	}
}
