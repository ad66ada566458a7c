package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

const DefaultDeadLetterKey = "tablebooker:events:dlq"

// FailedEvent is an event the broker refused, parked for replay
type FailedEvent struct {
	Event    Event     `json:"event"`
	Error    string    `json:"error"`
	FailedAt time.Time `json:"failed_at"`
}

// DeadLetterStats contains statistics about parked events
type DeadLetterStats struct {
	Size          int64     `json:"size"`
	OldestFailure time.Time `json:"oldest_failure"`
	NewestFailure time.Time `json:"newest_failure"`
}

// DeadLetter keeps failed events in a Redis sorted set scored by failure time
type DeadLetter struct {
	client *redis.Client
	key    string
	log    *logrus.Entry
}

func NewDeadLetter(client *redis.Client, key string) *DeadLetter {
	if key == "" {
		key = DefaultDeadLetterKey
	}
	return &DeadLetter{
		client: client,
		key:    key,
		log:    logrus.WithField("component", "events_dlq"),
	}
}

// Store parks event together with the publish error
func (d *DeadLetter) Store(ctx context.Context, event Event, cause error) error {
	failed := &FailedEvent{
		Event:    event,
		Error:    cause.Error(),
		FailedAt: time.Now().UTC(),
	}

	data, err := json.Marshal(failed)
	if err != nil {
		return fmt.Errorf("failed to marshal failed event: %w", err)
	}

	score := float64(failed.FailedAt.UnixNano()) / 1e9
	if err := d.client.ZAdd(ctx, d.key, &redis.Z{Score: score, Member: data}).Err(); err != nil {
		return fmt.Errorf("failed to park event %s: %w", event.ID, err)
	}
	return nil
}

type parkedEvent struct {
	raw    string
	failed FailedEvent
}

// oldest first
func (d *DeadLetter) load(ctx context.Context, limit int) ([]parkedEvent, error) {
	if limit <= 0 {
		limit = 50
	}

	members, err := d.client.ZRange(ctx, d.key, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read dead letter queue: %w", err)
	}

	parked := make([]parkedEvent, 0, len(members))
	for _, raw := range members {
		var failed FailedEvent
		if err := json.Unmarshal([]byte(raw), &failed); err != nil {
			d.log.WithError(err).Warn("Dropping unreadable dead letter entry")
			d.client.ZRem(ctx, d.key, raw)
			continue
		}
		parked = append(parked, parkedEvent{raw: raw, failed: failed})
	}
	return parked, nil
}

func (d *DeadLetter) List(ctx context.Context, limit int) ([]*FailedEvent, error) {
	parked, err := d.load(ctx, limit)
	if err != nil {
		return nil, err
	}

	out := make([]*FailedEvent, len(parked))
	for i := range parked {
		out[i] = &parked[i].failed
	}
	return out, nil
}

// Replay republishes up to limit parked events in failure order and stops at
// the first one the publisher still refuses.
func (d *DeadLetter) Replay(ctx context.Context, p Publisher, limit int) (int, error) {
	parked, err := d.load(ctx, limit)
	if err != nil {
		return 0, err
	}

	replayed := 0
	for _, entry := range parked {
		if err := p.Publish(ctx, entry.failed.Event); err != nil {
			return replayed, fmt.Errorf("failed to replay event %s: %w", entry.failed.Event.ID, err)
		}
		if err := d.client.ZRem(ctx, d.key, entry.raw).Err(); err != nil {
			return replayed, fmt.Errorf("failed to remove replayed event %s: %w", entry.failed.Event.ID, err)
		}
		replayed++
	}
	return replayed, nil
}

func (d *DeadLetter) Stats(ctx context.Context) (*DeadLetterStats, error) {
	size, err := d.client.ZCard(ctx, d.key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get dead letter size: %w", err)
	}

	stats := &DeadLetterStats{Size: size}
	if size == 0 {
		return stats, nil
	}

	oldest, err := d.client.ZRangeWithScores(ctx, d.key, 0, 0).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get oldest failure: %w", err)
	}
	newest, err := d.client.ZRangeWithScores(ctx, d.key, -1, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get newest failure: %w", err)
	}

	if len(oldest) > 0 {
		stats.OldestFailure = scoreTime(oldest[0].Score)
	}
	if len(newest) > 0 {
		stats.NewestFailure = scoreTime(newest[0].Score)
	}
	return stats, nil
}

func scoreTime(score float64) time.Time {
	return time.Unix(0, int64(score*1e9)).UTC()
}

type deadLetterPublisher struct {
	next Publisher
	dl   *DeadLetter
}

// WithDeadLetter parks events that next fails to publish. A parked event
// counts as published, the replay worker delivers it later.
func WithDeadLetter(next Publisher, dl *DeadLetter) Publisher {
	return &deadLetterPublisher{next: next, dl: dl}
}

func (p *deadLetterPublisher) Publish(ctx context.Context, event Event) error {
	err := p.next.Publish(ctx, event)
	if err == nil {
		return nil
	}

	if dlErr := p.dl.Store(ctx, event, err); dlErr != nil {
		return errors.Join(err, dlErr)
	}

	p.dl.log.WithError(err).WithFields(logrus.Fields{
		"event_id":   event.ID,
		"event_type": event.Type,
	}).Warn("Event parked in dead letter queue")
	return nil
}

func (p *deadLetterPublisher) Close() error {
	return p.next.Close()
}
