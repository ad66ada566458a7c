package worker

import (
	"context"
	"time"

	"github.com/ds124wfegd/tablebooker/pkg/events"

	"github.com/sirupsen/logrus"
)

// EventReplayWorker redelivers events parked in the dead letter queue
type EventReplayWorker struct {
	deadLetter *events.DeadLetter
	publisher  events.Publisher
	interval   time.Duration
	batch      int
	log        *logrus.Entry
}

// publisher must be the broker sink itself, not the dead letter wrapper
func NewEventReplayWorker(deadLetter *events.DeadLetter, publisher events.Publisher, interval time.Duration, batch int) *EventReplayWorker {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &EventReplayWorker{
		deadLetter: deadLetter,
		publisher:  publisher,
		interval:   interval,
		batch:      batch,
		log:        logrus.WithField("component", "event_replay_worker"),
	}
}

func (w *EventReplayWorker) Start(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.log.WithField("interval", w.interval.String()).Info("Event replay worker started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info("Event replay worker stopped")
			return nil
		case <-ticker.C:
			w.RunOnce(ctx)
		}
	}
}

func (w *EventReplayWorker) RunOnce(ctx context.Context) int {
	replayed, err := w.deadLetter.Replay(ctx, w.publisher, w.batch)
	if err != nil {
		w.log.WithError(err).WithField("replayed", replayed).Warn("Dead letter replay interrupted")
		return replayed
	}

	if replayed > 0 {
		w.log.WithField("replayed", replayed).Info("Parked events delivered")
	}
	return replayed
}
