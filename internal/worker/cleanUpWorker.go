package worker

import (
	"context"
	"time"

	"github.com/ds124wfegd/tablebooker/internal/service"

	"github.com/sirupsen/logrus"
)

// PendingExpiryWorker cancels pending bookings nobody confirmed in time,
// which gives their tables back to the slot.
type PendingExpiryWorker struct {
	bookingService service.BookingService
	interval       time.Duration
	log            *logrus.Entry
}

func NewPendingExpiryWorker(bookingService service.BookingService, interval time.Duration) *PendingExpiryWorker {
	if interval <= 0 {
		interval = time.Minute
	}
	return &PendingExpiryWorker{
		bookingService: bookingService,
		interval:       interval,
		log:            logrus.WithField("component", "pending_expiry_worker"),
	}
}

// Start blocks until ctx is cancelled
func (w *PendingExpiryWorker) Start(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.log.WithField("interval", w.interval.String()).Info("Pending expiry worker started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info("Pending expiry worker stopped")
			return nil
		case <-ticker.C:
			w.RunOnce(ctx)
		}
	}
}

// RunOnce выполняет один проход отмены просроченных бронирований
func (w *PendingExpiryWorker) RunOnce(ctx context.Context) int {
	count, err := w.bookingService.CancelExpiredBookings(ctx)
	if err != nil {
		w.log.WithError(err).Error("Failed to cancel expired bookings")
		return 0
	}

	if count > 0 {
		w.log.WithField("cancelled", count).Info("Expired pending bookings cancelled")
	} else {
		w.log.Debug("No expired bookings found for cleanup")
	}
	return count
}
