// Package events publishes booking lifecycle events to a broker.
package events

import (
	"context"
	"fmt"
	"time"

	"github.com/ds124wfegd/tablebooker/config"
	"github.com/ds124wfegd/tablebooker/internal/entity"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	TypeBookingCreated       = "booking.created"
	TypeBookingStatusChanged = "booking.status_changed"
)

type Event struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Reason     string          `json:"reason,omitempty"`
	Booking    *entity.Booking `json:"booking"`
}

func NewEvent(eventType string, booking *entity.Booking) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		OccurredAt: time.Now().UTC(),
		Booking:    booking,
	}
}

// key keeps one shop's events in order on partitioned brokers
func (e Event) key() string {
	if e.Booking == nil {
		return e.Type
	}
	return fmt.Sprintf("shop-%d", e.Booking.ShopID)
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// NewPublisher builds the sink named by cfg.Driver. When the broker is
// unreachable it falls back to the log sink so bookings keep working.
func NewPublisher(ctx context.Context, cfg config.EventsConfig) Publisher {
	switch cfg.Driver {
	case "kafka":
		p, err := NewKafkaPublisher(ctx, cfg.Brokers, cfg.Topic)
		if err != nil {
			logrus.WithError(err).Warn("Kafka unavailable, publishing events to log")
			return NewLogPublisher()
		}
		return p
	case "rabbitmq":
		p, err := NewRabbitPublisher(cfg.AMQPURL, cfg.Exchange)
		if err != nil {
			logrus.WithError(err).Warn("RabbitMQ unavailable, publishing events to log")
			return NewLogPublisher()
		}
		return p
	default:
		return NewLogPublisher()
	}
}

type logPublisher struct {
	log *logrus.Entry
}

func NewLogPublisher() Publisher {
	return &logPublisher{log: logrus.WithField("component", "events")}
}

func (p *logPublisher) Publish(_ context.Context, event Event) error {
	fields := logrus.Fields{
		"event_id":   event.ID,
		"event_type": event.Type,
	}
	if event.Booking != nil {
		fields["booking_id"] = event.Booking.ID
		fields["booking_code"] = event.Booking.BookingCode
		fields["status"] = event.Booking.Status
	}
	p.log.WithFields(fields).Info("Booking event")
	return nil
}

func (p *logPublisher) Close() error {
	return nil
}
