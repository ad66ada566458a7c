package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/ds124wfegd/tablebooker/config"
	"github.com/ds124wfegd/tablebooker/internal/entity"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	messages []kafka.Message
	err      error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

type fakeChannel struct {
	exchange string
	key      string
	msg      amqp.Publishing
}

func (c *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	c.exchange, c.key, c.msg = exchange, key, msg
	return nil
}

func (c *fakeChannel) Close() error { return nil }

func sampleBooking() *entity.Booking {
	return &entity.Booking{ID: 7, ShopID: 3, Guests: 6, Status: entity.BookingStatusPending, BookingCode: "AB12CD34"}
}

func TestKafkaPublisher(t *testing.T) {
	writer := &fakeWriter{}
	p := newKafkaPublisher(writer, "table-bookings")
	event := NewEvent(TypeBookingCreated, sampleBooking())

	require.NoError(t, p.Publish(context.Background(), event))

	require.Len(t, writer.messages, 1)
	msg := writer.messages[0]
	assert.Equal(t, "shop-3", string(msg.Key))

	var decoded Event
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, event.ID, decoded.ID)
	assert.Equal(t, TypeBookingCreated, decoded.Type)
	assert.Equal(t, "AB12CD34", decoded.Booking.BookingCode)
}

func TestKafkaPublisherError(t *testing.T) {
	p := newKafkaPublisher(&fakeWriter{err: errors.New("leader not available")}, "table-bookings")

	err := p.Publish(context.Background(), NewEvent(TypeBookingCreated, sampleBooking()))

	assert.ErrorContains(t, err, "table-bookings")
}

func TestRabbitPublisherRoutesByType(t *testing.T) {
	channel := &fakeChannel{}
	p := newRabbitPublisher(channel, "table-bookings")
	event := NewEvent(TypeBookingStatusChanged, sampleBooking())

	require.NoError(t, p.Publish(context.Background(), event))

	assert.Equal(t, "table-bookings", channel.exchange)
	assert.Equal(t, TypeBookingStatusChanged, channel.key)
	assert.Equal(t, event.ID, channel.msg.MessageId)
	assert.Equal(t, "application/json", channel.msg.ContentType)
}

func TestLogPublisher(t *testing.T) {
	hook := test.NewGlobal()
	defer hook.Reset()

	p := NewLogPublisher()
	require.NoError(t, p.Publish(context.Background(), NewEvent(TypeBookingCreated, sampleBooking())))

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.InfoLevel, entry.Level)
	assert.Equal(t, TypeBookingCreated, entry.Data["event_type"])
	assert.Equal(t, "AB12CD34", entry.Data["booking_code"])
}

func TestNewPublisherDefaultsToLog(t *testing.T) {
	p := NewPublisher(context.Background(), config.EventsConfig{Driver: "log"})

	_, ok := p.(*logPublisher)
	assert.True(t, ok)
	assert.NoError(t, p.Close())
}
