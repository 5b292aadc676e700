package events

import (
	"context"
	"time"

	"trimbook/pkg/kafka"
	"trimbook/pkg/model"
)

const (
	TypeBookingCreated   = "booking.created"
	TypeBookingConfirmed = "booking.confirmed"
	TypeBookingCancelled = "booking.cancelled"

	schemaVersion = "1"
)

// BookingEvent is the payload published on every lifecycle change.
type BookingEvent struct {
	EventType  string    `json:"event_type"`
	BookingID  string    `json:"booking_id"`
	ProviderID string    `json:"provider_id"`
	ClientID   string    `json:"client_id"`
	Date       string    `json:"date"`
	Time       string    `json:"time"`
	Status     string    `json:"status"`
	OccurredAt time.Time `json:"occurred_at"`
}

type Publisher interface {
	PublishBookingEvent(ctx context.Context, eventType string, booking *model.Booking) error
}

type kafkaPublisher struct {
	producer *kafka.Producer
	source   string
}

func NewKafkaPublisher(producer *kafka.Producer, source string) Publisher {
	return &kafkaPublisher{
		producer: producer,
		source:   source,
	}
}

// PublishBookingEvent keys messages by booking ID so all events for one
// booking land on the same partition in order.
func (p *kafkaPublisher) PublishBookingEvent(ctx context.Context, eventType string, booking *model.Booking) error {
	event := BookingEvent{
		EventType:  eventType,
		BookingID:  booking.ID,
		ProviderID: booking.ProviderID,
		ClientID:   booking.ClientID,
		Date:       booking.Date,
		Time:       booking.Time,
		Status:     booking.Status,
		OccurredAt: time.Now().UTC(),
	}

	msg := kafka.NewMessage().
		WithKey(booking.ID).
		WithValue(event).
		WithEventType(eventType).
		WithSchemaVersion(schemaVersion).
		WithSource(p.source).
		Build()

	return p.producer.Publish(ctx, msg)
}
