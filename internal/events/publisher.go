package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	BookingCreated       = "booking.created"
	BookingStatusChanged = "booking.status_changed"
	BookingUpdated       = "booking.updated"
	BookingRescheduled   = "booking.rescheduled"
	BookingDeleted       = "booking.deleted"
)

// BookingEvent is the JSON payload published for every committed booking change.
type BookingEvent struct {
	Type           string     `json:"type"`
	BookingID      uuid.UUID  `json:"booking_id"`
	UserID         uuid.UUID  `json:"user_id"`
	ActorID        uuid.UUID  `json:"actor_id"`
	Status         string     `json:"status"`
	PreviousStatus string     `json:"previous_status,omitempty"`
	BookingStart   time.Time  `json:"booking_start"`
	PreviousStart  *time.Time `json:"previous_start,omitempty"`
	ServiceIDs     []string   `json:"service_ids"`
	OccurredAt     time.Time  `json:"occurred_at"`
}

type Publisher interface {
	Publish(ctx context.Context, ev BookingEvent) error
}

type Nop struct{}

func (Nop) Publish(context.Context, BookingEvent) error { return nil }

// RabbitPublisher publishes events to a durable topic exchange keyed by event type.
type RabbitPublisher struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
}

func NewRabbitPublisher(url, exchange string) (*RabbitPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	return &RabbitPublisher{conn: conn, ch: ch, exchange: exchange}, nil
}

func (p *RabbitPublisher) Publish(ctx context.Context, ev BookingEvent) error {
	body, err := encode(ev)
	if err != nil {
		return err
	}
	return p.ch.PublishWithContext(ctx, p.exchange, ev.Type, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    ev.BookingID.String(),
		Timestamp:    ev.OccurredAt,
		Type:         ev.Type,
		Body:         body,
	})
}

func (p *RabbitPublisher) Close() error {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

func encode(ev BookingEvent) ([]byte, error) {
	if ev.Type == "" {
		return nil, fmt.Errorf("event type is required")
	}
	if ev.ServiceIDs == nil {
		ev.ServiceIDs = []string{}
	}
	return json.Marshal(ev)
}
