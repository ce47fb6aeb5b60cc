package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/minicrm/crm-api/internal/core/domain"
)

const (
	// ExchangeName is the topic exchange domain events are published to. The
	// routing key is the event type.
	ExchangeName = "crm.events"
	// NotificationsQueue is consumed by the notifier.
	NotificationsQueue = "crm.notifications"
)

// DeclareExchange declares the events exchange.
func DeclareExchange(ch *amqp.Channel) error {
	return ch.ExchangeDeclare(
		ExchangeName,
		"topic",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	)
}

// DeclareNotificationsQueue declares the durable notifications queue and binds
// it to every routing key on the events exchange.
func DeclareNotificationsQueue(ch *amqp.Channel) (amqp.Queue, error) {
	if err := DeclareExchange(ch); err != nil {
		return amqp.Queue{}, fmt.Errorf("declare exchange: %w", err)
	}
	q, err := ch.QueueDeclare(NotificationsQueue, true, false, false, false, nil)
	if err != nil {
		return amqp.Queue{}, fmt.Errorf("declare queue: %w", err)
	}
	if err := ch.QueueBind(q.Name, "#", ExchangeName, false, nil); err != nil {
		return amqp.Queue{}, fmt.Errorf("bind queue: %w", err)
	}
	return q, nil
}

// AMQPSink publishes events to RabbitMQ as persistent JSON messages.
type AMQPSink struct {
	mu      sync.Mutex
	conn    *amqp.Connection
	channel *amqp.Channel
}

func NewAMQPSink(url string) (*AMQPSink, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := DeclareExchange(ch); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	return &AMQPSink{conn: conn, channel: ch}, nil
}

func (s *AMQPSink) Send(ctx context.Context, event domain.Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.channel.PublishWithContext(ctx,
		ExchangeName,
		string(event.Type),
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    event.OccurredAt,
			Type:         string(event.Type),
		},
	)
}

// IsConnected reports whether the broker connection is still open.
func (s *AMQPSink) IsConnected() bool {
	return s.conn != nil && !s.conn.IsClosed()
}

func (s *AMQPSink) Close() {
	if s.channel != nil {
		_ = s.channel.Close()
	}
	if s.conn != nil {
		_ = s.conn.Close()
	}
}
