// Package notify turns domain events from the broker into emails.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
	"github.com/wneessen/go-mail"

	"github.com/minicrm/crm-api/internal/core/domain"
)

// ErrBadPayload marks a message that can never be delivered and must not be
// requeued.
var ErrBadPayload = errors.New("bad event payload")

// Sender is the part of *mail.Client the notifier uses.
type Sender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

type Notifier struct {
	sender Sender
	from   string
	log    zerolog.Logger
}

func New(sender Sender, from string, log zerolog.Logger) *Notifier {
	return &Notifier{sender: sender, from: from, log: log}
}

// Compose builds the email for event. A nil message means the event type
// carries no notification.
func (n *Notifier) Compose(event domain.Event) (*mail.Msg, error) {
	var subject, body string
	name := strings.TrimSpace(event.Name)
	if name == "" {
		name = event.Email
	}

	switch event.Type {
	case domain.EventUserRegistered:
		subject = "Welcome to the CRM"
		body = fmt.Sprintf("Hello %s,\n\nAn account has been created for you with the role %q.\n", name, event.Role)
	case domain.EventLeadConverted:
		subject = "You are now a client"
		body = fmt.Sprintf("Hello %s,\n\nThanks for choosing us. Your account now has client access, so you can follow your projects once they are set up.\n", name)
	default:
		return nil, nil
	}

	msg := mail.NewMsg()
	if err := msg.From(n.from); err != nil {
		return nil, fmt.Errorf("set sender: %w", err)
	}
	if err := msg.To(event.Email); err != nil {
		return nil, fmt.Errorf("%w: recipient %q: %v", ErrBadPayload, event.Email, err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)
	return msg, nil
}

// Handle decodes one message body and sends the matching email.
func (n *Notifier) Handle(ctx context.Context, body []byte) error {
	var event domain.Event
	if err := json.Unmarshal(body, &event); err != nil {
		return fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	if event.Type == "" || event.Email == "" {
		return fmt.Errorf("%w: missing type or email", ErrBadPayload)
	}

	msg, err := n.Compose(event)
	if err != nil {
		return err
	}
	if msg == nil {
		n.log.Debug().Str("type", string(event.Type)).Msg("no notification for event type")
		return nil
	}

	if err := n.sender.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	n.log.Info().Str("type", string(event.Type)).Str("email", event.Email).Msg("notification sent")
	return nil
}

// Consume processes deliveries until ctx is cancelled or the channel closes.
// Bad payloads are dropped; send failures are requeued.
func (n *Notifier) Consume(ctx context.Context, deliveries <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-deliveries:
			if !ok {
				n.log.Warn().Msg("delivery channel closed")
				return
			}
			n.settle(d, n.Handle(ctx, d.Body))
		}
	}
}

func (n *Notifier) settle(d amqp.Delivery, err error) {
	switch {
	case err == nil:
		_ = d.Ack(false)
	case errors.Is(err, ErrBadPayload):
		n.log.Error().Err(err).Msg("dropping undeliverable event")
		_ = d.Nack(false, false)
	default:
		n.log.Error().Err(err).Msg("notification failed, requeueing")
		_ = d.Nack(false, true)
	}
}
