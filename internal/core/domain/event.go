package domain

import "time"

// EventType doubles as the routing key on the events exchange.
type EventType string

const (
	EventUserRegistered EventType = "user.registered"
	EventLeadConverted  EventType = "lead.converted"
)

// Event is a domain notification emitted after a state change has been persisted.
type Event struct {
	Type       EventType `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
	UserID     string    `json:"user_id,omitempty"`
	ClientID   string    `json:"client_id,omitempty"`
	Email      string    `json:"email"`
	Name       string    `json:"name"`
	Role       Role      `json:"role,omitempty"`
}

// Key is the ordering key used to shard delivery.
func (e Event) Key() string {
	return e.Email
}
