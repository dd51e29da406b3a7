package domain

import (
	"context"
	"time"
)

// Broker topics for RSVP lifecycle notifications.
const (
	TopicRSVPCreated   = "rsvp.created"
	TopicRSVPCancelled = "rsvp.cancelled"
	TopicRSVPCheckedIn = "rsvp.checked_in"
)

// RSVPLifecycleMessage is published after an RSVP changes state.
type RSVPLifecycleMessage struct {
	RSVPID       string     `json:"rsvp_id"`
	EventID      string     `json:"event_id"`
	UserID       string     `json:"user_id"`
	TicketTypeID string     `json:"ticket_type_id"`
	Status       RSVPStatus `json:"status"`
	OccurredAt   time.Time  `json:"occurred_at"`
}

// EventPublisher delivers messages to a broker. Delivery is best effort.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, message any) error
}
