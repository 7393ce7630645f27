package application

import (
	"context"
	"time"
)

// Kafka topics and CloudEvent types emitted by the booking service.
const (
	TopicBookingEvents = "booking.events"
	TopicLeadEvents    = "lead.events"

	EventBookingCreated   = "booking.created"
	EventBookingConfirmed = "booking.confirmed"
	EventBookingCompleted = "booking.completed"
	EventBookingCancelled = "booking.cancelled"
	EventLeadSubmitted    = "lead.submitted"
)

// Notification is one outbound event for the notification collaborator.
type Notification struct {
	Topic       string
	Type        string
	BookingCode string
	Data        interface{}
}

// Notifier hands notifications off for asynchronous delivery. Enqueue must
// not block on the broker and never reports delivery failure to the caller.
type Notifier interface {
	Enqueue(ctx context.Context, n Notification)
}

// Cache stores JSON-encoded values and integer counters. Get reports false on
// a miss; Counter reports zero for a counter that was never incremented.
type Cache interface {
	Get(ctx context.Context, key string, dst interface{}) (bool, error)
	Save(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Counter(ctx context.Context, key string) (int64, error)
	Incr(ctx context.Context, key string) (int64, error)
}

// NopNotifier drops every notification.
type NopNotifier struct{}

func (NopNotifier) Enqueue(context.Context, Notification) {}
