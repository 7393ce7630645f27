package alert

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Kind classifies an operator alert.
type Kind string

const (
	// KindNotificationFailed: publishing the event failed after every retry.
	KindNotificationFailed Kind = "notification_failed"
	// KindNotificationDropped: the dispatch queue was full.
	KindNotificationDropped Kind = "notification_dropped"
	// KindNotificationUndeliverable: the notification service reported it could not deliver.
	KindNotificationUndeliverable Kind = "notification_undeliverable"
)

// Alert is an operator-facing notice that something around a booking went wrong.
// Alerts never affect the booking itself.
type Alert struct {
	id             uuid.UUID
	kind           Kind
	bookingCode    string
	message        string
	createdAt      time.Time
	acknowledgedAt *time.Time
}

// New creates an unacknowledged alert.
func New(kind Kind, bookingCode, message string) *Alert {
	return &Alert{
		id:          uuid.New(),
		kind:        kind,
		bookingCode: bookingCode,
		message:     message,
		createdAt:   time.Now().UTC(),
	}
}

// Reconstruct rebuilds an Alert from persistence data.
func Reconstruct(id uuid.UUID, kind Kind, bookingCode, message string, createdAt time.Time, acknowledgedAt *time.Time) *Alert {
	return &Alert{
		id:             id,
		kind:           kind,
		bookingCode:    bookingCode,
		message:        message,
		createdAt:      createdAt,
		acknowledgedAt: acknowledgedAt,
	}
}

func (a *Alert) ID() uuid.UUID              { return a.id }
func (a *Alert) Kind() Kind                 { return a.kind }
func (a *Alert) BookingCode() string        { return a.bookingCode }
func (a *Alert) Message() string            { return a.message }
func (a *Alert) CreatedAt() time.Time       { return a.createdAt }
func (a *Alert) AcknowledgedAt() *time.Time { return a.acknowledgedAt }

// IsAcknowledged reports whether an operator has seen the alert.
func (a *Alert) IsAcknowledged() bool { return a.acknowledgedAt != nil }

// Acknowledge marks the alert as seen. Acknowledging twice keeps the first time.
func (a *Alert) Acknowledge() {
	if a.acknowledgedAt != nil {
		return
	}
	now := time.Now().UTC()
	a.acknowledgedAt = &now
}

// Repository persists operator alerts.
type Repository interface {
	Save(ctx context.Context, a *Alert) error
	FindByID(ctx context.Context, id uuid.UUID) (*Alert, error)
	List(ctx context.Context, unacknowledgedOnly bool, page, limit int) ([]*Alert, int64, error)
	Update(ctx context.Context, a *Alert) error
}
