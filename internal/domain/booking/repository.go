package booking

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrDuplicateBookingCode is returned by BookSlot when the generated code is already taken.
var ErrDuplicateBookingCode = errors.New("booking code already in use")

// DecideFunc inspects the day's slot-holding appointments and returns the
// appointment to insert, or an error to abort without writing.
type DecideFunc func(existing []*Appointment) (*Appointment, error)

// BookingRepository defines the persistence contract for appointments.
type BookingRepository interface {
	// FindByCode retrieves an appointment by its booking code.
	FindByCode(ctx context.Context, code string) (*Appointment, error)

	// ListByDate returns the date's appointments ordered by start time.
	ListByDate(ctx context.Context, date time.Time, includeCancelled bool) ([]*Appointment, error)

	// FindByCustomerID retrieves a customer's appointments with pagination, newest first.
	FindByCustomerID(ctx context.Context, customerID uuid.UUID, page, limit int) ([]*Appointment, int64, error)

	// ListAll retrieves all appointments with pagination (admin).
	ListAll(ctx context.Context, page, limit int) ([]*Appointment, int64, error)

	// BookSlot holds an exclusive lock on date while it loads the day's
	// non-cancelled appointments, calls decide, and inserts the result with
	// its line items. Concurrent callers for the same date are serialized.
	BookSlot(ctx context.Context, date time.Time, decide DecideFunc) (*Appointment, error)

	// Update persists a status change with optimistic locking.
	Update(ctx context.Context, a *Appointment) error
}
