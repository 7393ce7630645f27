package booking

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"

	"github.com/pawprint-grooming/service-booking/internal/domain"
	"github.com/pawprint-grooming/service-booking/internal/domain/schedule"
)

const bookingCodeChars = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// Preferences are passed through from the request and not interpreted by the booking path.
type Preferences struct {
	MarketingConsent     bool     `json:"marketing_consent"`
	NotificationChannels []string `json:"notification_channels,omitempty"`
}

// Appointment is the aggregate root for a booked grooming visit.
type Appointment struct {
	id              uuid.UUID
	code            string
	customerID      uuid.UUID
	petID           uuid.UUID
	date            time.Time
	start           schedule.TimeOfDay
	durationMinutes int
	items           []LineItem
	status          Status
	notes           string
	preferences     Preferences

	confirmedAt  *time.Time
	completedAt  *time.Time
	cancelledAt  *time.Time
	cancelReason string

	version   int64
	createdAt time.Time
	updatedAt time.Time
}

// GenerateBookingCode creates a booking code in the format "BK-XXXXXX".
func GenerateBookingCode() (string, error) {
	result := make([]byte, 6)
	for i := range result {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(bookingCodeChars))))
		if err != nil {
			return "", fmt.Errorf("failed to generate booking code: %w", err)
		}
		result[i] = bookingCodeChars[n.Int64()]
	}
	return "BK-" + string(result), nil
}

// IsBookingCode reports whether s has the shape of a booking code.
func IsBookingCode(s string) bool {
	if len(s) != 9 || s[:3] != "BK-" {
		return false
	}
	for i := 3; i < len(s); i++ {
		found := false
		for j := 0; j < len(bookingCodeChars); j++ {
			if s[i] == bookingCodeChars[j] {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// NewAppointment creates an appointment in the given initial status. The total
// duration is fixed here from the line items and never recomputed.
func NewAppointment(
	customerID, petID uuid.UUID,
	date time.Time,
	start schedule.TimeOfDay,
	items []LineItem,
	initial Status,
	preferences Preferences,
	notes string,
) (*Appointment, error) {
	if customerID == uuid.Nil {
		return nil, domain.NewValidationError("customer ID is required")
	}
	if petID == uuid.Nil {
		return nil, domain.NewValidationError("pet ID is required")
	}
	if len(items) == 0 {
		return nil, domain.NewValidationError("at least one service is required")
	}
	for _, li := range items {
		if li.Quantity < 1 {
			return nil, domain.NewValidationError(fmt.Sprintf("quantity for %s must be at least 1", li.ServiceCode))
		}
	}
	if !initial.IsInitial() {
		return nil, domain.NewValidationError(fmt.Sprintf("appointments cannot start as %s", initial))
	}

	code, err := GenerateBookingCode()
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	a := &Appointment{
		id:              uuid.New(),
		code:            code,
		customerID:      customerID,
		petID:           petID,
		date:            schedule.CivilDate(date),
		start:           start,
		durationMinutes: QuoteFor(items).DurationMinutes,
		items:           append([]LineItem(nil), items...),
		status:          initial,
		notes:           notes,
		preferences:     preferences,
		version:         1,
		createdAt:       now,
		updatedAt:       now,
	}
	if initial == StatusConfirmed {
		a.confirmedAt = &now
	}
	return a, nil
}

// ReconstructAppointment rebuilds an Appointment from persistence data (no validation).
func ReconstructAppointment(
	id uuid.UUID,
	code string,
	customerID, petID uuid.UUID,
	date time.Time,
	start schedule.TimeOfDay,
	durationMinutes int,
	items []LineItem,
	status Status,
	notes string,
	preferences Preferences,
	confirmedAt, completedAt, cancelledAt *time.Time,
	cancelReason string,
	version int64,
	createdAt, updatedAt time.Time,
) *Appointment {
	return &Appointment{
		id:              id,
		code:            code,
		customerID:      customerID,
		petID:           petID,
		date:            date,
		start:           start,
		durationMinutes: durationMinutes,
		items:           items,
		status:          status,
		notes:           notes,
		preferences:     preferences,
		confirmedAt:     confirmedAt,
		completedAt:     completedAt,
		cancelledAt:     cancelledAt,
		cancelReason:    cancelReason,
		version:         version,
		createdAt:       createdAt,
		updatedAt:       updatedAt,
	}
}

// --- Getters ---

// ID returns the appointment's unique identifier.
func (a *Appointment) ID() uuid.UUID { return a.id }

// Code returns the externally visible booking code.
func (a *Appointment) Code() string { return a.code }

// CustomerID returns the owning customer's ID.
func (a *Appointment) CustomerID() uuid.UUID { return a.customerID }

// PetID returns the groomed pet's ID.
func (a *Appointment) PetID() uuid.UUID { return a.petID }

// Date returns the civil date of the appointment.
func (a *Appointment) Date() time.Time { return a.date }

// Start returns the start time of day.
func (a *Appointment) Start() schedule.TimeOfDay { return a.start }

// End returns the exclusive end time of day.
func (a *Appointment) End() schedule.TimeOfDay { return a.start.Add(a.durationMinutes) }

// DurationMinutes returns the total duration cached at booking time.
func (a *Appointment) DurationMinutes() int { return a.durationMinutes }

// Items returns a copy of the line items.
func (a *Appointment) Items() []LineItem { return append([]LineItem(nil), a.items...) }

// Status returns the current status.
func (a *Appointment) Status() Status { return a.status }

// Notes returns free-text notes from the customer.
func (a *Appointment) Notes() string { return a.notes }

// Preferences returns the pass-through customer preferences.
func (a *Appointment) Preferences() Preferences { return a.preferences }

func (a *Appointment) ConfirmedAt() *time.Time { return a.confirmedAt }
func (a *Appointment) CompletedAt() *time.Time { return a.completedAt }
func (a *Appointment) CancelledAt() *time.Time { return a.cancelledAt }
func (a *Appointment) CancelReason() string    { return a.cancelReason }

// Version returns the entity version for optimistic locking.
func (a *Appointment) Version() int64 { return a.version }

// CreatedAt returns the creation timestamp.
func (a *Appointment) CreatedAt() time.Time { return a.createdAt }

// UpdatedAt returns the last-updated timestamp.
func (a *Appointment) UpdatedAt() time.Time { return a.updatedAt }

// TotalPriceCents sums the snapshot prices.
func (a *Appointment) TotalPriceCents() int64 { return QuoteFor(a.items).PriceCents }

// Occupant returns the schedule reference for this appointment.
func (a *Appointment) Occupant(petName string) schedule.Occupant {
	return schedule.Occupant{
		AppointmentID:   a.id,
		BookingCode:     a.code,
		Start:           a.start,
		DurationMinutes: a.durationMinutes,
		PetName:         petName,
		ServiceNames:    ServiceNames(a.items),
	}
}

// --- Behavior ---

// TransitionTo moves the appointment to target. A pair outside the transition
// table fails with InvalidTransitionError and leaves the appointment unchanged.
func (a *Appointment) TransitionTo(target Status, reason string) error {
	if !a.status.CanTransitionTo(target) {
		return domain.NewInvalidTransitionError(string(a.status), string(target))
	}
	now := time.Now().UTC()
	switch target {
	case StatusConfirmed:
		a.confirmedAt = &now
	case StatusCompleted:
		a.completedAt = &now
	case StatusCancelled:
		a.cancelledAt = &now
		a.cancelReason = reason
	}
	a.status = target
	a.updatedAt = now
	return nil
}

// IncrementVersion bumps the version for optimistic locking.
func (a *Appointment) IncrementVersion() {
	a.version++
	a.updatedAt = time.Now().UTC()
}
