package application

import (
	"time"

	"github.com/google/uuid"

	"github.com/pawprint-grooming/service-booking/internal/domain/alert"
	"github.com/pawprint-grooming/service-booking/internal/domain/booking"
	"github.com/pawprint-grooming/service-booking/internal/domain/catalog"
	"github.com/pawprint-grooming/service-booking/internal/domain/customer"
	"github.com/pawprint-grooming/service-booking/internal/domain/pet"
	"github.com/pawprint-grooming/service-booking/internal/domain/schedule"
)

// CustomerDTO is the operator-facing view of a customer.
type CustomerDTO struct {
	ID               uuid.UUID                  `json:"id"`
	Email            string                     `json:"email"`
	GivenName        string                     `json:"given_name"`
	FamilyName       string                     `json:"family_name"`
	Phone            string                     `json:"phone"`
	Address          *customer.Address          `json:"address,omitempty"`
	EmergencyContact *customer.EmergencyContact `json:"emergency_contact,omitempty"`
	MarketingConsent bool                       `json:"marketing_consent"`
	Version          int64                      `json:"version"`
	CreatedAt        time.Time                  `json:"created_at"`
	UpdatedAt        time.Time                  `json:"updated_at"`
}

// PetDTO is the API representation of a pet.
type PetDTO struct {
	ID           uuid.UUID  `json:"id"`
	OwnerID      uuid.UUID  `json:"owner_id"`
	Name         string     `json:"name"`
	Breed        string     `json:"breed"`
	Size         string     `json:"size"`
	Notes        string     `json:"notes,omitempty"`
	Status       string     `json:"status"`
	MergedIntoID *uuid.UUID `json:"merged_into_id,omitempty"`
	Version      int64      `json:"version"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// ServiceDTO is a catalog entry.
type ServiceDTO struct {
	Code            string    `json:"code"`
	Name            string    `json:"name"`
	DurationMinutes int       `json:"duration_minutes"`
	PriceCents      int64     `json:"price_cents"`
	Category        string    `json:"category"`
	Active          bool      `json:"active"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// AppointmentDTO is the response representation of an appointment.
type AppointmentDTO struct {
	ID              uuid.UUID           `json:"id"`
	BookingCode     string              `json:"booking_code"`
	CustomerID      uuid.UUID           `json:"customer_id"`
	PetID           uuid.UUID           `json:"pet_id"`
	Date            string              `json:"date"`
	Time            string              `json:"time"`
	EndTime         string              `json:"end_time"`
	DurationMinutes int                 `json:"duration_minutes"`
	Status          string              `json:"status"`
	Services        []booking.LineItem  `json:"services"`
	TotalPriceCents int64               `json:"total_price_cents"`
	Notes           string              `json:"notes,omitempty"`
	Preferences     booking.Preferences `json:"preferences"`
	ConfirmedAt     *time.Time          `json:"confirmed_at,omitempty"`
	CompletedAt     *time.Time          `json:"completed_at,omitempty"`
	CancelledAt     *time.Time          `json:"cancelled_at,omitempty"`
	CancelReason    string              `json:"cancel_reason,omitempty"`
	Version         int64               `json:"version"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
}

// AlertDTO is an operator alert.
type AlertDTO struct {
	ID             uuid.UUID  `json:"id"`
	Kind           string     `json:"kind"`
	BookingCode    string     `json:"booking_code,omitempty"`
	Message        string     `json:"message"`
	CreatedAt      time.Time  `json:"created_at"`
	AcknowledgedAt *time.Time `json:"acknowledged_at,omitempty"`
}

func toCustomerDTO(c *customer.Customer) CustomerDTO {
	return CustomerDTO{
		ID:               c.ID(),
		Email:            c.Email(),
		GivenName:        c.GivenName(),
		FamilyName:       c.FamilyName(),
		Phone:            c.Phone(),
		Address:          c.Address(),
		EmergencyContact: c.EmergencyContact(),
		MarketingConsent: c.MarketingConsent(),
		Version:          c.Version(),
		CreatedAt:        c.CreatedAt(),
		UpdatedAt:        c.UpdatedAt(),
	}
}

func toPetDTO(p *pet.Pet) PetDTO {
	return PetDTO{
		ID:           p.ID(),
		OwnerID:      p.OwnerID(),
		Name:         p.Name(),
		Breed:        p.Breed(),
		Size:         string(p.Size()),
		Notes:        p.Notes(),
		Status:       string(p.Status()),
		MergedIntoID: p.MergedIntoID(),
		Version:      p.Version(),
		CreatedAt:    p.CreatedAt(),
		UpdatedAt:    p.UpdatedAt(),
	}
}

func toServiceDTO(s *catalog.Service) ServiceDTO {
	return ServiceDTO{
		Code:            s.Code(),
		Name:            s.Name(),
		DurationMinutes: s.DurationMinutes(),
		PriceCents:      s.PriceCents(),
		Category:        string(s.Category()),
		Active:          s.IsActive(),
		UpdatedAt:       s.UpdatedAt(),
	}
}

func toAppointmentDTO(a *booking.Appointment) AppointmentDTO {
	return AppointmentDTO{
		ID:              a.ID(),
		BookingCode:     a.Code(),
		CustomerID:      a.CustomerID(),
		PetID:           a.PetID(),
		Date:            a.Date().Format(schedule.DateLayout),
		Time:            a.Start().String(),
		EndTime:         a.End().String(),
		DurationMinutes: a.DurationMinutes(),
		Status:          a.Status().String(),
		Services:        a.Items(),
		TotalPriceCents: a.TotalPriceCents(),
		Notes:           a.Notes(),
		Preferences:     a.Preferences(),
		ConfirmedAt:     a.ConfirmedAt(),
		CompletedAt:     a.CompletedAt(),
		CancelledAt:     a.CancelledAt(),
		CancelReason:    a.CancelReason(),
		Version:         a.Version(),
		CreatedAt:       a.CreatedAt(),
		UpdatedAt:       a.UpdatedAt(),
	}
}

func toAppointmentDTOs(list []*booking.Appointment) []AppointmentDTO {
	dtos := make([]AppointmentDTO, len(list))
	for i, a := range list {
		dtos[i] = toAppointmentDTO(a)
	}
	return dtos
}

func toAlertDTO(a *alert.Alert) AlertDTO {
	return AlertDTO{
		ID:             a.ID(),
		Kind:           string(a.Kind()),
		BookingCode:    a.BookingCode(),
		Message:        a.Message(),
		CreatedAt:      a.CreatedAt(),
		AcknowledgedAt: a.AcknowledgedAt(),
	}
}
