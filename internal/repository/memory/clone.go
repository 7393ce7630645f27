// Package memory holds map-backed repositories for development and tests.
// Stored aggregates are copied in and out so callers never share state with
// the store.
package memory

import (
	"github.com/pawprint-grooming/service-booking/internal/domain/alert"
	"github.com/pawprint-grooming/service-booking/internal/domain/booking"
	"github.com/pawprint-grooming/service-booking/internal/domain/catalog"
	"github.com/pawprint-grooming/service-booking/internal/domain/customer"
	"github.com/pawprint-grooming/service-booking/internal/domain/pet"
)

func cloneCustomer(c *customer.Customer) *customer.Customer {
	var addr *customer.Address
	if c.Address() != nil {
		a := *c.Address()
		addr = &a
	}
	var ec *customer.EmergencyContact
	if c.EmergencyContact() != nil {
		e := *c.EmergencyContact()
		ec = &e
	}
	return customer.Reconstruct(
		c.ID(), c.Email(), c.GivenName(), c.FamilyName(), c.Phone(),
		addr, ec, c.MarketingConsent(), c.Version(), c.CreatedAt(), c.UpdatedAt(),
	)
}

func clonePet(p *pet.Pet) *pet.Pet {
	merged := p.MergedIntoID()
	if merged != nil {
		id := *merged
		merged = &id
	}
	return pet.Reconstruct(
		p.ID(), p.OwnerID(), p.Name(), p.Breed(), p.Size(), p.Notes(),
		p.Status(), merged, p.Version(), p.CreatedAt(), p.UpdatedAt(),
	)
}

func cloneService(s *catalog.Service) *catalog.Service {
	return catalog.Reconstruct(
		s.Code(), s.Name(), s.DurationMinutes(), s.PriceCents(), s.Category(), s.IsActive(), s.UpdatedAt(),
	)
}

func cloneAppointment(a *booking.Appointment) *booking.Appointment {
	prefs := a.Preferences()
	prefs.NotificationChannels = append([]string(nil), prefs.NotificationChannels...)
	return booking.ReconstructAppointment(
		a.ID(), a.Code(), a.CustomerID(), a.PetID(), a.Date(), a.Start(), a.DurationMinutes(),
		a.Items(), a.Status(), a.Notes(), prefs,
		copyTime(a.ConfirmedAt()), copyTime(a.CompletedAt()), copyTime(a.CancelledAt()),
		a.CancelReason(), a.Version(), a.CreatedAt(), a.UpdatedAt(),
	)
}

func cloneAlert(a *alert.Alert) *alert.Alert {
	return alert.Reconstruct(a.ID(), a.Kind(), a.BookingCode(), a.Message(), a.CreatedAt(), copyTime(a.AcknowledgedAt()))
}

func paginate[T any](items []T, page, limit int) []T {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		return items
	}
	offset := (page - 1) * limit
	if offset >= len(items) {
		return []T{}
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

func copyTime[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
