package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pawprint-grooming/service-booking/internal/domain"
	bookingDomain "github.com/pawprint-grooming/service-booking/internal/domain/booking"
	"github.com/pawprint-grooming/service-booking/internal/domain/customer"
	"github.com/pawprint-grooming/service-booking/internal/domain/schedule"
	"github.com/pawprint-grooming/service-booking/internal/platform/metrics"
	"github.com/pawprint-grooming/service-booking/internal/platform/validation"
)

// maxCodeAttempts bounds booking code regeneration after a uniqueness clash.
const maxCodeAttempts = 5

// PetRequest describes the pet being booked.
type PetRequest struct {
	Name  string `json:"name" validate:"required,max=100"`
	Breed string `json:"breed" validate:"required,max=100"`
	Size  string `json:"size" validate:"omitempty,oneof=small medium large"`
	Notes string `json:"notes" validate:"max=1000"`
}

// OwnerRequest describes the person booking.
type OwnerRequest struct {
	GivenName        string                     `json:"given_name" validate:"required,max=100"`
	FamilyName       string                     `json:"family_name" validate:"required,max=100"`
	Email            string                     `json:"email" validate:"required,email,max=254"`
	Phone            string                     `json:"phone" validate:"required,max=40"`
	Address          *customer.Address          `json:"address"`
	EmergencyContact *customer.EmergencyContact `json:"emergency_contact"`
}

func (o OwnerRequest) toInput(marketingConsent bool) CustomerInput {
	return CustomerInput{
		Email:            o.Email,
		GivenName:        o.GivenName,
		FamilyName:       o.FamilyName,
		Phone:            o.Phone,
		Address:          o.Address,
		EmergencyContact: o.EmergencyContact,
		MarketingConsent: marketingConsent,
	}
}

// CreateBookingRequest holds the data needed to book an appointment.
type CreateBookingRequest struct {
	Services    []ServiceSelection        `json:"services" validate:"required,min=1,dive"`
	Date        string                    `json:"date" validate:"required,date"`
	Time        string                    `json:"time" validate:"required,clock"`
	Pet         PetRequest                `json:"pet"`
	Owner       OwnerRequest              `json:"owner"`
	Preferences bookingDomain.Preferences `json:"preferences"`
	Notes       string                    `json:"notes" validate:"max=2000"`
}

// CustomerSummary is the customer block of a confirmation.
type CustomerSummary struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
	Phone string    `json:"phone"`
}

// PetSummary is the pet block of a confirmation.
type PetSummary struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Breed string    `json:"breed"`
	Size  string    `json:"size"`
}

// BookingConfirmation is returned by a successful CreateBooking.
type BookingConfirmation struct {
	AppointmentDTO
	Customer CustomerSummary `json:"customer"`
	Pet      PetSummary      `json:"pet"`
}

// BookingCreatedEvent is the booking.created payload for the notification collaborator.
type BookingCreatedEvent struct {
	BookingCode     string                    `json:"booking_code"`
	Customer        CustomerSummary           `json:"customer"`
	Pet             PetSummary                `json:"pet"`
	Date            string                    `json:"date"`
	Time            string                    `json:"time"`
	DurationMinutes int                       `json:"duration_minutes"`
	Services        []string                  `json:"services"`
	TotalPriceCents int64                     `json:"total_price_cents"`
	Preferences     bookingDomain.Preferences `json:"preferences"`
}

// BookingStatusChangedEvent is the payload of booking.<status> events.
type BookingStatusChangedEvent struct {
	BookingCode string    `json:"booking_code"`
	From        string    `json:"from"`
	To          string    `json:"to"`
	Date        string    `json:"date"`
	Time        string    `json:"time"`
	Reason      string    `json:"reason,omitempty"`
	CustomerID  uuid.UUID `json:"customer_id"`
	ChangedAt   time.Time `json:"changed_at"`
}

// UpdateStatusRequest is an operator status change.
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending confirmed completed cancelled"`
	Reason string `json:"reason" validate:"max=500"`
}

// BookingService is the application service orchestrating booking use cases.
type BookingService struct {
	repo         bookingDomain.BookingRepository
	catalog      *CatalogService
	parties      *PartyRegistry
	availability *AvailabilityService
	notifier     Notifier
	metrics      *metrics.BookingMetrics
	logger       *zap.Logger
	now          func() time.Time
}

// NewBookingService creates a new BookingService.
func NewBookingService(
	repo bookingDomain.BookingRepository,
	catalog *CatalogService,
	parties *PartyRegistry,
	availability *AvailabilityService,
	notifier Notifier,
	m *metrics.BookingMetrics,
	logger *zap.Logger,
) *BookingService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &BookingService{
		repo:         repo,
		catalog:      catalog,
		parties:      parties,
		availability: availability,
		notifier:     notifier,
		metrics:      m,
		logger:       logger,
		now:          time.Now,
	}
}

// WithClock replaces the wall clock used for the past-date check.
func (s *BookingService) WithClock(now func() time.Time) *BookingService {
	s.now = now
	return s
}

// CreateBooking validates and prices the request, resolves the customer and
// pet, then checks the slot and inserts the appointment under the date lock.
// Nothing is written to the appointment tables unless every check passes.
func (s *BookingService) CreateBooking(ctx context.Context, req CreateBookingRequest) (*BookingConfirmation, error) {
	result, err := s.createBooking(ctx, req)
	s.metrics.ObserveBooking(bookingOutcome(err))
	return result, err
}

func (s *BookingService) createBooking(ctx context.Context, req CreateBookingRequest) (*BookingConfirmation, error) {
	date, start, err := s.validateCreate(req)
	if err != nil {
		return nil, err
	}

	items, quote, err := s.catalog.Price(ctx, req.Services)
	if err != nil {
		return nil, err
	}

	cust, err := s.parties.ResolveCustomer(ctx, req.Owner.toInput(req.Preferences.MarketingConsent))
	if err != nil {
		return nil, err
	}
	pt, err := s.parties.ResolvePet(ctx, PetInput{
		CustomerID: cust.ID(),
		Name:       req.Pet.Name,
		Breed:      req.Pet.Breed,
		Size:       req.Pet.Size,
		Notes:      req.Pet.Notes,
	})
	if err != nil {
		return nil, err
	}

	rules := s.availability.Rules()
	decide := func(existing []*bookingDomain.Appointment) (*bookingDomain.Appointment, error) {
		day := schedule.MarkOccupancy(schedule.GenerateDaySchedule(date, rules), Occupants(existing, nil))
		if err := day.CheckRange(start, quote.DurationMinutes); err != nil {
			return nil, err
		}
		return bookingDomain.NewAppointment(cust.ID(), pt.ID(), date, start, items,
			bookingDomain.StatusConfirmed, req.Preferences, req.Notes)
	}

	var appt *bookingDomain.Appointment
	for attempt := 1; ; attempt++ {
		appt, err = s.repo.BookSlot(ctx, date, decide)
		if !errors.Is(err, bookingDomain.ErrDuplicateBookingCode) {
			break
		}
		s.logger.Warn("booking code collision, regenerating", zap.Int("attempt", attempt))
		if attempt >= maxCodeAttempts {
			return nil, domain.NewStorageError("allocate booking code", err)
		}
	}
	if err != nil {
		return nil, err
	}

	s.availability.Invalidate(ctx, date)

	custSummary := CustomerSummary{ID: cust.ID(), Name: cust.FullName(), Email: cust.Email(), Phone: cust.Phone()}
	petSummary := PetSummary{ID: pt.ID(), Name: pt.Name(), Breed: pt.Breed(), Size: string(pt.Size())}

	s.notifier.Enqueue(ctx, Notification{
		Topic:       TopicBookingEvents,
		Type:        EventBookingCreated,
		BookingCode: appt.Code(),
		Data: BookingCreatedEvent{
			BookingCode:     appt.Code(),
			Customer:        custSummary,
			Pet:             petSummary,
			Date:            appt.Date().Format(schedule.DateLayout),
			Time:            appt.Start().String(),
			DurationMinutes: appt.DurationMinutes(),
			Services:        bookingDomain.ServiceNames(appt.Items()),
			TotalPriceCents: appt.TotalPriceCents(),
			Preferences:     appt.Preferences(),
		},
	})

	s.logger.Info("booking created",
		zap.String("booking_code", appt.Code()),
		zap.String("date", appt.Date().Format(schedule.DateLayout)),
		zap.String("time", appt.Start().String()),
		zap.Int("duration_minutes", appt.DurationMinutes()),
	)

	return &BookingConfirmation{
		AppointmentDTO: toAppointmentDTO(appt),
		Customer:       custSummary,
		Pet:            petSummary,
	}, nil
}

func (s *BookingService) validateCreate(req CreateBookingRequest) (time.Time, schedule.TimeOfDay, error) {
	if err := validation.Struct(req); err != nil {
		return time.Time{}, 0, err
	}
	date, err := schedule.ParseDate(req.Date)
	if err != nil {
		return time.Time{}, 0, domain.NewFieldValidationError(map[string]string{"date": "date must be a date in YYYY-MM-DD format"})
	}
	start, err := schedule.ParseTimeOfDay(req.Time)
	if err != nil {
		return time.Time{}, 0, domain.NewFieldValidationError(map[string]string{"time": "time must be a time in HH:MM format"})
	}
	if date.Before(schedule.CivilDate(s.now())) {
		return time.Time{}, 0, domain.NewFieldValidationError(map[string]string{"date": "date must not be in the past"})
	}
	return date, start, nil
}

// UpdateStatus applies an operator transition to the appointment with code.
func (s *BookingService) UpdateStatus(ctx context.Context, code string, req UpdateStatusRequest) (*AppointmentDTO, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	target, err := bookingDomain.ParseStatus(req.Status)
	if err != nil {
		return nil, domain.NewFieldValidationError(map[string]string{"status": err.Error()})
	}

	appt, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	from := appt.Status()
	if err := appt.TransitionTo(target, req.Reason); err != nil {
		return nil, err
	}
	appt.IncrementVersion()

	if err := s.repo.Update(ctx, appt); err != nil {
		return nil, err
	}

	s.metrics.ObserveTransition(from.String(), target.String())
	s.availability.Invalidate(ctx, appt.Date())

	s.notifier.Enqueue(ctx, Notification{
		Topic:       TopicBookingEvents,
		Type:        "booking." + target.String(),
		BookingCode: appt.Code(),
		Data: BookingStatusChangedEvent{
			BookingCode: appt.Code(),
			From:        from.String(),
			To:          target.String(),
			Date:        appt.Date().Format(schedule.DateLayout),
			Time:        appt.Start().String(),
			Reason:      appt.CancelReason(),
			CustomerID:  appt.CustomerID(),
			ChangedAt:   appt.UpdatedAt(),
		},
	})

	s.logger.Info("booking status changed",
		zap.String("booking_code", code),
		zap.String("from", from.String()),
		zap.String("to", target.String()),
	)
	result := toAppointmentDTO(appt)
	return &result, nil
}

// GetBooking returns the appointment with the given booking code.
func (s *BookingService) GetBooking(ctx context.Context, code string) (*AppointmentDTO, error) {
	if !bookingDomain.IsBookingCode(code) {
		return nil, domain.NewNotFoundError("Appointment", code)
	}
	appt, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	result := toAppointmentDTO(appt)
	return &result, nil
}

// ListByDate returns every appointment on date, cancelled ones included, ordered by start.
func (s *BookingService) ListByDate(ctx context.Context, dateStr string) ([]AppointmentDTO, error) {
	date, err := parseDateField(dateStr)
	if err != nil {
		return nil, err
	}
	appts, err := s.repo.ListByDate(ctx, date, true)
	if err != nil {
		return nil, err
	}
	return toAppointmentDTOs(appts), nil
}

// ListByCustomer returns a page of the customer's appointments, newest first.
func (s *BookingService) ListByCustomer(ctx context.Context, customerID uuid.UUID, page, limit int) (*domain.PaginatedResult[AppointmentDTO], error) {
	appts, total, err := s.repo.FindByCustomerID(ctx, customerID, page, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list customer bookings: %w", err)
	}
	result := domain.NewPaginatedResult(toAppointmentDTOs(appts), total, page, limit)
	return &result, nil
}

// ListAll returns a page of all appointments (admin).
func (s *BookingService) ListAll(ctx context.Context, page, limit int) (*domain.PaginatedResult[AppointmentDTO], error) {
	appts, total, err := s.repo.ListAll(ctx, page, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	result := domain.NewPaginatedResult(toAppointmentDTOs(appts), total, page, limit)
	return &result, nil
}

func bookingOutcome(err error) string {
	if err == nil {
		return "created"
	}
	var (
		invalid  *domain.ValidationError
		unknown  *domain.UnknownServiceError
		inactive *domain.InactiveServiceError
		slot     *domain.SlotUnavailableError
	)
	switch {
	case errors.As(err, &invalid):
		return "invalid"
	case errors.As(err, &unknown), errors.As(err, &inactive):
		return "bad_service"
	case errors.As(err, &slot):
		return "slot_unavailable"
	default:
		return "error"
	}
}
