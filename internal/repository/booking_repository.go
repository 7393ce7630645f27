package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pawprint-grooming/service-booking/internal/domain"
	bookingDomain "github.com/pawprint-grooming/service-booking/internal/domain/booking"
	"github.com/pawprint-grooming/service-booking/internal/domain/schedule"
)

// AppointmentModel is the GORM model for the appointments table.
type AppointmentModel struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey"`
	BookingCode     string          `gorm:"uniqueIndex:idx_appointments_booking_code;not null;size:20"`
	CustomerID      uuid.UUID       `gorm:"type:uuid;index;not null"`
	PetID           uuid.UUID       `gorm:"type:uuid;index;not null"`
	AppointmentDate time.Time       `gorm:"type:date;not null;index;uniqueIndex:idx_appointments_slot,where:status <> 'cancelled'"`
	StartMinute     int             `gorm:"not null;uniqueIndex:idx_appointments_slot"`
	DurationMinutes int             `gorm:"not null"`
	Status          string          `gorm:"not null;size:20;index"`
	Notes           string          `gorm:"size:1000"`
	Preferences     json.RawMessage `gorm:"type:jsonb;not null"`
	ConfirmedAt     *time.Time      `gorm:""`
	CompletedAt     *time.Time      `gorm:""`
	CancelledAt     *time.Time      `gorm:""`
	CancelReason    string          `gorm:"size:500"`
	Version         int64           `gorm:"not null;default:1"`
	CreatedAt       time.Time       `gorm:"not null"`
	UpdatedAt       time.Time       `gorm:"not null"`

	Services []AppointmentServiceModel `gorm:"foreignKey:AppointmentID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for the GORM model.
func (AppointmentModel) TableName() string {
	return "appointments"
}

// AppointmentServiceModel is one selected service with its booking-time snapshot.
type AppointmentServiceModel struct {
	AppointmentID   uuid.UUID `gorm:"type:uuid;primaryKey"`
	ServiceCode     string    `gorm:"primaryKey;size:50"`
	Position        int       `gorm:"not null"`
	ServiceName     string    `gorm:"size:120;not null"`
	DurationMinutes int       `gorm:"not null"`
	PriceCents      int64     `gorm:"not null"`
	Quantity        int       `gorm:"not null;check:quantity >= 1"`
}

func (AppointmentServiceModel) TableName() string {
	return "appointment_services"
}

// GormBookingRepository is the GORM-based implementation of BookingRepository.
type GormBookingRepository struct {
	db *gorm.DB
}

// NewGormBookingRepository creates a new GormBookingRepository.
func NewGormBookingRepository(db *gorm.DB) *GormBookingRepository {
	return &GormBookingRepository{db: db}
}

func withServices(db *gorm.DB) *gorm.DB {
	return db.Preload("Services", func(db *gorm.DB) *gorm.DB {
		return db.Order("position ASC")
	})
}

// FindByCode retrieves an appointment by its booking code.
func (r *GormBookingRepository) FindByCode(ctx context.Context, code string) (*bookingDomain.Appointment, error) {
	var model AppointmentModel
	if err := withServices(r.db.WithContext(ctx)).Where("booking_code = ?", code).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Appointment", code)
		}
		return nil, storageErr("find appointment by code", err)
	}
	return toDomainAppointment(&model)
}

// ListByDate returns the date's appointments ordered by start time.
func (r *GormBookingRepository) ListByDate(ctx context.Context, date time.Time, includeCancelled bool) ([]*bookingDomain.Appointment, error) {
	models, err := listByDate(withServices(r.db.WithContext(ctx)), schedule.CivilDate(date), includeCancelled)
	if err != nil {
		return nil, storageErr("list appointments by date", err)
	}
	return toDomainAppointments(models)
}

func listByDate(db *gorm.DB, date time.Time, includeCancelled bool) ([]AppointmentModel, error) {
	q := db.Where("appointment_date = ?", date.Format(schedule.DateLayout))
	if !includeCancelled {
		q = q.Where("status <> ?", string(bookingDomain.StatusCancelled))
	}
	var models []AppointmentModel
	err := q.Order("start_minute ASC").Find(&models).Error
	return models, err
}

// FindByCustomerID retrieves a customer's appointments with pagination.
func (r *GormBookingRepository) FindByCustomerID(ctx context.Context, customerID uuid.UUID, page, limit int) ([]*bookingDomain.Appointment, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&AppointmentModel{}).Where("customer_id = ?", customerID).Count(&total).Error; err != nil {
		return nil, 0, storageErr("count customer appointments", err)
	}

	var models []AppointmentModel
	offset := (page - 1) * limit
	if err := withServices(r.db.WithContext(ctx)).
		Where("customer_id = ?", customerID).
		Order("appointment_date DESC, start_minute DESC").
		Offset(offset).
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, 0, storageErr("find customer appointments", err)
	}

	appts, err := toDomainAppointments(models)
	if err != nil {
		return nil, 0, err
	}
	return appts, total, nil
}

// ListAll retrieves all appointments with pagination (admin).
func (r *GormBookingRepository) ListAll(ctx context.Context, page, limit int) ([]*bookingDomain.Appointment, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&AppointmentModel{}).Count(&total).Error; err != nil {
		return nil, 0, storageErr("count appointments", err)
	}

	var models []AppointmentModel
	offset := (page - 1) * limit
	if err := withServices(r.db.WithContext(ctx)).
		Order("appointment_date DESC, start_minute DESC").
		Offset(offset).
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, 0, storageErr("list appointments", err)
	}

	appts, err := toDomainAppointments(models)
	if err != nil {
		return nil, 0, err
	}
	return appts, total, nil
}

// BookSlot runs decide and the insert in one transaction holding a
// transaction-scoped advisory lock keyed on the date.
func (r *GormBookingRepository) BookSlot(ctx context.Context, date time.Time, decide bookingDomain.DecideFunc) (*bookingDomain.Appointment, error) {
	date = schedule.CivilDate(date)
	var booked *bookingDomain.Appointment

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		lockKey := "appointments:" + date.Format(schedule.DateLayout)
		if err := tx.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", lockKey).Error; err != nil {
			return storageErr("acquire date lock", err)
		}

		models, err := listByDate(withServices(tx), date, false)
		if err != nil {
			return storageErr("load day appointments", err)
		}
		existing, err := toDomainAppointments(models)
		if err != nil {
			return err
		}

		appt, err := decide(existing)
		if err != nil {
			return err
		}

		model, err := toAppointmentModel(appt)
		if err != nil {
			return err
		}
		if err := tx.Create(model).Error; err != nil {
			switch uniqueViolation(err) {
			case constraintBookingCode:
				return bookingDomain.ErrDuplicateBookingCode
			case constraintSlot:
				return domain.NewSlotUnavailableError(date.Format(schedule.DateLayout), appt.Start().String(), domain.ReasonOccupied)
			}
			return storageErr("insert appointment", err)
		}
		booked = appt
		return nil
	})
	if err != nil {
		return nil, err
	}
	return booked, nil
}

// Update persists a status change with optimistic locking.
func (r *GormBookingRepository) Update(ctx context.Context, a *bookingDomain.Appointment) error {
	// IncrementVersion was called, so the stored row holds the previous version.
	expectedVersion := a.Version() - 1
	result := r.db.WithContext(ctx).
		Model(&AppointmentModel{}).
		Where("id = ? AND version = ?", a.ID(), expectedVersion).
		Updates(map[string]interface{}{
			"status":        string(a.Status()),
			"confirmed_at":  a.ConfirmedAt(),
			"completed_at":  a.CompletedAt(),
			"cancelled_at":  a.CancelledAt(),
			"cancel_reason": a.CancelReason(),
			"version":       a.Version(),
			"updated_at":    a.UpdatedAt(),
		})

	if result.Error != nil {
		return storageErr("update appointment", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.NewConflictError("appointment was modified by another transaction")
	}
	return nil
}

// --- Conversion Helpers ---

func toAppointmentModel(a *bookingDomain.Appointment) (*AppointmentModel, error) {
	prefs, err := json.Marshal(a.Preferences())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal preferences: %w", err)
	}

	items := a.Items()
	services := make([]AppointmentServiceModel, len(items))
	for i, li := range items {
		services[i] = AppointmentServiceModel{
			AppointmentID:   a.ID(),
			ServiceCode:     li.ServiceCode,
			Position:        i,
			ServiceName:     li.ServiceName,
			DurationMinutes: li.DurationMinutes,
			PriceCents:      li.PriceCents,
			Quantity:        li.Quantity,
		}
	}

	return &AppointmentModel{
		ID:              a.ID(),
		BookingCode:     a.Code(),
		CustomerID:      a.CustomerID(),
		PetID:           a.PetID(),
		AppointmentDate: a.Date(),
		StartMinute:     a.Start().Minutes(),
		DurationMinutes: a.DurationMinutes(),
		Status:          string(a.Status()),
		Notes:           a.Notes(),
		Preferences:     prefs,
		ConfirmedAt:     a.ConfirmedAt(),
		CompletedAt:     a.CompletedAt(),
		CancelledAt:     a.CancelledAt(),
		CancelReason:    a.CancelReason(),
		Version:         a.Version(),
		CreatedAt:       a.CreatedAt(),
		UpdatedAt:       a.UpdatedAt(),
		Services:        services,
	}, nil
}

func toDomainAppointment(m *AppointmentModel) (*bookingDomain.Appointment, error) {
	var prefs bookingDomain.Preferences
	if len(m.Preferences) > 0 {
		if err := json.Unmarshal(m.Preferences, &prefs); err != nil {
			return nil, fmt.Errorf("failed to unmarshal preferences: %w", err)
		}
	}

	status, err := bookingDomain.ParseStatus(m.Status)
	if err != nil {
		return nil, err
	}

	items := make([]bookingDomain.LineItem, len(m.Services))
	for i, s := range m.Services {
		items[i] = bookingDomain.LineItem{
			ServiceCode:     s.ServiceCode,
			ServiceName:     s.ServiceName,
			DurationMinutes: s.DurationMinutes,
			PriceCents:      s.PriceCents,
			Quantity:        s.Quantity,
		}
	}

	return bookingDomain.ReconstructAppointment(
		m.ID,
		m.BookingCode,
		m.CustomerID,
		m.PetID,
		schedule.CivilDate(m.AppointmentDate),
		schedule.TimeOfDay(m.StartMinute),
		m.DurationMinutes,
		items,
		status,
		m.Notes,
		prefs,
		m.ConfirmedAt,
		m.CompletedAt,
		m.CancelledAt,
		m.CancelReason,
		m.Version,
		m.CreatedAt,
		m.UpdatedAt,
	), nil
}

func toDomainAppointments(models []AppointmentModel) ([]*bookingDomain.Appointment, error) {
	out := make([]*bookingDomain.Appointment, len(models))
	for i := range models {
		a, err := toDomainAppointment(&models[i])
		if err != nil {
			return nil, err
		}
		out[i] = a
	}
	return out, nil
}
