package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/pawprint-grooming/service-booking/internal/domain"
	bookingDomain "github.com/pawprint-grooming/service-booking/internal/domain/booking"
	"github.com/pawprint-grooming/service-booking/internal/domain/schedule"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return db, mock
}

func TestUniqueViolation(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: constraintBookingCode}
	assert.Equal(t, constraintBookingCode, uniqueViolation(fmt.Errorf("insert: %w", pgErr)))
	assert.Equal(t, "unknown", uniqueViolation(&pgconn.PgError{Code: "23505"}))
	assert.Equal(t, "", uniqueViolation(&pgconn.PgError{Code: "40001"}))
	assert.Equal(t, "", uniqueViolation(errors.New("boom")))
}

func TestBookSlotTakesDateLockAndRollsBackOnRejection(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewGormBookingRepository(db)
	date, err := schedule.ParseDate("2025-03-04")
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectExec(`SELECT pg_advisory_xact_lock\(hashtext\(\$1\)\)`).
		WithArgs("appointments:2025-03-04").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT \* FROM "appointments" WHERE appointment_date = \$1 AND status <> \$2`).
		WithArgs("2025-03-04", "cancelled").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	var seen []*bookingDomain.Appointment
	_, err = repo.BookSlot(context.Background(), date, func(existing []*bookingDomain.Appointment) (*bookingDomain.Appointment, error) {
		seen = existing
		return nil, domain.NewSlotUnavailableError("2025-03-04", "09:00", domain.ReasonOccupied)
	})

	var su *domain.SlotUnavailableError
	require.True(t, errors.As(err, &su))
	assert.Empty(t, seen)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookSlotLockFailureIsStorageError(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewGormBookingRepository(db)
	date, _ := schedule.ParseDate("2025-03-04")

	mock.ExpectBegin()
	mock.ExpectExec(`SELECT pg_advisory_xact_lock`).WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	called := false
	_, err := repo.BookSlot(context.Background(), date, func([]*bookingDomain.Appointment) (*bookingDomain.Appointment, error) {
		called = true
		return nil, nil
	})

	var se *domain.StorageError
	require.True(t, errors.As(err, &se))
	assert.False(t, called)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateReportsVersionConflict(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewGormBookingRepository(db)

	date, _ := schedule.ParseDate("2025-03-04")
	appt, err := bookingDomain.NewAppointment(
		uuid.New(), uuid.New(), date, schedule.MustParseTimeOfDay("09:00"),
		[]bookingDomain.LineItem{{ServiceCode: "express-bath", ServiceName: "Express Bath", DurationMinutes: 30, Quantity: 1}},
		bookingDomain.StatusConfirmed, bookingDomain.Preferences{}, "",
	)
	require.NoError(t, err)
	require.NoError(t, appt.TransitionTo(bookingDomain.StatusCompleted, ""))
	appt.IncrementVersion()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "appointments" SET`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	err = repo.Update(context.Background(), appt)
	var ce *domain.ConflictError
	assert.True(t, errors.As(err, &ce))
	assert.NoError(t, mock.ExpectationsWereMet())
}
