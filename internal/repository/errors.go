package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/pawprint-grooming/service-booking/internal/domain"
)

const pgUniqueViolation = "23505"

// Constraint names shared with migrations/000001_init.up.sql.
const (
	constraintCustomerEmail = "idx_customers_email"
	constraintBookingCode   = "idx_appointments_booking_code"
	constraintSlot          = "idx_appointments_slot"
)

// uniqueViolation returns the violated constraint name, or "" when err is not
// a unique violation.
func uniqueViolation(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		if pgErr.ConstraintName == "" {
			return "unknown"
		}
		return pgErr.ConstraintName
	}
	return ""
}

func storageErr(op string, err error) error {
	return domain.NewStorageError(op, err)
}
