// Package domain holds the error taxonomy and small value types shared by the
// booking aggregates.
package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ValidationError reports a malformed or missing request field. Fields maps a
// field path (e.g. "owner.email") to a human-readable message.
type ValidationError struct {
	Message string
	Fields  map[string]string
}

// NewValidationError creates a ValidationError without field detail.
func NewValidationError(message string) *ValidationError {
	return &ValidationError{Message: message}
}

// NewFieldValidationError creates a ValidationError carrying a field breakdown.
func NewFieldValidationError(fields map[string]string) *ValidationError {
	return &ValidationError{Message: "request validation failed", Fields: fields}
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + e.Fields[k]
	}
	return e.Message + " (" + strings.Join(parts, "; ") + ")"
}

// UnknownServiceError is returned when a requested service code is not in the catalog.
type UnknownServiceError struct {
	Code string
}

func NewUnknownServiceError(code string) *UnknownServiceError {
	return &UnknownServiceError{Code: code}
}

func (e *UnknownServiceError) Error() string {
	return fmt.Sprintf("unknown service: %s", e.Code)
}

// InactiveServiceError is returned when a requested service has been retired.
type InactiveServiceError struct {
	Code string
}

func NewInactiveServiceError(code string) *InactiveServiceError {
	return &InactiveServiceError{Code: code}
}

func (e *InactiveServiceError) Error() string {
	return fmt.Sprintf("service is no longer offered: %s", e.Code)
}

// Slot unavailability reasons.
const (
	ReasonClosed       = "closed"
	ReasonOutsideHours = "outside_hours"
	ReasonOccupied     = "occupied"
	ReasonMisaligned   = "not_on_slot_boundary"
)

// SlotUnavailableError is returned when the requested time can no longer be booked.
// The caller is expected to re-query availability and resubmit.
type SlotUnavailableError struct {
	Date   string
	Time   string
	Reason string
}

func NewSlotUnavailableError(date, time, reason string) *SlotUnavailableError {
	return &SlotUnavailableError{Date: date, Time: time, Reason: reason}
}

func (e *SlotUnavailableError) Error() string {
	return fmt.Sprintf("slot %s %s is unavailable: %s", e.Date, e.Time, e.Reason)
}

// InvalidTransitionError is returned when a status change is not permitted.
type InvalidTransitionError struct {
	From string
	To   string
}

func NewInvalidTransitionError(from, to string) *InvalidTransitionError {
	return &InvalidTransitionError{From: from, To: to}
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot transition from %s to %s", e.From, e.To)
}

// NotFoundError is returned when an entity does not exist.
type NotFoundError struct {
	Entity string
	Key    string
}

func NewNotFoundError(entity, key string) *NotFoundError {
	return &NotFoundError{Entity: entity, Key: key}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Entity, e.Key)
}

// StorageError wraps a persistence failure. It is fatal to the current request.
type StorageError struct {
	Op  string
	Err error
}

func NewStorageError(op string, err error) *StorageError {
	return &StorageError{Op: op, Err: err}
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// ConflictError is returned when an optimistic version check fails.
type ConflictError struct {
	Message string
}

func NewConflictError(message string) *ConflictError {
	return &ConflictError{Message: message}
}

func (e *ConflictError) Error() string { return e.Message }

// ForbiddenError is returned when an operation is not allowed for the entity in question.
type ForbiddenError struct {
	Message string
}

func NewForbiddenError(message string) *ForbiddenError {
	return &ForbiddenError{Message: message}
}

func (e *ForbiddenError) Error() string { return e.Message }

// IsNotFound reports whether err is (or wraps) a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
