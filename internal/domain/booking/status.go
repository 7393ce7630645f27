package booking

import "fmt"

// Status represents the current state of an appointment in its lifecycle.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// validTransitions defines the state machine for appointment status transitions.
// Any pair not listed here is rejected.
var validTransitions = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusCompleted, StatusCancelled},
	StatusCompleted: {},
	StatusCancelled: {},
}

// AllStatuses lists every known status in lifecycle order.
func AllStatuses() []Status {
	return []Status{StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled}
}

// IsValid returns true if the status is a recognized appointment status.
func (s Status) IsValid() bool {
	_, exists := validTransitions[s]
	return exists
}

// IsInitial returns true if a new appointment may start in this status.
func (s Status) IsInitial() bool {
	return s == StatusPending || s == StatusConfirmed
}

// CanTransitionTo returns true if a transition from this status to the target is allowed.
func (s Status) CanTransitionTo(target Status) bool {
	allowed, exists := validTransitions[s]
	if !exists {
		return false
	}
	for _, t := range allowed {
		if t == target {
			return true
		}
	}
	return false
}

// IsTerminal returns true if no further transitions are possible from this status.
func (s Status) IsTerminal() bool {
	allowed, exists := validTransitions[s]
	if !exists {
		return true
	}
	return len(allowed) == 0
}

// HoldsSlot reports whether an appointment in this status occupies its time range.
func (s Status) HoldsSlot() bool {
	return s != StatusCancelled
}

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// ParseStatus converts a string to a Status, returning an error if invalid.
func ParseStatus(s string) (Status, error) {
	status := Status(s)
	if !status.IsValid() {
		return "", fmt.Errorf("invalid appointment status: %s", s)
	}
	return status, nil
}
