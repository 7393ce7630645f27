// Package schedule computes a business day's bookable slots and their occupancy.
// Everything here is a pure function of its inputs.
package schedule

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/pawprint-grooming/service-booking/internal/domain"
)

// OperatingRules are the static opening hours of the business.
type OperatingRules struct {
	Open           TimeOfDay
	Close          TimeOfDay
	SlotMinutes    int
	ClosedWeekdays []time.Weekday
}

// Validate checks that the rules describe a usable day.
func (r OperatingRules) Validate() error {
	if r.SlotMinutes <= 0 {
		return fmt.Errorf("slot granularity must be positive, got %d", r.SlotMinutes)
	}
	if r.Open < 0 || r.Close > 24*60 {
		return fmt.Errorf("opening hours %s-%s out of range", r.Open, r.Close)
	}
	if r.Close <= r.Open {
		return fmt.Errorf("close %s must be after open %s", r.Close, r.Open)
	}
	return nil
}

// IsClosedOn reports whether the business is closed on the weekday of date.
func (r OperatingRules) IsClosedOn(date time.Time) bool {
	wd := date.Weekday()
	for _, closed := range r.ClosedWeekdays {
		if closed == wd {
			return true
		}
	}
	return false
}

// Occupant is the minimal reference to an appointment holding a slot.
type Occupant struct {
	AppointmentID   uuid.UUID
	BookingCode     string
	Start           TimeOfDay
	DurationMinutes int
	PetName         string
	ServiceNames    []string
}

// End returns the exclusive end of the occupant's range.
func (o Occupant) End() TimeOfDay { return o.Start.Add(o.DurationMinutes) }

// Slot is a half-open interval [Start, End) within business hours.
type Slot struct {
	Start    TimeOfDay
	End      TimeOfDay
	Occupant *Occupant
}

// Occupied reports whether an appointment holds this slot.
func (s Slot) Occupied() bool { return s.Occupant != nil }

// intersects applies the half-open overlap rule.
func (s Slot) intersects(start, end TimeOfDay) bool {
	return s.Start < end && start < s.End
}

// DaySchedule is the ordered slot sequence for one date. A closed day has
// Closed set and no slots, which is distinct from an open day with no bookings.
type DaySchedule struct {
	Date   time.Time
	Closed bool
	Slots  []Slot
}

// GenerateDaySchedule lays out the day's slots from open to close. A trailing
// remainder shorter than the granularity is not bookable.
func GenerateDaySchedule(date time.Time, rules OperatingRules) DaySchedule {
	day := DaySchedule{Date: CivilDate(date)}
	if rules.IsClosedOn(date) {
		day.Closed = true
		return day
	}
	if rules.SlotMinutes <= 0 || rules.Close <= rules.Open {
		return day
	}

	count := int(rules.Close-rules.Open) / rules.SlotMinutes
	day.Slots = make([]Slot, 0, count)
	for start := rules.Open; start.Add(rules.SlotMinutes) <= rules.Close; start = start.Add(rules.SlotMinutes) {
		day.Slots = append(day.Slots, Slot{Start: start, End: start.Add(rules.SlotMinutes)})
	}
	return day
}

// MarkOccupancy returns a copy of day with every slot intersecting an
// occupant's [start, start+duration) marked. When several occupants overlap
// one slot the earliest-starting one is attached.
func MarkOccupancy(day DaySchedule, occupants []Occupant) DaySchedule {
	sorted := make([]Occupant, len(occupants))
	copy(sorted, occupants)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	out := DaySchedule{Date: day.Date, Closed: day.Closed, Slots: make([]Slot, len(day.Slots))}
	for i, slot := range day.Slots {
		slot.Occupant = nil
		for k := range sorted {
			occ := &sorted[k]
			if occ.DurationMinutes <= 0 {
				continue
			}
			if slot.intersects(occ.Start, occ.End()) {
				slot.Occupant = occ
				break
			}
		}
		out.Slots[i] = slot
	}
	return out
}

// FreeCount returns the number of unoccupied slots.
func (d DaySchedule) FreeCount() int {
	n := 0
	for _, s := range d.Slots {
		if !s.Occupied() {
			n++
		}
	}
	return n
}

// CheckRange verifies that [start, start+durationMinutes) can be booked on an
// already-marked schedule: start must open a slot, the range must end by the
// last slot's end, and every constituent slot must be free.
func (d DaySchedule) CheckRange(start TimeOfDay, durationMinutes int) error {
	date := d.Date.Format(DateLayout)
	if d.Closed {
		return domain.NewSlotUnavailableError(date, start.String(), domain.ReasonClosed)
	}
	if len(d.Slots) == 0 {
		return domain.NewSlotUnavailableError(date, start.String(), domain.ReasonOutsideHours)
	}

	end := start.Add(durationMinutes)
	first := -1
	for i, s := range d.Slots {
		if s.Start == start {
			first = i
			break
		}
	}
	if first < 0 {
		if start < d.Slots[0].Start || start >= d.Slots[len(d.Slots)-1].End {
			return domain.NewSlotUnavailableError(date, start.String(), domain.ReasonOutsideHours)
		}
		return domain.NewSlotUnavailableError(date, start.String(), domain.ReasonMisaligned)
	}
	if end > d.Slots[len(d.Slots)-1].End {
		return domain.NewSlotUnavailableError(date, start.String(), domain.ReasonOutsideHours)
	}

	for _, s := range d.Slots[first:] {
		if !s.intersects(start, end) {
			break
		}
		if s.Occupied() {
			return domain.NewSlotUnavailableError(date, start.String(), domain.ReasonOccupied)
		}
	}
	return nil
}
