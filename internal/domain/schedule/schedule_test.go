package schedule

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pawprint-grooming/service-booking/internal/domain"
)

func salonRules() OperatingRules {
	return OperatingRules{
		Open:           MustParseTimeOfDay("08:00"),
		Close:          MustParseTimeOfDay("17:00"),
		SlotMinutes:    30,
		ClosedWeekdays: []time.Weekday{time.Sunday, time.Monday},
	}
}

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := ParseDate(s)
	require.NoError(t, err)
	return d
}

func TestParseTimeOfDay(t *testing.T) {
	tests := []struct {
		in      string
		want    TimeOfDay
		wantErr bool
	}{
		{"08:00", 480, false},
		{"09:30", 570, false},
		{"00:00", 0, false},
		{"23:59", 1439, false},
		{"24:00", 0, true},
		{"9am", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTimeOfDay(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.in, got.String())
		})
	}
}

func TestOperatingRulesValidate(t *testing.T) {
	assert.NoError(t, salonRules().Validate())

	bad := salonRules()
	bad.SlotMinutes = 0
	assert.Error(t, bad.Validate())

	bad = salonRules()
	bad.Close = bad.Open
	assert.Error(t, bad.Validate())
}

func TestGenerateDaySchedule(t *testing.T) {
	tests := []struct {
		name      string
		date      string
		rules     func() OperatingRules
		closed    bool
		wantSlots int
	}{
		{"open tuesday", "2025-03-04", salonRules, false, 18},
		{"closed sunday", "2025-03-02", salonRules, true, 0},
		{"closed monday", "2025-03-03", salonRules, true, 0},
		{"hourly granularity", "2025-03-05", func() OperatingRules {
			r := salonRules()
			r.SlotMinutes = 60
			return r
		}, false, 9},
		{"remainder dropped", "2025-03-05", func() OperatingRules {
			r := salonRules()
			r.SlotMinutes = 40
			return r
		}, false, 13},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			day := GenerateDaySchedule(mustDate(t, tt.date), tt.rules())
			assert.Equal(t, tt.closed, day.Closed)
			assert.Len(t, day.Slots, tt.wantSlots)
			for i := 1; i < len(day.Slots); i++ {
				assert.Less(t, day.Slots[i-1].Start, day.Slots[i].Start)
				assert.Equal(t, day.Slots[i-1].End, day.Slots[i].Start)
			}
			for _, s := range day.Slots {
				assert.False(t, s.Occupied())
			}
		})
	}
}

func TestGenerateDaySchedule_SlotBounds(t *testing.T) {
	day := GenerateDaySchedule(mustDate(t, "2025-03-04"), salonRules())
	require.NotEmpty(t, day.Slots)
	assert.Equal(t, "08:00", day.Slots[0].Start.String())
	assert.Equal(t, "17:00", day.Slots[len(day.Slots)-1].End.String())
}

func TestMarkOccupancy_SixtyMinuteBath(t *testing.T) {
	day := GenerateDaySchedule(mustDate(t, "2025-03-04"), salonRules())
	occ := Occupant{
		AppointmentID:   uuid.New(),
		BookingCode:     "BK-ABC234",
		Start:           MustParseTimeOfDay("09:00"),
		DurationMinutes: 60,
		PetName:         "Biscuit",
		ServiceNames:    []string{"Bath Time Bliss"},
	}

	marked := MarkOccupancy(day, []Occupant{occ})

	var occupied []string
	for _, s := range marked.Slots {
		if s.Occupied() {
			occupied = append(occupied, s.Start.String())
			assert.Equal(t, "BK-ABC234", s.Occupant.BookingCode)
		}
	}
	assert.Equal(t, []string{"09:00", "09:30"}, occupied)

	// The input schedule is left untouched.
	for _, s := range day.Slots {
		assert.False(t, s.Occupied())
	}
}

func TestMarkOccupancy_Boundaries(t *testing.T) {
	day := GenerateDaySchedule(mustDate(t, "2025-03-04"), salonRules())

	tests := []struct {
		name     string
		start    string
		duration int
		want     []string
	}{
		{"starts on boundary", "10:00", 30, []string{"10:00"}},
		{"ends on boundary skips next", "10:00", 60, []string{"10:00", "10:30"}},
		{"starts mid slot", "10:15", 30, []string{"10:00", "10:30"}},
		{"short service", "10:00", 15, []string{"10:00"}},
		{"last slot", "16:30", 30, []string{"16:30"}},
		{"zero duration ignored", "10:00", 0, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			marked := MarkOccupancy(day, []Occupant{{
				AppointmentID:   uuid.New(),
				Start:           MustParseTimeOfDay(tt.start),
				DurationMinutes: tt.duration,
			}})
			var got []string
			for _, s := range marked.Slots {
				if s.Occupied() {
					got = append(got, s.Start.String())
				}
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMarkOccupancy_EarliestOccupantWins(t *testing.T) {
	day := GenerateDaySchedule(mustDate(t, "2025-03-04"), salonRules())
	late := Occupant{BookingCode: "BK-LATE22", Start: MustParseTimeOfDay("09:15"), DurationMinutes: 30}
	early := Occupant{BookingCode: "BK-EARLY2", Start: MustParseTimeOfDay("09:00"), DurationMinutes: 30}

	marked := MarkOccupancy(day, []Occupant{late, early})

	byStart := map[string]string{}
	for _, s := range marked.Slots {
		if s.Occupied() {
			byStart[s.Start.String()] = s.Occupant.BookingCode
		}
	}
	assert.Equal(t, "BK-EARLY2", byStart["09:00"])
	assert.Equal(t, "BK-LATE22", byStart["09:30"])
}

func TestCheckRange(t *testing.T) {
	rules := salonRules()
	open := GenerateDaySchedule(mustDate(t, "2025-03-04"), rules)
	booked := MarkOccupancy(open, []Occupant{{
		BookingCode:     "BK-ABC234",
		Start:           MustParseTimeOfDay("09:00"),
		DurationMinutes: 60,
	}})
	closed := GenerateDaySchedule(mustDate(t, "2025-03-02"), rules)

	tests := []struct {
		name       string
		day        DaySchedule
		start      string
		duration   int
		wantReason string
	}{
		{"free slot", booked, "10:00", 60, ""},
		{"adjacent after booking", booked, "10:00", 30, ""},
		{"adjacent before booking", booked, "08:00", 60, ""},
		{"second half of booking", booked, "09:30", 30, domain.ReasonOccupied},
		{"runs into booking", booked, "08:30", 60, domain.ReasonOccupied},
		{"closed day", closed, "09:00", 30, domain.ReasonClosed},
		{"before open", booked, "07:30", 30, domain.ReasonOutsideHours},
		{"after close", booked, "17:00", 30, domain.ReasonOutsideHours},
		{"runs past close", booked, "16:30", 60, domain.ReasonOutsideHours},
		{"fits last slot", booked, "16:30", 30, ""},
		{"misaligned", booked, "10:15", 30, domain.ReasonMisaligned},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.day.CheckRange(MustParseTimeOfDay(tt.start), tt.duration)
			if tt.wantReason == "" {
				assert.NoError(t, err)
				return
			}
			var su *domain.SlotUnavailableError
			require.True(t, errors.As(err, &su), "expected SlotUnavailableError, got %v", err)
			assert.Equal(t, tt.wantReason, su.Reason)
		})
	}
}

func TestFreeCount(t *testing.T) {
	day := GenerateDaySchedule(mustDate(t, "2025-03-04"), salonRules())
	marked := MarkOccupancy(day, []Occupant{{Start: MustParseTimeOfDay("09:00"), DurationMinutes: 90}})
	assert.Equal(t, 15, marked.FreeCount())
}
