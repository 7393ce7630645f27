package application

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pawprint-grooming/service-booking/internal/domain"
	"github.com/pawprint-grooming/service-booking/internal/domain/booking"
	"github.com/pawprint-grooming/service-booking/internal/domain/pet"
	"github.com/pawprint-grooming/service-booking/internal/domain/schedule"
	"github.com/pawprint-grooming/service-booking/internal/platform/metrics"
)

const (
	SlotFree     = "free"
	SlotOccupied = "occupied"

	availabilityKeyPrefix = "availability:public:"
	generationKeyPrefix   = "availability:gen:"
)

// PublicSlot is a slot with occupancy only.
type PublicSlot struct {
	Start  string `json:"start"`
	End    string `json:"end"`
	Status string `json:"status"`
}

// PublicDayView is the customer-facing availability of a date.
type PublicDayView struct {
	Date      string       `json:"date"`
	Closed    bool         `json:"closed"`
	FreeSlots int          `json:"free_slots"`
	Slots     []PublicSlot `json:"slots"`
}

// OccupantRef is the minimal reference to an appointment shown to operators.
// It never carries customer contact details.
type OccupantRef struct {
	BookingCode string   `json:"booking_code"`
	PetName     string   `json:"pet_name"`
	Services    []string `json:"services"`
	Start       string   `json:"start"`
	End         string   `json:"end"`
}

// OperatorSlot is a slot with its occupant, if any.
type OperatorSlot struct {
	Start    string       `json:"start"`
	End      string       `json:"end"`
	Status   string       `json:"status"`
	Occupant *OccupantRef `json:"occupant,omitempty"`
}

// OperatorDayView is the operator schedule of a date.
type OperatorDayView struct {
	Date      string         `json:"date"`
	Closed    bool           `json:"closed"`
	FreeSlots int            `json:"free_slots"`
	Slots     []OperatorSlot `json:"slots"`
}

// AvailabilityService combines the static operating rules with the stored
// appointments of a date. Public views are cached under the generation of
// their date, and every write to the date bumps the generation.
type AvailabilityService struct {
	bookings booking.BookingRepository
	pets     pet.PetRepository
	rules    schedule.OperatingRules
	cache    Cache
	cacheTTL time.Duration
	metrics  *metrics.BookingMetrics
	logger   *zap.Logger
}

func NewAvailabilityService(
	bookings booking.BookingRepository,
	pets pet.PetRepository,
	rules schedule.OperatingRules,
	cache Cache,
	cacheTTL time.Duration,
	m *metrics.BookingMetrics,
	logger *zap.Logger,
) *AvailabilityService {
	return &AvailabilityService{
		bookings: bookings,
		pets:     pets,
		rules:    rules,
		cache:    cache,
		cacheTTL: cacheTTL,
		metrics:  m,
		logger:   logger,
	}
}

// Rules returns the operating rules in effect.
func (s *AvailabilityService) Rules() schedule.OperatingRules { return s.rules }

// PublicDay returns free/occupied state for each slot of date.
func (s *AvailabilityService) PublicDay(ctx context.Context, dateStr string) (*PublicDayView, error) {
	date, err := parseDateField(dateStr)
	if err != nil {
		return nil, err
	}

	// The generation is read before the appointments, so a view built from a
	// read that raced a booking is stored under a key no later reader uses.
	key, cached := s.cacheKey(ctx, date)
	if cached {
		var view PublicDayView
		hit, err := s.cache.Get(ctx, key, &view)
		if err != nil {
			s.logger.Warn("availability cache read failed", zap.String("key", key), zap.Error(err))
		}
		s.metrics.ObserveCache(hit)
		if hit {
			return &view, nil
		}
	}

	day, err := s.occupiedDay(ctx, date, false)
	if err != nil {
		return nil, err
	}

	view := &PublicDayView{
		Date:      date.Format(schedule.DateLayout),
		Closed:    day.Closed,
		FreeSlots: day.FreeCount(),
		Slots:     make([]PublicSlot, len(day.Slots)),
	}
	for i, slot := range day.Slots {
		view.Slots[i] = PublicSlot{Start: slot.Start.String(), End: slot.End.String(), Status: slotStatus(slot)}
	}

	if cached {
		if err := s.cache.Save(ctx, key, view, s.cacheTTL); err != nil {
			s.logger.Warn("availability cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return view, nil
}

// OperatorDay returns the slots of date with pet and service names for occupied slots.
func (s *AvailabilityService) OperatorDay(ctx context.Context, dateStr string) (*OperatorDayView, error) {
	date, err := parseDateField(dateStr)
	if err != nil {
		return nil, err
	}
	day, err := s.occupiedDay(ctx, date, true)
	if err != nil {
		return nil, err
	}

	view := &OperatorDayView{
		Date:      date.Format(schedule.DateLayout),
		Closed:    day.Closed,
		FreeSlots: day.FreeCount(),
		Slots:     make([]OperatorSlot, len(day.Slots)),
	}
	for i, slot := range day.Slots {
		out := OperatorSlot{Start: slot.Start.String(), End: slot.End.String(), Status: slotStatus(slot)}
		if occ := slot.Occupant; occ != nil {
			out.Occupant = &OccupantRef{
				BookingCode: occ.BookingCode,
				PetName:     occ.PetName,
				Services:    occ.ServiceNames,
				Start:       occ.Start.String(),
				End:         occ.End().String(),
			}
		}
		view.Slots[i] = out
	}
	return view, nil
}

// Invalidate moves date to a new cache generation. Failures are logged only;
// the stale entry expires on its own.
func (s *AvailabilityService) Invalidate(ctx context.Context, date time.Time) {
	if s.cache == nil {
		return
	}
	key := generationKeyPrefix + date.Format(schedule.DateLayout)
	if _, err := s.cache.Incr(ctx, key); err != nil {
		s.logger.Warn("availability cache invalidation failed", zap.String("key", key), zap.Error(err))
	}
}

// cacheKey returns the public view key for the current generation of date.
// It reports false when there is no cache or the generation is unreadable.
func (s *AvailabilityService) cacheKey(ctx context.Context, date time.Time) (string, bool) {
	if s.cache == nil {
		return "", false
	}
	day := date.Format(schedule.DateLayout)
	gen, err := s.cache.Counter(ctx, generationKeyPrefix+day)
	if err != nil {
		s.logger.Warn("availability cache generation read failed", zap.String("date", day), zap.Error(err))
		return "", false
	}
	return availabilityKeyPrefix + day + ":" + strconv.FormatInt(gen, 10), true
}

func (s *AvailabilityService) occupiedDay(ctx context.Context, date time.Time, withPetNames bool) (schedule.DaySchedule, error) {
	day := schedule.GenerateDaySchedule(date, s.rules)
	if day.Closed {
		return day, nil
	}

	appts, err := s.bookings.ListByDate(ctx, date, false)
	if err != nil {
		return schedule.DaySchedule{}, err
	}

	names := map[uuid.UUID]string{}
	if withPetNames {
		names = s.petNames(ctx, appts)
	}
	return schedule.MarkOccupancy(day, Occupants(appts, names)), nil
}

func (s *AvailabilityService) petNames(ctx context.Context, appts []*booking.Appointment) map[uuid.UUID]string {
	names := make(map[uuid.UUID]string, len(appts))
	for _, a := range appts {
		if _, ok := names[a.PetID()]; ok {
			continue
		}
		p, err := s.pets.FindByID(ctx, a.PetID())
		if err != nil {
			s.logger.Warn("pet lookup failed for schedule", zap.String("pet_id", a.PetID().String()), zap.Error(err))
			names[a.PetID()] = ""
			continue
		}
		names[a.PetID()] = p.Name()
	}
	return names
}

// Occupants converts slot-holding appointments into schedule occupants.
func Occupants(appts []*booking.Appointment, petNames map[uuid.UUID]string) []schedule.Occupant {
	out := make([]schedule.Occupant, 0, len(appts))
	for _, a := range appts {
		if !a.Status().HoldsSlot() {
			continue
		}
		out = append(out, a.Occupant(petNames[a.PetID()]))
	}
	return out
}

func slotStatus(slot schedule.Slot) string {
	if slot.Occupied() {
		return SlotOccupied
	}
	return SlotFree
}

func parseDateField(s string) (time.Time, error) {
	date, err := schedule.ParseDate(s)
	if err != nil {
		return time.Time{}, domain.NewFieldValidationError(map[string]string{"date": "date must be a date in YYYY-MM-DD format"})
	}
	return date, nil
}
