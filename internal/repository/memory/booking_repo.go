package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pawprint-grooming/service-booking/internal/domain"
	"github.com/pawprint-grooming/service-booking/internal/domain/booking"
	"github.com/pawprint-grooming/service-booking/internal/domain/schedule"
)

// BookingRepository is a map-backed booking.BookingRepository. BookSlot
// serializes writers per date with a dedicated mutex.
type BookingRepository struct {
	mu     sync.RWMutex
	byCode map[string]*booking.Appointment

	locksMu   sync.Mutex
	dateLocks map[string]*sync.Mutex
}

func NewBookingRepository() *BookingRepository {
	return &BookingRepository{
		byCode:    make(map[string]*booking.Appointment),
		dateLocks: make(map[string]*sync.Mutex),
	}
}

func (r *BookingRepository) lockFor(date time.Time) *sync.Mutex {
	key := date.Format(schedule.DateLayout)
	r.locksMu.Lock()
	defer r.locksMu.Unlock()

	l, ok := r.dateLocks[key]
	if !ok {
		l = &sync.Mutex{}
		r.dateLocks[key] = l
	}
	return l
}

func (r *BookingRepository) FindByCode(ctx context.Context, code string) (*booking.Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.byCode[code]
	if !ok {
		return nil, domain.NewNotFoundError("Appointment", code)
	}
	return cloneAppointment(a), nil
}

func (r *BookingRepository) ListByDate(ctx context.Context, date time.Time, includeCancelled bool) ([]*booking.Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.listByDateLocked(schedule.CivilDate(date), includeCancelled), nil
}

func (r *BookingRepository) listByDateLocked(date time.Time, includeCancelled bool) []*booking.Appointment {
	out := make([]*booking.Appointment, 0)
	for _, a := range r.byCode {
		if !a.Date().Equal(date) {
			continue
		}
		if !includeCancelled && !a.Status().HoldsSlot() {
			continue
		}
		out = append(out, cloneAppointment(a))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start() < out[j].Start() })
	return out
}

func (r *BookingRepository) FindByCustomerID(ctx context.Context, customerID uuid.UUID, page, limit int) ([]*booking.Appointment, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]*booking.Appointment, 0)
	for _, a := range r.byCode {
		if a.CustomerID() == customerID {
			all = append(all, cloneAppointment(a))
		}
	}
	sortNewestFirst(all)
	return paginate(all, page, limit), int64(len(all)), nil
}

func (r *BookingRepository) ListAll(ctx context.Context, page, limit int) ([]*booking.Appointment, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]*booking.Appointment, 0, len(r.byCode))
	for _, a := range r.byCode {
		all = append(all, cloneAppointment(a))
	}
	sortNewestFirst(all)
	return paginate(all, page, limit), int64(len(all)), nil
}

func (r *BookingRepository) BookSlot(ctx context.Context, date time.Time, decide booking.DecideFunc) (*booking.Appointment, error) {
	date = schedule.CivilDate(date)
	l := r.lockFor(date)
	l.Lock()
	defer l.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, domain.NewStorageError("book slot", err)
	}

	r.mu.RLock()
	existing := r.listByDateLocked(date, false)
	r.mu.RUnlock()

	appt, err := decide(existing)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.byCode[appt.Code()]; taken {
		return nil, booking.ErrDuplicateBookingCode
	}
	// Mirrors the partial unique index on (date, start) for slot-holding rows.
	for _, other := range r.byCode {
		if other.Status().HoldsSlot() && other.Date().Equal(appt.Date()) && other.Start() == appt.Start() {
			return nil, domain.NewSlotUnavailableError(date.Format(schedule.DateLayout), appt.Start().String(), domain.ReasonOccupied)
		}
	}
	r.byCode[appt.Code()] = cloneAppointment(appt)
	return appt, nil
}

func (r *BookingRepository) Update(ctx context.Context, a *booking.Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.byCode[a.Code()]
	if !ok {
		return domain.NewNotFoundError("Appointment", a.Code())
	}
	if stored.Version() != a.Version()-1 {
		return domain.NewConflictError("appointment was modified by another transaction")
	}
	r.byCode[a.Code()] = cloneAppointment(a)
	return nil
}

func sortNewestFirst(items []*booking.Appointment) {
	sort.Slice(items, func(i, j int) bool {
		if !items[i].Date().Equal(items[j].Date()) {
			return items[i].Date().After(items[j].Date())
		}
		return items[i].Start() > items[j].Start()
	})
}
