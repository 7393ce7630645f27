package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pawprint-grooming/service-booking/internal/domain"
	"github.com/pawprint-grooming/service-booking/internal/domain/booking"
	"github.com/pawprint-grooming/service-booking/internal/domain/catalog"
	"github.com/pawprint-grooming/service-booking/internal/domain/schedule"
	"github.com/pawprint-grooming/service-booking/internal/repository/memory"
)

type recordingNotifier struct {
	mu   sync.Mutex
	sent []Notification
}

func (n *recordingNotifier) Enqueue(_ context.Context, note Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, note)
}

func (n *recordingNotifier) types() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.sent))
	for i, s := range n.sent {
		out[i] = s.Type
	}
	return out
}

type mapCache struct {
	mu       sync.Mutex
	entries  map[string]interface{}
	counters map[string]int64
}

func newMapCache() *mapCache {
	return &mapCache{entries: map[string]interface{}{}, counters: map[string]int64{}}
}

func (c *mapCache) Get(_ context.Context, key string, dst interface{}) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[key]
	if !ok {
		return false, nil
	}
	*(dst.(*PublicDayView)) = *(v.(*PublicDayView))
	return true, nil
}

func (c *mapCache) Save(_ context.Context, key string, value interface{}, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = value
	return nil
}

func (c *mapCache) Counter(_ context.Context, key string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counters[key], nil
}

func (c *mapCache) Incr(_ context.Context, key string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counters[key]++
	return c.counters[key], nil
}

func (c *mapCache) has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[key]
	return ok
}

// pausingBookings holds the first ListByDate after it has read, until release is closed.
type pausingBookings struct {
	*memory.BookingRepository
	once    sync.Once
	read    chan struct{}
	release chan struct{}
}

func (r *pausingBookings) ListByDate(ctx context.Context, date time.Time, includeCancelled bool) ([]*booking.Appointment, error) {
	appts, err := r.BookingRepository.ListByDate(ctx, date, includeCancelled)
	r.once.Do(func() {
		close(r.read)
		<-r.release
	})
	return appts, err
}

type fixture struct {
	bookings     *BookingService
	catalog      *CatalogService
	parties      *PartyRegistry
	pets         *PetService
	availability *AvailabilityService
	notifier     *recordingNotifier
	cache        *mapCache
}

func testRules() schedule.OperatingRules {
	return schedule.OperatingRules{
		Open:           schedule.MustParseTimeOfDay("08:00"),
		Close:          schedule.MustParseTimeOfDay("17:00"),
		SlotMinutes:    30,
		ClosedWeekdays: []time.Weekday{time.Sunday, time.Monday},
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := zap.NewNop()

	bookingRepo := memory.NewBookingRepository()
	petRepo := memory.NewPetRepository()
	notifier := &recordingNotifier{}
	cache := newMapCache()

	catalogSvc := NewCatalogService(memory.NewCatalogRepository(catalog.DefaultServices()...), log)
	parties := NewPartyRegistry(memory.NewCustomerRepository(), petRepo, notifier, log)
	availability := NewAvailabilityService(bookingRepo, petRepo, testRules(), cache, time.Minute, nil, log)
	bookings := NewBookingService(bookingRepo, catalogSvc, parties, availability, notifier, nil, log).
		WithClock(func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) })

	return &fixture{
		bookings:     bookings,
		catalog:      catalogSvc,
		parties:      parties,
		pets:         NewPetService(petRepo, log),
		availability: availability,
		notifier:     notifier,
		cache:        cache,
	}
}

func bookingRequest(date, at string, services ...ServiceSelection) CreateBookingRequest {
	if len(services) == 0 {
		services = []ServiceSelection{{Code: "bath-time-bliss"}}
	}
	return CreateBookingRequest{
		Services: services,
		Date:     date,
		Time:     at,
		Pet:      PetRequest{Name: "Biscuit", Breed: "Beagle"},
		Owner: OwnerRequest{
			GivenName:  "Jane",
			FamilyName: "Doe",
			Email:      "jane@x.com",
			Phone:      "555-0100",
		},
	}
}

func TestCreateBookingOccupiesEverySlotOfItsDuration(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	conf, err := f.bookings.CreateBooking(ctx, bookingRequest("2025-03-04", "09:00"))
	require.NoError(t, err)
	assert.Equal(t, "confirmed", conf.Status)
	assert.Equal(t, 60, conf.DurationMinutes)
	assert.Equal(t, "10:00", conf.EndTime)
	assert.Regexp(t, `^BK-[A-Z2-9]{6}$`, conf.BookingCode)

	day, err := f.availability.OperatorDay(ctx, "2025-03-04")
	require.NoError(t, err)
	require.Len(t, day.Slots, 18)
	for _, slot := range day.Slots {
		switch slot.Start {
		case "09:00", "09:30":
			require.Equal(t, SlotOccupied, slot.Status, slot.Start)
			assert.Equal(t, conf.BookingCode, slot.Occupant.BookingCode)
			assert.Equal(t, "Biscuit", slot.Occupant.PetName)
			assert.Equal(t, []string{"Bath Time Bliss"}, slot.Occupant.Services)
		default:
			assert.Equal(t, SlotFree, slot.Status, slot.Start)
			assert.Nil(t, slot.Occupant)
		}
	}

	_, err = f.bookings.CreateBooking(ctx, bookingRequest("2025-03-04", "09:30"))
	var slotErr *domain.SlotUnavailableError
	require.ErrorAs(t, err, &slotErr)
	assert.Equal(t, domain.ReasonOccupied, slotErr.Reason)

	assert.Equal(t, []string{EventBookingCreated}, f.notifier.types())
}

func TestCreateBookingTotals(t *testing.T) {
	f := newFixture(t)

	conf, err := f.bookings.CreateBooking(context.Background(), bookingRequest("2025-03-04", "13:00",
		ServiceSelection{Code: "bath-time-bliss"},
		ServiceSelection{Code: "nail-trim", Quantity: 1},
		ServiceSelection{Code: "nail-trim", Quantity: 1},
	))
	require.NoError(t, err)

	assert.Equal(t, 90, conf.DurationMinutes)
	assert.Equal(t, int64(7000), conf.TotalPriceCents)
	require.Len(t, conf.Services, 2)
	assert.Equal(t, "nail-trim", conf.Services[1].ServiceCode)
	assert.Equal(t, 2, conf.Services[1].Quantity)
	assert.Equal(t, "14:30", conf.EndTime)
}

func TestCreateBookingRejectsBadServicesWithoutWriting(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.bookings.CreateBooking(ctx, bookingRequest("2025-03-04", "09:00", ServiceSelection{Code: "moonwalk"}))
	var unknown *domain.UnknownServiceError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "moonwalk", unknown.Code)

	_, err = f.catalog.Retire(ctx, "day-boarding")
	require.NoError(t, err)
	_, err = f.bookings.CreateBooking(ctx, bookingRequest("2025-03-04", "09:00", ServiceSelection{Code: "day-boarding"}))
	var inactive *domain.InactiveServiceError
	require.ErrorAs(t, err, &inactive)

	list, err := f.bookings.ListByDate(ctx, "2025-03-04")
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.Empty(t, f.notifier.types())
}

func TestCreateBookingValidation(t *testing.T) {
	f := newFixture(t)

	req := bookingRequest("2025-03-04", "09:00")
	req.Owner.Email = "not-an-email"
	req.Pet.Name = ""
	req.Services = nil

	_, err := f.bookings.CreateBooking(context.Background(), req)
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields, "owner.email")
	assert.Contains(t, ve.Fields, "pet.name")
	assert.Contains(t, ve.Fields, "services")

	_, err = f.bookings.CreateBooking(context.Background(), bookingRequest("2025-02-28", "09:00"))
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "date must not be in the past", ve.Fields["date"])
}

func TestCreateBookingSlotReasons(t *testing.T) {
	tests := []struct {
		name   string
		date   string
		at     string
		reason string
	}{
		{"sunday", "2025-03-02", "09:00", domain.ReasonClosed},
		{"monday", "2025-03-03", "09:00", domain.ReasonClosed},
		{"before open", "2025-03-04", "07:30", domain.ReasonOutsideHours},
		{"runs past close", "2025-03-04", "16:30", domain.ReasonOutsideHours},
		{"off boundary", "2025-03-04", "09:15", domain.ReasonMisaligned},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			_, err := f.bookings.CreateBooking(context.Background(), bookingRequest(tt.date, tt.at))
			var slotErr *domain.SlotUnavailableError
			require.ErrorAs(t, err, &slotErr)
			assert.Equal(t, tt.reason, slotErr.Reason)
		})
	}
}

func TestConcurrentBookingsForSameSlot(t *testing.T) {
	f := newFixture(t)
	const n = 20

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req := bookingRequest("2025-03-04", "11:00")
			req.Owner.Email = fmt.Sprintf("owner%d@x.com", i)
			_, err := f.bookings.CreateBooking(context.Background(), req)
			mu.Lock()
			errs = append(errs, err)
			mu.Unlock()
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		var slotErr *domain.SlotUnavailableError
		assert.True(t, errors.As(err, &slotErr), "unexpected error: %v", err)
	}
	assert.Equal(t, 1, succeeded)

	list, err := f.bookings.ListByDate(context.Background(), "2025-03-04")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestCustomerResolutionIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.bookings.CreateBooking(ctx, bookingRequest("2025-03-04", "09:00"))
	require.NoError(t, err)

	again := bookingRequest("2025-03-05", "09:00")
	again.Owner.Email = "JANE@X.com"
	again.Owner.GivenName = "Janet"
	second, err := f.bookings.CreateBooking(ctx, again)
	require.NoError(t, err)

	assert.Equal(t, first.Customer.ID, second.Customer.ID)
	assert.Equal(t, first.Pet.ID, second.Pet.ID)

	stored, err := f.parties.GetCustomer(ctx, first.Customer.ID)
	require.NoError(t, err)
	assert.Equal(t, "Jane", stored.GivenName)
	assert.Equal(t, "jane@x.com", stored.Email)
}

func TestStatusLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	conf, err := f.bookings.CreateBooking(ctx, bookingRequest("2025-03-04", "09:00"))
	require.NoError(t, err)

	done, err := f.bookings.UpdateStatus(ctx, conf.BookingCode, UpdateStatusRequest{Status: "completed"})
	require.NoError(t, err)
	assert.Equal(t, "completed", done.Status)
	assert.NotNil(t, done.CompletedAt)
	assert.Equal(t, conf.Version+1, done.Version)

	_, err = f.bookings.UpdateStatus(ctx, conf.BookingCode, UpdateStatusRequest{Status: "cancelled"})
	var transition *domain.InvalidTransitionError
	require.ErrorAs(t, err, &transition)

	got, err := f.bookings.GetBooking(ctx, conf.BookingCode)
	require.NoError(t, err)
	assert.Equal(t, "completed", got.Status)

	_, err = f.bookings.UpdateStatus(ctx, conf.BookingCode, UpdateStatusRequest{Status: "archived"})
	var ve *domain.ValidationError
	assert.ErrorAs(t, err, &ve)

	_, err = f.bookings.UpdateStatus(ctx, "BK-ZZZZZZ", UpdateStatusRequest{Status: "cancelled"})
	assert.True(t, domain.IsNotFound(err))

	assert.Equal(t, []string{EventBookingCreated, EventBookingCompleted}, f.notifier.types())
}

func TestCancellationFreesTheSlot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	conf, err := f.bookings.CreateBooking(ctx, bookingRequest("2025-03-04", "09:00"))
	require.NoError(t, err)

	_, err = f.bookings.UpdateStatus(ctx, conf.BookingCode, UpdateStatusRequest{Status: "cancelled", Reason: "owner called"})
	require.NoError(t, err)

	rebooked, err := f.bookings.CreateBooking(ctx, bookingRequest("2025-03-04", "09:00"))
	require.NoError(t, err)
	assert.NotEqual(t, conf.BookingCode, rebooked.BookingCode)

	all, err := f.bookings.ListByDate(ctx, "2025-03-04")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestPublicAvailabilityIsCachedAndInvalidated(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	view, err := f.availability.PublicDay(ctx, "2025-03-04")
	require.NoError(t, err)
	assert.Equal(t, 18, view.FreeSlots)
	assert.True(t, f.cache.has("availability:public:2025-03-04:0"))

	_, err = f.bookings.CreateBooking(ctx, bookingRequest("2025-03-04", "09:00"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), f.cache.counters["availability:gen:2025-03-04"])

	view, err = f.availability.PublicDay(ctx, "2025-03-04")
	require.NoError(t, err)
	assert.Equal(t, 16, view.FreeSlots)
	assert.True(t, f.cache.has("availability:public:2025-03-04:1"))

	closed, err := f.availability.PublicDay(ctx, "2025-03-02")
	require.NoError(t, err)
	assert.True(t, closed.Closed)
	assert.Empty(t, closed.Slots)

	_, err = f.availability.PublicDay(ctx, "soon")
	var ve *domain.ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestBookingDuringAvailabilityReadIsNotHiddenByCache(t *testing.T) {
	log := zap.NewNop()
	ctx := context.Background()

	bookingRepo := memory.NewBookingRepository()
	paused := &pausingBookings{BookingRepository: bookingRepo, read: make(chan struct{}), release: make(chan struct{})}
	petRepo := memory.NewPetRepository()
	mc := newMapCache()

	catalogSvc := NewCatalogService(memory.NewCatalogRepository(catalog.DefaultServices()...), log)
	parties := NewPartyRegistry(memory.NewCustomerRepository(), petRepo, NopNotifier{}, log)
	availability := NewAvailabilityService(paused, petRepo, testRules(), mc, time.Minute, nil, log)
	bookings := NewBookingService(bookingRepo, catalogSvc, parties, availability, NopNotifier{}, nil, log).
		WithClock(func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) })

	done := make(chan *PublicDayView, 1)
	go func() {
		view, err := availability.PublicDay(ctx, "2025-03-04")
		assert.NoError(t, err)
		done <- view
	}()

	<-paused.read
	_, err := bookings.CreateBooking(ctx, bookingRequest("2025-03-04", "09:00"))
	require.NoError(t, err)
	close(paused.release)

	racing := <-done
	require.NotNil(t, racing)
	assert.Equal(t, 18, racing.FreeSlots)

	view, err := availability.PublicDay(ctx, "2025-03-04")
	require.NoError(t, err)
	require.NotEmpty(t, view.Slots)
	assert.Equal(t, "09:00", view.Slots[2].Start)
	assert.Equal(t, SlotOccupied, view.Slots[2].Status)
	assert.Equal(t, 16, view.FreeSlots)
}

func TestMergedPetResolvesToTarget(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.bookings.CreateBooking(ctx, bookingRequest("2025-03-04", "09:00"))
	require.NoError(t, err)

	typo := bookingRequest("2025-03-04", "11:00")
	typo.Pet.Name = "biscuit"
	second, err := f.bookings.CreateBooking(ctx, typo)
	require.NoError(t, err)
	require.NotEqual(t, first.Pet.ID, second.Pet.ID)

	merged, err := f.pets.MergePets(ctx, second.Pet.ID, first.Pet.ID)
	require.NoError(t, err)
	assert.Equal(t, "merged", merged.Status)

	third := bookingRequest("2025-03-04", "13:00")
	third.Pet.Name = "biscuit"
	conf, err := f.bookings.CreateBooking(ctx, third)
	require.NoError(t, err)
	assert.Equal(t, first.Pet.ID, conf.Pet.ID)

	// Existing appointments keep the pet they were booked with.
	old, err := f.bookings.GetBooking(ctx, second.BookingCode)
	require.NoError(t, err)
	assert.Equal(t, second.Pet.ID, old.PetID)
}

func TestSubmitLeadPublishes(t *testing.T) {
	f := newFixture(t)

	lead, err := f.parties.SubmitLead(context.Background(), LeadRequest{
		Owner:            OwnerRequest{GivenName: "Sam", FamilyName: "Lee", Email: "Sam@X.com", Phone: "555-0111"},
		Message:          "Do you groom cats?",
		MarketingConsent: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "sam@x.com", lead.Email)
	assert.Equal(t, []string{EventLeadSubmitted}, f.notifier.types())

	cust, err := f.parties.GetCustomer(context.Background(), lead.CustomerID)
	require.NoError(t, err)
	assert.True(t, cust.MarketingConsent)

	_, err = f.parties.SubmitLead(context.Background(), LeadRequest{})
	var ve *domain.ValidationError
	assert.ErrorAs(t, err, &ve)
}
