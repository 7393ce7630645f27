package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pawprint-grooming/service-booking/internal/application"
	"github.com/pawprint-grooming/service-booking/internal/cache"
	"github.com/pawprint-grooming/service-booking/internal/domain/alert"
	"github.com/pawprint-grooming/service-booking/internal/domain/catalog"
	"github.com/pawprint-grooming/service-booking/internal/domain/schedule"
	"github.com/pawprint-grooming/service-booking/internal/platform/auth"
	"github.com/pawprint-grooming/service-booking/internal/repository/memory"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Meta    *struct {
		Total int64 `json:"total"`
	} `json:"meta"`
	Error *struct {
		Code   string            `json:"code"`
		Fields map[string]string `json:"fields"`
		Reason string            `json:"reason"`
	} `json:"error"`
}

type testServer struct {
	router *gin.Engine
	jwt    *auth.JWTManager
	alerts *application.AlertService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := zap.NewNop()

	rules := schedule.OperatingRules{
		Open:           schedule.MustParseTimeOfDay("08:00"),
		Close:          schedule.MustParseTimeOfDay("17:00"),
		SlotMinutes:    30,
		ClosedWeekdays: []time.Weekday{time.Sunday, time.Monday},
	}

	bookingRepo := memory.NewBookingRepository()
	petRepo := memory.NewPetRepository()
	notifier := application.NopNotifier{}

	catalogSvc := application.NewCatalogService(memory.NewCatalogRepository(catalog.DefaultServices()...), log)
	parties := application.NewPartyRegistry(memory.NewCustomerRepository(), petRepo, notifier, log)
	availability := application.NewAvailabilityService(bookingRepo, petRepo, rules, cache.NopCache{}, time.Minute, nil, log)
	bookings := application.NewBookingService(bookingRepo, catalogSvc, parties, availability, notifier, nil, log).
		WithClock(func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) })
	alerts := application.NewAlertService(memory.NewAlertRepository(), log)
	jwtManager := auth.NewJWTManager("test-secret", "service-booking", time.Hour)

	router := gin.New()
	root := router.Group("")
	NewBookingHandler(bookings, availability, catalogSvc, parties).RegisterRoutes(root)
	NewAdminHandler(bookings, availability, catalogSvc, parties, alerts).RegisterRoutes(root, jwtManager)
	NewPetHandler(application.NewPetService(petRepo, log)).RegisterRoutes(root, jwtManager)

	return &testServer{router: router, jwt: jwtManager, alerts: alerts}
}

func (s *testServer) token(t *testing.T, role string) string {
	t.Helper()
	tok, err := s.jwt.GenerateToken(uuid.New(), role)
	require.NoError(t, err)
	return tok
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) (int, envelope) {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w.Code, env
}

func bookingBody(at string) map[string]interface{} {
	return map[string]interface{}{
		"services": []map[string]interface{}{{"code": "bath-time-bliss"}},
		"date":     "2025-03-04",
		"time":     at,
		"pet":      map[string]string{"name": "Biscuit", "breed": "Beagle"},
		"owner": map[string]string{
			"given_name":  "Jane",
			"family_name": "Doe",
			"email":       "jane@example.com",
			"phone":       "555-0100",
		},
	}
}

func TestCreateAndGetBooking(t *testing.T) {
	s := newTestServer(t)

	status, env := s.do(t, http.MethodPost, "/api/v1/bookings", "", bookingBody("09:00"))
	require.Equal(t, http.StatusCreated, status)
	require.True(t, env.Success)

	var conf application.BookingConfirmation
	require.NoError(t, json.Unmarshal(env.Data, &conf))
	assert.Equal(t, "confirmed", conf.Status)
	assert.Equal(t, "jane@example.com", conf.Customer.Email)
	assert.Equal(t, "Biscuit", conf.Pet.Name)

	status, env = s.do(t, http.MethodGet, "/api/v1/bookings/"+conf.BookingCode, "", nil)
	require.Equal(t, http.StatusOK, status)
	var got application.AppointmentDTO
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, conf.BookingCode, got.BookingCode)

	status, env = s.do(t, http.MethodGet, "/api/v1/bookings/BK-ZZZZZZ", "", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "not_found", env.Error.Code)
}

func TestCreateBookingErrors(t *testing.T) {
	s := newTestServer(t)

	status, _ := s.do(t, http.MethodPost, "/api/v1/bookings", "", bookingBody("09:00"))
	require.Equal(t, http.StatusCreated, status)

	status, env := s.do(t, http.MethodPost, "/api/v1/bookings", "", bookingBody("09:30"))
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "slot_unavailable", env.Error.Code)
	assert.Equal(t, "occupied", env.Error.Reason)

	status, env = s.do(t, http.MethodPost, "/api/v1/bookings", "", "{not json")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "bad_request", env.Error.Code)

	body := bookingBody("11:00")
	delete(body, "pet")
	status, env = s.do(t, http.MethodPost, "/api/v1/bookings", "", body)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "validation_error", env.Error.Code)
	assert.Contains(t, env.Error.Fields, "pet.name")

	body = bookingBody("11:00")
	body["services"] = []map[string]interface{}{{"code": "unicorn-wash"}}
	status, env = s.do(t, http.MethodPost, "/api/v1/bookings", "", body)
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "unknown_service", env.Error.Code)
}

func TestAvailabilityAndServices(t *testing.T) {
	s := newTestServer(t)

	status, _ := s.do(t, http.MethodPost, "/api/v1/bookings", "", bookingBody("09:00"))
	require.Equal(t, http.StatusCreated, status)

	status, env := s.do(t, http.MethodGet, "/api/v1/availability?date=2025-03-04", "", nil)
	require.Equal(t, http.StatusOK, status)
	var day application.PublicDayView
	require.NoError(t, json.Unmarshal(env.Data, &day))
	assert.False(t, day.Closed)
	assert.Len(t, day.Slots, 18)
	assert.Equal(t, 16, day.FreeSlots)
	assert.NotContains(t, string(env.Data), "Biscuit")

	status, env = s.do(t, http.MethodGet, "/api/v1/availability?date=tomorrow", "", nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "validation_error", env.Error.Code)

	status, env = s.do(t, http.MethodGet, "/api/v1/services", "", nil)
	require.Equal(t, http.StatusOK, status)
	var services []application.ServiceDTO
	require.NoError(t, json.Unmarshal(env.Data, &services))
	assert.Len(t, services, len(catalog.DefaultServices()))
}

func TestSubmitLead(t *testing.T) {
	s := newTestServer(t)

	status, env := s.do(t, http.MethodPost, "/api/v1/leads", "", map[string]interface{}{
		"owner":             bookingBody("09:00")["owner"],
		"message":           "Do you groom cats?",
		"marketing_consent": true,
	})
	require.Equal(t, http.StatusCreated, status)
	var lead application.LeadDTO
	require.NoError(t, json.Unmarshal(env.Data, &lead))
	assert.Equal(t, "jane@example.com", lead.Email)

	status, env = s.do(t, http.MethodGet, "/api/v1/admin/customers/"+lead.CustomerID.String(), s.token(t, auth.RoleStaff), nil)
	require.Equal(t, http.StatusOK, status)
	var cust application.CustomerDTO
	require.NoError(t, json.Unmarshal(env.Data, &cust))
	assert.True(t, cust.MarketingConsent)
}

func TestAdminRequiresOperatorToken(t *testing.T) {
	s := newTestServer(t)

	status, env := s.do(t, http.MethodGet, "/api/v1/admin/bookings", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "unauthorized", env.Error.Code)

	status, _ = s.do(t, http.MethodGet, "/api/v1/admin/bookings", s.token(t, "customer"), nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, env = s.do(t, http.MethodGet, "/api/v1/admin/bookings", s.token(t, auth.RoleStaff), nil)
	assert.Equal(t, http.StatusOK, status)
	require.NotNil(t, env.Meta)
	assert.Zero(t, env.Meta.Total)
}

func TestAdminStatusChangeAndSchedule(t *testing.T) {
	s := newTestServer(t)
	staff := s.token(t, auth.RoleStaff)

	_, env := s.do(t, http.MethodPost, "/api/v1/bookings", "", bookingBody("09:00"))
	var conf application.BookingConfirmation
	require.NoError(t, json.Unmarshal(env.Data, &conf))

	status, env := s.do(t, http.MethodGet, "/api/v1/admin/schedule?date=2025-03-04", staff, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(env.Data), "Biscuit")

	status, env = s.do(t, http.MethodPatch, "/api/v1/admin/bookings/"+conf.BookingCode+"/status", staff,
		map[string]string{"status": "completed"})
	require.Equal(t, http.StatusOK, status)
	var appt application.AppointmentDTO
	require.NoError(t, json.Unmarshal(env.Data, &appt))
	assert.Equal(t, "completed", appt.Status)

	status, env = s.do(t, http.MethodPatch, "/api/v1/admin/bookings/"+conf.BookingCode+"/status", staff,
		map[string]string{"status": "cancelled"})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "invalid_transition", env.Error.Code)

	status, env = s.do(t, http.MethodGet, "/api/v1/admin/bookings?date=2025-03-04", staff, nil)
	require.Equal(t, http.StatusOK, status)
	var day []application.AppointmentDTO
	require.NoError(t, json.Unmarshal(env.Data, &day))
	assert.Len(t, day, 1)

	status, env = s.do(t, http.MethodGet, "/api/v1/admin/customers/"+conf.CustomerID.String()+"/bookings", staff, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, int64(1), env.Meta.Total)

	status, env = s.do(t, http.MethodGet, "/api/v1/admin/customers/"+conf.CustomerID.String()+"/pets", staff, nil)
	require.Equal(t, http.StatusOK, status)
	var pets []application.PetDTO
	require.NoError(t, json.Unmarshal(env.Data, &pets))
	require.Len(t, pets, 1)
	assert.Equal(t, conf.Pet.ID, pets[0].ID)
}

func TestAdminCatalogMaintenance(t *testing.T) {
	s := newTestServer(t)
	upsert := map[string]interface{}{
		"name":             "Blueberry Facial",
		"duration_minutes": 15,
		"price_cents":      1000,
		"category":         "addon",
	}

	status, env := s.do(t, http.MethodPut, "/api/v1/admin/services/blueberry-facial", s.token(t, auth.RoleStaff), upsert)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "forbidden", env.Error.Code)

	admin := s.token(t, auth.RoleAdmin)
	status, env = s.do(t, http.MethodPut, "/api/v1/admin/services/blueberry-facial", admin, upsert)
	require.Equal(t, http.StatusOK, status)
	var svc application.ServiceDTO
	require.NoError(t, json.Unmarshal(env.Data, &svc))
	assert.True(t, svc.Active)

	status, env = s.do(t, http.MethodPost, "/api/v1/admin/services/blueberry-facial/retire", admin, nil)
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(env.Data, &svc))
	assert.False(t, svc.Active)

	_, env = s.do(t, http.MethodGet, "/api/v1/services", "", nil)
	assert.NotContains(t, string(env.Data), "blueberry-facial")
	_, env = s.do(t, http.MethodGet, "/api/v1/admin/services", admin, nil)
	assert.Contains(t, string(env.Data), "blueberry-facial")
}

func TestAdminAlerts(t *testing.T) {
	s := newTestServer(t)
	staff := s.token(t, auth.RoleStaff)
	require.NoError(t, s.alerts.Raise(t.Context(), alert.KindNotificationFailed, "BK-AAAAAA", "broker down"))

	status, env := s.do(t, http.MethodGet, "/api/v1/admin/alerts?unacknowledged=true", staff, nil)
	require.Equal(t, http.StatusOK, status)
	var alerts []application.AlertDTO
	require.NoError(t, json.Unmarshal(env.Data, &alerts))
	require.Len(t, alerts, 1)

	status, _ = s.do(t, http.MethodPost, "/api/v1/admin/alerts/"+alerts[0].ID.String()+"/ack", staff, nil)
	require.Equal(t, http.StatusOK, status)

	_, env = s.do(t, http.MethodGet, "/api/v1/admin/alerts?unacknowledged=true", staff, nil)
	assert.Zero(t, env.Meta.Total)

	status, _ = s.do(t, http.MethodPost, "/api/v1/admin/alerts/not-a-uuid/ack", staff, nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestAdminCustomerEditAndPetMerge(t *testing.T) {
	s := newTestServer(t)
	staff := s.token(t, auth.RoleStaff)

	_, env := s.do(t, http.MethodPost, "/api/v1/bookings", "", bookingBody("09:00"))
	var first application.BookingConfirmation
	require.NoError(t, json.Unmarshal(env.Data, &first))

	body := bookingBody("13:00")
	body["pet"] = map[string]string{"name": "Biscuit", "breed": "beagle"}
	_, env = s.do(t, http.MethodPost, "/api/v1/bookings", "", body)
	var second application.BookingConfirmation
	require.NoError(t, json.Unmarshal(env.Data, &second))
	require.NotEqual(t, first.Pet.ID, second.Pet.ID)

	status, env := s.do(t, http.MethodPut, "/api/v1/admin/customers/"+first.CustomerID.String(), staff,
		map[string]string{"phone": "555-0199"})
	require.Equal(t, http.StatusOK, status)
	var cust application.CustomerDTO
	require.NoError(t, json.Unmarshal(env.Data, &cust))
	assert.Equal(t, "555-0199", cust.Phone)

	status, env = s.do(t, http.MethodPost, "/api/v1/admin/pets/"+second.Pet.ID.String()+"/merge", staff,
		map[string]string{"target_id": "nope"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "validation_error", env.Error.Code)

	status, env = s.do(t, http.MethodPost, "/api/v1/admin/pets/"+second.Pet.ID.String()+"/merge", staff,
		map[string]string{"target_id": first.Pet.ID.String()})
	require.Equal(t, http.StatusOK, status)
	var merged application.PetDTO
	require.NoError(t, json.Unmarshal(env.Data, &merged))
	assert.Equal(t, "merged", merged.Status)
	require.NotNil(t, merged.MergedIntoID)
	assert.Equal(t, first.Pet.ID, *merged.MergedIntoID)

	// The next booking for the merged pet is attached to the surviving one.
	body["time"] = "15:00"
	_, env = s.do(t, http.MethodPost, "/api/v1/bookings", "", body)
	var third application.BookingConfirmation
	require.NoError(t, json.Unmarshal(env.Data, &third))
	assert.Equal(t, first.Pet.ID, third.Pet.ID)
}
