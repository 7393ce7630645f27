package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/pawprint-grooming/service-booking/internal/application"
	"github.com/pawprint-grooming/service-booking/internal/platform/auth"
	"github.com/pawprint-grooming/service-booking/internal/platform/middleware"
	"github.com/pawprint-grooming/service-booking/internal/platform/response"
)

// AdminHandler handles the operator surface: schedule, status changes,
// customer records, catalog maintenance and alerts.
type AdminHandler struct {
	bookings     *application.BookingService
	availability *application.AvailabilityService
	catalog      *application.CatalogService
	parties      *application.PartyRegistry
	alerts       *application.AlertService
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(
	bookings *application.BookingService,
	availability *application.AvailabilityService,
	catalog *application.CatalogService,
	parties *application.PartyRegistry,
	alerts *application.AlertService,
) *AdminHandler {
	return &AdminHandler{
		bookings:     bookings,
		availability: availability,
		catalog:      catalog,
		parties:      parties,
		alerts:       alerts,
	}
}

// RegisterRoutes registers admin routes behind token auth and the operator roles.
func (h *AdminHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	authMW := middleware.AuthMiddleware(jwtManager)
	operatorRole := middleware.RequireRole(auth.RoleAdmin, auth.RoleStaff)
	adminRole := middleware.RequireRole(auth.RoleAdmin)

	admin := r.Group("/api/v1/admin")
	admin.Use(authMW, operatorRole)
	{
		admin.GET("/bookings", h.ListBookings)
		admin.PATCH("/bookings/:code/status", h.UpdateStatus)
		admin.GET("/schedule", h.GetSchedule)

		admin.GET("/customers/:id", h.GetCustomer)
		admin.PUT("/customers/:id", h.UpdateCustomer)
		admin.GET("/customers/:id/bookings", h.ListCustomerBookings)

		admin.GET("/services", h.ListServices)
		admin.PUT("/services/:code", adminRole, h.UpsertService)
		admin.POST("/services/:code/retire", adminRole, h.RetireService)

		admin.GET("/alerts", h.ListAlerts)
		admin.POST("/alerts/:id/ack", h.AcknowledgeAlert)
	}
}

// ListBookings handles GET /api/v1/admin/bookings. With ?date= it returns the
// whole day including cancellations, otherwise a page of all bookings.
func (h *AdminHandler) ListBookings(c *gin.Context) {
	if date := c.Query("date"); date != "" {
		result, err := h.bookings.ListByDate(c.Request.Context(), date)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.Success(c, result)
		return
	}

	page, limit := parsePagination(c)
	result, err := h.bookings.ListAll(c.Request.Context(), page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Paginated(c, result.Items, result.Total, result.Page, result.Limit)
}

// UpdateStatus handles PATCH /api/v1/admin/bookings/:code/status.
func (h *AdminHandler) UpdateStatus(c *gin.Context) {
	var req application.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.bookings.UpdateStatus(c.Request.Context(), c.Param("code"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// GetSchedule handles GET /api/v1/admin/schedule?date=YYYY-MM-DD.
func (h *AdminHandler) GetSchedule(c *gin.Context) {
	result, err := h.availability.OperatorDay(c.Request.Context(), c.Query("date"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// GetCustomer handles GET /api/v1/admin/customers/:id.
func (h *AdminHandler) GetCustomer(c *gin.Context) {
	customerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid customer ID")
		return
	}

	result, err := h.parties.GetCustomer(c.Request.Context(), customerID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// UpdateCustomer handles PUT /api/v1/admin/customers/:id.
func (h *AdminHandler) UpdateCustomer(c *gin.Context) {
	customerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid customer ID")
		return
	}

	var req application.UpdateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.parties.UpdateCustomer(c.Request.Context(), customerID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// ListCustomerBookings handles GET /api/v1/admin/customers/:id/bookings.
func (h *AdminHandler) ListCustomerBookings(c *gin.Context) {
	customerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid customer ID")
		return
	}

	page, limit := parsePagination(c)
	result, err := h.bookings.ListByCustomer(c.Request.Context(), customerID, page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Paginated(c, result.Items, result.Total, result.Page, result.Limit)
}

// ListServices handles GET /api/v1/admin/services, including retired entries.
func (h *AdminHandler) ListServices(c *gin.Context) {
	result, err := h.catalog.List(c.Request.Context(), true)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// UpsertService handles PUT /api/v1/admin/services/:code.
func (h *AdminHandler) UpsertService(c *gin.Context) {
	var req application.UpsertServiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.catalog.Upsert(c.Request.Context(), c.Param("code"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// RetireService handles POST /api/v1/admin/services/:code/retire.
func (h *AdminHandler) RetireService(c *gin.Context) {
	result, err := h.catalog.Retire(c.Request.Context(), c.Param("code"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// ListAlerts handles GET /api/v1/admin/alerts. ?unacknowledged=true hides
// alerts that were already seen.
func (h *AdminHandler) ListAlerts(c *gin.Context) {
	page, limit := parsePagination(c)
	unackOnly := c.Query("unacknowledged") == "true"

	result, err := h.alerts.List(c.Request.Context(), unackOnly, page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Paginated(c, result.Items, result.Total, result.Page, result.Limit)
}

// AcknowledgeAlert handles POST /api/v1/admin/alerts/:id/ack.
func (h *AdminHandler) AcknowledgeAlert(c *gin.Context) {
	alertID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid alert ID")
		return
	}

	result, err := h.alerts.Acknowledge(c.Request.Context(), alertID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}
