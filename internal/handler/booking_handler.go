package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/pawprint-grooming/service-booking/internal/application"
	"github.com/pawprint-grooming/service-booking/internal/platform/response"
)

// BookingHandler serves the public booking surface used by the website.
type BookingHandler struct {
	bookings     *application.BookingService
	availability *application.AvailabilityService
	catalog      *application.CatalogService
	parties      *application.PartyRegistry
}

// NewBookingHandler creates a new BookingHandler.
func NewBookingHandler(
	bookings *application.BookingService,
	availability *application.AvailabilityService,
	catalog *application.CatalogService,
	parties *application.PartyRegistry,
) *BookingHandler {
	return &BookingHandler{
		bookings:     bookings,
		availability: availability,
		catalog:      catalog,
		parties:      parties,
	}
}

// RegisterRoutes registers the public routes. None of them require a token.
func (h *BookingHandler) RegisterRoutes(r *gin.RouterGroup) {
	v1 := r.Group("/api/v1")
	{
		v1.POST("/bookings", h.CreateBooking)
		v1.GET("/bookings/:code", h.GetBooking)
		v1.GET("/availability", h.GetAvailability)
		v1.GET("/services", h.ListServices)
		v1.POST("/leads", h.SubmitLead)
	}
}

// CreateBooking handles POST /api/v1/bookings.
func (h *BookingHandler) CreateBooking(c *gin.Context) {
	var req application.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.bookings.CreateBooking(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, result)
}

// GetBooking handles GET /api/v1/bookings/:code.
func (h *BookingHandler) GetBooking(c *gin.Context) {
	result, err := h.bookings.GetBooking(c.Request.Context(), c.Param("code"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// GetAvailability handles GET /api/v1/availability?date=YYYY-MM-DD.
func (h *BookingHandler) GetAvailability(c *gin.Context) {
	result, err := h.availability.PublicDay(c.Request.Context(), c.Query("date"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// ListServices handles GET /api/v1/services. Only active services are listed.
func (h *BookingHandler) ListServices(c *gin.Context) {
	result, err := h.catalog.List(c.Request.Context(), false)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// SubmitLead handles POST /api/v1/leads.
func (h *BookingHandler) SubmitLead(c *gin.Context) {
	var req application.LeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.parties.SubmitLead(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, result)
}

// parsePagination extracts page and limit query parameters with defaults.
func parsePagination(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	return page, limit
}
