package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/pawprint-grooming/service-booking/internal/application"
	"github.com/pawprint-grooming/service-booking/internal/platform/auth"
	"github.com/pawprint-grooming/service-booking/internal/platform/middleware"
	"github.com/pawprint-grooming/service-booking/internal/platform/response"
	"github.com/pawprint-grooming/service-booking/internal/platform/validation"
)

// PetHandler handles operator requests for pet records.
type PetHandler struct {
	service *application.PetService
}

// NewPetHandler creates a new PetHandler.
func NewPetHandler(service *application.PetService) *PetHandler {
	return &PetHandler{service: service}
}

// RegisterRoutes registers all pet record routes.
func (h *PetHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	authMW := middleware.AuthMiddleware(jwtManager)
	operatorRole := middleware.RequireRole(auth.RoleAdmin, auth.RoleStaff)

	admin := r.Group("/api/v1/admin")
	admin.Use(authMW, operatorRole)
	{
		admin.GET("/customers/:id/pets", h.ListCustomerPets)
		admin.GET("/pets/:id", h.GetPet)
		admin.POST("/pets/:id/merge", h.MergePets)
	}
}

// ListCustomerPets returns every pet recorded for a customer.
func (h *PetHandler) ListCustomerPets(c *gin.Context) {
	customerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid customer ID")
		return
	}

	result, err := h.service.ListCustomerPets(c.Request.Context(), customerID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// GetPet returns a single pet record by ID.
func (h *PetHandler) GetPet(c *gin.Context) {
	petID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid pet ID")
		return
	}

	result, err := h.service.GetPet(c.Request.Context(), petID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// MergePets folds the pet in the path into the target named in the body.
func (h *PetHandler) MergePets(c *gin.Context) {
	sourceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid pet ID")
		return
	}

	var req application.MergePetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if err := validation.Struct(req); err != nil {
		response.Error(c, err)
		return
	}
	targetID, _ := uuid.Parse(req.TargetID)

	result, err := h.service.MergePets(c.Request.Context(), sourceID, targetID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}
