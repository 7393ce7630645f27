// Package response writes the JSON envelope shared by every endpoint.
package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pawprint-grooming/service-booking/internal/domain"
)

// Envelope is the top-level response body.
type Envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Meta    *Meta       `json:"meta,omitempty"`
	Error   *ErrorBody  `json:"error,omitempty"`
}

// Meta carries pagination details.
type Meta struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int   `json:"total_pages"`
}

// ErrorBody describes a failed request.
type ErrorBody struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
	Reason  string            `json:"reason,omitempty"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Envelope{Success: true, Data: data})
}

func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Envelope{Success: true, Data: data})
}

// Paginated writes a page of items with its meta block.
func Paginated(c *gin.Context, items interface{}, total int64, page, limit int) {
	pages := 0
	if limit > 0 {
		pages = int((total + int64(limit) - 1) / int64(limit))
	}
	c.JSON(http.StatusOK, Envelope{
		Success: true,
		Data:    items,
		Meta:    &Meta{Total: total, Page: page, Limit: limit, TotalPages: pages},
	})
}

func BadRequest(c *gin.Context, message string) {
	Fail(c, http.StatusBadRequest, "bad_request", message)
}

func Unauthorized(c *gin.Context, message string) {
	Fail(c, http.StatusUnauthorized, "unauthorized", message)
}

func Forbidden(c *gin.Context, message string) {
	Fail(c, http.StatusForbidden, "forbidden", message)
}

// Fail aborts the request with the given status and error body.
func Fail(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, Envelope{Success: false, Error: &ErrorBody{Code: code, Message: message}})
}

// Error maps a domain error onto its HTTP status. Unrecognized errors are 500s
// and their message is not echoed to the caller.
func Error(c *gin.Context, err error) {
	status, body := Classify(err)
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, Envelope{Success: false, Error: body})
}

// Classify returns the HTTP status and error body for err.
func Classify(err error) (int, *ErrorBody) {
	var (
		validation *domain.ValidationError
		unknown    *domain.UnknownServiceError
		inactive   *domain.InactiveServiceError
		slot       *domain.SlotUnavailableError
		transition *domain.InvalidTransitionError
		notFound   *domain.NotFoundError
		storage    *domain.StorageError
		conflict   *domain.ConflictError
		forbidden  *domain.ForbiddenError
	)

	switch {
	case errors.As(err, &validation):
		return http.StatusBadRequest, &ErrorBody{Code: "validation_error", Message: validation.Message, Fields: validation.Fields}
	case errors.As(err, &unknown):
		return http.StatusUnprocessableEntity, &ErrorBody{Code: "unknown_service", Message: unknown.Error()}
	case errors.As(err, &inactive):
		return http.StatusUnprocessableEntity, &ErrorBody{Code: "inactive_service", Message: inactive.Error()}
	case errors.As(err, &slot):
		return http.StatusConflict, &ErrorBody{Code: "slot_unavailable", Message: slot.Error(), Reason: slot.Reason}
	case errors.As(err, &transition):
		return http.StatusConflict, &ErrorBody{Code: "invalid_transition", Message: transition.Error()}
	case errors.As(err, &notFound):
		return http.StatusNotFound, &ErrorBody{Code: "not_found", Message: notFound.Error()}
	case errors.As(err, &conflict):
		return http.StatusConflict, &ErrorBody{Code: "conflict", Message: conflict.Error()}
	case errors.As(err, &forbidden):
		return http.StatusForbidden, &ErrorBody{Code: "forbidden", Message: forbidden.Error()}
	case errors.As(err, &storage):
		return http.StatusServiceUnavailable, &ErrorBody{Code: "storage_unavailable", Message: "storage is temporarily unavailable"}
	default:
		return http.StatusInternalServerError, &ErrorBody{Code: "internal_error", Message: "internal server error"}
	}
}
