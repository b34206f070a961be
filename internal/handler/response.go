package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"carrental/internal/repository"
	"carrental/internal/service"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// MessageResponse represents a plain acknowledgement.
type MessageResponse struct {
	Message string `json:"message"`
}

const internalErrorMessage = "Server error"

// respondError sends an error response with the appropriate HTTP status code.
// Internal errors are attached to the context for logging and replaced by a
// generic message.
func respondError(c *gin.Context, err error) {
	code := mapErrorToHTTPStatus(err)
	if code == http.StatusInternalServerError {
		_ = c.Error(err)
		c.JSON(code, ErrorResponse{Error: internalErrorMessage})
		return
	}
	c.JSON(code, ErrorResponse{Error: err.Error()})
}

// respondJSON sends a JSON response with the given status code.
func respondJSON(c *gin.Context, code int, data any) {
	c.JSON(code, data)
}

// mapErrorToHTTPStatus maps service/repository errors to HTTP status codes.
func mapErrorToHTTPStatus(err error) int {
	switch {
	// Not found errors
	case errors.Is(err, repository.ErrNotFound),
		errors.Is(err, service.ErrCarNotFound),
		errors.Is(err, service.ErrRentalNotFound),
		errors.Is(err, service.ErrUserNotFound):
		return http.StatusNotFound

	// Validation errors - Bad Request
	case errors.Is(err, service.ErrInvalidDate),
		errors.Is(err, service.ErrInvalidDateRange),
		errors.Is(err, service.ErrMissingDates),
		errors.Is(err, service.ErrInvalidStatus),
		errors.Is(err, service.ErrInvalidRate),
		errors.Is(err, service.ErrInvalidID),
		errors.Is(err, errInvalidBody):
		return http.StatusBadRequest

	case errors.Is(err, service.ErrUnauthorized):
		return http.StatusUnauthorized

	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden

	// Conflict errors
	case errors.Is(err, service.ErrBookingConflict),
		errors.Is(err, service.ErrRentalCompleted):
		return http.StatusConflict

	// Service unavailable
	case errors.Is(err, service.ErrLockUnavailable):
		return http.StatusServiceUnavailable

	// Default to internal server error
	default:
		return http.StatusInternalServerError
	}
}
