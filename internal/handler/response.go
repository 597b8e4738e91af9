package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"charter/internal/repository"
	"charter/internal/service"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`

	// Unpaid charge details, present only on payment-required errors.
	UnpaidAmount   float64 `json:"unpaid_amount,omitempty"`
	UnpaidCurrency string  `json:"unpaid_currency,omitempty"`
}

// respondError sends an error response with the appropriate HTTP status code.
func respondError(c *gin.Context, err error) {
	resp := ErrorResponse{Error: err.Error()}

	var unpaid *service.UnpaidChargesError
	if errors.As(err, &unpaid) {
		resp.UnpaidAmount = unpaid.Amount
		resp.UnpaidCurrency = unpaid.Currency
	}

	c.JSON(mapErrorToHTTPStatus(err), resp)
}

// respondJSON sends a JSON response with the given status code.
func respondJSON(c *gin.Context, code int, data any) {
	c.JSON(code, data)
}

// mapErrorToHTTPStatus maps service/repository errors to HTTP status codes.
func mapErrorToHTTPStatus(err error) int {
	var unpaid *service.UnpaidChargesError
	if errors.As(err, &unpaid) {
		return http.StatusPaymentRequired
	}

	switch {
	// Not found errors
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound

	// Validation errors - Bad Request
	case errors.Is(err, service.ErrInvalidQuoteID),
		errors.Is(err, service.ErrInvalidReservationID),
		errors.Is(err, service.ErrInvalidDriverID),
		errors.Is(err, service.ErrInvalidLocation),
		errors.Is(err, service.ErrItineraryRequired),
		errors.Is(err, service.ErrVehiclesRequired):
		return http.StatusBadRequest

	// Conflict errors
	case errors.Is(err, service.ErrQuoteNotSubmittable),
		errors.Is(err, service.ErrQuoteNotRecalculable),
		errors.Is(err, service.ErrQuoteNotQuoted),
		errors.Is(err, service.ErrTripAlreadyStarted),
		errors.Is(err, service.ErrTripNotStarted),
		errors.Is(err, service.ErrTripAlreadyEnded),
		errors.Is(err, service.ErrReservationClosed),
		errors.Is(err, service.ErrDriverHasActiveTrip):
		return http.StatusConflict

	// Rate limiting
	case errors.Is(err, service.ErrLocationThrottled):
		return http.StatusTooManyRequests

	// Service unavailable
	case errors.Is(err, service.ErrNoPricingConfig):
		return http.StatusServiceUnavailable

	// Default to internal server error
	default:
		return http.StatusInternalServerError
	}
}
