package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"charter/internal/domain"
	"charter/internal/service"
)

// ReservationHandler handles HTTP requests for reservations and their
// trip lifecycle.
type ReservationHandler struct {
	tripService     *service.TripService
	locationService *service.LocationService
}

// NewReservationHandler creates a new ReservationHandler.
func NewReservationHandler(tripService *service.TripService, locationService *service.LocationService) *ReservationHandler {
	return &ReservationHandler{tripService: tripService, locationService: locationService}
}

// DriverActionRequest identifies the driver performing a trip action.
type DriverActionRequest struct {
	DriverID string `json:"driver_id" binding:"required"`
}

// LocationUpdateRequest is the request body for a location update.
type LocationUpdateRequest struct {
	DriverID string  `json:"driver_id" binding:"required"`
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
}

// ReservationResponse is the HTTP response for reservation operations.
type ReservationResponse struct {
	ReservationID    string `json:"reservation_id"`
	QuoteID          string `json:"quote_id"`
	AssignedDriverID string `json:"assigned_driver_id"`
	Status           string `json:"status"`
	StartedAt        string `json:"started_at,omitempty"`
	CompletedAt      string `json:"completed_at,omitempty"`
	CreatedAt        string `json:"created_at"`
}

// LocationResponse is the HTTP response for a location lookup.
type LocationResponse struct {
	ReservationID string  `json:"reservation_id"`
	DriverID      string  `json:"driver_id"`
	Lat           float64 `json:"lat"`
	Lng           float64 `json:"lng"`
	CapturedAt    string  `json:"captured_at"`
}

// GetReservation handles GET /v1/reservations/:id
func (h *ReservationHandler) GetReservation(c *gin.Context) {
	reservation, err := h.tripService.GetReservation(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toReservationResponse(reservation))
}

// StartTrip handles POST /v1/reservations/:id/start
func (h *ReservationHandler) StartTrip(c *gin.Context) {
	var req DriverActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondJSON(c, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	reservation, err := h.tripService.StartTrip(c.Request.Context(), c.Param("id"), req.DriverID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toReservationResponse(reservation))
}

// EndTrip handles POST /v1/reservations/:id/end
func (h *ReservationHandler) EndTrip(c *gin.Context) {
	var req DriverActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondJSON(c, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	reservation, err := h.tripService.EndTrip(c.Request.Context(), c.Param("id"), req.DriverID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toReservationResponse(reservation))
}

// UpdateLocation handles POST /v1/reservations/:id/location
func (h *ReservationHandler) UpdateLocation(c *gin.Context) {
	var req LocationUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondJSON(c, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	err := h.locationService.UpdateLocation(c.Request.Context(), c.Param("id"), req.DriverID, req.Lat, req.Lng)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusAccepted, gin.H{"status": "accepted"})
}

// GetLocation handles GET /v1/reservations/:id/location
func (h *ReservationHandler) GetLocation(c *gin.Context) {
	loc, err := h.locationService.GetLocation(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if loc == nil {
		respondJSON(c, http.StatusNotFound, ErrorResponse{Error: "no location recorded"})
		return
	}

	respondJSON(c, http.StatusOK, LocationResponse{
		ReservationID: loc.ReservationID,
		DriverID:      loc.DriverID,
		Lat:           loc.Lat,
		Lng:           loc.Lng,
		CapturedAt:    loc.CapturedAt.Format(time.RFC3339),
	})
}

func toReservationResponse(reservation *domain.Reservation) ReservationResponse {
	response := ReservationResponse{
		ReservationID:    reservation.ID,
		QuoteID:          reservation.QuoteID,
		AssignedDriverID: reservation.AssignedDriverID,
		Status:           string(reservation.Status),
		CreatedAt:        reservation.CreatedAt.Format(time.RFC3339),
	}
	if !reservation.StartedAt.IsZero() {
		response.StartedAt = reservation.StartedAt.Format(time.RFC3339)
	}
	if !reservation.CompletedAt.IsZero() {
		response.CompletedAt = reservation.CompletedAt.Format(time.RFC3339)
	}
	return response
}
