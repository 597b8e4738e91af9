package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"charter/internal/domain"
	"charter/internal/service"
)

// DriverHandler handles HTTP requests for drivers.
type DriverHandler struct {
	driverService *service.DriverService
}

// NewDriverHandler creates a new DriverHandler.
func NewDriverHandler(driverService *service.DriverService) *DriverHandler {
	return &DriverHandler{driverService: driverService}
}

// CreateDriverRequest is the request body for registering a driver.
type CreateDriverRequest struct {
	Name       string  `json:"name" binding:"required"`
	Phone      string  `json:"phone" binding:"required"`
	HourlyRate float64 `json:"hourly_rate"`
	Onboarded  bool    `json:"onboarded"`
}

// AvailabilityRequest is the request body for setting availability.
type AvailabilityRequest struct {
	Available *bool `json:"available" binding:"required"`
}

// DriverResponse is the HTTP response for driver operations.
type DriverResponse struct {
	DriverID       string  `json:"driver_id"`
	Name           string  `json:"name"`
	Phone          string  `json:"phone"`
	Status         string  `json:"status"`
	HourlyRate     float64 `json:"hourly_rate"`
	LastAssignedAt string  `json:"last_assigned_at,omitempty"`
	TotalEarnings  float64 `json:"total_earnings"`
	Onboarded      bool    `json:"onboarded"`
}

// CreateDriver handles POST /v1/drivers
func (h *DriverHandler) CreateDriver(c *gin.Context) {
	var req CreateDriverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondJSON(c, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	driver, err := h.driverService.CreateDriver(c.Request.Context(), service.CreateDriverRequest{
		Name:       req.Name,
		Phone:      req.Phone,
		HourlyRate: req.HourlyRate,
		Onboarded:  req.Onboarded,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, toDriverResponse(driver))
}

// GetDriver handles GET /v1/drivers/:id
func (h *DriverHandler) GetDriver(c *gin.Context) {
	driver, err := h.driverService.GetDriver(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toDriverResponse(driver))
}

// GetAll handles GET /v1/drivers
func (h *DriverHandler) GetAll(c *gin.Context) {
	drivers, err := h.driverService.GetAllDrivers(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]DriverResponse, 0, len(drivers))
	for _, driver := range drivers {
		response = append(response, toDriverResponse(driver))
	}
	respondJSON(c, http.StatusOK, response)
}

// SetAvailability handles PUT /v1/drivers/:id/availability
func (h *DriverHandler) SetAvailability(c *gin.Context) {
	var req AvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondJSON(c, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	driver, err := h.driverService.SetAvailability(c.Request.Context(), c.Param("id"), *req.Available)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toDriverResponse(driver))
}

func toDriverResponse(driver *domain.Driver) DriverResponse {
	response := DriverResponse{
		DriverID:      driver.ID,
		Name:          driver.Name,
		Phone:         driver.Phone,
		Status:        string(driver.Status),
		HourlyRate:    driver.HourlyRate,
		TotalEarnings: driver.TotalEarnings,
		Onboarded:     driver.Onboarded,
	}
	if !driver.LastAssignedAt.IsZero() {
		response.LastAssignedAt = driver.LastAssignedAt.Format(time.RFC3339)
	}
	return response
}
