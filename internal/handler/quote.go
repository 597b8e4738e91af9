package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"charter/internal/domain"
	"charter/internal/service"
)

// QuoteHandler handles HTTP requests for quotes.
type QuoteHandler struct {
	quoteService *service.QuoteService
}

// NewQuoteHandler creates a new QuoteHandler.
func NewQuoteHandler(quoteService *service.QuoteService) *QuoteHandler {
	return &QuoteHandler{quoteService: quoteService}
}

// StopRequest is one itinerary stop in a request body.
type StopRequest struct {
	Name     string    `json:"name"`
	Lat      float64   `json:"lat"`
	Lng      float64   `json:"lng"`
	ArriveAt time.Time `json:"arrive_at" binding:"required"`
	DepartAt time.Time `json:"depart_at"`
}

// CreateQuoteRequest is the request body for creating a quote.
type CreateQuoteRequest struct {
	RequesterID string        `json:"requester_id" binding:"required"`
	Stops       []StopRequest `json:"stops" binding:"required"`
	VehicleIDs  []string      `json:"vehicle_ids" binding:"required"`
	AmenityIDs  []string      `json:"amenity_ids"`
}

// RecalculateQuoteRequest is the request body for recalculating a
// quote. Omitted fields keep their current values.
type RecalculateQuoteRequest struct {
	Stops      []StopRequest `json:"stops"`
	VehicleIDs []string      `json:"vehicle_ids"`
	AmenityIDs []string      `json:"amenity_ids"`
}

// PricingResponse is the fare breakdown in a quote response.
type PricingResponse struct {
	BaseFare      float64 `json:"base_fare"`
	DistanceFare  float64 `json:"distance_fare"`
	NightCharge   float64 `json:"night_charge"`
	AmenityCharge float64 `json:"amenity_charge"`
	DriverCharge  float64 `json:"driver_charge"`
	Tax           float64 `json:"tax"`
	Total         float64 `json:"total"`
}

// QuoteResponse is the HTTP response for quote operations.
type QuoteResponse struct {
	QuoteID          string          `json:"quote_id"`
	RequesterID      string          `json:"requester_id"`
	Status           string          `json:"status"`
	Stops            []StopRequest   `json:"stops"`
	VehicleIDs       []string        `json:"vehicle_ids"`
	AmenityIDs       []string        `json:"amenity_ids,omitempty"`
	AssignedDriverID string          `json:"assigned_driver_id,omitempty"`
	Pricing          PricingResponse `json:"pricing"`
	QuotedAt         string          `json:"quoted_at,omitempty"`
	CreatedAt        string          `json:"created_at"`
}

// RecalculateResponse is the HTTP response for a recalculation.
type RecalculateResponse struct {
	Quote                   *QuoteResponse `json:"quote,omitempty"`
	NeedsVehicleReselection bool           `json:"needs_vehicle_reselection"`
	ConflictingVehicleIDs   []string       `json:"conflicting_vehicle_ids,omitempty"`
}

// CreateQuote handles POST /v1/quotes
func (h *QuoteHandler) CreateQuote(c *gin.Context) {
	var req CreateQuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondJSON(c, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	quote, err := h.quoteService.CreateQuote(c.Request.Context(), service.CreateQuoteRequest{
		RequesterID: req.RequesterID,
		Stops:       toDomainStops(req.Stops),
		VehicleIDs:  req.VehicleIDs,
		AmenityIDs:  req.AmenityIDs,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, toQuoteResponse(quote))
}

// GetQuote handles GET /v1/quotes/:id
func (h *QuoteHandler) GetQuote(c *gin.Context) {
	quote, err := h.quoteService.GetQuote(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toQuoteResponse(quote))
}

// Submit handles POST /v1/quotes/:id/submit
func (h *QuoteHandler) Submit(c *gin.Context) {
	quote, err := h.quoteService.Submit(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toQuoteResponse(quote))
}

// Recalculate handles POST /v1/quotes/:id/recalculate
func (h *QuoteHandler) Recalculate(c *gin.Context) {
	var req RecalculateQuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondJSON(c, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	svcReq := service.RecalculateRequest{
		QuoteID:    c.Param("id"),
		VehicleIDs: req.VehicleIDs,
		AmenityIDs: req.AmenityIDs,
	}
	if req.Stops != nil {
		svcReq.Stops = toDomainStops(req.Stops)
	}

	result, err := h.quoteService.Recalculate(c.Request.Context(), svcReq)
	if err != nil {
		respondError(c, err)
		return
	}

	response := RecalculateResponse{
		NeedsVehicleReselection: result.NeedsVehicleReselection,
		ConflictingVehicleIDs:   result.ConflictingVehicleIDs,
	}
	if result.Quote != nil {
		qr := toQuoteResponse(result.Quote)
		response.Quote = &qr
	}

	code := http.StatusOK
	if result.NeedsVehicleReselection {
		code = http.StatusConflict
	}
	respondJSON(c, code, response)
}

func toDomainStops(stops []StopRequest) []domain.Stop {
	out := make([]domain.Stop, len(stops))
	for i, s := range stops {
		out[i] = domain.Stop{
			Name:     s.Name,
			Lat:      s.Lat,
			Lng:      s.Lng,
			ArriveAt: s.ArriveAt,
			DepartAt: s.DepartAt,
		}
	}
	return out
}

func toQuoteResponse(quote *domain.Quote) QuoteResponse {
	stops := make([]StopRequest, len(quote.Stops))
	for i, s := range quote.Stops {
		stops[i] = StopRequest{
			Name:     s.Name,
			Lat:      s.Lat,
			Lng:      s.Lng,
			ArriveAt: s.ArriveAt,
			DepartAt: s.DepartAt,
		}
	}

	response := QuoteResponse{
		QuoteID:          quote.ID,
		RequesterID:      quote.RequesterID,
		Status:           string(quote.Status),
		Stops:            stops,
		VehicleIDs:       quote.VehicleIDs,
		AmenityIDs:       quote.AmenityIDs,
		AssignedDriverID: quote.AssignedDriverID,
		Pricing: PricingResponse{
			BaseFare:      quote.Pricing.BaseFare,
			DistanceFare:  quote.Pricing.DistanceFare,
			NightCharge:   quote.Pricing.NightCharge,
			AmenityCharge: quote.Pricing.AmenityCharge,
			DriverCharge:  quote.Pricing.DriverCharge,
			Tax:           quote.Pricing.Tax,
			Total:         quote.Pricing.Total,
		},
		CreatedAt: quote.CreatedAt.Format(time.RFC3339),
	}
	if !quote.QuotedAt.IsZero() {
		response.QuotedAt = quote.QuotedAt.Format(time.RFC3339)
	}
	return response
}
