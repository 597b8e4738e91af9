package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"charter/internal/domain"
	"charter/internal/payments"
	"charter/internal/service"
)

// PaymentHandler handles payment initiation and the gateway webhook.
type PaymentHandler struct {
	quoteService *service.QuoteService
	gateway      payments.Gateway
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(quoteService *service.QuoteService, gateway payments.Gateway) *PaymentHandler {
	return &PaymentHandler{quoteService: quoteService, gateway: gateway}
}

// PayQuoteRequest is the request body for initiating payment.
type PayQuoteRequest struct {
	CustomerID string `json:"customer_id"`
	Currency   string `json:"currency"`
}

// PayQuoteResponse returns the gateway reference the client completes
// payment against.
type PayQuoteResponse struct {
	QuoteID         string  `json:"quote_id"`
	PaymentIntentID string  `json:"payment_intent_id"`
	Amount          float64 `json:"amount"`
	Currency        string  `json:"currency"`
}

// WebhookRequest is the gateway callback body. Only successful payment
// events carry a quote through to PAID; everything else is
// acknowledged and ignored.
type WebhookRequest struct {
	Type    string `json:"type" binding:"required"`
	QuoteID string `json:"quote_id" binding:"required"`
}

// PayQuote handles POST /v1/quotes/:id/pay
//
// It creates a payment intent for the quote's total. The quote itself
// only moves to PAID when the gateway confirms via webhook.
func (h *PaymentHandler) PayQuote(c *gin.Context) {
	var req PayQuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondJSON(c, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	quote, err := h.quoteService.GetQuote(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if quote.Status != domain.QuoteStatusQuoted {
		respondError(c, service.ErrQuoteNotQuoted)
		return
	}

	currency := req.Currency
	if currency == "" {
		currency = "usd"
	}

	intentID, err := h.gateway.Charge(c.Request.Context(), int64(quote.Pricing.Total*100), currency, req.CustomerID)
	if err != nil {
		respondJSON(c, http.StatusBadGateway, ErrorResponse{Error: err.Error()})
		return
	}

	respondJSON(c, http.StatusOK, PayQuoteResponse{
		QuoteID:         quote.ID,
		PaymentIntentID: intentID,
		Amount:          quote.Pricing.Total,
		Currency:        currency,
	})
}

// Webhook handles POST /v1/payments/webhook
//
// Idempotent: redelivered success events return the same reservation.
func (h *PaymentHandler) Webhook(c *gin.Context) {
	var req WebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondJSON(c, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	if req.Type != "payment.succeeded" {
		respondJSON(c, http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	reservation, err := h.quoteService.MarkPaid(c.Request.Context(), req.QuoteID)
	if err != nil {
		respondError(c, err)
		return
	}
	if reservation == nil {
		respondJSON(c, http.StatusOK, gin.H{"status": "already processed"})
		return
	}

	respondJSON(c, http.StatusOK, toReservationResponse(reservation))
}
