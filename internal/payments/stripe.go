// Package payments wraps the payment gateway. The lifecycle core only
// consumes the gateway's success signal and the unpaid-charge total;
// charge and refund creation live behind the Gateway interface.
package payments

import (
	"context"

	stripe "github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/paymentintent"
	"github.com/stripe/stripe-go/v74/refund"
)

// Gateway is the payment provider surface consumed by handlers.
type Gateway interface {
	// Charge creates a payment intent for the amount in minor units
	// and returns its id.
	Charge(ctx context.Context, amountMinor int64, currency, customerID string) (string, error)

	// Refund reverses a previously captured payment intent.
	Refund(ctx context.Context, paymentIntentID string) error
}

// StripeGateway is a thin wrapper around stripe-go.
type StripeGateway struct{}

// NewStripeGateway initializes the gateway with the given API key.
func NewStripeGateway(apiKey string) *StripeGateway {
	stripe.Key = apiKey
	return &StripeGateway{}
}

// Charge creates a PaymentIntent and returns its id.
func (g *StripeGateway) Charge(ctx context.Context, amountMinor int64, currency, customerID string) (string, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amountMinor),
		Currency: stripe.String(currency),
	}
	if customerID != "" {
		params.Customer = stripe.String(customerID)
	}
	pi, err := paymentintent.New(params)
	if err != nil {
		return "", err
	}
	return pi.ID, nil
}

// Refund reverses a captured PaymentIntent.
func (g *StripeGateway) Refund(ctx context.Context, paymentIntentID string) error {
	_, err := refund.New(&stripe.RefundParams{PaymentIntent: stripe.String(paymentIntentID)})
	return err
}

// Ensure StripeGateway implements Gateway.
var _ Gateway = (*StripeGateway)(nil)
