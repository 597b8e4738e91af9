package domain

import "time"

// DriverPayment is an earnings record tying one completed reservation to
// one credit of the driver's total earnings. Its existence is the
// double-credit guard: at most one record per reservation.
type DriverPayment struct {
	ID            string
	DriverID      string
	ReservationID string
	QuoteID       string
	Amount        float64
	CreatedAt     time.Time
}
