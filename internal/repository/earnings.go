package repository

import (
	"context"

	"charter/internal/domain"
)

// EarningsRepository defines the persistence operations for driver
// earnings records.
type EarningsRepository interface {
	// Create persists a new earnings record. The store enforces at most
	// one record per reservation.
	Create(ctx context.Context, payment *domain.DriverPayment) error

	// GetByReservationID retrieves the earnings record for a
	// reservation. Returns nil if none exists.
	GetByReservationID(ctx context.Context, reservationID string) (*domain.DriverPayment, error)
}
