package repository

import (
	"context"

	"charter/internal/domain"
)

// ReservationRepository defines the persistence operations for reservations.
type ReservationRepository interface {
	// Create persists a new reservation.
	Create(ctx context.Context, reservation *domain.Reservation) error

	// GetByID retrieves a reservation by ID.
	GetByID(ctx context.Context, id string) (*domain.Reservation, error)

	// Update updates an existing reservation.
	Update(ctx context.Context, reservation *domain.Reservation) error

	// GetByQuoteID retrieves the reservation created from a quote.
	// Returns nil if none exists.
	GetByQuoteID(ctx context.Context, quoteID string) (*domain.Reservation, error)

	// GetActiveByDriverID retrieves the driver's started-not-completed
	// reservation. Returns nil if none exists.
	GetActiveByDriverID(ctx context.Context, driverID string) (*domain.Reservation, error)

	// ListActive retrieves all started-not-completed reservations.
	ListActive(ctx context.Context) ([]*domain.Reservation, error)

	// LatestCompletedByDriverID retrieves the driver's most recently
	// completed reservation. Returns nil if none exists.
	LatestCompletedByDriverID(ctx context.Context, driverID string) (*domain.Reservation, error)
}
