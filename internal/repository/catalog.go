package repository

import (
	"context"

	"charter/internal/domain"
)

// VehicleRepository defines lookups for the vehicle catalog.
type VehicleRepository interface {
	// GetByIDs retrieves vehicles by id, preserving input order.
	GetByIDs(ctx context.Context, ids []string) ([]domain.Vehicle, error)
}

// AmenityRepository defines lookups for the amenity catalog.
type AmenityRepository interface {
	// GetByIDs retrieves amenities by id, preserving input order.
	GetByIDs(ctx context.Context, ids []string) ([]domain.Amenity, error)
}

// PricingConfigRepository retrieves the active pricing configuration.
type PricingConfigRepository interface {
	// GetActive returns the active pricing configuration, or
	// ErrNotFound if none is configured.
	GetActive(ctx context.Context) (*domain.PricingConfig, error)
}

// ChargeRepository exposes the settlement state of reservation charges.
// Charge creation itself belongs to the payment gateway integration.
type ChargeRepository interface {
	// UnpaidTotalByReservation returns the total unpaid amount and its
	// currency for a reservation. Zero means completion may proceed.
	UnpaidTotalByReservation(ctx context.Context, reservationID string) (float64, string, error)
}
