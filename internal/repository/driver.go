package repository

import (
	"context"
	"time"

	"charter/internal/domain"
)

// DriverRepository defines the persistence operations for drivers.
type DriverRepository interface {
	// Create adds a new driver.
	Create(ctx context.Context, driver *domain.Driver) error

	// GetByID retrieves a driver by ID.
	GetByID(ctx context.Context, id string) (*domain.Driver, error)

	// GetAll retrieves all drivers.
	GetAll(ctx context.Context) ([]*domain.Driver, error)

	// ListAssignable retrieves drivers with status AVAILABLE and
	// onboarding complete.
	ListAssignable(ctx context.Context) ([]*domain.Driver, error)

	// ListByStatus retrieves all drivers in the given status.
	ListByStatus(ctx context.Context, status domain.DriverStatus) ([]*domain.Driver, error)

	// UpdateStatus updates the status of a driver.
	UpdateStatus(ctx context.Context, id string, status domain.DriverStatus) error

	// SetLastAssignedAt records the moment of a genuine new assignment.
	SetLastAssignedAt(ctx context.Context, id string, at time.Time) error

	// IncrementEarnings adds amount to the driver's total earnings.
	IncrementEarnings(ctx context.Context, id string, amount float64) error
}
