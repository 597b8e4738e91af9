package redis

import (
	"context"
	"time"
)

// ThrottleStoreInterface defines the location throttle marker operations.
type ThrottleStoreInterface interface {
	TryMark(ctx context.Context, driverID, reservationID string, ttl time.Duration) (bool, error)
	Clear(ctx context.Context, driverID, reservationID string) error
}

// TripLocationStoreInterface defines the trip location record operations.
type TripLocationStoreInterface interface {
	Set(ctx context.Context, loc *TripLocation, ttl time.Duration) error
	Get(ctx context.Context, reservationID string) (*TripLocation, error)
	Delete(ctx context.Context, reservationID string) error
}

// Ensure concrete types implement interfaces.
var (
	_ ThrottleStoreInterface     = (*ThrottleStore)(nil)
	_ TripLocationStoreInterface = (*TripLocationStore)(nil)
)
