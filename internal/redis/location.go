package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

const tripLocationPrefix = "trip:location:"

// TripLocation is the last known driver position for an active trip.
type TripLocation struct {
	ReservationID string    `json:"reservation_id"`
	DriverID      string    `json:"driver_id"`
	Lat           float64   `json:"lat"`
	Lng           float64   `json:"lng"`
	CapturedAt    time.Time `json:"captured_at"`
}

// TripLocationStore keeps the per-reservation location record. Records
// exist only while a trip is active: the TTL bounds their lifetime and
// trip completion deletes them explicitly.
type TripLocationStore struct {
	client *redis.Client
}

// NewTripLocationStore creates a new TripLocationStore.
func NewTripLocationStore(client *redis.Client) *TripLocationStore {
	return &TripLocationStore{client: client}
}

// Set overwrites the location record for a reservation.
func (s *TripLocationStore) Set(ctx context.Context, loc *TripLocation, ttl time.Duration) error {
	data, err := json.Marshal(loc)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, tripLocationPrefix+loc.ReservationID, data, ttl).Err()
}

// Get retrieves the location record for a reservation. Returns nil on a
// cache miss.
func (s *TripLocationStore) Get(ctx context.Context, reservationID string) (*TripLocation, error) {
	data, err := s.client.Get(ctx, tripLocationPrefix+reservationID).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}

	var loc TripLocation
	if err := json.Unmarshal(data, &loc); err != nil {
		return nil, err
	}
	return &loc, nil
}

// Delete removes the location record for a reservation.
func (s *TripLocationStore) Delete(ctx context.Context, reservationID string) error {
	return s.client.Del(ctx, tripLocationPrefix+reservationID).Err()
}
