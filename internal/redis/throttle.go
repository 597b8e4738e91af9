package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ThrottleStore enforces the per-trip location update rate limit with a
// marker key under TTL. SetNX makes marker creation the admission
// check: while the marker lives, further writes are rejected.
type ThrottleStore struct {
	client *redis.Client
}

// NewThrottleStore creates a new ThrottleStore.
func NewThrottleStore(client *redis.Client) *ThrottleStore {
	return &ThrottleStore{client: client}
}

func throttleKey(driverID, reservationID string) string {
	return fmt.Sprintf("throttle:location:%s:%s", driverID, reservationID)
}

// TryMark attempts to place the throttle marker. Returns true if the
// marker was placed (update admitted), false if one already exists.
func (s *ThrottleStore) TryMark(ctx context.Context, driverID, reservationID string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, throttleKey(driverID, reservationID), "1", ttl).Result()
	if err != nil {
		return false, err
	}
	return ok, nil
}

// Clear removes the throttle marker, used on trip completion.
func (s *ThrottleStore) Clear(ctx context.Context, driverID, reservationID string) error {
	return s.client.Del(ctx, throttleKey(driverID, reservationID)).Err()
}
