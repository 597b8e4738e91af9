package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// DriverCache caches driver snapshots for the assignment engine's
// candidate filtering. The engine still re-reads the winning driver
// from the database before committing an assignment, so a stale entry
// can only cost an extra read, never a wrong assignment.
type DriverCache struct {
	client *redis.Client
}

// NewDriverCache creates a new DriverCache.
func NewDriverCache(client *redis.Client) *DriverCache {
	return &DriverCache{client: client}
}

// DriverCacheTTL is short because availability flips on every trip
// start and cooldown expiry.
const DriverCacheTTL = 30 * time.Second

const driverCachePrefix = "cache:driver:"

// CachedDriver is the cached subset of a driver entity.
type CachedDriver struct {
	ID             string    `json:"id"`
	Status         string    `json:"status"`
	HourlyRate     float64   `json:"hourly_rate"`
	LastAssignedAt time.Time `json:"last_assigned_at"`
	Onboarded      bool      `json:"onboarded"`
}

// Get retrieves a driver from cache. Returns nil on a cache miss.
func (c *DriverCache) Get(ctx context.Context, driverID string) (*CachedDriver, error) {
	data, err := c.client.Get(ctx, driverCachePrefix+driverID).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}

	var driver CachedDriver
	if err := json.Unmarshal(data, &driver); err != nil {
		return nil, err
	}
	return &driver, nil
}

// Set stores a driver in cache.
func (c *DriverCache) Set(ctx context.Context, driver *CachedDriver) error {
	data, err := json.Marshal(driver)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, driverCachePrefix+driver.ID, data, DriverCacheTTL).Err()
}

// Invalidate removes a driver from cache, called after any status or
// assignment change.
func (c *DriverCache) Invalidate(ctx context.Context, driverID string) error {
	return c.client.Del(ctx, driverCachePrefix+driverID).Err()
}
