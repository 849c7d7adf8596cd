package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// CacheRepository caches computed free-slot lists per (storeId,
// treatmentId, date). Entries are invalidated when the store's timeslots
// are regenerated and otherwise expire with their TTL; a booking commit
// or cancellation does not invalidate them.
type CacheRepository struct {
	client *redis.Client
}

func NewCacheRepository(client *redis.Client) *CacheRepository {
	return &CacheRepository{client: client}
}

// AvailabilityKey builds the cache key for a (store, treatment, date)
// free-slot computation.
func AvailabilityKey(storeID, treatmentID, localDate string) string {
	return fmt.Sprintf("availability:%s:%s:%s", storeID, treatmentID, localDate)
}

// StoreInvalidationPattern matches every availability cache entry for a
// store, used by InvalidateStore.
func StoreInvalidationPattern(storeID string) string {
	return fmt.Sprintf("availability:%s:*", storeID)
}

func (r *CacheRepository) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value for %s: %w", key, err)
	}
	if err := r.client.Set(ctx, key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set cache key %s: %w", key, err)
	}
	return nil
}

// Get unmarshals the cached value into dest. Returns (false, nil) on a
// cache miss.
func (r *CacheRepository) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	payload, err := r.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get cache key %s: %w", key, err)
	}
	if err := json.Unmarshal(payload, dest); err != nil {
		return false, fmt.Errorf("failed to unmarshal cache value for %s: %w", key, err)
	}
	return true, nil
}

// InvalidateStore drops every cached availability computation for a
// store; the timeslot generation handler calls it after regenerating.
func (r *CacheRepository) InvalidateStore(ctx context.Context, storeID string) error {
	iter := r.client.Scan(ctx, 0, StoreInvalidationPattern(storeID), 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan cache keys for store %s: %w", storeID, err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to invalidate cache for store %s: %w", storeID, err)
	}
	return nil
}
