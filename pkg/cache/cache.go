// Package cache provides pluggable byte caches for service lookups.
//
// The infographics catalog stores the country/hierarchy table here so that
// a new process does not have to re-query the geoenrichment service. Four
// backends are available:
//
//   - [NullCache]: caching disabled
//   - [FileCache]: one JSON file per key, for CLI usage
//   - [RedisCache]: shared cache for multi-instance deployments
//   - [MongoCache]: document-store cache with a TTL index
//
// All backends treat an expired entry as a miss.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/matzehuels/infographics/pkg/observability"
)

// Cache is the interface implemented by all cache backends.
type Cache interface {
	// Get returns the data stored under key. A miss is (nil, false, nil).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A ttl of 0 means the entry never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases the backend's resources.
	Close() error
}

// Clearer is implemented by backends that can drop all of their entries.
type Clearer interface {
	// Clear removes every entry and returns how many were deleted.
	Clear(ctx context.Context) (int, error)
}

// GetJSON reads key from c and unmarshals it into v.
// keyType labels the lookup for the observability hooks.
func GetJSON(ctx context.Context, c Cache, keyType, key string, v any) (bool, error) {
	data, ok, err := c.Get(ctx, key)
	if err != nil || !ok {
		observability.Cache().OnCacheMiss(ctx, keyType)
		return false, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		observability.Cache().OnCacheMiss(ctx, keyType)
		return false, nil
	}
	observability.Cache().OnCacheHit(ctx, keyType)
	return true, nil
}

// SetJSON marshals v and stores it under key.
func SetJSON(ctx context.Context, c Cache, keyType, key string, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if err := c.Set(ctx, key, data, ttl); err != nil {
		return err
	}
	observability.Cache().OnCacheSet(ctx, keyType, len(data))
	return nil
}
