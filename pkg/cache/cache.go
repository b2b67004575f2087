// Package cache stores computed layouts keyed by graph content and options.
//
// A [Cache] is a byte store with per-entry TTL. Backends:
//
//   - [FileCache]: one JSON file per entry, for the CLI
//   - [RedisCache]: a shared Redis instance, for the API server
//   - [MongoCache]: a MongoDB collection with expiry timestamps
//   - [NullCache]: stores nothing
//
// Keys are produced by a [Keyer] so that equal graphs laid out with equal
// options map to the same entry regardless of backend.
package cache

import (
	"context"
	"time"
)

// Default TTLs per entry type.
const (
	// TTLLayout is how long a computed layout stays cached. Layouts are a
	// pure function of graph and options, so they only expire to bound size.
	TTLLayout = 7 * 24 * time.Hour
)

// Cache is a byte store with optional expiry.
//
// Get reports a miss as (nil, false, nil); errors are reserved for backend
// failures. A zero ttl in Set means the entry does not expire.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}
