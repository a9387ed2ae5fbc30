// Package cache stores resolved OID names between tracing sessions.
//
// Resolving an OID means a round trip to the database catalog. Names of
// relations rarely change, so resolvers keep what they learned in a [Cache]
// that outlives the process: a [FileCache] under the user cache directory
// for the command line, a [RedisCache] when several tracers share one
// catalog, or a [NullCache] to disable caching.
//
// Keys come from a [Keyer]. Database URLs are hashed into the key so that
// credentials never end up in file names or Redis keys.
package cache

import (
	"context"
	"fmt"
	"time"
)

// Cache is a byte-oriented key/value store with optional expiry.
type Cache interface {
	// Get returns the value stored under key. A missing or expired key is
	// reported as a miss, not as an error.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A ttl of zero never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases resources held by the cache.
	Close() error
}

// Keyer builds cache keys.
type Keyer interface {
	// OIDKey returns the key of the name of oid in the given database.
	OIDKey(database string, oid uint32) string

	// CatalogKey returns the key of the warm catalog snapshot of database.
	CatalogKey(database string) string
}

// DefaultKeyer is the Keyer used when none is configured.
type DefaultKeyer struct{}

// NewDefaultKeyer returns a DefaultKeyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// OIDKey returns "oid:<hash>:<oid>".
func (DefaultKeyer) OIDKey(database string, oid uint32) string {
	return fmt.Sprintf("%s:%d", hashKey("oid", database), oid)
}

// CatalogKey returns "catalog:<hash>".
func (DefaultKeyer) CatalogKey(database string) string {
	return hashKey("catalog", database)
}
