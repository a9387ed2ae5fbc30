package cache

import (
	"context"
	"time"
)

// NullCache stores nothing, so every OID lookup goes to the catalog. It
// backs catalogs for the "none" backend, for --no-cache, and when there is
// no cache directory.
type NullCache struct{}

// NewNullCache returns a cache that always misses.
func NewNullCache() Cache { return NullCache{} }

func (NullCache) Get(context.Context, string) ([]byte, bool, error)        { return nil, false, nil }
func (NullCache) Set(context.Context, string, []byte, time.Duration) error { return nil }
func (NullCache) Delete(context.Context, string) error                     { return nil }
func (NullCache) Close() error                                             { return nil }
