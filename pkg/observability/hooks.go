// Package observability provides hooks for metrics about a tracing session.
//
// Library packages report what they do through small hook interfaces and
// never import a metrics backend themselves. The command line registers a
// Prometheus implementation at startup; everything else sees no-op defaults.
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetTraceHooks(&myTraceHooks{})
//	    observability.SetCacheHooks(&myCacheHooks{})
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Trace().OnEvent(ctx, ev.Head().Kind.String())
//	observability.Resolver().OnResolve(ctx, "catalog", found, time.Since(start))
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Trace Hooks
// =============================================================================

// TraceHooks receives events from the event processing loop and the lock
// graph.
type TraceHooks interface {
	// OnEvent records one processed event of the given kind.
	OnEvent(ctx context.Context, kind string)

	// OnOrphanUngrant records a release of a lock mode that was not held.
	OnOrphanUngrant(ctx context.Context, pid int, object, mode string)

	// OnFrame records an emitted graph snapshot.
	OnFrame(ctx context.Context, vertices, edges int)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from cache operations.
type CacheHooks interface {
	// OnCacheHit records a cache hit.
	OnCacheHit(ctx context.Context, keyType string)

	// OnCacheMiss records a cache miss.
	OnCacheMiss(ctx context.Context, keyType string)

	// OnCacheSet records a cache write.
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// =============================================================================
// Resolver Hooks
// =============================================================================

// ResolverHooks receives events from OID lookups against a database catalog.
type ResolverHooks interface {
	// OnResolve records a catalog lookup. found is false when the lookup
	// fell back to a placeholder name.
	OnResolve(ctx context.Context, source string, found bool, duration time.Duration)

	// OnError records a failed catalog query (network failure, timeout).
	OnError(ctx context.Context, source string, err error)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopTraceHooks is a no-op implementation of TraceHooks.
type NoopTraceHooks struct{}

func (NoopTraceHooks) OnEvent(context.Context, string)                      {}
func (NoopTraceHooks) OnOrphanUngrant(context.Context, int, string, string) {}
func (NoopTraceHooks) OnFrame(context.Context, int, int)                    {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// NoopResolverHooks is a no-op implementation of ResolverHooks.
type NoopResolverHooks struct{}

func (NoopResolverHooks) OnResolve(context.Context, string, bool, time.Duration) {}
func (NoopResolverHooks) OnError(context.Context, string, error)                 {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	traceHooks    TraceHooks    = NoopTraceHooks{}
	cacheHooks    CacheHooks    = NoopCacheHooks{}
	resolverHooks ResolverHooks = NoopResolverHooks{}
	hooksMu       sync.RWMutex
)

// SetTraceHooks registers custom trace hooks.
// This should be called once at application startup before any session runs.
func SetTraceHooks(h TraceHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		traceHooks = h
	}
}

// SetCacheHooks registers custom cache hooks.
// This should be called once at application startup before any cache operations.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// SetResolverHooks registers custom resolver hooks.
func SetResolverHooks(h ResolverHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		resolverHooks = h
	}
}

// Trace returns the registered trace hooks.
func Trace() TraceHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return traceHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// Resolver returns the registered resolver hooks.
func Resolver() ResolverHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return resolverHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	traceHooks = NoopTraceHooks{}
	cacheHooks = NoopCacheHooks{}
	resolverHooks = NoopResolverHooks{}
}
