package observability

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNoopHooksDoNotPanic(t *testing.T) {
	ctx := context.Background()

	// Trace hooks
	tr := NoopTraceHooks{}
	tr.OnEvent(ctx, "LOCK_GRANTED_LOCAL")
	tr.OnOrphanUngrant(ctx, 1, "public.t1", "ShareLock")
	tr.OnFrame(ctx, 2, 1)

	// Cache hooks
	c := NoopCacheHooks{}
	c.OnCacheHit(ctx, "oid")
	c.OnCacheMiss(ctx, "oid")
	c.OnCacheSet(ctx, "oid", 16)

	// Resolver hooks
	r := NoopResolverHooks{}
	r.OnResolve(ctx, "catalog", true, time.Millisecond)
	r.OnError(ctx, "catalog", errors.New("connection refused"))
}

func TestGlobalHooksRegistry(t *testing.T) {
	// Reset to known state
	Reset()

	// Verify defaults are noop
	if _, ok := Trace().(NoopTraceHooks); !ok {
		t.Error("Trace() should return NoopTraceHooks by default")
	}
	if _, ok := Cache().(NoopCacheHooks); !ok {
		t.Error("Cache() should return NoopCacheHooks by default")
	}
	if _, ok := Resolver().(NoopResolverHooks); !ok {
		t.Error("Resolver() should return NoopResolverHooks by default")
	}

	customTrace := &testTraceHooks{}
	SetTraceHooks(customTrace)
	if Trace() != customTrace {
		t.Error("SetTraceHooks should set custom hooks")
	}

	customCache := &testCacheHooks{}
	SetCacheHooks(customCache)
	if Cache() != customCache {
		t.Error("SetCacheHooks should set custom hooks")
	}

	customResolver := &testResolverHooks{}
	SetResolverHooks(customResolver)
	if Resolver() != customResolver {
		t.Error("SetResolverHooks should set custom hooks")
	}

	// Reset and verify
	Reset()
	if _, ok := Trace().(NoopTraceHooks); !ok {
		t.Error("Reset() should restore NoopTraceHooks")
	}
}

func TestSetNilHooksIsIgnored(t *testing.T) {
	Reset()

	custom := &testTraceHooks{}
	SetTraceHooks(custom)

	// Setting nil should be ignored
	SetTraceHooks(nil)

	if Trace() != custom {
		t.Error("SetTraceHooks(nil) should be ignored")
	}

	Reset()
}

// Test implementations
type testTraceHooks struct{ NoopTraceHooks }
type testCacheHooks struct{ NoopCacheHooks }
type testResolverHooks struct{ NoopResolverHooks }
