package check

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/getseal/seal/core/namespace"
	"github.com/getseal/seal/core/relationtuple"
)

// countingChecker counts evaluations so tests can observe cache hits.
type countingChecker struct {
	next  Checker
	calls atomic.Int64
}

func (c *countingChecker) Check(ctx context.Context, subject relationtuple.SubjectRef, permission string, object relationtuple.ObjectRef) (Result, error) {
	c.calls.Add(1)
	return c.next.Check(ctx, subject, permission, object)
}

func TestMemoryCache(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryCache()

	if _, ok, _ := cache.Get(ctx, "k"); ok {
		t.Error("empty cache reported a hit")
	}

	if err := cache.Set(ctx, "k", Result{Allowed: true}, time.Minute); err != nil {
		t.Fatal(err)
	}
	result, ok, err := cache.Get(ctx, "k")
	if err != nil || !ok || !result.Allowed {
		t.Errorf("got %+v, %v, %v", result, ok, err)
	}

	// Expired entries miss.
	if err := cache.Set(ctx, "old", Result{Allowed: true}, -time.Second); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := cache.Get(ctx, "old"); ok {
		t.Error("expired entry served")
	}

	if err := cache.Purge(ctx); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := cache.Get(ctx, "k"); ok {
		t.Error("purged entry served")
	}
}

func TestCachedChecker(t *testing.T) {
	engine := newTestEngine(t, docRules, []relationtuple.Tuple{
		relationtuple.NewTuple("user", "alice", "viewer", "document", "readme"),
	})
	counting := &countingChecker{next: engine}
	cached := NewCachedChecker(counting, NewMemoryCache(), engine.registry, time.Minute)

	if !mustCheck(t, cached, "user:alice", "view", "document:readme").Allowed {
		t.Fatal("first check denied")
	}
	if !mustCheck(t, cached, "user:alice", "view", "document:readme").Allowed {
		t.Fatal("second check denied")
	}
	if got := counting.calls.Load(); got != 1 {
		t.Errorf("engine evaluated %d times, want 1", got)
	}

	// Different query misses.
	mustCheck(t, cached, "user:bob", "view", "document:readme")
	if got := counting.calls.Load(); got != 2 {
		t.Errorf("engine evaluated %d times, want 2", got)
	}

	// Invalidate drops everything.
	cached.Invalidate(context.Background())
	mustCheck(t, cached, "user:alice", "view", "document:readme")
	if got := counting.calls.Load(); got != 3 {
		t.Errorf("engine evaluated %d times after invalidate, want 3", got)
	}
}

func TestCachedCheckerKeyIncludesRuleVersion(t *testing.T) {
	engine := newTestEngine(t, docRules, []relationtuple.Tuple{
		relationtuple.NewTuple("user", "alice", "viewer", "document", "readme"),
	})
	counting := &countingChecker{next: engine}
	cached := NewCachedChecker(counting, NewMemoryCache(), engine.registry, time.Minute)

	if !mustCheck(t, cached, "user:alice", "view", "document:readme").Allowed {
		t.Fatal("first check denied")
	}

	// New rule version: the cached allow must not survive the reload.
	restricted, err := namespace.CompileSource(`
namespace user {}
namespace document {
    relation owner
    permission view = owner
}
`)
	if err != nil {
		t.Fatal(err)
	}
	engine.registry.Swap(restricted)

	if mustCheck(t, cached, "user:alice", "view", "document:readme").Allowed {
		t.Error("decision from the previous rule version was served")
	}
	if got := counting.calls.Load(); got != 2 {
		t.Errorf("engine evaluated %d times, want 2", got)
	}
}

func TestCachedCheckerDisabled(t *testing.T) {
	engine := newTestEngine(t, docRules, []relationtuple.Tuple{
		relationtuple.NewTuple("user", "alice", "viewer", "document", "readme"),
	})
	counting := &countingChecker{next: engine}
	cached := NewCachedChecker(counting, NewMemoryCache(), engine.registry, 0)

	mustCheck(t, cached, "user:alice", "view", "document:readme")
	mustCheck(t, cached, "user:alice", "view", "document:readme")
	if got := counting.calls.Load(); got != 2 {
		t.Errorf("zero TTL must disable caching, engine evaluated %d times", got)
	}
}
