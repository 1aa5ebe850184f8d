package check

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/getseal/seal/core/namespace"
	"github.com/getseal/seal/core/relationtuple"
)

// Cache is the pluggable backend behind CachedChecker. The in-memory
// implementation suits a single instance; the Redis implementation shares
// decisions across replicas.
type Cache interface {
	Get(ctx context.Context, key string) (Result, bool, error)
	Set(ctx context.Context, key string, result Result, ttl time.Duration) error
	Purge(ctx context.Context) error
}

// CachedChecker caches check results for a bounded TTL. Cache keys include
// the active rule-graph version, so a rule reload never serves decisions
// made under old rules; tuple writes call Invalidate. Caching is a
// performance layer only, the core freshness contract lives in the engine.
type CachedChecker struct {
	next     Checker
	cache    Cache
	registry *namespace.Registry
	ttl      time.Duration
}

// NewCachedChecker wraps a checker with a TTL cache. A zero or negative ttl
// disables caching entirely.
func NewCachedChecker(next Checker, cache Cache, registry *namespace.Registry, ttl time.Duration) *CachedChecker {
	return &CachedChecker{next: next, cache: cache, registry: registry, ttl: ttl}
}

// Check serves from the cache when possible. Cache backend failures fall
// through to a real evaluation; a cache must never turn into an
// availability or correctness dependency.
func (c *CachedChecker) Check(ctx context.Context, subject relationtuple.SubjectRef, permission string, object relationtuple.ObjectRef) (Result, error) {
	if c.ttl <= 0 {
		return c.next.Check(ctx, subject, permission, object)
	}

	key := c.cacheKey(subject, permission, object)
	if cached, ok, err := c.cache.Get(ctx, key); err == nil && ok {
		return cached, nil
	}

	result, err := c.next.Check(ctx, subject, permission, object)
	if err != nil {
		return Result{}, err
	}

	// Best effort; a failed write only costs a future recomputation.
	_ = c.cache.Set(ctx, key, result, c.ttl)
	return result, nil
}

// Invalidate drops all cached decisions. Called after tuple writes and
// deletes.
func (c *CachedChecker) Invalidate(ctx context.Context) {
	_ = c.cache.Purge(ctx)
}

func (c *CachedChecker) cacheKey(subject relationtuple.SubjectRef, permission string, object relationtuple.ObjectRef) string {
	version := ""
	if graph := c.registry.Active(); graph != nil {
		version = graph.Version
	}
	raw := version + "\x00" + subject.String() + "\x00" + permission + "\x00" + object.String()
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// MemoryCache is a TTL map cache for single-instance deployments.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryCacheEntry
}

type memoryCacheEntry struct {
	result    Result
	expiresAt time.Time
}

// NewMemoryCache creates an empty in-memory cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]memoryCacheEntry)}
}

func (c *MemoryCache) Get(ctx context.Context, key string) (Result, bool, error) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || time.Now().After(entry.expiresAt) {
		return Result{}, false, nil
	}
	return entry.result, true, nil
}

func (c *MemoryCache) Set(ctx context.Context, key string, result Result, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = memoryCacheEntry{result: result, expiresAt: time.Now().Add(ttl)}
	return nil
}

func (c *MemoryCache) Purge(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]memoryCacheEntry)
	return nil
}

// RedisCache shares check decisions across instances.
type RedisCache struct {
	client *redis.Client
	prefix string
}

// NewRedisCache creates a Redis-backed cache. The prefix scopes keys so
// Purge does not touch unrelated data.
func NewRedisCache(client *redis.Client, prefix string) *RedisCache {
	if prefix == "" {
		prefix = "seal:check:"
	}
	return &RedisCache{client: client, prefix: prefix}
}

func (c *RedisCache) Get(ctx context.Context, key string) (Result, bool, error) {
	raw, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err == redis.Nil {
		return Result{}, false, nil
	}
	if err != nil {
		return Result{}, false, err
	}
	var result Result
	if err := json.Unmarshal(raw, &result); err != nil {
		return Result{}, false, err
	}
	return result, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, result Result, ttl time.Duration) error {
	raw, err := json.Marshal(result)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.prefix+key, raw, ttl).Err()
}

func (c *RedisCache) Purge(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, c.prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}

// Compile-time interface checks
var (
	_ Checker = (*CachedChecker)(nil)
	_ Cache   = (*MemoryCache)(nil)
	_ Cache   = (*RedisCache)(nil)
)
