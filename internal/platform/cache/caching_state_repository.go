// Package cache provides caching implementations for repository interfaces.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"stock_dashboard/internal/feature/quotes/domain/entity"
	"stock_dashboard/internal/feature/quotes/usecase"
)

// StateStore is the projection store being decorated.
type StateStore interface {
	Upsert(ctx context.Context, states []entity.DashboardState) []usecase.UpsertResult
	FindAll(ctx context.Context) ([]entity.DashboardState, error)
	FindBySymbol(ctx context.Context, symbol string) (*entity.DashboardState, error)
}

// CachingStateRepository decorates a StateStore with Redis caching of the read path.
// The full snapshot and single documents are cached with a TTL and invalidated after
// every applied upsert. A nil client bypasses the cache entirely.
//
// Every applied upsert also bumps a generation counter. A read-through fill only stores
// its result while the generation it saw before reading the store is still current,
// so a read that overlapped an upsert never caches the pre-upsert snapshot.
type CachingStateRepository struct {
	inner     StateStore
	rdb       *redis.Client
	ttl       time.Duration
	namespace string
}

// NewCachingStateRepository decorates a StateStore with Redis caching.
// If ttl is 0, it defaults to 30 seconds. If namespace is empty, it uses "dashboard".
func NewCachingStateRepository(rdb *redis.Client, ttl time.Duration, inner StateStore, namespace string) *CachingStateRepository {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if namespace == "" {
		namespace = "dashboard"
	}
	return &CachingStateRepository{
		inner:     inner,
		rdb:       rdb,
		ttl:       ttl,
		namespace: namespace,
	}
}

// Upsert writes through to the store and invalidates cache entries of applied symbols.
func (c *CachingStateRepository) Upsert(ctx context.Context, states []entity.DashboardState) []usecase.UpsertResult {
	results := c.inner.Upsert(ctx, states)
	if c.rdb == nil {
		return results
	}

	keys := []string{}
	seen := map[string]struct{}{}
	for _, r := range results {
		if !r.Applied {
			continue
		}
		if _, ok := seen[r.Symbol]; ok {
			continue
		}
		seen[r.Symbol] = struct{}{}
		keys = append(keys, c.symbolKey(r.Symbol))
	}
	if len(keys) == 0 {
		return results
	}
	keys = append([]string{c.snapshotKey()}, keys...)
	// best effort. Bump before Del: a racing fill is then either refused or deleted.
	_ = c.rdb.Incr(ctx, c.generationKey()).Err()
	_ = c.rdb.Del(ctx, keys...).Err()
	return results
}

// FindAll returns the projection snapshot, from cache when present.
func (c *CachingStateRepository) FindAll(ctx context.Context) ([]entity.DashboardState, error) {
	if c.rdb == nil {
		return c.inner.FindAll(ctx)
	}

	var out []entity.DashboardState
	key := c.snapshotKey()
	if c.load(ctx, key, &out) {
		return out, nil
	}

	gen, ok := c.generation(ctx)
	out, err := c.inner.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	if ok {
		c.store(ctx, key, gen, out)
	}
	return out, nil
}

// FindBySymbol returns one document, from cache when present. Misses are not cached.
func (c *CachingStateRepository) FindBySymbol(ctx context.Context, symbol string) (*entity.DashboardState, error) {
	if c.rdb == nil {
		return c.inner.FindBySymbol(ctx, symbol)
	}

	var out entity.DashboardState
	key := c.symbolKey(symbol)
	if c.load(ctx, key, &out) {
		return &out, nil
	}

	gen, ok := c.generation(ctx)
	st, err := c.inner.FindBySymbol(ctx, symbol)
	if err != nil {
		return nil, err
	}
	if ok {
		c.store(ctx, key, gen, st)
	}
	return st, nil
}

// load reads key into dst. A corrupted entry is deleted and reported as a miss.
func (c *CachingStateRepository) load(ctx context.Context, key string, dst any) bool {
	b, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil || len(b) == 0 {
		return false
	}
	if err := json.Unmarshal(b, dst); err != nil {
		_ = c.rdb.Del(ctx, key).Err()
		return false
	}
	return true
}

// storeIfCurrent sets KEYS[1] to ARGV[2] with a PX of ARGV[3] only while KEYS[2] equals ARGV[1].
var storeIfCurrent = redis.NewScript(`
if (redis.call('GET', KEYS[2]) or '') ~= ARGV[1] then
	return 0
end
redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[3])
return 1
`)

// generation reads the invalidation counter. ok is false when Redis could not be read,
// in which case the caller must not fill the cache.
func (c *CachingStateRepository) generation(ctx context.Context) (gen string, ok bool) {
	gen, err := c.rdb.Get(ctx, c.generationKey()).Result()
	if errors.Is(err, redis.Nil) {
		return "", true
	}
	if err != nil {
		return "", false
	}
	return gen, true
}

func (c *CachingStateRepository) store(ctx context.Context, key, gen string, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	_ = storeIfCurrent.Run(ctx, c.rdb, []string{key, c.generationKey()}, gen, b, c.ttl.Milliseconds()).Err()
}

func (c *CachingStateRepository) snapshotKey() string {
	return c.namespace + ":states:all"
}

func (c *CachingStateRepository) generationKey() string {
	return c.namespace + ":states:gen"
}

func (c *CachingStateRepository) symbolKey(symbol string) string {
	return c.namespace + ":states:symbol:" + safe(symbol)
}

// safe escapes characters that are problematic for Redis keys.
func safe(s string) string {
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, ":", "_")
	return s
}
