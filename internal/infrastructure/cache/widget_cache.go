// Package cache provides the Redis-backed widget result cache
// (SPEC_FULL.md's caching addition, deliberately outside the evaluator
// itself so the evaluator stays a pure function of dataset + dataset
// rows with no Redis dependency to fake in its own tests).
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	widgetDomain "metricore/internal/core/domain/widget"
	widgetServices "metricore/internal/core/services/widget"
)

// skipCacheKey, set true on a context via WithSkipCache, bypasses both
// the read and the write side of WidgetResultCache — tests exercising
// Evaluate through a real Redis instance don't want prior runs' cached
// results leaking into assertions.
type skipCacheKey struct{}

// WithSkipCache returns a context that makes WidgetResultCache ignore
// any cached entry and skip writing a new one.
func WithSkipCache(ctx context.Context) context.Context {
	return context.WithValue(ctx, skipCacheKey{}, true)
}

func skipCache(ctx context.Context) bool {
	v, _ := ctx.Value(skipCacheKey{}).(bool)
	return v
}

// WidgetResultCache wraps a *redis.Client the way the teacher's own
// Redis-backed repositories do (constructor takes the client directly,
// methods take context.Context first), caching a widget's computed
// FieldResults under a caller-supplied key for ttl.
type WidgetResultCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewWidgetResultCache(client *redis.Client, ttl time.Duration) *WidgetResultCache {
	return &WidgetResultCache{client: client, ttl: ttl}
}

// cachedResult is the JSON-serializable projection of FieldResult: Err
// doesn't round-trip through JSON, so a cached entry can only represent
// a widget evaluation that fully succeeded for every field.
type cachedResult struct {
	Label string  `json:"label"`
	Type  string  `json:"type"`
	Value float64 `json:"value"`
}

// Get returns the cached results for key, or (nil, false) on a miss, a
// skip-cache context, or any Redis error (a cache is never allowed to
// turn into a hard failure for the caller).
func (c *WidgetResultCache) Get(ctx context.Context, key string) ([]widgetServices.FieldResult, bool) {
	if skipCache(ctx) {
		return nil, false
	}
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	var cached []cachedResult
	if err := json.Unmarshal(raw, &cached); err != nil {
		return nil, false
	}
	out := make([]widgetServices.FieldResult, len(cached))
	for i, r := range cached {
		out[i] = widgetServices.FieldResult{Label: r.Label, Type: widgetDomain.FieldType(r.Type), Value: r.Value}
	}
	return out, true
}

// Set caches results under key for the cache's configured ttl. Results
// carrying a per-field Err are not cached — a failed field should be
// re-attempted on the next read, not served stale nothing.
func (c *WidgetResultCache) Set(ctx context.Context, key string, results []widgetServices.FieldResult) error {
	if skipCache(ctx) {
		return nil
	}
	for _, r := range results {
		if r.Err != nil {
			return nil
		}
	}
	cached := make([]cachedResult, len(results))
	for i, r := range results {
		cached[i] = cachedResult{Label: r.Label, Type: string(r.Type), Value: r.Value}
	}
	raw, err := json.Marshal(cached)
	if err != nil {
		return fmt.Errorf("marshal widget result cache entry: %w", err)
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("set widget result cache entry: %w", err)
	}
	return nil
}
