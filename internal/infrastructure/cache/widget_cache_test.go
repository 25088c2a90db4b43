package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"

	widgetServices "metricore/internal/core/services/widget"
)

// unreachableClient points at a port nothing is listening on, so every
// round trip fails fast with a connection error — enough to exercise
// the cache's "never turn into a hard failure" behavior without a real
// Redis instance.
func unreachableClient() *redis.Client {
	return redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 50 * time.Millisecond})
}

func TestWidgetResultCache_GetMissOnConnectionError(t *testing.T) {
	c := NewWidgetResultCache(unreachableClient(), time.Minute)
	results, ok := c.Get(context.Background(), "some-key")
	assert.False(t, ok)
	assert.Nil(t, results)
}

func TestWidgetResultCache_GetSkipsCacheWhenContextMarked(t *testing.T) {
	c := NewWidgetResultCache(unreachableClient(), time.Minute)
	ctx := WithSkipCache(context.Background())
	results, ok := c.Get(ctx, "some-key")
	assert.False(t, ok)
	assert.Nil(t, results)
}

func TestWidgetResultCache_SetSkipsCacheWhenContextMarked(t *testing.T) {
	c := NewWidgetResultCache(unreachableClient(), time.Minute)
	ctx := WithSkipCache(context.Background())
	err := c.Set(ctx, "some-key", []widgetServices.FieldResult{{Label: "x", Value: 1}})
	assert.NoError(t, err)
}

func TestWidgetResultCache_SetSkipsCachingAFailedField(t *testing.T) {
	c := NewWidgetResultCache(unreachableClient(), time.Minute)
	err := c.Set(context.Background(), "some-key", []widgetServices.FieldResult{
		{Label: "ok", Value: 1},
		{Label: "broken", Err: assert.AnError},
	})
	assert.NoError(t, err)
}

func TestWidgetResultCache_SetReturnsErrorOnConnectionFailure(t *testing.T) {
	c := NewWidgetResultCache(unreachableClient(), time.Minute)
	err := c.Set(context.Background(), "some-key", []widgetServices.FieldResult{{Label: "x", Value: 1}})
	assert.Error(t, err)
}
