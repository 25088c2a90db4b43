package widget

import (
	lru "github.com/hashicorp/golang-lru/v2"

	widgetDomain "metricore/internal/core/domain/widget"
)

// ParseCache memoizes Parse by raw widget source text, the same
// size-bounded in-process cache shape provider_pricing_service.go uses
// for its own rarely-changing, repeatedly-looked-up snapshots. Widget
// sources are edited far less often than they're evaluated (every
// dashboard refresh re-parses the same stored text), so this turns
// repeat evaluations of an unchanged widget into a cache hit instead of
// a full re-parse.
type ParseCache struct {
	cache *lru.Cache[string, *widgetDomain.Definition]
}

// NewParseCache builds a ParseCache holding up to size distinct widget
// sources.
func NewParseCache(size int) (*ParseCache, error) {
	cache, err := lru.New[string, *widgetDomain.Definition](size)
	if err != nil {
		return nil, err
	}
	return &ParseCache{cache: cache}, nil
}

// Parse returns the cached Definition for src if present, otherwise
// parses it, caches the result, and returns it. Parse errors are never
// cached: a widget source that fails to parse today might be fixed and
// retried under the same key tomorrow.
func (c *ParseCache) Parse(src string) (*widgetDomain.Definition, error) {
	if def, ok := c.cache.Get(src); ok {
		return def, nil
	}
	def, err := Parse(src)
	if err != nil {
		return nil, err
	}
	c.cache.Add(src, def)
	return def, nil
}
