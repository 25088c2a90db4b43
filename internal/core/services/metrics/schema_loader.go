package metrics

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	metricsDomain "metricore/internal/core/domain/metrics"
)

// SchemaStore loads the full Definition/Field schema from wherever it's
// persisted. Implemented against Postgres by
// internal/infrastructure/repository/metrics.SchemaStore; this package
// only depends on the interface so the pipeline's schema-loading path
// stays storage-agnostic.
type SchemaStore interface {
	LoadSchema(ctx context.Context) ([]*metricsDomain.Definition, []*metricsDomain.Field, error)
}

// SchemaLoader hands out PipelineContext snapshots keyed by a caller-
// supplied schema version stamp, rebuilding one only on a cache miss.
// PipelineContext is immutable once built (spec.md §5), so a version
// stamp that hasn't changed can always reuse the same in-memory
// snapshot across however many pipeline runs land between schema edits.
type SchemaLoader struct {
	store    SchemaStore
	existing metricsDomain.ExistingEntries
	cache    *lru.Cache[string, *metricsDomain.PipelineContext]
}

// NewSchemaLoader builds a SchemaLoader holding up to size distinct
// schema-version snapshots at once. A small size is deliberate: in
// steady state there is exactly one live version, and the bound only
// guards against a burst of rapid edits each taking a moment to drain
// from flight.
func NewSchemaLoader(store SchemaStore, existing metricsDomain.ExistingEntries, size int) (*SchemaLoader, error) {
	cache, err := lru.New[string, *metricsDomain.PipelineContext](size)
	if err != nil {
		return nil, err
	}
	return &SchemaLoader{store: store, existing: existing, cache: cache}, nil
}

// Load returns the PipelineContext for version, building and caching it
// on first use. Callers that don't track schema versions themselves can
// pass a constant version string; the cache then simply holds one
// perpetually-reused snapshot.
func (l *SchemaLoader) Load(ctx context.Context, version string) (*metricsDomain.PipelineContext, error) {
	if pctx, ok := l.cache.Get(version); ok {
		return pctx, nil
	}
	definitions, fields, err := l.store.LoadSchema(ctx)
	if err != nil {
		return nil, fmt.Errorf("load schema for version %q: %w", version, err)
	}
	pctx := metricsDomain.NewPipelineContext(definitions, fields, l.existing)
	l.cache.Add(version, pctx)
	return pctx, nil
}

// Invalidate evicts version's cached snapshot, forcing the next Load for
// that version to rebuild from the store. Called when the persistence
// layer signals a schema-version bump (spec.md §4.11's hot-reload path).
func (l *SchemaLoader) Invalidate(version string) {
	l.cache.Remove(version)
}
