package metrics

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	metricsDomain "metricore/internal/core/domain/metrics"
	"metricore/pkg/ulid"
)

type fakeSchemaStore struct {
	loads       int
	definitions []*metricsDomain.Definition
	fields      []*metricsDomain.Field
	err         error
}

func (s *fakeSchemaStore) LoadSchema(ctx context.Context) ([]*metricsDomain.Definition, []*metricsDomain.Field, error) {
	s.loads++
	if s.err != nil {
		return nil, nil, s.err
	}
	return s.definitions, s.fields, nil
}

func TestSchemaLoader_CachesByVersion(t *testing.T) {
	store := &fakeSchemaStore{
		definitions: []*metricsDomain.Definition{{ID: ulid.New(), Code: "EMPLOYEE"}},
	}
	loader, err := NewSchemaLoader(store, nil, 4)
	require.NoError(t, err)

	first, err := loader.Load(context.Background(), "v1")
	require.NoError(t, err)
	second, err := loader.Load(context.Background(), "v1")
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, store.loads)
}

func TestSchemaLoader_RebuildsOnVersionChange(t *testing.T) {
	store := &fakeSchemaStore{}
	loader, err := NewSchemaLoader(store, nil, 4)
	require.NoError(t, err)

	_, err = loader.Load(context.Background(), "v1")
	require.NoError(t, err)
	_, err = loader.Load(context.Background(), "v2")
	require.NoError(t, err)

	assert.Equal(t, 2, store.loads)
}

func TestSchemaLoader_InvalidateForcesReload(t *testing.T) {
	store := &fakeSchemaStore{}
	loader, err := NewSchemaLoader(store, nil, 4)
	require.NoError(t, err)

	_, err = loader.Load(context.Background(), "v1")
	require.NoError(t, err)
	loader.Invalidate("v1")
	_, err = loader.Load(context.Background(), "v1")
	require.NoError(t, err)

	assert.Equal(t, 2, store.loads)
}

func TestSchemaLoader_PropagatesStoreError(t *testing.T) {
	store := &fakeSchemaStore{err: errors.New("boom")}
	loader, err := NewSchemaLoader(store, nil, 4)
	require.NoError(t, err)

	_, err = loader.Load(context.Background(), "v1")
	assert.Error(t, err)
}
