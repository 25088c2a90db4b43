package metrics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	metricsDomain "metricore/internal/core/domain/metrics"
)

type stubOracle struct {
	results map[any][]*metricsDomain.ResolvedEntry
	err     error
}

func (o *stubOracle) FindByPrimaryIdentifier(_ context.Context, _ *metricsDomain.Definition, value any) ([]*metricsDomain.ResolvedEntry, error) {
	if o.err != nil {
		return nil, o.err
	}
	return o.results[value], nil
}

func TestInstanceResolver_SingleMatchSplicesSubtreeKeepingIdentity(t *testing.T) {
	ctx := newReadBookContext()
	oracleEntry := &metricsDomain.ResolvedEntry{
		Entry:  &metricsDomain.Entry{ID: 500},
		Metric: &metricsDomain.MetricSpecialization{},
		Children: []*metricsDomain.ResolvedEntry{
			{Entry: &metricsDomain.Entry{ID: 501}, Attribute: &metricsDomain.AttributeSpecialization{Value: metricsDomain.TypedValue{Str: strPtr("Dune")}}},
		},
	}
	ctx.Existing = &stubOracle{results: map[any][]*metricsDomain.ResolvedEntry{"Dune": {oracleEntry}}}

	title := "Dune"
	bookField := findFieldByName(ctx, "book")
	placeholder := &metricsDomain.ResolvedEntry{
		Entry:     &metricsDomain.Entry{ID: 3},
		Attribute: &metricsDomain.AttributeSpecialization{Field: bookField, Value: metricsDomain.TypedValue{Str: &title}},
		FieldSlot: bookField,
	}
	root := &metricsDomain.ResolvedEntry{Entry: &metricsDomain.Entry{ID: 1}, Metric: &metricsDomain.MetricSpecialization{}, Children: []*metricsDomain.ResolvedEntry{placeholder}}

	resolver := NewInstanceResolver(ctx)
	require.NoError(t, resolver.Resolve(context.Background(), root))

	spliced := root.Children[0]
	assert.Equal(t, metricsDomain.EntryID(3), spliced.Entry.ID) // identity preserved
	assert.True(t, spliced.IsMetric())
	assert.Nil(t, spliced.Attribute)
	require.Len(t, spliced.Children, 1)
	assert.Equal(t, "Dune", *spliced.Children[0].Attribute.Value.Str)
}

func TestInstanceResolver_ZeroMatchesIsInstanceResolutionError(t *testing.T) {
	ctx := newReadBookContext()
	ctx.Existing = &stubOracle{results: map[any][]*metricsDomain.ResolvedEntry{}}
	bookField := findFieldByName(ctx, "book")
	title := "Dune"
	placeholder := &metricsDomain.ResolvedEntry{
		Entry:     &metricsDomain.Entry{ID: 3},
		Attribute: &metricsDomain.AttributeSpecialization{Field: bookField, Value: metricsDomain.TypedValue{Str: &title}},
		FieldSlot: bookField,
	}
	root := &metricsDomain.ResolvedEntry{Entry: &metricsDomain.Entry{ID: 1}, Metric: &metricsDomain.MetricSpecialization{}, Children: []*metricsDomain.ResolvedEntry{placeholder}}

	err := NewInstanceResolver(ctx).Resolve(context.Background(), root)
	require.Error(t, err)
	var ire *metricsDomain.InstanceResolutionError
	require.ErrorAs(t, err, &ire)
	assert.Equal(t, 0, ire.MatchCount)
}

func TestInstanceResolver_MultipleMatchesIsInstanceResolutionError(t *testing.T) {
	ctx := newReadBookContext()
	dupe := []*metricsDomain.ResolvedEntry{
		{Entry: &metricsDomain.Entry{ID: 500}, Metric: &metricsDomain.MetricSpecialization{}},
		{Entry: &metricsDomain.Entry{ID: 501}, Metric: &metricsDomain.MetricSpecialization{}},
	}
	ctx.Existing = &stubOracle{results: map[any][]*metricsDomain.ResolvedEntry{"Dune": dupe}}
	bookField := findFieldByName(ctx, "book")
	title := "Dune"
	placeholder := &metricsDomain.ResolvedEntry{
		Entry:     &metricsDomain.Entry{ID: 3},
		Attribute: &metricsDomain.AttributeSpecialization{Field: bookField, Value: metricsDomain.TypedValue{Str: &title}},
		FieldSlot: bookField,
	}
	root := &metricsDomain.ResolvedEntry{Entry: &metricsDomain.Entry{ID: 1}, Metric: &metricsDomain.MetricSpecialization{}, Children: []*metricsDomain.ResolvedEntry{placeholder}}

	err := NewInstanceResolver(ctx).Resolve(context.Background(), root)
	require.Error(t, err)
	var ire *metricsDomain.InstanceResolutionError
	require.ErrorAs(t, err, &ire)
	assert.Equal(t, 2, ire.MatchCount)
}

func TestInstanceResolver_InlineSubtreeLeftAsIs(t *testing.T) {
	ctx := newReadBookContext()
	ctx.Existing = &stubOracle{}
	bookField := findFieldByName(ctx, "book")
	inline := &metricsDomain.ResolvedEntry{Entry: &metricsDomain.Entry{ID: 3}, Metric: &metricsDomain.MetricSpecialization{}, FieldSlot: bookField}
	root := &metricsDomain.ResolvedEntry{Entry: &metricsDomain.Entry{ID: 1}, Metric: &metricsDomain.MetricSpecialization{}, Children: []*metricsDomain.ResolvedEntry{inline}}

	require.NoError(t, NewInstanceResolver(ctx).Resolve(context.Background(), root))
	assert.Same(t, inline, root.Children[0])
}

func findFieldByName(ctx *metricsDomain.PipelineContext, name string) *metricsDomain.Field {
	for _, f := range ctx.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}
