package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	metricsDomain "metricore/internal/core/domain/metrics"
)

func TestCardinalityValidator_ActualBelowMinIsAnError(t *testing.T) {
	ctx := newReadBookContext()
	root := &metricsDomain.ResolvedEntry{
		Entry:  &metricsDomain.Entry{ID: 1, DefinitionID: findFieldByName(ctx, "book").MetricDefinitionID},
		Metric: &metricsDomain.MetricSpecialization{},
	}
	err := NewCardinalityValidator(ctx).Validate(root)
	require.Error(t, err)
	var ce *metricsDomain.CardinalityError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, 0, ce.Actual)
}

func TestCardinalityValidator_WithinBoundsPasses(t *testing.T) {
	ctx := newReadBookContext()
	readID := findFieldByName(ctx, "book").MetricDefinitionID
	bookField := findFieldByName(ctx, "book")
	pagesField := findFieldByName(ctx, "pages_read")
	root := &metricsDomain.ResolvedEntry{
		Entry:  &metricsDomain.Entry{ID: 1, DefinitionID: readID},
		Metric: &metricsDomain.MetricSpecialization{},
		Children: []*metricsDomain.ResolvedEntry{
			{Entry: &metricsDomain.Entry{ID: 2}, FieldSlot: bookField, Metric: &metricsDomain.MetricSpecialization{}},
			{Entry: &metricsDomain.Entry{ID: 3}, FieldSlot: pagesField, Attribute: &metricsDomain.AttributeSpecialization{}},
		},
	}
	assert.NoError(t, NewCardinalityValidator(ctx).Validate(root))
}

func TestCardinalityValidator_ActualAboveMaxIsAnError(t *testing.T) {
	ctx := newReadBookContext()
	readID := findFieldByName(ctx, "book").MetricDefinitionID
	bookField := findFieldByName(ctx, "book")
	pagesField := findFieldByName(ctx, "pages_read")
	root := &metricsDomain.ResolvedEntry{
		Entry:  &metricsDomain.Entry{ID: 1, DefinitionID: readID},
		Metric: &metricsDomain.MetricSpecialization{},
		Children: []*metricsDomain.ResolvedEntry{
			{Entry: &metricsDomain.Entry{ID: 2}, FieldSlot: bookField, Metric: &metricsDomain.MetricSpecialization{}},
			{Entry: &metricsDomain.Entry{ID: 3}, FieldSlot: pagesField, Attribute: &metricsDomain.AttributeSpecialization{}},
			{Entry: &metricsDomain.Entry{ID: 4}, FieldSlot: pagesField, Attribute: &metricsDomain.AttributeSpecialization{}},
		},
	}
	err := NewCardinalityValidator(ctx).Validate(root)
	require.Error(t, err)
	var ce *metricsDomain.CardinalityError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, 2, ce.Actual)
}

func TestCardinalityValidator_UnboundedMaxNeverFailsOnUpperBound(t *testing.T) {
	metricID := findFieldByName(newReadBookContext(), "book").MetricDefinitionID
	field := &metricsDomain.Field{MetricDefinitionID: metricID, Name: "tags", MinInstances: 0, MaxInstances: metricsDomain.Unbounded}
	ctx := metricsDomain.NewPipelineContext(nil, []*metricsDomain.Field{field}, nil)
	children := make([]*metricsDomain.ResolvedEntry, 50)
	for i := range children {
		children[i] = &metricsDomain.ResolvedEntry{Entry: &metricsDomain.Entry{ID: metricsDomain.EntryID(i + 2)}, FieldSlot: field, Attribute: &metricsDomain.AttributeSpecialization{}}
	}
	root := &metricsDomain.ResolvedEntry{Entry: &metricsDomain.Entry{ID: 1, DefinitionID: metricID}, Metric: &metricsDomain.MetricSpecialization{}, Children: children}
	assert.NoError(t, NewCardinalityValidator(ctx).Validate(root))
}
