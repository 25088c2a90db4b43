package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	metricsDomain "metricore/internal/core/domain/metrics"
)

func TestRunPipeline_InstanceResolutionEndToEnd(t *testing.T) {
	ctx := newReadBookContext()
	ctx.Existing = &stubOracle{results: map[any][]*metricsDomain.ResolvedEntry{
		"Dune": {{
			Entry:  &metricsDomain.Entry{ID: 900},
			Metric: &metricsDomain.MetricSpecialization{},
			Children: []*metricsDomain.ResolvedEntry{
				{Entry: &metricsDomain.Entry{ID: 901}, Attribute: &metricsDomain.AttributeSpecialization{Value: metricsDomain.TypedValue{Str: strPtr("Dune")}}},
			},
		}},
	}}

	input := &metricsDomain.MetricEntryInput{
		DefinitionCode: "READ",
		Timestamp:      time.Now(),
		Fields: []metricsDomain.FieldInput{
			{FieldName: "pages_read", Values: []metricsDomain.AttributeValueInput{{Int: intPtr(120)}}},
			{FieldName: "book", Values: []metricsDomain.AttributeValueInput{{Str: strPtr("Dune")}}},
		},
	}

	root, err := RunPipeline(context.Background(), input, ctx)
	require.NoError(t, err)
	bookChild := root.Children[1]
	assert.True(t, bookChild.IsMetric())
	require.Len(t, bookChild.Children, 1)
	assert.Equal(t, "Dune", *bookChild.Children[0].Attribute.Value.Str)
}

func TestRunPipeline_InstanceResolutionFailure_NoPartialTreeExposed(t *testing.T) {
	ctx := newReadBookContext()
	ctx.Existing = &stubOracle{results: map[any][]*metricsDomain.ResolvedEntry{}}

	input := &metricsDomain.MetricEntryInput{
		DefinitionCode: "READ",
		Timestamp:      time.Now(),
		Fields: []metricsDomain.FieldInput{
			{FieldName: "pages_read", Values: []metricsDomain.AttributeValueInput{{Int: intPtr(120)}}},
			{FieldName: "book", Values: []metricsDomain.AttributeValueInput{{Str: strPtr("Missing Book")}}},
		},
	}

	root, err := RunPipeline(context.Background(), input, ctx)
	require.Error(t, err)
	assert.Nil(t, root)
	var ire *metricsDomain.InstanceResolutionError
	assert.ErrorAs(t, err, &ire)
}

func TestRunPipeline_CardinalityViolation_TwoValuesForSingleField(t *testing.T) {
	ctx := newReadBookContext()
	ctx.Existing = &stubOracle{results: map[any][]*metricsDomain.ResolvedEntry{
		"Dune": {{Entry: &metricsDomain.Entry{ID: 900}, Metric: &metricsDomain.MetricSpecialization{}}},
	}}
	input := &metricsDomain.MetricEntryInput{
		DefinitionCode: "READ",
		Timestamp:      time.Now(),
		Fields: []metricsDomain.FieldInput{
			{FieldName: "pages_read", Values: []metricsDomain.AttributeValueInput{{Int: intPtr(10)}, {Int: intPtr(20)}}},
			{FieldName: "book", Values: []metricsDomain.AttributeValueInput{{Str: strPtr("Dune")}}},
		},
	}

	root, err := RunPipeline(context.Background(), input, ctx)
	require.Error(t, err)
	assert.Nil(t, root)
	var ce *metricsDomain.CardinalityError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, 2, ce.Actual)
}

func TestRunPipeline_HierarchyAndKPIScenario(t *testing.T) {
	ctx, estID, timID := newTimingKPIContext()
	timField := findFieldByName(ctx, "tim")
	durationField := findFieldByName(ctx, "duration")
	timeTypeField := findFieldByName(ctx, "time_type")

	nestedTim := &metricsDomain.MetricEntryInput{
		DefinitionCode: "TIM",
		Timestamp:      time.Now(),
		Fields: []metricsDomain.FieldInput{
			{FieldName: durationField.Name, Values: []metricsDomain.AttributeValueInput{{Int: intPtr(60)}}},
			{FieldName: timeTypeField.Name, Values: []metricsDomain.AttributeValueInput{
				{Int: intPtr(30), Subdivision: strPtr("t")},
				{Int: intPtr(15), Subdivision: strPtr("m/thk")},
				{Int: intPtr(5), Subdivision: strPtr("m")},
				{Int: intPtr(10), Subdivision: strPtr("n")},
			}},
		},
	}
	input := &metricsDomain.MetricEntryInput{
		DefinitionCode: "EST",
		Timestamp:      time.Now(),
		Fields: []metricsDomain.FieldInput{
			{FieldName: timField.Name, Values: []metricsDomain.AttributeValueInput{{Nested: nestedTim}}},
		},
	}

	root, err := RunPipeline(context.Background(), input, ctx)
	require.NoError(t, err)

	gross := findAttributeChild(root, findFieldByName(ctx, "gross_productivity"))
	require.NotNil(t, gross)
	assert.InDelta(t, 0.5, *gross.Attribute.Value.Float, 1e-9)

	net := findAttributeChild(root, findFieldByName(ctx, "net_productivity"))
	require.NotNil(t, net)
	assert.InDelta(t, 0.6, *net.Attribute.Value.Float, 1e-9)

	_ = estID
	_ = timID
}
