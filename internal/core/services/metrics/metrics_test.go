package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	metricsDomain "metricore/internal/core/domain/metrics"
)

func TestRunPipelineInstrumented_RecordsSuccessOutcome(t *testing.T) {
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

	before := testutil.ToFloat64(pipelineRunsTotal.WithLabelValues("success"))
	root, err := RunPipelineInstrumented(context.Background(), input, ctx)
	require.NoError(t, err)
	assert.NotNil(t, root)
	after := testutil.ToFloat64(pipelineRunsTotal.WithLabelValues("success"))
	assert.Equal(t, before+1, after)
}

func TestRunPipelineInstrumented_RecordsErrorOutcomeAndKind(t *testing.T) {
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

	beforeErr := testutil.ToFloat64(pipelineErrorsTotal.WithLabelValues(string(metricsDomain.KindInstanceResolution)))
	root, err := RunPipelineInstrumented(context.Background(), input, ctx)
	require.Error(t, err)
	assert.Nil(t, root)
	afterErr := testutil.ToFloat64(pipelineErrorsTotal.WithLabelValues(string(metricsDomain.KindInstanceResolution)))
	assert.Equal(t, beforeErr+1, afterErr)
}
