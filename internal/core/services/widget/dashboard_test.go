package widget

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	widgetDomain "metricore/internal/core/domain/widget"
)

func TestEvaluateDashboard_EvaluatesEveryWidget(t *testing.T) {
	dash := &widgetDomain.Dashboard{
		Name: "Ops",
		Widgets: []*widgetDomain.Definition{
			{
				Name:    "Productivity",
				Dataset: widgetDomain.Dataset{Alias: "tims", DefinitionCode: "TIM"},
				Fields: []widgetDomain.ComputedField{
					{Label: "productive_time", Type: widgetDomain.FieldTypeInt, Expr: `sum(tims.time("t"))`},
				},
			},
			{
				Name:    "Load",
				Dataset: widgetDomain.Dataset{Alias: "tims", DefinitionCode: "TIM"},
				Fields: []widgetDomain.ComputedField{
					{Label: "total_duration", Type: widgetDomain.FieldTypeFloat, Expr: "sum(tims.duration)"},
				},
			},
		},
	}
	loader := &fakeLoader{rows: threeTimEntries()}

	results, err := EvaluateDashboard(context.Background(), dash, loader, widgetDomain.LoadParams{})
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "Productivity", results[0].Name)
	require.Len(t, results[0].Fields, 1)
	assert.Equal(t, float64(165), results[0].Fields[0].Value)

	assert.Equal(t, "Load", results[1].Name)
	require.Len(t, results[1].Fields, 1)
	assert.Equal(t, float64(240), results[1].Fields[0].Value)
}
