package widget

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	widgetDomain "metricore/internal/core/domain/widget"
)

type fakeLoader struct {
	rows []*widgetDomain.LoadedEntry
	err  error
}

func (f *fakeLoader) LoadEntriesForWidget(ctx context.Context, definitionCode string, params widgetDomain.LoadParams) ([]*widgetDomain.LoadedEntry, error) {
	return f.rows, f.err
}

// threeTimEntries mirrors a worked productivity-widget example: three
// TIM rows with duration 60/90/90 and time allocations across t/m/n/p.
func threeTimEntries() []*widgetDomain.LoadedEntry {
	mk := func(duration int64, t, m, n, p int64) *widgetDomain.LoadedEntry {
		return &widgetDomain.LoadedEntry{
			DefinitionCode: "TIM",
			Attributes:     map[string]any{"duration": duration},
			TimeValues:     map[string]int64{"t": t, "m": m, "n": n, "p": p},
		}
	}
	return []*widgetDomain.LoadedEntry{
		mk(60, 45, 10, 5, 0),
		mk(90, 50, 25, 5, 10),
		mk(90, 70, 15, 5, 0),
	}
}

func TestEvaluate_ProductivityWidget(t *testing.T) {
	def := &widgetDomain.Definition{
		Name:    "Productivity",
		Dataset: widgetDomain.Dataset{Alias: "tims", DefinitionCode: "TIM"},
		Fields: []widgetDomain.ComputedField{
			{Label: "productivity", Type: widgetDomain.FieldTypeFloat, Expr: `sum(tims.time("t")) / sum(tims.duration)`},
			{Label: "productive_time", Type: widgetDomain.FieldTypeInt, Expr: `sum(tims.time("t"))`},
		},
	}
	loader := &fakeLoader{rows: threeTimEntries()}

	results, err := Evaluate(context.Background(), def, loader, widgetDomain.LoadParams{})
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "productivity", results[0].Label)
	require.NoError(t, results[0].Err)
	assert.InDelta(t, 0.6875, results[0].Value, 0.0001)

	assert.Equal(t, "productive_time", results[1].Label)
	require.NoError(t, results[1].Err)
	assert.Equal(t, float64(165), results[1].Value)
}

func TestEvaluate_EmptyDatasetYieldsZeroForAggregates(t *testing.T) {
	def := &widgetDomain.Definition{
		Name:    "Empty",
		Dataset: widgetDomain.Dataset{Alias: "tims", DefinitionCode: "TIM"},
		Fields: []widgetDomain.ComputedField{
			{Label: "total", Type: widgetDomain.FieldTypeFloat, Expr: "sum(tims.time(\"t\"))"},
		},
	}
	loader := &fakeLoader{rows: nil}

	results, err := Evaluate(context.Background(), def, loader, widgetDomain.LoadParams{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.NoError(t, results[0].Err)
	assert.Equal(t, float64(0), results[0].Value)
}

func TestEvaluate_DivisionByZeroIsolatedToOneField(t *testing.T) {
	def := &widgetDomain.Definition{
		Name:    "Mixed",
		Dataset: widgetDomain.Dataset{Alias: "tims", DefinitionCode: "TIM"},
		Fields: []widgetDomain.ComputedField{
			{Label: "broken", Type: widgetDomain.FieldTypeFloat, Expr: `sum(tims.time("t")) / sum(tims.duration)`},
			{Label: "fine", Type: widgetDomain.FieldTypeInt, Expr: `sum(tims.time("t"))`},
		},
	}
	loader := &fakeLoader{rows: nil}

	results, err := Evaluate(context.Background(), def, loader, widgetDomain.LoadParams{})
	require.NoError(t, err)
	require.Len(t, results, 2)

	require.Error(t, results[0].Err)
	require.NoError(t, results[1].Err)
	assert.Equal(t, float64(0), results[1].Value)
}

func TestEvaluate_LoaderErrorAbortsTheWholeWidget(t *testing.T) {
	def := &widgetDomain.Definition{
		Name:    "Broken",
		Dataset: widgetDomain.Dataset{Alias: "tims", DefinitionCode: "TIM"},
		Fields: []widgetDomain.ComputedField{
			{Label: "x", Type: widgetDomain.FieldTypeInt, Expr: "sum(tims.duration)"},
		},
	}
	loader := &fakeLoader{err: assertError{}}

	results, err := Evaluate(context.Background(), def, loader, widgetDomain.LoadParams{})
	require.Error(t, err)
	assert.Nil(t, results)
}

func TestEvaluate_CollectionArithmeticWithoutAggregationIsAnError(t *testing.T) {
	def := &widgetDomain.Definition{
		Name:    "Bad",
		Dataset: widgetDomain.Dataset{Alias: "tims", DefinitionCode: "TIM"},
		Fields: []widgetDomain.ComputedField{
			{Label: "x", Type: widgetDomain.FieldTypeFloat, Expr: `tims.time("t") / tims.duration`},
		},
	}
	loader := &fakeLoader{rows: threeTimEntries()}

	results, err := Evaluate(context.Background(), def, loader, widgetDomain.LoadParams{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Error(t, results[0].Err)
}

type assertError struct{}

func (assertError) Error() string { return "load failed" }
