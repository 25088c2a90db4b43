package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	metricsDomain "metricore/internal/core/domain/metrics"
	"metricore/pkg/ulid"
)

func strPtr(s string) *string { return &s }
func intPtr(n int64) *int64   { return &n }

func newReadBookContext() *metricsDomain.PipelineContext {
	bookID := ulid.MustParse("01ARZ3NDEKTSV4RRFFQ69G5FA1")
	readID := ulid.MustParse("01ARZ3NDEKTSV4RRFFQ69G5FA2")
	titleAttrID := ulid.MustParse("01ARZ3NDEKTSV4RRFFQ69G5FA3")
	pagesAttrID := ulid.MustParse("01ARZ3NDEKTSV4RRFFQ69G5FA4")

	titleField := &metricsDomain.Field{ID: ulid.New(), MetricDefinitionID: bookID, Name: "title", BaseDefinitionID: titleAttrID, MinInstances: 1, MaxInstances: 1, InputMode: metricsDomain.InputModeInput}
	bookField := &metricsDomain.Field{ID: ulid.New(), MetricDefinitionID: readID, Name: "book", BaseDefinitionID: bookID, MinInstances: 1, MaxInstances: 1, InputMode: metricsDomain.InputModeInput}
	pagesField := &metricsDomain.Field{ID: ulid.New(), MetricDefinitionID: readID, Name: "pages_read", BaseDefinitionID: pagesAttrID, MinInstances: 1, MaxInstances: 1, InputMode: metricsDomain.InputModeInput}

	defs := []*metricsDomain.Definition{
		{ID: bookID, Code: "BOOK", Kind: metricsDomain.DefinitionKindMetric, PrimaryIdentifierFieldID: &titleField.ID},
		{ID: readID, Code: "READ", Kind: metricsDomain.DefinitionKindMetric},
		{ID: titleAttrID, Code: "title_attr", Kind: metricsDomain.DefinitionKindAttribute, Datatype: metricsDomain.DatatypeString},
		{ID: pagesAttrID, Code: "pages_attr", Kind: metricsDomain.DefinitionKindAttribute, Datatype: metricsDomain.DatatypeInt},
	}
	fields := []*metricsDomain.Field{titleField, bookField, pagesField}
	return metricsDomain.NewPipelineContext(defs, fields, nil)
}

func TestBuilder_Build_AttributeFieldSetsTypedValue(t *testing.T) {
	ctx := newReadBookContext()
	input := &metricsDomain.MetricEntryInput{
		DefinitionCode: "READ",
		Timestamp:      time.Date(2026, 3, 5, 9, 0, 0, 0, time.UTC),
		Fields: []metricsDomain.FieldInput{
			{FieldName: "pages_read", Values: []metricsDomain.AttributeValueInput{{Int: intPtr(42)}}},
			{FieldName: "book", Values: []metricsDomain.AttributeValueInput{{Str: strPtr("Dune")}}},
		},
	}
	builder := NewBuilder(ctx)
	root, err := builder.Build(input)
	require.NoError(t, err)
	require.True(t, root.IsMetric())
	assert.Equal(t, metricsDomain.EntryID(1), root.Entry.ID)
	require.Len(t, root.Children, 2)

	pages := root.Children[0]
	require.True(t, pages.IsAttribute())
	require.NotNil(t, pages.Attribute.Value.Int)
	assert.Equal(t, int64(42), *pages.Attribute.Value.Int)

	book := root.Children[1]
	require.True(t, book.IsAttribute())
	require.NotNil(t, book.Attribute.Value.Str)
	assert.Equal(t, "Dune", *book.Attribute.Value.Str)
}

func TestBuilder_Build_ProvisionalIDsAreSequentialAndPositive(t *testing.T) {
	ctx := newReadBookContext()
	input := &metricsDomain.MetricEntryInput{
		DefinitionCode: "READ",
		Timestamp:      time.Now(),
		Fields: []metricsDomain.FieldInput{
			{FieldName: "pages_read", Values: []metricsDomain.AttributeValueInput{{Int: intPtr(10)}}},
			{FieldName: "book", Values: []metricsDomain.AttributeValueInput{{Str: strPtr("Dune")}}},
		},
	}
	builder := NewBuilder(ctx)
	root, err := builder.Build(input)
	require.NoError(t, err)
	assert.Equal(t, metricsDomain.EntryID(1), root.Entry.ID)
	assert.Equal(t, metricsDomain.EntryID(2), root.Children[0].Entry.ID)
	assert.Equal(t, metricsDomain.EntryID(3), root.Children[1].Entry.ID)
}

func TestBuilder_Build_UnknownDefinitionIsAFormulaError(t *testing.T) {
	ctx := newReadBookContext()
	_, err := NewBuilder(ctx).Build(&metricsDomain.MetricEntryInput{DefinitionCode: "NOPE"})
	require.Error(t, err)
	var fe *metricsDomain.FormulaError
	assert.ErrorAs(t, err, &fe)
}

func TestBuilder_Build_UnknownFieldIsAFormulaError(t *testing.T) {
	ctx := newReadBookContext()
	input := &metricsDomain.MetricEntryInput{
		DefinitionCode: "READ",
		Fields:         []metricsDomain.FieldInput{{FieldName: "nonexistent", Values: []metricsDomain.AttributeValueInput{{Int: intPtr(1)}}}},
	}
	_, err := NewBuilder(ctx).Build(input)
	assert.Error(t, err)
}

func TestBuilder_Build_TimestampNormalizedToMidnight(t *testing.T) {
	ctx := newReadBookContext()
	input := &metricsDomain.MetricEntryInput{
		DefinitionCode: "READ",
		Timestamp:      time.Date(2026, 3, 5, 14, 30, 0, 0, time.UTC),
	}
	root, err := NewBuilder(ctx).Build(input)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC), root.Entry.Timestamp)
}

func TestBuilder_Build_NestedMetricFieldRecursesAndTagsFieldSlot(t *testing.T) {
	ctx := newReadBookContext()
	nested := &metricsDomain.MetricEntryInput{
		DefinitionCode: "BOOK",
		Timestamp:      time.Now(),
		Fields:         []metricsDomain.FieldInput{{FieldName: "title", Values: []metricsDomain.AttributeValueInput{{Str: strPtr("Dune")}}}},
	}
	input := &metricsDomain.MetricEntryInput{
		DefinitionCode: "READ",
		Timestamp:      time.Now(),
		Fields: []metricsDomain.FieldInput{
			{FieldName: "pages_read", Values: []metricsDomain.AttributeValueInput{{Int: intPtr(10)}}},
			{FieldName: "book", Values: []metricsDomain.AttributeValueInput{{Nested: nested}}},
		},
	}
	root, err := NewBuilder(ctx).Build(input)
	require.NoError(t, err)
	bookChild := root.Children[1]
	require.True(t, bookChild.IsMetric())
	require.NotNil(t, bookChild.FieldSlot)
	assert.Equal(t, "book", bookChild.FieldSlot.Name)
	require.Len(t, bookChild.Children, 1)
	assert.Equal(t, "Dune", *bookChild.Children[0].Attribute.Value.Str)
}
