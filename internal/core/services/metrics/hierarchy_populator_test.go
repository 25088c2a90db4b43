package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	metricsDomain "metricore/internal/core/domain/metrics"
	"metricore/pkg/ulid"
)

// newProjectHierarchyContext mirrors spec.md §8 Scenario 1: a root
// metric EST with a division ancestor chain, and a "proj" field whose
// formula indexes the subdivision vector.
func newProjectHierarchyContext() (*metricsDomain.PipelineContext, ulid.ULID) {
	companyID := ulid.MustParse("01ARZ3NDEKTSV4RRFFQ69G5FB1")
	estID := ulid.MustParse("01ARZ3NDEKTSV4RRFFQ69G5FB2")
	projAttrID := ulid.MustParse("01ARZ3NDEKTSV4RRFFQ69G5FB3")

	projField := &metricsDomain.Field{ID: ulid.New(), MetricDefinitionID: estID, Name: "proj", BaseDefinitionID: projAttrID, MaxInstances: 1, InputMode: metricsDomain.InputModeFormula, Formula: "subdivision[0]"}
	proj2Field := &metricsDomain.Field{ID: ulid.New(), MetricDefinitionID: estID, Name: "proj2", BaseDefinitionID: projAttrID, MaxInstances: 1, InputMode: metricsDomain.InputModeFormula, Formula: "subdivision[2]"}

	defs := []*metricsDomain.Definition{
		{ID: companyID, Code: "company", Kind: metricsDomain.DefinitionKindMetric},
		{ID: estID, Code: "EST", Kind: metricsDomain.DefinitionKindMetric, ParentDefinitionID: &companyID},
		{ID: projAttrID, Code: "proj_attr", Kind: metricsDomain.DefinitionKindAttribute, Datatype: metricsDomain.DatatypeString},
	}
	ctx := metricsDomain.NewPipelineContext(defs, []*metricsDomain.Field{projField, proj2Field}, nil)
	return ctx, estID
}

func buildESTRoot(estID ulid.ULID, subdivision string) *metricsDomain.ResolvedEntry {
	sub := subdivision
	return &metricsDomain.ResolvedEntry{
		Entry:  &metricsDomain.Entry{ID: 1, DefinitionID: estID, Timestamp: time.Now(), Subdivision: &sub},
		Metric: &metricsDomain.MetricSpecialization{},
	}
}

func TestHierarchyPopulator_SubdivisionIndexing(t *testing.T) {
	ctx, estID := newProjectHierarchyContext()
	root := buildESTRoot(estID, "TFG/coding")
	state := metricsDomain.NewPipelineState(root, ctx)

	pop := NewHierarchyPopulator(ctx, state)
	err := pop.Populate(root)
	require.Error(t, err)
	var subErr *metricsDomain.SubdivisionError
	require.ErrorAs(t, err, &subErr)
	assert.Equal(t, 2, subErr.Index)
	assert.Equal(t, 2, subErr.VectorLen)
}

func TestHierarchyPopulator_SubdivisionIndexing_InRangeProducesValue(t *testing.T) {
	companyID := ulid.MustParse("01ARZ3NDEKTSV4RRFFQ69G5FC1")
	estID := ulid.MustParse("01ARZ3NDEKTSV4RRFFQ69G5FC2")
	projAttrID := ulid.MustParse("01ARZ3NDEKTSV4RRFFQ69G5FC3")
	projField := &metricsDomain.Field{ID: ulid.New(), MetricDefinitionID: estID, Name: "proj", BaseDefinitionID: projAttrID, MaxInstances: 1, InputMode: metricsDomain.InputModeFormula, Formula: " subdivision[0] "}
	defs := []*metricsDomain.Definition{
		{ID: companyID, Code: "company", Kind: metricsDomain.DefinitionKindMetric},
		{ID: estID, Code: "EST", Kind: metricsDomain.DefinitionKindMetric, ParentDefinitionID: &companyID},
		{ID: projAttrID, Code: "proj_attr", Kind: metricsDomain.DefinitionKindAttribute, Datatype: metricsDomain.DatatypeString},
	}
	ctx := metricsDomain.NewPipelineContext(defs, []*metricsDomain.Field{projField}, nil)
	root := buildESTRoot(estID, "TFG/coding")
	state := metricsDomain.NewPipelineState(root, ctx)

	pop := NewHierarchyPopulator(ctx, state)
	require.NoError(t, pop.Populate(root))
	require.Len(t, root.Children, 1)
	got := root.Children[0]
	assert.True(t, got.IsAttribute())
	assert.Equal(t, "TFG", *got.Attribute.Value.Str)
	assert.True(t, got.Entry.ID <= -1000)
}

func TestHierarchyPopulator_OverwritesExistingPlaceholder(t *testing.T) {
	companyID := ulid.MustParse("01ARZ3NDEKTSV4RRFFQ69G5FD1")
	estID := ulid.MustParse("01ARZ3NDEKTSV4RRFFQ69G5FD2")
	projAttrID := ulid.MustParse("01ARZ3NDEKTSV4RRFFQ69G5FD3")
	projField := &metricsDomain.Field{ID: ulid.New(), MetricDefinitionID: estID, Name: "proj", BaseDefinitionID: projAttrID, MaxInstances: 1, InputMode: metricsDomain.InputModeFormula, Formula: "subdivision[0]"}
	defs := []*metricsDomain.Definition{
		{ID: companyID, Code: "company", Kind: metricsDomain.DefinitionKindMetric},
		{ID: estID, Code: "EST", Kind: metricsDomain.DefinitionKindMetric, ParentDefinitionID: &companyID},
		{ID: projAttrID, Code: "proj_attr", Kind: metricsDomain.DefinitionKindAttribute, Datatype: metricsDomain.DatatypeString},
	}
	ctx := metricsDomain.NewPipelineContext(defs, []*metricsDomain.Field{projField}, nil)
	root := buildESTRoot(estID, "TFG/coding")
	stale := "stale"
	existing := &metricsDomain.ResolvedEntry{
		Entry:     &metricsDomain.Entry{ID: 2, DefinitionID: projAttrID},
		Attribute: &metricsDomain.AttributeSpecialization{Field: projField, Value: metricsDomain.TypedValue{Str: &stale}},
		FieldSlot: projField,
	}
	root.Children = append(root.Children, existing)
	state := metricsDomain.NewPipelineState(root, ctx)

	pop := NewHierarchyPopulator(ctx, state)
	require.NoError(t, pop.Populate(root))
	require.Len(t, root.Children, 1)
	assert.Equal(t, "TFG", *root.Children[0].Attribute.Value.Str)
	assert.Equal(t, metricsDomain.EntryID(2), root.Children[0].Entry.ID)
}
