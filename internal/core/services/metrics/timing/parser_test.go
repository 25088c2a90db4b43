package timing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	metricsDomain "metricore/internal/core/domain/metrics"
	"metricore/pkg/ulid"
)

// newScenarioContext mirrors spec.md §8 Scenario 2: EST:TFG/research;adv:7,project:paper
// with a timing-capable "tim" field referencing TIM, which carries
// duration and time_type fields.
func newScenarioContext() *metricsDomain.PipelineContext {
	companyID := ulid.MustParse("01ARZ3NDEKTSV4RRFFQ69G5HA1")
	estID := ulid.MustParse("01ARZ3NDEKTSV4RRFFQ69G5HA2")
	timID := ulid.MustParse("01ARZ3NDEKTSV4RRFFQ69G5HA3")
	advAttrID := ulid.MustParse("01ARZ3NDEKTSV4RRFFQ69G5HA4")
	projAttrID := ulid.MustParse("01ARZ3NDEKTSV4RRFFQ69G5HA5")
	intAttrID := ulid.MustParse("01ARZ3NDEKTSV4RRFFQ69G5HA6")

	defs := []*metricsDomain.Definition{
		{ID: companyID, Code: "company", Kind: metricsDomain.DefinitionKindMetric},
		{ID: estID, Code: "EST", Kind: metricsDomain.DefinitionKindMetric, ParentDefinitionID: &companyID},
		{ID: timID, Code: "TIM", Kind: metricsDomain.DefinitionKindMetric},
		{ID: advAttrID, Code: "adv_attr", Kind: metricsDomain.DefinitionKindAttribute, Datatype: metricsDomain.DatatypeInt},
		{ID: projAttrID, Code: "proj_attr", Kind: metricsDomain.DefinitionKindAttribute, Datatype: metricsDomain.DatatypeString},
		{ID: intAttrID, Code: "int_attr", Kind: metricsDomain.DefinitionKindAttribute, Datatype: metricsDomain.DatatypeInt},
	}
	fields := []*metricsDomain.Field{
		{ID: ulid.New(), MetricDefinitionID: estID, Name: "adv", BaseDefinitionID: advAttrID, MaxInstances: 1, InputMode: metricsDomain.InputModeInput},
		{ID: ulid.New(), MetricDefinitionID: estID, Name: "project", BaseDefinitionID: projAttrID, MaxInstances: 1, InputMode: metricsDomain.InputModeInput},
		{ID: ulid.New(), MetricDefinitionID: estID, Name: "tim", BaseDefinitionID: timID, MaxInstances: 1, InputMode: metricsDomain.InputModeInput},
		{ID: ulid.New(), MetricDefinitionID: timID, Name: "duration", BaseDefinitionID: intAttrID, MaxInstances: 1, InputMode: metricsDomain.InputModeInput},
		{ID: ulid.New(), MetricDefinitionID: timID, Name: "time_type", BaseDefinitionID: intAttrID, MaxInstances: metricsDomain.Unbounded, InputMode: metricsDomain.InputModeInput},
	}
	return metricsDomain.NewPipelineContext(defs, fields, nil)
}

func TestParse_HeaderAndSingleTimingLine(t *testing.T) {
	ctx := newScenarioContext()
	block := "EST:TFG/research;adv:7,project:paper\n1400-1500 t30m/thk15m5n10"

	entries, err := Parse(ctx, block)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	parent := entries[0]
	assert.Equal(t, "EST", parent.DefinitionCode)
	require.NotNil(t, parent.Subdivision)
	assert.Equal(t, "TFG/research", *parent.Subdivision)

	var advValue, projValue, timValue *metricsDomain.FieldInput
	for i := range parent.Fields {
		switch parent.Fields[i].FieldName {
		case "adv":
			advValue = &parent.Fields[i]
		case "project":
			projValue = &parent.Fields[i]
		case "tim":
			timValue = &parent.Fields[i]
		}
	}
	require.NotNil(t, advValue)
	require.Equal(t, int64(7), *advValue.Values[0].Int)
	require.NotNil(t, projValue)
	require.Equal(t, "paper", *projValue.Values[0].Str)
	require.NotNil(t, timValue)

	nested := timValue.Values[0].Nested
	require.NotNil(t, nested)
	assert.Equal(t, "TIM", nested.DefinitionCode)

	var durationValue, timeTypeValue *metricsDomain.FieldInput
	for i := range nested.Fields {
		switch nested.Fields[i].FieldName {
		case "duration":
			durationValue = &nested.Fields[i]
		case "time_type":
			timeTypeValue = &nested.Fields[i]
		}
	}
	require.NotNil(t, durationValue)
	assert.Equal(t, int64(60), *durationValue.Values[0].Int)

	require.NotNil(t, timeTypeValue)
	require.Len(t, timeTypeValue.Values, 4)
	got := map[string]int64{}
	for _, v := range timeTypeValue.Values {
		got[*v.Subdivision] = *v.Int
	}
	assert.Equal(t, map[string]int64{"t": 30, "m/thk": 15, "m": 5, "n": 10}, got)
}

func TestParse_MultipleTimingLinesAscending(t *testing.T) {
	ctx := newScenarioContext()
	block := "EST;adv:7,project:paper\n0900-1000 t60\n1000-1030 m30"

	entries, err := Parse(ctx, block)
	require.NoError(t, err)
	require.Len(t, entries, 2)
}

func TestParse_OverlappingLinesRejectsWholeBlock(t *testing.T) {
	ctx := newScenarioContext()
	block := "EST;adv:7,project:paper\n0900-1000 t60\n0950-1030 m30"

	entries, err := Parse(ctx, block)
	require.Error(t, err)
	assert.Nil(t, entries)
	var pe *metricsDomain.ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 3, pe.Line)
}

func TestParse_TokenSumExceedingDurationIsAnError(t *testing.T) {
	ctx := newScenarioContext()
	block := "EST;adv:7,project:paper\n0900-1000 t90"

	_, err := Parse(ctx, block)
	require.Error(t, err)
	var pe *metricsDomain.ParseError
	require.ErrorAs(t, err, &pe)
}

func TestParse_ReversedTimesIsAnError(t *testing.T) {
	ctx := newScenarioContext()
	block := "EST;adv:7,project:paper\n1000-0900 t30"

	_, err := Parse(ctx, block)
	require.Error(t, err)
}

func TestParse_MinutesAtOrAbove60IsAnError(t *testing.T) {
	ctx := newScenarioContext()
	block := "EST;adv:7,project:paper\n0960-1030 t30"

	_, err := Parse(ctx, block)
	require.Error(t, err)
}

func TestParse_HoursMayExceed23ForNextDayCrossing(t *testing.T) {
	ctx := newScenarioContext()
	block := "EST;adv:7,project:paper\n2330-2500 t60"

	entries, err := Parse(ctx, block)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestParse_MissingTokenStreamIsAnError(t *testing.T) {
	ctx := newScenarioContext()
	block := "EST;adv:7,project:paper\n0900-1000 "

	_, err := Parse(ctx, block)
	require.Error(t, err)
}

func TestParse_LineOverrideReplacesHeaderValue(t *testing.T) {
	ctx := newScenarioContext()
	block := "EST;adv:7,project:paper\n0900-1000 t60|project:overridden"

	entries, err := Parse(ctx, block)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	var projValue *metricsDomain.FieldInput
	for i := range entries[0].Fields {
		if entries[0].Fields[i].FieldName == "project" {
			projValue = &entries[0].Fields[i]
		}
	}
	require.NotNil(t, projValue)
	assert.Equal(t, "overridden", *projValue.Values[0].Str)
}

func TestParse_UnknownDefinitionIsAnError(t *testing.T) {
	ctx := newScenarioContext()
	block := "NOPE;adv:7\n0900-1000 t60"

	_, err := Parse(ctx, block)
	require.Error(t, err)
}

func TestParse_NonTimingCapableDefinitionIsAnError(t *testing.T) {
	ctx := newScenarioContext()
	block := "company;foo:bar\n0900-1000 t60"

	_, err := Parse(ctx, block)
	require.Error(t, err)
}

func TestParse_CommentsAndBlankLinesAreSkipped(t *testing.T) {
	ctx := newScenarioContext()
	block := "# a comment\nEST;adv:7,project:paper\n\n0900-1000 t60\n# trailing comment\n1000-1030 m30"

	entries, err := Parse(ctx, block)
	require.NoError(t, err)
	require.Len(t, entries, 2)
}

func TestSelectable_RequiresMultipleLinesAndTimingCapability(t *testing.T) {
	ctx := newScenarioContext()
	assert.True(t, Selectable(ctx, "EST;adv:7\n0900-1000 t60"))
	assert.False(t, Selectable(ctx, "EST;adv:7"))
	assert.False(t, Selectable(ctx, "company;foo:bar\n0900-1000 t60"))
}

func TestParseTokens_RepeatedLabelsAccumulate(t *testing.T) {
	toks, err := parseTokens("t10t20m5")
	require.NoError(t, err)
	require.Len(t, toks, 2)
	assert.Equal(t, "t", toks[0].label)
	assert.Equal(t, 30, toks[0].value)
	assert.Equal(t, "m", toks[1].label)
	assert.Equal(t, 5, toks[1].value)
}

func TestParseTokens_EmptyStreamIsAnError(t *testing.T) {
	_, err := parseTokens("")
	require.Error(t, err)
}

func TestParseTokens_MalformedStreamIsAnError(t *testing.T) {
	_, err := parseTokens("30t")
	require.Error(t, err)
}
