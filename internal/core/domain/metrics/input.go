package metrics

import "time"

// MetricEntryInput is the user-facing, recursive input shape consumed
// by the tree builder (spec.md §4.1). Adapters (the single-line parser,
// the timing-block parser) produce this shape; nothing downstream of
// the tree builder ever sees it again.
type MetricEntryInput struct {
	DefinitionCode string
	Timestamp      time.Time
	Subdivision    *string
	Comments       *string
	Fields         []FieldInput

	// Children holds legacy top-level metric subtrees attached with no
	// field slot. Adapters should prefer field-inlined metric children
	// (decision #22 referenced by spec.md §4.1); this exists for inputs
	// that predate that convention.
	Children []*MetricEntryInput
}

// FieldInput supplies one or more values for a named field of the
// parent MetricEntryInput's metric.
type FieldInput struct {
	FieldName string
	Values    []AttributeValueInput
}

// AttributeValueInput is a single value supplied for a field slot. For
// an Attribute-based field exactly one typed pointer should be set; for
// a Metric-based field either Nested (an inline subtree) or one of the
// identifier pointers (Int/Str) should be set, never both.
type AttributeValueInput struct {
	Int       *int64
	Float     *float64
	Str       *string
	Bool      *bool
	Timestamp *time.Time
	Hierarchy *string

	// Subdivision overrides the parent's subdivision for the child
	// created from this value; nil means "inherit from parent".
	Subdivision *string

	// Nested, when set, is built into a real metric subtree instead of
	// a placeholder (spec.md §4.1, Metric-base + inline child case).
	Nested *MetricEntryInput
}

// Raw extracts the populated scalar from the value pointers in priority
// order (int, float, string, bool, timestamp, hierarchy), matching
// TypedValue's column-selection priority. Used by the tree builder to
// populate an attribute child's typed column.
func (v AttributeValueInput) Raw() (any, Datatype, bool) { return v.typedValue() }

// typedValue extracts the populated scalar from the value pointers in
// priority order (int, float, string, bool, timestamp, hierarchy),
// matching TypedValue's column-selection priority.
func (v AttributeValueInput) typedValue() (any, Datatype, bool) {
	switch {
	case v.Int != nil:
		return *v.Int, DatatypeInt, true
	case v.Float != nil:
		return *v.Float, DatatypeFloat, true
	case v.Str != nil:
		return *v.Str, DatatypeString, true
	case v.Bool != nil:
		return *v.Bool, DatatypeBool, true
	case v.Timestamp != nil:
		return *v.Timestamp, DatatypeTimestamp, true
	case v.Hierarchy != nil:
		return *v.Hierarchy, DatatypeHierarchyString, true
	default:
		return nil, "", false
	}
}

// IdentifierValue returns the scalar identifier carried by this value
// when it is a metric-reference placeholder (Int or Str only, per
// spec.md §4.1's "scalar identifier (int or string)").
func (v AttributeValueInput) IdentifierValue() (any, bool) {
	switch {
	case v.Int != nil:
		return *v.Int, true
	case v.Str != nil:
		return *v.Str, true
	default:
		return nil, false
	}
}
