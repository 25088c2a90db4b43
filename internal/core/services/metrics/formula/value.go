// Package formula implements the shared tokenizer/parser/evaluator used
// by both the Entry Formula DSL (evaluated per-entry during pipeline
// construction) and the Widget Aggregation DSL (evaluated over loaded
// entry collections for read-only dashboards). spec.md §4.5 specifies
// one evaluator shape for both; only the set of bindings differs.
package formula

import (
	"fmt"

	metricsDomain "metricore/internal/core/domain/metrics"
)

// Kind tags the closed sum type an evaluated Value belongs to (spec.md
// §9, "Tagged variants").
type Kind int

const (
	KindNull Kind = iota
	KindNumber
	KindString
	KindBool
	KindNumberList
	KindStringList
	KindBoolList
	KindEntryRef
	KindEntryRefList
	KindCollection
	// KindCollectionNumbers is the result of alias.<field> or
	// alias.time(base): a numeric list that still carries the
	// collection-shaped arithmetic restriction (spec.md §4.8: "arithmetic
	// between collection-shaped intermediates is disallowed; aggregate
	// first"), distinct from KindNumberList which arithmetic is allowed
	// to operate on directly in entry-formula context.
	KindCollectionNumbers
)

// CollectionResolver is the extension point the widget DSL uses to bind
// a dataset alias into the shared evaluator (spec.md §4.8: "The alias
// token resolves to a handle representing 'this collection'"). The
// formula package stays agnostic of the widget domain's LoadedEntry
// shape; the widget package implements this interface over its own
// loaded rows.
type CollectionResolver interface {
	// Field returns the numeric coercion of attributes[name] across the
	// collection, with non-numeric values filtered out (spec.md §9
	// Open Question 4).
	Field(name string) ([]float64, error)
	// Time returns, per entry, the summed time allocation for base
	// (spec.md §4.8's alias.time(base)).
	Time(base string) ([]float64, error)
}

// Value is the runtime value domain of the evaluator (spec.md §4.5).
// Exactly the field matching Kind is meaningful.
type Value struct {
	Kind       Kind
	Number     float64
	Str        string
	Bool       bool
	NumberList []float64
	StringList []string
	BoolList   []bool
	Entry      *metricsDomain.ResolvedEntry
	EntryList  []*metricsDomain.ResolvedEntry
	Collection CollectionResolver
}

// Null is the canonical null Value.
var Null = Value{Kind: KindNull}

func NumberValue(n float64) Value                                    { return Value{Kind: KindNumber, Number: n} }
func StringValue(s string) Value                                     { return Value{Kind: KindString, Str: s} }
func BoolValue(b bool) Value                                          { return Value{Kind: KindBool, Bool: b} }
func NumberListValue(v []float64) Value                               { return Value{Kind: KindNumberList, NumberList: v} }
func StringListValue(v []string) Value                                { return Value{Kind: KindStringList, StringList: v} }
func BoolListValue(v []bool) Value                                    { return Value{Kind: KindBoolList, BoolList: v} }
func EntryRefValue(e *metricsDomain.ResolvedEntry) Value               { return Value{Kind: KindEntryRef, Entry: e} }
func EntryRefListValue(v []*metricsDomain.ResolvedEntry) Value         { return Value{Kind: KindEntryRefList, EntryList: v} }
func CollectionValue(r CollectionResolver) Value                       { return Value{Kind: KindCollection, Collection: r} }
func CollectionNumbersValue(v []float64) Value                        { return Value{Kind: KindCollectionNumbers, NumberList: v} }

// IsNull reports whether v is the null value.
func (v Value) IsNull() bool { return v.Kind == KindNull }

// IsList reports whether v holds any of the five list-shaped kinds.
func (v Value) IsList() bool {
	switch v.Kind {
	case KindNumberList, KindStringList, KindBoolList, KindEntryRefList, KindCollectionNumbers:
		return true
	default:
		return false
	}
}

// IsCollectionShaped reports whether v came from a dataset alias (a raw
// collection handle, or an un-aggregated field/time projection over
// one) and therefore cannot participate directly in arithmetic.
func (v Value) IsCollectionShaped() bool {
	return v.Kind == KindCollection || v.Kind == KindCollectionNumbers
}

// Len returns the length of a list-kind value, or 1 for a scalar, or 0
// for null.
func (v Value) Len() int {
	switch v.Kind {
	case KindNumberList, KindCollectionNumbers:
		return len(v.NumberList)
	case KindStringList:
		return len(v.StringList)
	case KindBoolList:
		return len(v.BoolList)
	case KindEntryRefList:
		return len(v.EntryList)
	case KindNull:
		return 0
	default:
		return 1
	}
}

// AsNumberList coerces v into a []float64, treating a bare scalar number
// as a single-element list. Used by aggregation functions (sum/avg/min/max/count).
func (v Value) AsNumberList() ([]float64, error) {
	switch v.Kind {
	case KindNumberList, KindCollectionNumbers:
		return v.NumberList, nil
	case KindNumber:
		return []float64{v.Number}, nil
	case KindNull:
		return nil, nil
	default:
		return nil, fmt.Errorf("expected a number or list of numbers, got %s", v.Kind.String())
	}
}

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindBool:
		return "bool"
	case KindNumberList:
		return "number list"
	case KindStringList:
		return "string list"
	case KindBoolList:
		return "bool list"
	case KindEntryRef:
		return "entry"
	case KindEntryRefList:
		return "entry list"
	case KindCollection:
		return "collection"
	case KindCollectionNumbers:
		return "collection number list"
	default:
		return "unknown"
	}
}

// collapse reduces a single-element list to its scalar form, matching
// spec.md §4.5's field-navigation collapsing rule ("length-1 collapses
// to the scalar").
func collapseNumberList(v []float64) Value {
	if len(v) == 1 {
		return NumberValue(v[0])
	}
	return NumberListValue(v)
}

func collapseStringList(v []string) Value {
	if len(v) == 1 {
		return StringValue(v[0])
	}
	return StringListValue(v)
}

func collapseBoolList(v []bool) Value {
	if len(v) == 1 {
		return BoolValue(v[0])
	}
	return BoolListValue(v)
}

func collapseEntryList(v []*metricsDomain.ResolvedEntry) Value {
	if len(v) == 1 {
		return EntryRefValue(v[0])
	}
	return EntryRefListValue(v)
}
