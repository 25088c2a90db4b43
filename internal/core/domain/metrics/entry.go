package metrics

import (
	"time"

	"metricore/pkg/ulid"
)

// EntryKind distinguishes the two Entry specializations that can occupy
// a ResolvedEntry node.
type EntryKind string

const (
	EntryKindMetric    EntryKind = "metric"
	EntryKindAttribute EntryKind = "attribute"
)

// EntryID is a provisional identifier assigned during a single pipeline
// run. It is never persisted directly: the persistence layer replaces
// these with real identities (ulid.ULID) via a temp->real map at insert
// time (spec.md §9). Three disjoint ranges are used so the allocating
// stage is recoverable from the id alone (spec.md §3 invariant 5):
//
//	>= 1     tree builder (root/builder)
//	<= -1000 hierarchy populator (descending)
//	<= -2000 formula applier (descending, starting at -2000)
type EntryID int64

// Entry is the base record shared by every ResolvedEntry node.
type Entry struct {
	ID             EntryID
	DefinitionID   ulid.ULID
	ParentEntryID  *EntryID
	Timestamp      time.Time // always normalized to local midnight of the node's date
	Subdivision    *string
	Comments       *string
}

// TypedValue holds the single populated typed column of an attribute
// value. At most one field is non-nil. Populated returns the name of
// the populated column in the fixed priority spec.md §9 specifies:
// int, float, string, bool, timestamp, hierarchy.
type TypedValue struct {
	Int       *int64
	Float     *float64
	Str       *string
	Bool      *bool
	Timestamp *time.Time
	Hierarchy *string
}

// Populated returns the name of the single populated column and true,
// or ("", false) if no column is set.
func (v TypedValue) Populated() (string, bool) {
	switch {
	case v.Int != nil:
		return "int", true
	case v.Float != nil:
		return "float", true
	case v.Str != nil:
		return "string", true
	case v.Bool != nil:
		return "bool", true
	case v.Timestamp != nil:
		return "timestamp", true
	case v.Hierarchy != nil:
		return "hierarchy", true
	default:
		return "", false
	}
}

// IsNull reports whether no typed column is populated.
func (v TypedValue) IsNull() bool {
	_, ok := v.Populated()
	return !ok
}

// SetByDatatype writes raw into the column matching datatype, coercing
// as needed. It returns an error if raw cannot be coerced.
func (v *TypedValue) SetByDatatype(datatype Datatype, raw any) error {
	*v = TypedValue{}
	switch datatype {
	case DatatypeInt:
		n, err := toInt64(raw)
		if err != nil {
			return err
		}
		v.Int = &n
	case DatatypeFloat:
		f, err := toFloat64(raw)
		if err != nil {
			return err
		}
		v.Float = &f
	case DatatypeString, DatatypeHierarchyString:
		s, err := toString(raw)
		if err != nil {
			return err
		}
		v.Str = &s
		if datatype == DatatypeHierarchyString {
			v.Hierarchy = v.Str
			v.Str = nil
		}
	case DatatypeBool:
		b, err := toBool(raw)
		if err != nil {
			return err
		}
		v.Bool = &b
	case DatatypeTimestamp:
		t, err := toTime(raw)
		if err != nil {
			return err
		}
		v.Timestamp = &t
	default:
		return &SchemaError{Message: "unknown datatype " + string(datatype)}
	}
	return nil
}

// MetricSpecialization marks a ResolvedEntry node as representing a
// metric instance (spec.md §3's "MetricEntry marker").
type MetricSpecialization struct{}

// AttributeSpecialization marks a ResolvedEntry node as an attribute
// instance, carrying the Field it instantiates and its typed value.
type AttributeSpecialization struct {
	Field *Field
	Value TypedValue
}

// ResolvedEntry is the pipeline's in-memory working-tree node. Exactly
// one of Metric / Attribute is non-nil (spec.md §3 invariant 1).
// FieldSlot is the Field under which this node occupies a slot in its
// parent's Children list; it is nil for the root and for legacy
// top-level children attached without a field slot (spec.md §4.1).
type ResolvedEntry struct {
	Entry     *Entry
	Metric    *MetricSpecialization
	Attribute *AttributeSpecialization
	FieldSlot *Field
	Children  []*ResolvedEntry
}

// IsMetric reports whether this node carries the metric marker.
func (r *ResolvedEntry) IsMetric() bool { return r.Metric != nil }

// IsAttribute reports whether this node carries an attribute specialization.
func (r *ResolvedEntry) IsAttribute() bool { return r.Attribute != nil }

// ChildrenByField returns, in encounter order, the children tagged with
// the given field (by Field.ID).
func (r *ResolvedEntry) ChildrenByField(fieldID ulid.ULID) []*ResolvedEntry {
	var out []*ResolvedEntry
	for _, c := range r.Children {
		if c.FieldSlot != nil && c.FieldSlot.ID == fieldID {
			out = append(out, c)
		}
	}
	return out
}

// Clone produces a structural deep copy of the subtree rooted at r. The
// instance resolver uses this to avoid aliasing oracle-owned trees
// (spec.md §9 "Cyclic references").
func (r *ResolvedEntry) Clone() *ResolvedEntry {
	if r == nil {
		return nil
	}
	entryCopy := *r.Entry
	out := &ResolvedEntry{
		Entry:     &entryCopy,
		FieldSlot: r.FieldSlot,
	}
	if r.Metric != nil {
		m := *r.Metric
		out.Metric = &m
	}
	if r.Attribute != nil {
		a := *r.Attribute
		out.Attribute = &a
	}
	if len(r.Children) > 0 {
		out.Children = make([]*ResolvedEntry, len(r.Children))
		for i, c := range r.Children {
			out.Children[i] = c.Clone()
		}
	}
	return out
}
