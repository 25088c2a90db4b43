package formula

import (
	"fmt"
	"strings"

	metricsDomain "metricore/internal/core/domain/metrics"
)

// EntryEnv binds the Entry Formula DSL's reserved context identifiers
// (spec.md §6.4: self, parent, root, path, division, subdivision)
// against a single pipeline run's tree and PipelineContext. FieldValues
// is the formula applier's scratch map (spec.md §4.6): a formula field
// evaluated earlier on the same node is visible to later ones by name
// before the tree lookup is consulted.
type EntryEnv struct {
	Self        *metricsDomain.ResolvedEntry
	Parent      *metricsDomain.ResolvedEntry
	Root        *metricsDomain.ResolvedEntry
	Division    []string
	Subdivision []string
	Path        []string
	Ctx         *metricsDomain.PipelineContext
	FieldValues map[string]Value
}

var timeBases = map[string]bool{"t": true, "m": true, "p": true, "n": true}

func (e *EntryEnv) Ident(name string) (Value, bool, error) {
	switch name {
	case "self":
		return entryOrNull(e.Self), true, nil
	case "parent":
		return entryOrNull(e.Parent), true, nil
	case "root":
		return entryOrNull(e.Root), true, nil
	case "division":
		return StringValue(strings.Join(e.Division, "/")), true, nil
	case "subdivision":
		return StringValue(strings.Join(e.Subdivision, "/")), true, nil
	case "path":
		return StringValue(strings.Join(e.Path, "/")), true, nil
	default:
		return Null, false, nil
	}
}

func entryOrNull(e *metricsDomain.ResolvedEntry) Value {
	if e == nil {
		return Null
	}
	return EntryRefValue(e)
}

// EmptyAggregateIsError is true in entry context (spec.md §4.5).
func (e *EntryEnv) EmptyAggregateIsError() bool { return true }

func (e *EntryEnv) FieldAccess(receiver Value, name string) (Value, error) {
	switch receiver.Kind {
	case KindNull:
		return Null, nil
	case KindEntryRef:
		return e.fieldAccessOne(receiver.Entry, name)
	case KindEntryRefList:
		var numbers []float64
		var strs []string
		var bools []bool
		var entries []*metricsDomain.ResolvedEntry
		sawNumber, sawString, sawBool, sawEntry := false, false, false, false
		for _, ref := range receiver.EntryList {
			v, err := e.fieldAccessOne(ref, name)
			if err != nil {
				return Null, err
			}
			switch v.Kind {
			case KindNull:
				continue
			case KindNumber:
				numbers = append(numbers, v.Number)
				sawNumber = true
			case KindNumberList:
				numbers = append(numbers, v.NumberList...)
				sawNumber = true
			case KindString:
				strs = append(strs, v.Str)
				sawString = true
			case KindStringList:
				strs = append(strs, v.StringList...)
				sawString = true
			case KindBool:
				bools = append(bools, v.Bool)
				sawBool = true
			case KindBoolList:
				bools = append(bools, v.BoolList...)
				sawBool = true
			case KindEntryRef:
				entries = append(entries, v.Entry)
				sawEntry = true
			case KindEntryRefList:
				entries = append(entries, v.EntryList...)
				sawEntry = true
			}
		}
		switch {
		case sawNumber && !sawString && !sawBool && !sawEntry:
			return collapseNumberList(numbers), nil
		case sawString && !sawNumber && !sawBool && !sawEntry:
			return collapseStringList(strs), nil
		case sawBool && !sawNumber && !sawString && !sawEntry:
			return collapseBoolList(bools), nil
		case sawEntry && !sawNumber && !sawString && !sawBool:
			return collapseEntryList(entries), nil
		default:
			return Null, nil
		}
	default:
		return Null, fmt.Errorf("cannot access field %q on a %s", name, receiver.Kind.String())
	}
}

// fieldAccessOne implements spec.md §4.5's per-entry field navigation:
// locate the field by name on the entry's metric, collect tagged
// children, and classify the result by whether the children are
// uniformly attributes, uniformly metrics, or mixed/absent.
func (e *EntryEnv) fieldAccessOne(entry *metricsDomain.ResolvedEntry, name string) (Value, error) {
	if entry == nil {
		return Null, nil
	}
	if entry == e.Self {
		if v, ok := e.FieldValues[name]; ok {
			return v, nil
		}
	}
	field := e.Ctx.FieldByName(entry.Entry.DefinitionID, name)
	if field == nil {
		return Null, nil
	}
	children := entry.ChildrenByField(field.ID)
	if len(children) == 0 {
		return Null, nil
	}
	allAttribute, allMetric := true, true
	for _, c := range children {
		if !c.IsAttribute() {
			allAttribute = false
		}
		if !c.IsMetric() {
			allMetric = false
		}
	}
	switch {
	case allAttribute:
		return collapseAttributeValues(children)
	case allMetric:
		refs := make([]*metricsDomain.ResolvedEntry, len(children))
		copy(refs, children)
		return collapseEntryList(refs), nil
	default:
		return Null, nil
	}
}

func collapseAttributeValues(children []*metricsDomain.ResolvedEntry) (Value, error) {
	col, ok := children[0].Attribute.Value.Populated()
	if !ok {
		return Null, nil
	}
	switch col {
	case "int", "float":
		nums := make([]float64, 0, len(children))
		for _, c := range children {
			v := c.Attribute.Value
			switch {
			case v.Int != nil:
				nums = append(nums, float64(*v.Int))
			case v.Float != nil:
				nums = append(nums, *v.Float)
			default:
				return Null, nil
			}
		}
		return collapseNumberList(nums), nil
	case "string", "hierarchy":
		strs := make([]string, 0, len(children))
		for _, c := range children {
			v := c.Attribute.Value
			switch {
			case v.Str != nil:
				strs = append(strs, *v.Str)
			case v.Hierarchy != nil:
				strs = append(strs, *v.Hierarchy)
			default:
				return Null, nil
			}
		}
		return collapseStringList(strs), nil
	case "bool":
		bools := make([]bool, 0, len(children))
		for _, c := range children {
			if c.Attribute.Value.Bool == nil {
				return Null, nil
			}
			bools = append(bools, *c.Attribute.Value.Bool)
		}
		return collapseBoolList(bools), nil
	case "timestamp":
		strs := make([]string, 0, len(children))
		for _, c := range children {
			if c.Attribute.Value.Timestamp == nil {
				return Null, nil
			}
			strs = append(strs, c.Attribute.Value.Timestamp.Format("2006-01-02"))
		}
		return collapseStringList(strs), nil
	default:
		return Null, nil
	}
}

func (e *EntryEnv) Index(receiver Value, index Value) (Value, error) {
	if index.Kind != KindNumber {
		return Null, fmt.Errorf("index must be a number")
	}
	idx := int(index.Number)
	switch receiver.Kind {
	case KindString:
		tokens := metricsDomain.SplitSubdivision(receiver.Str)
		if idx < 0 || idx >= len(tokens) {
			return Null, fmt.Errorf("index %d out of range for vector of length %d", idx, len(tokens))
		}
		return StringValue(tokens[idx]), nil
	default:
		return Null, fmt.Errorf("cannot index into a %s", receiver.Kind.String())
	}
}

// Where implements the MVP predicate form spec.md §4.5 defines:
// `identifier "in" "prefix"` where identifier must be `subdivision`.
func (e *EntryEnv) Where(receiver Value, predicate string) (Value, error) {
	if receiver.Kind != KindEntryRefList && receiver.Kind != KindEntryRef {
		return Null, fmt.Errorf("where() requires a list of entries, got %s", receiver.Kind.String())
	}
	entries := receiver.EntryList
	if receiver.Kind == KindEntryRef {
		entries = []*metricsDomain.ResolvedEntry{receiver.Entry}
	}
	prefix, err := parseSubdivisionInPredicate(predicate)
	if err != nil {
		return Null, err
	}
	var out []*metricsDomain.ResolvedEntry
	for _, ent := range entries {
		sub := ""
		if ent.Entry.Subdivision != nil {
			sub = *ent.Entry.Subdivision
		}
		if sub == prefix || strings.HasPrefix(sub, prefix+"/") {
			out = append(out, ent)
		}
	}
	return EntryRefListValue(out), nil
}

func parseSubdivisionInPredicate(predicate string) (string, error) {
	tokens := Tokenize(predicate)
	if len(tokens) < 3 || tokens[0].Type != TokenIdent || tokens[0].Text != "subdivision" {
		return "", fmt.Errorf("unsupported where() predicate %q: only `subdivision in \"prefix\"` is supported", predicate)
	}
	if tokens[1].Type != TokenIdent || tokens[1].Text != "in" {
		return "", fmt.Errorf("unsupported where() predicate %q: expected `in`", predicate)
	}
	if tokens[2].Type != TokenString {
		return "", fmt.Errorf("unsupported where() predicate %q: expected a string literal", predicate)
	}
	return unquote(tokens[2].Text), nil
}

// MethodCall implements the reserved `time(base)` method (spec.md
// §4.5): callable only on an entry reference whose definition carries a
// field named "time_type".
func (e *EntryEnv) MethodCall(receiver Value, name string, args []Value) (Value, error) {
	if name != "time" {
		return Null, fmt.Errorf("unknown method %q", name)
	}
	if receiver.Kind != KindEntryRef {
		return Null, fmt.Errorf("time() is only callable on a single entry, got %s", receiver.Kind.String())
	}
	if len(args) != 1 || args[0].Kind != KindString {
		return Null, fmt.Errorf("time() requires a single string argument")
	}
	base := args[0].Str
	if !timeBases[base] {
		return Null, fmt.Errorf("time(): unknown base %q, must be one of t, m, p, n", base)
	}
	entry := receiver.Entry
	field := e.Ctx.FieldByName(entry.Entry.DefinitionID, "time_type")
	if field == nil {
		return NumberValue(0), nil
	}
	total := int64(0)
	for _, c := range entry.ChildrenByField(field.ID) {
		if !c.IsAttribute() || c.Attribute.Value.Int == nil {
			continue
		}
		sub := ""
		if c.Entry.Subdivision != nil {
			sub = *c.Entry.Subdivision
		}
		if sub == base || strings.HasPrefix(sub, base+"/") {
			total += *c.Attribute.Value.Int
		}
	}
	return NumberValue(float64(total)), nil
}
