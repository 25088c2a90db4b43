package metrics

import (
	"fmt"

	metricsDomain "metricore/internal/core/domain/metrics"
	"metricore/internal/core/services/metrics/formula"
)

// FormulaApplier evaluates each metric node's formula fields (spec.md
// §4.6), writing results into attribute children. Its provisional-id
// counter is disjoint from the Builder's and HierarchyPopulator's: ids
// it allocates are always <= -2000.
type FormulaApplier struct {
	ctx    *metricsDomain.PipelineContext
	root   *metricsDomain.ResolvedEntry
	state  *metricsDomain.PipelineState
	nextID metricsDomain.EntryID
}

// NewFormulaApplier returns a FormulaApplier whose id counter starts at
// -2000 and descends.
func NewFormulaApplier(ctx *metricsDomain.PipelineContext, root *metricsDomain.ResolvedEntry, state *metricsDomain.PipelineState) *FormulaApplier {
	return &FormulaApplier{ctx: ctx, root: root, state: state, nextID: -2000}
}

func (a *FormulaApplier) allocate() metricsDomain.EntryID {
	id := a.nextID
	a.nextID--
	return id
}

// Apply walks node depth-first, evaluating formula fields on every
// metric node with parent supplying the self/parent bindings.
func (a *FormulaApplier) Apply(node *metricsDomain.ResolvedEntry) error {
	return a.applyNode(node, nil)
}

func (a *FormulaApplier) applyNode(node, parent *metricsDomain.ResolvedEntry) error {
	if node.IsMetric() {
		if err := a.applyFieldsOf(node, parent); err != nil {
			return err
		}
	}
	for _, child := range node.Children {
		if child.IsMetric() {
			if err := a.applyNode(child, node); err != nil {
				return err
			}
		}
	}
	return nil
}

func (a *FormulaApplier) applyFieldsOf(node, parent *metricsDomain.ResolvedEntry) error {
	fields := a.ctx.FieldsByMetric[node.Entry.DefinitionID]

	// Stable partition: input_mode=input fields first, then
	// input_mode=formula fields, each group preserving declaration
	// order (spec.md §4.6).
	var formulaFields []*metricsDomain.Field
	for _, f := range fields {
		if f.InputMode == metricsDomain.InputModeFormula {
			formulaFields = append(formulaFields, f)
		}
	}

	fieldValues := map[string]formula.Value{}
	for _, field := range formulaFields {
		if hierarchyFormulaPattern.MatchString(trimSpace(field.Formula)) {
			continue // handled by the hierarchy populator (spec.md §4.2)
		}
		baseDef := a.ctx.Definitions[field.BaseDefinitionID]
		if baseDef == nil || !baseDef.IsAttribute() {
			return &metricsDomain.FormulaError{Field: field, Formula: field.Formula, Message: "formula field's base must be an attribute"}
		}

		astNode, err := formula.Parse(field.Formula)
		if err != nil {
			return &metricsDomain.FormulaError{Field: field, Formula: field.Formula, Message: err.Error()}
		}
		env := &formula.EntryEnv{
			Self:        node,
			Parent:      parent,
			Root:        a.root,
			Division:    a.state.Division,
			Subdivision: a.state.Subdivision,
			Path:        a.state.Path,
			Ctx:         a.ctx,
			FieldValues: fieldValues,
		}
		result, err := formula.Eval(astNode, env)
		if err != nil {
			return &metricsDomain.FormulaError{Field: field, Formula: field.Formula, Message: err.Error()}
		}
		if result.IsNull() {
			return &metricsDomain.FormulaError{Field: field, Formula: field.Formula, Message: "formula evaluated to null"}
		}
		if result.IsList() {
			return &metricsDomain.FormulaError{Field: field, Formula: field.Formula, Message: "formula must produce a single value"}
		}
		raw, err := scalarRaw(result)
		if err != nil {
			return &metricsDomain.FormulaError{Field: field, Formula: field.Formula, Message: err.Error()}
		}
		fieldValues[field.Name] = result

		target := a.targetAttributeChild(node, field, baseDef)
		if err := target.Attribute.Value.SetByDatatype(baseDef.Datatype, raw); err != nil {
			return &metricsDomain.FormulaError{Field: field, Formula: field.Formula, Message: err.Error()}
		}
	}
	return nil
}

func (a *FormulaApplier) targetAttributeChild(node *metricsDomain.ResolvedEntry, field *metricsDomain.Field, baseDef *metricsDomain.Definition) *metricsDomain.ResolvedEntry {
	for _, c := range node.ChildrenByField(field.ID) {
		if c.IsAttribute() {
			return c
		}
	}
	child := &metricsDomain.ResolvedEntry{
		Entry: &metricsDomain.Entry{
			ID:            a.allocate(),
			DefinitionID:  baseDef.ID,
			Timestamp:     node.Entry.Timestamp,
			Subdivision:   node.Entry.Subdivision,
			ParentEntryID: entryIDPtr(node.Entry.ID),
		},
		Attribute: &metricsDomain.AttributeSpecialization{Field: field},
		FieldSlot: field,
	}
	node.Children = append(node.Children, child)
	return child
}

func scalarRaw(v formula.Value) (any, error) {
	switch v.Kind {
	case formula.KindNumber:
		return v.Number, nil
	case formula.KindString:
		return v.Str, nil
	case formula.KindBool:
		return v.Bool, nil
	default:
		return nil, fmt.Errorf("formula must produce a number, string, or bool, got %s", v.Kind.String())
	}
}
