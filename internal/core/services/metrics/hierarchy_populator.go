package metrics

import (
	"regexp"
	"strconv"

	metricsDomain "metricore/internal/core/domain/metrics"
)

// hierarchyFormulaPattern matches a formula body (already trimmed) that
// is exactly one of subdivision[N], division[N], path[N] (spec.md §4.2).
var hierarchyFormulaPattern = regexp.MustCompile(`^(subdivision|division|path)\[(\d+)\]$`)

// HierarchyPopulator pre-materializes formula fields whose body is a
// hierarchy-only form, before instance resolution runs (spec.md §4.2):
// a downstream step may need to resolve the produced string against
// existing metric instances. Its provisional-id counter is disjoint
// from the Builder's and the FormulaApplier's: ids it allocates are
// always <= -1000.
type HierarchyPopulator struct {
	ctx    *metricsDomain.PipelineContext
	state  *metricsDomain.PipelineState
	nextID metricsDomain.EntryID
}

// NewHierarchyPopulator returns a HierarchyPopulator whose id counter
// starts at -1000 and descends.
func NewHierarchyPopulator(ctx *metricsDomain.PipelineContext, state *metricsDomain.PipelineState) *HierarchyPopulator {
	return &HierarchyPopulator{ctx: ctx, state: state, nextID: -1000}
}

func (p *HierarchyPopulator) allocate() metricsDomain.EntryID {
	id := p.nextID
	p.nextID--
	return id
}

// Populate walks node depth-first, pre-materializing hierarchy-only
// formula fields on every metric node it encounters.
func (p *HierarchyPopulator) Populate(node *metricsDomain.ResolvedEntry) error {
	if node.IsMetric() {
		if err := p.populateNode(node); err != nil {
			return err
		}
	}
	for _, child := range node.Children {
		if child.IsMetric() {
			if err := p.Populate(child); err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *HierarchyPopulator) populateNode(node *metricsDomain.ResolvedEntry) error {
	fields := p.ctx.FieldsByMetric[node.Entry.DefinitionID]
	for _, field := range fields {
		if field.InputMode != metricsDomain.InputModeFormula {
			continue
		}
		match := hierarchyFormulaPattern.FindStringSubmatch(trimSpace(field.Formula))
		if match == nil {
			continue
		}
		vectorName := match[1]
		index, _ := strconv.Atoi(match[2])

		var vector []string
		switch vectorName {
		case "subdivision":
			vector = p.state.Subdivision
		case "division":
			vector = p.state.Division
		case "path":
			vector = p.state.Path
		}
		if index < 0 || index >= len(vector) {
			return &metricsDomain.SubdivisionError{Field: field, Formula: field.Formula, Index: index, VectorLen: len(vector)}
		}
		value := vector[index]

		baseDef := p.ctx.Definitions[field.BaseDefinitionID]
		if baseDef == nil {
			return &metricsDomain.FormulaError{Field: field, Formula: field.Formula, Message: "unknown base definition for field " + field.Name}
		}

		existing := node.ChildrenByField(field.ID)
		var target *metricsDomain.ResolvedEntry
		for _, c := range existing {
			if c.IsAttribute() {
				target = c
				break
			}
		}
		if target == nil {
			target = &metricsDomain.ResolvedEntry{
				Entry: &metricsDomain.Entry{
					ID:            p.allocate(),
					DefinitionID:  baseDef.ID,
					Timestamp:     node.Entry.Timestamp,
					Subdivision:   node.Entry.Subdivision,
					ParentEntryID: entryIDPtr(node.Entry.ID),
				},
				Attribute: &metricsDomain.AttributeSpecialization{Field: field},
				FieldSlot: field,
			}
			node.Children = append(node.Children, target)
		}

		if baseDef.IsAttribute() {
			if err := target.Attribute.Value.SetByDatatype(baseDef.Datatype, value); err != nil {
				return &metricsDomain.FormulaError{Field: field, Formula: field.Formula, Message: err.Error()}
			}
		} else {
			v := value
			target.Attribute.Value = metricsDomain.TypedValue{Str: &v}
		}
	}
	return nil
}

func trimSpace(s string) string {
	start, end := 0, len(s)
	for start < end && isSpaceByte(s[start]) {
		start++
	}
	for end > start && isSpaceByte(s[end-1]) {
		end--
	}
	return s[start:end]
}

func isSpaceByte(b byte) bool { return b == ' ' || b == '\t' || b == '\n' || b == '\r' }
