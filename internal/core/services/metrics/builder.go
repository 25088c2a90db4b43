package metrics

import (
	metricsDomain "metricore/internal/core/domain/metrics"
)

// Builder constructs the initial ResolvedEntry tree from a
// MetricEntryInput (spec.md §4.1). A Builder owns one monotonic
// provisional-id counter for the lifetime of a single pipeline run;
// ids it allocates are always >= 1.
type Builder struct {
	ctx    *metricsDomain.PipelineContext
	nextID metricsDomain.EntryID
}

// NewBuilder returns a Builder whose id counter starts at 1.
func NewBuilder(ctx *metricsDomain.PipelineContext) *Builder {
	return &Builder{ctx: ctx, nextID: 1}
}

func (b *Builder) allocate() metricsDomain.EntryID {
	id := b.nextID
	b.nextID++
	return id
}

// Build constructs a ResolvedEntry subtree for input, assigning
// provisional ids left-to-right, depth-first.
func (b *Builder) Build(input *metricsDomain.MetricEntryInput) (*metricsDomain.ResolvedEntry, error) {
	def := b.ctx.DefinitionByCode(input.DefinitionCode)
	if def == nil {
		return nil, &metricsDomain.FormulaError{Message: "unknown definition code " + input.DefinitionCode}
	}
	entry := &metricsDomain.Entry{
		ID:           b.allocate(),
		DefinitionID: def.ID,
		Timestamp:    metricsDomain.StartOfDay(input.Timestamp),
		Subdivision:  input.Subdivision,
		Comments:     input.Comments,
	}
	node := &metricsDomain.ResolvedEntry{Entry: entry, Metric: &metricsDomain.MetricSpecialization{}}

	for _, fi := range input.Fields {
		field := b.ctx.FieldByName(def.ID, fi.FieldName)
		if field == nil {
			return nil, &metricsDomain.FormulaError{Message: "unknown field " + fi.FieldName + " on definition " + input.DefinitionCode}
		}
		baseDef := b.ctx.Definitions[field.BaseDefinitionID]
		if baseDef == nil {
			return nil, &metricsDomain.FormulaError{Field: field, Message: "unknown base definition for field " + field.Name}
		}
		for _, v := range fi.Values {
			child, err := b.buildFieldChild(node, field, baseDef, v)
			if err != nil {
				return nil, err
			}
			node.Children = append(node.Children, child)
		}
	}

	for _, childInput := range input.Children {
		child, err := b.Build(childInput)
		if err != nil {
			return nil, err
		}
		node.Children = append(node.Children, child)
	}

	return node, nil
}

func (b *Builder) buildFieldChild(parent *metricsDomain.ResolvedEntry, field *metricsDomain.Field, baseDef *metricsDomain.Definition, v metricsDomain.AttributeValueInput) (*metricsDomain.ResolvedEntry, error) {
	sub := v.Subdivision
	if sub == nil {
		sub = parent.Entry.Subdivision
	}

	if baseDef.IsAttribute() {
		raw, _, ok := v.Raw()
		if !ok {
			return nil, &metricsDomain.FormulaError{Field: field, Message: "field " + field.Name + " is missing a value"}
		}
		child := &metricsDomain.ResolvedEntry{
			Entry: &metricsDomain.Entry{
				ID:            b.allocate(),
				DefinitionID:  baseDef.ID,
				Timestamp:     parent.Entry.Timestamp,
				Subdivision:   sub,
				ParentEntryID: entryIDPtr(parent.Entry.ID),
			},
			Attribute: &metricsDomain.AttributeSpecialization{Field: field},
			FieldSlot: field,
		}
		if err := child.Attribute.Value.SetByDatatype(baseDef.Datatype, raw); err != nil {
			return nil, &metricsDomain.FormulaError{Field: field, Message: err.Error()}
		}
		return child, nil
	}

	// baseDef.IsMetric()
	if v.Nested != nil {
		child, err := b.Build(v.Nested)
		if err != nil {
			return nil, err
		}
		child.FieldSlot = field
		child.Entry.ParentEntryID = entryIDPtr(parent.Entry.ID)
		return child, nil
	}
	if idVal, ok := v.IdentifierValue(); ok {
		child := &metricsDomain.ResolvedEntry{
			Entry: &metricsDomain.Entry{
				ID:            b.allocate(),
				DefinitionID:  baseDef.ID,
				Timestamp:     parent.Entry.Timestamp,
				Subdivision:   sub,
				ParentEntryID: entryIDPtr(parent.Entry.ID),
			},
			Attribute: &metricsDomain.AttributeSpecialization{Field: field},
			FieldSlot: field,
		}
		switch id := idVal.(type) {
		case int64:
			child.Attribute.Value.Int = &id
		case string:
			child.Attribute.Value.Str = &id
		}
		return child, nil
	}
	return nil, &metricsDomain.FormulaError{Field: field, Message: "field " + field.Name + " references a metric but supplies neither a nested entry nor an identifier"}
}

func entryIDPtr(id metricsDomain.EntryID) *metricsDomain.EntryID { return &id }
