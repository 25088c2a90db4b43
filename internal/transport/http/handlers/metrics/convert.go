package metrics

import (
	metricsDomain "metricore/internal/core/domain/metrics"
)

func (r SubmitEntryRequest) toDomain() *metricsDomain.MetricEntryInput {
	input := &metricsDomain.MetricEntryInput{
		DefinitionCode: r.DefinitionCode,
		Timestamp:      r.Timestamp,
		Subdivision:    r.Subdivision,
		Comments:       r.Comments,
	}
	for _, f := range r.Fields {
		input.Fields = append(input.Fields, f.toDomain())
	}
	for _, c := range r.Children {
		input.Children = append(input.Children, c.toDomain())
	}
	return input
}

func (f FieldInputRequest) toDomain() metricsDomain.FieldInput {
	out := metricsDomain.FieldInput{FieldName: f.FieldName}
	for _, v := range f.Values {
		out.Values = append(out.Values, v.toDomain())
	}
	return out
}

func (v AttributeValueRequest) toDomain() metricsDomain.AttributeValueInput {
	out := metricsDomain.AttributeValueInput{
		Int:         v.Int,
		Float:       v.Float,
		Str:         v.Str,
		Bool:        v.Bool,
		Timestamp:   v.Timestamp,
		Hierarchy:   v.Hierarchy,
		Subdivision: v.Subdivision,
	}
	if v.Nested != nil {
		out.Nested = v.Nested.toDomain()
	}
	return out
}

func toResponse(r *metricsDomain.ResolvedEntry) ResolvedEntryResponse {
	out := ResolvedEntryResponse{
		ID:           int64(r.Entry.ID),
		DefinitionID: r.Entry.DefinitionID.String(),
		Timestamp:    r.Entry.Timestamp,
		Subdivision:  r.Entry.Subdivision,
		Comments:     r.Entry.Comments,
	}
	if r.Entry.ParentEntryID != nil {
		parentID := int64(*r.Entry.ParentEntryID)
		out.ParentID = &parentID
	}
	if r.FieldSlot != nil {
		name := r.FieldSlot.Name
		out.FieldName = &name
	}
	switch {
	case r.IsMetric():
		out.Kind = "metric"
	case r.IsAttribute():
		out.Kind = "attribute"
		out.Value = &TypedValueResponse{
			Int:       r.Attribute.Value.Int,
			Float:     r.Attribute.Value.Float,
			Str:       r.Attribute.Value.Str,
			Bool:      r.Attribute.Value.Bool,
			Timestamp: r.Attribute.Value.Timestamp,
			Hierarchy: r.Attribute.Value.Hierarchy,
		}
	}
	for _, child := range r.Children {
		out.Children = append(out.Children, toResponse(child))
	}
	return out
}
