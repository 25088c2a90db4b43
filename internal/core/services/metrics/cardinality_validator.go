package metrics

import (
	metricsDomain "metricore/internal/core/domain/metrics"
)

// CardinalityValidator checks, for every metric node and every field of
// its metric, that the number of tagged children falls within
// [min, max] (spec.md §4.7). The first violation aborts the walk.
type CardinalityValidator struct {
	ctx *metricsDomain.PipelineContext
}

// NewCardinalityValidator returns a CardinalityValidator bound to ctx.
func NewCardinalityValidator(ctx *metricsDomain.PipelineContext) *CardinalityValidator {
	return &CardinalityValidator{ctx: ctx}
}

// Validate walks node depth-first, checking cardinality on every metric
// node it visits.
func (v *CardinalityValidator) Validate(node *metricsDomain.ResolvedEntry) error {
	if node.IsMetric() {
		for _, field := range v.ctx.FieldsByMetric[node.Entry.DefinitionID] {
			actual := len(node.ChildrenByField(field.ID))
			if actual < field.MinInstances || (field.MaxInstances != metricsDomain.Unbounded && actual > field.MaxInstances) {
				return &metricsDomain.CardinalityError{
					Field:     field,
					FieldName: field.Name,
					Min:       field.MinInstances,
					Max:       field.MaxInstances,
					Actual:    actual,
				}
			}
		}
	}
	for _, child := range node.Children {
		if child.IsMetric() {
			if err := v.Validate(child); err != nil {
				return err
			}
		}
	}
	return nil
}
