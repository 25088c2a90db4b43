package metrics

import (
	"context"

	metricsDomain "metricore/internal/core/domain/metrics"
)

// InstanceResolver replaces placeholder attribute children of
// metric-typed fields with the existing entry tree they reference
// (spec.md §4.4). It queries the oracle depth-first, left-to-right,
// preserving the run's deterministic lookup order.
type InstanceResolver struct {
	ctx *metricsDomain.PipelineContext
}

// NewInstanceResolver returns an InstanceResolver bound to ctx.
func NewInstanceResolver(ctx *metricsDomain.PipelineContext) *InstanceResolver {
	return &InstanceResolver{ctx: ctx}
}

// Resolve walks node's children depth-first, splicing in oracle results
// for every metric-reference placeholder it finds.
func (r *InstanceResolver) Resolve(ctx context.Context, node *metricsDomain.ResolvedEntry) error {
	for _, child := range node.Children {
		baseDef := r.metricRefBase(child)
		if baseDef != nil {
			if child.IsMetric() {
				// Already an inline subtree (spec.md §4.1's nested-child
				// case); nothing to resolve for this child itself.
				continue
			}
			if err := r.resolvePlaceholder(ctx, child, baseDef); err != nil {
				return err
			}
			continue
		}
		if child.IsMetric() {
			if err := r.Resolve(ctx, child); err != nil {
				return err
			}
		}
	}
	return nil
}

// metricRefBase returns the base Definition when child is tagged with a
// field referencing a Metric that carries a primary identifier field,
// or nil otherwise.
func (r *InstanceResolver) metricRefBase(child *metricsDomain.ResolvedEntry) *metricsDomain.Definition {
	if child.FieldSlot == nil {
		return nil
	}
	baseDef := r.ctx.Definitions[child.FieldSlot.BaseDefinitionID]
	if baseDef == nil || !baseDef.IsMetric() || baseDef.PrimaryIdentifierFieldID == nil {
		return nil
	}
	return baseDef
}

func (r *InstanceResolver) resolvePlaceholder(ctx context.Context, child *metricsDomain.ResolvedEntry, baseDef *metricsDomain.Definition) error {
	if child.Attribute == nil {
		return &metricsDomain.FormulaError{Field: child.FieldSlot, Message: "metric-reference field carries neither a subtree nor a placeholder value"}
	}
	_, _, ok := child.Attribute.Value.Populated()
	var raw any
	switch {
	case child.Attribute.Value.Int != nil:
		raw = *child.Attribute.Value.Int
	case child.Attribute.Value.Str != nil:
		raw = *child.Attribute.Value.Str
	}
	if !ok || raw == nil {
		return &metricsDomain.InstanceResolutionError{Field: child.FieldSlot, MetricDefinition: baseDef, IdentifierValue: nil, MatchCount: 0}
	}

	matches, err := r.ctx.Existing.FindByPrimaryIdentifier(ctx, baseDef, raw)
	if err != nil {
		return err
	}
	switch len(matches) {
	case 0:
		return &metricsDomain.InstanceResolutionError{Field: child.FieldSlot, MetricDefinition: baseDef, IdentifierValue: raw, MatchCount: 0}
	case 1:
		resolved := matches[0].Clone()
		newEntry := *resolved.Entry
		newEntry.ID = child.Entry.ID // keep the placeholder's own identity
		newEntry.ParentEntryID = child.Entry.ParentEntryID
		child.Entry = &newEntry
		child.Metric = resolved.Metric
		child.Attribute = nil
		child.Children = resolved.Children
		return nil
	default:
		return &metricsDomain.InstanceResolutionError{Field: child.FieldSlot, MetricDefinition: baseDef, IdentifierValue: raw, MatchCount: len(matches)}
	}
}
