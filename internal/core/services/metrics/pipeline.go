package metrics

import (
	"context"

	metricsDomain "metricore/internal/core/domain/metrics"
)

// RunPipeline is a pure function of (input, ctx) modulo calls through
// ctx.Existing (spec.md §5): it builds the initial tree, pre-materializes
// hierarchy-only formulas, resolves metric-reference placeholders
// against the existing-entries oracle, evaluates remaining formula
// fields, and validates cardinality — in that fixed order, aborting on
// the first error with no partial tree exposed to the caller.
func RunPipeline(ctx context.Context, input *metricsDomain.MetricEntryInput, pctx *metricsDomain.PipelineContext) (*metricsDomain.ResolvedEntry, error) {
	builder := NewBuilder(pctx)
	root, err := builder.Build(input)
	if err != nil {
		return nil, err
	}

	state := metricsDomain.NewPipelineState(root, pctx)

	populator := NewHierarchyPopulator(pctx, state)
	if err := populator.Populate(root); err != nil {
		return nil, err
	}

	resolver := NewInstanceResolver(pctx)
	if err := resolver.Resolve(ctx, root); err != nil {
		return nil, err
	}

	applier := NewFormulaApplier(pctx, root, state)
	if err := applier.Apply(root); err != nil {
		return nil, err
	}

	validator := NewCardinalityValidator(pctx)
	if err := validator.Validate(root); err != nil {
		return nil, err
	}

	return root, nil
}
