package widget

import (
	"context"

	"golang.org/x/sync/errgroup"

	widgetDomain "metricore/internal/core/domain/widget"
)

// DashboardResult pairs one widget's name with its field results, in
// the same order as the Dashboard's Widgets slice. Err holds the error
// that stopped this widget's evaluation (e.g. a loader failure); it
// never affects the sibling widgets' results.
type DashboardResult struct {
	Name   string
	Fields []FieldResult
	Err    error
}

// EvaluateDashboard evaluates every widget in dash concurrently: the
// widgets are independent reads over (possibly) different datasets, so
// nothing is gained by serializing them the way a single widget's
// fields deliberately are (SPEC_FULL.md §5). One widget's loader error
// is recorded in that widget's own slot (DashboardResult.Err), not its
// siblings'.
func EvaluateDashboard(ctx context.Context, dash *widgetDomain.Dashboard, loader widgetDomain.Loader, params widgetDomain.LoadParams) ([]DashboardResult, error) {
	out := make([]DashboardResult, len(dash.Widgets))
	g, gctx := errgroup.WithContext(ctx)
	for i, def := range dash.Widgets {
		i, def := i, def
		g.Go(func() error {
			fields, err := Evaluate(gctx, def, loader, params)
			out[i] = DashboardResult{Name: def.Name, Fields: fields, Err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
