package widget

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"golang.org/x/sync/errgroup"

	widgetDomain "metricore/internal/core/domain/widget"
)

// ResultCache is the narrow caching dependency Service needs. Defined
// here, at the point of use, rather than imported from
// internal/infrastructure/cache: that package already depends on this
// one for FieldResult, so importing it back would cycle.
// *cache.WidgetResultCache satisfies this interface structurally.
type ResultCache interface {
	Get(ctx context.Context, key string) ([]FieldResult, bool)
	Set(ctx context.Context, key string, results []FieldResult) error
}

// Service ties the parse cache, the external loader, and the optional
// result cache together into the single call a transport handler makes
// per widget-evaluation request.
type Service struct {
	parseCache *ParseCache
	loader     widgetDomain.Loader
	cache      ResultCache // nil disables result caching
}

// NewService builds a Service. cache may be nil, in which case every
// call re-evaluates the widget from its loaded dataset.
func NewService(parseCache *ParseCache, loader widgetDomain.Loader, cache ResultCache) *Service {
	return &Service{parseCache: parseCache, loader: loader, cache: cache}
}

// EvaluateWidget parses source (via the parse cache), checks the result
// cache for the parsed widget (name, dataset and computed fields) plus
// params' (definition_code, user, anchor_date, period) tuple, and falls back to a full Evaluate on a miss, caching the outcome
// (SPEC_FULL.md §4.10).
func (s *Service) EvaluateWidget(ctx context.Context, source string, params widgetDomain.LoadParams) ([]FieldResult, error) {
	def, err := s.parseCache.Parse(source)
	if err != nil {
		return nil, fmt.Errorf("parse widget: %w", err)
	}
	return s.evaluateCached(ctx, def, params)
}

// EvaluateDashboardWidgets is EvaluateWidget generalized across a
// Dashboard's already-parsed widgets, fanned out concurrently the same
// way EvaluateDashboard does (a widget's error lands in its own
// DashboardResult.Err); each widget's own definition still keys the
// result cache independently, so a cache hit on one widget doesn't
// affect another's.
func (s *Service) EvaluateDashboardWidgets(ctx context.Context, dash *widgetDomain.Dashboard, params widgetDomain.LoadParams) ([]DashboardResult, error) {
	out := make([]DashboardResult, len(dash.Widgets))
	g, gctx := errgroup.WithContext(ctx)
	for i, def := range dash.Widgets {
		i, def := i, def
		g.Go(func() error {
			fields, err := s.evaluateCached(gctx, def, params)
			out[i] = DashboardResult{Name: def.Name, Fields: fields, Err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) evaluateCached(ctx context.Context, def *widgetDomain.Definition, params widgetDomain.LoadParams) ([]FieldResult, error) {
	key := resultCacheKey(def, params)
	if s.cache != nil {
		if results, ok := s.cache.Get(ctx, key); ok {
			return results, nil
		}
	}

	results, err := Evaluate(ctx, def, s.loader, params)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		_ = s.cache.Set(ctx, key, results)
	}
	return results, nil
}

func resultCacheKey(def *widgetDomain.Definition, params widgetDomain.LoadParams) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%s|%s", def.Dataset.DefinitionCode, params.User, params.AnchorDate.UTC().Format("2006-01-02"), params.Period)
	fmt.Fprintf(h, "|%q|%q", def.Name, def.Dataset.Alias)
	for _, f := range def.Fields {
		fmt.Fprintf(h, "|%q:%s=%q", f.Label, f.Type, f.Expr)
	}
	return "widget_result:" + hex.EncodeToString(h.Sum(nil))
}
