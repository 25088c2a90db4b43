package widget

import (
	"context"
	"fmt"
	"math"

	widgetDomain "metricore/internal/core/domain/widget"
	"metricore/internal/core/services/metrics/formula"
)

// FieldResult is one computed field's outcome. Fields are evaluated
// independently: a division-by-zero or other evaluation error in one
// field does not prevent its siblings from producing a value (spec.md
// §6.6).
type FieldResult struct {
	Label string
	Type  widgetDomain.FieldType
	Value float64
	Err   error
}

// Evaluate loads def's dataset through loader and evaluates every
// computed field against it, returning one FieldResult per field in
// declaration order (spec.md §4.8's execution algorithm: resolve the
// dataset, build an evaluation context, evaluate each expression).
func Evaluate(ctx context.Context, def *widgetDomain.Definition, loader widgetDomain.Loader, params widgetDomain.LoadParams) ([]FieldResult, error) {
	rows, err := loader.LoadEntriesForWidget(ctx, def.Dataset.DefinitionCode, params)
	if err != nil {
		return nil, fmt.Errorf("loading dataset %q for widget %q: %w", def.Dataset.DefinitionCode, def.Name, err)
	}

	env := newDatasetEnv(def.Dataset.Alias, &loadedCollection{entries: rows})

	results := make([]FieldResult, len(def.Fields))
	for i, field := range def.Fields {
		results[i] = FieldResult{Label: field.Label, Type: field.Type}

		node, err := formula.Parse(field.Expr)
		if err != nil {
			results[i].Err = fmt.Errorf("field %q: %w", field.Label, err)
			continue
		}
		v, err := formula.Eval(node, env)
		if err != nil {
			results[i].Err = fmt.Errorf("field %q: %w", field.Label, err)
			continue
		}
		num, err := scalarize(v)
		if err != nil {
			results[i].Err = fmt.Errorf("field %q: %w", field.Label, err)
			continue
		}
		if field.Type == widgetDomain.FieldTypeInt {
			num = math.Floor(num)
		}
		results[i].Value = num
	}
	return results, nil
}

// scalarize collapses a computed field's final value into the single
// number the widget output requires, rejecting anything that is still
// list-shaped (the expression should have aggregated via sum/avg/min/
// max/count before reaching this point).
func scalarize(v formula.Value) (float64, error) {
	list, err := v.AsNumberList()
	if err != nil {
		return 0, err
	}
	switch len(list) {
	case 0:
		return 0, nil
	case 1:
		return list[0], nil
	default:
		return 0, fmt.Errorf("must reduce to a single number, got a list of %d", len(list))
	}
}
