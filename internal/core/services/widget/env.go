package widget

import (
	"fmt"

	"metricore/internal/core/services/metrics/formula"
)

// datasetEnv implements formula.Env for the Widget Aggregation DSL: a
// single bound alias resolving to a collection handle, no self/parent/
// root navigation, and no where() support (spec.md §4.8 binds only the
// alias; entry-tree navigation is the Entry Formula DSL's concern).
type datasetEnv struct {
	alias string
	value formula.Value
}

func newDatasetEnv(alias string, resolver formula.CollectionResolver) *datasetEnv {
	return &datasetEnv{alias: alias, value: formula.CollectionValue(resolver)}
}

func (e *datasetEnv) Ident(name string) (formula.Value, bool, error) {
	if name == e.alias {
		return e.value, true, nil
	}
	return formula.Null, false, nil
}

// EmptyAggregateIsError is false in widget context: an empty dataset
// yields 0 for sum/avg/count rather than an error (spec.md §4.8 step 4).
func (e *datasetEnv) EmptyAggregateIsError() bool { return false }

func (e *datasetEnv) FieldAccess(receiver formula.Value, name string) (formula.Value, error) {
	if receiver.Kind != formula.KindCollection {
		return formula.Null, fmt.Errorf("cannot access field %q on a %s", name, receiver.Kind.String())
	}
	nums, err := receiver.Collection.Field(name)
	if err != nil {
		return formula.Null, err
	}
	return formula.CollectionNumbersValue(nums), nil
}

func (e *datasetEnv) Index(receiver formula.Value, index formula.Value) (formula.Value, error) {
	return formula.Null, fmt.Errorf("indexing is not supported in widget expressions")
}

func (e *datasetEnv) Where(receiver formula.Value, predicate string) (formula.Value, error) {
	return formula.Null, fmt.Errorf("where() is not supported in widget expressions")
}

// MethodCall implements the reserved alias.time(base) call (spec.md
// §4.8): callable only on the dataset alias itself.
func (e *datasetEnv) MethodCall(receiver formula.Value, name string, args []formula.Value) (formula.Value, error) {
	if name != "time" {
		return formula.Null, fmt.Errorf("unknown method %q", name)
	}
	if receiver.Kind != formula.KindCollection {
		return formula.Null, fmt.Errorf("time() is only callable on a dataset alias, got %s", receiver.Kind.String())
	}
	if len(args) != 1 || args[0].Kind != formula.KindString {
		return formula.Null, fmt.Errorf("time() requires a single string argument")
	}
	nums, err := receiver.Collection.Time(args[0].Str)
	if err != nil {
		return formula.Null, err
	}
	return formula.CollectionNumbersValue(nums), nil
}
