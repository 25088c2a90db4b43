// Package widget provides the Widget Aggregation DSL's domain types:
// the parsed WidgetDefinition shape, the flattened LoadedEntry rows the
// external loader produces, and the anchor-date/period vocabulary used
// to resolve a widget's dataset (spec.md §4.8, §6.3).
package widget

import (
	"context"
	"time"
)

// FieldType is the declared output type of a widget's computed field
// (spec.md §6.5's "(int|float)").
type FieldType string

const (
	FieldTypeInt   FieldType = "int"
	FieldTypeFloat FieldType = "float"
)

// IsValid reports whether t is a recognized FieldType.
func (t FieldType) IsValid() bool { return t == FieldTypeInt || t == FieldTypeFloat }

// Dataset binds a widget's single alias to the metric definition code
// its data is loaded from.
type Dataset struct {
	Alias          string
	DefinitionCode string
}

// ComputedField is one "LABEL": type = expr line of a widget body.
type ComputedField struct {
	Label string
	Type  FieldType
	Expr  string
}

// Definition is a fully parsed widget: a name, the single dataset it
// draws from, and its computed fields in declaration order.
type Definition struct {
	Name    string
	Dataset Dataset
	Fields  []ComputedField
}

// Dashboard groups a named, ordered set of widget Definitions evaluated
// together against one anchor (spec.md's external dashboard aggregator,
// carried in-repo per SPEC_FULL.md's widget domain stack).
type Dashboard struct {
	Name    string
	Widgets []*Definition
}

// Period is one of the four calendar windows a widget's dataset can be
// scoped to (spec.md §6.3).
type Period string

const (
	PeriodDay   Period = "DAY"
	PeriodToday Period = "TODAY"
	PeriodWeek  Period = "WEEK"
	PeriodMonth Period = "MONTH"
	PeriodYear  Period = "YEAR"
)

// IsValid reports whether p is a recognized Period.
func (p Period) IsValid() bool {
	switch p {
	case PeriodDay, PeriodToday, PeriodWeek, PeriodMonth, PeriodYear:
		return true
	default:
		return false
	}
}

// DateRange resolves p into a half-open [start, end) range against
// anchor's local calendar (spec.md §6.3's table).
func (p Period) DateRange(anchor time.Time) (start, end time.Time) {
	loc := anchor.Location()
	midnight := time.Date(anchor.Year(), anchor.Month(), anchor.Day(), 0, 0, 0, 0, loc)
	switch p {
	case PeriodDay, PeriodToday:
		return midnight, midnight.AddDate(0, 0, 1)
	case PeriodWeek:
		// ISO: Monday is the first day of the week.
		offset := (int(midnight.Weekday()) + 6) % 7
		monday := midnight.AddDate(0, 0, -offset)
		return monday, monday.AddDate(0, 0, 7)
	case PeriodMonth:
		first := time.Date(anchor.Year(), anchor.Month(), 1, 0, 0, 0, 0, loc)
		return first, first.AddDate(0, 1, 0)
	case PeriodYear:
		first := time.Date(anchor.Year(), time.January, 1, 0, 0, 0, 0, loc)
		return first, first.AddDate(1, 0, 0)
	default:
		return midnight, midnight.AddDate(0, 0, 1)
	}
}

// LoadParams is the widget loader's query shape (spec.md §6.3).
type LoadParams struct {
	User       string
	AnchorDate time.Time
	Period     Period
}

// LoadedEntry is the flattened row shape the external loader produces
// for one entry drawn into a widget's dataset (spec.md §4.8 step 2).
type LoadedEntry struct {
	ID             string
	DefinitionCode string
	Timestamp      time.Time
	Subdivision    *string

	// Attributes is a flat field-name -> scalar map. Values are int64,
	// float64, string, or bool; non-numeric values are filtered out by
	// the collection resolver's Field(name) when the expression asks
	// for a numeric coercion.
	Attributes map[string]any

	// TimeValues holds, for TIM entries only, the subdivision-prefix ->
	// summed-int map the collection resolver's Time(base) sums over.
	TimeValues map[string]int64
}

// Loader is the external widget data source (spec.md §6.3):
// load_entries_for_widget(definition_code, {user, anchor_date, period}).
type Loader interface {
	LoadEntriesForWidget(ctx context.Context, definitionCode string, params LoadParams) ([]*LoadedEntry, error)
}
