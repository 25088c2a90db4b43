package widget

import "time"

// EvaluateWidgetRequest is the JSON shape accepted by Handler.Evaluate:
// the widget's raw DSL source plus the (user, anchor_date, period)
// tuple its dataset is scoped to (spec.md §6.3).
//
// @Description Widget evaluation request
type EvaluateWidgetRequest struct {
	Source     string    `json:"source" binding:"required"`
	User       string    `json:"user" binding:"required"`
	AnchorDate time.Time `json:"anchor_date" binding:"required"`
	Period     string    `json:"period" binding:"required,oneof=DAY TODAY WEEK MONTH YEAR"`
}

// FieldResultResponse is the JSON projection of one computed field's
// outcome. A field that failed to evaluate carries Error instead of
// Value, without failing its siblings (spec.md §6.6).
//
// @Description Computed field result
type FieldResultResponse struct {
	Label string  `json:"label"`
	Type  string  `json:"type"`
	Value float64 `json:"value,omitempty"`
	Error string  `json:"error,omitempty"`
}
