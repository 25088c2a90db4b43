package metrics

import "time"

// SubmitEntryRequest is the JSON shape accepted by EntryHandler.Submit.
// It mirrors metricsDomain.MetricEntryInput field for field rather than
// inventing a text grammar: spec.md never specifies a single-line
// parser grammar the way it does for the timing-block and widget DSLs,
// so a structured request body is the grounded choice here.
//
// @Description Metric entry submission request
type SubmitEntryRequest struct {
	DefinitionCode string               `json:"definition_code" binding:"required"`
	Timestamp      time.Time            `json:"timestamp" binding:"required"`
	Subdivision    *string              `json:"subdivision,omitempty"`
	Comments       *string              `json:"comments,omitempty"`
	Fields         []FieldInputRequest  `json:"fields,omitempty"`
	Children       []SubmitEntryRequest `json:"children,omitempty"`
}

// FieldInputRequest supplies one or more values for a named field.
type FieldInputRequest struct {
	FieldName string                   `json:"field_name" binding:"required"`
	Values    []AttributeValueRequest  `json:"values" binding:"required,min=1"`
}

// AttributeValueRequest is a single value supplied for a field slot.
// Exactly one scalar pointer (or Nested, for a metric-base field) should
// be set; the tree builder rejects ambiguous or empty values.
type AttributeValueRequest struct {
	Int         *int64                  `json:"int,omitempty"`
	Float       *float64                `json:"float,omitempty"`
	Str         *string                 `json:"str,omitempty"`
	Bool        *bool                   `json:"bool,omitempty"`
	Timestamp   *time.Time              `json:"timestamp,omitempty"`
	Hierarchy   *string                 `json:"hierarchy,omitempty"`
	Subdivision *string                 `json:"subdivision,omitempty"`
	Nested      *SubmitEntryRequest     `json:"nested,omitempty"`
}

// ResolvedEntryResponse is the JSON projection of a pipeline run's
// result tree.
//
// @Description Resolved metric entry tree
type ResolvedEntryResponse struct {
	ID           int64                    `json:"id"`
	DefinitionID string                   `json:"definition_id"`
	ParentID     *int64                   `json:"parent_id,omitempty"`
	Timestamp    time.Time                `json:"timestamp"`
	Subdivision  *string                  `json:"subdivision,omitempty"`
	Comments     *string                  `json:"comments,omitempty"`
	Kind         string                   `json:"kind"`
	FieldName    *string                  `json:"field_name,omitempty"`
	Value        *TypedValueResponse      `json:"value,omitempty"`
	Children     []ResolvedEntryResponse  `json:"children,omitempty"`
}

// TypedValueResponse is the JSON projection of an attribute node's
// single populated typed column.
type TypedValueResponse struct {
	Int       *int64     `json:"int,omitempty"`
	Float     *float64   `json:"float,omitempty"`
	Str       *string    `json:"str,omitempty"`
	Bool      *bool      `json:"bool,omitempty"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
	Hierarchy *string    `json:"hierarchy,omitempty"`
}
