// Package metrics provides the entry pipeline domain model: schema
// definitions, the working ResolvedEntry tree, and the pipeline context
// the tree is built and validated against.
package metrics

import (
	"metricore/pkg/ulid"
)

// DefinitionKind distinguishes a schema Definition that describes a
// metric (has fields) from one that describes a scalar attribute type.
type DefinitionKind string

const (
	DefinitionKindMetric    DefinitionKind = "metric"
	DefinitionKindAttribute DefinitionKind = "attribute"
)

// IsValid reports whether k is a recognized DefinitionKind.
func (k DefinitionKind) IsValid() bool {
	switch k {
	case DefinitionKindMetric, DefinitionKindAttribute:
		return true
	default:
		return false
	}
}

// Datatype is the scalar type carried by an Attribute definition.
type Datatype string

const (
	DatatypeInt             Datatype = "int"
	DatatypeFloat           Datatype = "float"
	DatatypeString          Datatype = "string"
	DatatypeBool            Datatype = "bool"
	DatatypeTimestamp       Datatype = "timestamp"
	DatatypeHierarchyString Datatype = "hierarchyString"
)

// IsValid reports whether d is a recognized Datatype.
func (d Datatype) IsValid() bool {
	switch d {
	case DatatypeInt, DatatypeFloat, DatatypeString, DatatypeBool, DatatypeTimestamp, DatatypeHierarchyString:
		return true
	default:
		return false
	}
}

// IsScalarIdentifier reports whether d is a legal datatype for a
// metric's primary identifier field (int or string only).
func (d Datatype) IsScalarIdentifier() bool {
	return d == DatatypeInt || d == DatatypeString
}

// Definition is a stable schema entity: either a Metric (which owns
// Fields) or an Attribute (which carries a Datatype). ParentDefinitionID
// chains Metric definitions together to produce the schema-level
// division vector (outermost ancestor first).
type Definition struct {
	ID                       ulid.ULID      `json:"id" gorm:"type:char(26);primaryKey"`
	Code                     string         `json:"code" gorm:"size:64;not null;uniqueIndex"`
	DisplayName              string         `json:"display_name" gorm:"size:255;not null"`
	Kind                     DefinitionKind `json:"kind" gorm:"size:16;not null"`
	Datatype                 Datatype       `json:"datatype,omitempty" gorm:"size:24"`
	ParentDefinitionID       *ulid.ULID     `json:"parent_definition_id,omitempty" gorm:"type:char(26)"`
	PrimaryIdentifierFieldID *ulid.ULID     `json:"primary_identifier_field_id,omitempty" gorm:"type:char(26)"`
}

func (Definition) TableName() string { return "metric_definitions" }

// IsMetric reports whether this definition describes a metric.
func (d *Definition) IsMetric() bool { return d.Kind == DefinitionKindMetric }

// IsAttribute reports whether this definition describes an attribute.
func (d *Definition) IsAttribute() bool { return d.Kind == DefinitionKindAttribute }

// InputMode controls whether a Field's value is supplied by the caller
// or computed from its Formula during the pipeline's formula-applier step.
type InputMode string

const (
	InputModeInput   InputMode = "input"
	InputModeFormula InputMode = "formula"
)

// Unbounded is the sentinel for a Field's MaxInstances meaning "no
// upper bound" (max_instances = ∞ in spec.md's cardinality notation).
const Unbounded = -1

// Field belongs to exactly one Metric Definition and references another
// Definition (BaseDefinitionID) as its semantic type.
type Field struct {
	ID                 ulid.ULID  `json:"id" gorm:"type:char(26);primaryKey"`
	MetricDefinitionID ulid.ULID  `json:"metric_definition_id" gorm:"type:char(26);not null;index"`
	Name               string     `json:"name" gorm:"size:64;not null"`
	BaseDefinitionID   ulid.ULID  `json:"base_definition_id" gorm:"type:char(26);not null"`
	MinInstances       int        `json:"min_instances" gorm:"not null;default:0"`
	MaxInstances       int        `json:"max_instances" gorm:"not null;default:-1"` // Unbounded sentinel
	InputMode          InputMode  `json:"input_mode" gorm:"size:16;not null"`
	Formula            string     `json:"formula,omitempty" gorm:"type:text"`
	Position            int       `json:"position" gorm:"not null;default:0"` // declaration order within the metric
}

func (Field) TableName() string { return "metric_fields" }

// IsBounded reports whether MaxInstances caps the field's cardinality.
func (f *Field) IsBounded() bool { return f.MaxInstances != Unbounded }

// Validate checks the structural invariants spec.md §3 places on a
// Field in isolation (cross-field invariants, such as the primary
// identifier field's requirements, are checked by the schema loader
// once the owning Definition is known).
func (f *Field) Validate() error {
	if f.Name == "" {
		return &SchemaError{Message: "field name must not be empty"}
	}
	if f.InputMode != InputModeInput && f.InputMode != InputModeFormula {
		return &SchemaError{Message: "field " + f.Name + ": invalid input_mode"}
	}
	if f.InputMode == InputModeFormula {
		if f.MaxInstances != 1 {
			return &SchemaError{Message: "field " + f.Name + ": formula fields must have max_instances = 1"}
		}
		if f.Formula == "" {
			return &SchemaError{Message: "field " + f.Name + ": formula fields must carry a non-empty formula"}
		}
	}
	return nil
}

// SchemaError reports a static schema-definition inconsistency detected
// while loading or validating Definitions/Fields, as opposed to the
// per-run PipelineError kinds raised while processing an entry.
type SchemaError struct {
	Message string
}

func (e *SchemaError) Error() string { return "schema error: " + e.Message }
