package seeder

// SeedData represents the metric schema to be seeded: the Definitions
// (metrics and attributes) and the Fields that attach to metric
// Definitions.
type SeedData struct {
	Definitions []DefinitionSeed `yaml:"definitions"`
	Fields      []FieldSeed      `yaml:"fields"`
}

// DefinitionSeed represents one Definition row (metric or attribute).
// PrimaryIdentifierField names the Field (by name, among the Fields
// belonging to this Definition) that uniquely identifies an instance
// of this metric, if any.
type DefinitionSeed struct {
	Code                   string `yaml:"code"`
	DisplayName            string `yaml:"display_name"`
	Kind                   string `yaml:"kind"`                           // "metric" | "attribute"
	Datatype               string `yaml:"datatype,omitempty"`             // attribute definitions only
	ParentDefinitionCode   string `yaml:"parent_definition_code,omitempty"`
	PrimaryIdentifierField string `yaml:"primary_identifier_field,omitempty"`
}

// FieldSeed represents one Field belonging to a metric Definition.
type FieldSeed struct {
	MetricDefinitionCode string `yaml:"metric_definition_code"`
	Name                 string `yaml:"name"`
	BaseDefinitionCode   string `yaml:"base_definition_code"`
	MinInstances         int    `yaml:"min_instances"`
	MaxInstances         int    `yaml:"max_instances"` // -1 means unbounded
	InputMode            string `yaml:"input_mode"`    // "input" | "formula"
	Formula              string `yaml:"formula,omitempty"`
	Position             int    `yaml:"position"`
}

// Options represents the seeder configuration options
type Options struct {
	Environment string
	Reset       bool
	DryRun      bool
	Verbose     bool
}
