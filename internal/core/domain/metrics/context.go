package metrics

import (
	"context"
	"strings"

	"metricore/pkg/ulid"
)

// ExistingEntries is the read-only oracle the instance resolver (spec.md
// §4.4) queries to replace metric-reference placeholders with real
// subtrees. Implementations must be pure reads: the pipeline defensively
// clones whatever is returned (ResolvedEntry.Clone) before splicing it
// into the result tree, but an oracle that mutates its backing store on
// read violates spec.md §5's "read-only interface" requirement.
type ExistingEntries interface {
	FindByPrimaryIdentifier(ctx context.Context, metricDefinition *Definition, value any) ([]*ResolvedEntry, error)
}

// PipelineContext is the immutable, per-run snapshot of schema lookup
// tables the pipeline consults. It must not be mutated once a run
// begins (spec.md §5 "Shared-resource policy").
type PipelineContext struct {
	Definitions    map[ulid.ULID]*Definition
	Fields         map[ulid.ULID]*Field
	FieldsByMetric map[ulid.ULID][]*Field // declaration order preserved
	Existing       ExistingEntries
}

// NewPipelineContext builds a PipelineContext from flat definition/field
// slices, indexing fields by owning metric in declaration order.
func NewPipelineContext(definitions []*Definition, fields []*Field, existing ExistingEntries) *PipelineContext {
	ctx := &PipelineContext{
		Definitions:    make(map[ulid.ULID]*Definition, len(definitions)),
		Fields:         make(map[ulid.ULID]*Field, len(fields)),
		FieldsByMetric: make(map[ulid.ULID][]*Field),
		Existing:       existing,
	}
	for _, d := range definitions {
		ctx.Definitions[d.ID] = d
	}
	for _, f := range fields {
		ctx.Fields[f.ID] = f
		ctx.FieldsByMetric[f.MetricDefinitionID] = append(ctx.FieldsByMetric[f.MetricDefinitionID], f)
	}
	return ctx
}

// DefinitionByCode looks up a Definition by its mutable, human-readable
// code. Lookup tables are built once per run from the immutable
// snapshot, so this is a linear scan kept deliberately simple; callers
// that need repeated code lookups should build their own index.
func (c *PipelineContext) DefinitionByCode(code string) *Definition {
	for _, d := range c.Definitions {
		if d.Code == code {
			return d
		}
	}
	return nil
}

// FieldByName returns the field named name belonging to metricDefinitionID,
// or nil if no such field exists.
func (c *PipelineContext) FieldByName(metricDefinitionID ulid.ULID, name string) *Field {
	for _, f := range c.FieldsByMetric[metricDefinitionID] {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// DivisionChain walks a Definition's ParentDefinitionID chain, outermost
// ancestor first, and returns the rendered division vector (spec.md §3).
func (c *PipelineContext) DivisionChain(d *Definition) []string {
	var chain []*Definition
	cur := d
	seen := map[ulid.ULID]bool{}
	for cur != nil && cur.ParentDefinitionID != nil && !seen[cur.ID] {
		seen[cur.ID] = true
		parent := c.Definitions[*cur.ParentDefinitionID]
		if parent == nil {
			break
		}
		chain = append(chain, parent)
		cur = parent
	}
	// chain is currently innermost-parent-first; reverse to outermost-first.
	out := make([]string, len(chain))
	for i, def := range chain {
		out[len(chain)-1-i] = def.Code
	}
	return out
}

// SplitSubdivision splits a subdivision string on "/", dropping empty
// tokens only at the tail (spec.md §3).
func SplitSubdivision(sub string) []string {
	if sub == "" {
		return nil
	}
	parts := strings.Split(sub, "/")
	for len(parts) > 0 && parts[len(parts)-1] == "" {
		parts = parts[:len(parts)-1]
	}
	return parts
}

// PipelineState bundles the root tree with its immutable context and
// the three precomputed hierarchy vectors (spec.md §3).
type PipelineState struct {
	Root        *ResolvedEntry
	Context     *PipelineContext
	Division    []string
	Subdivision []string
	Path        []string
}

// NewPipelineState derives Division/Subdivision/Path from the root
// entry's definition and subdivision string.
func NewPipelineState(root *ResolvedEntry, ctx *PipelineContext) *PipelineState {
	def := ctx.Definitions[root.Entry.DefinitionID]
	division := ctx.DivisionChain(def)
	var subdivision []string
	if root.Entry.Subdivision != nil {
		subdivision = SplitSubdivision(*root.Entry.Subdivision)
	}
	path := make([]string, 0, len(division)+len(subdivision))
	path = append(path, division...)
	path = append(path, subdivision...)
	return &PipelineState{
		Root:        root,
		Context:     ctx,
		Division:    division,
		Subdivision: subdivision,
		Path:        path,
	}
}
