package metrics

import (
	"context"

	"metricore/pkg/ulid"
)

// SchemaRepository loads and persists Definitions and Fields. It is the
// boundary the schema loader (internal/core/services/metrics) uses to
// build a PipelineContext snapshot; the pipeline itself never talks to
// a repository directly (spec.md §1 keeps persistence out of the core).
type SchemaRepository interface {
	ListDefinitions(ctx context.Context) ([]*Definition, error)
	ListFields(ctx context.Context) ([]*Field, error)
	GetDefinitionByCode(ctx context.Context, code string) (*Definition, error)
	CreateDefinition(ctx context.Context, def *Definition) error
	CreateField(ctx context.Context, field *Field) error
}

// EntryRepository persists a validated ResolvedEntry tree. It is the
// external collaborator named in spec.md §6.1; the pipeline produces a
// persist-ready tree and hands it here, never performing I/O itself.
type EntryRepository interface {
	// Persist inserts the tree rooted at root, replacing its provisional
	// EntryIDs with real ulid.ULID identities via an internal temp->real
	// map, and returns the root's persisted id.
	Persist(ctx context.Context, root *ResolvedEntry) (ulid.ULID, error)
}
