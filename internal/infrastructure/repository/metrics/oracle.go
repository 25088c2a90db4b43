// Package metrics provides the Postgres-backed ExistingEntries oracle
// the instance resolver queries to replace metric-reference placeholders
// with real, previously-persisted entry subtrees (spec.md §4.4).
package metrics

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	metricsDomain "metricore/internal/core/domain/metrics"
	"metricore/pkg/ulid"
)

// entryRow is the Postgres row shape for one ResolvedEntry node. A
// single table holds both metric and attribute rows; Kind plus which
// typed-value column (if any) is populated reconstructs the
// specialization the in-memory tree carries as two distinct Go types.
type entryRow struct {
	ID             ulid.ULID  `gorm:"type:char(26);primaryKey"`
	DefinitionID   ulid.ULID  `gorm:"type:char(26);not null;index"`
	ParentEntryID  *ulid.ULID `gorm:"type:char(26);index"`
	FieldID        *ulid.ULID `gorm:"type:char(26)"`
	Timestamp      time.Time  `gorm:"not null"`
	Subdivision    *string
	Comments       *string
	Kind           string `gorm:"size:16;not null"`
	ValueInt       *int64
	ValueFloat     *float64
	ValueStr       *string
	ValueBool      *bool
	ValueTimestamp *time.Time
	ValueHierarchy *string
}

func (entryRow) TableName() string { return "metric_entries" }

// Oracle implements metricsDomain.ExistingEntries against Postgres,
// grounded on dashboard_repository.go's query-then-translate shape.
// Definitions/fields are supplied at construction from the same schema
// snapshot the pipeline's PipelineContext is built from, so FieldSlot
// pointers on reconstructed nodes are identical to the ones the rest of
// a pipeline run already holds.
type Oracle struct {
	db          *gorm.DB
	definitions map[ulid.ULID]*metricsDomain.Definition
	fields      map[ulid.ULID]*metricsDomain.Field
}

func NewOracle(db *gorm.DB, definitions []*metricsDomain.Definition, fields []*metricsDomain.Field) *Oracle {
	o := &Oracle{
		db:          db,
		definitions: make(map[ulid.ULID]*metricsDomain.Definition, len(definitions)),
		fields:      make(map[ulid.ULID]*metricsDomain.Field, len(fields)),
	}
	for _, d := range definitions {
		o.definitions[d.ID] = d
	}
	for _, f := range fields {
		o.fields[f.ID] = f
	}
	return o
}

// FindByPrimaryIdentifier returns every persisted instance of
// metricDefinition whose primary-identifier attribute equals value. The
// resolver, not this adapter, decides what to do with zero, one, or
// many matches (spec.md §4.4's 0/1/>1 trichotomy) — a read-only oracle
// has no business enforcing that policy.
func (o *Oracle) FindByPrimaryIdentifier(ctx context.Context, metricDefinition *metricsDomain.Definition, value any) ([]*metricsDomain.ResolvedEntry, error) {
	if metricDefinition.PrimaryIdentifierFieldID == nil {
		return nil, fmt.Errorf("definition %q has no primary identifier field", metricDefinition.Code)
	}
	field := o.fields[*metricDefinition.PrimaryIdentifierFieldID]
	if field == nil {
		return nil, fmt.Errorf("definition %q's primary identifier field is not in the loaded schema", metricDefinition.Code)
	}

	q := o.db.WithContext(ctx).
		Model(&entryRow{}).
		Where("definition_id = ?", metricDefinition.ID)

	switch v := value.(type) {
	case int64:
		q = q.Where("id IN (SELECT parent_entry_id FROM metric_entries WHERE field_id = ? AND value_int = ?)", field.ID, v)
	case string:
		q = q.Where("id IN (SELECT parent_entry_id FROM metric_entries WHERE field_id = ? AND value_str = ?)", field.ID, v)
	default:
		return nil, fmt.Errorf("unsupported primary identifier value type %T", value)
	}

	var roots []entryRow
	if err := q.Find(&roots).Error; err != nil {
		return nil, fmt.Errorf("find by primary identifier: %w", err)
	}

	out := make([]*metricsDomain.ResolvedEntry, 0, len(roots))
	for _, root := range roots {
		tree, err := o.loadSubtree(ctx, root)
		if err != nil {
			return nil, err
		}
		out = append(out, tree)
	}
	return out, nil
}

// loadSubtree walks root's descendants breadth-first. The teacher's own
// repositories never reach for a recursive CTE for tree-shaped data
// (dashboard widgets nest their structure as JSON instead), so this
// keeps the same plain gorm.Find idiom rather than introducing raw SQL
// the rest of the adapter layer doesn't use.
func (o *Oracle) loadSubtree(ctx context.Context, root entryRow) (*metricsDomain.ResolvedEntry, error) {
	byParent := map[ulid.ULID][]entryRow{}
	frontier := []ulid.ULID{root.ID}
	for len(frontier) > 0 {
		var rows []entryRow
		if err := o.db.WithContext(ctx).Where("parent_entry_id IN ?", frontier).Find(&rows).Error; err != nil {
			return nil, fmt.Errorf("load entry children: %w", err)
		}
		var next []ulid.ULID
		for _, r := range rows {
			byParent[*r.ParentEntryID] = append(byParent[*r.ParentEntryID], r)
			next = append(next, r.ID)
		}
		frontier = next
	}
	return o.buildNode(root, byParent), nil
}

// buildNode reconstructs one ResolvedEntry from its row plus its
// already-loaded descendants. Entry.ID/ParentEntryID are left as zero
// values on every node: when splicing the returned subtree into a
// pipeline run (spec.md §4.4), the instance resolver overwrites them
// with the placeholder's own identifiers on the returned root only;
// descendant nodes keep the zero values.
func (o *Oracle) buildNode(row entryRow, byParent map[ulid.ULID][]entryRow) *metricsDomain.ResolvedEntry {
	node := &metricsDomain.ResolvedEntry{
		Entry: &metricsDomain.Entry{
			DefinitionID: row.DefinitionID,
			Timestamp:    row.Timestamp,
			Subdivision:  row.Subdivision,
			Comments:     row.Comments,
		},
	}
	if row.FieldID != nil {
		node.FieldSlot = o.fields[*row.FieldID]
	}
	switch row.Kind {
	case "metric":
		node.Metric = &metricsDomain.MetricSpecialization{}
	case "attribute":
		node.Attribute = &metricsDomain.AttributeSpecialization{
			Field: node.FieldSlot,
			Value: metricsDomain.TypedValue{
				Int:       row.ValueInt,
				Float:     row.ValueFloat,
				Str:       row.ValueStr,
				Bool:      row.ValueBool,
				Timestamp: row.ValueTimestamp,
				Hierarchy: row.ValueHierarchy,
			},
		}
	}
	for _, child := range byParent[row.ID] {
		node.Children = append(node.Children, o.buildNode(child, byParent))
	}
	return node
}
