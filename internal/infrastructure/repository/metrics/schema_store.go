package metrics

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	metricsDomain "metricore/internal/core/domain/metrics"
)

// SchemaStore loads the full Definition/Field schema from Postgres. It
// implements the services layer's SchemaStore interface so
// schema_loader.go's cache never imports gorm directly.
type SchemaStore struct {
	db *gorm.DB
}

func NewSchemaStore(db *gorm.DB) *SchemaStore {
	return &SchemaStore{db: db}
}

// LoadSchema returns every Definition and Field row currently in
// Postgres, in no particular order; NewPipelineContext indexes them by
// ID so declaration order within a metric is preserved via Field.Position.
func (s *SchemaStore) LoadSchema(ctx context.Context) ([]*metricsDomain.Definition, []*metricsDomain.Field, error) {
	var definitions []*metricsDomain.Definition
	if err := s.db.WithContext(ctx).Find(&definitions).Error; err != nil {
		return nil, nil, fmt.Errorf("load definitions: %w", err)
	}
	var fields []*metricsDomain.Field
	if err := s.db.WithContext(ctx).Order("position").Find(&fields).Error; err != nil {
		return nil, nil, fmt.Errorf("load fields: %w", err)
	}
	return definitions, fields, nil
}
