package metrics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	metricsDomain "metricore/internal/core/domain/metrics"
	"metricore/pkg/ulid"
)

func TestSchemaStore_LoadSchema(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&metricsDomain.Definition{}, &metricsDomain.Field{}))

	definitionID := ulid.New()
	fieldID := ulid.New()
	require.NoError(t, db.Create(&metricsDomain.Definition{
		ID:   definitionID,
		Code: "EMPLOYEE",
		Kind: metricsDomain.DefinitionKindMetric,
	}).Error)
	require.NoError(t, db.Create(&metricsDomain.Field{
		ID:                 fieldID,
		MetricDefinitionID: definitionID,
		Name:               "employee_id",
		BaseDefinitionID:   definitionID,
		InputMode:          metricsDomain.InputModeInput,
	}).Error)

	store := NewSchemaStore(db)
	definitions, fields, err := store.LoadSchema(context.Background())
	require.NoError(t, err)
	require.Len(t, definitions, 1)
	require.Len(t, fields, 1)
	assert.Equal(t, "EMPLOYEE", definitions[0].Code)
	assert.Equal(t, "employee_id", fields[0].Name)
}
