package seeder

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"

	"gorm.io/gorm"

	"metricore/internal/config"
	"metricore/internal/core/domain/metrics"
	"metricore/internal/infrastructure/database"
	"metricore/pkg/ulid"
)

// Manager handles database seeding operations for the metric schema
// (Definitions and Fields).
type Manager struct {
	db  *gorm.DB
	cfg *config.Config
}

// NewManager creates a new seeder manager with the required dependencies
func NewManager(cfg *config.Config) (*Manager, error) {
	// Create logger for database connection
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	// Initialize PostgreSQL database
	postgresDB, err := database.NewPostgresDB(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}

	return &Manager{
		db:  postgresDB.DB,
		cfg: cfg,
	}, nil
}

// SeedPostgres seeds PostgreSQL with the provided options
func (m *Manager) SeedPostgres(ctx context.Context, options *Options) error {
	if options.DryRun {
		fmt.Printf("DRY RUN: Would seed PostgreSQL with environment: %s\n", options.Environment)
		return nil
	}

	log.Printf("Starting PostgreSQL seeding with environment: %s", options.Environment)

	dataLoader := NewDataLoader()
	seedData, err := dataLoader.LoadSeedData(options.Environment)
	if err != nil {
		return fmt.Errorf("failed to load seed data: %w", err)
	}

	if options.Reset {
		log.Println("Resetting existing data...")
		if err := m.resetData(); err != nil {
			return fmt.Errorf("failed to reset data: %w", err)
		}
	}

	if err := m.seedData(ctx, seedData, options); err != nil {
		return fmt.Errorf("failed to seed data: %w", err)
	}

	log.Printf("PostgreSQL seeding completed successfully")
	return nil
}

// SeedClickHouse is a placeholder for ClickHouse seeding. Widget results
// and metric entries both live outside the schema the seeder manages, so
// there is nothing to seed here yet.
func (m *Manager) SeedClickHouse(ctx context.Context, options *Options) error {
	if options.DryRun {
		fmt.Printf("DRY RUN: Would seed ClickHouse with environment: %s\n", options.Environment)
		return nil
	}

	log.Printf("ClickHouse seeding is not implemented (entry data doesn't require seeding)")
	return nil
}

// seedData performs the actual seeding process: Definitions first (so
// ParentDefinitionID and PrimaryIdentifierFieldID can resolve), then
// Fields, then the deferred Definition.PrimaryIdentifierFieldID update
// now that Field IDs exist.
func (m *Manager) seedData(ctx context.Context, data *SeedData, options *Options) error {
	log.Printf("Starting seeding process with %d definitions, %d fields", len(data.Definitions), len(data.Fields))

	definitionIDs := make(map[string]ulid.ULID, len(data.Definitions))
	rows := make([]metrics.Definition, 0, len(data.Definitions))

	for _, def := range data.Definitions {
		id := ulid.New()
		definitionIDs[def.Code] = id

		row := metrics.Definition{
			ID:          id,
			Code:        def.Code,
			DisplayName: def.DisplayName,
			Kind:        metrics.DefinitionKind(def.Kind),
			Datatype:    metrics.Datatype(def.Datatype),
		}
		rows = append(rows, row)
	}

	for i, def := range data.Definitions {
		if def.ParentDefinitionCode == "" {
			continue
		}
		parentID := definitionIDs[def.ParentDefinitionCode]
		rows[i].ParentDefinitionID = &parentID
	}

	for i := range rows {
		if options.Verbose {
			log.Printf("  seeding definition: %s (%s)", rows[i].Code, rows[i].Kind)
		}
		if err := m.db.WithContext(ctx).Create(&rows[i]).Error; err != nil {
			return fmt.Errorf("failed to seed definition %s: %w", rows[i].Code, err)
		}
	}

	fieldIDs := make(map[string]map[string]ulid.ULID, len(data.Definitions)) // metric code -> field name -> id
	fieldRows := make([]metrics.Field, 0, len(data.Fields))

	for _, f := range data.Fields {
		metricDefID, ok := definitionIDs[f.MetricDefinitionCode]
		if !ok {
			return fmt.Errorf("field %s: unknown metric_definition_code %s", f.Name, f.MetricDefinitionCode)
		}
		baseDefID, ok := definitionIDs[f.BaseDefinitionCode]
		if !ok {
			return fmt.Errorf("field %s: unknown base_definition_code %s", f.Name, f.BaseDefinitionCode)
		}

		id := ulid.New()
		if fieldIDs[f.MetricDefinitionCode] == nil {
			fieldIDs[f.MetricDefinitionCode] = make(map[string]ulid.ULID)
		}
		fieldIDs[f.MetricDefinitionCode][f.Name] = id

		fieldRows = append(fieldRows, metrics.Field{
			ID:                 id,
			MetricDefinitionID: metricDefID,
			Name:               f.Name,
			BaseDefinitionID:   baseDefID,
			MinInstances:       f.MinInstances,
			MaxInstances:       f.MaxInstances,
			InputMode:          metrics.InputMode(f.InputMode),
			Formula:            f.Formula,
			Position:           f.Position,
		})
	}

	for i := range fieldRows {
		if options.Verbose {
			log.Printf("  seeding field: %s", fieldRows[i].Name)
		}
		if err := m.db.WithContext(ctx).Create(&fieldRows[i]).Error; err != nil {
			return fmt.Errorf("failed to seed field %s: %w", fieldRows[i].Name, err)
		}
	}

	for _, def := range data.Definitions {
		if def.PrimaryIdentifierField == "" {
			continue
		}
		fieldID, ok := fieldIDs[def.Code][def.PrimaryIdentifierField]
		if !ok {
			return fmt.Errorf("definition %s: primary_identifier_field %s is not one of its own fields", def.Code, def.PrimaryIdentifierField)
		}
		defID := definitionIDs[def.Code]
		if err := m.db.WithContext(ctx).Model(&metrics.Definition{}).
			Where("id = ?", defID).
			Update("primary_identifier_field_id", fieldID).Error; err != nil {
			return fmt.Errorf("failed to set primary identifier field for %s: %w", def.Code, err)
		}
	}

	log.Println("Seeding process completed successfully")
	return nil
}

// resetData clears all existing schema data from the database
func (m *Manager) resetData() error {
	log.Println("Starting data reset...")

	tables := []string{
		"metric_fields",
		"metric_definitions",
	}

	for _, table := range tables {
		if err := m.db.Exec(fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY CASCADE", table)).Error; err != nil {
			log.Printf("warning: could not truncate table %s: %v", table, err)
		} else {
			log.Printf("truncated table: %s", table)
		}
	}

	log.Println("Data reset completed")
	return nil
}

// Close closes the database connections
func (m *Manager) Close() error {
	if sqlDB, err := m.db.DB(); err == nil {
		return sqlDB.Close()
	}
	return nil
}

// PrintSeedPlan prints a detailed plan of what will be seeded
func (m *Manager) PrintSeedPlan(data *SeedData) {
	fmt.Println("\nSEED PLAN:")
	fmt.Println("=====================================")

	fmt.Printf("Definitions: %d\n", len(data.Definitions))
	for _, def := range data.Definitions {
		parent := ""
		if def.ParentDefinitionCode != "" {
			parent = fmt.Sprintf(" (parent: %s)", def.ParentDefinitionCode)
		}
		fmt.Printf("  - %s [%s] %s%s\n", def.Code, def.Kind, def.DisplayName, parent)
	}

	fmt.Printf("\nFields: %d\n", len(data.Fields))
	for _, f := range data.Fields {
		fmt.Printf("  - %s.%s -> %s (min:%d max:%d mode:%s)\n",
			f.MetricDefinitionCode, f.Name, f.BaseDefinitionCode, f.MinInstances, f.MaxInstances, f.InputMode)
	}

	fmt.Println("=====================================")
}
