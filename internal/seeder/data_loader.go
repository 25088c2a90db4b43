package seeder

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DataLoader handles loading seed data from YAML files
type DataLoader struct{}

// NewDataLoader creates a new DataLoader instance
func NewDataLoader() *DataLoader {
	return &DataLoader{}
}

// LoadSeedData loads seed data for the specified environment mode
func (dl *DataLoader) LoadSeedData(mode string) (*SeedData, error) {
	// Handle common aliases
	aliases := map[string]string{
		"development": "dev",
		"dev":         "dev",
		"demo":        "demo",
		"test":        "test",
	}

	actualMode, ok := aliases[mode]
	if !ok {
		actualMode = mode // Use the mode as-is if no alias found
	}

	// Get the seed file path
	seedFile := fmt.Sprintf("seeds/%s.yaml", actualMode)

	// Check if file exists in current directory first
	if _, err := os.Stat(seedFile); os.IsNotExist(err) {
		// Try relative path from the module directory
		modulePath := filepath.Join("metricore", seedFile)
		if _, err := os.Stat(modulePath); os.IsNotExist(err) {
			return nil, fmt.Errorf("seed file not found: %s (also tried: %s)", seedFile, modulePath)
		}
		seedFile = modulePath
	}

	// Read the file
	data, err := os.ReadFile(seedFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file %s: %w", seedFile, err)
	}

	// Parse YAML
	var seedData SeedData
	if err := yaml.Unmarshal(data, &seedData); err != nil {
		return nil, fmt.Errorf("failed to parse YAML from %s: %w", seedFile, err)
	}

	// Validate required fields
	if err := dl.validateSeedData(&seedData); err != nil {
		return nil, fmt.Errorf("invalid seed data in %s: %w", seedFile, err)
	}

	return &seedData, nil
}

// validateSeedData validates the seed data for consistency and required fields
func (dl *DataLoader) validateSeedData(data *SeedData) error {
	definitionCodes := make(map[string]bool)
	for _, def := range data.Definitions {
		if def.Code == "" {
			return errors.New("definition missing required field: code")
		}
		if def.Kind != "metric" && def.Kind != "attribute" {
			return fmt.Errorf("definition %s: kind must be \"metric\" or \"attribute\"", def.Code)
		}
		if definitionCodes[def.Code] {
			return fmt.Errorf("duplicate definition code: %s", def.Code)
		}
		definitionCodes[def.Code] = true
	}

	for _, def := range data.Definitions {
		if def.ParentDefinitionCode != "" && !definitionCodes[def.ParentDefinitionCode] {
			return fmt.Errorf("definition %s references unknown parent_definition_code: %s", def.Code, def.ParentDefinitionCode)
		}
	}

	for _, field := range data.Fields {
		if field.Name == "" {
			return errors.New("field missing required field: name")
		}
		if !definitionCodes[field.MetricDefinitionCode] {
			return fmt.Errorf("field %s references unknown metric_definition_code: %s", field.Name, field.MetricDefinitionCode)
		}
		if !definitionCodes[field.BaseDefinitionCode] {
			return fmt.Errorf("field %s references unknown base_definition_code: %s", field.Name, field.BaseDefinitionCode)
		}
		if field.InputMode != "input" && field.InputMode != "formula" {
			return fmt.Errorf("field %s: input_mode must be \"input\" or \"formula\"", field.Name)
		}
	}

	return nil
}
