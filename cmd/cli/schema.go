package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/invopop/jsonschema"
	"github.com/spf13/cobra"

	"github.com/kosarica/feed-service/config"
	"github.com/kosarica/feed-service/internal/handlers"
	"github.com/kosarica/feed-service/internal/pipeline"
	"github.com/kosarica/feed-service/internal/storage"
	"github.com/kosarica/feed-service/internal/types"
)

var schemaOutput string

// schemaCmd prints JSON Schemas generated from Go types
var schemaCmd = &cobra.Command{
	Use:   "schema [config|api]",
	Short: "Print the JSON Schema of the configuration or the API types",
	Example: `  feed-service schema
  feed-service schema api -o api.json`,
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{"config", "api"},
	RunE:      runSchema,
}

func init() {
	rootCmd.AddCommand(schemaCmd)

	schemaCmd.Flags().StringVarP(&schemaOutput, "output", "o", "", "Output file (default stdout)")
}

// SchemaGroup represents a group of related schemas
type SchemaGroup struct {
	Name  string
	Types []any
}

var apiGroup = SchemaGroup{
	Name: "api",
	Types: []any{
		// Request types
		handlers.GenerateRequest{},
		handlers.ListRunsRequest{},
		// Response types
		handlers.GenerateResponse{},
		handlers.HealthResponse{},
		handlers.ListFilesResponse{},
		handlers.ListLogsResponse{},
		handlers.ListRunsResponse{},
		pipeline.StatusSnapshot{},
		storage.FileInfo{},
		types.SupplierResult{},
	},
}

func runSchema(cmd *cobra.Command, args []string) error {
	target := "config"
	if len(args) == 1 {
		target = args[0]
	}

	var schema any
	switch target {
	case "config":
		schema = (&jsonschema.Reflector{}).Reflect(&config.Config{})
	case "api":
		schema = generateGroupSchema(apiGroup)
	default:
		return fmt.Errorf("unknown schema %q, expected config or api", target)
	}

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal schema: %w", err)
	}
	data = append(data, '\n')

	if schemaOutput == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(schemaOutput, data, 0644)
}

// generateGroupSchema creates a combined schema with all types in a group
func generateGroupSchema(group SchemaGroup) map[string]any {
	reflector := &jsonschema.Reflector{}
	definitions := make(map[string]any)

	for _, t := range group.Types {
		schema := reflector.Reflect(t)
		for name, def := range schema.Definitions {
			definitions[name] = def
		}
		// Reflect returns a $ref to the type's own definition
		if schema.Ref != "" {
			name := filepath.Base(schema.Ref)
			if def, ok := schema.Definitions[name]; ok {
				definitions[name] = def
			}
		}
	}

	return map[string]any{
		"$schema":     "https://json-schema.org/draft/2020-12/schema",
		"$id":         fmt.Sprintf("https://kosarica.hr/schemas/feed-%s.json", group.Name),
		"title":       "Feed Service API Types",
		"description": "JSON Schema for feed service API types generated from Go structs",
		"$defs":       definitions,
	}
}
