package main

import (
	"encoding/json"
	"flag"
	"log"
	"os"
	"path/filepath"

	"github.com/grovetools/coord/config"
	"github.com/grovetools/coord/logging"
	"github.com/invopop/jsonschema"
)

func main() {
	outputDir := flag.String("out", ".", "directory the schema files are written to")
	flag.Parse()

	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		log.Fatalf("Error creating schema directory: %v", err)
	}

	schemaBytes, err := config.GenerateSchema()
	if err != nil {
		log.Fatalf("Error generating schema: %v", err)
	}
	write(filepath.Join(*outputDir, "coord.schema.json"), schemaBytes)

	r := &jsonschema.Reflector{
		AllowAdditionalProperties: true,
		ExpandedStruct:            true,
		DoNotReference:            true,
		FieldNameTag:              "yaml",
	}
	logSchema := r.Reflect(&logging.Config{})
	logSchema.Title = "coord Logging Configuration"
	logSchema.Description = "Schema for the 'logging' extension in coord.yml."
	logSchema.Required = nil

	logBytes, err := json.MarshalIndent(logSchema, "", "  ")
	if err != nil {
		log.Fatalf("Error marshaling schema: %v", err)
	}
	write(filepath.Join(*outputDir, "logging.schema.json"), logBytes)
}

func write(path string, data []byte) {
	if err := os.WriteFile(path, data, 0644); err != nil {
		log.Fatalf("Error writing schema file: %v", err)
	}
	log.Printf("Successfully generated schema at %s", path)
}
