package config

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// GenerateSchema generates the JSON Schema for coord.yml. Extensions are
// left open so other tools can add their own top-level keys.
func GenerateSchema() ([]byte, error) {
	r := &jsonschema.Reflector{
		AllowAdditionalProperties: false,
		ExpandedStruct:            true,
		DoNotReference:            true,
		FieldNameTag:              "yaml",
	}

	type BaseConfig struct {
		Version      string             `yaml:"version,omitempty" jsonschema:"description=Configuration version (e.g. '1.0')"`
		Coordination CoordinationConfig `yaml:"coordination,omitempty" jsonschema:"description=Session registry and conflict checking"`
		Sync         SyncConfig         `yaml:"sync,omitempty" jsonschema:"description=Remote sync monitor"`
		Registry     RegistryConfig     `yaml:"registry,omitempty" jsonschema:"description=Record storage backend"`
	}

	schema := r.Reflect(&BaseConfig{})
	schema.Title = "coord Configuration"
	schema.Description = "Schema for coord.yml."
	schema.Version = "http://json-schema.org/draft-07/schema#"
	schema.AdditionalProperties = jsonschema.TrueSchema

	return json.MarshalIndent(schema, "", "  ")
}
