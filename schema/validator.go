// Package schema holds the JSON Schema for coord.yml and validates raw
// configuration documents against it.
package schema

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed coord.embedded.schema.json
var embeddedSchemaData []byte

const resourceName = "coord.json"

// Issue is one schema violation. Path is a JSON pointer into the document.
type Issue struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// ValidationError lists every violation found in a document.
type ValidationError struct {
	Issues []Issue
}

func (e *ValidationError) Error() string {
	lines := make([]string, len(e.Issues))
	for i, is := range e.Issues {
		lines[i] = fmt.Sprintf("- %s: %s", is.Path, is.Message)
	}
	return "schema validation failed:\n" + strings.Join(lines, "\n")
}

// Paths returns the offending locations, for error details.
func (e *ValidationError) Paths() []string {
	paths := make([]string, len(e.Issues))
	for i, is := range e.Issues {
		paths[i] = is.Path
	}
	return paths
}

// Validator checks documents against the compiled schema.
type Validator struct {
	schema *jsonschema.Schema
}

var compileOnce = sync.OnceValues(func() (*Validator, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(resourceName, strings.NewReader(string(embeddedSchemaData))); err != nil {
		return nil, fmt.Errorf("failed to add embedded schema resource: %w", err)
	}
	s, err := compiler.Compile(resourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to compile embedded schema: %w", err)
	}
	return &Validator{schema: s}, nil
})

// NewValidator returns the shared validator. The schema is compiled on
// first use; every hook invocation loads configuration.
func NewValidator() (*Validator, error) {
	return compileOnce()
}

// Validate checks doc, which may be any value that marshals to JSON. A
// schema violation is returned as *ValidationError.
func (v *Validator) Validate(doc interface{}) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal config to JSON for validation: %w", err)
	}
	var plain interface{}
	if err := json.Unmarshal(data, &plain); err != nil {
		return fmt.Errorf("failed to unmarshal JSON for validation: %w", err)
	}

	err = v.schema.Validate(plain)
	if err == nil {
		return nil
	}
	verr, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	out := &ValidationError{}
	collect(verr, &out.Issues)
	sort.SliceStable(out.Issues, func(i, j int) bool {
		return out.Issues[i].Path < out.Issues[j].Path
	})
	return out
}

// collect keeps the leaf causes; parents only summarise them.
func collect(err *jsonschema.ValidationError, issues *[]Issue) {
	if len(err.Causes) == 0 {
		path := err.InstanceLocation
		if path == "" {
			path = "/"
		}
		*issues = append(*issues, Issue{Path: path, Message: err.Message})
		return
	}
	for _, cause := range err.Causes {
		collect(cause, issues)
	}
}
