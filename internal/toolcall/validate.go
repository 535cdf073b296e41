package toolcall

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// SchemaValidator validates tool-call arguments against each tool's JSON
// Schema, caching compiled schemas so repeated calls to the same tool
// don't pay recompilation cost.
type SchemaValidator struct {
	cache sync.Map // schema text -> *jsonschema.Schema
}

// NewSchemaValidator creates an empty, ready-to-use validator.
func NewSchemaValidator() *SchemaValidator {
	return &SchemaValidator{}
}

// Validate checks arguments against the given tool's JSON Schema. An empty
// schema is treated as "accepts anything".
func (v *SchemaValidator) Validate(toolName string, schema json.RawMessage, arguments json.RawMessage) error {
	if len(schema) == 0 {
		return nil
	}

	compiled, err := v.compile(schema)
	if err != nil {
		return fmt.Errorf("compile schema for tool %s: %w", toolName, err)
	}

	var decoded any
	if err := json.Unmarshal(arguments, &decoded); err != nil {
		return fmt.Errorf("decode arguments for tool %s: %w", toolName, err)
	}

	if err := compiled.Validate(decoded); err != nil {
		return fmt.Errorf("arguments for tool %s invalid: %w", toolName, err)
	}
	return nil
}

func (v *SchemaValidator) compile(schema json.RawMessage) (*jsonschema.Schema, error) {
	key := string(schema)
	if cached, ok := v.cache.Load(key); ok {
		return cached.(*jsonschema.Schema), nil
	}

	compiled, err := jsonschema.CompileString("tool.schema.json", key)
	if err != nil {
		return nil, err
	}
	v.cache.Store(key, compiled)
	return compiled, nil
}
