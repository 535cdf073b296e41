package toolcall

import (
	"encoding/json"
	"testing"
)

func TestSchemaValidator_ValidAndInvalid(t *testing.T) {
	v := NewSchemaValidator()
	schema := json.RawMessage(`{
		"type": "object",
		"required": ["message"],
		"properties": {"message": {"type": "string"}}
	}`)

	if err := v.Validate("send_message_to_user", schema, json.RawMessage(`{"message":"hi"}`)); err != nil {
		t.Fatalf("expected valid arguments, got %v", err)
	}
	if err := v.Validate("send_message_to_user", schema, json.RawMessage(`{}`)); err == nil {
		t.Fatal("expected missing required field to fail validation")
	}
}

func TestSchemaValidator_EmptySchemaAcceptsAnything(t *testing.T) {
	v := NewSchemaValidator()
	if err := v.Validate("noop", nil, json.RawMessage(`{"anything":true}`)); err != nil {
		t.Fatalf("empty schema should accept any arguments, got %v", err)
	}
}

func TestSchemaValidator_CachesCompiledSchema(t *testing.T) {
	v := NewSchemaValidator()
	schema := json.RawMessage(`{"type":"object"}`)
	if err := v.Validate("a", schema, json.RawMessage(`{}`)); err != nil {
		t.Fatal(err)
	}
	if err := v.Validate("b", schema, json.RawMessage(`{}`)); err != nil {
		t.Fatal(err)
	}
	if _, ok := v.cache.Load(string(schema)); !ok {
		t.Fatal("expected schema to be cached after first compile")
	}
}
