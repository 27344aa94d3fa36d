// Package schema builds and validates the JSON Schemas used for tool
// parameters and structured output.
//
// Schemas are declared explicitly as an ordered list of properties rather than
// derived from Go types by reflection:
//
//	params := schema.ObjectOf(
//	    schema.String("location", "The city and state, e.g. San Francisco, CA"),
//	    schema.String("unit", "Temperature unit").Enum("celsius", "fahrenheit").Optional(),
//	)
//
// Compile turns a raw schema map into a validator backed by
// github.com/santhosh-tekuri/jsonschema.
package schema

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/hupe1980/toolagent/core"
)

// Type is a JSON Schema primitive type name.
type Type string

// Supported JSON Schema types.
const (
	TypeString  Type = "string"
	TypeInteger Type = "integer"
	TypeNumber  Type = "number"
	TypeBoolean Type = "boolean"
	TypeArray   Type = "array"
	TypeObject  Type = "object"
)

// Property declares one named, typed, described field. Properties are
// required unless Optional is called.
type Property struct {
	Name        string
	Type        Type
	Description string
	Required    bool
	EnumValues  []any
	ItemType    *Property  // element schema for arrays
	Properties  []Property // nested fields for objects
}

// String declares a required string property.
func String(name, description string) Property {
	return Property{Name: name, Type: TypeString, Description: description, Required: true}
}

// Integer declares a required integer property.
func Integer(name, description string) Property {
	return Property{Name: name, Type: TypeInteger, Description: description, Required: true}
}

// Number declares a required number property.
func Number(name, description string) Property {
	return Property{Name: name, Type: TypeNumber, Description: description, Required: true}
}

// Boolean declares a required boolean property.
func Boolean(name, description string) Property {
	return Property{Name: name, Type: TypeBoolean, Description: description, Required: true}
}

// Array declares a required array property whose elements follow items.
// The items name is ignored.
func Array(name, description string, items Property) Property {
	return Property{Name: name, Type: TypeArray, Description: description, Required: true, ItemType: &items}
}

// Object declares a required nested object property.
func Object(name, description string, props ...Property) Property {
	return Property{Name: name, Type: TypeObject, Description: description, Required: true, Properties: props}
}

// Optional returns a copy of p that may be omitted.
func (p Property) Optional() Property {
	p.Required = false
	return p
}

// Items returns a copy of p with its array element schema replaced.
func (p Property) Items(items Property) Property {
	p.ItemType = &items
	return p
}

// Enum returns a copy of p restricted to the given values.
func (p Property) Enum(values ...any) Property {
	p.EnumValues = append([]any(nil), values...)
	return p
}

// JSONSchema renders the property (without its name) as a JSON Schema map.
func (p Property) JSONSchema() map[string]any {
	out := map[string]any{"type": string(p.Type)}
	if p.Description != "" {
		out["description"] = p.Description
	}
	if len(p.EnumValues) > 0 {
		out["enum"] = p.EnumValues
	}
	switch p.Type {
	case TypeArray:
		if p.ItemType != nil {
			out["items"] = p.ItemType.JSONSchema()
		}
	case TypeObject:
		for k, v := range ObjectOf(p.Properties...) {
			if k == "type" {
				continue
			}
			out[k] = v
		}
	}
	return out
}

// ObjectOf renders an object schema from an ordered property list. Required
// names keep declaration order.
func ObjectOf(props ...Property) map[string]any {
	properties := make(map[string]any, len(props))
	required := make([]string, 0, len(props))
	for _, p := range props {
		properties[p.Name] = p.JSONSchema()
		if p.Required {
			required = append(required, p.Name)
		}
	}

	out := map[string]any{
		"type":       string(TypeObject),
		"properties": properties,
	}
	if len(required) > 0 {
		out["required"] = required
	}
	return out
}

// Schema couples the raw JSON Schema map (sent to models) with its compiled
// validator.
type Schema struct {
	raw      map[string]any
	compiled *jsonschema.Schema
}

// ValidationError wraps a JSON Schema validation failure.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("schema validation failed: %v", e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Compile compiles a raw schema map. A nil map compiles to a schema that
// accepts any object. Compile errors wrap core.ErrInvalidSchema.
func Compile(raw map[string]any) (*Schema, error) {
	if raw == nil {
		raw = map[string]any{"type": string(TypeObject)}
	}

	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal: %w", core.ErrInvalidSchema, err)
	}

	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: parse: %w", core.ErrInvalidSchema, err)
	}

	c := jsonschema.NewCompiler()
	if err := c.AddResource("schema.json", doc); err != nil {
		return nil, fmt.Errorf("%w: add resource: %w", core.ErrInvalidSchema, err)
	}

	compiled, err := c.Compile("schema.json")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrInvalidSchema, err)
	}

	return &Schema{raw: raw, compiled: compiled}, nil
}

// MustCompile is like Compile but panics on error. Use it for schemas
// declared at init time.
func MustCompile(raw map[string]any) *Schema {
	s, err := Compile(raw)
	if err != nil {
		panic(err)
	}
	return s
}

// Raw returns the underlying map representation.
func (s *Schema) Raw() map[string]any {
	if s == nil {
		return nil
	}
	return s.raw
}

// Validate checks v against the schema. Any Go value that marshals to JSON is
// accepted; it is normalized through a JSON round trip before validation.
func (s *Schema) Validate(v any) error {
	if s == nil || s.compiled == nil {
		return nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		return &ValidationError{Err: err}
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return &ValidationError{Err: err}
	}

	if err := s.compiled.Validate(doc); err != nil {
		return &ValidationError{Err: err}
	}
	return nil
}
