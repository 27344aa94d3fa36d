// Package output turns a model's final text into a structured value that
// conforms to a caller-supplied schema.
//
// Decoding never fails loudly: when the text holds no usable JSON, or the
// value does not validate even after coercion, Decode reports absence and the
// caller keeps the raw text.
package output

import (
	"github.com/hupe1980/toolagent/schema"
)

// Schema is the pluggable validation capability used for structured output.
type Schema interface {
	// Name identifies the schema towards providers (e.g. OpenAI json_schema name).
	Name() string
	// JSONSchema returns the raw JSON Schema sent to the model and used for coercion.
	JSONSchema() map[string]any
	// Validate reports whether v conforms.
	Validate(v any) error
}

type jsonSchema struct {
	name     string
	compiled *schema.Schema
}

// NewSchema compiles a raw JSON Schema. Compile errors wrap core.ErrInvalidSchema.
func NewSchema(name string, raw map[string]any) (Schema, error) {
	compiled, err := schema.Compile(raw)
	if err != nil {
		return nil, err
	}
	return &jsonSchema{name: name, compiled: compiled}, nil
}

// ObjectSchema builds an object schema from an ordered property list. Use
// Optional on properties the model may omit.
func ObjectSchema(name string, props ...schema.Property) (Schema, error) {
	return NewSchema(name, schema.ObjectOf(props...))
}

// MustObjectSchema is like ObjectSchema but panics on error.
func MustObjectSchema(name string, props ...schema.Property) Schema {
	s, err := ObjectSchema(name, props...)
	if err != nil {
		panic(err)
	}
	return s
}

func (s *jsonSchema) Name() string               { return s.name }
func (s *jsonSchema) JSONSchema() map[string]any { return s.compiled.Raw() }
func (s *jsonSchema) Validate(v any) error       { return s.compiled.Validate(v) }
