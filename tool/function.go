package tool

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/hupe1980/toolagent/schema"
)

// Args is the decoded argument object passed to a FunctionTool. The typed
// accessors return the zero value when a key is missing or not convertible.
type Args map[string]any

// Has reports whether key is present.
func (a Args) Has(key string) bool {
	_, ok := a[key]
	return ok
}

// String returns the argument as a string.
func (a Args) String(key string) string {
	switch v := a[key].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

// Float returns the argument as a float64.
func (a Args) Float(key string) float64 {
	switch v := a[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case json.Number:
		f, _ := v.Float64()
		return f
	case string:
		f, _ := strconv.ParseFloat(v, 64)
		return f
	default:
		return 0
	}
}

// Int returns the argument as an int, truncating fractional numbers.
func (a Args) Int(key string) int {
	switch v := a[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case string:
		i, err := strconv.Atoi(v)
		if err != nil {
			return int(a.Float(key))
		}
		return i
	default:
		return int(a.Float(key))
	}
}

// Bool returns the argument as a bool.
func (a Args) Bool(key string) bool {
	switch v := a[key].(type) {
	case bool:
		return v
	case string:
		b, _ := strconv.ParseBool(v)
		return b
	default:
		return false
	}
}

// FunctionTool exposes a plain Go function as a Tool.
//
// The parameter schema is declared explicitly as an ordered property list, so
// what the model sees is exactly what the author wrote. Argument validation
// happens in the Registry before Call is reached.
//
// A FunctionTool has no mutable state after construction and is safe for
// concurrent use.
type FunctionTool struct {
	name        string
	description string
	params      []schema.Property
	parameters  map[string]any
	fn          func(ctx context.Context, args Args) (any, error)
}

// NewFunctionTool constructs a FunctionTool.
//
// Example:
//
//	weather := tool.NewFunctionTool(
//	  "get_weather",
//	  "Get the current weather for a location",
//	  func(ctx context.Context, args tool.Args) (any, error) {
//	    return fmt.Sprintf("The weather in %s is cloudy.", args.String("location")), nil
//	  },
//	  schema.String("location", "The city and country"),
//	)
func NewFunctionTool(
	name, description string,
	fn func(ctx context.Context, args Args) (any, error),
	params ...schema.Property,
) *FunctionTool {
	return &FunctionTool{
		name:        name,
		description: description,
		params:      params,
		parameters:  schema.ObjectOf(params...),
		fn:          fn,
	}
}

// Name returns the unique tool name used in function call declarations and routing.
func (t *FunctionTool) Name() string { return t.name }

// Description returns the short natural language description exposed to models.
func (t *FunctionTool) Description() string { return t.description }

// Parameters returns the JSON schema describing expected arguments.
func (t *FunctionTool) Parameters() map[string]any { return t.parameters }

// Properties returns the declared parameter list in order.
func (t *FunctionTool) Properties() []schema.Property {
	return append([]schema.Property(nil), t.params...)
}

// Call invokes the wrapped function.
func (t *FunctionTool) Call(ctx context.Context, args map[string]any) (any, error) {
	if args == nil {
		args = map[string]any{}
	}
	return t.fn(ctx, Args(args))
}
