package output

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var fencedBlock = regexp.MustCompile("(?s)```[a-zA-Z]*[ \t]*\\n?(.*?)```")

// Decode extracts a value conforming to s from text.
//
// Candidates are tried in order: the whole text, fenced code blocks, then
// every balanced {...} or [...] segment. Each candidate is coerced towards the
// schema where the conversion is unambiguous and validated. The first valid
// candidate wins. Decode never returns an error; ok is false when nothing
// validates.
//
// Integers in "integer" fields decode to int64; every other number decodes
// to float64.
func Decode(text string, s Schema) (value any, ok bool) {
	if s == nil {
		return nil, false
	}
	raw := s.JSONSchema()

	for _, candidate := range candidates(text) {
		v, err := parseJSON(candidate)
		if err != nil {
			continue
		}
		v = finalize(coerce(v, raw))
		if s.Validate(v) == nil {
			return v, true
		}
	}

	// A bare string schema accepts the text itself.
	if schemaType(raw) == "string" {
		if trimmed := strings.TrimSpace(text); trimmed != "" && s.Validate(trimmed) == nil {
			return trimmed, true
		}
	}

	return nil, false
}

// Render serializes a decoded value back to text. Decode(Render(v), s)
// yields v again for any v produced by Decode with the same schema.
func Render(value any) string {
	b, err := json.Marshal(value)
	if err != nil {
		return fmt.Sprint(value)
	}
	return string(b)
}

// Into copies a decoded value into dst (a pointer to a struct, map or slice)
// through its JSON representation.
func Into(value any, dst any) error {
	b, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("output: marshal decoded value: %w", err)
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return fmt.Errorf("output: unmarshal into %T: %w", dst, err)
	}
	return nil
}

func candidates(text string) []string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}

	out := []string{trimmed}
	for _, m := range fencedBlock.FindAllStringSubmatch(text, -1) {
		if block := strings.TrimSpace(m[1]); block != "" {
			out = append(out, block)
		}
	}
	return append(out, balancedSegments(text)...)
}

// balancedSegments returns every top-level {...} or [...] segment, honoring
// JSON string literals and escapes.
func balancedSegments(text string) []string {
	var out []string
	for start := 0; start < len(text); start++ {
		if text[start] != '{' && text[start] != '[' {
			continue
		}
		end := matchClose(text, start)
		if end < 0 {
			continue
		}
		out = append(out, text[start:end+1])
		start = end
	}
	return out
}

func matchClose(text string, start int) int {
	var stack []byte
	inString, escaped := false, false

	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '{':
			stack = append(stack, '}')
		case '[':
			stack = append(stack, ']')
		case '}', ']':
			if len(stack) == 0 || stack[len(stack)-1] != c {
				return -1
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				return i
			}
		}
	}
	return -1
}

func parseJSON(s string) (any, error) {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("trailing data after JSON value")
	}
	return v, nil
}

// schemaType returns the primary type of a schema node. Union types such as
// ["string","null"] resolve to their first non-null member.
func schemaType(node map[string]any) string {
	switch t := node["type"].(type) {
	case string:
		return t
	case []any:
		for _, m := range t {
			if s, ok := m.(string); ok && s != "null" {
				return s
			}
		}
	case []string:
		for _, s := range t {
			if s != "null" {
				return s
			}
		}
	}
	return ""
}

func requiredSet(node map[string]any) map[string]bool {
	set := map[string]bool{}
	switch r := node["required"].(type) {
	case []string:
		for _, name := range r {
			set[name] = true
		}
	case []any:
		for _, name := range r {
			if s, ok := name.(string); ok {
				set[s] = true
			}
		}
	}
	return set
}

// coerce nudges v towards node where the conversion cannot change meaning.
func coerce(v any, node map[string]any) any {
	if node == nil {
		return v
	}

	switch schemaType(node) {
	case "object":
		obj, ok := v.(map[string]any)
		if !ok {
			return v
		}
		props, _ := node["properties"].(map[string]any)
		required := requiredSet(node)
		for key, val := range obj {
			child, _ := props[key].(map[string]any)
			if val == nil && child != nil && !required[key] && !allowsNull(child) {
				delete(obj, key)
				continue
			}
			obj[key] = coerce(val, child)
		}
		return obj

	case "array":
		items, _ := node["items"].(map[string]any)
		arr, ok := v.([]any)
		if !ok {
			if v == nil {
				return v
			}
			arr = []any{v}
		}
		for i := range arr {
			arr[i] = coerce(arr[i], items)
		}
		return arr

	case "integer":
		switch n := v.(type) {
		case json.Number:
			if i, err := n.Int64(); err == nil {
				return i
			}
			if f, err := n.Float64(); err == nil && isIntegral(f) {
				return int64(f)
			}
		case string:
			s := strings.TrimSpace(n)
			if i, err := strconv.ParseInt(s, 10, 64); err == nil {
				return i
			}
			if f, err := strconv.ParseFloat(s, 64); err == nil && isIntegral(f) {
				return int64(f)
			}
		case float64:
			if isIntegral(n) {
				return int64(n)
			}
		}

	case "number":
		switch n := v.(type) {
		case json.Number:
			if f, err := n.Float64(); err == nil {
				return f
			}
		case string:
			if f, err := strconv.ParseFloat(strings.TrimSpace(n), 64); err == nil {
				return f
			}
		case int64:
			return float64(n)
		}

	case "boolean":
		if s, ok := v.(string); ok {
			switch strings.ToLower(strings.TrimSpace(s)) {
			case "true":
				return true
			case "false":
				return false
			}
		}

	case "string":
		switch n := v.(type) {
		case json.Number:
			return n.String()
		case bool:
			return strconv.FormatBool(n)
		}
	}

	return v
}

func allowsNull(node map[string]any) bool {
	switch t := node["type"].(type) {
	case []any:
		for _, m := range t {
			if m == "null" {
				return true
			}
		}
	case []string:
		for _, m := range t {
			if m == "null" {
				return true
			}
		}
	}
	return false
}

// finalize replaces json.Number values left by coercion with float64.
func finalize(v any) any {
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return n.String()
		}
		return f
	case map[string]any:
		for k, val := range n {
			n[k] = finalize(val)
		}
		return n
	case []any:
		for i := range n {
			n[i] = finalize(n[i])
		}
		return n
	default:
		return v
	}
}

func isIntegral(f float64) bool {
	return f == math.Trunc(f) && !math.IsInf(f, 0) && math.Abs(f) < 1<<53
}
