package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/toolagent/core"
)

func TestObjectOf(t *testing.T) {
	raw := ObjectOf(
		String("location", "The city and state"),
		String("unit", "Temperature unit").Enum("celsius", "fahrenheit").Optional(),
		Integer("days", "Forecast days"),
	)

	assert.Equal(t, "object", raw["type"])
	assert.Equal(t, []string{"location", "days"}, raw["required"])

	props, ok := raw["properties"].(map[string]any)
	require.True(t, ok)
	require.Len(t, props, 3)

	loc := props["location"].(map[string]any)
	assert.Equal(t, "string", loc["type"])
	assert.Equal(t, "The city and state", loc["description"])

	unit := props["unit"].(map[string]any)
	assert.Equal(t, []any{"celsius", "fahrenheit"}, unit["enum"])
}

func TestObjectOf_NoRequired(t *testing.T) {
	raw := ObjectOf(String("name", "").Optional())
	_, ok := raw["required"]
	assert.False(t, ok)
}

func TestNestedProperties(t *testing.T) {
	raw := ObjectOf(
		Array("tags", "Labels", String("", "tag")),
		Object("address", "Postal address",
			String("city", "City"),
			String("zip", "Zip code").Optional(),
		),
	)
	props := raw["properties"].(map[string]any)

	tags := props["tags"].(map[string]any)
	assert.Equal(t, "array", tags["type"])
	assert.Equal(t, map[string]any{"type": "string", "description": "tag"}, tags["items"])

	addr := props["address"].(map[string]any)
	assert.Equal(t, "object", addr["type"])
	assert.Equal(t, []string{"city"}, addr["required"])
}

func TestCompileAndValidate(t *testing.T) {
	s, err := Compile(ObjectOf(
		String("location", "City"),
		Integer("days", "Days").Optional(),
	))
	require.NoError(t, err)

	assert.NoError(t, s.Validate(map[string]any{"location": "Karachi"}))
	assert.NoError(t, s.Validate(map[string]any{"location": "Karachi", "days": 3}))
	assert.NoError(t, s.Validate(map[string]any{"location": "Karachi", "days": int64(3)}))
	assert.NoError(t, s.Validate(map[string]any{"location": "Karachi", "days": 3.0}))

	err = s.Validate(map[string]any{})
	require.Error(t, err)
	var vErr *ValidationError
	assert.ErrorAs(t, err, &vErr)

	assert.Error(t, s.Validate(map[string]any{"location": 42}))
	assert.Error(t, s.Validate(map[string]any{"location": "Karachi", "days": 2.5}))
}

func TestCompile_Invalid(t *testing.T) {
	_, err := Compile(map[string]any{"type": 12})
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrInvalidSchema)
}

func TestCompile_NilAcceptsObjects(t *testing.T) {
	s, err := Compile(nil)
	require.NoError(t, err)
	assert.NoError(t, s.Validate(map[string]any{"anything": true}))
	assert.Equal(t, "object", s.Raw()["type"])
}

func TestNilSchemaValidates(t *testing.T) {
	var s *Schema
	assert.NoError(t, s.Validate("x"))
	assert.Nil(t, s.Raw())
}

func TestMustCompile_Panics(t *testing.T) {
	assert.Panics(t, func() { MustCompile(map[string]any{"type": 12}) })
}
