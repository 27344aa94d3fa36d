package gemini

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/toolagent/core"
	"github.com/hupe1980/toolagent/logging"
	"github.com/hupe1980/toolagent/model"
	"github.com/hupe1980/toolagent/schema"
)

func TestToSchema(t *testing.T) {
	s := toSchema(schema.ObjectOf(
		schema.String("name", "Full name").Optional(),
		schema.Integer("age", "Age in years"),
		schema.String("unit", "Unit").Enum("celsius", "fahrenheit"),
		schema.Array("tags", "Tags", schema.String("", "tag")),
	))

	require.NotNil(t, s)
	assert.Equal(t, genai.TypeObject, s.Type)
	assert.Equal(t, []string{"age", "unit", "tags"}, s.Required)
	assert.Equal(t, genai.TypeString, s.Properties["name"].Type)
	assert.Equal(t, "Full name", s.Properties["name"].Description)
	assert.Equal(t, genai.TypeInteger, s.Properties["age"].Type)
	assert.Equal(t, []string{"celsius", "fahrenheit"}, s.Properties["unit"].Enum)
	assert.Equal(t, genai.TypeArray, s.Properties["tags"].Type)
	assert.Equal(t, genai.TypeString, s.Properties["tags"].Items.Type)

	assert.Nil(t, toSchema(nil))
}

func TestBuildContents(t *testing.T) {
	history, last := buildContents([]core.Content{
		core.NewUserText("weather?"),
		{Role: core.RoleAssistant, Parts: []core.Part{
			core.TextPart{Text: "checking"},
			core.FunctionCallPart{FunctionCall: core.FunctionCall{ID: "c1", Name: "get_weather", Arguments: `{"location":"Karachi"}`}},
		}},
		core.NewToolResponses([]core.FunctionResponse{
			{ID: "c1", Name: "get_weather", Response: "cloudy"},
			{ID: "c2", Name: "broken", Error: "boom"},
		}),
	}, logging.NoOpLogger{})

	require.Len(t, history, 2)
	assert.Equal(t, "user", history[0].Role)
	assert.Equal(t, "model", history[1].Role)
	require.Len(t, history[1].Parts, 2)
	fc, ok := history[1].Parts[1].(genai.FunctionCall)
	require.True(t, ok)
	assert.Equal(t, "get_weather", fc.Name)
	assert.Equal(t, "Karachi", fc.Args["location"])

	require.Len(t, last.Parts, 2)
	fr := last.Parts[0].(genai.FunctionResponse)
	assert.Equal(t, map[string]any{"result": "cloudy"}, fr.Response)
	fr = last.Parts[1].(genai.FunctionResponse)
	assert.Equal(t, map[string]any{"error": "boom"}, fr.Response)
}

func TestBuildContents_InvalidArgumentsAreLogged(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewLogger(&logging.LoggerConfig{Level: logging.LogLevelDebug, Format: "json", Output: &buf})

	history, _ := buildContents([]core.Content{
		core.NewUserText("weather?"),
		{Role: core.RoleAssistant, Parts: []core.Part{
			core.FunctionCallPart{FunctionCall: core.FunctionCall{ID: "c1", Name: "get_weather", Arguments: `{"location":`}},
		}},
		core.NewToolResponses([]core.FunctionResponse{{ID: "c1", Name: "get_weather", Error: "bad arguments"}}),
	}, logger)

	require.Len(t, history, 2)
	fc, ok := history[1].Parts[0].(genai.FunctionCall)
	require.True(t, ok)
	assert.Empty(t, fc.Args)
	assert.Contains(t, buf.String(), "model.gemini.invalid_arguments")
	assert.Contains(t, buf.String(), "get_weather")
}

func TestConvertResponse(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			FinishReason: genai.FinishReasonStop,
			Content: &genai.Content{Role: "model", Parts: []genai.Part{
				genai.Text("Here you go"),
				genai.FunctionCall{Name: "get_weather", Args: map[string]any{"location": "Karachi"}},
			}},
		}},
		UsageMetadata: &genai.UsageMetadata{PromptTokenCount: 2, CandidatesTokenCount: 3, TotalTokenCount: 5},
	}

	out, err := convertResponse(resp)
	require.NoError(t, err)
	assert.Equal(t, "Here you go", out.Content.Text())
	calls := out.Content.FunctionCalls()
	require.Len(t, calls, 1)
	assert.True(t, strings.HasPrefix(calls[0].ID, "call_"))
	assert.JSONEq(t, `{"location":"Karachi"}`, calls[0].Arguments)
	assert.Equal(t, 5, out.Usage.TotalTokens)

	_, err = convertResponse(&genai.GenerateContentResponse{})
	assert.ErrorIs(t, err, core.ErrModel)
}

func TestBuildFunctionDeclarations(t *testing.T) {
	decls := buildFunctionDeclarations([]model.ToolDefinition{
		{Function: model.FunctionDefinition{Name: "get_weather", Description: "Weather", Parameters: schema.ObjectOf(schema.String("location", "City"))}},
		{Function: model.FunctionDefinition{Name: "ping", Description: "No args", Parameters: schema.ObjectOf()}},
	})
	require.Len(t, decls, 2)
	assert.Equal(t, "get_weather", decls[0].Name)
	require.NotNil(t, decls[0].Parameters)
	assert.Nil(t, decls[1].Parameters)
}

func TestNewModel_RequiresKey(t *testing.T) {
	_, err := NewModel(context.Background(), "")
	assert.ErrorIs(t, err, core.ErrConfiguration)
}
