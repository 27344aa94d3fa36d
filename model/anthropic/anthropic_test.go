package anthropic

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/toolagent/core"
	"github.com/hupe1980/toolagent/model"
)

const toolUseMessage = `{
  "id": "msg_1",
  "type": "message",
  "role": "assistant",
  "model": "claude-3-5-sonnet-20241022",
  "content": [
    {"type": "text", "text": "Let me check."},
    {"type": "tool_use", "id": "toolu_1", "name": "get_weather", "input": {"location": "Karachi"}}
  ],
  "stop_reason": "tool_use",
  "usage": {"input_tokens": 3, "output_tokens": 4}
}`

func TestGenerate_ToolUseAndResultOrdering(t *testing.T) {
	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		assert.NoError(t, json.Unmarshal(raw, &captured))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, toolUseMessage)
	}))
	defer srv.Close()

	m := NewModel(func(o *Options) {
		o.APIKey = "test"
		o.BaseURL = srv.URL
	})

	resp, err := m.Generate(context.Background(), model.Request{
		Instructions: "You are a weather agent.",
		Contents: []core.Content{
			core.NewUserText("weather?"),
			{Role: core.RoleAssistant, Parts: []core.Part{core.FunctionCallPart{FunctionCall: core.FunctionCall{ID: "toolu_0", Name: "get_weather", Arguments: `{"location":"Lahore"}`}}}},
			core.NewToolResponses([]core.FunctionResponse{{ID: "toolu_0", Name: "get_weather", Error: "unavailable"}}),
		},
		Tools: []model.ToolDefinition{{
			Type: "function",
			Function: model.FunctionDefinition{
				Name:        "get_weather",
				Description: "Get the weather",
				Parameters: map[string]any{
					"type":       "object",
					"properties": map[string]any{"location": map[string]any{"type": "string"}},
					"required":   []string{"location"},
				},
			},
		}},
		ResponseFormat: &model.ResponseFormat{Name: "Weather", Schema: map[string]any{"type": "object"}},
	})
	require.NoError(t, err)

	assert.Equal(t, "Let me check.", resp.Content.Text())
	calls := resp.Content.FunctionCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "toolu_1", calls[0].ID)
	assert.JSONEq(t, `{"location":"Karachi"}`, calls[0].Arguments)
	assert.Equal(t, "tool_use", resp.FinishReason)
	assert.Equal(t, 7, resp.Usage.TotalTokens)

	msgs := captured["messages"].([]any)
	require.Len(t, msgs, 3)
	assert.Equal(t, "user", msgs[0].(map[string]any)["role"])
	assert.Equal(t, "assistant", msgs[1].(map[string]any)["role"])

	toolResult := msgs[2].(map[string]any)
	assert.Equal(t, "user", toolResult["role"])
	block := toolResult["content"].([]any)[0].(map[string]any)
	assert.Equal(t, "tool_result", block["type"])
	assert.Equal(t, "toolu_0", block["tool_use_id"])
	assert.Equal(t, true, block["is_error"])

	system := captured["system"].([]any)[0].(map[string]any)["text"].(string)
	assert.Contains(t, system, "You are a weather agent.")
	assert.Contains(t, system, "JSON schema")

	tool := captured["tools"].([]any)[0].(map[string]any)
	assert.Equal(t, "get_weather", tool["name"])
	assert.Equal(t, "Get the weather", tool["description"])
}

func TestGenerate_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"type":"error","error":{"type":"invalid_request_error","message":"bad"}}`)
	}))
	defer srv.Close()

	m := NewModel(func(o *Options) {
		o.APIKey = "test"
		o.BaseURL = srv.URL
	})
	_, err := m.Generate(context.Background(), model.Request{Contents: []core.Content{core.NewUserText("hi")}})
	assert.ErrorIs(t, err, core.ErrModel)
}

func TestInfo(t *testing.T) {
	m := NewModel(func(o *Options) { o.APIKey = "k" })
	info := m.Info()
	assert.Equal(t, "anthropic", info.Provider)
	assert.True(t, info.SupportsTools)
}
