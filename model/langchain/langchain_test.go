package langchain

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"github.com/hupe1980/toolagent/core"
	"github.com/hupe1980/toolagent/model"
)

type fakeLLM struct {
	messages []llms.MessageContent
	opts     llms.CallOptions
	resp     *llms.ContentResponse
	err      error
}

func (f *fakeLLM) GenerateContent(_ context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	f.messages = messages
	for _, o := range options {
		o(&f.opts)
	}
	return f.resp, f.err
}

func (f *fakeLLM) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, f, prompt, options...)
}

func TestGenerate_ToolCalls(t *testing.T) {
	llm := &fakeLLM{resp: &llms.ContentResponse{Choices: []*llms.ContentChoice{{
		StopReason: "tool_calls",
		ToolCalls: []llms.ToolCall{
			{ID: "call_1", Type: "function", FunctionCall: &llms.FunctionCall{Name: "get_weather", Arguments: `{"location":"Karachi"}`}},
			{Type: "function", FunctionCall: &llms.FunctionCall{Name: "noid", Arguments: `{}`}},
		},
		GenerationInfo: map[string]any{"PromptTokens": 4, "CompletionTokens": 6},
	}}}}

	m := NewModel(llm, func(o *Options) { o.Name = "llama3" })
	resp, err := m.Generate(context.Background(), model.Request{
		Instructions: "Be helpful.",
		Contents: []core.Content{
			core.NewUserText("weather?"),
			{Role: core.RoleAssistant, Parts: []core.Part{core.FunctionCallPart{FunctionCall: core.FunctionCall{ID: "c0", Name: "get_weather", Arguments: `{}`}}}},
			core.NewToolResponses([]core.FunctionResponse{{ID: "c0", Name: "get_weather", Response: "cloudy"}, {ID: "c1", Name: "x", Error: "boom"}}),
		},
		Tools: []model.ToolDefinition{{Type: "function", Function: model.FunctionDefinition{Name: "get_weather", Parameters: map[string]any{"type": "object"}}}},
	})
	require.NoError(t, err)

	calls := resp.Content.FunctionCalls()
	require.Len(t, calls, 2)
	assert.Equal(t, "call_1", calls[0].ID)
	assert.NotEmpty(t, calls[1].ID)
	assert.Equal(t, &model.TokenUsage{PromptTokens: 4, CompletionTokens: 6, TotalTokens: 10}, resp.Usage)

	require.Len(t, llm.messages, 5)
	assert.Equal(t, llms.ChatMessageTypeSystem, llm.messages[0].Role)
	assert.Equal(t, llms.ChatMessageTypeHuman, llm.messages[1].Role)
	assert.Equal(t, llms.ChatMessageTypeAI, llm.messages[2].Role)
	assert.Equal(t, llms.ChatMessageTypeTool, llm.messages[3].Role)
	tr := llm.messages[4].Parts[0].(llms.ToolCallResponse)
	assert.Equal(t, "error: boom", tr.Content)

	require.Len(t, llm.opts.Tools, 1)
	assert.Equal(t, "get_weather", llm.opts.Tools[0].Function.Name)
	assert.False(t, llm.opts.JSONMode)
	assert.Equal(t, "llama3", m.Info().Name)
}

func TestGenerate_JSONMode(t *testing.T) {
	llm := &fakeLLM{resp: &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: `{"name":"John"}`}}}}
	m := NewModel(llm)

	resp, err := m.Generate(context.Background(), model.Request{
		Contents:       []core.Content{core.NewUserText("who?")},
		ResponseFormat: &model.ResponseFormat{Name: "Person", Schema: map[string]any{"type": "object"}},
	})
	require.NoError(t, err)
	assert.Equal(t, `{"name":"John"}`, resp.Content.Text())
	assert.True(t, llm.opts.JSONMode)
	assert.Nil(t, resp.Usage)

	sys := llm.messages[0].Parts[0].(llms.TextContent)
	assert.Contains(t, sys.Text, "schema")
}

func TestGenerate_Errors(t *testing.T) {
	m := NewModel(&fakeLLM{err: errors.New("down")})
	_, err := m.Generate(context.Background(), model.Request{Contents: []core.Content{core.NewUserText("x")}})
	assert.ErrorIs(t, err, core.ErrModel)

	m = NewModel(&fakeLLM{resp: &llms.ContentResponse{}})
	_, err = m.Generate(context.Background(), model.Request{Contents: []core.Content{core.NewUserText("x")}})
	assert.ErrorIs(t, err, core.ErrModel)
}

func TestIntFrom(t *testing.T) {
	info := map[string]any{"a": int64(3), "b": float64(2), "c": "x", "d": 0}
	assert.Equal(t, 3, intFrom(info, "missing", "a"))
	assert.Equal(t, 2, intFrom(info, "d", "b"))
	assert.Equal(t, 0, intFrom(info, "c"))
}
