// Package langchain adapts any github.com/tmc/langchaingo llms.Model to the
// model.Model interface. It is the route to OpenAI-compatible servers
// (Ollama, LM Studio, vLLM, x.ai, ...) and to every other provider langchaingo
// supports.
package langchain

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/tmc/langchaingo/llms"
	lcopenai "github.com/tmc/langchaingo/llms/openai"

	"github.com/hupe1980/toolagent/core"
	"github.com/hupe1980/toolagent/model"
)

// Options configures the adapter.
type Options struct {
	// Name reported by Info.
	Name        string
	Temperature float64
	MaxTokens   int
}

// Model wraps an llms.Model.
type Model struct {
	llm  llms.Model
	opts Options
}

// NewModel wraps llm.
func NewModel(llm llms.Model, optFns ...func(o *Options)) *Model {
	opts := Options{
		Name:        "langchain",
		Temperature: 0.7,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Model{llm: llm, opts: opts}
}

// NewOpenAICompatible creates a model for an OpenAI-compatible endpoint
// through langchaingo's openai client.
func NewOpenAICompatible(apiKey, baseURL, modelID string, optFns ...func(o *Options)) (*Model, error) {
	lcOpts := []lcopenai.Option{lcopenai.WithToken(apiKey), lcopenai.WithModel(modelID)}
	if baseURL != "" {
		lcOpts = append(lcOpts, lcopenai.WithBaseURL(baseURL))
	}
	llm, err := lcopenai.New(lcOpts...)
	if err != nil {
		return nil, fmt.Errorf("%w: langchain openai init: %w", core.ErrConfiguration, err)
	}
	return NewModel(llm, append([]func(o *Options){func(o *Options) { o.Name = modelID }}, optFns...)...), nil
}

// Unwrap returns the underlying llms.Model.
func (m *Model) Unwrap() llms.Model {
	return m.llm
}

// Generate performs one GenerateContent call.
func (m *Model) Generate(ctx context.Context, req model.Request) (*model.Response, error) {
	callOpts := []llms.CallOption{llms.WithTemperature(m.opts.Temperature)}
	if m.opts.MaxTokens > 0 {
		callOpts = append(callOpts, llms.WithMaxTokens(m.opts.MaxTokens))
	}
	if len(req.Tools) > 0 {
		callOpts = append(callOpts, llms.WithTools(buildTools(req.Tools)))
	}
	if req.ResponseFormat != nil && len(req.Tools) == 0 {
		callOpts = append(callOpts, llms.WithJSONMode())
	}

	resp, err := m.llm.GenerateContent(ctx, buildMessages(req), callOpts...)
	if err != nil {
		return nil, fmt.Errorf("%w: langchain generate: %w", core.ErrModel, err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: langchain: no choices returned", core.ErrModel)
	}

	choice := resp.Choices[0]
	var parts []core.Part
	if choice.Content != "" {
		parts = append(parts, core.TextPart{Text: choice.Content})
	}
	for _, tc := range choice.ToolCalls {
		if tc.FunctionCall == nil {
			continue
		}
		id := tc.ID
		if id == "" {
			id = "call_" + uuid.NewString()
		}
		parts = append(parts, core.FunctionCallPart{FunctionCall: core.FunctionCall{
			ID:        id,
			Name:      tc.FunctionCall.Name,
			Arguments: tc.FunctionCall.Arguments,
		}})
	}

	out := &model.Response{
		Content:      core.Content{Role: core.RoleAssistant, Parts: parts},
		FinishReason: choice.StopReason,
	}
	if info := choice.GenerationInfo; info != nil {
		in, outTokens := intFrom(info, "PromptTokens", "InputTokens", "input_tokens"), intFrom(info, "CompletionTokens", "OutputTokens", "output_tokens")
		total := intFrom(info, "TotalTokens", "total_tokens")
		if total == 0 {
			total = in + outTokens
		}
		out.Usage = &model.TokenUsage{PromptTokens: in, CompletionTokens: outTokens, TotalTokens: total}
	}
	return out, nil
}

func buildMessages(req model.Request) []llms.MessageContent {
	messages := make([]llms.MessageContent, 0, len(req.Contents)+1)

	system := req.Instructions
	if rf := req.ResponseFormat; rf != nil {
		if schemaJSON, err := json.Marshal(rf.Schema); err == nil {
			if system != "" {
				system += "\n\n"
			}
			system += "Respond with JSON conforming to this schema:\n" + string(schemaJSON)
		}
	}
	if system != "" {
		messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem, system))
	}

	for _, c := range req.Contents {
		switch c.Role {
		case "system":
			messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem, c.Text()))
		case core.RoleAssistant:
			msg := llms.MessageContent{Role: llms.ChatMessageTypeAI}
			if text := c.Text(); text != "" {
				msg.Parts = append(msg.Parts, llms.TextContent{Text: text})
			}
			for _, fc := range c.FunctionCalls() {
				msg.Parts = append(msg.Parts, llms.ToolCall{
					ID:   fc.ID,
					Type: "function",
					FunctionCall: &llms.FunctionCall{
						Name:      fc.Name,
						Arguments: fc.Arguments,
					},
				})
			}
			messages = append(messages, msg)
		case core.RoleTool:
			// One message per response; several providers reject grouped tool results.
			for _, fr := range c.FunctionResponses() {
				messages = append(messages, llms.MessageContent{
					Role: llms.ChatMessageTypeTool,
					Parts: []llms.ContentPart{llms.ToolCallResponse{
						ToolCallID: fr.ID,
						Name:       fr.Name,
						Content:    fr.Text(),
					}},
				})
			}
		default:
			messages = append(messages, llms.TextParts(llms.ChatMessageTypeHuman, c.Text()))
		}
	}
	return messages
}

func buildTools(defs []model.ToolDefinition) []llms.Tool {
	tools := make([]llms.Tool, 0, len(defs))
	for _, d := range defs {
		tools = append(tools, llms.Tool{
			Type: "function",
			Function: &llms.FunctionDefinition{
				Name:        d.Function.Name,
				Description: d.Function.Description,
				Parameters:  d.Function.Parameters,
			},
		})
	}
	return tools
}

// intFrom returns the first positive integer found under keys. Providers
// report token counts under different names and numeric types.
func intFrom(info map[string]any, keys ...string) int {
	for _, key := range keys {
		switch n := info[key].(type) {
		case int:
			if n > 0 {
				return n
			}
		case int32:
			if n > 0 {
				return int(n)
			}
		case int64:
			if n > 0 {
				return int(n)
			}
		case float64:
			if n > 0 {
				return int(n)
			}
		}
	}
	return 0
}

// Info returns metadata describing the wrapped model.
func (m *Model) Info() model.Info {
	return model.Info{
		Name:          m.opts.Name,
		Provider:      "langchain",
		SupportsTools: true,
	}
}
