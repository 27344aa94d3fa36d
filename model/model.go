package model

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/hupe1980/toolagent/core"
)

// ToolDefinition declaratively exposes a callable function to the model.
type ToolDefinition struct {
	Type     string             `json:"type"` // "function"
	Function FunctionDefinition `json:"function"`
}

// FunctionDefinition describes an individual function (tool) exposed to the model.
// Parameters is a JSON Schema object.
type FunctionDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"` // JSON Schema
}

// ResponseFormat asks the provider to constrain the final answer to a JSON
// schema. Providers without native support fold it into the instructions.
type ResponseFormat struct {
	Name   string         `json:"name"`
	Schema map[string]any `json:"schema"`
}

// Request captures the normalized model input produced by the dispatcher.
type Request struct {
	Instructions   string           `json:"instructions"` // System level instructions
	Contents       []core.Content   `json:"contents"`     // User message followed by prior tool rounds
	Tools          []ToolDefinition `json:"tools,omitempty"`
	ResponseFormat *ResponseFormat  `json:"response_format,omitempty"`
}

// TokenUsage captures token usage statistics for a response.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Add accumulates other into u.
func (u *TokenUsage) Add(other *TokenUsage) {
	if u == nil || other == nil {
		return
	}
	u.PromptTokens += other.PromptTokens
	u.CompletionTokens += other.CompletionTokens
	u.TotalTokens += other.TotalTokens
}

// Response is the complete answer for one model round-trip.
type Response struct {
	ID           string       `json:"id"`
	Content      core.Content `json:"content"`
	FinishReason string       `json:"finish_reason"` // "stop", "length", "tool_calls", etc.
	Usage        *TokenUsage  `json:"usage,omitempty"`
}

// Info contains metadata about a model implementation.
type Info struct {
	Name          string `json:"name"`
	Provider      string `json:"provider"` // "openai", "anthropic", "gemini", "langchain", "mock"
	SupportsTools bool   `json:"supports_tools"`
}

// Model is the minimal interface required by the dispatcher to drive generation.
type Model interface {
	// Generate performs one round-trip. Implementations must honor ctx
	// cancellation.
	Generate(ctx context.Context, req Request) (*Response, error)

	// Info returns information about the model implementation.
	Info() Info
}

// NewTextResponse builds a final assistant response holding text.
func NewTextResponse(text string) *Response {
	return &Response{
		Content:      core.Content{Role: core.RoleAssistant, Parts: []core.Part{core.TextPart{Text: text}}},
		FinishReason: "stop",
	}
}

// NewToolCallResponse builds an assistant response requesting the given calls.
func NewToolCallResponse(calls ...core.FunctionCall) *Response {
	parts := make([]core.Part, 0, len(calls))
	for _, c := range calls {
		parts = append(parts, core.FunctionCallPart{FunctionCall: c})
	}
	return &Response{
		Content:      core.Content{Role: core.RoleAssistant, Parts: parts},
		FinishReason: "tool_calls",
	}
}

// MockModel is a lightweight in-memory Model useful for tests & examples.
//
// Without a handler it answers canned prompts registered with AddResponse,
// falls back to "Mock response to: <input>", and echoes tool results when the
// last content is a tool round. It is safe for concurrent use.
type MockModel struct {
	mu        sync.Mutex
	info      Info
	responses map[string]string
	handler   func(ctx context.Context, req Request) (*Response, error)
	calls     []Request
}

// NewMockModel constructs a MockModel with basic tool support enabled.
func NewMockModel(name, provider string) *MockModel {
	return &MockModel{
		info: Info{
			Name:          name,
			Provider:      provider,
			SupportsTools: true,
		},
		responses: make(map[string]string),
	}
}

// AddResponse registers a deterministic canned completion for an input prompt.
func (m *MockModel) AddResponse(prompt, response string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[prompt] = response
}

// WithHandler replaces the default behavior with fn and returns m.
func (m *MockModel) WithHandler(fn func(ctx context.Context, req Request) (*Response, error)) *MockModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handler = fn
	return m
}

// Calls returns a copy of every request received so far.
func (m *MockModel) Calls() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Request(nil), m.calls...)
}

// Generate implements Model.
func (m *MockModel) Generate(ctx context.Context, req Request) (*Response, error) {
	m.mu.Lock()
	m.calls = append(m.calls, req)
	handler := m.handler
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if handler != nil {
		return handler(ctx, req)
	}
	if len(req.Contents) == 0 {
		return nil, fmt.Errorf("%w: no contents provided", core.ErrModel)
	}

	last := req.Contents[len(req.Contents)-1]
	if last.Role == core.RoleTool {
		results := make([]string, 0, len(last.Parts))
		for _, r := range last.FunctionResponses() {
			results = append(results, r.Text())
		}
		return NewTextResponse(strings.Join(results, "\n")), nil
	}

	input := last.Text()

	m.mu.Lock()
	full := m.responses[input]
	m.mu.Unlock()

	if full == "" {
		full = fmt.Sprintf("Mock response to: %s", input)
	}
	return NewTextResponse(full), nil
}

// Info implements Model interface.
func (m *MockModel) Info() Info { return m.info }
