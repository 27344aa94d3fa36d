// Package gemini adapts Google's Gemini models (github.com/google/generative-ai-go)
// to the model.Model interface, including function calling and JSON output.
package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/google/uuid"
	"google.golang.org/api/option"

	"github.com/hupe1980/toolagent/core"
	"github.com/hupe1980/toolagent/logging"
	"github.com/hupe1980/toolagent/model"
)

// Options configures the Gemini adapter.
type Options struct {
	Model       string
	Temperature float32
	MaxTokens   int32
	Logger      logging.Logger
}

// Model wraps a genai client behind the generic model.Model interface.
type Model struct {
	client *genai.Client
	opts   Options
}

// NewModel creates a Gemini model authenticated with an API key. Call Close
// when done.
func NewModel(ctx context.Context, apiKey string, optFns ...func(o *Options)) (*Model, error) {
	if apiKey == "" {
		return nil, &core.ConfigurationError{Field: "api_key", Message: "gemini api key is required"}
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("%w: gemini init: %w", core.ErrConfiguration, err)
	}
	return NewModelFromClient(client, optFns...), nil
}

// NewModelFromClient creates a Gemini model from an existing client.
func NewModelFromClient(client *genai.Client, optFns ...func(o *Options)) *Model {
	opts := Options{
		Model:       "gemini-1.5-flash",
		Temperature: 0.7,
		MaxTokens:   4096,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	return &Model{client: client, opts: opts}
}

// Close releases the underlying client.
func (m *Model) Close() error {
	return m.client.Close()
}

// Generate performs one round-trip through a fresh chat session seeded with
// the request history. The session is discarded afterwards.
func (m *Model) Generate(ctx context.Context, req model.Request) (*model.Response, error) {
	if len(req.Contents) == 0 {
		return nil, fmt.Errorf("%w: gemini: no contents provided", core.ErrModel)
	}

	gm := m.client.GenerativeModel(m.opts.Model)
	m.configure(gm, req)

	history, last := buildContents(req.Contents, m.opts.Logger)
	cs := gm.StartChat()
	cs.History = history

	resp, err := cs.SendMessage(ctx, last.Parts...)
	if err != nil {
		return nil, fmt.Errorf("%w: gemini generate: %w", core.ErrModel, err)
	}

	return convertResponse(resp)
}

func (m *Model) configure(gm *genai.GenerativeModel, req model.Request) {
	gm.SetTemperature(m.opts.Temperature)
	if m.opts.MaxTokens > 0 {
		gm.SetMaxOutputTokens(m.opts.MaxTokens)
	}

	instructions := req.Instructions

	if len(req.Tools) > 0 {
		gm.Tools = []*genai.Tool{{FunctionDeclarations: buildFunctionDeclarations(req.Tools)}}
	}

	// JSON mime type cannot be combined with function calling.
	if rf := req.ResponseFormat; rf != nil {
		if len(req.Tools) == 0 {
			gm.ResponseMIMEType = "application/json"
			gm.ResponseSchema = toSchema(rf.Schema)
		} else if schemaJSON, err := json.Marshal(rf.Schema); err == nil {
			instructions = strings.TrimSpace(instructions + "\n\nRespond with JSON conforming to this schema:\n" + string(schemaJSON))
		}
	}

	if instructions != "" {
		gm.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(instructions)}}
	}
}

func buildFunctionDeclarations(tools []model.ToolDefinition) []*genai.FunctionDeclaration {
	decls := make([]*genai.FunctionDeclaration, 0, len(tools))
	for _, t := range tools {
		decl := &genai.FunctionDeclaration{
			Name:        t.Function.Name,
			Description: t.Function.Description,
		}
		if props, ok := t.Function.Parameters["properties"].(map[string]any); ok && len(props) > 0 {
			decl.Parameters = toSchema(t.Function.Parameters)
		}
		decls = append(decls, decl)
	}
	return decls
}

// buildContents converts normalized contents into genai history plus the
// final content to send.
func buildContents(contents []core.Content, logger logging.Logger) ([]*genai.Content, *genai.Content) {
	converted := make([]*genai.Content, 0, len(contents))
	for _, c := range contents {
		gc := &genai.Content{Role: "user"}
		switch c.Role {
		case "system":
			continue
		case core.RoleAssistant:
			gc.Role = "model"
			for _, p := range c.Parts {
				switch part := p.(type) {
				case core.TextPart:
					if part.Text != "" {
						gc.Parts = append(gc.Parts, genai.Text(part.Text))
					}
				case core.FunctionCallPart:
					args := map[string]any{}
					if part.FunctionCall.Arguments != "" {
						var decoded map[string]any
						if err := json.Unmarshal([]byte(part.FunctionCall.Arguments), &decoded); err == nil && decoded != nil {
							args = decoded
						} else {
							logger.Warn("model.gemini.invalid_arguments", "function", part.FunctionCall.Name, "function_call_id", part.FunctionCall.ID, "error", err)
						}
					}
					gc.Parts = append(gc.Parts, genai.FunctionCall{Name: part.FunctionCall.Name, Args: args})
				}
			}
		case core.RoleTool:
			for _, fr := range c.FunctionResponses() {
				payload := map[string]any{"result": fr.Response}
				if fr.Error != "" {
					payload = map[string]any{"error": fr.Error}
				}
				gc.Parts = append(gc.Parts, genai.FunctionResponse{Name: fr.Name, Response: payload})
			}
		default:
			if text := c.Text(); text != "" {
				gc.Parts = append(gc.Parts, genai.Text(text))
			}
		}
		if len(gc.Parts) > 0 {
			converted = append(converted, gc)
		}
	}

	if len(converted) == 0 {
		return nil, &genai.Content{Role: "user", Parts: []genai.Part{genai.Text("")}}
	}
	return converted[:len(converted)-1], converted[len(converted)-1]
}

// convertResponse maps the first candidate to a model.Response. Gemini does
// not issue call ids, so each call receives a synthetic one.
func convertResponse(resp *genai.GenerateContentResponse) (*model.Response, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, fmt.Errorf("%w: gemini: empty response", core.ErrModel)
	}

	cand := resp.Candidates[0]
	var parts []core.Part
	for _, p := range cand.Content.Parts {
		switch v := p.(type) {
		case genai.Text:
			if v != "" {
				parts = append(parts, core.TextPart{Text: string(v)})
			}
		case genai.FunctionCall:
			args, err := json.Marshal(v.Args)
			if err != nil {
				args = []byte("{}")
			}
			parts = append(parts, core.FunctionCallPart{FunctionCall: core.FunctionCall{
				ID:        "call_" + uuid.NewString(),
				Name:      v.Name,
				Arguments: string(args),
			}})
		}
	}

	content := core.Content{Role: core.RoleAssistant, Parts: parts}
	out := &model.Response{
		Content:      content,
		FinishReason: finishReason(cand.FinishReason, len(content.FunctionCalls()) > 0),
	}
	if u := resp.UsageMetadata; u != nil {
		out.Usage = &model.TokenUsage{
			PromptTokens:     int(u.PromptTokenCount),
			CompletionTokens: int(u.CandidatesTokenCount),
			TotalTokens:      int(u.TotalTokenCount),
		}
	}
	return out, nil
}

func finishReason(r genai.FinishReason, hasCalls bool) string {
	switch {
	case hasCalls:
		return "tool_calls"
	case r == genai.FinishReasonStop:
		return "stop"
	case r == genai.FinishReasonMaxTokens:
		return "length"
	case r == genai.FinishReasonSafety:
		return "content_filter"
	default:
		return "other"
	}
}

// toSchema converts a JSON Schema map into the genai subset.
func toSchema(raw map[string]any) *genai.Schema {
	if raw == nil {
		return nil
	}
	s := &genai.Schema{}
	switch raw["type"] {
	case "object":
		s.Type = genai.TypeObject
	case "array":
		s.Type = genai.TypeArray
	case "string":
		s.Type = genai.TypeString
	case "integer":
		s.Type = genai.TypeInteger
	case "number":
		s.Type = genai.TypeNumber
	case "boolean":
		s.Type = genai.TypeBoolean
	}
	if d, ok := raw["description"].(string); ok {
		s.Description = d
	}
	if enum, ok := raw["enum"].([]any); ok {
		for _, e := range enum {
			s.Enum = append(s.Enum, fmt.Sprint(e))
		}
	}
	if items, ok := raw["items"].(map[string]any); ok {
		s.Items = toSchema(items)
	}
	if props, ok := raw["properties"].(map[string]any); ok {
		s.Properties = make(map[string]*genai.Schema, len(props))
		for name, p := range props {
			if pm, ok := p.(map[string]any); ok {
				s.Properties[name] = toSchema(pm)
			}
		}
	}
	switch req := raw["required"].(type) {
	case []string:
		s.Required = append([]string(nil), req...)
	case []any:
		for _, r := range req {
			if name, ok := r.(string); ok {
				s.Required = append(s.Required, name)
			}
		}
	}
	return s
}

// Info returns metadata describing this Gemini model implementation.
func (m *Model) Info() model.Info {
	return model.Info{
		Name:          m.opts.Model,
		Provider:      "gemini",
		SupportsTools: true,
	}
}
