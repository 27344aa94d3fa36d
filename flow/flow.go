// Package flow implements the request dispatcher: the loop that sends a
// message to the model, executes the tool calls it asks for, feeds the
// results back and finally decodes the answer.
//
// A dispatch is strictly sequential across rounds; tool calls inside one
// round run concurrently through a FunctionExecutor and are joined in call
// order before the next round.
package flow

import (
	"context"

	"github.com/hupe1980/toolagent/core"
	"github.com/hupe1980/toolagent/model"
	"github.com/hupe1980/toolagent/output"
	"github.com/hupe1980/toolagent/tool"
)

// FlowAgent defines what the dispatcher needs from an agent.
//
// The dispatcher only borrows an agent for one call; implementations must be
// read-only while a dispatch is running.
type FlowAgent interface {
	// ID returns a process-unique identity used for cycle detection.
	ID() string

	// GetName returns the agent's display name.
	GetName() string

	// GetLLM returns the language model instance.
	GetLLM() model.Model

	// ResolveInstructions renders the system instructions for one request.
	ResolveInstructions(ctx context.Context, vars map[string]any) (string, error)

	// GetTools returns the registry of callable tools.
	GetTools() *tool.Registry
}

// AgentTool is implemented by tools that run another agent. The dispatcher
// uses it to walk the agent graph for cycles before the first model call.
type AgentTool interface {
	tool.Tool
	Agent() FlowAgent
}

// Request is one single-turn dispatch input.
type Request struct {
	Message string
	// Schema requests structured output. Nil means free text.
	Schema output.Schema
	// Variables feed instruction templates.
	Variables map[string]any
}

// Result is the outcome of a dispatch. When a schema was requested and
// decoding failed, Decoded is false, Value is nil and Text still holds the
// model's final answer.
type Result struct {
	Text       string
	Value      any
	Decoded    bool
	Transcript []core.Content
	Iterations int
	Usage      model.TokenUsage
}

// ToolDefinitions converts the registry into model tool definitions in
// registration order.
func ToolDefinitions(r *tool.Registry) []model.ToolDefinition {
	tools := r.Tools()
	if len(tools) == 0 {
		return nil
	}
	defs := make([]model.ToolDefinition, 0, len(tools))
	for _, t := range tools {
		defs = append(defs, model.ToolDefinition{
			Type: "function",
			Function: model.FunctionDefinition{
				Name:        t.Name(),
				Description: t.Description(),
				Parameters:  t.Parameters(),
			},
		})
	}
	return defs
}
