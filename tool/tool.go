// Package tool implements the capabilities an agent may invoke on the model's
// behalf: named, schema described functions (local Go functions, remote tool
// servers or other agents) collected in an append-only Registry that
// validates arguments before every call.
package tool

import (
	"context"
	"fmt"
)

// Tool defines the single invocable capability exposed to models.
//
// Plain functions (FunctionTool), remote tools and agents (agent.AsTool) all
// satisfy it, so the dispatcher never needs to know what sits behind a name.
//
// Tool implementations should:
//   - Provide clear, descriptive names and descriptions
//   - Define a JSON schema for their parameters
//   - Be safe for concurrent use, since calls within one round run in parallel
type Tool interface {
	// Name returns the unique identifier for this tool.
	// Names should follow function naming conventions (snake_case recommended).
	Name() string

	// Description returns a human-readable description of what this tool does.
	// It is provided to the model to help it decide when to use the tool.
	Description() string

	// Parameters returns a JSON schema describing the expected input object.
	Parameters() map[string]any

	// Call executes the tool with decoded, already validated arguments.
	Call(ctx context.Context, args map[string]any) (any, error)
}

// Error codes carried by ToolError.
const (
	CodeNotFound        = "NOT_FOUND"
	CodeValidationError = "VALIDATION_ERROR"
	CodeExecutionError  = "EXECUTION_ERROR"
)

// ToolError represents errors that occur while resolving, validating or
// executing a tool. It is fed back to the model as a tool-error result rather
// than aborting the dispatch.
type ToolError struct {
	Tool    string `json:"tool"`              // Name of the tool that failed
	Message string `json:"message"`           // Error message
	Code    string `json:"code"`              // Error code for categorization
	Details any    `json:"details,omitempty"` // Additional error details
	Err     error  `json:"-"`                 // Underlying cause, matched by errors.Is
}

func (e *ToolError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("tool error [%s] in %s: %s", e.Code, e.Tool, e.Message)
	}
	return fmt.Sprintf("tool error in %s: %s", e.Tool, e.Message)
}

func (e *ToolError) Unwrap() error { return e.Err }

// NewToolError creates a new ToolError with the specified details.
func NewToolError(tool, message, code string) *ToolError {
	return &ToolError{
		Tool:    tool,
		Message: message,
		Code:    code,
	}
}
