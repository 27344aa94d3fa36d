package agent

import (
	"context"
	"errors"
	"strings"

	"github.com/hupe1980/toolagent/core"
	"github.com/hupe1980/toolagent/flow"
	"github.com/hupe1980/toolagent/schema"
	"github.com/hupe1980/toolagent/tool"
)

// TaskParameter is the single argument of an agent tool.
const TaskParameter = "task"

// ToolOptions configures AsTool.
type ToolOptions struct {
	// Name defaults to the agent name mapped onto the function name alphabet.
	Name string
	// Description defaults to the agent description.
	Description string
	// TaskDescription describes the task argument to the calling model.
	TaskDescription string
}

// AgentTool exposes an agent as a tool. Calling it runs a full dispatch of
// the wrapped agent with the task as the user message and returns its final
// text.
type AgentTool struct {
	agent       *Agent
	name        string
	description string
	params      map[string]any
}

var _ flow.AgentTool = (*AgentTool)(nil)

// AsTool wraps the agent so another agent can call it.
func (a *Agent) AsTool(optFns ...func(o *ToolOptions)) *AgentTool {
	opts := ToolOptions{
		Name:            tool.SanitizeName(a.name),
		Description:     a.description,
		TaskDescription: "The task or question for the " + a.name + " agent",
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &AgentTool{
		agent:       a,
		name:        opts.Name,
		description: opts.Description,
		params:      schema.ObjectOf(schema.String(TaskParameter, opts.TaskDescription)),
	}
}

// Name implements tool.Tool.
func (t *AgentTool) Name() string { return t.name }

// Description implements tool.Tool.
func (t *AgentTool) Description() string { return t.description }

// Parameters implements tool.Tool.
func (t *AgentTool) Parameters() map[string]any { return t.params }

// Agent implements flow.AgentTool.
func (t *AgentTool) Agent() flow.FlowAgent { return t.agent }

// Call implements tool.Tool. Cycles and cancellation keep aborting the outer
// dispatch. An exhausted iteration limit of the inner agent becomes an
// ordinary tool failure the calling model can react to.
func (t *AgentTool) Call(ctx context.Context, args map[string]any) (any, error) {
	task := strings.TrimSpace(tool.Args(args).String(TaskParameter))

	res, err := t.agent.Run(ctx, task)
	if err != nil {
		var maxErr *core.MaxIterationsExceededError
		if errors.As(err, &maxErr) {
			return nil, &tool.ToolError{
				Tool:    t.name,
				Message: maxErr.Error(),
				Code:    tool.CodeExecutionError,
				Err:     core.ErrToolExecution,
			}
		}
		return nil, err
	}

	return res.Text, nil
}
