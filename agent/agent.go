package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/hupe1980/toolagent/core"
	"github.com/hupe1980/toolagent/flow"
	"github.com/hupe1980/toolagent/logging"
	"github.com/hupe1980/toolagent/model"
	"github.com/hupe1980/toolagent/output"
	"github.com/hupe1980/toolagent/tool"
)

// Options configures an Agent.
//
// Use functional options with New to override defaults.
type Options struct {
	Description string
	Instruction Instruction
	Tools       []tool.Tool
	// MaxIterations bounds model round-trips per request (default 10).
	MaxIterations int
	// MaxParallelTools bounds concurrent tool calls in one round (0 = unbounded).
	MaxParallelTools int
	Logger           logging.Logger
}

// Agent binds a model, instructions and a tool registry. Each Run is an
// independent single-turn request; the agent keeps no conversation state, so
// concurrent Runs are safe.
type Agent struct {
	id          string
	name        string
	description string
	llm         model.Model
	instruction Instruction
	tools       *tool.Registry
	dispatcher  *flow.Dispatcher
	logger      logging.Logger
}

// New creates an agent. It fails with *core.ConfigurationError for an empty
// name, a missing model or a negative bound, and with the registry error when
// an initial tool cannot be registered.
func New(name string, llm model.Model, optFns ...func(o *Options)) (*Agent, error) {
	opts := Options{
		Description:   fmt.Sprintf("Agent %s", name),
		Instruction:   NewInstructionFromText(fmt.Sprintf("You are %s, a helpful AI assistant.", name)),
		MaxIterations: flow.DefaultMaxIterations,
		Logger:        logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if strings.TrimSpace(name) == "" {
		return nil, &core.ConfigurationError{Field: "name", Message: "agent name must not be empty"}
	}
	if llm == nil {
		return nil, &core.ConfigurationError{Field: "model", Message: fmt.Sprintf("agent %q has no model", name)}
	}
	if opts.MaxIterations < 0 {
		return nil, &core.ConfigurationError{Field: "max_iterations", Message: "must not be negative"}
	}
	if opts.MaxParallelTools < 0 {
		return nil, &core.ConfigurationError{Field: "max_parallel_tools", Message: "must not be negative"}
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	registry := tool.NewRegistry()
	for _, t := range opts.Tools {
		if err := registry.Register(t); err != nil {
			return nil, fmt.Errorf("agent %q: %w", name, err)
		}
	}

	if sl, ok := opts.Logger.(*logging.StructuredLogger); ok {
		opts.Logger = sl.WithComponent("agent").WithContext("agent", name)
	}

	return &Agent{
		id:          uuid.NewString(),
		name:        name,
		description: opts.Description,
		llm:         llm,
		instruction: opts.Instruction,
		tools:       registry,
		dispatcher: flow.NewDispatcher(func(o *flow.Options) {
			o.MaxIterations = opts.MaxIterations
			o.MaxParallel = opts.MaxParallelTools
			o.Logger = opts.Logger
		}),
		logger: opts.Logger,
	}, nil
}

// Name returns the human-readable name for this agent.
func (a *Agent) Name() string { return a.name }

// Description returns a detailed description of this agent's purpose.
func (a *Agent) Description() string { return a.description }

// RegisterTool adds t to the agent's registry. Registration is append-only;
// a taken name fails with core.ErrDuplicateName.
func (a *Agent) RegisterTool(t tool.Tool) error {
	if err := a.tools.Register(t); err != nil {
		return fmt.Errorf("agent %q: %w", a.name, err)
	}
	a.logger.Debug("agent.tool.registered", "agent", a.name, "tool", t.Name())
	return nil
}

// RegisterTools registers each tool in order and stops at the first failure.
func (a *Agent) RegisterTools(tools ...tool.Tool) error {
	for _, t := range tools {
		if err := a.RegisterTool(t); err != nil {
			return err
		}
	}
	return nil
}

// ToolNames returns the registered tool names in registration order.
func (a *Agent) ToolNames() []string { return a.tools.Names() }

// FlowAgent Interface Implementation

// ID returns the process-unique identity used for cycle detection.
func (a *Agent) ID() string { return a.id }

// GetName returns the agent's display name.
func (a *Agent) GetName() string { return a.name }

// GetLLM returns the language model instance.
func (a *Agent) GetLLM() model.Model { return a.llm }

// GetTools returns the agent's tool registry.
func (a *Agent) GetTools() *tool.Registry { return a.tools }

// ResolveInstructions produces the system prompt for one request.
func (a *Agent) ResolveInstructions(ctx context.Context, vars map[string]any) (string, error) {
	return a.instruction.Resolve(ctx, vars)
}

// RunOptions carries per-request settings.
type RunOptions struct {
	Schema    output.Schema
	Variables map[string]any
}

// WithSchema requests structured output decoded against s.
func WithSchema(s output.Schema) func(o *RunOptions) {
	return func(o *RunOptions) { o.Schema = s }
}

// WithVariables supplies instruction template variables.
func WithVariables(vars map[string]any) func(o *RunOptions) {
	return func(o *RunOptions) { o.Variables = vars }
}

// Run sends message to the model, executes requested tools until the model
// answers and returns the result. See flow.Dispatcher.Run for the error
// contract.
func (a *Agent) Run(ctx context.Context, message string, optFns ...func(o *RunOptions)) (*flow.Result, error) {
	var opts RunOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	a.logger.Debug("agent.run.start", "agent", a.name, "structured", opts.Schema != nil)

	return a.dispatcher.Run(ctx, a, flow.Request{
		Message:   message,
		Schema:    opts.Schema,
		Variables: opts.Variables,
	})
}

// RunInto runs a structured request and decodes the value into dst. It
// returns the result together with false when the answer could not be
// decoded against s.
func (a *Agent) RunInto(ctx context.Context, message string, s output.Schema, dst any, optFns ...func(o *RunOptions)) (*flow.Result, bool, error) {
	res, err := a.Run(ctx, message, append(optFns, WithSchema(s))...)
	if err != nil {
		return nil, false, err
	}
	if !res.Decoded {
		return res, false, nil
	}
	if err := output.Into(res.Value, dst); err != nil {
		return res, false, nil
	}
	return res, true, nil
}
