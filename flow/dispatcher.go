package flow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hupe1980/toolagent/core"
	"github.com/hupe1980/toolagent/logging"
	"github.com/hupe1980/toolagent/model"
	"github.com/hupe1980/toolagent/output"
)

// DefaultMaxIterations bounds model round-trips per dispatch.
const DefaultMaxIterations = 10

// Options configure a Dispatcher.
type Options struct {
	// MaxIterations is the maximum number of model round-trips. When the
	// model still requests tools in the last allowed round the dispatch fails
	// with *core.MaxIterationsExceededError.
	MaxIterations int
	// MaxParallel bounds concurrent tool calls within one round (0 = unbounded).
	MaxParallel int
	Logger      logging.Logger
	// Executor overrides the default parallel executor.
	Executor FunctionExecutor
}

// Dispatcher drives single-turn requests against an agent. It holds no
// per-request state and is safe for concurrent use.
type Dispatcher struct {
	opts     Options
	executor FunctionExecutor
}

// NewDispatcher creates a dispatcher.
func NewDispatcher(optFns ...func(o *Options)) *Dispatcher {
	opts := Options{
		MaxIterations: DefaultMaxIterations,
		Logger:        logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = DefaultMaxIterations
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	executor := opts.Executor
	if executor == nil {
		executor = NewParallelFunctionExecutor(FunctionExecutorConfig{
			MaxParallel: opts.MaxParallel,
			Logger:      opts.Logger,
		})
	}

	return &Dispatcher{opts: opts, executor: executor}
}

// MaxIterations returns the configured round-trip bound.
func (d *Dispatcher) MaxIterations() int { return d.opts.MaxIterations }

// Run dispatches req against agent.
//
// Only fatal failures are returned as errors: configuration problems,
// *core.CycleDetectedError, *core.MaxIterationsExceededError,
// *core.CancelledError and model transport failures (core.ErrModel). Tool
// failures are fed back to the model and never returned directly.
func (d *Dispatcher) Run(ctx context.Context, agent FlowAgent, req Request) (result *Result, err error) {
	start := time.Now()
	iterations := 0
	logger := d.opts.Logger

	defer func() {
		if dl, ok := logger.(dispatchLogger); ok {
			dl.LogDispatch(agent.GetName(), iterations, time.Since(start), err)
		} else if err != nil {
			logger.Error("flow.dispatch.failed", "agent", agent.GetName(), "iterations", iterations, "error", err.Error())
		} else {
			logger.Info("flow.dispatch.completed", "agent", agent.GetName(), "iterations", iterations, "duration_ms", time.Since(start).Milliseconds())
		}
	}()

	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, core.NewCancelledError(ctxErr)
	}

	ctx, err = core.EnterAgent(ctx, agent.ID(), agent.GetName())
	if err != nil {
		return nil, err
	}
	if err = CheckCycles(agent); err != nil {
		return nil, err
	}

	llm := agent.GetLLM()
	if llm == nil {
		return nil, &core.ConfigurationError{Field: "model", Message: fmt.Sprintf("agent %q has no model", agent.GetName())}
	}

	instructions, err := agent.ResolveInstructions(ctx, req.Variables)
	if err != nil {
		return nil, fmt.Errorf("agent %q: resolve instructions: %w", agent.GetName(), err)
	}

	modelReq := model.Request{
		Instructions: instructions,
		Tools:        ToolDefinitions(agent.GetTools()),
	}
	if req.Schema != nil {
		modelReq.ResponseFormat = &model.ResponseFormat{Name: req.Schema.Name(), Schema: req.Schema.JSONSchema()}
	}

	logger.Debug("flow.dispatch.start", "agent", agent.GetName(), "depth", core.Depth(ctx), "tools", len(modelReq.Tools), "structured", req.Schema != nil)

	transcript := []core.Content{core.NewUserText(req.Message)}
	var usage model.TokenUsage

	for {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, core.NewCancelledError(ctxErr)
		}

		iterations++
		modelReq.Contents = append([]core.Content(nil), transcript...)

		callStart := time.Now()
		resp, genErr := llm.Generate(ctx, modelReq)
		d.logModelCall(llm, resp, time.Since(callStart), genErr)
		if genErr != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, core.NewCancelledError(ctxErr)
			}
			if !errors.Is(genErr, core.ErrModel) {
				genErr = fmt.Errorf("%w: %w", core.ErrModel, genErr)
			}
			return nil, fmt.Errorf("agent %q: %w", agent.GetName(), genErr)
		}
		if resp == nil {
			return nil, fmt.Errorf("agent %q: %w: empty response", agent.GetName(), core.ErrModel)
		}
		usage.Add(resp.Usage)

		content := normalizeCalls(resp.Content)
		transcript = append(transcript, content)

		calls := content.FunctionCalls()
		if len(calls) == 0 {
			return finalize(content.Text(), req.Schema, transcript, iterations, usage), nil
		}

		if iterations >= d.opts.MaxIterations {
			return nil, &core.MaxIterationsExceededError{
				Agent:      agent.GetName(),
				Limit:      d.opts.MaxIterations,
				Transcript: transcript,
			}
		}

		logger.Debug("flow.dispatch.tool_round", "agent", agent.GetName(), "iteration", iterations, "calls", len(calls))

		responses, execErr := d.executor.Execute(ctx, agent, calls)
		if execErr != nil {
			if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(execErr, core.ErrCycleDetected) {
				return nil, core.NewCancelledError(ctxErr)
			}
			return nil, execErr
		}
		transcript = append(transcript, core.NewToolResponses(responses))
	}
}

func finalize(text string, schema output.Schema, transcript []core.Content, iterations int, usage model.TokenUsage) *Result {
	res := &Result{
		Text:       text,
		Transcript: transcript,
		Iterations: iterations,
		Usage:      usage,
	}
	if schema != nil {
		res.Value, res.Decoded = output.Decode(text, schema)
	}
	return res
}

// normalizeCalls returns content with the assistant role and an id on every
// function call. Some providers omit ids; responses are matched by them.
func normalizeCalls(c core.Content) core.Content {
	out := core.Content{Role: core.RoleAssistant, Parts: make([]core.Part, len(c.Parts))}
	for i, p := range c.Parts {
		if fc, ok := p.(core.FunctionCallPart); ok && fc.FunctionCall.ID == "" {
			fc.FunctionCall.ID = "call_" + uuid.NewString()
			p = fc
		}
		out.Parts[i] = p
	}
	return out
}

func (d *Dispatcher) logModelCall(llm model.Model, resp *model.Response, dur time.Duration, err error) {
	tokens := 0
	if resp != nil && resp.Usage != nil {
		tokens = resp.Usage.TotalTokens
	}
	if ml, ok := d.opts.Logger.(modelCallLogger); ok {
		ml.LogModelCall(llm.Info().Name, tokens, dur, err)
		return
	}
	d.opts.Logger.Debug("flow.model.call", "model", llm.Info().Name, "token_count", tokens, "duration_ms", dur.Milliseconds(), "error", err != nil)
}

// Optional logger upgrades implemented by logging.StructuredLogger.
type (
	dispatchLogger interface {
		LogDispatch(agent string, iterations int, dur time.Duration, err error)
	}
	modelCallLogger interface {
		LogModelCall(model string, tokens int, dur time.Duration, err error)
	}
)
