package flow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/hupe1980/toolagent/core"
	"github.com/hupe1980/toolagent/logging"
)

// FunctionExecutor executes a batch of function/tool calls possibly in parallel.
// Implementations must:
//   - Respect ctx cancellation
//   - Never panic (recover internally and report a tool error)
//   - Return exactly one FunctionResponse per incoming FunctionCall, in call order
//   - Return a non-nil error only for fatal failures (cycle, cancellation)
type FunctionExecutor interface {
	Execute(ctx context.Context, agent FlowAgent, fnCalls []core.FunctionCall) ([]core.FunctionResponse, error)
}

// FunctionExecutorConfig configures the default parallel executor.
type FunctionExecutorConfig struct {
	MaxParallel int // 0 or <1 => no explicit limit (len(fnCalls))
	Logger      logging.Logger
}

// parallelFunctionExecutor is the default implementation.
type parallelFunctionExecutor struct {
	cfg FunctionExecutorConfig
}

// NewParallelFunctionExecutor constructs a new executor with the given config.
func NewParallelFunctionExecutor(cfg FunctionExecutorConfig) FunctionExecutor {
	if cfg.Logger == nil {
		cfg.Logger = logging.NoOpLogger{}
	}
	return &parallelFunctionExecutor{cfg: cfg}
}

type callOutcome struct {
	response core.FunctionResponse
	fatal    error
}

func (e *parallelFunctionExecutor) Execute(
	ctx context.Context,
	agent FlowAgent,
	fnCalls []core.FunctionCall,
) ([]core.FunctionResponse, error) {
	n := len(fnCalls)
	if n == 0 {
		return nil, nil
	}

	// A fatal failure in one call stops its siblings.
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	outcomes := make([]callOutcome, n)

	// Fast path: single call, execute inline.
	if n == 1 {
		outcomes[0] = e.executeOne(runCtx, agent, fnCalls[0])
	} else {
		e.executeParallel(runCtx, cancel, agent, fnCalls, outcomes)
	}

	if err := ctx.Err(); err != nil {
		return nil, core.NewCancelledError(err)
	}

	// Siblings stopped by a fatal call report cancellation; surface the cause.
	var fatal error
	responses := make([]core.FunctionResponse, n)
	for i, o := range outcomes {
		if o.fatal != nil && (fatal == nil || errors.Is(fatal, core.ErrCancelled)) {
			fatal = o.fatal
		}
		responses[i] = o.response
	}
	if fatal != nil {
		return nil, fatal
	}
	return responses, nil
}

func (e *parallelFunctionExecutor) executeParallel(
	ctx context.Context,
	cancel context.CancelFunc,
	agent FlowAgent,
	fnCalls []core.FunctionCall,
	outcomes []callOutcome,
) {
	n := len(fnCalls)
	maxPar := e.cfg.MaxParallel
	if maxPar <= 0 || maxPar > n {
		maxPar = n
	}

	var wg sync.WaitGroup
	sem := make(chan struct{}, maxPar)

	batchStart := time.Now()
loop:
	for i := range fnCalls {
		select {
		case <-ctx.Done():
			break loop
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(idx int, fc core.FunctionCall) {
			defer wg.Done()
			defer func() { <-sem }()

			// Each goroutine writes only its own slot.
			outcomes[idx] = e.executeOne(ctx, agent, fc)
			if outcomes[idx].fatal != nil {
				cancel()
			}
		}(i, fnCalls[i])
	}

	wg.Wait()

	e.cfg.Logger.Debug(
		"flow.functions.batch.complete",
		"agent", agent.GetName(),
		"count", n,
		"parallelism", maxPar,
		"duration_ms", time.Since(batchStart).Milliseconds(),
	)
}

func (e *parallelFunctionExecutor) executeOne(ctx context.Context, agent FlowAgent, fc core.FunctionCall) callOutcome {
	logger := e.cfg.Logger
	logger.Debug("flow.function.start", "agent", agent.GetName(), "function", fc.Name, "function_call_id", fc.ID)

	if err := ctx.Err(); err != nil {
		return callOutcome{fatal: core.NewCancelledError(err)}
	}

	start := time.Now()
	var (
		result any
		err    error
	)
	func() { // panic safety
		defer func() {
			if r := recover(); r != nil {
				err = panicError(r)
				logger.Error("flow.function.panic", "agent", agent.GetName(), "function", fc.Name, "recover", r)
			}
		}()
		result, err = agent.GetTools().Invoke(ctx, fc.Name, fc.Arguments)
	}()
	dur := time.Since(start)

	if tl, ok := logger.(toolCallLogger); ok {
		tl.LogToolCall(fc.Name, dur, err)
	} else {
		logger.Info(
			"flow.function.executed",
			"agent", agent.GetName(),
			"function", fc.Name,
			"duration_ms", dur.Milliseconds(),
			"error", err != nil,
		)
	}

	resp := core.FunctionResponse{ID: fc.ID, Name: fc.Name}
	if err != nil {
		// The registry has already mapped dispatch cancellation to
		// *core.CancelledError; everything else goes back to the model.
		if core.IsFatal(err) {
			return callOutcome{fatal: err}
		}
		resp.Error = err.Error()
		return callOutcome{response: resp}
	}

	resp.Response = renderResult(result)
	return callOutcome{response: resp}
}

// renderResult turns a tool's return value into the text sent to the model.
func renderResult(v any) string {
	switch r := v.(type) {
	case nil:
		return ""
	case string:
		return r
	case []byte:
		return string(r)
	case fmt.Stringer:
		return r.String()
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}

// panicError converts a recovered panic value to an error without pulling external dependencies.
func panicError(r any) error { return &panicErr{val: r, stack: debug.Stack()} }

type panicErr struct {
	val   any
	stack []byte
}

func (p *panicErr) Error() string { return fmt.Sprintf("panic recovered: %v", p.val) }

// toolCallLogger is implemented by loggers with a dedicated tool call event
// (logging.StructuredLogger).
type toolCallLogger interface {
	LogToolCall(tool string, dur time.Duration, err error)
}
