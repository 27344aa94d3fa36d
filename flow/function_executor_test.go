package flow

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/hupe1980/toolagent/core"
	"github.com/hupe1980/toolagent/logging"
	"github.com/hupe1980/toolagent/model"
	"github.com/hupe1980/toolagent/tool"
)

type teMockTool struct {
	name     string
	delay    time.Duration
	result   any
	err      error
	panicMsg any
	calls    atomic.Int32
}

func (mt *teMockTool) Name() string               { return mt.name }
func (mt *teMockTool) Description() string        { return "mock tool" }
func (mt *teMockTool) Parameters() map[string]any { return map[string]any{"type": "object"} }
func (mt *teMockTool) Call(ctx context.Context, _ map[string]any) (any, error) {
	mt.calls.Add(1)
	if mt.delay > 0 {
		select {
		case <-time.After(mt.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if mt.panicMsg != nil {
		panic(mt.panicMsg)
	}
	return mt.result, mt.err
}

type teAgent struct {
	id           string
	name         string
	llm          model.Model
	instructions string
	tools        *tool.Registry
}

func newTEAgent(name string, llm model.Model, tools ...tool.Tool) *teAgent {
	return &teAgent{id: uuid.NewString(), name: name, llm: llm, tools: tool.NewRegistry(tools...)}
}

func (a *teAgent) ID() string          { return a.id }
func (a *teAgent) GetName() string     { return a.name }
func (a *teAgent) GetLLM() model.Model { return a.llm }
func (a *teAgent) ResolveInstructions(context.Context, map[string]any) (string, error) {
	return a.instructions, nil
}
func (a *teAgent) GetTools() *tool.Registry { return a.tools }

func TestFunctionExecutor_Single(t *testing.T) {
	a := newTEAgent("A", nil, &teMockTool{name: "one", result: 42})
	te := NewParallelFunctionExecutor(FunctionExecutorConfig{MaxParallel: 4})

	resps, err := te.Execute(context.Background(), a, []core.FunctionCall{{ID: "1", Name: "one", Arguments: "{}"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resps) != 1 {
		t.Fatalf("expected 1 response got %d", len(resps))
	}
	if resps[0].ID != "1" || resps[0].Response != "42" {
		t.Fatalf("unexpected response: %+v", resps[0])
	}
}

func TestFunctionExecutor_EmptyBatch(t *testing.T) {
	te := NewParallelFunctionExecutor(FunctionExecutorConfig{})
	resps, err := te.Execute(context.Background(), newTEAgent("A", nil), nil)
	if err != nil || resps != nil {
		t.Fatalf("expected nil, nil got %v, %v", resps, err)
	}
}

func TestFunctionExecutor_ParallelKeepsCallOrder(t *testing.T) {
	a := newTEAgent("A", nil,
		&teMockTool{name: "slow", delay: 60 * time.Millisecond, result: "s"},
		&teMockTool{name: "fast", delay: 5 * time.Millisecond, result: "f"},
	)
	te := NewParallelFunctionExecutor(FunctionExecutorConfig{MaxParallel: 2})
	fnCalls := []core.FunctionCall{{ID: "1", Name: "slow", Arguments: "{}"}, {ID: "2", Name: "fast", Arguments: "{}"}}

	start := time.Now()
	resps, err := te.Execute(context.Background(), a, fnCalls)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resps[0].Name != "slow" || resps[1].Name != "fast" {
		t.Fatalf("order not preserved: %+v", resps)
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Fatalf("expected parallel execution, elapsed=%v", elapsed)
	}
}

func TestFunctionExecutor_MaxParallelOne(t *testing.T) {
	a := newTEAgent("A", nil,
		&teMockTool{name: "t1", delay: 30 * time.Millisecond, result: 1},
		&teMockTool{name: "t2", delay: 30 * time.Millisecond, result: 2},
	)
	te := NewParallelFunctionExecutor(FunctionExecutorConfig{MaxParallel: 1})
	fnCalls := []core.FunctionCall{{ID: "1", Name: "t1", Arguments: "{}"}, {ID: "2", Name: "t2", Arguments: "{}"}}

	start := time.Now()
	resps, err := te.Execute(context.Background(), a, fnCalls)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resps[0].Response != "1" || resps[1].Response != "2" {
		t.Fatalf("unexpected responses: %+v", resps)
	}
	if elapsed := time.Since(start); elapsed < 55*time.Millisecond {
		t.Fatalf("expected serialized execution, elapsed=%v", elapsed)
	}
}

func TestFunctionExecutor_ErrorIsolation(t *testing.T) {
	a := newTEAgent("A", nil,
		&teMockTool{name: "ok", result: "fine"},
		&teMockTool{name: "bad", err: errors.New("boom")},
	)
	te := NewParallelFunctionExecutor(FunctionExecutorConfig{MaxParallel: 2})
	fnCalls := []core.FunctionCall{
		{ID: "1", Name: "ok", Arguments: "{}"},
		{ID: "2", Name: "bad", Arguments: "{}"},
		{ID: "3", Name: "missing", Arguments: "{}"},
	}

	resps, err := te.Execute(context.Background(), a, fnCalls)
	if err != nil {
		t.Fatalf("tool errors must not be fatal: %v", err)
	}
	if resps[0].Error != "" || resps[0].Response != "fine" {
		t.Fatalf("healthy call affected: %+v", resps[0])
	}
	if !strings.Contains(resps[1].Error, "boom") {
		t.Fatalf("expected boom error got %q", resps[1].Error)
	}
	if !strings.Contains(resps[2].Error, "NOT_FOUND") {
		t.Fatalf("expected NOT_FOUND error got %q", resps[2].Error)
	}
}

func TestFunctionExecutor_PanicRecovery(t *testing.T) {
	a := newTEAgent("A", nil, &teMockTool{name: "panic", panicMsg: "boom"})
	te := NewParallelFunctionExecutor(FunctionExecutorConfig{})

	resps, err := te.Execute(context.Background(), a, []core.FunctionCall{{ID: "1", Name: "panic", Arguments: "{}"}})
	if err != nil {
		t.Fatalf("panic must be reported as a tool error: %v", err)
	}
	if !strings.Contains(resps[0].Error, "panic recovered: boom") {
		t.Fatalf("expected panic converted to error got %q", resps[0].Error)
	}
}

func TestFunctionExecutor_FatalStopsSiblings(t *testing.T) {
	cycle := &core.CycleDetectedError{Stack: []string{"A", "B", "A"}}
	slow := &teMockTool{name: "slow", delay: 2 * time.Second, result: "late"}
	a := newTEAgent("A", nil, slow, &teMockTool{name: "nested", err: cycle})
	te := NewParallelFunctionExecutor(FunctionExecutorConfig{})
	fnCalls := []core.FunctionCall{{ID: "1", Name: "slow", Arguments: "{}"}, {ID: "2", Name: "nested", Arguments: "{}"}}

	start := time.Now()
	_, err := te.Execute(context.Background(), a, fnCalls)

	var cycleErr *core.CycleDetectedError
	if !errors.As(err, &cycleErr) {
		t.Fatalf("expected cycle error got %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("siblings were not cancelled, elapsed=%v", elapsed)
	}
}

func TestFunctionExecutor_ParentCancelled(t *testing.T) {
	a := newTEAgent("A", nil,
		&teMockTool{name: "t1", delay: time.Second},
		&teMockTool{name: "t2", delay: time.Second},
	)
	te := NewParallelFunctionExecutor(FunctionExecutorConfig{})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := te.Execute(ctx, a, []core.FunctionCall{{ID: "1", Name: "t1"}, {ID: "2", Name: "t2"}})
	if !errors.Is(err, core.ErrCancelled) {
		t.Fatalf("expected cancellation got %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline cause got %v", err)
	}
}

func TestFunctionExecutor_ToolTimeoutIsFedBack(t *testing.T) {
	slow := &teMockTool{name: "slow", err: fmt.Errorf("backend: %w", context.DeadlineExceeded)}
	ok := &teMockTool{name: "ok", result: "fine"}
	a := newTEAgent("A", nil, slow, ok)
	te := NewParallelFunctionExecutor(FunctionExecutorConfig{})

	resps, err := te.Execute(context.Background(), a, []core.FunctionCall{
		{ID: "1", Name: "slow", Arguments: "{}"},
		{ID: "2", Name: "ok", Arguments: "{}"},
	})
	if err != nil {
		t.Fatalf("a tool's own timeout must not abort the round: %v", err)
	}
	if !strings.Contains(resps[0].Error, "deadline exceeded") {
		t.Fatalf("expected timeout error fed back, got %+v", resps[0])
	}
	if resps[1].Response != "fine" {
		t.Fatalf("sibling result missing: %+v", resps[1])
	}
}

func TestFunctionExecutor_LogsStartAtDebug(t *testing.T) {
	a := newTEAgent("A", nil, &teMockTool{name: "one", result: 1})

	for _, tc := range []struct {
		level logging.LogLevel
		want  bool
	}{
		{logging.LogLevelDebug, true},
		{logging.LogLevelInfo, false},
	} {
		var buf bytes.Buffer
		logger := logging.NewLogger(&logging.LoggerConfig{Level: tc.level, Format: "json", Output: &buf})
		te := NewParallelFunctionExecutor(FunctionExecutorConfig{Logger: logger})

		if _, err := te.Execute(context.Background(), a, []core.FunctionCall{{ID: "c1", Name: "one", Arguments: "{}"}}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := strings.Contains(buf.String(), "flow.function.start"); got != tc.want {
			t.Fatalf("level %v: start event logged=%v, want %v\n%s", tc.level, got, tc.want, buf.String())
		}
		if !strings.Contains(buf.String(), "tool.call.completed") {
			t.Fatalf("level %v: missing completion event\n%s", tc.level, buf.String())
		}
	}
}

func TestRenderResult(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{"text", "text"},
		{[]byte("raw"), "raw"},
		{map[string]any{"a": 1}, `{"a":1}`},
		{3.5, "3.5"},
		{time.Second, "1s"},
	}
	for _, tt := range tests {
		if got := renderResult(tt.in); got != tt.want {
			t.Fatalf("renderResult(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
