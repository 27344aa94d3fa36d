package testutil

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/hupe1980/toolagent/core"
	"github.com/hupe1980/toolagent/model"
)

// Step produces the model response for one round-trip.
type Step func(req model.Request) (*model.Response, error)

// ScriptBuilder provides a fluent helper for scripting model round-trips.
// Example:
//
//	llm := NewScript().ToolCall("get_weather", map[string]any{"location": "Karachi"}).EchoResults().Build()
//
// Round-trip n is answered by step n; once the script is exhausted every
// further call fails with core.ErrModel.
type ScriptBuilder struct {
	name  string
	steps []Step
}

// NewScript creates a builder with model name "scripted".
func NewScript() *ScriptBuilder { return &ScriptBuilder{name: "scripted"} }

// Name overrides the reported model name (chainable).
func (b *ScriptBuilder) Name(n string) *ScriptBuilder { b.name = n; return b }

// Step appends a custom step (chainable).
func (b *ScriptBuilder) Step(s Step) *ScriptBuilder { b.steps = append(b.steps, s); return b }

// Reply appends a plain text answer (chainable).
func (b *ScriptBuilder) Reply(text string) *ScriptBuilder {
	return b.Step(func(model.Request) (*model.Response, error) { return model.NewTextResponse(text), nil })
}

// ToolCall appends a round requesting a single tool call. args is encoded as
// JSON unless it already is a string (chainable).
func (b *ScriptBuilder) ToolCall(name string, args any) *ScriptBuilder {
	return b.ToolCalls(Call(name, args))
}

// ToolCalls appends a round requesting several tool calls at once (chainable).
func (b *ScriptBuilder) ToolCalls(calls ...core.FunctionCall) *ScriptBuilder {
	return b.Step(func(model.Request) (*model.Response, error) { return model.NewToolCallResponse(calls...), nil })
}

// EchoResults appends an answer made of the tool results of the previous
// round joined by newlines (chainable).
func (b *ScriptBuilder) EchoResults() *ScriptBuilder {
	return b.Step(func(req model.Request) (*model.Response, error) {
		if len(req.Contents) == 0 {
			return model.NewTextResponse(""), nil
		}
		last := req.Contents[len(req.Contents)-1]
		texts := make([]string, 0, len(last.Parts))
		for _, r := range last.FunctionResponses() {
			texts = append(texts, r.Text())
		}
		return model.NewTextResponse(strings.Join(texts, "\n")), nil
	})
}

// Fail appends a round that fails with err (chainable).
func (b *ScriptBuilder) Fail(err error) *ScriptBuilder {
	return b.Step(func(model.Request) (*model.Response, error) { return nil, err })
}

// Build returns a MockModel playing the script. The model is safe for
// concurrent use but the script is shared, so concurrent dispatches consume
// steps in arrival order.
func (b *ScriptBuilder) Build() *model.MockModel {
	steps := append([]Step(nil), b.steps...)
	var (
		mu   sync.Mutex
		next int
	)
	return model.NewMockModel(b.name, "test").WithHandler(func(_ context.Context, req model.Request) (*model.Response, error) {
		mu.Lock()
		i := next
		next++
		mu.Unlock()

		if i >= len(steps) {
			return nil, fmt.Errorf("%w: script exhausted after %d steps", core.ErrModel, len(steps))
		}
		return steps[i](req)
	})
}

// Call builds a function call with a JSON-encoded argument object and an
// empty id, which the dispatcher fills in.
func Call(name string, args any) core.FunctionCall {
	var raw string
	switch a := args.(type) {
	case nil:
		raw = "{}"
	case string:
		raw = a
	default:
		b, err := json.Marshal(a)
		if err != nil {
			panic(fmt.Sprintf("testutil: encode arguments for %s: %v", name, err))
		}
		raw = string(b)
	}
	return core.FunctionCall{Name: name, Arguments: raw}
}
