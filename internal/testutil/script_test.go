package testutil

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/toolagent/core"
	"github.com/hupe1980/toolagent/model"
)

func TestScript(t *testing.T) {
	llm := NewScript().
		ToolCall("get_weather", map[string]any{"location": "Karachi"}).
		EchoResults().
		Build()

	resp, err := llm.Generate(context.Background(), model.Request{Contents: []core.Content{core.NewUserText("hi")}})
	require.NoError(t, err)
	calls := resp.Content.FunctionCalls()
	require.Len(t, calls, 1)
	assert.JSONEq(t, `{"location":"Karachi"}`, calls[0].Arguments)

	resp, err = llm.Generate(context.Background(), model.Request{Contents: []core.Content{
		core.NewToolResponses([]core.FunctionResponse{{Name: "get_weather", Response: "sunny"}, {Name: "x", Error: "boom"}}),
	}})
	require.NoError(t, err)
	assert.Equal(t, "sunny\nerror: boom", resp.Content.Text())

	_, err = llm.Generate(context.Background(), model.Request{})
	assert.ErrorIs(t, err, core.ErrModel)
	assert.Len(t, llm.Calls(), 3)
}

func TestScript_FailAndName(t *testing.T) {
	boom := errors.New("boom")
	llm := NewScript().Name("flaky").Fail(boom).Reply("ok").Build()

	_, err := llm.Generate(context.Background(), model.Request{})
	assert.ErrorIs(t, err, boom)

	resp, err := llm.Generate(context.Background(), model.Request{})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Content.Text())
	assert.Equal(t, "flaky", llm.Info().Name)
}

func TestCall(t *testing.T) {
	assert.Equal(t, "{}", Call("a", nil).Arguments)
	assert.Equal(t, `{"x":1}`, Call("a", `{"x":1}`).Arguments)
	assert.Panics(t, func() { Call("a", func() {}) })
}
