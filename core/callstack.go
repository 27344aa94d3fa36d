package core

import "context"

type callStackKey struct{}

// frame identifies one agent on the call stack.
type frame struct {
	id   string
	name string
}

// EnterAgent returns a child context with the agent pushed onto the call
// stack. If the agent id is already present the stack is left untouched and a
// *CycleDetectedError is returned.
func EnterAgent(ctx context.Context, id, name string) (context.Context, error) {
	stack, _ := ctx.Value(callStackKey{}).([]frame)
	for _, f := range stack {
		if f.id == id {
			names := make([]string, 0, len(stack)+1)
			for _, g := range stack {
				names = append(names, g.name)
			}
			return ctx, &CycleDetectedError{Stack: append(names, name)}
		}
	}

	// Copy so sibling branches never share a backing array.
	next := make([]frame, len(stack), len(stack)+1)
	copy(next, stack)
	next = append(next, frame{id: id, name: name})
	return context.WithValue(ctx, callStackKey{}, next), nil
}

// CallStack returns the agent names currently on the stack, outermost first.
func CallStack(ctx context.Context) []string {
	stack, _ := ctx.Value(callStackKey{}).([]frame)
	names := make([]string, 0, len(stack))
	for _, f := range stack {
		names = append(names, f.name)
	}
	return names
}

// Depth returns the number of agents on the call stack.
func Depth(ctx context.Context) int {
	stack, _ := ctx.Value(callStackKey{}).([]frame)
	return len(stack)
}
