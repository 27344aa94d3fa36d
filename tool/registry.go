package tool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/hupe1980/toolagent/core"
	"github.com/hupe1980/toolagent/schema"
)

type entry struct {
	tool   Tool
	schema *schema.Schema
}

// Registry is an append-only set of uniquely named tools. Parameter schemas
// are compiled once at registration. A Registry is safe for concurrent use;
// registered tools are never replaced or removed.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]entry
	order   []string
}

// NewRegistry creates a registry holding the given tools. It panics if any
// tool fails to register, which only happens for programming errors such as
// duplicate names.
func NewRegistry(tools ...Tool) *Registry {
	r := &Registry{entries: make(map[string]entry)}
	for _, t := range tools {
		if err := r.Register(t); err != nil {
			panic(err)
		}
	}
	return r
}

// Register adds t under its name. It fails with core.ErrDuplicateName when the
// name is taken and with core.ErrInvalidSchema when the parameter schema does
// not compile.
func (r *Registry) Register(t Tool) error {
	if t == nil {
		return fmt.Errorf("%w: nil tool", core.ErrTool)
	}

	name := t.Name()
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: tool name must not be empty", core.ErrTool)
	}

	compiled, err := schema.Compile(t.Parameters())
	if err != nil {
		return fmt.Errorf("tool %q: %w", name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.entries == nil {
		r.entries = make(map[string]entry)
	}
	if _, exists := r.entries[name]; exists {
		return fmt.Errorf("%w: %q", core.ErrDuplicateName, name)
	}

	r.entries[name] = entry{tool: t, schema: compiled}
	r.order = append(r.order, name)

	return nil
}

// Resolve returns the tool registered under name or core.ErrNotFound.
func (r *Registry) Resolve(name string) (Tool, error) {
	e, ok := r.lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", core.ErrNotFound, name)
	}
	return e.tool, nil
}

// Tools returns the registered tools in registration order.
func (r *Registry) Tools() []Tool {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Tool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.entries[name].tool)
	}
	return out
}

// Names returns the registered tool names in registration order.
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]string(nil), r.order...)
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.order)
}

// Invoke resolves name, decodes the raw JSON arguments, validates them against
// the compiled parameter schema and calls the tool.
//
// Recoverable failures are returned as *ToolError:
//
//	NOT_FOUND         -> unknown tool (wraps core.ErrNotFound)
//	VALIDATION_ERROR  -> malformed JSON or schema mismatch (wraps core.ErrTypeMismatch)
//	EXECUTION_ERROR   -> the tool returned an error (wraps core.ErrToolExecution)
//
// A *ToolError returned by the tool itself is forwarded with its code kept.
// Fatal errors (cycles, cancellation) are returned unchanged so the
// dispatcher can abort.
func (r *Registry) Invoke(ctx context.Context, name, rawArgs string) (any, error) {
	e, ok := r.lookup(name)
	if !ok {
		return nil, &ToolError{
			Tool:    name,
			Message: fmt.Sprintf("tool %q is not registered", name),
			Code:    CodeNotFound,
			Err:     core.ErrNotFound,
		}
	}

	args := map[string]any{}
	if strings.TrimSpace(rawArgs) != "" {
		if err := json.Unmarshal([]byte(rawArgs), &args); err != nil {
			return nil, &ToolError{
				Tool:    name,
				Message: fmt.Sprintf("arguments are not a JSON object: %v", err),
				Code:    CodeValidationError,
				Err:     fmt.Errorf("%w: %w", core.ErrTypeMismatch, err),
			}
		}
		if args == nil {
			args = map[string]any{}
		}
	}

	if err := e.schema.Validate(args); err != nil {
		return nil, &ToolError{
			Tool:    name,
			Message: fmt.Sprintf("parameter validation failed: %v", err),
			Code:    CodeValidationError,
			Details: err,
			Err:     fmt.Errorf("%w: %w", core.ErrTypeMismatch, err),
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, core.NewCancelledError(err)
	}

	result, err := e.tool.Call(ctx, args)
	if err != nil {
		if errors.Is(err, core.ErrDispatch) {
			return nil, err
		}
		// Context errors only abort when the dispatch itself was cancelled; a
		// tool's private timeout is an ordinary failure.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, core.NewCancelledError(ctxErr)
		}

		var toolErr *ToolError
		if errors.As(err, &toolErr) {
			if toolErr.Err == nil {
				toolErr.Err = core.ErrToolExecution
			}
			return nil, toolErr
		}

		return nil, &ToolError{
			Tool:    name,
			Message: err.Error(),
			Code:    CodeExecutionError,
			Err:     fmt.Errorf("%w: %w", core.ErrToolExecution, err),
		}
	}

	return result, nil
}

func (r *Registry) lookup(name string) (entry, bool) {
	if r == nil {
		return entry{}, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[name]
	return e, ok
}
