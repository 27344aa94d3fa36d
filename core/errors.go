package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors. Use errors.Is to classify failures returned by any
// toolagent package.
var (
	// ErrConfiguration indicates missing or invalid configuration. Fatal, raised
	// before any dispatch.
	ErrConfiguration = errors.New("configuration error")

	// ErrTool is the base error for tool related failures.
	ErrTool = errors.New("tool error")

	// ErrDuplicateName is returned when registering a tool whose name is taken.
	ErrDuplicateName = fmt.Errorf("%w: duplicate name", ErrTool)

	// ErrNotFound is returned when resolving a tool name that is not registered.
	ErrNotFound = fmt.Errorf("%w: not found", ErrTool)

	// ErrTypeMismatch indicates tool arguments that do not satisfy the
	// parameter schema.
	ErrTypeMismatch = fmt.Errorf("%w: type mismatch", ErrTool)

	// ErrToolExecution indicates the tool itself failed.
	ErrToolExecution = fmt.Errorf("%w: execution", ErrTool)

	// ErrInvalidSchema indicates a JSON schema that could not be compiled.
	ErrInvalidSchema = errors.New("invalid schema")

	// ErrDispatch is the base error for fatal dispatch failures.
	ErrDispatch = errors.New("dispatch error")

	// ErrCycleDetected indicates an agent reached itself through agent-as-tool nesting.
	ErrCycleDetected = fmt.Errorf("%w: cycle detected", ErrDispatch)

	// ErrMaxIterationsExceeded indicates a runaway tool-call loop.
	ErrMaxIterationsExceeded = fmt.Errorf("%w: max iterations exceeded", ErrDispatch)

	// ErrCancelled indicates the caller cancelled the dispatch or its deadline passed.
	ErrCancelled = fmt.Errorf("%w: cancelled", ErrDispatch)

	// ErrModel wraps failures reported by the underlying model provider.
	ErrModel = errors.New("model error")
)

// ConfigurationError describes a single invalid configuration field.
type ConfigurationError struct {
	Field   string
	Message string
}

func (e *ConfigurationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("configuration error: %s", e.Message)
	}
	return fmt.Sprintf("configuration error for %s: %s", e.Field, e.Message)
}

func (e *ConfigurationError) Unwrap() error { return ErrConfiguration }

// CycleDetectedError reports the agent call stack that closed a cycle. Stack
// lists agent names from the outermost caller to the repeated agent.
type CycleDetectedError struct {
	Stack []string
}

func (e *CycleDetectedError) Error() string {
	return fmt.Sprintf("agent cycle detected: %s", strings.Join(e.Stack, " -> "))
}

func (e *CycleDetectedError) Unwrap() error { return ErrCycleDetected }

// MaxIterationsExceededError is returned when the model keeps requesting tool
// calls past the configured bound. Transcript holds every content exchanged
// up to and including the last model response.
type MaxIterationsExceededError struct {
	Agent      string
	Limit      int
	Transcript []Content
}

func (e *MaxIterationsExceededError) Error() string {
	return fmt.Sprintf("agent %q: max iterations exceeded (%d)", e.Agent, e.Limit)
}

func (e *MaxIterationsExceededError) Unwrap() error { return ErrMaxIterationsExceeded }

// CancelledError wraps the context error that aborted a dispatch. It matches
// both ErrCancelled and the underlying context error with errors.Is.
type CancelledError struct {
	Err error
}

func (e *CancelledError) Error() string {
	return fmt.Sprintf("dispatch cancelled: %v", e.Err)
}

func (e *CancelledError) Unwrap() error { return e.Err }

// Is reports whether target is ErrCancelled or one of its parents.
func (e *CancelledError) Is(target error) bool {
	return target == ErrCancelled || target == ErrDispatch
}

// NewCancelledError wraps a context error. A nil err becomes context.Canceled.
func NewCancelledError(err error) *CancelledError {
	if err == nil {
		err = context.Canceled
	}
	return &CancelledError{Err: err}
}

// IsFatal reports whether err must abort a dispatch instead of being fed
// back to the model as a tool-error result. Only ErrDispatch kinds are fatal;
// a bare context error raised by a tool is that tool's own timeout.
// Cancellation of the dispatch itself arrives as *CancelledError.
func IsFatal(err error) bool {
	return err != nil && errors.Is(err, ErrDispatch)
}
