// Package logging provides a minimal logging interface and adapters for toolagent.
//
// The Logger interface defines the leveled methods (Debug, Info, Warn, Error)
// that the dispatcher, executor and agents use for observability. This package
// includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping an existing *slog.Logger
//   - StructuredLogger with component scoping and dispatch specific helpers
//   - NoOpLogger for silent operation (testing, minimal setups)
//
// Usage:
//
//	logger := logging.NewSlogLogger(logging.LogLevelInfo, "json", false)
//	a, err := agent.New("WeatherAgent", llm, func(o *agent.Options) { o.Logger = logger })
//
// The interface stays small to avoid vendor lock-in while supporting
// structured key/value logging where available.
package logging
