// Package core provides the foundational types shared by every toolagent
// package:
//
//   - Content and Part, the provider-neutral representation of a conversation
//     turn (text, function calls, function responses)
//   - the error taxonomy (sentinels plus typed errors carrying payloads)
//   - the agent call stack carried by context.Context that guards nested
//     agent-as-tool invocations against cycles
//
// The package has no dependencies on models, tools or agents so that all of
// them can build on it without import cycles.
package core
