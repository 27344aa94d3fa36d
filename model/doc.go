// Package model defines the provider-agnostic abstractions and concrete
// helpers for interacting with language models inside toolagent.
//
// Core goals:
//   - A single non-streaming Generate call per dispatcher round
//   - Normalize tool / function call representation (ToolDefinition, core.FunctionCall)
//   - Carry an optional structured output request (ResponseFormat)
//   - Facilitate lightweight mocking for tests (MockModel)
//
// Providers live in sub packages (openai, anthropic, gemini, langchain) and
// implement the Model interface so agents and the dispatcher stay decoupled
// from vendor SDKs.
package model
