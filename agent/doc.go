// Package agent contains the tool-calling Agent: a model, its instructions
// and an append-only tool registry, driven one request at a time by the
// flow dispatcher.
//
// Design principles:
//   - Single turn: every Run starts from the user message alone; there is no
//     hidden conversation state, so one Agent serves concurrent requests
//   - Composability: AsTool turns an agent into a tool so agents can nest;
//     cycles are rejected before the first model call and again at runtime
//   - Explicit wiring: model, tools and limits are passed in through options
//
// Instructions are static text, a text/template rendered from request
// variables, or a dynamic Provider.
package agent
