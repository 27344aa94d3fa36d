// Package testutil contains helpers used across tests to script model
// behaviour without a network: a fluent builder yields a model.MockModel that
// answers each round-trip from a fixed list of steps. Not intended for
// production usage.
package testutil
