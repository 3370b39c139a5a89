// Package expstore owns the experiment configuration: a file-backed, ordered
// set of NAME=VALUE parameters plus derivation formulas for dependent values.
//
// Why an explicit store?
//
// The configuration file is shared state between the control process and the
// backend it launches. Mutating it with ad-hoc text substitution while a run
// may still be reading it is a race. The store keeps the authoritative copy
// in memory, applies mutations there, and serializes an immutable snapshot to
// disk once per run, so an in-flight run never observes a half-applied sweep
// step.
//
// Mutations never create keys: setting an unknown name is a deliberate no-op
// reported through the boolean result, which keeps a typo in a sweep file
// from silently growing the configuration.
package expstore
