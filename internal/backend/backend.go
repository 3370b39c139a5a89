// Package backend declares the capability interfaces for the external
// collaborators the orchestrator drives: the simulation backend itself, the
// reset of its persistent state, and the result-collection step. The core
// never inlines their behavior; it only launches them and interprets exit
// status.
package backend

import "context"

// Backend launches one simulation run against a rendered configuration and
// blocks until the child process has exited. Cancelling the context must
// terminate the child and Launch must not return before the child is gone.
type Backend interface {
	// Launch runs the backend against configPath. visualize selects the
	// interactive mode over the headless one; the configuration is identical
	// either way. env is the full experiment environment for the child.
	Launch(ctx context.Context, configPath string, visualize bool, env []string) error
}

// Resetter clears external persistent state (chain volumes and the like)
// before a run.
type Resetter interface {
	Reset(ctx context.Context) error
}

// ResultCollector gathers one run's results under the given label.
type ResultCollector interface {
	Collect(ctx context.Context, label string) error
}
