// Package experr defines the error taxonomy shared by the orchestration
// packages. The split matters for sweep control flow: configuration errors
// abort a sweep before any run starts, per-run errors are recorded and the
// sweep moves on, and collection errors are only ever logged.
package experr

import "fmt"

// ConfigurationError reports an invalid or unknown parameter in the
// experiment configuration. It is fatal to the whole sweep.
type ConfigurationError struct {
	Name   string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error for %q: %s", e.Name, e.Reason)
}

// DomainError reports a derivation formula applied outside its valid domain,
// such as a zero or negative density.
type DomainError struct {
	Name   string
	Reason string
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("derivation of %q outside its domain: %s", e.Name, e.Reason)
}

// MissingParameterError reports a template placeholder with no binding in the
// store. Fatal to the run being rendered, not to the sweep.
type MissingParameterError struct {
	Name string
}

func (e *MissingParameterError) Error() string {
	return fmt.Sprintf("template references unknown parameter %q", e.Name)
}

// LaunchError reports a backend process that failed to start.
type LaunchError struct {
	Err error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("backend failed to launch: %v", e.Err)
}

func (e *LaunchError) Unwrap() error { return e.Err }

// RuntimeFailure reports a backend process that started but exited non-zero.
// The sweep records it on the run and continues; it is never retried.
type RuntimeFailure struct {
	ExitCode int
}

func (e *RuntimeFailure) Error() string {
	return fmt.Sprintf("backend exited with code %d", e.ExitCode)
}

// CollectionError reports a failed result-collection step. Logged only; it
// must not block subsequent sweep steps.
type CollectionError struct {
	Label string
	Err   error
}

func (e *CollectionError) Error() string {
	return fmt.Sprintf("result collection for %q failed: %v", e.Label, e.Err)
}

func (e *CollectionError) Unwrap() error { return e.Err }
