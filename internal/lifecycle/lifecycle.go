// Package lifecycle executes a single simulation run: optional reset of
// external state, rendering of the configuration, then a blocking launch of
// the backend process.
package lifecycle

import (
	"context"
	"errors"

	"github.com/donatienLeray/toychain-argos/internal/backend"
	"github.com/donatienLeray/toychain-argos/internal/ctxlog"
	"github.com/donatienLeray/toychain-argos/internal/experr"
	"github.com/donatienLeray/toychain-argos/internal/expstore"
	"github.com/donatienLeray/toychain-argos/internal/template"
)

// State is the observable outcome of a run. Intermediate phases (rendering,
// launching) are reported through logging, not through the Result.
type State int

const (
	StateIdle State = iota
	StateCompleted
	StateFailed
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Options selects per-run behavior.
type Options struct {
	// Visualize launches the backend interactively instead of headless.
	Visualize bool
	// Reset clears external persistent state strictly before rendering.
	// Its failure is fatal to the run, never silently skipped.
	Reset bool
}

// Result is the outcome of one Execute call.
type Result struct {
	State    State
	ExitCode int
	Err      error
}

// Manager owns the rendered configuration for the duration of one run. The
// rendered document is overwritten, not versioned, on the next run.
type Manager struct {
	backend  backend.Backend
	resetter backend.Resetter
	renderer *template.Renderer

	templatePath string
	renderedPath string
}

// NewManager wires a run lifecycle against concrete collaborators.
func NewManager(b backend.Backend, r backend.Resetter, renderer *template.Renderer, templatePath, renderedPath string) *Manager {
	return &Manager{
		backend:      b,
		resetter:     r,
		renderer:     renderer,
		templatePath: templatePath,
		renderedPath: renderedPath,
	}
}

// RenderedPath returns where the rendered configuration is written.
func (m *Manager) RenderedPath() string {
	return m.renderedPath
}

// Execute performs one run end to end and reports its terminal state:
// Completed, Failed, or Cancelled. StateIdle is the zero value of a Result
// that was never executed.
//
// A rendering failure moves straight to Failed without launching. The store
// is snapshotted before rendering so later sweep mutations cannot touch what
// this run reads.
func (m *Manager) Execute(ctx context.Context, store *expstore.Store, opts Options) Result {
	logger := ctxlog.FromContext(ctx)

	if opts.Reset {
		logger.Info("Resetting external state before run.")
		if err := m.resetter.Reset(ctx); err != nil {
			logger.Error("External state reset failed, run aborted.", "error", err)
			return Result{State: StateFailed, Err: err}
		}
	}

	snapshot := store.Snapshot()

	logger.Debug("Rendering configuration.", "template", m.templatePath, "out", m.renderedPath)
	if err := m.renderer.RenderFile(m.templatePath, m.renderedPath, snapshot); err != nil {
		logger.Error("Rendering failed, backend not launched.", "error", err)
		return Result{State: StateFailed, Err: err}
	}

	// The backend reads the structured parameter file from disk, so nested
	// sweep assignments must be flushed before the launch.
	if err := store.SaveParamFile(); err != nil {
		logger.Error("Persisting structured parameters failed, backend not launched.", "error", err)
		return Result{State: StateFailed, Err: err}
	}

	err := m.backend.Launch(ctx, m.renderedPath, opts.Visualize, snapshot.Environ())
	switch {
	case err == nil:
		logger.Info("Run completed.")
		return Result{State: StateCompleted}
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		logger.Warn("Run cancelled, backend has exited.")
		return Result{State: StateCancelled, Err: err}
	}

	var runtimeFailure *experr.RuntimeFailure
	if errors.As(err, &runtimeFailure) {
		logger.Warn("Backend exited non-zero.", "exit_code", runtimeFailure.ExitCode)
		return Result{State: StateFailed, ExitCode: runtimeFailure.ExitCode, Err: err}
	}
	logger.Error("Backend failed to launch.", "error", err)
	return Result{State: StateFailed, Err: err}
}
