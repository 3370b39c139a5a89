package sweep

import (
	"context"
	"fmt"

	"github.com/donatienLeray/toychain-argos/internal/backend"
	"github.com/donatienLeray/toychain-argos/internal/ctxlog"
	"github.com/donatienLeray/toychain-argos/internal/experr"
	"github.com/donatienLeray/toychain-argos/internal/expstore"
	"github.com/donatienLeray/toychain-argos/internal/lifecycle"
)

// Mode selects how much of a specification the driver executes.
type Mode int

const (
	// ModeTest executes exactly one run with the first step's parameters and
	// no result collection, regardless of the configured repetition count.
	ModeTest Mode = iota
	// ModeFull executes every step for its full repetition count, collecting
	// results when the step asks for it.
	ModeFull
)

// RunStatus is the lifecycle of one run record.
type RunStatus string

const (
	RunPending   RunStatus = "pending"
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// Run is the transient record of a single repetition. It exists only until
// its collection side effect completes; the summary keeps the counts.
type Run struct {
	Label      string
	Repetition int
	Status     RunStatus
	ExitCode   int
}

// Executor is the slice of the lifecycle manager the driver depends on.
type Executor interface {
	Execute(ctx context.Context, store *expstore.Store, opts lifecycle.Options) lifecycle.Result
}

// Driver sequences sweep steps. It is the exclusive writer of the experiment
// store: every mutation waits for the previous step's run and collection to
// finish, so a run in flight never observes a later step's parameters.
type Driver struct {
	store     *expstore.Store
	executor  Executor
	collector backend.ResultCollector
	runOpts   lifecycle.Options
}

// NewDriver builds a driver over a store and the run machinery.
func NewDriver(store *expstore.Store, executor Executor, collector backend.ResultCollector, runOpts lifecycle.Options) *Driver {
	return &Driver{store: store, executor: executor, collector: collector, runOpts: runOpts}
}

// Summary aggregates a sweep's outcome. The orchestration exit status is
// derived from orchestration errors only, not from individual run failures.
type Summary struct {
	Planned   int      `yaml:"planned"`
	Completed int      `yaml:"completed"`
	Failed    int      `yaml:"failed"`
	Cancelled int      `yaml:"cancelled"`
	Failures  []string `yaml:"failures,omitempty"`
}

// Run executes a specification. Steps run strictly sequentially: step N+1's
// parameter assignments are applied only after step N's run and collection
// have both returned. A run that fails is recorded and the sweep moves on; a
// configuration error aborts before any further run starts.
func (d *Driver) Run(ctx context.Context, spec *Specification, mode Mode) (*Summary, error) {
	logger := ctxlog.FromContext(ctx)

	steps := spec.Steps
	if mode == ModeTest {
		steps = steps[:1]
	}

	summary := &Summary{}
	for _, step := range steps {
		reps := step.Repetitions
		collect := step.Collect
		if mode == ModeTest {
			reps = 1
			collect = false
		}

		// Barrier: by the time we get here the previous iteration's run and
		// collection have fully returned, so mutating the store is safe.
		if err := d.applyStep(step); err != nil {
			return summary, err
		}

		for rep := 1; rep <= reps; rep++ {
			summary.Planned++
			run := Run{Label: step.Label, Repetition: rep, Status: RunPending}

			logger.Info("Starting run.", "label", run.Label, "repetition", rep, "of", reps)
			run.Status = RunRunning
			result := d.executor.Execute(ctx, d.store, d.runOpts)

			switch result.State {
			case lifecycle.StateCompleted:
				run.Status = RunCompleted
				summary.Completed++
			case lifecycle.StateCancelled:
				summary.Cancelled++
				logger.Warn("Sweep interrupted; remaining runs skipped.", "label", run.Label)
				return summary, ctx.Err()
			default:
				run.Status = RunFailed
				run.ExitCode = result.ExitCode
				summary.Failed++
				summary.Failures = append(summary.Failures, fmt.Sprintf("%s#%d", run.Label, rep))
				logger.Warn("Run failed; continuing with next repetition.",
					"label", run.Label, "repetition", rep, "exit_code", result.ExitCode, "error", result.Err)
			}

			if collect && run.Status == RunCompleted {
				if err := d.collector.Collect(ctx, run.Label); err != nil {
					// Collection failures never block subsequent steps.
					logger.Error("Result collection failed.", "label", run.Label, "error", err)
				}
			}
			// The run record is discarded here; only the summary survives.
		}
	}

	logger.Info("Sweep finished.",
		"planned", summary.Planned, "completed", summary.Completed,
		"failed", summary.Failed, "cancelled", summary.Cancelled)
	return summary, nil
}

// RunOnce executes a single unlabeled-parameters run under the given label
// with no collection. This is the one-shot test phase of the CLI.
func (d *Driver) RunOnce(ctx context.Context, label string) (*Summary, error) {
	spec := &Specification{Steps: []Step{{Label: label, Repetitions: 1}}}
	return d.Run(ctx, spec, ModeTest)
}

// applyStep applies a step's parameter assignments, checking every Set
// result: a sweep that mutates an unknown key would silently run the wrong
// experiment, so it is a configuration error.
func (d *Driver) applyStep(step Step) error {
	for _, a := range step.Assignments {
		if !d.store.Set(a.Name, a.Value) {
			return &experr.ConfigurationError{
				Name:   a.Name,
				Reason: fmt.Sprintf("sweep step %q assigns a parameter the store does not define", step.Label),
			}
		}
	}
	return nil
}
