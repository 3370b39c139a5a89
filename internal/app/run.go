package app

import (
	"context"
	"fmt"

	"github.com/donatienLeray/toychain-argos/internal/ctxlog"
	"github.com/donatienLeray/toychain-argos/internal/fleet"
	"github.com/donatienLeray/toychain-argos/internal/lifecycle"
	"github.com/donatienLeray/toychain-argos/internal/mux"
	"github.com/donatienLeray/toychain-argos/internal/sweep"
)

// Run executes the requested phases in a fixed order: reset, then the run
// phase (test, sweep, or a single start), then any monitoring session. The
// returned error reflects orchestration failures only, not individual run
// outcomes inside a sweep.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	if a.config.Reset {
		a.logger.Info("Resetting external state.")
		if err := a.resetter.Reset(ctx); err != nil {
			return fmt.Errorf("reset phase failed: %w", err)
		}
	}

	if a.config.needsRun() {
		if err := a.runPhase(ctx); err != nil {
			return err
		}
	}

	if a.config.needsSession() {
		if err := a.sessionPhase(ctx); err != nil {
			return err
		}
	}

	a.logger.Debug("App.Run method finished.")
	return nil
}

// runPhase dispatches the requested run flavor.
func (a *App) runPhase(ctx context.Context) error {
	switch {
	case a.config.TestLabel != "":
		a.logger.Info("Starting one-shot test run.", "label", a.config.TestLabel)
		if _, err := a.driver.RunOnce(ctx, a.config.TestLabel); err != nil {
			return fmt.Errorf("test run failed to start: %w", err)
		}
		return nil

	case a.config.SweepPath != "":
		spec, err := sweep.Load(ctx, a.config.SweepPath)
		if err != nil {
			return fmt.Errorf("failed to load sweep specification: %w", err)
		}
		a.logger.Info("Starting sweep.", "steps", len(spec.Steps))
		summary, err := a.driver.Run(ctx, spec, sweep.ModeFull)
		if summary != nil && a.config.SummaryPath != "" {
			if werr := sweep.WriteSummary(a.config.SummaryPath, summary); werr != nil {
				a.logger.Error("Failed to write sweep summary.", "error", werr)
			}
		}
		if err != nil {
			return fmt.Errorf("sweep aborted: %w", err)
		}
		return nil

	default:
		// Plain start: one run against the current configuration.
		result := a.manager.Execute(ctx, a.store, lifecycle.Options{Visualize: a.config.Start})
		if result.State != lifecycle.StateCompleted {
			return fmt.Errorf("run finished in state %s: %w", result.State, result.Err)
		}
		return nil
	}
}

// sessionPhase discovers the fleet and opens the requested monitoring
// session. It never shares mutable state with the sweep path, so attaching
// to a running experiment is safe.
func (a *App) sessionPhase(ctx context.Context) error {
	dockerFleet, err := fleet.NewDockerFleet()
	if err != nil {
		return fmt.Errorf("session phase failed to start: %w", err)
	}
	defer dockerFleet.Close()

	var workers []fleet.Worker
	if len(a.config.WorkerIDs) > 0 {
		workers, err = fleet.DiscoverSubset(ctx, dockerFleet, a.config.FleetBase, a.config.WorkerIDs)
	} else {
		workers, err = fleet.Discover(ctx, dockerFleet, a.config.FleetBase)
	}
	if err != nil {
		return fmt.Errorf("worker discovery failed: %w", err)
	}

	mode, source := a.sessionBinding(dockerFleet)
	session, err := a.sessions.Open(ctx, a.config.SessionID, workers, source, mode, a.config.Synchronized)
	if err != nil {
		return fmt.Errorf("failed to open session: %w", err)
	}
	defer a.sessions.CloseSession(session.ID)

	return mux.Show(session)
}

// sessionBinding maps the requested session flavor to a pane source.
func (a *App) sessionBinding(dockerFleet *fleet.DockerFleet) (mux.Mode, mux.PaneSource) {
	switch {
	case a.config.Console:
		return mux.ModeShell, &mux.ShellSource{Opener: dockerFleet}
	case a.config.Stream:
		return mux.ModeProcessStream, &mux.ProcessStreamSource{Streamer: dockerFleet}
	default:
		return mux.ModeLogTail, &mux.LogTailSource{LogDir: a.config.LogDir, LogFile: a.config.LogFile}
	}
}
