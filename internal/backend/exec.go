package backend

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"syscall"
	"time"

	"github.com/donatienLeray/toychain-argos/internal/ctxlog"
	"github.com/donatienLeray/toychain-argos/internal/experr"
)

// killGrace is how long a cancelled child gets to exit after SIGTERM before
// it is killed outright.
const killGrace = 10 * time.Second

// ExecBackend launches the simulator as a blocking child process.
type ExecBackend struct {
	// Command is the simulator argv prefix, e.g. ["argos3", "-c"]. The
	// rendered configuration path is appended as the final argument.
	Command []string
	// HeadlessArgs are appended when visualization is off.
	HeadlessArgs []string
	// Dir is the working directory for the child.
	Dir string
}

// Launch starts the backend and waits for it to exit. A process that cannot
// be started is a LaunchError; one that exits non-zero is a RuntimeFailure.
// On context cancellation the child receives SIGTERM and Launch only returns
// once the child has actually exited, so no backend process is ever orphaned.
func (b *ExecBackend) Launch(ctx context.Context, configPath string, visualize bool, env []string) error {
	logger := ctxlog.FromContext(ctx)

	args := append(append([]string{}, b.Command[1:]...), configPath)
	if !visualize {
		args = append(args, b.HeadlessArgs...)
	}

	cmd := exec.CommandContext(ctx, b.Command[0], args...)
	cmd.Dir = b.Dir
	cmd.Env = append(os.Environ(), env...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Cancel = func() error {
		return cmd.Process.Signal(syscall.SIGTERM)
	}
	cmd.WaitDelay = killGrace

	logger.Info("Launching backend.", "command", b.Command[0], "config", configPath, "visualize", visualize)

	if err := cmd.Start(); err != nil {
		return &experr.LaunchError{Err: err}
	}

	err := cmd.Wait()
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		// Cancelled: the child is already reaped by Wait at this point.
		return ctx.Err()
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &experr.RuntimeFailure{ExitCode: exitErr.ExitCode()}
	}
	return &experr.LaunchError{Err: err}
}

// ExecResetter resets external persistent state by running a script.
type ExecResetter struct {
	Command []string
	Dir     string
}

// Reset runs the reset script and fails the run if it fails.
func (r *ExecResetter) Reset(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, r.Command[0], r.Command[1:]...)
	cmd.Dir = r.Dir
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("reset of external state failed: %w", err)
	}
	return nil
}

// ExecCollector gathers results by running a collection script with the run
// label as its argument.
type ExecCollector struct {
	Command []string
	Dir     string
}

// Collect invokes the collection script for one labeled run.
func (c *ExecCollector) Collect(ctx context.Context, label string) error {
	args := append(append([]string{}, c.Command[1:]...), label)
	cmd := exec.CommandContext(ctx, c.Command[0], args...)
	cmd.Dir = c.Dir
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return &experr.CollectionError{Label: label, Err: err}
	}
	return nil
}
