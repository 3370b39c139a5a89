package sweep

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/donatienLeray/toychain-argos/internal/experr"
	"github.com/donatienLeray/toychain-argos/internal/expstore"
	"github.com/donatienLeray/toychain-argos/internal/lifecycle"
)

// scriptedExecutor records the order of invocations and the store state each
// run observed, and fails the runs whose index is marked.
type scriptedExecutor struct {
	invocations []string
	failAt      map[int]bool
	cancelAt    int
	store       *expstore.Store
}

func (s *scriptedExecutor) Execute(_ context.Context, store *expstore.Store, _ lifecycle.Options) lifecycle.Result {
	consensus, _ := store.Get("CONSENSUS")
	robots, _ := store.Get("NUMROBOTS")
	s.invocations = append(s.invocations, consensus+"/"+robots)

	n := len(s.invocations)
	if s.cancelAt > 0 && n >= s.cancelAt {
		return lifecycle.Result{State: lifecycle.StateCancelled, Err: context.Canceled}
	}
	if s.failAt[n] {
		return lifecycle.Result{State: lifecycle.StateFailed, ExitCode: 1}
	}
	return lifecycle.Result{State: lifecycle.StateCompleted}
}

type recordingCollector struct {
	labels []string
	err    error
}

func (r *recordingCollector) Collect(_ context.Context, label string) error {
	r.labels = append(r.labels, label)
	return r.err
}

func newTestDriver(exec *scriptedExecutor, collector *recordingCollector) (*Driver, *expstore.Store) {
	store := expstore.Parse([]byte("CONSENSUS=ProofOfAuthority\nNUMROBOTS=20\nDENSITY=2\n"))
	exec.store = store
	return NewDriver(store, exec, collector, lifecycle.Options{}), store
}

func mustSpec(t *testing.T, src string) *Specification {
	t.Helper()
	spec, err := ParseSpec([]byte(src), "sweep.hcl")
	require.NoError(t, err)
	return spec
}

func TestRun_FullProducesMxKxRInOrder(t *testing.T) {
	t.Parallel()

	exec := &scriptedExecutor{}
	collector := &recordingCollector{}
	driver, _ := newTestDriver(exec, collector)

	spec := mustSpec(t, `
sweep "s" {
  repetitions = 2
  loop "CONSENSUS" {
    values = ["A", "B"]
  }
  loop "NUMROBOTS" {
    values = [30, 40, 50]
  }
}
`)

	summary, err := driver.Run(context.Background(), spec, ModeFull)
	require.NoError(t, err)
	require.Equal(t, 12, summary.Planned, "M*K*R = 2*3*2")
	require.Equal(t, 12, summary.Completed)

	// Strict outer-then-inner-then-repetition order.
	var want []string
	for _, c := range []string{"A", "B"} {
		for _, n := range []string{"30", "40", "50"} {
			for rep := 0; rep < 2; rep++ {
				want = append(want, c+"/"+n)
			}
		}
	}
	require.Equal(t, want, exec.invocations)
}

func TestRun_TestModeSingleRunNoCollection(t *testing.T) {
	t.Parallel()

	exec := &scriptedExecutor{}
	collector := &recordingCollector{}
	driver, _ := newTestDriver(exec, collector)

	spec := mustSpec(t, `
sweep "s" {
  repetitions = 5
  collect     = true
  loop "NUMROBOTS" {
    values = [30, 40]
  }
}
`)

	summary, err := driver.Run(context.Background(), spec, ModeTest)
	require.NoError(t, err)
	require.Equal(t, 1, summary.Planned, "test mode runs exactly once regardless of repetitions")
	require.Len(t, exec.invocations, 1)
	require.Empty(t, collector.labels, "test mode never collects")
}

func TestRun_CollectionPerCompletedRun(t *testing.T) {
	t.Parallel()

	exec := &scriptedExecutor{}
	collector := &recordingCollector{}
	driver, _ := newTestDriver(exec, collector)

	spec := mustSpec(t, `
sweep "s" {
  collect = true
  loop "NUMROBOTS" {
    values = [30, 40]
  }
}
`)

	_, err := driver.Run(context.Background(), spec, ModeFull)
	require.NoError(t, err)
	require.Equal(t, []string{"s_30", "s_40"}, collector.labels)
}

func TestRun_FailureContinuesSweep(t *testing.T) {
	t.Parallel()

	exec := &scriptedExecutor{failAt: map[int]bool{2: true}}
	collector := &recordingCollector{}
	driver, _ := newTestDriver(exec, collector)

	spec := mustSpec(t, `
sweep "s" {
  repetitions = 3
  loop "NUMROBOTS" {
    values = [30]
  }
}
`)

	summary, err := driver.Run(context.Background(), spec, ModeFull)
	require.NoError(t, err, "a failed run is not an orchestration error")
	require.Equal(t, 3, summary.Planned, "sweep continues past a failed repetition")
	require.Equal(t, 2, summary.Completed)
	require.Equal(t, 1, summary.Failed)
	require.Equal(t, []string{"s_30#2"}, summary.Failures)
}

func TestRun_CollectionErrorDoesNotBlockNextSteps(t *testing.T) {
	t.Parallel()

	exec := &scriptedExecutor{}
	collector := &recordingCollector{err: &experr.CollectionError{Label: "x", Err: fmt.Errorf("disk full")}}
	driver, _ := newTestDriver(exec, collector)

	spec := mustSpec(t, `
sweep "s" {
  collect = true
  loop "NUMROBOTS" {
    values = [30, 40, 50]
  }
}
`)

	summary, err := driver.Run(context.Background(), spec, ModeFull)
	require.NoError(t, err)
	require.Equal(t, 3, summary.Completed)
	require.Len(t, collector.labels, 3, "collection keeps being attempted")
}

func TestRun_UnknownAssignmentAborts(t *testing.T) {
	t.Parallel()

	exec := &scriptedExecutor{}
	driver, _ := newTestDriver(exec, &recordingCollector{})

	spec := mustSpec(t, `
sweep "s" {
  loop "NO_SUCH_PARAM" {
    values = [1]
  }
}
`)

	_, err := driver.Run(context.Background(), spec, ModeFull)
	require.Error(t, err)

	var cfgErr *experr.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	require.Empty(t, exec.invocations, "no run may start after a configuration error")
}

func TestRun_CancellationStopsSweep(t *testing.T) {
	t.Parallel()

	exec := &scriptedExecutor{cancelAt: 2}
	driver, _ := newTestDriver(exec, &recordingCollector{})

	spec := mustSpec(t, `
sweep "s" {
  repetitions = 5
  loop "NUMROBOTS" {
    values = [30]
  }
}
`)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	summary, _ := driver.Run(ctx, spec, ModeFull)
	require.Len(t, exec.invocations, 2, "no further runs after cancellation")
	require.Equal(t, 1, summary.Cancelled)
}

func TestRunOnce(t *testing.T) {
	t.Parallel()

	exec := &scriptedExecutor{}
	collector := &recordingCollector{}
	driver, _ := newTestDriver(exec, collector)

	summary, err := driver.RunOnce(context.Background(), "smoke")
	require.NoError(t, err)
	require.Equal(t, 1, summary.Planned)
	require.Empty(t, collector.labels)
}
