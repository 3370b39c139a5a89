// Package fleet discovers the worker containers a running experiment has
// spawned. Workers are owned by the backend, never by the orchestrator: this
// package only takes snapshots of what currently exists, keyed by the
// conventional "{base}.{id}" container name.
package fleet

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/donatienLeray/toychain-argos/internal/ctxlog"
)

// Worker is a discovery-time snapshot of one live worker container.
type Worker struct {
	ID          int
	Name        string
	ContainerID string
	State       string
}

// ContainerInfo is the slice of container metadata discovery needs.
type ContainerInfo struct {
	ID    string
	Name  string
	State string
}

// Lister enumerates live containers. The docker client satisfies it through
// the adapter in this package; tests use an in-memory fake.
type Lister interface {
	List(ctx context.Context) ([]ContainerInfo, error)
}

// ParseWorkerName extracts the numeric worker id from a container name of
// the form "{base}.{id}". A leading slash, as the docker API reports names,
// is tolerated.
func ParseWorkerName(base, name string) (int, bool) {
	name = strings.TrimPrefix(name, "/")
	rest, ok := strings.CutPrefix(name, base+".")
	if !ok {
		return 0, false
	}
	id, err := strconv.Atoi(rest)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// Discover returns all live workers whose name matches the fleet base,
// sorted by ascending id for a reproducible pane layout. An empty result is
// a valid state: the fleet may simply not be running yet.
func Discover(ctx context.Context, lister Lister, base string) ([]Worker, error) {
	logger := ctxlog.FromContext(ctx)

	containers, err := lister.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate containers: %w", err)
	}

	var workers []Worker
	for _, c := range containers {
		id, ok := ParseWorkerName(base, c.Name)
		if !ok {
			continue
		}
		workers = append(workers, Worker{
			ID:          id,
			Name:        strings.TrimPrefix(c.Name, "/"),
			ContainerID: c.ID,
			State:       c.State,
		})
	}
	sort.Slice(workers, func(i, j int) bool { return workers[i].ID < workers[j].ID })

	logger.Debug("Worker discovery complete.", "base", base, "found", len(workers))
	return workers, nil
}

// DiscoverSubset restricts discovery to the given ids, preserving their
// order. Ids with no live worker are skipped.
func DiscoverSubset(ctx context.Context, lister Lister, base string, ids []int) ([]Worker, error) {
	all, err := Discover(ctx, lister, base)
	if err != nil {
		return nil, err
	}
	byID := make(map[int]Worker, len(all))
	for _, w := range all {
		byID[w.ID] = w
	}
	var workers []Worker
	for _, id := range ids {
		if w, ok := byID[id]; ok {
			workers = append(workers, w)
		}
	}
	return workers, nil
}

// LogPath is the conventional per-worker log location: a directory keyed by
// worker id holding the backend's own log file.
func LogPath(logDir string, id int, logFile string) string {
	return filepath.Join(logDir, strconv.Itoa(id), logFile)
}
