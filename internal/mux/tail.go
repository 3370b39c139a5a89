package mux

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"
)

// pollInterval is how often a follower checks the file for appended data.
const pollInterval = 250 * time.Millisecond

// Follower is a poll-based tailing reader over a growing log file. It reads
// whatever already exists, then keeps returning newly appended bytes until
// closed. A file truncated underneath it (log rotation) restarts from the
// beginning.
type Follower struct {
	ctx    context.Context
	cancel context.CancelFunc
	file   *os.File
	offset int64
}

// FollowFile opens a follower over path. The file must exist; the worker's
// own logging creates it at startup.
func FollowFile(ctx context.Context, path string) (*Follower, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", path, err)
	}
	fctx, cancel := context.WithCancel(ctx)
	return &Follower{ctx: fctx, cancel: cancel, file: file}, nil
}

// Read implements io.Reader. It blocks waiting for new data instead of
// returning io.EOF, so a bufio.Scanner over it behaves like `tail -f`.
func (f *Follower) Read(p []byte) (int, error) {
	for {
		n, err := f.file.ReadAt(p, f.offset)
		if n > 0 {
			f.offset += int64(n)
			return n, nil
		}
		if err != nil && err != io.EOF {
			return 0, err
		}

		// Nothing new. Detect truncation, then wait.
		info, statErr := f.file.Stat()
		if statErr == nil && info.Size() < f.offset {
			f.offset = 0
			continue
		}

		select {
		case <-f.ctx.Done():
			return 0, io.EOF
		case <-time.After(pollInterval):
		}
	}
}

// Close stops the follower and releases the file.
func (f *Follower) Close() error {
	f.cancel()
	return f.file.Close()
}
