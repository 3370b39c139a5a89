package mux

import (
	"context"
	"io"

	"github.com/donatienLeray/toychain-argos/internal/fleet"
)

// ShellOpener starts an interactive shell inside a worker container.
// Satisfied by fleet.DockerFleet.
type ShellOpener interface {
	Shell(ctx context.Context, containerID string) (io.Reader, io.WriteCloser, func() error, error)
}

// LogStreamer follows a worker process's own output. Satisfied by
// fleet.DockerFleet.
type LogStreamer interface {
	StreamLogs(ctx context.Context, containerID string) (io.ReadCloser, error)
}

// ShellSource binds panes to interactive shells.
type ShellSource struct {
	Opener ShellOpener
}

func (s *ShellSource) Open(ctx context.Context, w fleet.Worker) (*PaneIO, error) {
	reader, writer, closer, err := s.Opener.Shell(ctx, w.ContainerID)
	if err != nil {
		return nil, err
	}
	return &PaneIO{Reader: reader, Writer: writer, Close: closer}, nil
}

// LogTailSource binds panes to the conventional per-worker log file.
type LogTailSource struct {
	LogDir  string
	LogFile string
}

func (s *LogTailSource) Open(ctx context.Context, w fleet.Worker) (*PaneIO, error) {
	follower, err := FollowFile(ctx, fleet.LogPath(s.LogDir, w.ID, s.LogFile))
	if err != nil {
		return nil, err
	}
	return &PaneIO{Reader: follower, Close: follower.Close}, nil
}

// ProcessStreamSource binds panes to the worker's live process output.
type ProcessStreamSource struct {
	Streamer LogStreamer
}

func (s *ProcessStreamSource) Open(ctx context.Context, w fleet.Worker) (*PaneIO, error) {
	stream, err := s.Streamer.StreamLogs(ctx, w.ContainerID)
	if err != nil {
		return nil, err
	}
	return &PaneIO{Reader: stream, Close: stream.Close}, nil
}
