package fleet

import (
	"context"
	"fmt"
	"io"

	"github.com/containerd/errdefs"
	"github.com/moby/moby/client"
)

// DockerFleet adapts the docker client to worker discovery and per-worker
// IO: interactive shells and live process log streams.
type DockerFleet struct {
	client *client.Client
}

// NewDockerFleet connects to the docker daemon using the standard
// environment configuration.
func NewDockerFleet() (*DockerFleet, error) {
	cli, err := client.New(client.FromEnv)
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}
	return &DockerFleet{client: cli}, nil
}

// Close releases the docker client.
func (d *DockerFleet) Close() error {
	return d.client.Close()
}

// List enumerates running containers.
func (d *DockerFleet) List(ctx context.Context) ([]ContainerInfo, error) {
	result, err := d.client.ContainerList(ctx, client.ContainerListOptions{})
	if err != nil {
		return nil, err
	}
	var infos []ContainerInfo
	for _, c := range result.Items {
		name := ""
		if len(c.Names) > 0 {
			name = c.Names[0]
		}
		infos = append(infos, ContainerInfo{ID: c.ID, Name: name, State: string(c.State)})
	}
	return infos, nil
}

// Shell starts an interactive shell inside a worker container and returns
// its attached IO.
func (d *DockerFleet) Shell(ctx context.Context, containerID string) (io.Reader, io.WriteCloser, func() error, error) {
	execResult, err := d.client.ExecCreate(ctx, containerID, client.ExecCreateOptions{
		Cmd:          []string{"/bin/sh"},
		TTY:          true,
		AttachStdin:  true,
		AttachStdout: true,
		AttachStderr: true,
	})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to create shell exec: %w", err)
	}

	attach, err := d.client.ExecAttach(ctx, execResult.ID, client.ExecAttachOptions{TTY: true})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to attach shell exec: %w", err)
	}
	return attach.Reader, attach.Conn, func() error { attach.Close(); return nil }, nil
}

// StreamLogs follows a worker's own process output.
func (d *DockerFleet) StreamLogs(ctx context.Context, containerID string) (io.ReadCloser, error) {
	result, err := d.client.ContainerLogs(ctx, containerID, client.ContainerLogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Tail:       "100",
		Follow:     true,
	})
	if err != nil {
		if errdefs.IsNotFound(err) {
			return nil, fmt.Errorf("worker container %s is gone: %w", containerID, err)
		}
		return nil, err
	}
	return result, nil
}
