package event

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/rs/zerolog"
)

type containerLogsClient interface {
	ContainerLogs(ctx context.Context, container string, options container.LogsOptions) (io.ReadCloser, error)
}

// DockerLogTailer serves container log tails through the runtime's native API.
type DockerLogTailer struct {
	logger zerolog.Logger
	cli    containerLogsClient
}

func NewDockerLogTailer(cli containerLogsClient, logger zerolog.Logger) *DockerLogTailer {
	return &DockerLogTailer{
		logger: logger,
		cli:    cli,
	}
}

func (lt *DockerLogTailer) Tail(ctx context.Context, name string, lines int) ([]string, error) {
	rc, err := lt.cli.ContainerLogs(ctx, name, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Tail:       strconv.Itoa(lines),
	})
	if err != nil {
		return nil, fmt.Errorf("container logs: %w", err)
	}
	defer rc.Close()

	raw, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read container logs: %w", err)
	}

	// The stream is multiplexed unless the container has a TTY; demux both
	// halves into one buffer, in order. A TTY container returns a raw stream,
	// for which demuxing fails and the bytes are used as-is.
	var buf bytes.Buffer
	if _, err := stdcopy.StdCopy(&buf, &buf, bytes.NewReader(raw)); err != nil {
		return splitLogLines(string(raw)), nil
	}

	return splitLogLines(buf.String()), nil
}

// CLILogTailer is the subprocess fallback for log tails.
type CLILogTailer struct {
	logger  zerolog.Logger
	command string
}

func NewCLILogTailer(logger zerolog.Logger) *CLILogTailer {
	return &CLILogTailer{
		logger:  logger,
		command: "docker",
	}
}

func (lt *CLILogTailer) Tail(ctx context.Context, name string, lines int) ([]string, error) {
	cmd := exec.CommandContext(ctx, lt.command, "logs", "--tail", strconv.Itoa(lines), name)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("%s logs %s: %w", lt.command, name, err)
	}
	return splitLogLines(string(out)), nil
}

func splitLogLines(raw string) []string {
	raw = strings.TrimRight(raw, "\n")
	if raw == "" {
		return []string{}
	}
	return strings.Split(raw, "\n")
}
