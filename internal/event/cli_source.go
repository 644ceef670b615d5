package event

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/auto-dns/buildwatch/internal/domain"
	"github.com/auto-dns/buildwatch/internal/metrics"
	"github.com/rs/zerolog"
)

// cliEvent mirrors the JSON emitted by `docker events --format '{{json .}}'`.
type cliEvent struct {
	Status string `json:"status"`
	ID     string `json:"id"`
	From   string `json:"from"`
	Type   string `json:"Type"`
	Action string `json:"Action"`
	Actor  struct {
		ID         string            `json:"ID"`
		Attributes map[string]string `json:"Attributes"`
	} `json:"Actor"`
	TimeNano int64 `json:"timeNano"`
}

// CLISource is the subprocess fallback adapter: it shells out to the runtime
// CLI and parses its line-oriented JSON output. Used where the native API
// socket is unavailable to the daemon.
type CLISource struct {
	logger  zerolog.Logger
	command string
}

func NewCLISource(logger zerolog.Logger) *CLISource {
	return &CLISource{
		logger:  logger,
		command: "docker",
	}
}

func (cs *CLISource) Subscribe(ctx context.Context) (<-chan domain.Event, error) {
	if err := cs.ping(ctx); err != nil {
		return nil, fmt.Errorf("ping container runtime: %w", err)
	}

	cmd := exec.CommandContext(ctx, cs.command, "events", "--format", "{{json .}}")
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("open events pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s events: %w", cs.command, err)
	}

	out := make(chan domain.Event, sourceBufferSize)

	go func() {
		defer close(out)
		defer func() {
			if err := cmd.Wait(); err != nil && ctx.Err() == nil {
				cs.logger.Warn().Err(err).Msg("Runtime CLI events process exited")
			}
		}()

		scanner := bufio.NewScanner(stdout)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := scanner.Text()
			if line == "" {
				continue
			}

			evt, convErr := cs.parseLine(line)
			if convErr != nil {
				switch convErr.(type) {
				case *UnsupportedEventError:
					cs.logger.Debug().Err(convErr).Msg("Skipping unsupported CLI event")
				default:
					metrics.RecordParseFailure()
					cs.logger.Warn().Err(convErr).Msg("Skipping malformed CLI event")
				}
				continue
			}

			select {
			case out <- evt:
			case <-ctx.Done():
				return
			}
		}
		if err := scanner.Err(); err != nil && ctx.Err() == nil {
			cs.logger.Error().Err(err).Msg("Error reading runtime CLI event stream")
		}
	}()

	return out, nil
}

// ping verifies the runtime daemon is reachable. The events subprocess itself
// starts fine with the daemon down, so spawning it proves nothing.
func (cs *CLISource) ping(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, cs.command, "version", "--format", "{{.Server.Version}}")
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s version: %s: %w", cs.command, strings.TrimSpace(string(out)), err)
	}
	return nil
}

func (cs *CLISource) parseLine(line string) (domain.Event, error) {
	var wire cliEvent
	if err := json.Unmarshal([]byte(line), &wire); err != nil {
		return domain.Event{}, NewMalformedEventError(line, err)
	}
	action := wire.Action
	if action == "" {
		action = wire.Status
	}
	id := wire.Actor.ID
	if id == "" {
		id = wire.ID
	}
	return normalize(wire.Type, action, id, wire.Actor.Attributes, wire.From, time.Unix(0, wire.TimeNano))
}
