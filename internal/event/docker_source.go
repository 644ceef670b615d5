package event

import (
	"context"
	"fmt"
	"time"

	"github.com/auto-dns/buildwatch/internal/domain"
	"github.com/auto-dns/buildwatch/internal/metrics"
	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/events"
	"github.com/docker/docker/api/types/filters"
	"github.com/rs/zerolog"
)

const sourceBufferSize = 100

type dockerClient interface {
	Ping(ctx context.Context) (types.Ping, error)
	Events(ctx context.Context, options events.ListOptions) (<-chan events.Message, <-chan error)
	ContainerList(ctx context.Context, options container.ListOptions) ([]container.Summary, error)
}

// DockerSource emits normalized Events from the runtime's native event API.
type DockerSource struct {
	logger zerolog.Logger
	cli    dockerClient
}

func NewDockerSource(cli dockerClient, logger zerolog.Logger) *DockerSource {
	return &DockerSource{
		logger: logger,
		cli:    cli,
	}
}

func (ds *DockerSource) Subscribe(ctx context.Context) (<-chan domain.Event, error) {
	if _, err := ds.cli.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping container runtime: %w", err)
	}

	out := make(chan domain.Event, sourceBufferSize)

	go func() {
		defer close(out)

		since := time.Now()

		// Emit the currently running containers first so derived state
		// reflects reality before the first live event arrives.
		containers, err := ds.cli.ContainerList(ctx, container.ListOptions{All: false})
		if err != nil {
			ds.logger.Error().Err(err).Msg("getting list of containers")
			return
		}
		for _, c := range containers {
			select {
			case out <- fromContainerSummary(c):
			case <-ctx.Done():
				ds.logger.Info().Msg("Docker event source cancelled during initial emit")
				return
			}
		}

		filterArgs := filters.NewArgs()
		filterArgs.Add("type", "container")
		filterArgs.Add("event", "start")
		filterArgs.Add("event", "stop")
		filterArgs.Add("event", "die")
		filterArgs.Add("event", "kill")
		filterArgs.Add("event", "restart")
		filterArgs.Add("event", "destroy")
		filterArgs.Add("event", "health_status")

		options := events.ListOptions{
			Filters: filterArgs,
			Since:   since.Format(time.RFC3339Nano),
		}
		eventCh, errCh := ds.cli.Events(ctx, options)

		for {
			select {
			case <-ctx.Done():
				ds.logger.Info().Msg("Docker event source cancelled by context")
				return
			case err, ok := <-errCh:
				if ok && err != nil {
					ds.logger.Error().Err(err).Msg("Error from Docker events stream")
				}
				// The stream is dead; close out so the ingestor reconnects.
				return
			case msg, ok := <-eventCh:
				if !ok {
					ds.logger.Info().Msg("Docker events channel closed")
					return
				}

				evt, convErr := fromEventsMessage(msg)
				if convErr != nil {
					switch convErr.(type) {
					case *UnsupportedEventError:
						ds.logger.Debug().Err(convErr).Msg("Skipping unsupported docker event")
					default:
						metrics.RecordParseFailure()
						ds.logger.Warn().Err(convErr).Msg("Skipping malformed docker event")
					}
					continue
				}

				ds.logger.Debug().Msgf("Received Docker event: %+v", evt)
				select {
				case out <- evt:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}
