package event

import (
	"context"
	"testing"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/events"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/auto-dns/buildwatch/internal/domain"
)

func message(action events.Action, id, name string, attrs map[string]string) events.Message {
	if attrs == nil {
		attrs = map[string]string{}
	}
	attrs["name"] = name
	return events.Message{
		Type:     events.ContainerEventType,
		Action:   action,
		From:     "registry/app:latest",
		TimeNano: time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC).UnixNano(),
		Actor: events.Actor{
			ID:         id,
			Attributes: attrs,
		},
	}
}

func TestNormalize(t *testing.T) {
	longID := "abc123def4567890abcdef1234567890abcdef1234567890abcdef12345678"

	t.Run("start", func(t *testing.T) {
		evt, err := fromEventsMessage(message(events.ActionStart, longID, "web", nil))
		require.NoError(t, err)
		require.Equal(t, domain.EventTypeStart, evt.Type)
		require.Equal(t, "web", evt.ContainerName)
		require.Equal(t, longID[:12], evt.ContainerID)
		require.Equal(t, "registry/app:latest", evt.Image)
		require.Nil(t, evt.ExitCode)
	})

	t.Run("die carries exit code", func(t *testing.T) {
		evt, err := fromEventsMessage(message(events.ActionDie, longID, "web", map[string]string{"exitCode": "137"}))
		require.NoError(t, err)
		require.Equal(t, domain.EventTypeDie, evt.Type)
		require.NotNil(t, evt.ExitCode)
		require.Equal(t, 137, *evt.ExitCode)
	})

	t.Run("unparseable exit code is dropped", func(t *testing.T) {
		evt, err := fromEventsMessage(message(events.ActionDie, longID, "web", map[string]string{"exitCode": "oops"}))
		require.NoError(t, err)
		require.Nil(t, evt.ExitCode)
	})

	t.Run("kill maps to stop", func(t *testing.T) {
		evt, err := fromEventsMessage(message(events.ActionKill, longID, "web", nil))
		require.NoError(t, err)
		require.Equal(t, domain.EventTypeStop, evt.Type)
	})

	t.Run("health status parses trailing verdict", func(t *testing.T) {
		evt, err := fromEventsMessage(message(events.ActionHealthStatusUnhealthy, longID, "web", nil))
		require.NoError(t, err)
		require.Equal(t, domain.EventTypeHealthStatus, evt.Type)
		require.Equal(t, domain.HealthStatusUnhealthy, evt.Health)
	})

	t.Run("image attribute wins over from", func(t *testing.T) {
		evt, err := fromEventsMessage(message(events.ActionStart, longID, "web", map[string]string{"image": "registry/app:v2"}))
		require.NoError(t, err)
		require.Equal(t, "registry/app:v2", evt.Image)
	})

	t.Run("unsupported action", func(t *testing.T) {
		_, err := fromEventsMessage(message("exec_create", longID, "web", nil))
		var unsupported *UnsupportedEventError
		require.ErrorAs(t, err, &unsupported)
	})

	t.Run("non-container event", func(t *testing.T) {
		msg := message(events.ActionStart, longID, "web", nil)
		msg.Type = events.NetworkEventType
		_, err := fromEventsMessage(msg)
		var unsupported *UnsupportedEventError
		require.ErrorAs(t, err, &unsupported)
	})
}

func TestFromContainerSummary(t *testing.T) {
	evt := fromContainerSummary(container.Summary{
		ID:    "abc123def4567890",
		Names: []string{"/web"},
		Image: "registry/web:latest",
	})
	require.Equal(t, domain.EventTypeInitialDetection, evt.Type)
	require.Equal(t, "web", evt.ContainerName, "leading slash is stripped")
	require.Equal(t, "abc123def456", evt.ContainerID)
	require.Equal(t, "registry/web:latest", evt.Image)
}

func TestCLISource_ParseLine(t *testing.T) {
	cs := NewCLISource(zerolog.Nop())

	t.Run("start event", func(t *testing.T) {
		line := `{"status":"start","id":"abc123def4567890","from":"registry/app:latest","Type":"container","Action":"start","Actor":{"ID":"abc123def4567890","Attributes":{"image":"registry/app:latest","name":"web"}},"timeNano":1754042400000000000}`
		evt, err := cs.parseLine(line)
		require.NoError(t, err)
		require.Equal(t, domain.EventTypeStart, evt.Type)
		require.Equal(t, "web", evt.ContainerName)
		require.Equal(t, "abc123def456", evt.ContainerID)
	})

	t.Run("legacy status field", func(t *testing.T) {
		line := `{"status":"die","id":"abc123def4567890","from":"registry/app:latest","Type":"container","timeNano":1754042400000000000}`
		evt, err := cs.parseLine(line)
		require.NoError(t, err)
		require.Equal(t, domain.EventTypeDie, evt.Type)
		require.Equal(t, "abc123def456", evt.ContainerID)
	})

	t.Run("malformed json", func(t *testing.T) {
		_, err := cs.parseLine(`{"status":`)
		var malformed *MalformedEventError
		require.ErrorAs(t, err, &malformed)
	})
}

func TestCLISource_SubscribeRequiresRuntime(t *testing.T) {
	cs := NewCLISource(zerolog.Nop())
	cs.command = "buildwatch-no-such-runtime"

	_, err := cs.Subscribe(context.Background())
	require.Error(t, err, "an unreachable runtime must fail the subscribe, not spawn a dead stream")
}
