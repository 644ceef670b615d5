package event

import (
	"strconv"
	"strings"
	"time"

	"github.com/auto-dns/buildwatch/internal/domain"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/events"
)

// shortIDLen matches the runtime CLI's abbreviated container id.
const shortIDLen = 12

// normalize converts one raw runtime record into a domain Event. Both the
// native and CLI adapters funnel through here so they produce identical
// events for identical occurrences.
func normalize(kind, action, id string, attrs map[string]string, from string, ts time.Time) (domain.Event, error) {
	if kind != string(events.ContainerEventType) {
		return domain.Event{}, NewUnsupportedEventError(kind, action)
	}

	evt := domain.Event{
		Timestamp:     ts.UTC(),
		ContainerName: attrs["name"],
		ContainerID:   shortID(id),
		Image:         attrs["image"],
	}
	if evt.Image == "" {
		evt.Image = from
	}

	switch {
	case strings.HasPrefix(action, string(events.ActionHealthStatus)):
		evt.Type = domain.EventTypeHealthStatus
		evt.Health = healthFromAction(action)
	case action == "kill":
		// The runtime emits kill before die; for state purposes it is a stop.
		evt.Type = domain.EventTypeStop
	default:
		evt.Type = domain.EventType(action)
		if !evt.Type.IsValid() {
			return domain.Event{}, NewUnsupportedEventError(kind, action)
		}
	}

	if evt.Type == domain.EventTypeDie || evt.Type == domain.EventTypeStop {
		if raw, ok := attrs["exitCode"]; ok && raw != "" {
			if code, err := strconv.Atoi(raw); err == nil {
				evt.ExitCode = &code
			}
		}
	}

	return evt, nil
}

func fromEventsMessage(msg events.Message) (domain.Event, error) {
	return normalize(
		string(msg.Type),
		string(msg.Action),
		msg.Actor.ID,
		msg.Actor.Attributes,
		msg.From,
		time.Unix(0, msg.TimeNano),
	)
}

func fromContainerSummary(c container.Summary) domain.Event {
	name := ""
	if len(c.Names) > 0 {
		name = strings.TrimPrefix(c.Names[0], "/")
	}
	return domain.Event{
		Timestamp:     time.Now().UTC(),
		Type:          domain.EventTypeInitialDetection,
		ContainerName: name,
		ContainerID:   shortID(c.ID),
		Image:         c.Image,
	}
}

func healthFromAction(action string) domain.HealthStatus {
	// Action arrives as "health_status: unhealthy".
	rest := strings.TrimPrefix(action, string(events.ActionHealthStatus))
	rest = strings.TrimSpace(strings.TrimPrefix(rest, ":"))
	return domain.HealthStatus(rest)
}

func shortID(id string) string {
	if len(id) > shortIDLen {
		return id[:shortIDLen]
	}
	return id
}
