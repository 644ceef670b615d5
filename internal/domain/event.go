package domain

import "time"

type EventType string

const (
	EventTypeStart            EventType = "start"
	EventTypeDie              EventType = "die"
	EventTypeStop             EventType = "stop"
	EventTypeRestart          EventType = "restart"
	EventTypeHealthStatus     EventType = "health_status"
	EventTypeDestroy          EventType = "destroy"
	EventTypeInitialDetection EventType = "initial_detection"
)

func (et EventType) IsValid() bool {
	switch et {
	case EventTypeStart,
		EventTypeDie,
		EventTypeStop,
		EventTypeRestart,
		EventTypeHealthStatus,
		EventTypeDestroy,
		EventTypeInitialDetection:
		return true
	}
	return false
}

type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

// Event is one normalized container runtime occurrence. Events are immutable
// once created and are never reordered within a container's history. The JSON
// encoding doubles as the durable event log line format, so any logged event
// round-trips back into the same struct.
type Event struct {
	Timestamp     time.Time    `json:"timestamp"`
	Type          EventType    `json:"type"`
	ContainerName string       `json:"container"`
	ContainerID   string       `json:"id"`
	Image         string       `json:"image,omitempty"`
	ExitCode      *int         `json:"exit_code,omitempty"`
	Health        HealthStatus `json:"health,omitempty"`
}
