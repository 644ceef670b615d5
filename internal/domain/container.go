package domain

import "time"

type ContainerStatus string

const (
	ContainerStatusUnknown ContainerStatus = "unknown"
	ContainerStatusRunning ContainerStatus = "running"
	ContainerStatusStopped ContainerStatus = "stopped"
	ContainerStatusDead    ContainerStatus = "dead"
	ContainerStatusRemoved ContainerStatus = "removed"
)

// ContainerState is the daemon's derived belief about one container, built
// exclusively from observed Events. RestartCount is monotonically
// non-decreasing for the lifetime of a container identity.
type ContainerState struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Image        string          `json:"image,omitempty"`
	Status       ContainerStatus `json:"status"`
	StartedAt    *time.Time      `json:"started_at,omitempty"`
	StoppedAt    *time.Time      `json:"stopped_at,omitempty"`
	RemovedAt    *time.Time      `json:"removed_at,omitempty"`
	RestartCount int             `json:"restart_count"`
	LastExitCode *int            `json:"last_exit_code,omitempty"`
	LastHealth   HealthStatus    `json:"last_health_status,omitempty"`
	Archived     bool            `json:"archived,omitempty"`
	LastUpdated  time.Time       `json:"last_updated"`
}

// StateDocument is the single atomically-replaced state file used for crash
// recovery of the canonical container table.
type StateDocument struct {
	Containers map[string]ContainerState `json:"containers"`
	SavedAt    time.Time                 `json:"saved_at"`
}
