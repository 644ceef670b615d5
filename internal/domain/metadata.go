package domain

import "time"

// DeploymentMetadata identifies the deployment this daemon observes. Set once
// at process start, immutable thereafter.
type DeploymentMetadata struct {
	DeploymentID string    `json:"deployment_id"`
	AppName      string    `json:"app_name"`
	StartedAt    time.Time `json:"started_at"`
}

// MetricsSample is one host resource sample. Fields are pointers so a failed
// individual read yields a partial record instead of aborting the sampler.
type MetricsSample struct {
	Timestamp         time.Time `json:"timestamp"`
	CPULoad           *float64  `json:"cpu_load,omitempty"`
	MemoryUsedPercent *float64  `json:"memory_used_percent,omitempty"`
	DiskUsedPercent   *float64  `json:"disk_used_percent,omitempty"`
}

// StatusSnapshot is one full-state record appended to the status log each
// snapshot interval, independent of the live API.
type StatusSnapshot struct {
	Timestamp  time.Time                 `json:"timestamp"`
	Deployment DeploymentMetadata        `json:"deployment"`
	Containers map[string]ContainerState `json:"containers"`
	Issues     []Issue                   `json:"issues"`
	Degraded   bool                      `json:"degraded"`
}
