package domain

import "time"

type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

type IssueType string

const (
	IssueTypeOOMKilled          IssueType = "oom_killed"
	IssueTypeRestartLoop        IssueType = "restart_loop"
	IssueTypeHealthCheckFailure IssueType = "health_check_failure"
)

// Issue is a detected anomaly. Records are append-only: Resolved may flip but
// an issue is never deleted.
type Issue struct {
	ID             string    `json:"id"`
	Timestamp      time.Time `json:"timestamp"`
	Severity       Severity  `json:"severity"`
	Type           IssueType `json:"type"`
	Container      string    `json:"container"`
	Message        string    `json:"message"`
	Recommendation string    `json:"recommendation,omitempty"`
	RestartCount   int       `json:"restart_count,omitempty"`
	Resolved       bool      `json:"resolved"`
}
