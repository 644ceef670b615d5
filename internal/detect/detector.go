// Package detect applies anomaly rules to the accepted event stream, once per
// event, in delivery order.
package detect

import (
	"fmt"
	"sync"
	"time"

	"github.com/auto-dns/buildwatch/internal/domain"
	"github.com/auto-dns/buildwatch/internal/issues"
	"github.com/auto-dns/buildwatch/internal/metrics"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	// oomExitCode is SIGKILL's exit code, the runtime's signature for an
	// out-of-memory kill.
	oomExitCode = 137

	// restartWindow and restartThreshold define a restart loop: at least
	// restartThreshold starts within the trailing restartWindow.
	restartWindow    = 5 * time.Minute
	restartThreshold = 3
)

type appender interface {
	Append(v any) error
}

// Detector consumes each accepted event exactly once and emits Issues.
// Detection windows are computed from event timestamps, not wall clock, so a
// replayed stream detects identically.
type Detector struct {
	mu     sync.Mutex
	logger zerolog.Logger
	list   *issues.List
	out    appender

	starts     map[string][]time.Time
	loopOpen   map[string]bool
	lastHealth map[string]domain.HealthStatus
}

func NewDetector(list *issues.List, out appender, logger zerolog.Logger) *Detector {
	return &Detector{
		logger:     logger,
		list:       list,
		out:        out,
		starts:     make(map[string][]time.Time),
		loopOpen:   make(map[string]bool),
		lastHealth: make(map[string]domain.HealthStatus),
	}
}

// Inspect applies all rules to one event.
func (d *Detector) Inspect(evt domain.Event) {
	if evt.ContainerName == "" {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	switch evt.Type {
	case domain.EventTypeDie:
		d.checkOOM(evt)
	case domain.EventTypeStart, domain.EventTypeRestart:
		d.checkRestartLoop(evt)
	case domain.EventTypeHealthStatus:
		d.checkHealth(evt)
	}
}

// checkOOM emits a critical issue for a die with exit code 137. An unrelated
// die never triggers.
func (d *Detector) checkOOM(evt domain.Event) {
	if evt.ExitCode == nil || *evt.ExitCode != oomExitCode {
		return
	}
	d.emit(domain.Issue{
		Timestamp:      evt.Timestamp,
		Severity:       domain.SeverityCritical,
		Type:           domain.IssueTypeOOMKilled,
		Container:      evt.ContainerName,
		Message:        "Container killed - likely out of memory",
		Recommendation: "Increase memory limit or optimize application",
	})
}

// checkRestartLoop counts starts in the trailing window and emits exactly one
// warning per open window. The window closes only once the trailing count
// drops below the threshold again.
func (d *Detector) checkRestartLoop(evt domain.Event) {
	name := evt.ContainerName
	cutoff := evt.Timestamp.Add(-restartWindow)

	recent := d.starts[name][:0]
	for _, ts := range d.starts[name] {
		if ts.After(cutoff) {
			recent = append(recent, ts)
		}
	}
	recent = append(recent, evt.Timestamp)
	d.starts[name] = recent

	if len(recent) < restartThreshold {
		d.loopOpen[name] = false
		return
	}
	if d.loopOpen[name] {
		return
	}
	d.loopOpen[name] = true
	d.emit(domain.Issue{
		Timestamp:      evt.Timestamp,
		Severity:       domain.SeverityWarning,
		Type:           domain.IssueTypeRestartLoop,
		Container:      name,
		Message:        fmt.Sprintf("Container restarted %d times in 5 minutes", len(recent)),
		Recommendation: "Check container logs for a crash cause",
		RestartCount:   len(recent),
	})
}

// checkHealth emits a warning on each transition to unhealthy.
func (d *Detector) checkHealth(evt domain.Event) {
	name := evt.ContainerName
	prev := d.lastHealth[name]
	d.lastHealth[name] = evt.Health

	if evt.Health != domain.HealthStatusUnhealthy || prev == domain.HealthStatusUnhealthy {
		return
	}
	d.emit(domain.Issue{
		Timestamp:      evt.Timestamp,
		Severity:       domain.SeverityWarning,
		Type:           domain.IssueTypeHealthCheckFailure,
		Container:      name,
		Message:        "Container health check failing",
		Recommendation: "Inspect the health check command and container logs",
	})
}

// emit records the issue in the in-memory list and the durable issues log.
// Issues are detect-only: the daemon never flips Resolved.
func (d *Detector) emit(issue domain.Issue) {
	issue.ID = uuid.NewString()
	issue.Resolved = false

	d.list.Append(issue)
	metrics.RecordIssueDetected(string(issue.Type))
	if err := d.out.Append(issue); err != nil {
		d.logger.Warn().Err(err).Msg("Failed to append issue to durable log")
	}
	d.logger.Info().
		Str("type", string(issue.Type)).
		Str("container", issue.Container).
		Str("severity", string(issue.Severity)).
		Msg(issue.Message)
}
