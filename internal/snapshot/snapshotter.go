// Package snapshot periodically serializes the full state store, issue list,
// and deployment metadata to the status log for coarse historical audit,
// independent of the live API.
package snapshot

import (
	"context"
	"time"

	"github.com/auto-dns/buildwatch/internal/domain"
	"github.com/rs/zerolog"
)

// removedGrace is how long a removed container stays unarchived.
const removedGrace = 10 * time.Minute

type stateReader interface {
	Snapshot() map[string]domain.ContainerState
	ArchiveExpired(grace time.Duration) int
}

type issueReader interface {
	All() []domain.Issue
}

type degradedReader interface {
	Degraded() bool
}

type appender interface {
	Append(v any) error
}

type Snapshotter struct {
	logger    zerolog.Logger
	store     stateReader
	issues    issueReader
	lifecycle degradedReader
	meta      domain.DeploymentMetadata
	out       appender
	interval  time.Duration
}

func New(store stateReader, issues issueReader, lc degradedReader, meta domain.DeploymentMetadata, out appender, interval time.Duration, logger zerolog.Logger) *Snapshotter {
	return &Snapshotter{
		logger:    logger,
		store:     store,
		issues:    issues,
		lifecycle: lc,
		meta:      meta,
		out:       out,
		interval:  interval,
	}
}

// WriteOnce appends one full snapshot record immediately. The first call at
// startup gates the starting→running transition.
func (s *Snapshotter) WriteOnce() error {
	snap := domain.StatusSnapshot{
		Timestamp:  time.Now().UTC(),
		Deployment: s.meta,
		Containers: s.store.Snapshot(),
		Issues:     s.issues.All(),
		Degraded:   s.lifecycle.Degraded(),
	}
	return s.out.Append(snap)
}

func (s *Snapshotter) Run(ctx context.Context) error {
	s.logger.Info().Dur("interval", s.interval).Msg("Status snapshotter started")
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			// The archive pass piggybacks on the snapshot cadence.
			if n := s.store.ArchiveExpired(removedGrace); n > 0 {
				s.logger.Info().Int("count", n).Msg("Archived removed containers")
			}
			if err := s.WriteOnce(); err != nil {
				s.logger.Warn().Err(err).Msg("Failed to append status snapshot")
			}
		case <-ctx.Done():
			s.logger.Info().Msg("Status snapshotter stopping")
			return ctx.Err()
		}
	}
}
