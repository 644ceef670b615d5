package state

import (
	"sync"
	"time"

	"github.com/auto-dns/buildwatch/internal/domain"
)

// Store is the canonical per-container state table. It is a pure function of
// the Event stream: the ingestor is its only writer, and all reads are
// copy-on-read snapshots. No lock is ever held across I/O.
type Store struct {
	mu         sync.RWMutex
	containers map[string]*domain.ContainerState
	now        func() time.Time
}

func NewStore() *Store {
	return &Store{
		containers: make(map[string]*domain.ContainerState),
		now:        time.Now,
	}
}

// NewStoreFrom seeds a store from a recovered state document.
func NewStoreFrom(doc domain.StateDocument) *Store {
	s := NewStore()
	for name, cs := range doc.Containers {
		c := cs
		c.Name = name
		s.containers[name] = &c
	}
	return s
}

// Apply folds one event into the table. start upserts the entry and
// increments restart_count only when the previous status was running or dead,
// so a container's first start never counts as a restart.
func (s *Store) Apply(evt domain.Event) {
	if evt.ContainerName == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cs, ok := s.containers[evt.ContainerName]
	if !ok {
		cs = &domain.ContainerState{
			Name:   evt.ContainerName,
			Status: domain.ContainerStatusUnknown,
		}
		s.containers[evt.ContainerName] = cs
	}
	if evt.ContainerID != "" {
		cs.ID = evt.ContainerID
	}
	if evt.Image != "" {
		cs.Image = evt.Image
	}

	ts := evt.Timestamp

	switch evt.Type {
	case domain.EventTypeStart:
		if cs.Status == domain.ContainerStatusRunning || cs.Status == domain.ContainerStatusDead {
			cs.RestartCount++
		}
		cs.Status = domain.ContainerStatusRunning
		cs.StartedAt = &ts
		cs.RemovedAt = nil
		cs.Archived = false
	case domain.EventTypeRestart:
		// A restart is never a first start.
		cs.RestartCount++
		cs.Status = domain.ContainerStatusRunning
		cs.StartedAt = &ts
	case domain.EventTypeInitialDetection:
		if cs.Status != domain.ContainerStatusRunning {
			cs.Status = domain.ContainerStatusRunning
			cs.StartedAt = &ts
		}
	case domain.EventTypeDie:
		cs.Status = domain.ContainerStatusDead
		cs.StoppedAt = &ts
		if evt.ExitCode != nil {
			cs.LastExitCode = evt.ExitCode
		}
	case domain.EventTypeStop:
		cs.Status = domain.ContainerStatusStopped
		cs.StoppedAt = &ts
		if evt.ExitCode != nil {
			cs.LastExitCode = evt.ExitCode
		}
	case domain.EventTypeHealthStatus:
		cs.LastHealth = evt.Health
	case domain.EventTypeDestroy:
		cs.Status = domain.ContainerStatusRemoved
		cs.RemovedAt = &ts
	}

	cs.LastUpdated = s.now().UTC()
}

// Get returns a copy of one container's state.
func (s *Store) Get(name string) (domain.ContainerState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cs, ok := s.containers[name]
	if !ok {
		return domain.ContainerState{}, false
	}
	return *cs, true
}

// Snapshot returns a copy of the whole table.
func (s *Store) Snapshot() map[string]domain.ContainerState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]domain.ContainerState, len(s.containers))
	for name, cs := range s.containers {
		out[name] = *cs
	}
	return out
}

// ArchiveExpired marks removed containers as archived once their removal is
// older than grace. Entries are archived, never deleted. Returns the number
// of entries archived by this pass.
func (s *Store) ArchiveExpired(grace time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := s.now().Add(-grace)
	archived := 0
	for _, cs := range s.containers {
		if cs.Status == domain.ContainerStatusRemoved && !cs.Archived &&
			cs.RemovedAt != nil && cs.RemovedAt.Before(cutoff) {
			cs.Archived = true
			cs.LastUpdated = s.now().UTC()
			archived++
		}
	}
	return archived
}

// Document packages the table for the atomically-replaced state file.
func (s *Store) Document() domain.StateDocument {
	return domain.StateDocument{
		Containers: s.Snapshot(),
		SavedAt:    s.now().UTC(),
	}
}
