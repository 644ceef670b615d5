package state_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/auto-dns/buildwatch/internal/domain"
	"github.com/auto-dns/buildwatch/internal/state"
)

func evt(t domain.EventType, name string, ts time.Time) domain.Event {
	return domain.Event{
		Timestamp:     ts,
		Type:          t,
		ContainerName: name,
		ContainerID:   "abc123def456",
		Image:         "registry/app:latest",
	}
}

func TestStore_RestartCount(t *testing.T) {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	t.Run("first start is not a restart", func(t *testing.T) {
		s := state.NewStore()
		s.Apply(evt(domain.EventTypeStart, "app", base))

		cs, ok := s.Get("app")
		require.True(t, ok)
		require.Equal(t, domain.ContainerStatusRunning, cs.Status)
		require.Equal(t, 0, cs.RestartCount)
		require.NotNil(t, cs.StartedAt)
	})

	t.Run("start after die increments", func(t *testing.T) {
		s := state.NewStore()
		s.Apply(evt(domain.EventTypeStart, "app", base))
		s.Apply(evt(domain.EventTypeDie, "app", base.Add(time.Second)))
		s.Apply(evt(domain.EventTypeStart, "app", base.Add(2*time.Second)))

		cs, _ := s.Get("app")
		require.Equal(t, 1, cs.RestartCount)
	})

	t.Run("start while running increments", func(t *testing.T) {
		s := state.NewStore()
		s.Apply(evt(domain.EventTypeStart, "app", base))
		s.Apply(evt(domain.EventTypeStart, "app", base.Add(time.Second)))

		cs, _ := s.Get("app")
		require.Equal(t, 1, cs.RestartCount)
	})

	t.Run("start after clean stop does not increment", func(t *testing.T) {
		s := state.NewStore()
		s.Apply(evt(domain.EventTypeStart, "app", base))
		s.Apply(evt(domain.EventTypeStop, "app", base.Add(time.Second)))
		s.Apply(evt(domain.EventTypeStart, "app", base.Add(2*time.Second)))

		cs, _ := s.Get("app")
		require.Equal(t, 0, cs.RestartCount)
	})

	t.Run("count is monotonically non-decreasing", func(t *testing.T) {
		s := state.NewStore()
		prev := 0
		for i := 0; i < 5; i++ {
			s.Apply(evt(domain.EventTypeStart, "app", base.Add(time.Duration(2*i)*time.Second)))
			s.Apply(evt(domain.EventTypeDie, "app", base.Add(time.Duration(2*i+1)*time.Second)))
			cs, _ := s.Get("app")
			require.GreaterOrEqual(t, cs.RestartCount, prev)
			prev = cs.RestartCount
		}
		require.Equal(t, 4, prev)
	})
}

func TestStore_OOMDeath(t *testing.T) {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	s := state.NewStore()

	s.Apply(evt(domain.EventTypeStart, "app", base))
	die := evt(domain.EventTypeDie, "app", base.Add(time.Minute))
	code := 137
	die.ExitCode = &code
	s.Apply(die)

	cs, ok := s.Get("app")
	require.True(t, ok)
	require.Equal(t, domain.ContainerStatusDead, cs.Status)
	require.NotNil(t, cs.LastExitCode)
	require.Equal(t, 137, *cs.LastExitCode)
}

func TestStore_DieWithoutExitCodeKeepsLast(t *testing.T) {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	s := state.NewStore()

	s.Apply(evt(domain.EventTypeStart, "app", base))
	die := evt(domain.EventTypeDie, "app", base.Add(time.Second))
	code := 137
	die.ExitCode = &code
	s.Apply(die)

	s.Apply(evt(domain.EventTypeStart, "app", base.Add(2*time.Second)))
	s.Apply(evt(domain.EventTypeDie, "app", base.Add(3*time.Second)))

	cs, _ := s.Get("app")
	require.Equal(t, domain.ContainerStatusDead, cs.Status)
	require.NotNil(t, cs.LastExitCode)
	require.Equal(t, 137, *cs.LastExitCode)
}

func TestStore_HealthStatus(t *testing.T) {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	s := state.NewStore()

	s.Apply(evt(domain.EventTypeStart, "app", base))
	he := evt(domain.EventTypeHealthStatus, "app", base.Add(time.Minute))
	he.Health = domain.HealthStatusUnhealthy
	s.Apply(he)

	cs, _ := s.Get("app")
	require.Equal(t, domain.HealthStatusUnhealthy, cs.LastHealth)
	require.Equal(t, domain.ContainerStatusRunning, cs.Status)
}

func TestStore_SnapshotIsACopy(t *testing.T) {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	s := state.NewStore()
	s.Apply(evt(domain.EventTypeStart, "app", base))

	snap := s.Snapshot()
	snap["app"] = domain.ContainerState{Name: "app", Status: domain.ContainerStatusDead}

	cs, _ := s.Get("app")
	require.Equal(t, domain.ContainerStatusRunning, cs.Status)
}

func TestStore_ArchiveExpired(t *testing.T) {
	base := time.Now().Add(-time.Hour)
	s := state.NewStore()

	s.Apply(evt(domain.EventTypeStart, "old", base))
	s.Apply(evt(domain.EventTypeDestroy, "old", base.Add(time.Minute)))
	s.Apply(evt(domain.EventTypeStart, "fresh", time.Now()))

	archived := s.ArchiveExpired(10 * time.Minute)
	require.Equal(t, 1, archived)

	old, ok := s.Get("old")
	require.True(t, ok, "archived containers are never deleted")
	require.True(t, old.Archived)
	require.Equal(t, domain.ContainerStatusRemoved, old.Status)

	fresh, _ := s.Get("fresh")
	require.False(t, fresh.Archived)

	// A second pass archives nothing new.
	require.Equal(t, 0, s.ArchiveExpired(10*time.Minute))
}

func TestStore_RecoveryRoundTrip(t *testing.T) {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	s := state.NewStore()
	s.Apply(evt(domain.EventTypeStart, "app", base))
	s.Apply(evt(domain.EventTypeDie, "app", base.Add(time.Second)))
	s.Apply(evt(domain.EventTypeStart, "app", base.Add(2*time.Second)))

	recovered := state.NewStoreFrom(s.Document())
	cs, ok := recovered.Get("app")
	require.True(t, ok)
	require.Equal(t, 1, cs.RestartCount)
	require.Equal(t, domain.ContainerStatusRunning, cs.Status)
}
