package server

import (
	"context"

	"github.com/auto-dns/buildwatch/internal/domain"
	"github.com/auto-dns/buildwatch/internal/health"
)

type stateReader interface {
	Snapshot() map[string]domain.ContainerState
	Get(name string) (domain.ContainerState, bool)
}

type eventReader interface {
	Recent(limit int) []domain.Event
}

type issueReader interface {
	All() []domain.Issue
}

type lifecycleReader interface {
	State() health.State
	Degraded() bool
}

type ingestStats interface {
	Dropped() int64
}

type logTailer interface {
	Tail(ctx context.Context, container string, lines int) ([]string, error)
}
