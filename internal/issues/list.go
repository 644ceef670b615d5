// Package issues holds the append-only in-memory issue history shared by the
// detector (sole writer) and the API server and snapshotter (readers).
package issues

import (
	"sync"

	"github.com/auto-dns/buildwatch/internal/domain"
)

type List struct {
	mu     sync.RWMutex
	issues []domain.Issue
}

func NewList() *List {
	return &List{}
}

func (l *List) Append(issue domain.Issue) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.issues = append(l.issues, issue)
}

// All returns a copy of the full issue history, oldest first, including
// resolved issues.
func (l *List) All() []domain.Issue {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]domain.Issue, len(l.issues))
	copy(out, l.issues)
	return out
}

func (l *List) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.issues)
}
