package issues

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/auto-dns/buildwatch/internal/domain"
)

func TestList(t *testing.T) {
	l := NewList()
	require.Zero(t, l.Len())
	require.Empty(t, l.All())

	l.Append(domain.Issue{ID: "1", Type: domain.IssueTypeOOMKilled, Container: "web"})
	l.Append(domain.Issue{ID: "2", Type: domain.IssueTypeRestartLoop, Container: "worker"})

	all := l.All()
	require.Equal(t, 2, l.Len())
	require.Equal(t, "1", all[0].ID, "oldest first")
	require.Equal(t, "2", all[1].ID)

	// Mutating the returned slice must not leak back into the list.
	all[0].Container = "mutated"
	require.Equal(t, "web", l.All()[0].Container)
}
