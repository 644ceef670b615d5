package ring_test

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/auto-dns/buildwatch/internal/domain"
	"github.com/auto-dns/buildwatch/internal/ring"
)

func numberedEvent(i int) domain.Event {
	return domain.Event{
		Timestamp:     time.Date(2026, 8, 1, 0, 0, i, 0, time.UTC),
		Type:          domain.EventTypeStart,
		ContainerName: "c" + strconv.Itoa(i),
	}
}

func TestBuffer_DropsOldestOnOverflow(t *testing.T) {
	b := ring.New(5)
	for i := 0; i < 12; i++ {
		b.Push(numberedEvent(i))
	}

	require.Equal(t, 5, b.Len())

	got := b.Recent(5)
	require.Len(t, got, 5)
	for i, evt := range got {
		require.Equal(t, "c"+strconv.Itoa(7+i), evt.ContainerName, "oldest-to-newest of the most recent five")
	}
}

func TestBuffer_RecentLimit(t *testing.T) {
	b := ring.New(10)
	for i := 0; i < 6; i++ {
		b.Push(numberedEvent(i))
	}

	t.Run("limit smaller than contents", func(t *testing.T) {
		got := b.Recent(3)
		require.Len(t, got, 3)
		require.Equal(t, "c3", got[0].ContainerName)
		require.Equal(t, "c5", got[2].ContainerName)
	})

	t.Run("limit larger than contents", func(t *testing.T) {
		require.Len(t, b.Recent(100), 6)
	})

	t.Run("non-positive limit returns everything", func(t *testing.T) {
		require.Len(t, b.Recent(0), 6)
	})
}

func TestBuffer_Empty(t *testing.T) {
	b := ring.New(4)
	require.Equal(t, 0, b.Len())
	require.Empty(t, b.Recent(10))
}
