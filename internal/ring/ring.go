// Package ring holds the fixed-capacity in-memory FIFO of recent events,
// distinct from the unbounded durable log.
package ring

import (
	"sync"

	"github.com/auto-dns/buildwatch/internal/domain"
)

// Buffer is a bounded FIFO of Events. Push is O(1) and drops the oldest
// entry on overflow.
type Buffer struct {
	mu    sync.Mutex
	buf   []domain.Event
	head  int // index of the oldest entry
	count int
}

func New(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = 1
	}
	return &Buffer{
		buf: make([]domain.Event, capacity),
	}
}

func (b *Buffer) Push(evt domain.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	tail := (b.head + b.count) % len(b.buf)
	b.buf[tail] = evt
	if b.count == len(b.buf) {
		b.head = (b.head + 1) % len(b.buf)
	} else {
		b.count++
	}
}

// Recent returns the most recent limit events, oldest-to-newest. A
// non-positive or oversized limit returns everything buffered.
func (b *Buffer) Recent(limit int) []domain.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := b.count
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]domain.Event, 0, n)
	start := b.count - n
	for i := start; i < b.count; i++ {
		out = append(out, b.buf[(b.head+i)%len(b.buf)])
	}
	return out
}

func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}
