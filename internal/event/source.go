package event

import (
	"context"

	"github.com/auto-dns/buildwatch/internal/domain"
)

// Source is a source of normalized container Events. Implementations own
// exactly one live subscription per Subscribe call: the returned channel is
// closed when the underlying stream ends or the context is cancelled, and the
// caller is expected to re-subscribe.
type Source interface {
	Subscribe(ctx context.Context) (<-chan domain.Event, error)
}

// LogTailer reads the tail of a container's own runtime log.
type LogTailer interface {
	Tail(ctx context.Context, container string, lines int) ([]string, error)
}
