// Package health tracks the daemon lifecycle:
// starting → running ⇄ degraded → stopped.
package health

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

type State string

const (
	StateStarting State = "starting"
	StateRunning  State = "running"
	StateDegraded State = "degraded"
	StateStopped  State = "stopped"
)

// ErrInvalidTransition is returned when a transition is attempted out of a
// terminal or incompatible state.
var ErrInvalidTransition = errors.New("invalid lifecycle transition")

type Lifecycle struct {
	mu     sync.RWMutex
	logger zerolog.Logger
	state  State
}

func NewLifecycle(logger zerolog.Logger) *Lifecycle {
	return &Lifecycle{
		logger: logger,
		state:  StateStarting,
	}
}

// SetRunning marks the daemon healthy: the event subscription is live. It is
// valid from starting (first connect), degraded (reconnect), and running
// (no-op on repeated connects).
func (l *Lifecycle) SetRunning() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state == StateStopped {
		return fmt.Errorf("set running from %s: %w", l.state, ErrInvalidTransition)
	}
	if l.state != StateRunning {
		l.logger.Info().Str("from", string(l.state)).Msg("Daemon running")
	}
	l.state = StateRunning
	return nil
}

// SetDegraded marks the event source unreachable. The API keeps serving
// last-known state while degraded.
func (l *Lifecycle) SetDegraded() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state == StateStopped {
		return fmt.Errorf("set degraded from %s: %w", l.state, ErrInvalidTransition)
	}
	if l.state != StateDegraded {
		l.logger.Warn().Str("from", string(l.state)).Msg("Daemon degraded: event source unreachable")
	}
	l.state = StateDegraded
	return nil
}

// SetStopped is terminal and valid from any state.
func (l *Lifecycle) SetStopped() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.state = StateStopped
}

func (l *Lifecycle) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// Degraded reports whether the daemon is serving last-known state only.
func (l *Lifecycle) Degraded() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state == StateDegraded
}
