// Package persist owns the on-disk layout: append-only JSONL logs with daily
// rotation, and the atomically-replaced state file.
package persist

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const rotatedDayFormat = "2006-01-02"

// Appender writes one JSON record per line to a named log file, rotating the
// file daily and pruning rotated files past retention. It tolerates external
// rotation of its open file: before each write it re-stats the path and
// reopens when the file was moved or removed out from under it.
type Appender struct {
	mu            sync.Mutex
	logger        zerolog.Logger
	path          string
	retentionDays int
	f             *os.File
	openedDay     string
	now           func() time.Time
}

func NewAppender(dir, name string, retentionDays int, logger zerolog.Logger) *Appender {
	return &Appender{
		logger:        logger,
		path:          filepath.Join(dir, name),
		retentionDays: retentionDays,
		now:           time.Now,
	}
}

// Append marshals v and appends it as one line. Errors are returned for the
// caller to log; a failed append never disturbs previously written records.
func (a *Appender) Append(v any) error {
	line, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.ensureOpen(); err != nil {
		return err
	}
	if _, err := a.f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("append to %s: %w", a.path, err)
	}
	return nil
}

// Close flushes and closes the active file.
func (a *Appender) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.f == nil {
		return nil
	}
	err := a.f.Close()
	a.f = nil
	return err
}

func (a *Appender) ensureOpen() error {
	day := a.now().UTC().Format(rotatedDayFormat)

	if a.f != nil {
		if a.openedDay != day {
			a.rotate()
		} else if a.externallyRotated() {
			// Someone rotated the file underneath us; writes must land in
			// the fresh file, not the rotated one.
			_ = a.f.Close()
			a.f = nil
		}
	}

	if a.f == nil {
		f, err := os.OpenFile(a.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open %s: %w", a.path, err)
		}
		a.f = f
		a.openedDay = day
	}
	return nil
}

// externallyRotated reports whether the path no longer refers to the open file.
func (a *Appender) externallyRotated() bool {
	pathInfo, err := os.Stat(a.path)
	if err != nil {
		return true
	}
	fileInfo, err := a.f.Stat()
	if err != nil {
		return true
	}
	return !os.SameFile(pathInfo, fileInfo)
}

// rotate renames the active file to <name>.<day> and prunes old rotations.
func (a *Appender) rotate() {
	_ = a.f.Close()
	a.f = nil

	rotated := fmt.Sprintf("%s.%s", a.path, a.openedDay)
	if err := os.Rename(a.path, rotated); err != nil {
		// An external rotator may have beaten us to it; the reopen below
		// starts a fresh file either way.
		a.logger.Warn().Err(err).Str("path", a.path).Msg("Daily rotation rename failed")
	}
	a.prune()
}

func (a *Appender) prune() {
	matches, err := filepath.Glob(a.path + ".*")
	if err != nil {
		return
	}
	sort.Strings(matches)
	cutoff := a.now().UTC().AddDate(0, 0, -a.retentionDays)
	prefix := a.path + "."
	for _, m := range matches {
		day, err := time.Parse(rotatedDayFormat, strings.TrimPrefix(m, prefix))
		if err != nil {
			continue
		}
		if day.Before(cutoff) {
			if err := os.Remove(m); err != nil {
				a.logger.Warn().Err(err).Str("path", m).Msg("Failed to prune rotated log")
			}
		}
	}
}
