package persist

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/auto-dns/buildwatch/internal/domain"
	"github.com/rs/zerolog"
)

// ErrNoStateFile is returned by Load when no prior state exists.
var ErrNoStateFile = errors.New("no state file")

// StateFile persists the canonical state document by writing to a temp file
// and renaming it over the target, so readers and crash recovery never see a
// torn document. Writes triggered per state change are throttled.
type StateFile struct {
	mu        sync.Mutex
	logger    zerolog.Logger
	path      string
	throttle  time.Duration
	lastWrite time.Time
	now       func() time.Time
}

func NewStateFile(dir string, throttle time.Duration, logger zerolog.Logger) *StateFile {
	return &StateFile{
		logger:   logger,
		path:     filepath.Join(dir, "state.json"),
		throttle: throttle,
		now:      time.Now,
	}
}

// Write atomically replaces the state file.
func (s *StateFile) Write(doc domain.StateDocument) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp state file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace state file: %w", err)
	}
	s.lastWrite = s.now()
	return nil
}

// WriteThrottled writes the document produced by get unless a write happened
// within the throttle window. get runs only when a write is due, so callers
// avoid snapshotting state on every event.
func (s *StateFile) WriteThrottled(get func() domain.StateDocument) error {
	s.mu.Lock()
	due := s.now().Sub(s.lastWrite) >= s.throttle
	s.mu.Unlock()
	if !due {
		return nil
	}
	return s.Write(get())
}

// Load reads the state document for crash recovery.
func (s *StateFile) Load() (domain.StateDocument, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return domain.StateDocument{}, ErrNoStateFile
		}
		return domain.StateDocument{}, fmt.Errorf("read state file: %w", err)
	}
	var doc domain.StateDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return domain.StateDocument{}, fmt.Errorf("decode state file: %w", err)
	}
	return doc, nil
}
