package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/auto-dns/buildwatch/internal/domain"
	"github.com/auto-dns/buildwatch/internal/health"
)

type healthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Service   string    `json:"service"`
}

type statusResponse struct {
	State         health.State                     `json:"state"`
	Degraded      bool                             `json:"degraded"`
	Deployment    domain.DeploymentMetadata        `json:"deployment"`
	Containers    map[string]domain.ContainerState `json:"containers"`
	Issues        []domain.Issue                   `json:"issues"`
	DroppedEvents int64                            `json:"dropped_events"`
}

type eventsResponse struct {
	Events []domain.Event `json:"events"`
	Count  int            `json:"count"`
}

type issuesResponse struct {
	Issues []domain.Issue `json:"issues"`
	Count  int            `json:"count"`
}

type logsResponse struct {
	Container string   `json:"container"`
	Logs      []string `json:"logs"`
}

// handleHealth always answers 200, regardless of ingestor health. A degraded
// daemon reports status "degraded" but stays reachable.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	status := "healthy"
	if s.lifecycle.Degraded() {
		status = "degraded"
	}
	writeJSON(w, http.StatusOK, healthResponse{
		Status:    status,
		Timestamp: time.Now().UTC(),
		Service:   "buildwatch",
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{
		State:         s.lifecycle.State(),
		Degraded:      s.lifecycle.Degraded(),
		Deployment:    s.meta,
		Containers:    s.store.Snapshot(),
		Issues:        s.issues.All(),
		DroppedEvents: s.ingest.Dropped(),
	})
}

// handleEvents returns the most recent N buffered events, oldest-to-newest.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", defaultEventLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, kindBadRequest, "limit must be a positive integer")
		return
	}
	events := s.events.Recent(limit)
	writeJSON(w, http.StatusOK, eventsResponse{Events: events, Count: len(events)})
}

func (s *Server) handleIssues(w http.ResponseWriter, _ *http.Request) {
	all := s.issues.All()
	writeJSON(w, http.StatusOK, issuesResponse{Issues: all, Count: len(all)})
}

// handleLogs passes through the tail of the named container's own runtime
// log; these are not the daemon's logs.
func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("container")
	if name == "" {
		writeError(w, http.StatusBadRequest, kindBadRequest, "container parameter required")
		return
	}
	lines, err := queryInt(r, "lines", defaultLogLines)
	if err != nil {
		writeError(w, http.StatusBadRequest, kindBadRequest, "lines must be a positive integer")
		return
	}
	if _, ok := s.store.Get(name); !ok {
		writeError(w, http.StatusNotFound, kindNotFound, "unknown container: "+name)
		return
	}

	logs, err := s.tailer.Tail(r.Context(), name, lines)
	if err != nil {
		s.logger.Warn().Err(err).Str("container", name).Msg("Log tail failed")
		writeError(w, http.StatusServiceUnavailable, kindUnavailable, "container runtime did not return logs")
		return
	}
	writeJSON(w, http.StatusOK, logsResponse{Container: name, Logs: logs})
}

func (s *Server) handleContainer(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		writeError(w, http.StatusBadRequest, kindBadRequest, "name parameter required")
		return
	}
	cs, ok := s.store.Get(name)
	if !ok {
		writeError(w, http.StatusNotFound, kindNotFound, "unknown container: "+name)
		return
	}
	writeJSON(w, http.StatusOK, cs)
}

func queryInt(r *http.Request, key string, fallback int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, strconv.ErrSyntax
	}
	return n, nil
}
