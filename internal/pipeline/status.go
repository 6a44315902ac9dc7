package pipeline

import (
	"sync"
	"time"

	"github.com/kosarica/feed-service/internal/types"
)

// StatusSnapshot is the externally visible refresh state
type StatusSnapshot struct {
	Running      bool       `json:"running"`
	ActiveRuns   int        `json:"active_runs"`
	LastUpdate   *time.Time `json:"last_update"`
	FilesCreated []string   `json:"files_created"`
	LastRunID    string     `json:"last_run_id,omitempty"`
	LastError    string     `json:"last_error,omitempty"`
}

// Status tracks in-flight and last completed refresh runs
type Status struct {
	mu           sync.RWMutex
	active       int
	lastUpdate   *time.Time
	filesCreated []string
	lastRunID    string
	lastError    string
}

func (s *Status) begin() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active++
}

func (s *Status) end(summary *types.RunSummary) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.active--
	s.lastRunID = summary.ID
	s.lastError = summary.Error
	if summary.Status == types.RunStatusCompleted {
		done := time.Now()
		if summary.CompletedAt != nil {
			done = *summary.CompletedAt
		}
		s.lastUpdate = &done
		s.filesCreated = append([]string(nil), summary.FilesWritten...)
	}
}

// Snapshot returns a copy of the current state
func (s *Status) Snapshot() StatusSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := StatusSnapshot{
		Running:      s.active > 0,
		ActiveRuns:   s.active,
		FilesCreated: append([]string{}, s.filesCreated...),
		LastRunID:    s.lastRunID,
		LastError:    s.lastError,
	}
	if s.lastUpdate != nil {
		t := *s.lastUpdate
		snap.LastUpdate = &t
	}
	return snap
}
