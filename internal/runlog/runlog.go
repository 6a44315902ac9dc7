// Package runlog keeps one log file per refresh run next to the process log.
package runlog

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	filePrefix = "refresh_"
	fileExt    = ".log"
	timeLayout = "20060102_150405"
)

// ErrInvalidName is returned for names that are not run log files
var ErrInvalidName = errors.New("invalid log file name")

// File describes one run log
type File struct {
	Name    string    `json:"name"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"modTime"`
}

// Manager creates, lists and prunes run logs in a directory
type Manager struct {
	dir       string
	retention int
	root      io.Writer
	now       func() time.Time
}

// NewManager creates a manager. root is the process log writer every run log
// is mirrored to. retention is the number of run logs Prune keeps; zero keeps
// all of them.
func NewManager(dir string, retention int, root io.Writer) *Manager {
	if root == nil {
		root = io.Discard
	}
	return &Manager{
		dir:       dir,
		retention: retention,
		root:      root,
		now:       time.Now,
	}
}

// Dir returns the log directory
func (m *Manager) Dir() string {
	return m.dir
}

// FileName returns the log file name for a run started at t
func FileName(t time.Time, runID string) string {
	return filePrefix + t.Format(timeLayout) + "_" + runID + fileExt
}

// Start opens the log file of a run and returns a logger writing to both the
// file and the process log. If the file cannot be created the base logger is
// returned unchanged, so a broken log directory never stops a refresh.
func (m *Manager) Start(base *zerolog.Logger, runID string) (*zerolog.Logger, func() error) {
	noop := func() error { return nil }

	if m == nil || m.dir == "" {
		l := base.With().Str("run_id", runID).Logger()
		return &l, noop
	}

	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		base.Warn().Err(err).Str("dir", m.dir).Msg("Failed to create run log directory")
		l := base.With().Str("run_id", runID).Logger()
		return &l, noop
	}

	path := filepath.Join(m.dir, FileName(m.now(), runID))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		base.Warn().Err(err).Str("path", path).Msg("Failed to open run log file")
		l := base.With().Str("run_id", runID).Logger()
		return &l, noop
	}

	l := base.Output(zerolog.MultiLevelWriter(m.root, f)).With().Str("run_id", runID).Logger()
	return &l, f.Close
}

// List returns run logs, newest first
func (m *Manager) List() ([]File, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []File{}, nil
		}
		return nil, fmt.Errorf("failed to read log directory: %w", err)
	}

	files := make([]File, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !isRunLog(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, File{Name: entry.Name(), Size: info.Size(), ModTime: info.ModTime()})
	}

	// names embed the start time, so name order is start order
	sort.Slice(files, func(i, j int) bool { return files[i].Name > files[j].Name })
	return files, nil
}

// Path returns the path of a run log after validating its name
func (m *Manager) Path(name string) (string, error) {
	if !isRunLog(name) || strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	path := filepath.Join(m.dir, name)
	if _, err := os.Stat(path); err != nil {
		return "", err
	}
	return path, nil
}

// Open opens a run log for reading
func (m *Manager) Open(name string) (*os.File, error) {
	path, err := m.Path(name)
	if err != nil {
		return nil, err
	}
	return os.Open(path)
}

// Prune deletes the oldest run logs beyond the retention count and returns
// how many were removed
func (m *Manager) Prune() (int, error) {
	if m.retention <= 0 {
		return 0, nil
	}

	files, err := m.List()
	if err != nil {
		return 0, err
	}
	if len(files) <= m.retention {
		return 0, nil
	}

	removed := 0
	var errs []error
	for _, f := range files[m.retention:] {
		if err := os.Remove(filepath.Join(m.dir, f.Name)); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
			continue
		}
		removed++
	}
	return removed, errors.Join(errs...)
}

func isRunLog(name string) bool {
	return strings.HasPrefix(name, filePrefix) && strings.HasSuffix(name, fileExt)
}
