package runlog

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileName(t *testing.T) {
	ts := time.Date(2025, 3, 9, 7, 5, 1, 0, time.UTC)
	assert.Equal(t, "refresh_20250309_070501_abc.log", FileName(ts, "abc"))
}

func TestStart_TeesToFileAndRoot(t *testing.T) {
	dir := t.TempDir()
	var root bytes.Buffer

	m := NewManager(dir, 0, &root)
	m.now = func() time.Time { return time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC) }

	base := zerolog.New(&root)
	logger, closeFn := m.Start(&base, "run1")
	logger.Info().Str("supplier_id", "42").Msg("Wrote feed")
	require.NoError(t, closeFn())

	data, err := os.ReadFile(filepath.Join(dir, "refresh_20250102_030405_run1.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"run_id":"run1"`)
	assert.Contains(t, string(data), "Wrote feed")
	assert.Contains(t, root.String(), "Wrote feed")
}

func TestStart_FallsBackWhenDirUnusable(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	var root bytes.Buffer
	m := NewManager(filepath.Join(blocker, "logs"), 0, &root)
	base := zerolog.New(&root)

	logger, closeFn := m.Start(&base, "run2")
	logger.Info().Msg("still logging")
	assert.NoError(t, closeFn())
	assert.Contains(t, root.String(), "still logging")
}

func TestListOpenPrune(t *testing.T) {
	dir := t.TempDir()
	names := []string{
		"refresh_20250101_000000_a.log",
		"refresh_20250102_000000_b.log",
		"refresh_20250103_000000_c.log",
	}
	for _, n := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, n), []byte(n), 0o644))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.txt"), []byte("x"), 0o644))

	m := NewManager(dir, 2, io.Discard)

	files, err := m.List()
	require.NoError(t, err)
	require.Len(t, files, 3)
	assert.Equal(t, names[2], files[0].Name)

	f, err := m.Open(names[1])
	require.NoError(t, err)
	data, err := io.ReadAll(f)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	assert.Equal(t, names[1], string(data))

	_, err = m.Open("../refresh_x.log")
	assert.ErrorIs(t, err, ErrInvalidName)
	_, err = m.Open("other.txt")
	assert.ErrorIs(t, err, ErrInvalidName)

	removed, err := m.Prune()
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	files, err = m.List()
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, names[1], files[1].Name)
}

func TestList_MissingDir(t *testing.T) {
	m := NewManager(filepath.Join(t.TempDir(), "nope"), 0, nil)
	files, err := m.List()
	require.NoError(t, err)
	assert.Empty(t, files)
}
