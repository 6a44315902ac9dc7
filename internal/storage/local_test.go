package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStoragePutGet(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocalStorage(filepath.Join(t.TempDir(), "output"))
	require.NoError(t, err)

	meta := &Metadata{ContentType: "application/xml", SupplierID: "17", ProductCount: 2}
	require.NoError(t, s.Put(ctx, "17.xml", []byte("<products/>"), meta))

	content, err := s.Get(ctx, "17.xml")
	require.NoError(t, err)
	assert.Equal(t, "<products/>", string(content))

	info, err := s.GetInfo(ctx, "17.xml")
	require.NoError(t, err)
	assert.Equal(t, int64(len("<products/>")), info.Size)
	assert.Equal(t, ComputeChecksum([]byte("<products/>")), info.Checksum)
	require.NotNil(t, info.Metadata)
	assert.Equal(t, 2, info.Metadata.ProductCount)
	assert.Equal(t, "application/xml", info.ContentType)
}

func TestLocalStoragePutReplacesWhole(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, s.Put(ctx, "a.xml", []byte("a much longer first version"), nil))
	require.NoError(t, s.Put(ctx, "a.xml", []byte("short"), nil))

	content, err := s.Get(ctx, "a.xml")
	require.NoError(t, err)
	assert.Equal(t, "short", string(content))

	// No temp files are left behind
	entries, err := os.ReadDir(s.GetBasePath())
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestLocalStorageListSkipsMetaAndTemp(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, s.Put(ctx, "b.xml", []byte("b"), &Metadata{WrittenAt: time.Now()}))
	require.NoError(t, s.Put(ctx, "a.xml", []byte("a"), nil))
	require.NoError(t, os.WriteFile(filepath.Join(s.GetBasePath(), ".tmp-123"), []byte("x"), 0644))
	require.NoError(t, os.Mkdir(filepath.Join(s.GetBasePath(), "nested"), 0755))

	keys, err := s.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.xml", "b.xml"}, keys)

	keys, err = s.List(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, []string{"b.xml"}, keys)
}

func TestLocalStorageDelete(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, s.Put(ctx, "a.xml", []byte("a"), &Metadata{}))
	require.NoError(t, s.Delete(ctx, "a.xml"))

	exists, err := s.Exists(ctx, "a.xml")
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = os.Stat(filepath.Join(s.GetBasePath(), "a.xml.meta"))
	assert.True(t, os.IsNotExist(err))

	assert.ErrorIs(t, s.Delete(ctx, "a.xml"), ErrNotFound)
	_, err = s.Get(ctx, "a.xml")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLocalStorageRejectsTraversal(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	for _, key := range []string{"../etc/passwd", "a/b.xml", "..", "", `a\b`} {
		assert.ErrorIs(t, s.Put(ctx, key, []byte("x"), nil), ErrInvalidKey, key)
		_, err := s.Get(ctx, key)
		assert.Error(t, err, key)
	}
}
