package fileutil_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/churnlab/retrainer/internal/cmn/fileutil"
)

func TestWriteJSONAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")

	require.NoError(t, fileutil.WriteJSONAtomic(path, map[string]int{"a": 1}, 0o600))
	require.NoError(t, fileutil.WriteJSONAtomic(path, map[string]int{"a": 2}, 0o600))

	var got map[string]int
	require.NoError(t, fileutil.ReadJSON(path, &got))
	assert.Equal(t, 2, got["a"])

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files must not be left behind")

	fi, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), fi.Mode().Perm())
}

func TestWriteJSONAtomic_Unencodable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	err := fileutil.WriteJSONAtomic(path, map[string]any{"ch": make(chan int)}, 0o600)
	assert.Error(t, err)
	assert.NoFileExists(t, path)
}

func TestReadJSON_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.json")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0o600))

	var v map[string]any
	assert.Error(t, fileutil.ReadJSON(path, &v))

	err := fileutil.ReadJSON(filepath.Join(t.TempDir(), "missing.json"), &v)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestCopyFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "model.bin")
	dst := filepath.Join(dir, "copy.bin")
	require.NoError(t, os.WriteFile(src, []byte("weights"), 0o600))

	require.NoError(t, fileutil.CopyFile(src, dst, 0o600))
	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "weights", string(data))

	assert.Error(t, fileutil.CopyFile(filepath.Join(dir, "nope"), dst, 0o600))
}

func TestCache_LoadLatest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.json")
	require.NoError(t, os.WriteFile(path, []byte("one"), 0o600))

	cache := fileutil.NewCache[string]("test", 10, time.Minute)
	loads := 0
	loader := func() (string, error) {
		loads++
		data, err := os.ReadFile(path)
		return string(data), err
	}

	v, err := cache.LoadLatest(path, loader)
	require.NoError(t, err)
	assert.Equal(t, "one", v)

	v, err = cache.LoadLatest(path, loader)
	require.NoError(t, err)
	assert.Equal(t, "one", v)
	assert.Equal(t, 1, loads)
	assert.Equal(t, 1, cache.Size())

	// A different size marks the entry stale.
	require.NoError(t, os.WriteFile(path, []byte("three"), 0o600))
	v, err = cache.LoadLatest(path, loader)
	require.NoError(t, err)
	assert.Equal(t, "three", v)
	assert.Equal(t, 2, loads)

	cache.Invalidate(path)
	assert.Zero(t, cache.Size())
}

func TestCache_LoadLatestErrors(t *testing.T) {
	cache := fileutil.NewCache[int]("test", 0, time.Minute)

	_, err := cache.LoadLatest(filepath.Join(t.TempDir(), "missing"), func() (int, error) { return 1, nil })
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "f")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))
	_, err = cache.LoadLatest(path, func() (int, error) { return 0, errors.New("boom") })
	assert.EqualError(t, err, "boom")
	assert.Zero(t, cache.Size())
}
