package export

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore(t *testing.T) {
	t.Run("Should save, open and remove artifacts", func(t *testing.T) {
		store, err := NewFileStore(filepath.Join(t.TempDir(), "exports"))
		require.NoError(t, err)

		handle, size, err := store.Save("reel_1.mp4", []byte("data"))
		require.NoError(t, err)
		assert.Equal(t, "reel_1.mp4", handle)
		assert.Equal(t, int64(4), size)

		data, err := store.Open(handle)
		require.NoError(t, err)
		assert.Equal(t, []byte("data"), data)

		require.NoError(t, store.Remove(handle))
		_, err = store.Open(handle)
		assert.ErrorIs(t, err, ErrArtifactNotFound)
		assert.NoError(t, store.Remove(handle))
	})

	t.Run("Should reject handles escaping the directory", func(t *testing.T) {
		store, err := NewFileStore(t.TempDir())
		require.NoError(t, err)

		_, err = store.Open("../secret")
		assert.ErrorIs(t, err, ErrArtifactNotFound)
		_, _, err = store.Save("a/b.mp4", nil)
		assert.ErrorIs(t, err, ErrArtifactNotFound)
	})

	t.Run("Should prune only old artifacts", func(t *testing.T) {
		dir := t.TempDir()
		store, err := NewFileStore(dir)
		require.NoError(t, err)

		_, _, err = store.Save("reel_1.mp4", []byte("old"))
		require.NoError(t, err)
		_, _, err = store.Save("reel_2.mp4", []byte("new"))
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("keep"), 0o644))

		now := time.Now()
		old := now.Add(-48 * time.Hour)
		require.NoError(t, os.Chtimes(filepath.Join(dir, "reel_1.mp4"), old, old))
		require.NoError(t, os.Chtimes(filepath.Join(dir, "notes.txt"), old, old))

		removed, err := store.PruneOlderThan(24*time.Hour, now)
		require.NoError(t, err)
		assert.Equal(t, 1, removed)
		assert.NoFileExists(t, filepath.Join(dir, "reel_1.mp4"))
		assert.FileExists(t, filepath.Join(dir, "reel_2.mp4"))
		assert.FileExists(t, filepath.Join(dir, "notes.txt"))
	})
}
