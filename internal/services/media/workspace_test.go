package media

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"reelsmith-desktop/internal/apperr"
	"reelsmith-desktop/internal/config"
	"reelsmith-desktop/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(n int) []byte {
	data := append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), bytes.Repeat([]byte{0}, n)...)
	return data
}

func jpegBytes(n int) []byte {
	return append([]byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00}, bytes.Repeat([]byte{0}, n)...)
}

func mp4Bytes(n int) []byte {
	return append([]byte("\x00\x00\x00\x18ftypmp42\x00\x00\x00\x00mp42isom"), bytes.Repeat([]byte{0}, n)...)
}

// flakyStore fails writes once failWrites is set.
type flakyStore struct {
	*storage.MemoryStore
	failWrites bool
}

func (s *flakyStore) Set(key string, value any) error {
	if s.failWrites {
		return &apperr.PersistenceError{Key: key, Op: "write", Err: errors.New("disk full")}
	}
	return s.MemoryStore.Set(key, value)
}

func newTestWorkspace(t *testing.T, store storage.Store) *Workspace {
	t.Helper()
	w, err := NewWorkspace(t.TempDir(), store, config.Discard())
	require.NoError(t, err)
	return w
}

func add(t *testing.T, w *Workspace, name string, data []byte) Item {
	t.Helper()
	item, err := w.Add(context.Background(), name, bytes.NewReader(data), int64(len(data)), nil)
	require.NoError(t, err)
	return item
}

func TestAdd(t *testing.T) {
	t.Run("Should copy the file and sniff its type", func(t *testing.T) {
		w := newTestWorkspace(t, storage.NewMemoryStore())
		data := pngBytes(64)
		item := add(t, w, "photo.PNG", data)

		assert.Equal(t, "photo.PNG", item.Name)
		assert.Equal(t, "image/png", item.Type)
		assert.Equal(t, int64(len(data)), item.Size)
		assert.Equal(t, w.Dir(), filepath.Dir(item.Path))

		stored, err := os.ReadFile(item.Path)
		require.NoError(t, err)
		assert.Equal(t, data, stored)
		assert.False(t, item.IsVideo())
	})

	t.Run("Should recognize videos", func(t *testing.T) {
		w := newTestWorkspace(t, storage.NewMemoryStore())
		item := add(t, w, "clip.mp4", mp4Bytes(64))
		assert.True(t, item.IsVideo())
	})

	t.Run("Should report progress in ten percent steps", func(t *testing.T) {
		w := newTestWorkspace(t, storage.NewMemoryStore())
		data := jpegBytes(1000)

		var steps []int
		_, err := w.Add(context.Background(), "a.jpg", bytes.NewReader(data), int64(len(data)), func(name string, pct int) {
			assert.Equal(t, "a.jpg", name)
			steps = append(steps, pct)
		})
		require.NoError(t, err)
		assert.Equal(t, []int{0, 10, 20, 30, 40, 50, 60, 70, 80, 90, 100}, steps)
	})

	t.Run("Should reject unsupported extensions", func(t *testing.T) {
		w := newTestWorkspace(t, storage.NewMemoryStore())
		_, err := w.Add(context.Background(), "doc.gif", bytes.NewReader(pngBytes(8)), 24, nil)

		var vErr *apperr.ValidationError
		require.True(t, errors.As(err, &vErr))
		assert.Empty(t, w.Items())
	})

	t.Run("Should reject files over the size limit", func(t *testing.T) {
		w := newTestWorkspace(t, storage.NewMemoryStore())
		_, err := w.Add(context.Background(), "big.mp4", strings.NewReader(""), MaxFileSize+1, nil)
		var vErr *apperr.ValidationError
		require.True(t, errors.As(err, &vErr))
		assert.Equal(t, "File size exceeds 100MB limit", vErr.UserMessage())
	})

	t.Run("Should reject content that does not match a media format", func(t *testing.T) {
		w := newTestWorkspace(t, storage.NewMemoryStore())
		_, err := w.Add(context.Background(), "fake.png", strings.NewReader("just some text"), 14, nil)

		var vErr *apperr.ValidationError
		require.True(t, errors.As(err, &vErr))
		entries, readErr := os.ReadDir(w.Dir())
		require.NoError(t, readErr)
		assert.Empty(t, entries)
	})

	t.Run("Should add files from disk", func(t *testing.T) {
		src := filepath.Join(t.TempDir(), "holiday.jpeg")
		require.NoError(t, os.WriteFile(src, jpegBytes(32), 0o644))

		w := newTestWorkspace(t, storage.NewMemoryStore())
		item, err := w.AddFile(context.Background(), src, nil)
		require.NoError(t, err)
		assert.Equal(t, "holiday.jpeg", item.Name)
		assert.Equal(t, "image/jpeg", item.Type)
	})
}

func TestManifestLifecycle(t *testing.T) {
	t.Run("Should persist and reload the manifest", func(t *testing.T) {
		store := storage.NewMemoryStore()
		dir := t.TempDir()
		w, err := NewWorkspace(dir, store, config.Discard())
		require.NoError(t, err)
		a := add(t, w, "a.png", pngBytes(8))
		b := add(t, w, "b.jpg", jpegBytes(8))

		reloaded, err := NewWorkspace(dir, store, config.Discard())
		require.NoError(t, err)
		require.Len(t, reloaded.Items(), 2)
		assert.Equal(t, []string{a.ID, b.ID}, []string{reloaded.Items()[0].ID, reloaded.Items()[1].ID})

		manifest := reloaded.Manifest()
		assert.Equal(t, a.Path, manifest[0].Path)
		assert.Equal(t, a.Size+b.Size, reloaded.TotalSize())
	})

	t.Run("Should drop entries whose file disappeared", func(t *testing.T) {
		store := storage.NewMemoryStore()
		dir := t.TempDir()
		w, err := NewWorkspace(dir, store, config.Discard())
		require.NoError(t, err)
		a := add(t, w, "a.png", pngBytes(8))
		add(t, w, "b.png", pngBytes(8))
		require.NoError(t, os.Remove(a.Path))

		reloaded, err := NewWorkspace(dir, store, config.Discard())
		require.NoError(t, err)
		assert.Len(t, reloaded.Items(), 1)
	})

	t.Run("Should reorder items", func(t *testing.T) {
		w := newTestWorkspace(t, storage.NewMemoryStore())
		a := add(t, w, "a.png", pngBytes(8))
		b := add(t, w, "b.png", pngBytes(8))
		c := add(t, w, "c.png", pngBytes(8))

		require.NoError(t, w.Reorder(0, 2))
		items := w.Items()
		assert.Equal(t, []string{b.ID, c.ID, a.ID}, []string{items[0].ID, items[1].ID, items[2].ID})

		var vErr *apperr.ValidationError
		assert.True(t, errors.As(w.Reorder(0, 3), &vErr))
	})

	t.Run("Should release files on remove", func(t *testing.T) {
		w := newTestWorkspace(t, storage.NewMemoryStore())
		a := add(t, w, "a.png", pngBytes(8))

		require.NoError(t, w.Remove(a.ID))
		assert.NoFileExists(t, a.Path)
		_, err := w.Preview(a.ID)
		assert.ErrorIs(t, err, apperr.ErrNotFound)
		assert.ErrorIs(t, w.Remove(a.ID), apperr.ErrNotFound)
	})

	t.Run("Should release every file on clear", func(t *testing.T) {
		store := storage.NewMemoryStore()
		w := newTestWorkspace(t, store)
		a := add(t, w, "a.png", pngBytes(8))
		b := add(t, w, "b.mp4", mp4Bytes(8))

		require.NoError(t, w.Clear())
		assert.NoFileExists(t, a.Path)
		assert.NoFileExists(t, b.Path)
		assert.Empty(t, w.Items())

		var items []Item
		found, err := store.Get(storage.KeyMediaFiles, &items)
		require.NoError(t, err)
		assert.False(t, found)
	})
	t.Run("Should keep an item and its file when remove cannot persist", func(t *testing.T) {
		store := &flakyStore{MemoryStore: storage.NewMemoryStore()}
		w := newTestWorkspace(t, store)
		a := add(t, w, "a.png", pngBytes(8))

		store.failWrites = true
		var pErr *apperr.PersistenceError
		require.True(t, errors.As(w.Remove(a.ID), &pErr))
		require.Len(t, w.Items(), 1)
		assert.Equal(t, a.ID, w.Items()[0].ID)
		assert.FileExists(t, a.Path)

		store.failWrites = false
		require.NoError(t, w.Remove(a.ID))
		assert.NoFileExists(t, a.Path)
	})
}
