package export

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ArtifactStore keeps exported files addressable by a download handle.
type ArtifactStore interface {
	Save(filename string, data []byte) (handle string, size int64, err error)
	Open(handle string) ([]byte, error)
	Remove(handle string) error
}

// FileStore writes artifacts into a single directory; the handle is the
// file name.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Dir returns the output directory.
func (s *FileStore) Dir() string { return s.dir }

func (s *FileStore) Save(filename string, data []byte) (string, int64, error) {
	path, err := s.path(filename)
	if err != nil {
		return "", 0, err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", 0, fmt.Errorf("write artifact: %w", err)
	}
	return filename, int64(len(data)), nil
}

func (s *FileStore) Open(handle string) ([]byte, error) {
	path, err := s.path(handle)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrArtifactNotFound
	}
	return data, err
}

func (s *FileStore) Remove(handle string) error {
	path, err := s.path(handle)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// PruneOlderThan deletes artifacts last modified before now-maxAge and
// returns how many were removed.
func (s *FileStore) PruneOlderThan(maxAge time.Duration, now time.Time) (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("read output directory: %w", err)
	}
	cutoff := now.Add(-maxAge)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || !isArtifactName(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(s.dir, entry.Name())); err != nil {
				return removed, fmt.Errorf("remove %s: %w", entry.Name(), err)
			}
			removed++
		}
	}
	return removed, nil
}

func (s *FileStore) path(handle string) (string, error) {
	if handle == "" || filepath.Base(handle) != handle || strings.HasPrefix(handle, ".") {
		return "", ErrArtifactNotFound
	}
	return filepath.Join(s.dir, handle), nil
}

func isArtifactName(name string) bool {
	return strings.HasPrefix(name, "reel_") && strings.HasSuffix(name, ".mp4")
}
