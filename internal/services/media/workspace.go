// Package media owns the user's uploaded media files and their order.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"reelsmith-desktop/internal/apperr"
	"reelsmith-desktop/internal/services/export"
	"reelsmith-desktop/internal/storage"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// MaxFileSize is the per-file upload limit.
const MaxFileSize = 100 * 1024 * 1024

// AcceptedFormats lists the accepted file extensions, upper case.
var AcceptedFormats = []string{"JPG", "JPEG", "PNG", "MP4", "MOV"}

var acceptedMIME = []string{"image/jpeg", "image/png", "video/mp4", "video/quicktime"}

// Item is one media file in the workspace.
type Item struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Size         int64     `json:"size"`
	Type         string    `json:"type"`
	LastModified time.Time `json:"lastModified"`
	Path         string    `json:"path"`
	Duration     *float64  `json:"duration,omitempty"`
}

// IsVideo reports whether the item holds a video.
func (i Item) IsVideo() bool { return strings.HasPrefix(i.Type, "video/") }

// ProgressFunc receives upload progress for one file in 10% steps, from 0
// to 100.
type ProgressFunc func(name string, percent int)

// Workspace stores copies of uploaded files under its directory and keeps
// their order in the uploadedMediaFiles key.
type Workspace struct {
	mu    sync.Mutex
	dir   string
	store storage.Store
	log   *slog.Logger
	items []Item
}

// NewWorkspace loads the persisted manifest. Entries whose backing file is
// gone are dropped.
func NewWorkspace(dir string, store storage.Store, log *slog.Logger) (*Workspace, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create media directory: %w", err)
	}
	w := &Workspace{dir: dir, store: store, log: log}

	var items []Item
	if _, err := store.Get(storage.KeyMediaFiles, &items); err != nil {
		return nil, err
	}
	for _, item := range items {
		if _, err := os.Stat(item.Path); err != nil {
			log.Warn("dropping media item with missing file", "id", item.ID, "path", item.Path)
			continue
		}
		w.items = append(w.items, item)
	}
	if len(w.items) != len(items) {
		if err := w.persistLocked(); err != nil {
			return nil, err
		}
	}
	return w, nil
}

// Dir returns the workspace directory.
func (w *Workspace) Dir() string { return w.dir }

// ValidateUpload checks the name and declared size of a file.
func ValidateUpload(name string, size int64) error {
	ext := strings.ToUpper(strings.TrimPrefix(filepath.Ext(name), "."))
	if !slices.Contains(AcceptedFormats, ext) {
		return apperr.NewValidation("file", "%s is not a supported format. Use %s.", name, strings.Join(AcceptedFormats, ", "))
	}
	if size > MaxFileSize {
		return apperr.NewValidation("file", "File size exceeds 100MB limit")
	}
	return nil
}

// Add copies r into the workspace and appends it to the manifest. size is
// the declared length used for progress; pass -1 when unknown.
func (w *Workspace) Add(ctx context.Context, name string, r io.Reader, size int64, progress ProgressFunc) (Item, error) {
	name = filepath.Base(name)
	if err := ValidateUpload(name, size); err != nil {
		return Item{}, err
	}

	id := uuid.NewString()
	path := filepath.Join(w.dir, id+strings.ToLower(filepath.Ext(name)))
	written, err := w.copyFile(ctx, path, name, r, size, progress)
	if err != nil {
		_ = os.Remove(path)
		return Item{}, err
	}

	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		_ = os.Remove(path)
		return Item{}, fmt.Errorf("failed to detect media type: %w", err)
	}
	if !slices.ContainsFunc(acceptedMIME, mtype.Is) {
		_ = os.Remove(path)
		return Item{}, apperr.NewValidation("file", "%s does not contain JPG, PNG, MP4 or MOV data (detected %s)", name, mtype.String())
	}

	item := Item{
		ID:           id,
		Name:         name,
		Size:         written,
		Type:         mtype.String(),
		LastModified: time.Now().UTC(),
		Path:         path,
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.items = append(w.items, item)
	if err := w.persistLocked(); err != nil {
		w.items = w.items[:len(w.items)-1]
		_ = os.Remove(path)
		return Item{}, err
	}
	w.log.Info("media file added", "id", id, "name", name, "type", item.Type, "size", written)
	return item, nil
}

// AddFile adds a file from the local filesystem.
func (w *Workspace) AddFile(ctx context.Context, path string, progress ProgressFunc) (Item, error) {
	f, err := os.Open(path)
	if err != nil {
		return Item{}, fmt.Errorf("failed to open %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return Item{}, err
	}
	return w.Add(ctx, info.Name(), f, info.Size(), progress)
}

// Items returns the manifest in order.
func (w *Workspace) Items() []Item {
	w.mu.Lock()
	defer w.mu.Unlock()
	return slices.Clone(w.items)
}

// TotalSize sums the sizes of all items.
func (w *Workspace) TotalSize() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	var total int64
	for _, item := range w.items {
		total += item.Size
	}
	return total
}

// Manifest converts the items into export pipeline input.
func (w *Workspace) Manifest() []export.MediaRef {
	w.mu.Lock()
	defer w.mu.Unlock()
	refs := make([]export.MediaRef, len(w.items))
	for i, item := range w.items {
		refs[i] = export.MediaRef{ID: item.ID, Name: item.Name, Type: item.Type, Size: item.Size, Path: item.Path}
	}
	return refs
}

// Preview returns one item.
func (w *Workspace) Preview(id string) (Item, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	idx := w.indexLocked(id)
	if idx < 0 {
		return Item{}, fmt.Errorf("media %q: %w", id, apperr.ErrNotFound)
	}
	return w.items[idx], nil
}

// Reorder moves the item at from to position to.
func (w *Workspace) Reorder(from, to int) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	n := len(w.items)
	if from < 0 || from >= n || to < 0 || to >= n {
		return apperr.NewValidation("index", "Cannot move item %d to %d in a workspace of %d files", from, to, n)
	}
	if from == to {
		return nil
	}
	items := slices.Clone(w.items)
	moved := items[from]
	items = slices.Delete(items, from, from+1)
	items = slices.Insert(items, to, moved)

	previous := w.items
	w.items = items
	if err := w.persistLocked(); err != nil {
		w.items = previous
		return err
	}
	return nil
}

// Remove deletes an item and its backing file.
func (w *Workspace) Remove(id string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	idx := w.indexLocked(id)
	if idx < 0 {
		return fmt.Errorf("media %q: %w", id, apperr.ErrNotFound)
	}
	removed := w.items[idx]
	previous := w.items
	w.items = slices.Delete(slices.Clone(w.items), idx, idx+1)
	if err := w.persistLocked(); err != nil {
		w.items = previous
		return err
	}
	w.release(removed)
	return nil
}

// Clear deletes every item and the persisted manifest.
func (w *Workspace) Clear() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.store.Remove(storage.KeyMediaFiles); err != nil {
		return err
	}
	for _, item := range w.items {
		w.release(item)
	}
	w.items = nil
	w.log.Info("media workspace cleared")
	return nil
}

func (w *Workspace) release(item Item) {
	if err := os.Remove(item.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		w.log.Warn("failed to delete media file", "path", item.Path, "error", err)
	}
}

func (w *Workspace) indexLocked(id string) int {
	return slices.IndexFunc(w.items, func(i Item) bool { return i.ID == id })
}

func (w *Workspace) persistLocked() error {
	items := w.items
	if items == nil {
		items = []Item{}
	}
	return w.store.Set(storage.KeyMediaFiles, items)
}

func (w *Workspace) copyFile(ctx context.Context, path, name string, r io.Reader, size int64, progress ProgressFunc) (int64, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return 0, fmt.Errorf("failed to create media file: %w", err)
	}
	defer f.Close()

	pw := &progressWriter{ctx: ctx, name: name, total: size, report: progress}
	pw.emit(0)
	// One byte past the limit is enough to detect an oversized stream.
	written, err := io.Copy(io.MultiWriter(f, pw), io.LimitReader(r, MaxFileSize+1))
	if err != nil {
		return written, fmt.Errorf("failed to copy %s: %w", name, err)
	}
	if written > MaxFileSize {
		return written, apperr.NewValidation("file", "File size exceeds 100MB limit")
	}
	if written == 0 {
		return 0, apperr.NewValidation("file", "%s is empty", name)
	}
	if err := f.Sync(); err != nil {
		return written, err
	}
	pw.emit(100)
	return written, nil
}

// progressWriter reports 10% steps of a copy and aborts it when ctx ends.
type progressWriter struct {
	ctx     context.Context
	name    string
	total   int64
	written int64
	last    int
	report  ProgressFunc
}

func (p *progressWriter) Write(b []byte) (int, error) {
	if err := p.ctx.Err(); err != nil {
		return 0, err
	}
	p.written += int64(len(b))
	if p.total > 0 {
		pct := int(p.written * 100 / p.total)
		// The final 100 is reported once the file is synced.
		for step := p.last + 10; step <= pct && step < 100; step += 10 {
			p.emit(step)
		}
	}
	return len(b), nil
}

func (p *progressWriter) emit(percent int) {
	if p.report == nil {
		return
	}
	if percent != 0 && percent <= p.last {
		return
	}
	p.last = percent
	p.report(p.name, percent)
}
