// Package storage persists small JSON documents under stable keys.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"reelsmith-desktop/internal/apperr"
	"reelsmith-desktop/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Persisted keys.
const (
	KeyIdeas            = "reelIdeas"
	KeyMediaFiles       = "uploadedMediaFiles"
	KeySelectedTemplate = "selectedTemplate"
	KeySelectedIdea     = "selectedReelIdea"
	KeySettings         = "reelsmith_settings"
	KeyExportSettings   = "reelsmith_export_settings"
	KeyGeminiAPIKey     = "gemini_api_key_enc"
)

// SchemaVersion is written with every value. Reading a value stored under a
// different version fails with a *apperr.PersistenceError.
const SchemaVersion = 1

var errVersionMismatch = errors.New("schema version mismatch")

// Store reads and writes JSON-encoded values.
type Store interface {
	// Get decodes the value stored at key into dst. It reports false when
	// the key is absent.
	Get(key string, dst any) (bool, error)
	Set(key string, value any) error
	Remove(key string) error
}

// GormStore keeps values in the kv_entries table.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates a store backed by db. The kv_entries table must exist.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Get(key string, dst any) (bool, error) {
	var entry models.KVEntry
	if err := s.db.First(&entry, "kv_key = ?", key).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, &apperr.PersistenceError{Key: key, Op: "read", Err: err}
	}
	if err := decode(key, entry.Version, []byte(entry.Value), dst); err != nil {
		return false, err
	}
	return true, nil
}

func (s *GormStore) Set(key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return &apperr.PersistenceError{Key: key, Op: "encode", Err: err}
	}
	entry := models.KVEntry{
		Key:       key,
		Version:   SchemaVersion,
		Value:     string(data),
		UpdatedAt: time.Now(),
	}
	err = s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "kv_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"version", "value", "updated_at"}),
	}).Create(&entry).Error
	if err != nil {
		return &apperr.PersistenceError{Key: key, Op: "write", Err: err}
	}
	return nil
}

func (s *GormStore) Remove(key string) error {
	if err := s.db.Delete(&models.KVEntry{}, "kv_key = ?", key).Error; err != nil {
		return &apperr.PersistenceError{Key: key, Op: "delete", Err: err}
	}
	return nil
}

// MemoryStore is an in-process Store used by tests and the CLI dry-run paths.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
}

type memoryEntry struct {
	version int
	value   []byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]memoryEntry)}
}

func (s *MemoryStore) Get(key string, dst any) (bool, error) {
	s.mu.RLock()
	entry, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if err := decode(key, entry.version, entry.value, dst); err != nil {
		return false, err
	}
	return true, nil
}

func (s *MemoryStore) Set(key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return &apperr.PersistenceError{Key: key, Op: "encode", Err: err}
	}
	s.mu.Lock()
	s.entries[key] = memoryEntry{version: SchemaVersion, value: data}
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Remove(key string) error {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
	return nil
}

// SetRaw stores value under an explicit version, bypassing encoding.
func (s *MemoryStore) SetRaw(key string, version int, value []byte) {
	s.mu.Lock()
	s.entries[key] = memoryEntry{version: version, value: value}
	s.mu.Unlock()
}

func decode(key string, version int, data []byte, dst any) error {
	if version != SchemaVersion {
		return &apperr.PersistenceError{
			Key: key,
			Op:  "read",
			Err: fmt.Errorf("%w: stored %d, expected %d", errVersionMismatch, version, SchemaVersion),
		}
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return &apperr.PersistenceError{Key: key, Op: "decode", Err: err}
	}
	return nil
}
