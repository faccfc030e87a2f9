package models

import "time"

// KVEntry is one versioned JSON document stored under a stable key
type KVEntry struct {
	Key       string    `gorm:"primaryKey;column:kv_key;size:128" json:"key"`
	Version   int       `gorm:"not null;default:1" json:"version"`
	Value     string    `gorm:"type:text;not null" json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (KVEntry) TableName() string {
	return "kv_entries"
}
