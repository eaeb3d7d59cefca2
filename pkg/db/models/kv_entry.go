package models

import "time"

// KVEntry is one device-local storage key.
type KVEntry struct {
	Key       string    `gorm:"column:storage_key;primaryKey"`
	Value     string    `gorm:"column:value;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null"`
}

func (KVEntry) TableName() string { return "kv_entries" }
