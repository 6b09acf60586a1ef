package models

import (
	"time"
)

// StorageEntry is one key/value slot. Invoice lists are stored one slot per wallet.
type StorageEntry struct {
	Key       string    `gorm:"primaryKey;column:storage_key;size:128" json:"key"`
	Value     string    `gorm:"type:text;not null" json:"value"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName overrides the table name
func (StorageEntry) TableName() string {
	return "storage_entries"
}
