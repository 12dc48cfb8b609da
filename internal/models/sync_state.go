package models

import (
	"time"

	"gorm.io/datatypes"
)

// SyncState records the last run of one sync mode for one credential scope.
type SyncState struct {
	Scope         string         `gorm:"primaryKey;type:text"`
	Mode          string         `gorm:"primaryKey;type:text"`
	LastAttemptAt *time.Time     `gorm:"type:timestamptz"`
	LastSuccessAt *time.Time     `gorm:"type:timestamptz"`
	LastError     *string        `gorm:"type:text"`
	StatsJSON     datatypes.JSON `gorm:"type:jsonb"`
}

func (SyncState) TableName() string {
	return "edflex_sync_state"
}
