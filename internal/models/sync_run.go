package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	TriggerManual    = "manual"
	TriggerScheduled = "scheduled"
	TriggerPush      = "push"
)

const (
	RunStatusRunning        = "running"
	RunStatusSuccess        = "success"
	RunStatusPartialSuccess = "partial_success"
	RunStatusFailed         = "failed"
)

// SyncRun records one orchestrator invocation covering all source ingestors.
type SyncRun struct {
	ID          string         `gorm:"primaryKey;type:text"`
	TriggerKind string         `gorm:"type:text;not null"`
	StartedAt   time.Time      `gorm:"type:timestamptz;not null"`
	FinishedAt  *time.Time     `gorm:"type:timestamptz"`
	Status      string         `gorm:"type:text;not null;index"`
	Details     datatypes.JSON `gorm:"type:jsonb"`
}

func (SyncRun) TableName() string {
	return "sync_runs"
}
