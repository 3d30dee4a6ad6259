package models

import (
	"time"

	"gorm.io/datatypes"
)

// VideoStatsSnapshot is a point-in-time capture of channel statistics.
// Append-only; snapshots are never mutated or deleted.
type VideoStatsSnapshot struct {
	ID              string         `gorm:"primaryKey;type:text"`
	RunID           string         `gorm:"type:text;index"`
	CapturedAt      time.Time      `gorm:"type:timestamptz;not null;index"`
	CaptureDate     string         `gorm:"type:text;not null;index"`
	ViewCount       int64          `gorm:"not null"`
	SubscriberCount int64          `gorm:"not null"`
	RawJSON         datatypes.JSON `gorm:"type:jsonb"`
}

func (VideoStatsSnapshot) TableName() string {
	return "video_stats_snapshots"
}
