package models

import (
	"time"

	"gorm.io/datatypes"
)

// UpcomingEvent is a calendar event starting within the forward horizon.
// The full set is replaced on every successful calendar sync.
type UpcomingEvent struct {
	ID          string         `gorm:"primaryKey;type:text"`
	RunID       string         `gorm:"type:text;index"`
	EventID     string         `gorm:"type:text;not null"`
	CalendarID  *string        `gorm:"type:text"`
	Title       string         `gorm:"type:text;not null"`
	Description string         `gorm:"type:text;not null"`
	Location    *string        `gorm:"type:text"`
	StartsAt    time.Time      `gorm:"type:timestamptz;not null;index"`
	EndsAt      *time.Time     `gorm:"type:timestamptz"`
	Link        *string        `gorm:"type:text"`
	Status      string         `gorm:"type:text;not null"`
	RawJSON     datatypes.JSON `gorm:"type:jsonb"`
}

func (UpcomingEvent) TableName() string {
	return "upcoming_events"
}
