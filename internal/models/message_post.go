package models

import (
	"time"

	"gorm.io/datatypes"
)

// MessagePost is a channel post keyed by (channel id, message id). Re-delivery
// of the same key updates the derived fields in place, which makes both the
// pull and the webhook path idempotent.
type MessagePost struct {
	ID           string         `gorm:"primaryKey;type:text"`
	RunID        *string        `gorm:"type:text;index"`
	ChannelID    string         `gorm:"type:text;not null;uniqueIndex:uniq_channel_message,priority:1"`
	ChannelTitle string         `gorm:"type:text;not null"`
	MessageID    int64          `gorm:"not null;uniqueIndex:uniq_channel_message,priority:2"`
	PostedAt     time.Time      `gorm:"type:timestamptz;not null;index"`
	PostedDate   string         `gorm:"type:text;not null"`
	Title        string         `gorm:"type:text;not null"`
	Excerpt      string         `gorm:"type:text;not null"`
	Body         string         `gorm:"type:text;not null"`
	Permalink    *string        `gorm:"type:text"`
	RawJSON      datatypes.JSON `gorm:"type:jsonb"`
}

func (MessagePost) TableName() string {
	return "message_posts"
}
