package models

import "time"

// AppState is a key/value map for small persisted state, currently the
// message-ingestion pagination offset.
type AppState struct {
	Key       string    `gorm:"primaryKey;type:text"`
	Value     string    `gorm:"type:text;not null"`
	UpdatedAt time.Time `gorm:"type:timestamptz;not null"`
}

func (AppState) TableName() string {
	return "app_state"
}
