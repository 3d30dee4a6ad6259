package db

import (
	"pulseboard/internal/models"
)

func AutoMigrate(db *DB) error {
	if db == nil || db.Gorm == nil || db.SQL == nil {
		return nil
	}

	return db.Gorm.AutoMigrate(
		&models.SyncRun{},
		&models.SalesRow{},
		&models.VideoStatsSnapshot{},
		&models.MessagePost{},
		&models.UpcomingEvent{},
		&models.AppState{},
	)
}
