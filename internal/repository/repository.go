package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"pulseboard/internal/models"
)

// Repository is the persistence boundary for the sync pipeline and the
// dashboard read side. Write methods follow each entity's WritePolicy.
type Repository interface {
	InTx(ctx context.Context, fn func(tx *gorm.DB) error) error

	// Sync runs.
	CreateSyncRun(ctx context.Context, run *models.SyncRun) error
	FinalizeSyncRun(ctx context.Context, id string, status string, finishedAt time.Time, details datatypes.JSON) error
	ListSyncRuns(ctx context.Context, limit int) ([]models.SyncRun, error)

	// Sales rows: replace-all.
	ReplaceSalesRows(ctx context.Context, rows []models.SalesRow, batchSize int) error
	ListRecentSalesRows(ctx context.Context, limit int) ([]models.SalesRow, error)
	SalesDaily(ctx context.Context) ([]SalesDailyRow, error)
	TopProductSince(ctx context.Context, minDate string) (*TopProductRow, error)

	// Video snapshots: append-only.
	InsertVideoSnapshot(ctx context.Context, item *models.VideoStatsSnapshot) error
	VideoDailySeries(ctx context.Context, limit int) ([]VideoDailyRow, error)

	// Message posts: upsert-by-key.
	UpsertMessagePost(ctx context.Context, item *models.MessagePost) error
	ListLatestMessagePosts(ctx context.Context, limit int) ([]models.MessagePost, error)

	// Upcoming events: replace-all.
	ReplaceUpcomingEvents(ctx context.Context, events []models.UpcomingEvent, batchSize int) error
	ListUpcomingEvents(ctx context.Context, from time.Time, limit int) ([]models.UpcomingEvent, error)

	// App state (cursor storage).
	GetAppState(ctx context.Context, key string) (string, error)
	SetAppState(ctx context.Context, key, value string, updatedAt time.Time) error
}

type SalesDailyRow struct {
	Date   string
	Amount decimal.Decimal
	Count  int64
}

type TopProductRow struct {
	Name   string
	Count  int64
	Amount decimal.Decimal
}

// VideoDailyRow carries the first- and last-captured counters of one
// destination day; delta math happens in the aggregator.
type VideoDailyRow struct {
	Date            string
	ViewsOpen       int64
	SubscribersOpen int64
	Views           int64
	Subscribers     int64
}
