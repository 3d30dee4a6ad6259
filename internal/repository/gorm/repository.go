package gormrepository

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"pulseboard/internal/models"
	"pulseboard/internal/repository"
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(fn)
}

// --- sync runs --------------------------------------------------------------

func (s *Store) CreateSyncRun(ctx context.Context, run *models.SyncRun) error {
	if s == nil || s.db == nil || run == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(run).Error
}

func (s *Store) FinalizeSyncRun(ctx context.Context, id string, status string, finishedAt time.Time, details datatypes.JSON) error {
	if s == nil || s.db == nil || strings.TrimSpace(id) == "" {
		return nil
	}
	return s.db.WithContext(ctx).
		Model(&models.SyncRun{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":      status,
			"finished_at": finishedAt,
			"details":     details,
		}).Error
}

func (s *Store) ListSyncRuns(ctx context.Context, limit int) ([]models.SyncRun, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var runs []models.SyncRun
	if err := s.db.WithContext(ctx).
		Model(&models.SyncRun{}).
		Order("started_at desc").
		Limit(normalizeLimit(limit, 20)).
		Find(&runs).Error; err != nil {
		return nil, err
	}
	return runs, nil
}

// --- sales rows (replace-all) ----------------------------------------------

// ReplaceSalesRows deletes the full current set and inserts the fresh rows in
// batches. The delete-then-insert sequence is deliberately not wrapped in one
// transaction; a crash in between leaves the table transiently empty and the
// next run restores it.
func (s *Store) ReplaceSalesRows(ctx context.Context, rows []models.SalesRow, batchSize int) error {
	if s == nil || s.db == nil {
		return nil
	}
	if err := s.db.WithContext(ctx).
		Session(&gorm.Session{AllowGlobalUpdate: true}).
		Delete(&models.SalesRow{}).Error; err != nil {
		return err
	}
	return createInBatches(s.db.WithContext(ctx), rows, batchSize)
}

func (s *Store) ListRecentSalesRows(ctx context.Context, limit int) ([]models.SalesRow, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var rows []models.SalesRow
	if err := s.db.WithContext(ctx).
		Model(&models.SalesRow{}).
		Order("sale_date desc, amount desc, row_index desc").
		Limit(normalizeLimit(limit, 500)).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *Store) SalesDaily(ctx context.Context) ([]repository.SalesDailyRow, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var rows []repository.SalesDailyRow
	if err := s.db.WithContext(ctx).
		Model(&models.SalesRow{}).
		Select("sale_date AS date, ROUND(SUM(amount), 2) AS amount, SUM(quantity) AS count").
		Group("sale_date").
		Order("sale_date asc").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *Store) TopProductSince(ctx context.Context, minDate string) (*repository.TopProductRow, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var row repository.TopProductRow
	err := s.db.WithContext(ctx).
		Model(&models.SalesRow{}).
		Select("product_name AS name, SUM(quantity) AS count, ROUND(SUM(amount), 2) AS amount").
		Where("sale_date >= ?", minDate).
		Group("product_name").
		Order("count desc, amount desc").
		Limit(1).
		Scan(&row).Error
	if err != nil {
		return nil, err
	}
	if row.Name == "" {
		return nil, nil
	}
	return &row, nil
}

// --- video snapshots (append-only) ------------------------------------------

func (s *Store) InsertVideoSnapshot(ctx context.Context, item *models.VideoStatsSnapshot) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

// VideoDailySeries returns per destination-day the first- and last-captured
// snapshot counters, oldest day first, limited to the trailing `limit` days.
func (s *Store) VideoDailySeries(ctx context.Context, limit int) ([]repository.VideoDailyRow, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	limit = normalizeLimit(limit, 90)
	var rows []repository.VideoDailyRow
	err := s.db.WithContext(ctx).Raw(`
		WITH ranked AS (
			SELECT
				capture_date,
				view_count,
				subscriber_count,
				ROW_NUMBER() OVER (PARTITION BY capture_date ORDER BY captured_at ASC) AS rn_first,
				ROW_NUMBER() OVER (PARTITION BY capture_date ORDER BY captured_at DESC) AS rn_last
			FROM video_stats_snapshots
		),
		daily AS (
			SELECT
				capture_date AS date,
				MAX(CASE WHEN rn_first = 1 THEN view_count END) AS views_open,
				MAX(CASE WHEN rn_first = 1 THEN subscriber_count END) AS subscribers_open,
				MAX(CASE WHEN rn_last = 1 THEN view_count END) AS views,
				MAX(CASE WHEN rn_last = 1 THEN subscriber_count END) AS subscribers
			FROM ranked
			GROUP BY capture_date
		)
		SELECT date, views_open, subscribers_open, views, subscribers
		FROM daily
		ORDER BY date DESC
		LIMIT ?`, limit).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	// Oldest first for delta math.
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
	return rows, nil
}

// --- message posts (upsert-by-key) -------------------------------------------

func (s *Store) UpsertMessagePost(ctx context.Context, item *models.MessagePost) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	if strings.TrimSpace(item.ChannelID) == "" || item.MessageID == 0 {
		return errors.New("message post requires channel id and message id")
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "channel_id"}, {Name: "message_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"channel_title",
			"posted_at",
			"posted_date",
			"title",
			"excerpt",
			"body",
			"permalink",
			"raw_json",
		}),
	}).Create(item).Error
}

func (s *Store) ListLatestMessagePosts(ctx context.Context, limit int) ([]models.MessagePost, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var posts []models.MessagePost
	if err := s.db.WithContext(ctx).
		Model(&models.MessagePost{}).
		Order("posted_at desc").
		Limit(normalizeLimit(limit, 3)).
		Find(&posts).Error; err != nil {
		return nil, err
	}
	return posts, nil
}

// --- upcoming events (replace-all) -------------------------------------------

func (s *Store) ReplaceUpcomingEvents(ctx context.Context, events []models.UpcomingEvent, batchSize int) error {
	if s == nil || s.db == nil {
		return nil
	}
	if err := s.db.WithContext(ctx).
		Session(&gorm.Session{AllowGlobalUpdate: true}).
		Delete(&models.UpcomingEvent{}).Error; err != nil {
		return err
	}
	return createInBatches(s.db.WithContext(ctx), events, batchSize)
}

func (s *Store) ListUpcomingEvents(ctx context.Context, from time.Time, limit int) ([]models.UpcomingEvent, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var events []models.UpcomingEvent
	if err := s.db.WithContext(ctx).
		Model(&models.UpcomingEvent{}).
		Where("starts_at >= ?", from).
		Order("starts_at asc").
		Limit(normalizeLimit(limit, 12)).
		Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

// --- app state ----------------------------------------------------------------

func (s *Store) GetAppState(ctx context.Context, key string) (string, error) {
	if s == nil || s.db == nil {
		return "", nil
	}
	var state models.AppState
	err := s.db.WithContext(ctx).
		Where("key = ?", key).
		First(&state).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return state.Value, nil
}

func (s *Store) SetAppState(ctx context.Context, key, value string, updatedAt time.Time) error {
	if s == nil || s.db == nil || strings.TrimSpace(key) == "" {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&models.AppState{Key: key, Value: value, UpdatedAt: updatedAt}).Error
}

// --- helpers -------------------------------------------------------------------

func createInBatches[T any](db *gorm.DB, items []T, batchSize int) error {
	if len(items) == 0 {
		return nil
	}
	if batchSize <= 0 {
		batchSize = 50
	}
	for i := 0; i < len(items); i += batchSize {
		end := i + batchSize
		if end > len(items) {
			end = len(items)
		}
		if err := db.CreateInBatches(items[i:end], batchSize).Error; err != nil {
			return err
		}
	}
	return nil
}

func normalizeLimit(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > 500 {
		return 500
	}
	return limit
}
