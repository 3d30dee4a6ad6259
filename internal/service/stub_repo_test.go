package service

import (
	"context"
	"strconv"
	"sync"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"pulseboard/internal/models"
	"pulseboard/internal/repository"
)

// stubRepo is a test-only in-memory implementation of repository.Repository.
// It implements the full interface but each test exercises only a slice of it.
type stubRepo struct {
	mu sync.Mutex

	runs        map[string]*models.SyncRun
	salesRows   []models.SalesRow
	snapshots   []models.VideoStatsSnapshot
	posts       map[string]models.MessagePost
	events      []models.UpcomingEvent
	state       map[string]string
	salesDaily  []repository.SalesDailyRow
	videoSeries []repository.VideoDailyRow
	topProduct  *repository.TopProductRow
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		runs:  map[string]*models.SyncRun{},
		posts: map[string]models.MessagePost{},
		state: map[string]string{},
	}
}

func (s *stubRepo) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error { return fn(nil) }

func (s *stubRepo) CreateSyncRun(ctx context.Context, run *models.SyncRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *run
	s.runs[run.ID] = &copied
	return nil
}

func (s *stubRepo) FinalizeSyncRun(ctx context.Context, id string, status string, finishedAt time.Time, details datatypes.JSON) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if run, ok := s.runs[id]; ok {
		run.Status = status
		run.FinishedAt = &finishedAt
		run.Details = details
	}
	return nil
}

func (s *stubRepo) ListSyncRuns(ctx context.Context, limit int) ([]models.SyncRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var runs []models.SyncRun
	for _, run := range s.runs {
		runs = append(runs, *run)
	}
	return runs, nil
}

func (s *stubRepo) ReplaceSalesRows(ctx context.Context, rows []models.SalesRow, batchSize int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.salesRows = append([]models.SalesRow(nil), rows...)
	return nil
}

func (s *stubRepo) ListRecentSalesRows(ctx context.Context, limit int) ([]models.SalesRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.SalesRow(nil), s.salesRows...), nil
}

func (s *stubRepo) SalesDaily(ctx context.Context) ([]repository.SalesDailyRow, error) {
	return s.salesDaily, nil
}

func (s *stubRepo) TopProductSince(ctx context.Context, minDate string) (*repository.TopProductRow, error) {
	return s.topProduct, nil
}

func (s *stubRepo) InsertVideoSnapshot(ctx context.Context, item *models.VideoStatsSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots = append(s.snapshots, *item)
	return nil
}

func (s *stubRepo) VideoDailySeries(ctx context.Context, limit int) ([]repository.VideoDailyRow, error) {
	return s.videoSeries, nil
}

func (s *stubRepo) UpsertMessagePost(ctx context.Context, item *models.MessagePost) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := item.ChannelID + "|" + strconv.FormatInt(item.MessageID, 10)
	s.posts[key] = *item
	return nil
}

func (s *stubRepo) ListLatestMessagePosts(ctx context.Context, limit int) ([]models.MessagePost, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var posts []models.MessagePost
	for _, post := range s.posts {
		posts = append(posts, post)
	}
	return posts, nil
}

func (s *stubRepo) ReplaceUpcomingEvents(ctx context.Context, events []models.UpcomingEvent, batchSize int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append([]models.UpcomingEvent(nil), events...)
	return nil
}

func (s *stubRepo) ListUpcomingEvents(ctx context.Context, from time.Time, limit int) ([]models.UpcomingEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.UpcomingEvent(nil), s.events...), nil
}

func (s *stubRepo) GetAppState(ctx context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state[key], nil
}

func (s *stubRepo) SetAppState(ctx context.Context, key, value string, updatedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state[key] = value
	return nil
}
