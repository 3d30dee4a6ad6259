package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"pulseboard/internal/client/actiongw"
	"pulseboard/internal/config"
	"pulseboard/internal/jsonscan"
	"pulseboard/internal/models"
	"pulseboard/internal/normalize"
	"pulseboard/internal/repository"
)

var channelIDPattern = regexp.MustCompile(`^UC[\w-]{22}$`)

var (
	viewCountKeys       = []string{"viewCount", "view_count", "views", "viewsCount"}
	subscriberCountKeys = []string{"subscriberCount", "subscriber_count", "subscribers", "subscribersCount"}
)

// VideoSyncService captures a point-in-time snapshot of channel statistics.
// Snapshots are append-only; the daily series is derived at read time.
type VideoSyncService struct {
	Gateway  *actiongw.Client
	Repo     repository.Repository
	Config   config.YouTubeConfig
	Account  string
	Location *time.Location
	Logger   *zap.Logger
}

func (s *VideoSyncService) Name() string { return "youtube" }

func (s *VideoSyncService) Sync(ctx context.Context, runID string) TaskOutcome {
	if s.Gateway == nil || strings.TrimSpace(s.Gateway.APIKey) == "" {
		return TaskOutcome{Name: s.Name(), Status: TaskSkipped, Detail: "gateway api key not configured"}
	}

	detail, err := s.sync(ctx, runID)
	if err != nil {
		if s.Logger != nil {
			s.Logger.Warn("video stats sync failed", zap.String("run_id", runID), zap.Error(err))
		}
		return TaskOutcome{Name: s.Name(), Status: TaskError, Detail: err.Error()}
	}
	return TaskOutcome{Name: s.Name(), Status: TaskOK, Detail: detail}
}

func (s *VideoSyncService) sync(ctx context.Context, runID string) (string, error) {
	channelID, err := s.resolveChannelID(ctx)
	if err != nil {
		return "", err
	}

	payload, err := s.Gateway.Execute(ctx, "YOUTUBE_GET_CHANNEL_STATISTICS", map[string]any{
		"part":      "statistics,snippet",
		"channelId": channelID,
		"id":        channelID,
	}, s.Account)
	if err != nil {
		return "", err
	}

	views, ok := jsonscan.FirstNumberByKeys(payload, viewCountKeys)
	if !ok {
		return "", errors.New("channel statistics payload has no view count")
	}
	subscribers, ok := jsonscan.FirstNumberByKeys(payload, subscriberCountKeys)
	if !ok {
		return "", errors.New("channel statistics payload has no subscriber count")
	}

	now := time.Now().UTC()
	rawJSON, _ := json.Marshal(payload)
	snapshot := &models.VideoStatsSnapshot{
		ID:              uuid.NewString(),
		RunID:           runID,
		CapturedAt:      now,
		CaptureDate:     normalize.ToDestinationDay(now, s.Location),
		ViewCount:       clampCount(views),
		SubscriberCount: clampCount(subscribers),
		RawJSON:         datatypes.JSON(rawJSON),
	}
	if err := s.Repo.InsertVideoSnapshot(ctx, snapshot); err != nil {
		return "", err
	}
	return fmt.Sprintf("captured snapshot: %d views, %d subscribers", snapshot.ViewCount, snapshot.SubscriberCount), nil
}

// resolveChannelID works down the chain: explicit config, handle lookup, and
// finally the authenticated account's own channel.
func (s *VideoSyncService) resolveChannelID(ctx context.Context) (string, error) {
	if id := strings.TrimSpace(s.Config.ChannelID); id != "" {
		return id, nil
	}

	if handle := strings.TrimSpace(s.Config.ChannelHandle); handle != "" {
		payload, err := s.Gateway.Execute(ctx, "YOUTUBE_GET_CHANNEL_ID_BY_HANDLE", map[string]any{
			"channel_handle": handle,
		}, s.Account)
		if err == nil {
			if id := jsonscan.FirstStringMatch(payload, channelIDPattern); id != "" {
				return id, nil
			}
		} else if s.Logger != nil {
			s.Logger.Debug("channel handle lookup failed", zap.String("handle", handle), zap.Error(err))
		}
	}

	payload, err := s.Gateway.Execute(ctx, "YOUTUBE_LIST_CHANNEL_VIDEOS", map[string]any{
		"mine":       true,
		"maxResults": 1,
		"part":       "snippet",
	}, s.Account)
	if err == nil {
		if id := jsonscan.FirstStringMatch(payload, channelIDPattern); id != "" {
			return id, nil
		}
	}
	return "", errors.New("cannot resolve channel id from config, handle, or authenticated channel")
}

func clampCount(value float64) int64 {
	if value < 0 || math.IsNaN(value) || math.IsInf(value, 0) {
		return 0
	}
	return int64(math.Trunc(value))
}
