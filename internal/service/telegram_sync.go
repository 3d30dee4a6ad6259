package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"pulseboard/internal/client/telegram"
	"pulseboard/internal/config"
	"pulseboard/internal/models"
	"pulseboard/internal/normalize"
	"pulseboard/internal/repository"
)

const (
	telegramOffsetKey = "telegram_update_offset"

	postTitleMaxLen   = 110
	postExcerptMaxLen = 160
)

// TelegramSyncService ingests channel posts two ways: the scheduled pull over
// getUpdates with a persisted cursor, and the webhook push path. Both funnel
// into the same idempotent upsert.
type TelegramSyncService struct {
	Client   *telegram.Client
	Repo     repository.Repository
	Config   config.TelegramConfig
	Location *time.Location
	Logger   *zap.Logger
}

func (s *TelegramSyncService) Name() string { return "telegram" }

func (s *TelegramSyncService) Sync(ctx context.Context, runID string) TaskOutcome {
	if strings.TrimSpace(s.Config.BotToken) == "" || s.Client == nil {
		return TaskOutcome{Name: s.Name(), Status: TaskSkipped, Detail: "bot token not configured"}
	}

	detail, err := s.pull(ctx, runID)
	if err != nil {
		if s.Logger != nil {
			s.Logger.Warn("telegram sync failed", zap.String("run_id", runID), zap.Error(err))
		}
		return TaskOutcome{Name: s.Name(), Status: TaskError, Detail: err.Error()}
	}
	return TaskOutcome{Name: s.Name(), Status: TaskOK, Detail: detail}
}

func (s *TelegramSyncService) pull(ctx context.Context, runID string) (string, error) {
	offset, err := s.loadOffset(ctx)
	if err != nil {
		return "", err
	}

	envelopes, err := s.Client.GetUpdates(ctx, offset, 100)
	if err != nil {
		return "", err
	}

	nextOffset := offset
	for _, env := range envelopes {
		if env.Update.UpdateID+1 > nextOffset {
			nextOffset = env.Update.UpdateID + 1
		}
		if err := s.ProcessUpdate(ctx, env, &runID); err != nil {
			return "", err
		}
	}

	// The cursor only moves forward, and only after every update in the
	// batch has been persisted.
	if nextOffset > offset {
		if err := s.Repo.SetAppState(ctx, telegramOffsetKey, strconv.FormatInt(nextOffset, 10), time.Now().UTC()); err != nil {
			return "", err
		}
	}
	return fmt.Sprintf("processed %d updates", len(envelopes)), nil
}

func (s *TelegramSyncService) loadOffset(ctx context.Context) (int64, error) {
	raw, err := s.Repo.GetAppState(ctx, telegramOffsetKey)
	if err != nil {
		return 0, err
	}
	if strings.TrimSpace(raw) == "" {
		return 0, nil
	}
	offset, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || offset < 0 {
		return 0, nil
	}
	return offset, nil
}

// ProcessUpdate persists one update's channel post. Updates without a channel
// post, with an unusable chat, or from a channel outside the allow-list are
// silently dropped. runID is nil on the webhook path.
func (s *TelegramSyncService) ProcessUpdate(ctx context.Context, env telegram.Envelope, runID *string) error {
	post := env.Update.ChannelPost
	if post == nil {
		return nil
	}
	if post.Chat.ID == 0 || post.MessageID == 0 {
		return nil
	}
	channelID := strconv.FormatInt(post.Chat.ID, 10)
	if allowed := strings.TrimSpace(s.Config.ChannelID); allowed != "" && allowed != channelID {
		return nil
	}

	postedAt := time.Now().UTC()
	if post.Date > 0 {
		postedAt = time.Unix(post.Date, 0).UTC()
	}

	channelTitle := strings.TrimSpace(post.Chat.Title)
	if channelTitle == "" {
		channelTitle = strings.TrimSpace(post.Chat.Username)
	}
	if channelTitle == "" {
		channelTitle = "Telegram"
	}

	body := strings.TrimSpace(post.Text)
	if body == "" {
		body = strings.TrimSpace(post.Caption)
	}

	item := &models.MessagePost{
		ID:           uuid.NewString(),
		RunID:        runID,
		ChannelID:    channelID,
		ChannelTitle: channelTitle,
		MessageID:    post.MessageID,
		PostedAt:     postedAt,
		PostedDate:   normalize.ToDestinationDay(postedAt, s.Location),
		Title:        postTitle(body),
		Excerpt:      postExcerpt(body),
		Body:         body,
		Permalink:    postPermalink(post.Chat.Username, channelID, post.MessageID),
		RawJSON:      datatypes.JSON(env.Raw),
	}
	return s.Repo.UpsertMessagePost(ctx, item)
}

// postTitle is the first non-blank line of the body, capped.
func postTitle(body string) string {
	for _, line := range strings.Split(body, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			return normalize.Truncate(trimmed, postTitleMaxLen)
		}
	}
	return "New post"
}

func postExcerpt(body string) string {
	flat := normalize.CollapseWhitespace(body)
	runes := []rune(flat)
	if len(runes) > postExcerptMaxLen {
		return string(runes[:postExcerptMaxLen])
	}
	return flat
}

// postPermalink builds a t.me link: public channels by username, private
// supergroup-style ids via the /c/ form with the -100 prefix stripped.
func postPermalink(username, channelID string, messageID int64) *string {
	msgID := strconv.FormatInt(messageID, 10)
	if u := strings.TrimSpace(username); u != "" {
		link := "https://t.me/" + u + "/" + msgID
		return &link
	}
	if strings.HasPrefix(channelID, "-100") && len(channelID) > 4 {
		link := "https://t.me/c/" + channelID[4:] + "/" + msgID
		return &link
	}
	return nil
}
