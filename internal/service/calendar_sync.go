package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"pulseboard/internal/client/actiongw"
	"pulseboard/internal/config"
	"pulseboard/internal/jsonscan"
	"pulseboard/internal/models"
	"pulseboard/internal/repository"
)

const (
	calendarBatchSize = 50
	calendarMaxEvents = 100
)

// CalendarSyncService loads events starting within the forward horizon and
// replaces the upcoming-events table wholesale.
type CalendarSyncService struct {
	Gateway  *actiongw.Client
	Repo     repository.Repository
	Config   config.CalendarConfig
	Account  string
	Location *time.Location
	Logger   *zap.Logger
}

func (s *CalendarSyncService) Name() string { return "calendar" }

func (s *CalendarSyncService) Sync(ctx context.Context, runID string) TaskOutcome {
	if s.Gateway == nil || strings.TrimSpace(s.Gateway.APIKey) == "" {
		return TaskOutcome{Name: s.Name(), Status: TaskSkipped, Detail: "gateway api key not configured"}
	}

	detail, err := s.sync(ctx, runID)
	if err != nil {
		if s.Logger != nil {
			s.Logger.Warn("calendar sync failed", zap.String("run_id", runID), zap.Error(err))
		}
		return TaskOutcome{Name: s.Name(), Status: TaskError, Detail: err.Error()}
	}
	return TaskOutcome{Name: s.Name(), Status: TaskOK, Detail: detail}
}

func (s *CalendarSyncService) sync(ctx context.Context, runID string) (string, error) {
	calendarID := strings.TrimSpace(s.Config.CalendarID)
	if calendarID == "" {
		calendarID = "primary"
	}
	horizon := time.Duration(s.Config.HorizonHours) * time.Hour
	if horizon <= 0 {
		horizon = 72 * time.Hour
	}
	timeZone := "UTC"
	if s.Location != nil {
		timeZone = s.Location.String()
	}

	now := time.Now().UTC()
	windowEnd := now.Add(horizon)

	payload, err := s.Gateway.Execute(ctx, "GOOGLECALENDAR_EVENTS_LIST", map[string]any{
		"calendarId":   calendarID,
		"timeMin":      now.Format(time.RFC3339),
		"timeMax":      windowEnd.Format(time.RFC3339),
		"singleEvents": true,
		"orderBy":      "startTime",
		"showDeleted":  false,
		"maxResults":   calendarMaxEvents,
		"timeZone":     timeZone,
	}, s.Account)
	if err != nil {
		return "", err
	}

	events := extractCalendarEvents(payload, now, windowEnd, runID)
	if err := s.Repo.ReplaceUpcomingEvents(ctx, events, calendarBatchSize); err != nil {
		return "", err
	}
	return fmt.Sprintf("loaded %d calendar events", len(events)), nil
}

// extractCalendarEvents tries the known wrapper shapes first and then every
// array in the payload, keeping events that start inside the window, are not
// cancelled, and have not been seen under the same (id, start) key.
func extractCalendarEvents(payload any, windowStart, windowEnd time.Time, runID string) []models.UpcomingEvent {
	var candidates [][]any
	if arr := jsonscan.AsArray(payload); arr != nil {
		candidates = append(candidates, arr)
	}
	if obj := jsonscan.AsObject(payload); obj != nil {
		for _, key := range []string{"items", "events"} {
			if arr := jsonscan.AsArray(obj[key]); arr != nil {
				candidates = append(candidates, arr)
			}
		}
		if data := jsonscan.AsObject(obj["data"]); data != nil {
			for _, key := range []string{"items", "events"} {
				if arr := jsonscan.AsArray(data[key]); arr != nil {
					candidates = append(candidates, arr)
				}
			}
		}
	}
	candidates = append(candidates, jsonscan.CollectArrays(payload)...)

	seen := make(map[string]struct{})
	var events []models.UpcomingEvent
	for _, candidate := range candidates {
		for _, item := range candidate {
			obj := jsonscan.AsObject(item)
			if obj == nil {
				continue
			}
			event, ok := parseCalendarEvent(obj, runID)
			if !ok {
				continue
			}
			if event.StartsAt.Before(windowStart) || event.StartsAt.After(windowEnd) {
				continue
			}
			if strings.EqualFold(event.Status, "cancelled") {
				continue
			}
			key := event.EventID + "|" + event.StartsAt.Format(time.RFC3339)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			events = append(events, event)
		}
	}

	sort.Slice(events, func(i, j int) bool {
		return events[i].StartsAt.Before(events[j].StartsAt)
	})
	return events
}

func parseCalendarEvent(obj map[string]any, runID string) (models.UpcomingEvent, bool) {
	eventID := jsonscan.StringField(obj, "id", "event_id", "eventId")
	if eventID == "" {
		return models.UpcomingEvent{}, false
	}
	startsAt, ok := eventTime(firstPresent(obj, "start", "start_time", "startTime"))
	if !ok {
		return models.UpcomingEvent{}, false
	}

	title := jsonscan.StringField(obj, "summary", "title")
	if title == "" {
		title = "Untitled"
	}
	status := jsonscan.StringField(obj, "status")
	if status == "" {
		status = "confirmed"
	}

	event := models.UpcomingEvent{
		ID:          uuid.NewString(),
		RunID:       runID,
		EventID:     eventID,
		Title:       title,
		Description: jsonscan.StringField(obj, "description"),
		StartsAt:    startsAt,
		Status:      status,
	}
	if location := jsonscan.StringField(obj, "location"); location != "" {
		event.Location = &location
	}
	if link := jsonscan.StringField(obj, "htmlLink", "html_link", "url"); link != "" {
		event.Link = &link
	}
	if endsAt, ok := eventTime(firstPresent(obj, "end", "end_time", "endTime")); ok {
		event.EndsAt = &endsAt
	}
	if calID := calendarIDFrom(obj); calID != "" {
		event.CalendarID = &calID
	}
	if raw, err := json.Marshal(obj); err == nil {
		event.RawJSON = datatypes.JSON(raw)
	}
	return event, true
}

func calendarIDFrom(obj map[string]any) string {
	if id := jsonscan.StringField(obj, "calendarId", "calendar_id"); id != "" {
		return id
	}
	if organizer := jsonscan.AsObject(obj["organizer"]); organizer != nil {
		return jsonscan.StringField(organizer, "email", "id")
	}
	return ""
}

// eventTime resolves a start/end value that is either an ISO string or the
// Google-style {dateTime}/{date} object; all-day dates become UTC midnight.
func eventTime(value any) (time.Time, bool) {
	switch v := value.(type) {
	case string:
		return parseInstant(v)
	case map[string]any:
		if raw := jsonscan.StringField(v, "dateTime", "datetime"); raw != "" {
			return parseInstant(raw)
		}
		if raw := jsonscan.StringField(v, "date"); raw != "" {
			return parseInstant(raw + "T00:00:00Z")
		}
	}
	return time.Time{}, false
}

func parseInstant(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func firstPresent(obj map[string]any, keys ...string) any {
	for _, key := range keys {
		if value, ok := obj[key]; ok && value != nil {
			return value
		}
	}
	return nil
}
