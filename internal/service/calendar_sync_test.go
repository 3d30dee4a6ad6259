package service

import (
	"testing"
	"time"
)

func calWindow() (time.Time, time.Time) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return start, start.Add(72 * time.Hour)
}

func TestExtractCalendarEvents_FiltersAndSorts(t *testing.T) {
	windowStart, windowEnd := calWindow()
	payload := map[string]any{
		"items": []any{
			map[string]any{
				"id":      "late",
				"summary": "Later meeting",
				"start":   map[string]any{"dateTime": "2026-03-02T10:00:00Z"},
				"end":     map[string]any{"dateTime": "2026-03-02T11:00:00Z"},
			},
			map[string]any{
				"id":      "early",
				"summary": "Earlier meeting",
				"start":   map[string]any{"dateTime": "2026-03-01T15:00:00Z"},
			},
			map[string]any{
				"id":      "cancelled",
				"summary": "Gone",
				"status":  "CANCELLED",
				"start":   map[string]any{"dateTime": "2026-03-01T16:00:00Z"},
			},
			map[string]any{
				"id":      "outside",
				"summary": "Too far out",
				"start":   map[string]any{"dateTime": "2026-03-10T10:00:00Z"},
			},
			map[string]any{
				"summary": "No id",
				"start":   map[string]any{"dateTime": "2026-03-01T17:00:00Z"},
			},
		},
	}

	events := extractCalendarEvents(payload, windowStart, windowEnd, "run-1")
	if len(events) != 2 {
		t.Fatalf("events=%d want 2", len(events))
	}
	if events[0].EventID != "early" || events[1].EventID != "late" {
		t.Fatalf("order wrong: %s, %s", events[0].EventID, events[1].EventID)
	}
	if events[1].EndsAt == nil {
		t.Fatalf("end time lost")
	}
	if events[0].Status != "confirmed" {
		t.Fatalf("default status=%q", events[0].Status)
	}
}

func TestExtractCalendarEvents_DeduplicatesAcrossShapes(t *testing.T) {
	windowStart, windowEnd := calWindow()
	event := map[string]any{
		"id":    "ev-1",
		"title": "Standup",
		"start": "2026-03-02T09:00:00Z",
	}
	// The same event reachable both through the known wrapper and the
	// generic array scan must come out once.
	payload := map[string]any{
		"data": map[string]any{"items": []any{event}},
	}

	events := extractCalendarEvents(payload, windowStart, windowEnd, "run-1")
	if len(events) != 1 {
		t.Fatalf("events=%d want 1", len(events))
	}
	if events[0].Title != "Standup" {
		t.Fatalf("title=%q", events[0].Title)
	}
}

func TestExtractCalendarEvents_AllDayDate(t *testing.T) {
	windowStart, windowEnd := calWindow()
	payload := []any{
		map[string]any{
			"id":    "allday",
			"start": map[string]any{"date": "2026-03-02"},
		},
	}

	events := extractCalendarEvents(payload, windowStart, windowEnd, "run-1")
	if len(events) != 1 {
		t.Fatalf("events=%d want 1", len(events))
	}
	want := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	if !events[0].StartsAt.Equal(want) {
		t.Fatalf("startsAt=%v want %v", events[0].StartsAt, want)
	}
	if events[0].Title != "Untitled" {
		t.Fatalf("title=%q", events[0].Title)
	}
}

func TestParseCalendarEvent_OrganizerAsCalendarID(t *testing.T) {
	obj := map[string]any{
		"id":        "ev-2",
		"summary":   "Review",
		"start":     map[string]any{"dateTime": "2026-03-02T09:00:00Z"},
		"organizer": map[string]any{"email": "team@example.com"},
		"htmlLink":  "https://calendar.example.com/ev-2",
		"location":  "Room 4",
	}
	event, ok := parseCalendarEvent(obj, "run-1")
	if !ok {
		t.Fatalf("event rejected")
	}
	if event.CalendarID == nil || *event.CalendarID != "team@example.com" {
		t.Fatalf("calendarID=%v", event.CalendarID)
	}
	if event.Link == nil || *event.Link != "https://calendar.example.com/ev-2" {
		t.Fatalf("link=%v", event.Link)
	}
	if event.Location == nil || *event.Location != "Room 4" {
		t.Fatalf("location=%v", event.Location)
	}
}
