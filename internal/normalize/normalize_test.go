package normalize

import (
	"testing"
	"time"
)

func TestParseLocaleNumber(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"1.234,56", 1234.56, true},
		{"1,234.56", 1234.56, true},
		{"1234,56", 1234.56, true},
		{"1234.56", 1234.56, true},
		{"  12 345 ", 12345, true},
		{"$99.90", 99.9, true},
		{"-5,5", -5.5, true},
		{"", 0, false},
		{"abc", 0, false},
		{"--", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseLocaleNumber(tt.in)
		if ok != tt.ok || (ok && got != tt.want) {
			t.Fatalf("ParseLocaleNumber(%q) = %v,%v want %v,%v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestParseLocaleNumberSeparatorConventionsAgree(t *testing.T) {
	a, okA := ParseLocaleNumber("1.234,56")
	b, okB := ParseLocaleNumber("1,234.56")
	if !okA || !okB || a != b || a != 1234.56 {
		t.Fatalf("got %v/%v and %v/%v, want both 1234.56", a, okA, b, okB)
	}
}

func TestNormalizeDate(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"05.03.2026", "2026-03-05", true},
		{"2026-03-05", "2026-03-05", true},
		{"2026-03-05T12:30:00Z", "2026-03-05", true},
		{"not a date", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := NormalizeDate(tt.in)
		if ok != tt.ok || got != tt.want {
			t.Fatalf("NormalizeDate(%q) = %q,%v want %q,%v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestContentHashStable(t *testing.T) {
	a := ContentHash("2026-03-05", "Widget", "3", "29.97", "2")
	b := ContentHash("2026-03-05", "Widget", "3", "29.97", "2")
	if a != b {
		t.Fatalf("hash not stable: %s vs %s", a, b)
	}
	if len(a) != 8 {
		t.Fatalf("hash length = %d want 8", len(a))
	}
	if c := ContentHash("2026-03-05", "Widget", "3", "29.97", "3"); c == a {
		t.Fatalf("row position must affect the hash")
	}
}

func TestToDestinationDay(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Moscow")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	// 23:30 UTC is already the next day in Moscow (UTC+3).
	instant := time.Date(2026, 3, 5, 23, 30, 0, 0, time.UTC)
	if got := ToDestinationDay(instant, loc); got != "2026-03-06" {
		t.Fatalf("got %q want 2026-03-06", got)
	}
	if got := ToDestinationDay(instant, nil); got != "2026-03-05" {
		t.Fatalf("nil location should project in UTC, got %q", got)
	}
}

func TestChunk(t *testing.T) {
	chunks := Chunk([]int{1, 2, 3, 4, 5}, 2)
	if len(chunks) != 3 || len(chunks[0]) != 2 || len(chunks[2]) != 1 {
		t.Fatalf("unexpected chunking: %#v", chunks)
	}
	if Chunk([]int{}, 2) != nil {
		t.Fatalf("empty input should produce no chunks")
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("hello", 110); got != "hello" {
		t.Fatalf("short string must pass through, got %q", got)
	}
	long := make([]rune, 120)
	for i := range long {
		long[i] = 'x'
	}
	got := Truncate(string(long), 110)
	if len([]rune(got)) != 110 || got[len(got)-3:] != "..." {
		t.Fatalf("truncated form wrong: %q", got)
	}
}

func TestCollapseWhitespace(t *testing.T) {
	if got := CollapseWhitespace("Hello\nworld  again\t!"); got != "Hello world again !" {
		t.Fatalf("got %q", got)
	}
}
