// Package normalize holds the locale-aware parsing and bucketing helpers
// shared by every ingestor.
package normalize

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	isoDateRe   = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	dottedRe    = regexp.MustCompile(`^\d{2}\.\d{2}\.\d{4}$`)
	numericJunk = regexp.MustCompile(`[^\d.,-]`)
	spaceRe     = regexp.MustCompile(`\s+`)
)

// ParseLocaleNumber parses a numeric string that may use either comma or dot
// as the decimal separator. When both occur, the one appearing later is the
// decimal separator and the other is stripped as a thousands separator.
func ParseLocaleNumber(raw string) (float64, bool) {
	cleaned := numericJunk.ReplaceAllString(spaceRe.ReplaceAllString(strings.TrimSpace(raw), ""), "")
	if cleaned == "" {
		return 0, false
	}

	commaIdx := strings.LastIndex(cleaned, ",")
	dotIdx := strings.LastIndex(cleaned, ".")
	switch {
	case commaIdx >= 0 && dotIdx >= 0:
		if commaIdx > dotIdx {
			cleaned = strings.ReplaceAll(cleaned, ".", "")
			cleaned = strings.Replace(cleaned, ",", ".", 1)
		} else {
			cleaned = strings.ReplaceAll(cleaned, ",", "")
		}
	case commaIdx >= 0:
		cleaned = strings.Replace(cleaned, ",", ".", 1)
	}

	num, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsInf(num, 0) || math.IsNaN(num) {
		return 0, false
	}
	return num, true
}

// NumberFrom coerces an arbitrary decoded JSON value into a number.
func NumberFrom(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		if math.IsInf(v, 0) || math.IsNaN(v) {
			return 0, false
		}
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0, false
		}
		return f, true
	case string:
		return ParseLocaleNumber(v)
	default:
		return 0, false
	}
}

// NormalizeDate rewrites a raw date value into YYYY-MM-DD. ISO dates pass
// through, DD.MM.YYYY is reordered, anything else goes through a generic
// parse and is truncated to the date portion.
func NormalizeDate(raw string) (string, bool) {
	val := strings.TrimSpace(raw)
	if val == "" {
		return "", false
	}
	if isoDateRe.MatchString(val) {
		return val, true
	}
	if dottedRe.MatchString(val) {
		parts := strings.Split(val, ".")
		return parts[2] + "-" + parts[1] + "-" + parts[0], true
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006/01/02", "01/02/2006", time.RFC1123} {
		if t, err := time.Parse(layout, val); err == nil {
			return t.Format("2006-01-02"), true
		}
	}
	return "", false
}

// ContentHash produces a stable short hex digest over the delimiter-joined
// field values. FNV-1a 32-bit; change detection only, not security.
func ContentHash(fields ...string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(strings.Join(fields, "|")))
	return fmt.Sprintf("%08x", h.Sum32())
}

// ToDestinationDay projects an absolute instant into the destination
// timezone's calendar date.
func ToDestinationDay(instant time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return instant.In(loc).Format("2006-01-02")
}

// PastDestinationDay returns the destination-day daysBack*24h before now.
func PastDestinationDay(now time.Time, daysBack int, loc *time.Location) string {
	return ToDestinationDay(now.Add(-time.Duration(daysBack)*24*time.Hour), loc)
}

// Chunk splits items into fixed-size batches for batched persistence writes.
func Chunk[T any](items []T, size int) [][]T {
	if size <= 0 {
		size = 50
	}
	var chunks [][]T
	for i := 0; i < len(items); i += size {
		end := i + size
		if end > len(items) {
			end = len(items)
		}
		chunks = append(chunks, items[i:end])
	}
	return chunks
}

// CollapseWhitespace flattens all runs of whitespace to single spaces.
func CollapseWhitespace(s string) string {
	return strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
}

// Truncate caps s at max runes, appending "..." when it had to cut.
func Truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}
