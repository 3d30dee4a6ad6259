// Package jsonscan walks decoded JSON payloads whose shape is not guaranteed.
// External gateways wrap the same data at varying depths, so extraction works
// over the generic scalar/list/map union instead of payload-specific structs.
package jsonscan

import (
	"regexp"
	"strings"

	"pulseboard/internal/normalize"
)

// AsObject returns value as a JSON object, or nil if it is anything else.
func AsObject(value any) map[string]any {
	obj, ok := value.(map[string]any)
	if !ok {
		return nil
	}
	return obj
}

// AsArray returns value as a JSON array, or nil.
func AsArray(value any) []any {
	arr, ok := value.([]any)
	if !ok {
		return nil
	}
	return arr
}

// FirstNumberByKeys breadth-first scans the tree for the first value stored
// under any of the given keys (case-insensitive) that coerces to a number.
func FirstNumberByKeys(payload any, keys []string) (float64, bool) {
	wanted := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		wanted[strings.ToLower(key)] = struct{}{}
	}

	queue := []any{payload}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		if obj := AsObject(current); obj != nil {
			for key, value := range obj {
				if _, ok := wanted[strings.ToLower(key)]; ok {
					if num, ok := normalize.NumberFrom(value); ok {
						return num, true
					}
				}
				switch value.(type) {
				case map[string]any, []any:
					queue = append(queue, value)
				}
			}
			continue
		}
		if arr := AsArray(current); arr != nil {
			for _, item := range arr {
				switch item.(type) {
				case map[string]any, []any:
					queue = append(queue, item)
				}
			}
		}
	}
	return 0, false
}

// FirstStringMatch breadth-first scans the tree for the first string value
// matching the pattern.
func FirstStringMatch(payload any, pattern *regexp.Regexp) string {
	queue := []any{payload}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		if obj := AsObject(current); obj != nil {
			for _, value := range obj {
				if s, ok := value.(string); ok {
					if trimmed := strings.TrimSpace(s); pattern.MatchString(trimmed) {
						return trimmed
					}
					continue
				}
				switch value.(type) {
				case map[string]any, []any:
					queue = append(queue, value)
				}
			}
			continue
		}
		if arr := AsArray(current); arr != nil {
			for _, item := range arr {
				if s, ok := item.(string); ok {
					if trimmed := strings.TrimSpace(s); pattern.MatchString(trimmed) {
						return trimmed
					}
					continue
				}
				switch item.(type) {
				case map[string]any, []any:
					queue = append(queue, item)
				}
			}
		}
	}
	return ""
}

// CollectArrays gathers every array value reachable from payload, breadth
// first, including payload itself when it is one. Callers then try to parse
// each array's elements with their own shape candidates.
func CollectArrays(payload any) [][]any {
	var arrays [][]any
	queue := []any{payload}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		if arr := AsArray(current); arr != nil {
			arrays = append(arrays, arr)
			continue
		}
		if obj := AsObject(current); obj != nil {
			for _, value := range obj {
				switch value.(type) {
				case map[string]any, []any:
					queue = append(queue, value)
				}
			}
		}
	}
	return arrays
}

// StringField reads obj[key] as a trimmed string, tolerating absent keys.
func StringField(obj map[string]any, keys ...string) string {
	for _, key := range keys {
		if raw, ok := obj[key]; ok {
			if s, ok := raw.(string); ok {
				if trimmed := strings.TrimSpace(s); trimmed != "" {
					return trimmed
				}
			}
		}
	}
	return ""
}
