package models

import (
	"strings"
	"time"
)

// Tag represents a normalized hashtag tracked by the system
type Tag struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	LatestCount *int64 `json:"count,omitempty"` // Most recent external occurrence count, nil if never counted
}

// TagCount is one entry of a tag's external occurrence history
type TagCount struct {
	TagID     int64     `json:"tag_id"`
	Count     int64     `json:"count"`
	CountDate time.Time `json:"count_date"`
}

// NormalizeTagTitle lower-cases a title and strips surrounding whitespace and a leading '#'
func NormalizeTagTitle(title string) string {
	title = strings.TrimSpace(title)
	title = strings.TrimPrefix(title, "#")
	return strings.ToLower(strings.TrimSpace(title))
}

// NormalizeTagTitles normalizes titles, dropping empty values and duplicates.
// First occurrence order is preserved.
func NormalizeTagTitles(titles []string) []string {
	seen := make(map[string]struct{}, len(titles))
	result := make([]string, 0, len(titles))
	for _, t := range titles {
		n := NormalizeTagTitle(t)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		result = append(result, n)
	}
	return result
}
