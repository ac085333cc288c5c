package domain

import (
	"strings"
	"time"
)

const (
	CategoryUncategorized = "uncategorized"
	MaxTags               = 5
)

type Thought struct {
	ID              string    `json:"id"`
	UserID          string    `json:"user_id"`
	RawTranscript   string    `json:"raw_transcript"`
	CleanedText     string    `json:"cleaned_text"`
	Tags            []string  `json:"tags"`
	Category        string    `json:"category"`
	DurationSeconds float64   `json:"duration_seconds"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Text returns the cleaned text, falling back to the raw transcript.
func (t *Thought) Text() string {
	if strings.TrimSpace(t.CleanedText) != "" {
		return t.CleanedText
	}
	return t.RawTranscript
}

func (t *Thought) HasTag(tag string) bool {
	tag = NormalizeTag(tag)
	for _, existing := range t.Tags {
		if existing == tag {
			return true
		}
	}
	return false
}

// NormalizeTag lower-cases a tag and strips surrounding space and a leading '#'.
func NormalizeTag(tag string) string {
	tag = strings.TrimSpace(tag)
	tag = strings.TrimLeft(tag, "#")
	return strings.ToLower(strings.TrimSpace(tag))
}

// NormalizeTags applies NormalizeTag, drops empties and duplicates and keeps at most MaxTags.
func NormalizeTags(tags []string) []string {
	result := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, t := range tags {
		n := NormalizeTag(t)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		result = append(result, n)
		if len(result) == MaxTags {
			break
		}
	}
	return result
}

func NormalizeCategory(category string) string {
	c := strings.ToLower(strings.TrimSpace(category))
	if c == "" {
		return CategoryUncategorized
	}
	return c
}
