package model

import (
	"fmt"
	"time"
)

// Match is a tweet that tripped one of the backend's patterns or keywords.
type Match struct {
	ID                int64    `json:"id,omitempty"`
	Username          string   `json:"username"`
	TweetID           string   `json:"tweet_id"`
	TweetText         string   `json:"tweet_text"`
	MatchedPatterns   []string `json:"matched_patterns,omitempty"`
	ContractAddresses []string `json:"contract_addresses,omitempty"`
	Timestamp         string   `json:"timestamp"`
	TweetURL          string   `json:"tweet_url,omitempty"`
}

// Key identifies a match for deduplication. Streamed events and history rows
// describe the same tweet with the same tweet_id, so that wins over the
// database row id.
func (m Match) Key() string {
	if m.TweetID != "" {
		return "t:" + m.TweetID
	}
	if m.ID != 0 {
		return fmt.Sprintf("r:%d", m.ID)
	}
	return "x:" + m.Timestamp + ":" + m.Username
}

// URL returns the stored tweet URL, reconstructing it from the username and
// tweet id when the backend omitted it.
func (m Match) URL() string {
	if m.TweetURL != "" {
		return m.TweetURL
	}
	if m.Username != "" && m.TweetID != "" {
		return fmt.Sprintf("https://x.com/%s/status/%s", m.Username, m.TweetID)
	}
	return ""
}

// Time parses the match timestamp. The backend emits naive ISO timestamps
// without a zone, and older rows carry a space instead of the T separator.
func (m Match) Time() (time.Time, bool) {
	return ParseTimestamp(m.Timestamp)
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999",
	"2006-01-02 15:04:05",
}

// ParseTimestamp tries the timestamp formats the backend has been observed to
// produce. Layouts without a zone are interpreted as local time, matching the
// backend host's clock.
func ParseTimestamp(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
