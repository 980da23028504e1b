package model

import (
	"encoding/json"
	"time"
)

// Feedback is a free-text submission from an application user.
type Feedback struct {
	ID         int64           `json:"id"`
	AppID      string          `json:"app_id"`
	Content    string          `json:"content"`
	UserID     *string         `json:"user_id"`
	Contact    *string         `json:"contact"`
	Properties json.RawMessage `json:"properties,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

// Stamp sets CreatedAt from now (UTC, second granularity).
func (f *Feedback) Stamp(now time.Time) {
	f.CreatedAt = now.UTC().Truncate(time.Second)
	f.Properties = NormalizeProperties(f.Properties)
}

// OptionalString returns nil for an empty string.
func OptionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
