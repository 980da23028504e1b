package model

import (
	"encoding/json"
	"time"
)

// Reserved event names. Every other name is stored but never aggregated.
const (
	EventOpen    = "$open"    // a session; drives DAU and retention
	EventInstall = "$install" // a first run
)

// Event is a single immutable usage event reported by a client SDK.
type Event struct {
	ID         int64           `json:"id"`
	AppID      string          `json:"app_id"`
	Name       string          `json:"event"`
	UserID     string          `json:"user_id"`
	Properties json.RawMessage `json:"properties"`
	CreatedAt  time.Time       `json:"created_at"`
	EventDate  time.Time       `json:"event_date"`
}

// Kind buckets an event name for metrics labels: "open", "install" or "other".
func (e *Event) Kind() string {
	switch e.Name {
	case EventOpen:
		return "open"
	case EventInstall:
		return "install"
	}
	return "other"
}

// Stamp sets CreatedAt from now (UTC, second granularity) and derives EventDate.
func (e *Event) Stamp(now time.Time) {
	e.CreatedAt = now.UTC().Truncate(time.Second)
	e.EventDate = DateOf(e.CreatedAt)
	e.Properties = NormalizeProperties(e.Properties)
}

// NormalizeProperties returns an empty JSON object for missing or null properties.
func NormalizeProperties(p json.RawMessage) json.RawMessage {
	if len(p) == 0 || string(p) == "null" {
		return json.RawMessage(`{}`)
	}
	return p
}
