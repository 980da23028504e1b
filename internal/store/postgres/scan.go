package postgres

import (
	"database/sql"
	"encoding/json"

	"github.com/ooAKLoo/AppScope/internal/model"
)

// scannable is the interface satisfied by both *sql.Row and *sql.Rows.
type scannable interface {
	Scan(dest ...any) error
}

// scanEvent scans a single row into a model.Event.
// The row must contain columns in the order defined by eventColumns.
func scanEvent(row scannable) (*model.Event, error) {
	var (
		e     model.Event
		props []byte
	)
	if err := row.Scan(&e.ID, &e.AppID, &e.Name, &e.UserID, &props, &e.CreatedAt, &e.EventDate); err != nil {
		return nil, err
	}
	e.CreatedAt = e.CreatedAt.UTC()
	e.EventDate = model.DateOf(e.EventDate)
	e.Properties = model.NormalizeProperties(copyJSON(props))
	return &e, nil
}

// scanFeedback scans a single row into a model.Feedback.
// The row must contain columns in the order defined by feedbackColumns.
func scanFeedback(row scannable) (*model.Feedback, error) {
	var (
		f       model.Feedback
		userID  sql.NullString
		contact sql.NullString
		props   []byte
	)
	if err := row.Scan(&f.ID, &f.AppID, &f.Content, &userID, &contact, &props, &f.CreatedAt); err != nil {
		return nil, err
	}
	f.CreatedAt = f.CreatedAt.UTC()
	if userID.Valid {
		f.UserID = &userID.String
	}
	if contact.Valid {
		f.Contact = &contact.String
	}
	if len(props) > 0 {
		f.Properties = copyJSON(props)
	}
	return &f, nil
}

// copyJSON detaches driver-owned bytes from the row buffer.
func copyJSON(b []byte) json.RawMessage {
	if len(b) == 0 {
		return nil
	}
	out := make(json.RawMessage, len(b))
	copy(out, b)
	return out
}

// nullStringPtr converts an optional string to sql.NullString.
func nullStringPtr(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// propertiesText returns the properties document exactly as submitted for the
// TEXT column, defaulting to an empty object. It is never parsed, so key
// order, whitespace and escapes round-trip unchanged.
func propertiesText(raw json.RawMessage) string {
	return string(model.NormalizeProperties(raw))
}
