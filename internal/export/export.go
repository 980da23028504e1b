// Package export writes one UTC day of the event and feedback logs as JSONL
// and ships it to archive destinations on a schedule.
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/ooAKLoo/AppScope/internal/model"
	"github.com/ooAKLoo/AppScope/internal/store"
)

// Version is written into every export header.
const Version = "1"

// header is the first JSONL record written by ExportDay.
type header struct {
	Version       string `json:"version"`
	Type          string `json:"type"`
	Date          string `json:"date"`
	EventCount    int    `json:"event_count"`
	FeedbackCount int    `json:"feedback_count"`
}

// record wraps a single JSONL line with a type discriminator.
type record struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// FileName is the object name under which a day's export is stored.
func FileName(date time.Time) string {
	return model.FormatDate(date) + ".jsonl"
}

// ExportDay writes every event and feedback entry recorded on date (UTC) as
// JSONL to w: a header, then events in id order, then feedback in id order.
// Both logs are read from one snapshot so the header counts match the records.
func ExportDay(ctx context.Context, s store.Store, date time.Time, w io.Writer) error {
	date = model.DateOf(date)

	var (
		events   []*model.Event
		feedback []*model.Feedback
	)
	err := s.ReadSnapshot(ctx, func(tx store.Store) error {
		var err error
		if events, err = tx.ListEventsByDate(ctx, date); err != nil {
			return fmt.Errorf("list events: %w", err)
		}
		if feedback, err = tx.ListFeedbackByDate(ctx, date); err != nil {
			return fmt.Errorf("list feedback: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(header{
		Version:       Version,
		Type:          "header",
		Date:          model.FormatDate(date),
		EventCount:    len(events),
		FeedbackCount: len(feedback),
	}); err != nil {
		return fmt.Errorf("encode header: %w", err)
	}

	for _, e := range events {
		if err := enc.Encode(record{Type: "event", Data: e}); err != nil {
			return fmt.Errorf("encode event %d: %w", e.ID, err)
		}
	}
	for _, f := range feedback {
		if err := enc.Encode(record{Type: "feedback", Data: f}); err != nil {
			return fmt.Errorf("encode feedback %d: %w", f.ID, err)
		}
	}
	return nil
}
