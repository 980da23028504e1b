// Package ingest consumes tracking and feedback submissions from the NATS bus
// and records them through the analytics engine.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ooAKLoo/AppScope/internal/analytics"
	"github.com/ooAKLoo/AppScope/internal/events"
	"github.com/ooAKLoo/AppScope/internal/model"
)

// Recorder is the write side of analytics.Engine.
type Recorder interface {
	Track(ctx context.Context, in analytics.TrackInput) (*model.Event, error)
	SubmitFeedback(ctx context.Context, in analytics.FeedbackInput) (*model.Feedback, error)
}

// errUnknownSubject is returned by handle for subjects outside the ingest set.
var errUnknownSubject = errors.New("unknown ingest subject")

// Consumer drains events.SubjectIngestAll into a Recorder. Messages that fail
// to decode or validate are logged and dropped; the bus has no reply path.
type Consumer struct {
	sub      events.Subscriber
	recorder Recorder
	logger   *slog.Logger
}

// NewConsumer creates a consumer reading from sub.
func NewConsumer(sub events.Subscriber, recorder Recorder, logger *slog.Logger) *Consumer {
	return &Consumer{sub: sub, recorder: recorder, logger: logger}
}

// Run subscribes and processes messages until ctx is cancelled or the
// subscription closes.
func (c *Consumer) Run(ctx context.Context) error {
	ch, cancel, err := c.sub.Subscribe(events.SubjectIngestAll)
	if err != nil {
		return fmt.Errorf("subscribe ingest: %w", err)
	}
	defer cancel()

	c.logger.Info("ingest consumer started", "subject", events.SubjectIngestAll)
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			err := c.handle(ctx, msg)
			var storageErr *analytics.StorageError
			switch {
			case err == nil:
			case errors.As(err, &storageErr):
				c.logger.Error("failed to record ingest message", "subject", msg.Subject, "error", err)
			default:
				c.logger.Warn("dropped ingest message", "subject", msg.Subject, "error", err)
			}
		}
	}
}

func (c *Consumer) handle(ctx context.Context, msg events.Message) error {
	switch msg.Subject {
	case events.SubjectIngestEvent:
		var in analytics.TrackInput
		if err := json.Unmarshal(msg.Data, &in); err != nil {
			return fmt.Errorf("decode event: %w", err)
		}
		_, err := c.recorder.Track(ctx, in)
		return err
	case events.SubjectIngestFeedback:
		var in analytics.FeedbackInput
		if err := json.Unmarshal(msg.Data, &in); err != nil {
			return fmt.Errorf("decode feedback: %w", err)
		}
		_, err := c.recorder.SubmitFeedback(ctx, in)
		return err
	}
	return errUnknownSubject
}
