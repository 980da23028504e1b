// Package analytics derives application summaries, daily active users,
// installs, retention cohorts and feedback listings from the event store,
// and records new events and feedback.
package analytics

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/ooAKLoo/AppScope/internal/events"
	"github.com/ooAKLoo/AppScope/internal/metrics"
	"github.com/ooAKLoo/AppScope/internal/model"
	"github.com/ooAKLoo/AppScope/internal/store"
)

// Defaults applied by gateways when a query parameter is absent.
const (
	DefaultDays          = 30
	DefaultFeedbackLimit = 50
)

// Engine answers analytics queries over a store.Store. It holds no mutable
// state of its own and is safe for concurrent use.
type Engine struct {
	store     store.Store
	publisher events.Publisher
	metrics   *metrics.Metrics
	now       store.Clock
}

// Option configures an Engine.
type Option func(*Engine)

// WithPublisher sets the bus that receives write notifications.
func WithPublisher(p events.Publisher) Option {
	return func(e *Engine) { e.publisher = p }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithClock overrides the clock that defines "today".
func WithClock(now store.Clock) Option {
	return func(e *Engine) { e.now = now }
}

// New creates an Engine over s.
func New(s store.Store, opts ...Option) *Engine {
	e := &Engine{
		store:     s,
		publisher: &events.NoopPublisher{},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Store returns the underlying store.
func (e *Engine) Store() store.Store {
	return e.store
}

// Today returns the current calendar date (UTC).
func (e *Engine) Today() time.Time {
	return model.DateOf(e.now())
}

// windowStart returns the inclusive first date of a days-long window ending
// today, clamped to model.EarliestDate so arbitrarily large windows mean all
// time. Callers handle negative days before asking for a start.
func (e *Engine) windowStart(days int) time.Time {
	today := e.Today()
	if span := int(today.Sub(model.EarliestDate) / (24 * time.Hour)); days >= span {
		return model.EarliestDate
	}
	return model.AddDays(today, -days)
}

func (e *Engine) observe(op string, start time.Time) {
	e.metrics.ObserveQuery(op, time.Since(start))
}

// ListApplications returns every app seen in the event log, ascending by id,
// with today's distinct openers and all-time installs.
func (e *Engine) ListApplications(ctx context.Context) ([]model.AppSummary, error) {
	defer e.observe("list_apps", time.Now())

	apps, err := e.store.ListAppSummaries(ctx, e.Today())
	if err != nil {
		return nil, &StorageError{Op: "list apps", Err: err}
	}
	return apps, nil
}

// DAU returns the distinct-opener count per date for dates in
// [today-days, today]. Dates with no opens are omitted.
func (e *Engine) DAU(ctx context.Context, appID string, days int) ([]model.DauPoint, error) {
	defer e.observe("dau", time.Now())

	if days < 0 {
		return []model.DauPoint{}, nil
	}
	points, err := e.store.DailyActiveUsers(ctx, appID, e.windowStart(days))
	if err != nil {
		return nil, &StorageError{Op: "dau", Err: err}
	}
	return points, nil
}

// Installs returns the all-time install total and the per-date install
// series for [today-days, today], read from one snapshot.
func (e *Engine) Installs(ctx context.Context, appID string, days int) (*model.InstallStats, error) {
	defer e.observe("installs", time.Now())

	stats := &model.InstallStats{Data: []model.InstallPoint{}}
	err := e.store.ReadSnapshot(ctx, func(tx store.Store) error {
		total, err := tx.CountInstalls(ctx, appID)
		if err != nil {
			return err
		}
		stats.Total = total
		if days < 0 {
			return nil
		}
		points, err := tx.DailyInstalls(ctx, appID, e.windowStart(days))
		if err != nil {
			return err
		}
		stats.Data = points
		return nil
	})
	if err != nil {
		return nil, &StorageError{Op: "installs", Err: err}
	}
	return stats, nil
}

// Retention returns up to MaxCohorts cohorts whose first-open date lies
// within the last RetentionWindowDays days, newest first.
func (e *Engine) Retention(ctx context.Context, appID string) ([]model.RetentionCohort, error) {
	defer e.observe("retention", time.Now())

	var members []model.CohortMember
	err := e.store.ReadSnapshot(ctx, func(tx store.Store) error {
		var err error
		members, err = tx.CohortMembers(ctx, appID, e.windowStart(RetentionWindowDays))
		return err
	})
	if err != nil {
		return nil, &StorageError{Op: "retention", Err: err}
	}
	return BuildRetention(members), nil
}

// Feedback returns up to limit feedback entries for appID, newest first.
// A non-positive limit yields an empty list without reading the store.
func (e *Engine) Feedback(ctx context.Context, appID string, limit int) ([]*model.Feedback, error) {
	defer e.observe("feedback", time.Now())

	if limit <= 0 {
		return []*model.Feedback{}, nil
	}
	items, err := e.store.ListFeedback(ctx, appID, limit)
	if err != nil {
		return nil, &StorageError{Op: "feedback", Err: err}
	}
	return items, nil
}

// TrackInput is a transport-agnostic event submission.
type TrackInput struct {
	AppID      string          `json:"app_id"`
	Event      string          `json:"event"`
	UserID     string          `json:"user_id"`
	Properties json.RawMessage `json:"properties"`
}

// Validate reports the first missing required field.
func (in *TrackInput) Validate() error {
	switch {
	case in.AppID == "":
		return InputError("app_id is required")
	case in.Event == "":
		return InputError("event is required")
	case in.UserID == "":
		return InputError("user_id is required")
	}
	return nil
}

// Track appends one event and publishes an EventTracked notification.
func (e *Engine) Track(ctx context.Context, in TrackInput) (*model.Event, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	event := &model.Event{
		AppID:      in.AppID,
		Name:       in.Event,
		UserID:     in.UserID,
		Properties: in.Properties,
	}
	if err := e.store.AppendEvent(ctx, event); err != nil {
		return nil, &StorageError{Op: "track", Err: err}
	}
	e.metrics.EventIngested(event.Kind())
	e.publish(ctx, events.TopicEventTracked, events.EventTracked{Event: event})
	return event, nil
}

// FeedbackInput is a transport-agnostic feedback submission.
type FeedbackInput struct {
	AppID      string          `json:"app_id"`
	Content    string          `json:"content"`
	UserID     string          `json:"user_id,omitempty"`
	Contact    string          `json:"contact,omitempty"`
	Properties json.RawMessage `json:"properties"`
}

// Validate reports the first missing required field.
func (in *FeedbackInput) Validate() error {
	switch {
	case in.AppID == "":
		return InputError("app_id is required")
	case in.Content == "":
		return InputError("content is required")
	}
	return nil
}

// SubmitFeedback appends one feedback entry and publishes a
// FeedbackSubmitted notification.
func (e *Engine) SubmitFeedback(ctx context.Context, in FeedbackInput) (*model.Feedback, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	feedback := &model.Feedback{
		AppID:      in.AppID,
		Content:    in.Content,
		UserID:     model.OptionalString(in.UserID),
		Contact:    model.OptionalString(in.Contact),
		Properties: in.Properties,
	}
	if err := e.store.AppendFeedback(ctx, feedback); err != nil {
		return nil, &StorageError{Op: "submit feedback", Err: err}
	}
	e.metrics.FeedbackIngested()
	e.publish(ctx, events.TopicFeedbackSubmitted, events.FeedbackSubmitted{Feedback: feedback})
	return feedback, nil
}

// publish emits a bus notification. Failures are logged, never returned.
func (e *Engine) publish(ctx context.Context, topic string, payload any) {
	if err := e.publisher.Publish(ctx, topic, payload); err != nil {
		slog.Warn("failed to publish event", "topic", topic, "error", err)
	}
}
