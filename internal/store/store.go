package store

import (
	"context"
	"time"

	"github.com/ooAKLoo/AppScope/internal/model"
)

// Store defines the persistence interface for the event and feedback logs.
// Both logs are append-only; nothing in this interface updates or deletes.
// Date arguments are calendar dates (midnight UTC).
type Store interface {
	// Append
	AppendEvent(ctx context.Context, event *model.Event) error
	AppendFeedback(ctx context.Context, feedback *model.Feedback) error

	// Aggregates
	ListAppSummaries(ctx context.Context, today time.Time) ([]model.AppSummary, error)
	DailyActiveUsers(ctx context.Context, appID string, since time.Time) ([]model.DauPoint, error)
	CountInstalls(ctx context.Context, appID string) (int64, error)
	DailyInstalls(ctx context.Context, appID string, since time.Time) ([]model.InstallPoint, error)
	CohortMembers(ctx context.Context, appID string, since time.Time) ([]model.CohortMember, error)

	// Listings
	ListFeedback(ctx context.Context, appID string, limit int) ([]*model.Feedback, error)
	ListEventsByDate(ctx context.Context, date time.Time) ([]*model.Event, error)
	ListFeedbackByDate(ctx context.Context, date time.Time) ([]*model.Feedback, error)

	// ReadSnapshot runs fn against a consistent view of the logs.
	ReadSnapshot(ctx context.Context, fn func(s Store) error) error

	// Lifecycle
	Ping(ctx context.Context) error
	Close() error
}

// Clock returns the current time. Stores stamp appended rows with it.
type Clock func() time.Time
