// Package client provides a transport-agnostic interface for the AppScope
// service with HTTP/JSON and gRPC implementations.
package client

import (
	"context"
	"encoding/json"

	"github.com/ooAKLoo/AppScope/internal/model"
)

// Client is the interface that all appscope CLI commands use to communicate
// with the server. It is implemented by HTTPClient (default) and GRPCClient.
type Client interface {
	// Ingest
	Track(ctx context.Context, req *TrackRequest) error
	SubmitFeedback(ctx context.Context, req *FeedbackRequest) error

	// Queries
	ListApps(ctx context.Context) ([]model.AppSummary, error)
	DAU(ctx context.Context, appID string, days int) ([]model.DauPoint, error)
	Installs(ctx context.Context, appID string, days int) (*model.InstallStats, error)
	Retention(ctx context.Context, appID string) ([]model.RetentionCohort, error)
	Feedback(ctx context.Context, appID string, limit int) ([]*model.Feedback, error)

	// Health
	Health(ctx context.Context) (string, error)

	// Lifecycle
	Close() error
}

// Keys are the shared secrets sent with every request. Write is used for
// Track and SubmitFeedback, Read for everything else.
type Keys struct {
	Write string
	Read  string
}

// TrackRequest is the body of a single event submission.
type TrackRequest struct {
	AppID      string          `json:"app_id"`
	Event      string          `json:"event"`
	UserID     string          `json:"user_id"`
	Properties json.RawMessage `json:"properties,omitempty"`
}

// FeedbackRequest is the body of a feedback submission.
type FeedbackRequest struct {
	AppID      string          `json:"app_id"`
	Content    string          `json:"content"`
	UserID     string          `json:"user_id,omitempty"`
	Contact    string          `json:"contact,omitempty"`
	Properties json.RawMessage `json:"properties,omitempty"`
}

type appsResponse struct {
	Apps []model.AppSummary `json:"apps"`
}

type dauResponse struct {
	Data []model.DauPoint `json:"data"`
}

type retentionResponse struct {
	Data []model.RetentionCohort `json:"data"`
}

type feedbackResponse struct {
	Data []*model.Feedback `json:"data"`
}
