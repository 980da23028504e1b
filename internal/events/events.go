// Package events carries analytics writes over the NATS bus: outbound
// notifications after each append, and inbound ingestion subjects.
package events

import (
	"context"

	"github.com/ooAKLoo/AppScope/internal/model"
)

// Outbound topics, published after a successful append.
const (
	TopicEventTracked      = "appscope.event.tracked"
	TopicFeedbackSubmitted = "appscope.feedback.submitted"
)

// Inbound subjects consumed by the ingest worker.
const (
	SubjectIngestAll      = "appscope.ingest.>"
	SubjectIngestEvent    = "appscope.ingest.event"
	SubjectIngestFeedback = "appscope.ingest.feedback"
)

// Event types

type EventTracked struct {
	Event *model.Event `json:"event"`
}

type FeedbackSubmitted struct {
	Feedback *model.Feedback `json:"feedback"`
}

// Publisher is the interface for emitting events.
type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
	Close() error
}
