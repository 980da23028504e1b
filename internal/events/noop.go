package events

import "context"

// NoopPublisher discards events. It is used when APPSCOPE_NATS_URL is empty.
type NoopPublisher struct{}

func (n *NoopPublisher) Publish(ctx context.Context, topic string, event any) error {
	return nil
}

func (n *NoopPublisher) Close() error {
	return nil
}
