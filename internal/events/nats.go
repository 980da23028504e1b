package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
)

// NATSPublisher publishes JSON-encoded events to NATS subjects.
type NATSPublisher struct {
	conn *nats.Conn
}

func NewNATSPublisher(url string) (*NATSPublisher, error) {
	nc, err := nats.Connect(url, nats.Name("appscope-publisher"))
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS at %s: %w", url, err)
	}
	return &NATSPublisher{conn: nc}, nil
}

func (p *NATSPublisher) Publish(ctx context.Context, topic string, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling event: %w", err)
	}
	return p.conn.Publish(topic, data)
}

func (p *NATSPublisher) Close() error {
	p.conn.Close()
	return nil
}

// Client-side backlog a subscription may hold while the consumer is busy.
// Messages beyond it are dropped by the NATS client and reported through
// the drop handler.
const (
	PendingMsgLimit   = 1 << 20
	PendingBytesLimit = 256 << 20
)

// NATSSubscriber delivers bus messages to a channel without discarding them:
// a slow reader backs up into the client's pending queue instead.
type NATSSubscriber struct {
	conn   *nats.Conn
	logger *slog.Logger

	mu      sync.Mutex
	onDrop  func(n int)
	dropped map[*nats.Subscription]int
}

// NewNATSSubscriber connects to NATS with automatic reconnection support.
// Extra nats.Option values (e.g. disconnect/reconnect handlers) can be appended.
func NewNATSSubscriber(url string, opts ...nats.Option) (*NATSSubscriber, error) {
	s := &NATSSubscriber{
		logger:  slog.Default(),
		dropped: make(map[*nats.Subscription]int),
	}
	defaults := []nats.Option{
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
		nats.Name("appscope-subscriber"),
		nats.ErrorHandler(s.asyncError),
	}
	nc, err := nats.Connect(url, append(defaults, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS at %s: %w", url, err)
	}
	s.conn = nc
	return s, nil
}

// OnDrop registers fn to receive the number of messages the client discarded
// because a subscription overran its pending limits.
func (s *NATSSubscriber) OnDrop(fn func(n int)) {
	s.mu.Lock()
	s.onDrop = fn
	s.mu.Unlock()
}

func (s *NATSSubscriber) asyncError(_ *nats.Conn, sub *nats.Subscription, err error) {
	if sub != nil && errors.Is(err, nats.ErrSlowConsumer) {
		s.reportDropped(sub)
		return
	}
	s.logger.Warn("nats async error", "error", err)
}

// reportDropped logs and forwards messages dropped on sub since the last report.
func (s *NATSSubscriber) reportDropped(sub *nats.Subscription) {
	n, err := sub.Dropped()
	if err != nil {
		return
	}
	s.mu.Lock()
	delta := n - s.dropped[sub]
	s.dropped[sub] = n
	fn := s.onDrop
	s.mu.Unlock()
	if delta <= 0 {
		return
	}
	s.logger.Error("bus messages dropped by slow consumer", "subject", sub.Subject, "dropped", delta)
	if fn != nil {
		fn(delta)
	}
}

// Subscribe returns a channel that receives messages for the given topic
// (supports NATS wildcards like "appscope.ingest.>"). Delivery blocks until
// the reader takes each message. Call the returned cancel function to
// unsubscribe and close the channel.
func (s *NATSSubscriber) Subscribe(topic string) (<-chan Message, func(), error) {
	ch := make(chan Message, 64)
	done := make(chan struct{})

	var (
		mu       sync.Mutex
		closed   bool
		inflight sync.WaitGroup
		once     sync.Once
	)

	sub, err := s.conn.Subscribe(topic, func(msg *nats.Msg) {
		mu.Lock()
		if closed {
			mu.Unlock()
			return
		}
		inflight.Add(1)
		mu.Unlock()
		defer inflight.Done()

		select {
		case ch <- Message{Subject: msg.Subject, Data: msg.Data}:
		case <-done:
		}
	})
	if err != nil {
		close(ch)
		return nil, nil, fmt.Errorf("subscribing to %s: %w", topic, err)
	}
	if err := sub.SetPendingLimits(PendingMsgLimit, PendingBytesLimit); err != nil {
		_ = sub.Unsubscribe()
		close(ch)
		return nil, nil, fmt.Errorf("setting pending limits: %w", err)
	}
	// Flush ensures the subscription is registered on the server before
	// returning, so that messages published on other connections are routed.
	if err := s.conn.Flush(); err != nil {
		_ = sub.Unsubscribe()
		close(ch)
		return nil, nil, fmt.Errorf("flushing subscription: %w", err)
	}

	cancel := func() {
		once.Do(func() {
			s.reportDropped(sub)
			mu.Lock()
			closed = true
			mu.Unlock()
			close(done)
			_ = sub.Unsubscribe()
			inflight.Wait()
			close(ch)

			s.mu.Lock()
			delete(s.dropped, sub)
			s.mu.Unlock()
		})
	}

	return ch, cancel, nil
}

func (s *NATSSubscriber) Close() error {
	s.conn.Close()
	return nil
}
