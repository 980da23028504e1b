package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"
	"testing"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"

	"github.com/ooAKLoo/AppScope/internal/analytics"
	"github.com/ooAKLoo/AppScope/internal/events"
	"github.com/ooAKLoo/AppScope/internal/model"
	"github.com/ooAKLoo/AppScope/internal/store/memory"
)

// startTestNATS starts an embedded NATS server and returns its client URL.
func startTestNATS(t *testing.T) string {
	t.Helper()
	srv, err := natsserver.NewServer(&natsserver.Options{Host: "127.0.0.1", Port: -1})
	if err != nil {
		t.Fatalf("starting embedded NATS: %v", err)
	}
	srv.Start()
	t.Cleanup(srv.Shutdown)
	if !srv.ReadyForConnections(5 * time.Second) {
		t.Fatal("embedded NATS not ready")
	}
	return srv.ClientURL()
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, nil))
}

func TestHandle(t *testing.T) {
	s := memory.New()
	c := NewConsumer(nil, analytics.New(s), testLogger())
	ctx := context.Background()

	for _, tc := range []struct {
		name    string
		msg     events.Message
		wantErr bool
	}{
		{"event", events.Message{Subject: events.SubjectIngestEvent, Data: []byte(`{"app_id":"a","event":"$open","user_id":"u1"}`)}, false},
		{"feedback", events.Message{Subject: events.SubjectIngestFeedback, Data: []byte(`{"app_id":"a","content":"nice"}`)}, false},
		{"bad json", events.Message{Subject: events.SubjectIngestEvent, Data: []byte(`{`)}, true},
		{"missing user", events.Message{Subject: events.SubjectIngestEvent, Data: []byte(`{"app_id":"a","event":"$open"}`)}, true},
		{"unknown subject", events.Message{Subject: "appscope.ingest.other", Data: []byte(`{}`)}, true},
	} {
		err := c.handle(ctx, tc.msg)
		if (err != nil) != tc.wantErr {
			t.Errorf("%s: handle() error = %v, wantErr %v", tc.name, err, tc.wantErr)
		}
	}

	var ie analytics.InputError
	if err := c.handle(ctx, events.Message{Subject: events.SubjectIngestFeedback, Data: []byte(`{"app_id":"a"}`)}); !errors.As(err, &ie) {
		t.Errorf("feedback without content error = %v, want InputError", err)
	}

	points, err := s.DailyActiveUsers(ctx, "a", time.Now().AddDate(0, 0, -1))
	if err != nil {
		t.Fatal(err)
	}
	if len(points) != 1 || points[0].DAU != 1 {
		t.Errorf("DAU = %+v, want one user", points)
	}
	items, err := s.ListFeedback(ctx, "a", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 || items[0].Content != "nice" {
		t.Errorf("feedback = %+v", items)
	}
}

func TestRun_ConsumesFromBus(t *testing.T) {
	url := startTestNATS(t)
	s := memory.New()

	sub, err := events.NewNATSSubscriber(url)
	if err != nil {
		t.Fatalf("creating subscriber: %v", err)
	}
	defer sub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	c := NewConsumer(sub, analytics.New(s), testLogger())
	go func() { done <- c.Run(ctx) }()

	nc, err := nats.Connect(url)
	if err != nil {
		t.Fatalf("connecting publisher: %v", err)
	}
	defer nc.Close()

	// Publish until the subscription is live and the event lands.
	deadline := time.Now().Add(3 * time.Second)
	for {
		if err := nc.Publish(events.SubjectIngestEvent, []byte(`{"app_id":"bus","event":"$install","user_id":"u1"}`)); err != nil {
			t.Fatalf("publish: %v", err)
		}
		nc.Flush()
		time.Sleep(50 * time.Millisecond)

		total, err := s.CountInstalls(context.Background(), "bus")
		if err != nil {
			t.Fatal(err)
		}
		if total > 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for ingested event")
		}
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

// slowRecorder delays every write to simulate a loaded store.
type slowRecorder struct {
	Recorder
	delay time.Duration
}

func (r slowRecorder) Track(ctx context.Context, in analytics.TrackInput) (*model.Event, error) {
	time.Sleep(r.delay)
	return r.Recorder.Track(ctx, in)
}

func TestRun_BurstIsFullyRecorded(t *testing.T) {
	url := startTestNATS(t)
	s := memory.New()

	sub, err := events.NewNATSSubscriber(url)
	if err != nil {
		t.Fatalf("creating subscriber: %v", err)
	}
	defer sub.Close()
	var dropped atomic.Int64
	sub.OnDrop(func(n int) { dropped.Add(int64(n)) })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c := NewConsumer(sub, slowRecorder{Recorder: analytics.New(s), delay: time.Millisecond}, testLogger())
	go func() { _ = c.Run(ctx) }()

	nc, err := nats.Connect(url)
	if err != nil {
		t.Fatalf("connecting publisher: %v", err)
	}
	defer nc.Close()

	// Wait for the subscription to go live before the burst.
	deadline := time.Now().Add(3 * time.Second)
	for {
		_ = nc.Publish(events.SubjectIngestEvent, []byte(`{"app_id":"warmup","event":"$install","user_id":"u"}`))
		nc.Flush()
		time.Sleep(20 * time.Millisecond)
		if n, _ := s.CountInstalls(ctx, "warmup"); n > 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for subscription")
		}
	}

	const burst = 500
	for i := 0; i < burst; i++ {
		payload := fmt.Sprintf(`{"app_id":"burst","event":"$install","user_id":"u%d"}`, i)
		if err := nc.Publish(events.SubjectIngestEvent, []byte(payload)); err != nil {
			t.Fatalf("publish %d: %v", i, err)
		}
	}
	if err := nc.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}

	deadline = time.Now().Add(10 * time.Second)
	for {
		n, err := s.CountInstalls(ctx, "burst")
		if err != nil {
			t.Fatal(err)
		}
		if n == burst {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("recorded %d of %d events (dropped %d)", n, burst, dropped.Load())
		}
		time.Sleep(20 * time.Millisecond)
	}
	if n := dropped.Load(); n != 0 {
		t.Errorf("dropped = %d, want 0", n)
	}
}
