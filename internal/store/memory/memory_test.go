package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ooAKLoo/AppScope/internal/model"
	"github.com/ooAKLoo/AppScope/internal/store"
)

// fakeClock is a settable clock for deterministic stamping.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

func day(s string) time.Time {
	d, err := model.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func track(t *testing.T, s *Store, clk *fakeClock, at time.Time, app, name, user string) {
	t.Helper()
	clk.Set(at)
	if err := s.AppendEvent(context.Background(), &model.Event{AppID: app, Name: name, UserID: user}); err != nil {
		t.Fatalf("AppendEvent: %v", err)
	}
}

func TestAppendEvent_AssignsIDAndDate(t *testing.T) {
	clk := &fakeClock{now: time.Date(2026, 5, 1, 23, 30, 0, 0, time.UTC)}
	s := New(WithClock(clk.Now))

	e := &model.Event{AppID: "a", Name: model.EventOpen, UserID: "u1"}
	if err := s.AppendEvent(context.Background(), e); err != nil {
		t.Fatal(err)
	}
	if e.ID != 1 {
		t.Errorf("ID = %d, want 1", e.ID)
	}
	if !e.EventDate.Equal(day("2026-05-01")) {
		t.Errorf("EventDate = %v", e.EventDate)
	}
	if string(e.Properties) != "{}" {
		t.Errorf("Properties = %s, want {}", e.Properties)
	}
}

func TestProperties_StoredVerbatim(t *testing.T) {
	clk := &fakeClock{now: time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)}
	s := New(WithClock(clk.Now))
	ctx := context.Background()

	const props = `{ "z": [1, 2],   "a":"\u0000", "z":3 }`
	buf := []byte(props)
	if err := s.AppendEvent(ctx, &model.Event{AppID: "a", Name: "x", UserID: "u1", Properties: buf}); err != nil {
		t.Fatal(err)
	}
	if err := s.AppendFeedback(ctx, &model.Feedback{AppID: "a", Content: "c", Properties: buf}); err != nil {
		t.Fatal(err)
	}
	// The caller reusing its buffer must not rewrite stored rows.
	copy(buf, "XXXX")

	events, err := s.ListEventsByDate(ctx, day("2026-05-01"))
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	if got := string(events[0].Properties); got != props {
		t.Errorf("event properties = %s, want %s", got, props)
	}
	items, err := s.ListFeedbackByDate(ctx, day("2026-05-01"))
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 {
		t.Fatalf("got %d feedback entries, want 1", len(items))
	}
	if got := string(items[0].Properties); got != props {
		t.Errorf("feedback properties = %s, want %s", got, props)
	}
}

func TestListAppSummaries(t *testing.T) {
	clk := &fakeClock{}
	s := New(WithClock(clk.Now))
	today := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)
	yesterday := today.AddDate(0, 0, -1)

	track(t, s, clk, today, "beta", model.EventOpen, "u1")
	track(t, s, clk, today, "beta", model.EventOpen, "u1")
	track(t, s, clk, today, "beta", model.EventOpen, "u2")
	track(t, s, clk, yesterday, "beta", model.EventOpen, "u3")
	track(t, s, clk, yesterday, "beta", model.EventInstall, "u3")
	track(t, s, clk, today, "alpha", "purchase", "u9")

	apps, err := s.ListAppSummaries(context.Background(), model.DateOf(today))
	if err != nil {
		t.Fatal(err)
	}
	want := []model.AppSummary{
		{AppID: "alpha", DAUToday: 0, TotalInstalls: 0},
		{AppID: "beta", DAUToday: 2, TotalInstalls: 1},
	}
	if len(apps) != len(want) {
		t.Fatalf("got %+v, want %+v", apps, want)
	}
	for i := range want {
		if apps[i] != want[i] {
			t.Errorf("apps[%d] = %+v, want %+v", i, apps[i], want[i])
		}
	}
}

func TestDailyActiveUsers_WindowInclusive(t *testing.T) {
	clk := &fakeClock{}
	s := New(WithClock(clk.Now))

	track(t, s, clk, day("2026-05-01"), "a", model.EventOpen, "u1")
	track(t, s, clk, day("2026-05-02"), "a", model.EventOpen, "u1")
	track(t, s, clk, day("2026-05-02").Add(5*time.Hour), "a", model.EventOpen, "u2")
	track(t, s, clk, day("2026-05-02"), "a", model.EventInstall, "u3")
	track(t, s, clk, day("2026-05-02"), "other", model.EventOpen, "u4")

	points, err := s.DailyActiveUsers(context.Background(), "a", day("2026-05-02"))
	if err != nil {
		t.Fatal(err)
	}
	if len(points) != 1 || points[0] != (model.DauPoint{Date: "2026-05-02", DAU: 2}) {
		t.Errorf("points = %+v", points)
	}
}

func TestInstalls(t *testing.T) {
	clk := &fakeClock{}
	s := New(WithClock(clk.Now))

	track(t, s, clk, day("2026-04-01"), "a", model.EventInstall, "u1")
	track(t, s, clk, day("2026-05-01"), "a", model.EventInstall, "u2")
	track(t, s, clk, day("2026-05-01"), "a", model.EventInstall, "u2")

	total, err := s.CountInstalls(context.Background(), "a")
	if err != nil {
		t.Fatal(err)
	}
	if total != 3 {
		t.Errorf("total = %d, want 3", total)
	}
	points, err := s.DailyInstalls(context.Background(), "a", day("2026-04-15"))
	if err != nil {
		t.Fatal(err)
	}
	if len(points) != 1 || points[0] != (model.InstallPoint{Date: "2026-05-01", Installs: 2}) {
		t.Errorf("points = %+v", points)
	}
}

func TestCohortMembers(t *testing.T) {
	clk := &fakeClock{}
	s := New(WithClock(clk.Now))
	d := day("2026-03-01")

	track(t, s, clk, d, "a", model.EventOpen, "u1")
	track(t, s, clk, d, "a", model.EventOpen, "u2")
	track(t, s, clk, d.AddDate(0, 0, 1), "a", model.EventOpen, "u1")
	track(t, s, clk, d.AddDate(0, 0, 7), "a", model.EventOpen, "u1")
	track(t, s, clk, d.AddDate(0, 0, 3), "a", model.EventOpen, "u2")
	// u3 first opened before the window.
	track(t, s, clk, d.AddDate(0, 0, -10), "a", model.EventOpen, "u3")
	track(t, s, clk, d.AddDate(0, 0, 1), "a", model.EventOpen, "u3")

	members, err := s.CohortMembers(context.Background(), "a", d)
	if err != nil {
		t.Fatal(err)
	}
	want := []model.CohortMember{
		{UserID: "u1", CohortDate: d, ActiveDate: d.AddDate(0, 0, 1)},
		{UserID: "u1", CohortDate: d, ActiveDate: d.AddDate(0, 0, 7)},
		{UserID: "u2", CohortDate: d},
	}
	if len(members) != len(want) {
		t.Fatalf("got %+v, want %+v", members, want)
	}
	for i := range want {
		if members[i].UserID != want[i].UserID ||
			!members[i].CohortDate.Equal(want[i].CohortDate) ||
			!members[i].ActiveDate.Equal(want[i].ActiveDate) {
			t.Errorf("members[%d] = %+v, want %+v", i, members[i], want[i])
		}
	}
}

func TestListFeedback_NewestFirst(t *testing.T) {
	clk := &fakeClock{}
	s := New(WithClock(clk.Now))
	base := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

	for i, content := range []string{"one", "two", "three"} {
		clk.Set(base.Add(time.Duration(i) * time.Minute))
		if err := s.AppendFeedback(context.Background(), &model.Feedback{AppID: "a", Content: content}); err != nil {
			t.Fatal(err)
		}
	}
	clk.Set(base)
	if err := s.AppendFeedback(context.Background(), &model.Feedback{AppID: "b", Content: "elsewhere"}); err != nil {
		t.Fatal(err)
	}

	for _, tc := range []struct {
		limit int
		want  []string
	}{
		{50, []string{"three", "two", "one"}},
		{2, []string{"three", "two"}},
		{0, nil},
		{-1, nil},
	} {
		items, err := s.ListFeedback(context.Background(), "a", tc.limit)
		if err != nil {
			t.Fatal(err)
		}
		if len(items) != len(tc.want) {
			t.Fatalf("ListFeedback(limit=%d) returned %d items, want %d", tc.limit, len(items), len(tc.want))
		}
		for i := range tc.want {
			if items[i].Content != tc.want[i] {
				t.Errorf("ListFeedback(limit=%d)[%d] = %q, want %q", tc.limit, i, items[i].Content, tc.want[i])
			}
		}
	}
}

func TestListFeedback_SameSecondTieBreaksOnID(t *testing.T) {
	clk := &fakeClock{now: time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)}
	s := New(WithClock(clk.Now))
	for _, content := range []string{"first", "second"} {
		if err := s.AppendFeedback(context.Background(), &model.Feedback{AppID: "a", Content: content}); err != nil {
			t.Fatal(err)
		}
	}
	items, err := s.ListFeedback(context.Background(), "a", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 2 || items[0].Content != "second" {
		t.Errorf("items = %+v, want second first", items)
	}
}

func TestListByDate(t *testing.T) {
	clk := &fakeClock{}
	s := New(WithClock(clk.Now))

	track(t, s, clk, day("2026-05-01").Add(23*time.Hour), "a", model.EventOpen, "u1")
	track(t, s, clk, day("2026-05-02"), "a", model.EventOpen, "u1")
	clk.Set(day("2026-05-01").Add(time.Hour))
	if err := s.AppendFeedback(context.Background(), &model.Feedback{AppID: "a", Content: "hi"}); err != nil {
		t.Fatal(err)
	}

	events, err := s.ListEventsByDate(context.Background(), day("2026-05-01"))
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 || events[0].ID != 1 {
		t.Errorf("events = %+v", events)
	}
	items, err := s.ListFeedbackByDate(context.Background(), day("2026-05-01"))
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 || items[0].Content != "hi" {
		t.Errorf("feedback = %+v", items)
	}
}

func TestReadSnapshot_IsolatedFromLaterAppends(t *testing.T) {
	s := New()
	ctx := context.Background()
	if err := s.AppendEvent(ctx, &model.Event{AppID: "a", Name: model.EventInstall, UserID: "u1"}); err != nil {
		t.Fatal(err)
	}

	err := s.ReadSnapshot(ctx, func(tx store.Store) error {
		if err := s.AppendEvent(ctx, &model.Event{AppID: "a", Name: model.EventInstall, UserID: "u2"}); err != nil {
			return err
		}
		n, err := tx.CountInstalls(ctx, "a")
		if err != nil {
			return err
		}
		if n != 1 {
			t.Errorf("snapshot saw %d installs, want 1", n)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestClose(t *testing.T) {
	s := New()
	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("Ping before Close: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if err := s.Ping(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("Ping after Close = %v, want ErrClosed", err)
	}
	if err := s.AppendEvent(context.Background(), &model.Event{AppID: "a", Name: "x", UserID: "u"}); !errors.Is(err, ErrClosed) {
		t.Errorf("AppendEvent after Close = %v, want ErrClosed", err)
	}
}
