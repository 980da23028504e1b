// Package memory implements store.Store in process memory. It backs the
// memory:// database URL for local runs and is the fixture for engine and
// gateway tests.
package memory

import (
	"bytes"
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/ooAKLoo/AppScope/internal/model"
	"github.com/ooAKLoo/AppScope/internal/store"
)

// ErrClosed is returned by every operation after Close.
var ErrClosed = errors.New("memory store closed")

// Store is a mutex-guarded pair of append-only logs.
type Store struct {
	mu        sync.RWMutex
	now       store.Clock
	events    []model.Event
	feedbacks []model.Feedback
	closed    bool
}

// Compile-time check that Store implements store.Store.
var _ store.Store = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the clock used to stamp appended rows.
func WithClock(now store.Clock) Option {
	return func(s *Store) { s.now = now }
}

// New returns an empty store.
func New(opts ...Option) *Store {
	s := &Store{now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) AppendEvent(ctx context.Context, event *model.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	event.Stamp(s.now())
	event.ID = int64(len(s.events) + 1)
	stored := *event
	stored.Properties = bytes.Clone(event.Properties)
	s.events = append(s.events, stored)
	return nil
}

func (s *Store) AppendFeedback(ctx context.Context, feedback *model.Feedback) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	feedback.Stamp(s.now())
	feedback.ID = int64(len(s.feedbacks) + 1)
	stored := *feedback
	stored.Properties = bytes.Clone(feedback.Properties)
	s.feedbacks = append(s.feedbacks, stored)
	return nil
}

func (s *Store) ListAppSummaries(ctx context.Context, today time.Time) ([]model.AppSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	today = model.DateOf(today)
	type acc struct {
		openers  map[string]struct{}
		installs int64
	}
	byApp := make(map[string]*acc)
	for i := range s.events {
		e := &s.events[i]
		a, ok := byApp[e.AppID]
		if !ok {
			a = &acc{openers: make(map[string]struct{})}
			byApp[e.AppID] = a
		}
		switch e.Name {
		case model.EventOpen:
			if e.EventDate.Equal(today) {
				a.openers[e.UserID] = struct{}{}
			}
		case model.EventInstall:
			a.installs++
		}
	}

	apps := make([]model.AppSummary, 0, len(byApp))
	for id, a := range byApp {
		apps = append(apps, model.AppSummary{AppID: id, DAUToday: int64(len(a.openers)), TotalInstalls: a.installs})
	}
	sort.Slice(apps, func(i, j int) bool { return apps[i].AppID < apps[j].AppID })
	return apps, nil
}

func (s *Store) DailyActiveUsers(ctx context.Context, appID string, since time.Time) ([]model.DauPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	since = model.DateOf(since)
	users := make(map[time.Time]map[string]struct{})
	for i := range s.events {
		e := &s.events[i]
		if e.AppID != appID || e.Name != model.EventOpen || e.EventDate.Before(since) {
			continue
		}
		set, ok := users[e.EventDate]
		if !ok {
			set = make(map[string]struct{})
			users[e.EventDate] = set
		}
		set[e.UserID] = struct{}{}
	}

	points := make([]model.DauPoint, 0, len(users))
	for _, d := range sortedDates(users) {
		points = append(points, model.DauPoint{Date: model.FormatDate(d), DAU: int64(len(users[d]))})
	}
	return points, nil
}

func (s *Store) CountInstalls(ctx context.Context, appID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0, ErrClosed
	}

	var total int64
	for i := range s.events {
		if s.events[i].AppID == appID && s.events[i].Name == model.EventInstall {
			total++
		}
	}
	return total, nil
}

func (s *Store) DailyInstalls(ctx context.Context, appID string, since time.Time) ([]model.InstallPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	since = model.DateOf(since)
	counts := make(map[time.Time]int64)
	for i := range s.events {
		e := &s.events[i]
		if e.AppID != appID || e.Name != model.EventInstall || e.EventDate.Before(since) {
			continue
		}
		counts[e.EventDate]++
	}

	points := make([]model.InstallPoint, 0, len(counts))
	for _, d := range sortedDates(counts) {
		points = append(points, model.InstallPoint{Date: model.FormatDate(d), Installs: counts[d]})
	}
	return points, nil
}

func (s *Store) CohortMembers(ctx context.Context, appID string, since time.Time) ([]model.CohortMember, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	since = model.DateOf(since)
	first := make(map[string]time.Time)
	active := make(map[string]map[time.Time]struct{})
	for i := range s.events {
		e := &s.events[i]
		if e.AppID != appID || e.Name != model.EventOpen {
			continue
		}
		if d, ok := first[e.UserID]; !ok || e.EventDate.Before(d) {
			first[e.UserID] = e.EventDate
		}
		set, ok := active[e.UserID]
		if !ok {
			set = make(map[time.Time]struct{})
			active[e.UserID] = set
		}
		set[e.EventDate] = struct{}{}
	}

	var members []model.CohortMember
	for user, cohort := range first {
		if cohort.Before(since) {
			continue
		}
		matched := false
		for _, offset := range model.RetentionOffsets {
			d := model.AddDays(cohort, offset)
			if _, ok := active[user][d]; ok {
				members = append(members, model.CohortMember{UserID: user, CohortDate: cohort, ActiveDate: d})
				matched = true
			}
		}
		if !matched {
			members = append(members, model.CohortMember{UserID: user, CohortDate: cohort})
		}
	}
	sort.Slice(members, func(i, j int) bool {
		a, b := members[i], members[j]
		if !a.CohortDate.Equal(b.CohortDate) {
			return a.CohortDate.After(b.CohortDate)
		}
		if a.UserID != b.UserID {
			return a.UserID < b.UserID
		}
		return a.ActiveDate.Before(b.ActiveDate)
	})
	return members, nil
}

func (s *Store) ListFeedback(ctx context.Context, appID string, limit int) ([]*model.Feedback, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	items := []*model.Feedback{}
	for i := range s.feedbacks {
		if s.feedbacks[i].AppID == appID {
			f := s.feedbacks[i]
			items = append(items, &f)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.After(items[j].CreatedAt)
		}
		return items[i].ID > items[j].ID
	})
	if limit < 0 {
		limit = 0
	}
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (s *Store) ListEventsByDate(ctx context.Context, date time.Time) ([]*model.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	date = model.DateOf(date)
	events := []*model.Event{}
	for i := range s.events {
		if s.events[i].EventDate.Equal(date) {
			e := s.events[i]
			events = append(events, &e)
		}
	}
	return events, nil
}

func (s *Store) ListFeedbackByDate(ctx context.Context, date time.Time) ([]*model.Feedback, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	date = model.DateOf(date)
	items := []*model.Feedback{}
	for i := range s.feedbacks {
		if model.DateOf(s.feedbacks[i].CreatedAt).Equal(date) {
			f := s.feedbacks[i]
			items = append(items, &f)
		}
	}
	return items, nil
}

// ReadSnapshot runs fn against a frozen copy of both logs, so concurrent
// appends cannot land between the reads fn makes.
func (s *Store) ReadSnapshot(ctx context.Context, fn func(tx store.Store) error) error {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return ErrClosed
	}
	snap := &Store{
		now:       s.now,
		events:    append([]model.Event(nil), s.events...),
		feedbacks: append([]model.Feedback(nil), s.feedbacks...),
	}
	s.mu.RUnlock()
	return fn(snap)
}

// Ping reports ErrClosed after Close.
func (s *Store) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func sortedDates[V any](m map[time.Time]V) []time.Time {
	dates := make([]time.Time, 0, len(m))
	for d := range m {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates
}
