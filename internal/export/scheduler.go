package export

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/ooAKLoo/AppScope/internal/model"
	"github.com/ooAKLoo/AppScope/internal/store"
)

// Destination is an archive target for daily exports.
type Destination interface {
	// Name identifies the destination in logs.
	Name() string
	// Write stores data under the given object name, replacing any previous copy.
	Write(ctx context.Context, name string, data []byte) error
}

// Scheduler exports the previous UTC day to every destination at startup
// and then on each tick. Re-exporting a day overwrites the earlier object.
type Scheduler struct {
	store        store.Store
	destinations []Destination
	interval     time.Duration
	now          store.Clock
	logger       *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler creates a scheduler exporting from s.
func NewScheduler(s store.Store, destinations []Destination, interval time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		store:        s,
		destinations: destinations,
		interval:     interval,
		now:          time.Now,
		logger:       logger,
	}
}

// Start begins periodic export.
func (s *Scheduler) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(ctx)
	}()
}

// Stop cancels the scheduler and waits for an in-flight export to finish.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

func (s *Scheduler) run(ctx context.Context) {
	s.RunOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce exports yesterday to every destination. Failures are logged per
// destination; one failing destination does not skip the others.
func (s *Scheduler) RunOnce(ctx context.Context) {
	day := model.AddDays(model.DateOf(s.now()), -1)

	var buf bytes.Buffer
	if err := ExportDay(ctx, s.store, day, &buf); err != nil {
		s.logger.Error("export failed", "date", model.FormatDate(day), "err", err)
		return
	}
	data := buf.Bytes()
	name := FileName(day)

	for _, dest := range s.destinations {
		if err := dest.Write(ctx, name, data); err != nil {
			s.logger.Error("export destination write failed", "destination", dest.Name(), "object", name, "err", err)
		}
	}

	s.logger.Info("export completed", "date", model.FormatDate(day), "destinations", len(s.destinations), "bytes", len(data))
}
