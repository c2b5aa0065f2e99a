package archive

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler prunes the archive on a cron schedule.
type Scheduler struct {
	archive   *Archive
	retention time.Duration
	logger    *slog.Logger

	mu     sync.Mutex
	cron   *cron.Cron
	cronID cron.EntryID
}

func NewScheduler(a *Archive, retention time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		archive:   a,
		retention: retention,
		logger:    logger,
		cron:      cron.New(),
	}
}

// Start registers the prune job with a standard cron spec or descriptor
// such as "@hourly" and starts the scheduler.
func (s *Scheduler) Start(spec string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.cron.AddFunc(spec, s.RunOnce)
	if err != nil {
		return fmt.Errorf("failed to add prune job: %w", err)
	}

	s.cronID = id
	s.cron.Start()
	if s.logger != nil {
		s.logger.Info("payload pruning scheduled", "schedule", spec, "retention", s.retention.String())
	}
	return nil
}

// RunOnce prunes immediately.
func (s *Scheduler) RunOnce() {
	n, err := s.archive.Prune(s.retention)
	if s.logger == nil {
		return
	}
	if err != nil {
		s.logger.Error("payload pruning failed", "error", err, "removed", n)
		return
	}
	if n > 0 {
		s.logger.Info("pruned payload dumps", "removed", n)
	}
}

// Next returns the next scheduled run, zero before Start.
func (s *Scheduler) Next() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cronID == 0 {
		return time.Time{}
	}
	entry := s.cron.Entry(s.cronID)
	if !entry.Valid() {
		return time.Time{}
	}
	if !entry.Next.IsZero() {
		return entry.Next
	}
	return entry.Schedule.Next(time.Now())
}

// Stop halts the scheduler and waits for a running prune to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
