package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/SAP-F-2025/hr-assessment-service/internal/services"
)

// OrderCompactor renumbers question orderings left sparse by failed deletes
type OrderCompactor interface {
	CompactAll(ctx context.Context) error
}

// DirectorySyncer mirrors the identity directory into the local user tables
type DirectorySyncer interface {
	SyncDirectory(ctx context.Context) (int, error)
}

// Scheduler runs the periodic maintenance jobs
type Scheduler struct {
	scheduler *gocron.Scheduler
	compactor OrderCompactor
	syncer    DirectorySyncer
	logger    *slog.Logger
	timeout   time.Duration
}

func New(compactor OrderCompactor, syncer DirectorySyncer, logger *slog.Logger) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	return &Scheduler{
		scheduler: s,
		compactor: compactor,
		syncer:    syncer,
		logger:    logger,
		timeout:   5 * time.Minute,
	}
}

// Start registers every job with a positive interval and starts the scheduler
// without blocking. Runs of the same job never overlap.
func (s *Scheduler) Start(compactEvery, syncEvery time.Duration) error {
	if compactEvery > 0 {
		if _, err := s.scheduler.Every(compactEvery).SingletonMode().Do(s.CompactQuestionOrder); err != nil {
			return fmt.Errorf("failed to schedule order compaction: %w", err)
		}
		s.logger.Info("Scheduled question order compaction", "interval", compactEvery)
	}
	if syncEvery > 0 && s.syncer != nil {
		if _, err := s.scheduler.Every(syncEvery).SingletonMode().Do(s.SyncDirectory); err != nil {
			return fmt.Errorf("failed to schedule directory sync: %w", err)
		}
		s.logger.Info("Scheduled directory sync", "interval", syncEvery)
	}

	s.scheduler.StartAsync()
	return nil
}

// Stop terminates the scheduler; a job already running finishes first
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

// Jobs reports how many jobs are registered
func (s *Scheduler) Jobs() int {
	return s.scheduler.Len()
}

func (s *Scheduler) CompactQuestionOrder() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	start := time.Now()
	if err := s.compactor.CompactAll(ctx); err != nil {
		var renumberErr *services.RenumberError
		if errors.As(err, &renumberErr) {
			s.logger.Warn("Question order compaction incomplete", "error", err)
			return
		}
		s.logger.Error("Question order compaction failed", "error", err)
		return
	}
	s.logger.Debug("Question order compaction finished", "duration", time.Since(start))
}

func (s *Scheduler) SyncDirectory() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	synced, err := s.syncer.SyncDirectory(ctx)
	if err != nil {
		if errors.Is(err, services.ErrDirectoryUnavailable) {
			s.logger.Debug("Directory sync skipped", "reason", err)
			return
		}
		s.logger.Error("Directory sync failed", "error", err)
		return
	}
	s.logger.Info("Directory sync finished", "users", synced)
}
