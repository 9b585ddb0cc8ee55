package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/johnquangdev/meeting-pipeline/internal/domain/entities"
	"github.com/johnquangdev/meeting-pipeline/internal/domain/repositories"
	ucerrors "github.com/johnquangdev/meeting-pipeline/internal/usecase/errors"
)

// Queue is the part of the worker pool the sweeper needs
type Queue interface {
	Submit(meetingID uuid.UUID) error
	Queued(meetingID uuid.UUID) bool
}

const sweepBatchSize = 100

// Sweeper periodically resubmits meetings whose chain stopped without reaching
// a terminal state: runs lost to a crash or restart, and uploads whose
// submission was dropped because the queue was full. Completed meetings
// whose completion hooks did not finish are resubmitted so the hooks run.
type Sweeper struct {
	meetings   repositories.MeetingRepository
	ledger     repositories.StepLedger
	queue      Queue
	staleAfter time.Duration
	now        func() time.Time
	logger     *zap.Logger

	mu   sync.Mutex
	cron *cron.Cron
}

// NewSweeper constructs a recovery sweeper
func NewSweeper(meetings repositories.MeetingRepository, ledger repositories.StepLedger, queue Queue, policy Policy, logger *zap.Logger) *Sweeper {
	return &Sweeper{
		meetings:   meetings,
		ledger:     ledger,
		queue:      queue,
		staleAfter: policy.StaleAfter,
		now:        func() time.Time { return time.Now().UTC() },
		logger:     logger,
	}
}

// Start schedules Sweep with a cron spec such as "@every 5m"
func (s *Sweeper) Start(ctx context.Context, schedule string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil {
		return fmt.Errorf("sweeper already started")
	}

	c := cron.New()
	if _, err := c.AddFunc(schedule, func() {
		if _, err := s.Sweep(ctx); err != nil && s.logger != nil {
			s.logger.Error("❌ Sweep failed", zap.Error(err))
		}
	}); err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}
	c.Start()
	s.cron = c

	if s.logger != nil {
		s.logger.Info("🧹 Recovery sweeper started", zap.String("schedule", schedule))
	}
	return nil
}

// Stop halts the schedule and waits for a sweep in progress
func (s *Sweeper) Stop() {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()

	if c == nil {
		return
	}
	ctx := c.Stop()
	<-ctx.Done()
}

// Sweep resubmits resumable meetings, then completed meetings whose hooks
// never finished, and returns how many were queued
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	meetings, err := s.meetings.FindByStatus(ctx, entities.MeetingStatusProcessing, sweepBatchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to list processing meetings: %w", err)
	}

	now := s.now()
	var stalled []uuid.UUID
	for _, m := range meetings {
		if s.queue.Queued(m.ID) {
			continue
		}
		steps, err := s.ledger.Steps(ctx, m.ID)
		if err != nil {
			return 0, err
		}
		if resumable(steps, now, s.staleAfter) {
			stalled = append(stalled, m.ID)
		}
	}

	submitted, full, err := s.submit(stalled)
	if err != nil || full {
		return submitted, err
	}

	owed, err := s.meetings.FindHooksPending(ctx, sweepBatchSize)
	if err != nil {
		return submitted, fmt.Errorf("failed to list meetings with pending hooks: %w", err)
	}
	var pending []uuid.UUID
	for _, m := range owed {
		if !s.queue.Queued(m.ID) {
			pending = append(pending, m.ID)
		}
	}
	n, _, err := s.submit(pending)
	submitted += n
	if err != nil {
		return submitted, err
	}

	if submitted > 0 && s.logger != nil {
		s.logger.Info("🧹 Resubmitted stalled meetings", zap.Int("count", submitted))
	}
	return submitted, nil
}

// submit queues ids in order and reports whether the queue filled up
func (s *Sweeper) submit(ids []uuid.UUID) (int, bool, error) {
	submitted := 0
	for _, id := range ids {
		if err := s.queue.Submit(id); err != nil {
			if errors.Is(err, ucerrors.ErrQueueFull) {
				if s.logger != nil {
					s.logger.Warn("⚠️ Queue full, sweep stopped early", zap.Int("submitted", submitted))
				}
				return submitted, true, nil
			}
			return submitted, false, err
		}
		submitted++
	}
	return submitted, false, nil
}

// resumable reports whether no live run appears to own the chain: nothing is
// running, or the running step has not moved within staleAfter.
func resumable(steps []*entities.ProcessingStep, now time.Time, staleAfter time.Duration) bool {
	for _, s := range steps {
		if s.Status == entities.StepStatusFailed {
			return false
		}
		if s.Status == entities.StepStatusRunning {
			return s.IsStale(now, staleAfter)
		}
	}
	return len(steps) > 0
}
