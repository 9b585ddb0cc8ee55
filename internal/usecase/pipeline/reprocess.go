package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/johnquangdev/meeting-pipeline/internal/domain/entities"
	"github.com/johnquangdev/meeting-pipeline/internal/domain/repositories"
)

// Dispatcher queues meetings for background processing
type Dispatcher interface {
	// Submit queues a meeting; the worker takes the lock itself
	Submit(meetingID uuid.UUID) error
	// SubmitLeased queues a meeting whose lock is already held. The dispatcher
	// owns the lease from then on, including on error.
	SubmitLeased(lease repositories.Lease) error
}

// EventCleanup removes the calendar events of tasks a reset drops
type EventCleanup interface {
	Collect(ctx context.Context, meetingID uuid.UUID) []string
	Remove(ctx context.Context, meetingID uuid.UUID, eventIDs []string)
}

// ReprocessController resets a suffix of the step sequence and re-runs it
type ReprocessController struct {
	meetings   repositories.MeetingRepository
	ledger     repositories.StepLedger
	locker     repositories.ExecutionLocker
	dispatcher Dispatcher
	events     EventCleanup
	staleAfter time.Duration
	now        func() time.Time
	logger     *zap.Logger
}

// NewReprocessController constructs a reprocess controller
func NewReprocessController(
	meetings repositories.MeetingRepository,
	ledger repositories.StepLedger,
	locker repositories.ExecutionLocker,
	dispatcher Dispatcher,
	policy Policy,
	logger *zap.Logger,
) *ReprocessController {
	return &ReprocessController{
		meetings:   meetings,
		ledger:     ledger,
		locker:     locker,
		dispatcher: dispatcher,
		staleAfter: policy.StaleAfter,
		now:        func() time.Time { return time.Now().UTC() },
		logger:     logger,
	}
}

// WithEventCleanup makes resets delete the calendar events of the tasks they drop
func (r *ReprocessController) WithEventCleanup(events EventCleanup) *ReprocessController {
	r.events = events
	return r
}

// Reprocess resets the meeting from the given step (or the first failed step,
// or transcription) and queues a run. It returns the step it restarted from.
// A held lock or a live running step is reported as entities.ErrPipelineBusy;
// a start step with an unfinished predecessor as entities.ErrStepNotReady.
func (r *ReprocessController) Reprocess(ctx context.Context, meetingID uuid.UUID, from *entities.StepKind) (entities.StepKind, error) {
	if from != nil && !from.Valid() {
		return "", fmt.Errorf("%w: %q", entities.ErrUnknownStepKind, *from)
	}

	meeting, err := r.meetings.FindByID(ctx, meetingID)
	if err != nil {
		return "", fmt.Errorf("failed to load meeting: %w", err)
	}
	if meeting == nil {
		return "", entities.ErrMeetingNotFound
	}

	lease, err := r.locker.TryLock(ctx, meetingID)
	if err != nil {
		return "", err
	}
	handedOff := false
	defer func() {
		if !handedOff {
			_ = lease.Release(context.Background())
		}
	}()

	steps, err := r.ledger.Steps(ctx, meetingID)
	if err != nil {
		return "", err
	}
	if len(steps) == 0 {
		return "", entities.ErrStepsMissing
	}

	now := r.now()
	for _, s := range steps {
		// without a lock holder a running row is left over from a dead run;
		// a recent one may still belong to a process outside this lock arena
		if s.Status == entities.StepStatusRunning && !s.IsStale(now, r.staleAfter) {
			return "", fmt.Errorf("%w: %s is running", entities.ErrPipelineBusy, s.Kind)
		}
	}

	start := resolveStart(steps, from)
	if err := predecessorsCompleted(steps, start); err != nil {
		return "", err
	}

	// task_extraction is last, so every reset drops the tasks
	var eventIDs []string
	if r.events != nil {
		eventIDs = r.events.Collect(ctx, meetingID)
	}

	if _, err := r.ledger.ResetFrom(ctx, meetingID, start, now); err != nil {
		return "", fmt.Errorf("failed to reset steps: %w", err)
	}
	if len(eventIDs) > 0 {
		r.events.Remove(ctx, meetingID, eventIDs)
	}

	handedOff = true
	if err := r.dispatcher.SubmitLeased(lease); err != nil {
		return "", err
	}

	if r.logger != nil {
		r.logger.Info("🔄 Reprocess queued",
			zap.String("meeting_id", meetingID.String()),
			zap.String("from_step", string(start)),
		)
	}
	return start, nil
}

func resolveStart(steps []*entities.ProcessingStep, from *entities.StepKind) entities.StepKind {
	if from != nil {
		return *from
	}
	for _, s := range steps {
		if s.Status == entities.StepStatusFailed {
			return s.Kind
		}
	}
	return entities.StepSequence[0]
}

// predecessorsCompleted rejects a start step whose earlier steps have not all
// completed; the chain would stop before reaching it.
func predecessorsCompleted(steps []*entities.ProcessingStep, start entities.StepKind) error {
	startPos, _ := start.Position()
	for _, s := range steps {
		pos, _ := s.Kind.Position()
		if pos < startPos && s.Status != entities.StepStatusCompleted {
			return fmt.Errorf("%w: %s is %s", entities.ErrStepNotReady, s.Kind, s.Status)
		}
	}
	return nil
}
