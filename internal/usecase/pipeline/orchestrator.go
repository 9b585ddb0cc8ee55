package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/johnquangdev/meeting-pipeline/internal/domain/entities"
	"github.com/johnquangdev/meeting-pipeline/internal/domain/repositories"
	"github.com/johnquangdev/meeting-pipeline/internal/domain/stages"
	"github.com/johnquangdev/meeting-pipeline/pkg/jobcontext"
)

// CompletionHook runs after a chain drives a meeting to completed.
// Hook errors are logged and never change step state.
type CompletionHook interface {
	OnPipelineCompleted(ctx context.Context, meetingID uuid.UUID) error
}

// Orchestrator advances meetings through the step sequence
type Orchestrator struct {
	meetings  repositories.MeetingRepository
	ledger    repositories.StepLedger
	artifacts repositories.ArtifactRepository
	stages    stages.Set
	locker    repositories.ExecutionLocker
	policy    Policy
	hooks     []CompletionHook
	now       func() time.Time
	logger    *zap.Logger
}

// OrchestratorDeps groups the collaborators of an Orchestrator
type OrchestratorDeps struct {
	Meetings  repositories.MeetingRepository
	Ledger    repositories.StepLedger
	Artifacts repositories.ArtifactRepository
	Stages    stages.Set
	Locker    repositories.ExecutionLocker
	Hooks     []CompletionHook
}

// NewOrchestrator constructs a new orchestrator
func NewOrchestrator(deps OrchestratorDeps, policy Policy, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		meetings:  deps.Meetings,
		ledger:    deps.Ledger,
		artifacts: deps.Artifacts,
		stages:    deps.Stages,
		locker:    deps.Locker,
		policy:    policy,
		hooks:     deps.Hooks,
		now:       func() time.Time { return time.Now().UTC() },
		logger:    logger,
	}
}

// Run takes the meeting lock and drives the chain until it completes, a step
// fails or ctx is cancelled. It returns entities.ErrPipelineBusy without waiting
// when another run holds the lock. Stage failures are recorded in the ledger and
// are not returned.
func (o *Orchestrator) Run(ctx context.Context, meetingID uuid.UUID) error {
	lease, err := o.locker.TryLock(ctx, meetingID)
	if err != nil {
		return err
	}
	defer o.release(lease)

	return o.RunLeased(ctx, lease)
}

// RunLeased drives the chain under a lease the caller already holds.
// The caller keeps ownership of the lease.
func (o *Orchestrator) RunLeased(ctx context.Context, lease repositories.Lease) error {
	meeting, err := o.meetings.FindByID(ctx, lease.MeetingID())
	if err != nil {
		return fmt.Errorf("failed to load meeting: %w", err)
	}
	if meeting == nil {
		return entities.ErrMeetingNotFound
	}
	return o.runChain(ctx, meeting)
}

func (o *Orchestrator) release(lease repositories.Lease) {
	// the run context may already be cancelled; release must still happen
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := lease.Release(ctx); err != nil && o.logger != nil {
		o.logger.Warn("⚠️ Failed to release meeting lock",
			zap.String("meeting_id", lease.MeetingID().String()),
			zap.Error(err),
		)
	}
}

func (o *Orchestrator) runChain(ctx context.Context, meeting *entities.Meeting) error {
	advanced := false

	for {
		steps, err := o.ledger.Steps(ctx, meeting.ID)
		if err != nil {
			return err
		}
		next, err := firstIncomplete(steps)
		if err != nil {
			return err
		}

		if next == nil {
			if advanced && o.logger != nil {
				o.logger.Info("✅ Pipeline completed", zap.String("meeting_id", meeting.ID.String()))
			}
			// a crash between the last step and the marker leaves hooks owed
			if advanced || meeting.HooksRanAt == nil {
				o.runHooks(ctx, meeting.ID)
			}
			return nil
		}

		if next.Status == entities.StepStatusFailed {
			if o.logger != nil {
				o.logger.Info("⏹️ Pipeline halted on failed step, reprocess required",
					zap.String("meeting_id", meeting.ID.String()),
					zap.String("step", string(next.Kind)),
				)
			}
			return nil
		}

		completed, err := o.executeStep(ctx, meeting, next)
		if err != nil {
			return err
		}
		if !completed {
			return nil
		}
		advanced = true
	}
}

// firstIncomplete returns the first step in sequence order that is not
// completed, or nil when every step is.
func firstIncomplete(steps []*entities.ProcessingStep) (*entities.ProcessingStep, error) {
	if len(steps) == 0 {
		return nil, entities.ErrStepsMissing
	}
	for _, s := range steps {
		if !s.Kind.Valid() {
			return nil, fmt.Errorf("%w: %q", entities.ErrUnknownStepKind, s.Kind)
		}
	}
	if len(steps) != len(entities.StepSequence) {
		return nil, fmt.Errorf("%w: found %d of %d", entities.ErrStepsMissing, len(steps), len(entities.StepSequence))
	}
	for _, s := range steps {
		if s.Status != entities.StepStatusCompleted {
			return s, nil
		}
	}
	return nil, nil
}

// executeStep runs one step. It reports whether the step completed; a recorded
// failure returns (false, nil).
func (o *Orchestrator) executeStep(ctx context.Context, meeting *entities.Meeting, step *entities.ProcessingStep) (bool, error) {
	kind := step.Kind
	log := o.stepLogger(ctx, meeting.ID, kind)

	if step.Status == entities.StepStatusRunning && log != nil {
		log.Warn("🔄 Restarting step left running by an earlier run")
	}

	if err := o.ledger.Transition(ctx, repositories.StepTransition{
		MeetingID: meeting.ID,
		Kind:      kind,
		From:      step.Status,
		To:        entities.StepStatusRunning,
		At:        o.now(),
	}); err != nil {
		return false, fmt.Errorf("failed to start %s: %w", kind, err)
	}

	if log != nil {
		log.Info("🚀 Step started")
	}

	in, err := o.prepare(ctx, meeting, kind)
	var (
		output   repositories.StepOutput
		failure  *entities.StageFailure
		attempts int
	)
	switch {
	case err == nil:
		output, failure, attempts = o.attempt(ctx, meeting, kind, in)
	case errors.Is(err, errInputMissing):
		failure = entities.PermanentFailure(entities.ReasonInvalidInput, err)
	default:
		return false, err
	}

	if ctx.Err() != nil {
		if log != nil {
			log.Warn("⚠️ Run cancelled, step left running", zap.Error(ctx.Err()))
		}
		return false, ctx.Err()
	}

	if failure != nil {
		msg := failureMessage(kind, failure, attempts)
		if err := o.ledger.Transition(ctx, repositories.StepTransition{
			MeetingID:    meeting.ID,
			Kind:         kind,
			From:         entities.StepStatusRunning,
			To:           entities.StepStatusFailed,
			At:           o.now(),
			ErrorMessage: msg,
		}); err != nil {
			return false, fmt.Errorf("failed to record %s failure: %w", kind, err)
		}
		if log != nil {
			log.Error("❌ Step failed",
				zap.String("reason", failure.Reason),
				zap.Int("attempts", attempts),
				zap.Error(failure),
			)
		}
		return false, nil
	}

	if err := o.ledger.Transition(ctx, repositories.StepTransition{
		MeetingID: meeting.ID,
		Kind:      kind,
		From:      entities.StepStatusRunning,
		To:        entities.StepStatusCompleted,
		At:        o.now(),
		Output:    output,
	}); err != nil {
		return false, fmt.Errorf("failed to complete %s: %w", kind, err)
	}

	if log != nil {
		log.Info("✅ Step completed", zap.Int("attempts", attempts))
	}
	return true, nil
}

var errInputMissing = errors.New("step input missing")

// prepare loads the outputs of earlier steps that kind depends on
func (o *Orchestrator) prepare(ctx context.Context, meeting *entities.Meeting, kind entities.StepKind) (stages.ExtractionInput, error) {
	in := stages.ExtractionInput{MeetingID: meeting.ID}

	switch kind {
	case entities.StepTranscription:
		if meeting.AudioRef == "" {
			return in, fmt.Errorf("%w: meeting has no audio reference", errInputMissing)
		}
		return in, nil
	case entities.StepAnalysis, entities.StepTimelineExtraction, entities.StepTaskExtraction:
	default:
		return in, fmt.Errorf("%w: %q", entities.ErrUnknownStepKind, kind)
	}

	transcript, err := o.artifacts.GetTranscript(ctx, meeting.ID)
	if err != nil {
		return in, fmt.Errorf("failed to load transcript: %w", err)
	}
	if transcript == nil {
		return in, fmt.Errorf("%w: transcript not found", errInputMissing)
	}
	in.Transcript = transcript

	if kind == entities.StepAnalysis {
		return in, nil
	}

	summary, err := o.artifacts.GetSummary(ctx, meeting.ID)
	if err != nil {
		return in, fmt.Errorf("failed to load analysis: %w", err)
	}
	if summary == nil {
		return in, fmt.Errorf("%w: analysis not found", errInputMissing)
	}
	in.Analysis = summary.Result()
	return in, nil
}

// attempt invokes the stage with per-attempt timeouts, retrying transient
// failures with constant backoff up to the policy limit.
func (o *Orchestrator) attempt(ctx context.Context, meeting *entities.Meeting, kind entities.StepKind, in stages.ExtractionInput) (repositories.StepOutput, *entities.StageFailure, int) {
	log := o.stepLogger(ctx, meeting.ID, kind)
	stepCtx := jobcontext.StepBegin(ctx, meeting.ID, string(kind), o.policy.MaxRetries)
	stepCtx = jobcontext.WithProgress(stepCtx, func(progress int) {
		if err := o.ledger.ReportProgress(ctx, meeting.ID, kind, progress); err != nil && log != nil {
			log.Warn("⚠️ Failed to record progress", zap.Int("progress", progress), zap.Error(err))
		}
	})

	var (
		output   repositories.StepOutput
		last     *entities.StageFailure
		attempts int
	)

	op := func() error {
		attemptCtx, cancel := context.WithTimeout(jobcontext.SetRetryAttempt(stepCtx, attempts), o.policy.Timeout(kind))
		defer cancel()
		attempts++

		out, err := o.invoke(attemptCtx, meeting, kind, in)
		if err == nil {
			output = out
			return nil
		}
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}

		last = classify(err)
		if !last.Transient() {
			return backoff.Permanent(last)
		}
		if log != nil {
			log.Warn("⚠️ Transient stage failure", append(attemptFields(attemptCtx),
				zap.String("reason", last.Reason),
				zap.Error(err),
			)...)
		}
		return last
	}

	bo := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(o.policy.Backoff), uint64(o.policy.MaxRetries)),
		ctx,
	)
	if err := backoff.Retry(op, bo); err != nil {
		if ctx.Err() != nil {
			return nil, nil, attempts
		}
		if last == nil {
			last = classify(err)
		}
		return nil, last, attempts
	}
	return output, nil, attempts
}

// invoke dispatches to the stage that owns kind
func (o *Orchestrator) invoke(ctx context.Context, meeting *entities.Meeting, kind entities.StepKind, in stages.ExtractionInput) (output repositories.StepOutput, err error) {
	defer func() {
		if p := recover(); p != nil {
			output = nil
			err = entities.PermanentFailure(entities.ReasonUnknown, fmt.Errorf("panic in %s stage: %v", kind, p))
		}
	}()

	switch kind {
	case entities.StepTranscription:
		if o.stages.Transcriber == nil {
			return nil, entities.PermanentFailure(entities.ReasonUnknown, errors.New("no transcriber configured"))
		}
		transcript, err := o.stages.Transcriber.Transcribe(ctx, meeting.AudioRef)
		if err != nil {
			return nil, err
		}
		if transcript == nil || strings.TrimSpace(transcript.Text) == "" {
			return nil, entities.PermanentFailure(entities.ReasonInvalidInput, errors.New("transcription produced no text"))
		}
		return repositories.TranscriptOutput{Transcript: transcript}, nil

	case entities.StepAnalysis:
		if o.stages.Analyzer == nil {
			return nil, entities.PermanentFailure(entities.ReasonUnknown, errors.New("no analyzer configured"))
		}
		started := time.Now()
		result, err := o.stages.Analyzer.Analyze(ctx, in.Transcript.Text)
		if err != nil {
			return nil, err
		}
		if result == nil {
			return nil, entities.PermanentFailure(entities.ReasonMalformedOutput, errors.New("analysis returned no result"))
		}
		return repositories.AnalysisOutput{Summary: entities.NewMeetingSummary(meeting.ID, result, time.Since(started))}, nil

	case entities.StepTimelineExtraction:
		if o.stages.Timeline == nil {
			return nil, entities.PermanentFailure(entities.ReasonUnknown, errors.New("no timeline extractor configured"))
		}
		entries, err := o.stages.Timeline.ExtractTimeline(ctx, in)
		if err != nil {
			return nil, err
		}
		return repositories.TimelineOutput{Entries: entries}, nil

	case entities.StepTaskExtraction:
		if o.stages.Tasks == nil {
			return nil, entities.PermanentFailure(entities.ReasonUnknown, errors.New("no task extractor configured"))
		}
		tasks, err := o.stages.Tasks.ExtractTasks(ctx, in)
		if err != nil {
			return nil, err
		}
		return repositories.TaskOutput{Tasks: tasks}, nil
	}

	return nil, entities.PermanentFailure(entities.ReasonUnknown, fmt.Errorf("%w: %q", entities.ErrUnknownStepKind, kind))
}

// runHooks calls every completion hook and marks the meeting once all of
// them succeed. Hooks must tolerate a repeat call for the same meeting.
func (o *Orchestrator) runHooks(ctx context.Context, meetingID uuid.UUID) {
	failed := false
	for _, hook := range o.hooks {
		if err := hook.OnPipelineCompleted(ctx, meetingID); err != nil {
			failed = true
			if o.logger != nil {
				o.logger.Warn("⚠️ Completion hook failed",
					zap.String("meeting_id", meetingID.String()),
					zap.Error(err),
				)
			}
		}
	}
	if failed {
		return
	}
	if err := o.meetings.MarkHooksRun(ctx, meetingID, o.now()); err != nil && o.logger != nil {
		o.logger.Warn("⚠️ Failed to mark completion hooks",
			zap.String("meeting_id", meetingID.String()),
			zap.Error(err),
		)
	}
}

func (o *Orchestrator) stepLogger(ctx context.Context, meetingID uuid.UUID, kind entities.StepKind) *zap.Logger {
	if o.logger == nil {
		return nil
	}
	fields := []zap.Field{
		zap.String("meeting_id", meetingID.String()),
		zap.String("step", string(kind)),
	}
	if workerID := jobcontext.GetWorkerID(ctx); workerID >= 0 {
		fields = append(fields, zap.Int("worker_id", workerID))
	}
	return o.logger.With(fields...)
}

// attemptFields describes the attempt carried by a step context
func attemptFields(ctx context.Context) []zap.Field {
	meta := jobcontext.GetStepMetadata(ctx)
	fields := []zap.Field{
		zap.Int("attempt", meta.RetryAttempt+1),
		zap.Int("max_retries", meta.MaxRetries),
	}
	if !meta.StartTime.IsZero() {
		fields = append(fields, zap.Duration("elapsed", time.Since(meta.StartTime)))
	}
	return fields
}

func failureMessage(kind entities.StepKind, f *entities.StageFailure, attempts int) string {
	cause := "unknown error"
	if f.Err != nil {
		cause = f.Err.Error()
	}
	if attempts == 0 {
		return fmt.Sprintf("%s failed (%s): %s", kind, f.Reason, cause)
	}
	return fmt.Sprintf("%s failed (%s) after %d attempt(s): %s", kind, f.Reason, attempts, cause)
}
