package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/johnquangdev/meeting-pipeline/internal/domain/entities"
)

// StepLedger is the durable record of per-meeting pipeline steps.
// Every mutation is a compare-and-set on the current status.
type StepLedger interface {
	// Steps returns the meeting's steps ordered by pipeline position
	Steps(ctx context.Context, meetingID uuid.UUID) ([]*entities.ProcessingStep, error)

	// Transition moves one step from t.From to t.To, persisting t.Output and the
	// derived meeting status in the same transaction. It returns
	// entities.ErrTransitionConflict when the stored status is not t.From.
	Transition(ctx context.Context, t StepTransition) error

	// ReportProgress raises the progress of a running step; lower values are ignored
	ReportProgress(ctx context.Context, meetingID uuid.UUID, kind entities.StepKind, progress int) error

	// ResetFrom returns the step at from and every later step to pending and
	// deletes the derived data those steps own
	ResetFrom(ctx context.Context, meetingID uuid.UUID, from entities.StepKind, at time.Time) ([]*entities.ProcessingStep, error)
}

// StepTransition describes one compare-and-set update of a ledger row
type StepTransition struct {
	MeetingID    uuid.UUID
	Kind         entities.StepKind
	From         entities.StepStatus
	To           entities.StepStatus
	At           time.Time
	ErrorMessage string     // failed only
	Output       StepOutput // completed only
}

// StepOutput is the durable product of a completed step.
// The set of implementations is closed: one per step kind.
type StepOutput interface {
	Kind() entities.StepKind
	isStepOutput()
}

// TranscriptOutput is produced by the transcription step
type TranscriptOutput struct {
	Transcript *entities.Transcript
}

func (TranscriptOutput) Kind() entities.StepKind { return entities.StepTranscription }
func (TranscriptOutput) isStepOutput()           {}

// AnalysisOutput is produced by the analysis step
type AnalysisOutput struct {
	Summary *entities.MeetingSummary
}

func (AnalysisOutput) Kind() entities.StepKind { return entities.StepAnalysis }
func (AnalysisOutput) isStepOutput()           {}

// TimelineOutput is produced by the timeline_extraction step
type TimelineOutput struct {
	Entries []*entities.TimelineEntry
}

func (TimelineOutput) Kind() entities.StepKind { return entities.StepTimelineExtraction }
func (TimelineOutput) isStepOutput()           {}

// TaskOutput is produced by the task_extraction step
type TaskOutput struct {
	Tasks []*entities.Task
}

func (TaskOutput) Kind() entities.StepKind { return entities.StepTaskExtraction }
func (TaskOutput) isStepOutput()           {}
