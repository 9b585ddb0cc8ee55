package entities

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// StepKind identifies one stage of the meeting pipeline
type StepKind string

const (
	StepTranscription      StepKind = "transcription"
	StepAnalysis           StepKind = "analysis"
	StepTimelineExtraction StepKind = "timeline_extraction"
	StepTaskExtraction     StepKind = "task_extraction"
)

// StepSequence is the fixed execution order of the pipeline.
var StepSequence = [...]StepKind{
	StepTranscription,
	StepAnalysis,
	StepTimelineExtraction,
	StepTaskExtraction,
}

// Position returns the zero-based index of the kind in StepSequence
func (k StepKind) Position() (int, bool) {
	switch k {
	case StepTranscription:
		return 0, true
	case StepAnalysis:
		return 1, true
	case StepTimelineExtraction:
		return 2, true
	case StepTaskExtraction:
		return 3, true
	}
	return -1, false
}

// Valid reports whether k is one of the four pipeline kinds
func (k StepKind) Valid() bool {
	_, ok := k.Position()
	return ok
}

// ParseStepKind converts an API string into a StepKind
func ParseStepKind(s string) (StepKind, error) {
	k := StepKind(s)
	if !k.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownStepKind, s)
	}
	return k, nil
}

// StepStatus represents the lifecycle state of a processing step
type StepStatus string

const (
	StepStatusPending   StepStatus = "pending"
	StepStatusRunning   StepStatus = "running"
	StepStatusCompleted StepStatus = "completed"
	StepStatusFailed    StepStatus = "failed"
)

// CanTransitionTo reports whether moving from s to next is a legal ledger transition.
// running -> running is the restart of a step left behind by a dead run.
// Any status -> pending is only legal through a reprocess reset.
func (s StepStatus) CanTransitionTo(next StepStatus) bool {
	switch s {
	case StepStatusPending:
		return next == StepStatusRunning || next == StepStatusPending
	case StepStatusRunning:
		return next == StepStatusCompleted || next == StepStatusFailed ||
			next == StepStatusRunning || next == StepStatusPending
	case StepStatusCompleted, StepStatusFailed:
		return next == StepStatusPending
	}
	return false
}

// ProcessingStep is one row of the step ledger: (meeting, kind) is unique
type ProcessingStep struct {
	ID           uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	MeetingID    uuid.UUID  `json:"meeting_id" gorm:"type:uuid;not null;uniqueIndex:idx_processing_steps_meeting_kind"`
	Kind         StepKind   `json:"kind" gorm:"type:varchar(32);not null;uniqueIndex:idx_processing_steps_meeting_kind"`
	Position     int        `json:"position" gorm:"not null"`
	Status       StepStatus `json:"status" gorm:"type:varchar(20);not null;default:'pending';index"`
	Progress     int        `json:"progress" gorm:"not null;default:0"`
	ErrorMessage *string    `json:"error_message,omitempty" gorm:"type:text"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt    time.Time  `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for GORM
func (ProcessingStep) TableName() string {
	return "processing_steps"
}

// BeforeCreate assigns an id when the caller did not
func (s *ProcessingStep) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// NewProcessingSteps builds the four pending ledger rows for a new meeting
func NewProcessingSteps(meetingID uuid.UUID) []*ProcessingStep {
	steps := make([]*ProcessingStep, 0, len(StepSequence))
	for i, kind := range StepSequence {
		steps = append(steps, &ProcessingStep{
			ID:        uuid.New(),
			MeetingID: meetingID,
			Kind:      kind,
			Position:  i,
			Status:    StepStatusPending,
		})
	}
	return steps
}

// ErrorText returns the failure message or an empty string
func (s *ProcessingStep) ErrorText() string {
	if s.ErrorMessage == nil {
		return ""
	}
	return *s.ErrorMessage
}

// IsStale reports whether a running step has not moved for longer than threshold
func (s *ProcessingStep) IsStale(now time.Time, threshold time.Duration) bool {
	if s.Status != StepStatusRunning {
		return false
	}
	ref := s.UpdatedAt
	if s.StartedAt != nil && s.StartedAt.After(ref) {
		ref = *s.StartedAt
	}
	return now.Sub(ref) > threshold
}
