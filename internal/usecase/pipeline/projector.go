package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/johnquangdev/meeting-pipeline/internal/domain/entities"
	"github.com/johnquangdev/meeting-pipeline/internal/domain/repositories"
)

// StepSnapshot is the externally visible state of one step
type StepSnapshot struct {
	Kind        entities.StepKind   `json:"kind"`
	Status      entities.StepStatus `json:"status"`
	Progress    int                 `json:"progress"`
	Error       string              `json:"error,omitempty"`
	StartedAt   *time.Time          `json:"started_at,omitempty"`
	CompletedAt *time.Time          `json:"completed_at,omitempty"`
}

// StatusSnapshot is what pollers see for a meeting
type StatusSnapshot struct {
	MeetingID     uuid.UUID              `json:"meeting_id"`
	Title         string                 `json:"title"`
	CreatedAt     time.Time              `json:"created_at"`
	OverallStatus entities.MeetingStatus `json:"overall_status"`
	CurrentStep   *entities.StepKind     `json:"current_step,omitempty"`
	FailedStep    *entities.StepKind     `json:"failed_step,omitempty"`
	Steps         []StepSnapshot         `json:"steps"`
}

// Projector is the read-only status path. It never writes.
type Projector struct {
	meetings repositories.MeetingRepository
	ledger   repositories.StepLedger
}

// NewProjector constructs a status projector
func NewProjector(meetings repositories.MeetingRepository, ledger repositories.StepLedger) *Projector {
	return &Projector{meetings: meetings, ledger: ledger}
}

// Status reads the committed ledger rows and projects them
func (p *Projector) Status(ctx context.Context, meetingID uuid.UUID) (*StatusSnapshot, error) {
	meeting, err := p.meetings.FindByID(ctx, meetingID)
	if err != nil {
		return nil, fmt.Errorf("failed to load meeting: %w", err)
	}
	if meeting == nil {
		return nil, entities.ErrMeetingNotFound
	}

	steps, err := p.ledger.Steps(ctx, meetingID)
	if err != nil {
		return nil, err
	}
	return Project(meeting, steps), nil
}

// Project derives the snapshot from a meeting and its ordered steps.
// The overall status is recomputed from the steps, never copied from the meeting row.
func Project(meeting *entities.Meeting, steps []*entities.ProcessingStep) *StatusSnapshot {
	snap := &StatusSnapshot{
		MeetingID: meeting.ID,
		Title:     meeting.Title,
		CreatedAt: meeting.CreatedAt,
		Steps:     make([]StepSnapshot, 0, len(steps)),
	}

	statuses := make([]entities.StepStatus, 0, len(steps))
	for _, s := range steps {
		statuses = append(statuses, s.Status)
		snap.Steps = append(snap.Steps, StepSnapshot{
			Kind:        s.Kind,
			Status:      s.Status,
			Progress:    s.Progress,
			Error:       s.ErrorText(),
			StartedAt:   s.StartedAt,
			CompletedAt: s.CompletedAt,
		})

		kind := s.Kind
		switch s.Status {
		case entities.StepStatusRunning:
			if snap.CurrentStep == nil {
				snap.CurrentStep = &kind
			}
		case entities.StepStatusFailed:
			if snap.FailedStep == nil {
				snap.FailedStep = &kind
			}
		}
	}
	snap.OverallStatus = entities.DeriveMeetingStatus(statuses)
	return snap
}
