package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/johnquangdev/meeting-pipeline/internal/domain/entities"
	"github.com/johnquangdev/meeting-pipeline/internal/domain/repositories"
)

// StepLedger is the gorm-backed processing step ledger
type StepLedger struct {
	db *gorm.DB
}

// NewStepLedger creates a new step ledger
func NewStepLedger(db *gorm.DB) *StepLedger {
	return &StepLedger{db: db}
}

var _ repositories.StepLedger = (*StepLedger)(nil)

// Steps returns the meeting's steps ordered by pipeline position
func (l *StepLedger) Steps(ctx context.Context, meetingID uuid.UUID) ([]*entities.ProcessingStep, error) {
	return loadSteps(l.db.WithContext(ctx), meetingID)
}

// Transition applies a compare-and-set status change. The step output and the
// recomputed meeting status are written in the same transaction.
func (l *StepLedger) Transition(ctx context.Context, t repositories.StepTransition) error {
	if !t.Kind.Valid() {
		return fmt.Errorf("%w: %q", entities.ErrUnknownStepKind, t.Kind)
	}
	if t.To == entities.StepStatusPending || !t.From.CanTransitionTo(t.To) {
		return fmt.Errorf("%w: %s -> %s", entities.ErrInvalidTransition, t.From, t.To)
	}
	if t.Output != nil && (t.To != entities.StepStatusCompleted || t.Output.Kind() != t.Kind) {
		return fmt.Errorf("%w: %s output on %s step", entities.ErrInvalidTransition, t.Output.Kind(), t.Kind)
	}
	if t.At.IsZero() {
		t.At = time.Now().UTC()
	}

	return l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if t.To == entities.StepStatusRunning {
			if err := checkRunnable(tx, t.MeetingID, t.Kind); err != nil {
				return err
			}
		}

		// Only one caller can win: the row must still be in the expected status
		result := tx.Model(&entities.ProcessingStep{}).
			Where("meeting_id = ? AND kind = ? AND status = ?", t.MeetingID, t.Kind, t.From).
			Updates(transitionFields(t))
		if result.Error != nil {
			return fmt.Errorf("failed to update step %s: %w", t.Kind, result.Error)
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("%w: %s is no longer %s", entities.ErrTransitionConflict, t.Kind, t.From)
		}

		if t.Output != nil {
			if err := writeOutput(tx, t.MeetingID, t.Output); err != nil {
				return err
			}
		}

		return syncMeetingStatus(tx, t.MeetingID, t.At)
	})
}

// ReportProgress raises the progress of a running step. Progress never decreases
// and 100 is reserved for completion.
func (l *StepLedger) ReportProgress(ctx context.Context, meetingID uuid.UUID, kind entities.StepKind, progress int) error {
	if progress < 0 {
		progress = 0
	}
	if progress > 99 {
		progress = 99
	}
	return l.db.WithContext(ctx).
		Model(&entities.ProcessingStep{}).
		Where("meeting_id = ? AND kind = ? AND status = ? AND progress < ?", meetingID, kind, entities.StepStatusRunning, progress).
		Updates(map[string]interface{}{
			"progress":   progress,
			"updated_at": time.Now().UTC(),
		}).Error
}

// ResetFrom returns the chosen step and every later step to pending and deletes
// the data those steps produced. Earlier steps are left untouched.
func (l *StepLedger) ResetFrom(ctx context.Context, meetingID uuid.UUID, from entities.StepKind, at time.Time) ([]*entities.ProcessingStep, error) {
	pos, ok := from.Position()
	if !ok {
		return nil, fmt.Errorf("%w: %q", entities.ErrUnknownStepKind, from)
	}

	var steps []*entities.ProcessingStep
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&entities.ProcessingStep{}).Where("meeting_id = ?", meetingID).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to count steps: %w", err)
		}
		if count == 0 {
			return entities.ErrStepsMissing
		}

		if err := tx.Model(&entities.ProcessingStep{}).
			Where("meeting_id = ? AND position >= ?", meetingID, pos).
			Updates(map[string]interface{}{
				"status":        entities.StepStatusPending,
				"progress":      0,
				"error_message": nil,
				"started_at":    nil,
				"completed_at":  nil,
				"updated_at":    at,
			}).Error; err != nil {
			return fmt.Errorf("failed to reset steps: %w", err)
		}

		for _, kind := range entities.StepSequence[pos:] {
			if err := deleteDerived(tx, meetingID, kind); err != nil {
				return err
			}
		}

		// the re-run completes the chain again and owes its hooks another pass
		if err := tx.Model(&entities.Meeting{}).
			Where("id = ?", meetingID).
			UpdateColumn("hooks_ran_at", nil).Error; err != nil {
			return fmt.Errorf("failed to clear hooks marker: %w", err)
		}

		if err := syncMeetingStatus(tx, meetingID, at); err != nil {
			return err
		}

		var loadErr error
		steps, loadErr = loadSteps(tx, meetingID)
		return loadErr
	})
	if err != nil {
		return nil, err
	}
	return steps, nil
}

func loadSteps(db *gorm.DB, meetingID uuid.UUID) ([]*entities.ProcessingStep, error) {
	var steps []*entities.ProcessingStep
	if err := db.Where("meeting_id = ?", meetingID).
		Order("position ASC").
		Find(&steps).Error; err != nil {
		return nil, fmt.Errorf("failed to load steps: %w", err)
	}
	return steps, nil
}

// checkRunnable enforces the ordering invariants before a step may run:
// every predecessor is completed and no other step is running.
func checkRunnable(tx *gorm.DB, meetingID uuid.UUID, kind entities.StepKind) error {
	pos, _ := kind.Position()

	var blocked int64
	if err := tx.Model(&entities.ProcessingStep{}).
		Where("meeting_id = ? AND position < ? AND status <> ?", meetingID, pos, entities.StepStatusCompleted).
		Count(&blocked).Error; err != nil {
		return fmt.Errorf("failed to check predecessors: %w", err)
	}
	if blocked > 0 {
		return fmt.Errorf("%w: %s has unfinished predecessors", entities.ErrTransitionConflict, kind)
	}

	var running int64
	if err := tx.Model(&entities.ProcessingStep{}).
		Where("meeting_id = ? AND kind <> ? AND status = ?", meetingID, kind, entities.StepStatusRunning).
		Count(&running).Error; err != nil {
		return fmt.Errorf("failed to check running steps: %w", err)
	}
	if running > 0 {
		return fmt.Errorf("%w: another step is running", entities.ErrTransitionConflict)
	}
	return nil
}

func transitionFields(t repositories.StepTransition) map[string]interface{} {
	fields := map[string]interface{}{
		"status":     t.To,
		"updated_at": t.At,
	}
	switch t.To {
	case entities.StepStatusRunning:
		fields["progress"] = 0
		fields["error_message"] = nil
		fields["started_at"] = t.At
		fields["completed_at"] = nil
	case entities.StepStatusCompleted:
		fields["progress"] = 100
		fields["error_message"] = nil
		fields["completed_at"] = t.At
	case entities.StepStatusFailed:
		msg := t.ErrorMessage
		if msg == "" {
			msg = "step failed"
		}
		fields["error_message"] = msg
	}
	return fields
}

// writeOutput replaces the data owned by the completed step
func writeOutput(tx *gorm.DB, meetingID uuid.UUID, output repositories.StepOutput) error {
	if err := deleteDerived(tx, meetingID, output.Kind()); err != nil {
		return err
	}

	switch o := output.(type) {
	case repositories.TranscriptOutput:
		if o.Transcript == nil {
			return errors.New("transcript output is empty")
		}
		o.Transcript.MeetingID = meetingID
		if err := tx.Create(o.Transcript).Error; err != nil {
			return fmt.Errorf("failed to store transcript: %w", err)
		}
		if o.Transcript.DurationSeconds > 0 {
			if err := tx.Model(&entities.Meeting{}).
				Where("id = ?", meetingID).
				Update("duration_seconds", o.Transcript.DurationSeconds).Error; err != nil {
				return fmt.Errorf("failed to store meeting duration: %w", err)
			}
		}
	case repositories.AnalysisOutput:
		if o.Summary == nil {
			return errors.New("analysis output is empty")
		}
		o.Summary.MeetingID = meetingID
		if err := tx.Create(o.Summary).Error; err != nil {
			return fmt.Errorf("failed to store summary: %w", err)
		}
	case repositories.TimelineOutput:
		for _, e := range o.Entries {
			e.MeetingID = meetingID
		}
		if len(o.Entries) > 0 {
			if err := tx.Create(&o.Entries).Error; err != nil {
				return fmt.Errorf("failed to store timeline: %w", err)
			}
		}
	case repositories.TaskOutput:
		for _, task := range o.Tasks {
			task.MeetingID = meetingID
		}
		if len(o.Tasks) > 0 {
			if err := tx.Create(&o.Tasks).Error; err != nil {
				return fmt.Errorf("failed to store tasks: %w", err)
			}
		}
	default:
		return fmt.Errorf("%w: unsupported output %T", entities.ErrInvalidTransition, output)
	}
	return nil
}

// deleteDerived removes everything a step kind produced for the meeting
func deleteDerived(tx *gorm.DB, meetingID uuid.UUID, kind entities.StepKind) error {
	var err error
	switch kind {
	case entities.StepTranscription:
		err = tx.Where("meeting_id = ?", meetingID).Delete(&entities.Transcript{}).Error
		if err == nil {
			err = tx.Model(&entities.Meeting{}).Where("id = ?", meetingID).Update("duration_seconds", 0).Error
		}
	case entities.StepAnalysis:
		err = tx.Where("meeting_id = ?", meetingID).Delete(&entities.MeetingSummary{}).Error
	case entities.StepTimelineExtraction:
		err = tx.Where("meeting_id = ?", meetingID).Delete(&entities.TimelineEntry{}).Error
	case entities.StepTaskExtraction:
		err = tx.Where("meeting_id = ?", meetingID).Delete(&entities.Task{}).Error
	default:
		return fmt.Errorf("%w: %q", entities.ErrUnknownStepKind, kind)
	}
	if err != nil {
		return fmt.Errorf("failed to delete %s output: %w", kind, err)
	}
	return nil
}

// syncMeetingStatus rewrites the denormalised meeting status from the ledger rows
func syncMeetingStatus(tx *gorm.DB, meetingID uuid.UUID, at time.Time) error {
	var raw []string
	if err := tx.Model(&entities.ProcessingStep{}).
		Where("meeting_id = ?", meetingID).
		Pluck("status", &raw).Error; err != nil {
		return fmt.Errorf("failed to read step statuses: %w", err)
	}

	statuses := make([]entities.StepStatus, len(raw))
	for i, s := range raw {
		statuses[i] = entities.StepStatus(s)
	}

	if err := tx.Model(&entities.Meeting{}).
		Where("id = ?", meetingID).
		Updates(map[string]interface{}{
			"status":     entities.DeriveMeetingStatus(statuses),
			"updated_at": at,
		}).Error; err != nil {
		return fmt.Errorf("failed to update meeting status: %w", err)
	}
	return nil
}
