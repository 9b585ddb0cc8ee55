package task

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/johnquangdev/meeting-pipeline/internal/domain/repositories"
)

// EventJanitor removes the calendar events of tasks that a bulk delete drops:
// a reprocess reset or a meeting deletion. Callers collect the ids before the
// delete and remove them after it commits.
type EventJanitor struct {
	tasks    repositories.TaskRepository
	calendar CalendarSync
	logger   *zap.Logger
}

// NewEventJanitor creates a janitor over the task store and the calendar
func NewEventJanitor(tasks repositories.TaskRepository, calendar CalendarSync, logger *zap.Logger) *EventJanitor {
	return &EventJanitor{tasks: tasks, calendar: calendar, logger: logger}
}

// Collect returns the event ids held by the meeting's tasks
func (j *EventJanitor) Collect(ctx context.Context, meetingID uuid.UUID) []string {
	tasks, err := j.tasks.ListByMeeting(ctx, meetingID)
	if err != nil {
		if j.logger != nil {
			j.logger.Warn("⚠️ Failed to list tasks for calendar cleanup",
				zap.String("meeting_id", meetingID.String()),
				zap.Error(err),
			)
		}
		return nil
	}

	var ids []string
	for _, task := range tasks {
		if id := calendarEventID(task); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// Remove deletes the events; failures are logged and skipped
func (j *EventJanitor) Remove(ctx context.Context, meetingID uuid.UUID, eventIDs []string) {
	removed := 0
	for _, id := range eventIDs {
		if err := j.calendar.DeleteTaskEvent(ctx, id); err != nil {
			if j.logger != nil {
				j.logger.Warn("⚠️ Failed to delete calendar event",
					zap.String("meeting_id", meetingID.String()),
					zap.String("event_id", id),
					zap.Error(err),
				)
			}
			continue
		}
		removed++
	}
	if removed > 0 && j.logger != nil {
		j.logger.Info("🗑️ Calendar events removed",
			zap.String("meeting_id", meetingID.String()),
			zap.Int("count", removed),
		)
	}
}
