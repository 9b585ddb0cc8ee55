package task

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/johnquangdev/meeting-pipeline/internal/domain/entities"
	"github.com/johnquangdev/meeting-pipeline/internal/domain/repositories"
	usecaseErrors "github.com/johnquangdev/meeting-pipeline/internal/usecase/errors"
)

const deadlineLayout = "2006-01-02"

// TaskService handles task business logic
type TaskService struct {
	tasks    repositories.TaskRepository
	meetings repositories.MeetingRepository
	calendar CalendarSync
	logger   *zap.Logger
}

// NewTaskService creates a new task service. calendar may be nil when sync is disabled.
func NewTaskService(tasks repositories.TaskRepository, meetings repositories.MeetingRepository, calendar CalendarSync, logger *zap.Logger) *TaskService {
	return &TaskService{tasks: tasks, meetings: meetings, calendar: calendar, logger: logger}
}

// List returns the user's tasks matching the filters
func (s *TaskService) List(ctx context.Context, userID uuid.UUID, filters repositories.TaskFilters) ([]*entities.Task, int64, error) {
	filters.UserID = &userID
	tasks, total, err := s.tasks.List(ctx, filters)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, total, nil
}

// Get returns a task whose meeting belongs to userID
func (s *TaskService) Get(ctx context.Context, userID, taskID uuid.UUID) (*entities.Task, error) {
	task, err := s.tasks.FindByID(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	if task == nil {
		return nil, entities.ErrTaskNotFound
	}

	meeting, err := s.meetings.FindByID(ctx, task.MeetingID)
	if err != nil {
		return nil, fmt.Errorf("failed to get meeting: %w", err)
	}
	if meeting == nil || !meeting.IsOwnedBy(userID) {
		return nil, entities.ErrTaskNotFound
	}
	return task, nil
}

// Update applies user edits
func (s *TaskService) Update(ctx context.Context, userID, taskID uuid.UUID, input UpdateInput) (*entities.Task, error) {
	task, err := s.Get(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}

	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, fmt.Errorf("%w: title must not be empty", usecaseErrors.ErrInvalidInput)
		}
		task.Title = title
	}
	if input.Description != nil {
		task.Description = *input.Description
	}
	if input.Assignee != nil {
		task.Assignee = strings.TrimSpace(*input.Assignee)
		if task.Assignee == "" {
			task.Assignee = entities.UnassignedTask
		}
	}
	if input.Deadline != nil {
		deadline, err := parseDeadline(*input.Deadline)
		if err != nil {
			return nil, err
		}
		task.Deadline = deadline
	}
	if input.Priority != nil {
		priority, err := entities.ParseTaskPriority(*input.Priority)
		if err != nil {
			return nil, err
		}
		task.Priority = priority
	}

	if err := s.tasks.Update(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}

	if eventID := calendarEventID(task); eventID != "" && task.Deadline == nil {
		// a cleared deadline drops the event
		s.removeEvent(ctx, task.ID, eventID)
		if err := s.tasks.SetCalendarEvent(ctx, task.ID, ""); err != nil {
			return nil, fmt.Errorf("failed to clear calendar event: %w", err)
		}
		task.CalendarEventID = nil
	} else {
		s.updateEvent(ctx, task)
	}
	return task, nil
}

// UpdateStatus moves a task between pending, in_progress and completed
func (s *TaskService) UpdateStatus(ctx context.Context, userID, taskID uuid.UUID, status string) (*entities.Task, error) {
	next, err := entities.ParseTaskStatus(status)
	if err != nil {
		return nil, err
	}

	task, err := s.Get(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}

	if err := s.tasks.UpdateStatus(ctx, task.ID, next); err != nil {
		return nil, fmt.Errorf("failed to update task status: %w", err)
	}
	task.Status = next
	s.updateEvent(ctx, task)

	if s.logger != nil {
		s.logger.Info("✅ Task status updated",
			zap.String("task_id", task.ID.String()),
			zap.String("status", string(next)),
		)
	}
	return task, nil
}

// Delete removes a task
func (s *TaskService) Delete(ctx context.Context, userID, taskID uuid.UUID) error {
	task, err := s.Get(ctx, userID, taskID)
	if err != nil {
		return err
	}
	if err := s.tasks.Delete(ctx, taskID); err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	if eventID := calendarEventID(task); eventID != "" {
		s.removeEvent(ctx, task.ID, eventID)
	}
	return nil
}

// updateEvent is best-effort: the task edit already succeeded
func (s *TaskService) updateEvent(ctx context.Context, task *entities.Task) {
	if s.calendar == nil || calendarEventID(task) == "" {
		return
	}
	if err := s.calendar.UpdateTaskEvent(ctx, task); err != nil && s.logger != nil {
		s.logger.Warn("⚠️ Failed to update calendar event",
			zap.String("task_id", task.ID.String()),
			zap.Error(err),
		)
	}
}

func (s *TaskService) removeEvent(ctx context.Context, taskID uuid.UUID, eventID string) {
	if s.calendar == nil {
		return
	}
	if err := s.calendar.DeleteTaskEvent(ctx, eventID); err != nil && s.logger != nil {
		s.logger.Warn("⚠️ Failed to delete calendar event",
			zap.String("task_id", taskID.String()),
			zap.String("event_id", eventID),
			zap.Error(err),
		)
	}
}

func calendarEventID(task *entities.Task) string {
	if task.CalendarEventID == nil {
		return ""
	}
	return *task.CalendarEventID
}

func parseDeadline(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(deadlineLayout, s)
	if err != nil {
		return nil, usecaseErrors.ErrInvalidDeadline
	}
	return &t, nil
}
