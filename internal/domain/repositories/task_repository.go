package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/johnquangdev/meeting-pipeline/internal/domain/entities"
)

// TaskRepository defines the interface for task data access
type TaskRepository interface {
	// List retrieves tasks with filters and pagination
	List(ctx context.Context, filters TaskFilters) ([]*entities.Task, int64, error)

	// FindByID retrieves a task by its ID, nil when absent
	FindByID(ctx context.Context, id uuid.UUID) (*entities.Task, error)

	// ListByMeeting retrieves all tasks of a meeting
	ListByMeeting(ctx context.Context, meetingID uuid.UUID) ([]*entities.Task, error)

	// Update saves user edits to a task
	Update(ctx context.Context, task *entities.Task) error

	// UpdateStatus changes only the task status
	UpdateStatus(ctx context.Context, id uuid.UUID, status entities.TaskStatus) error

	// SetCalendarEvent records the external calendar reference
	SetCalendarEvent(ctx context.Context, id uuid.UUID, eventID string) error

	// Delete removes a task
	Delete(ctx context.Context, id uuid.UUID) error
}

// TaskFilters represents filter options for listing tasks
type TaskFilters struct {
	UserID    *uuid.UUID
	MeetingID *uuid.UUID
	Status    *entities.TaskStatus
	Priority  *entities.TaskPriority
	Limit     int
	Offset    int
}
