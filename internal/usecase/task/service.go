package task

import (
	"context"

	"github.com/google/uuid"

	"github.com/johnquangdev/meeting-pipeline/internal/domain/entities"
	"github.com/johnquangdev/meeting-pipeline/internal/domain/repositories"
)

// Service defines the interface for user edits to extracted tasks.
// None of its operations touch the processing steps.
type Service interface {
	List(ctx context.Context, userID uuid.UUID, filters repositories.TaskFilters) ([]*entities.Task, int64, error)
	Get(ctx context.Context, userID, taskID uuid.UUID) (*entities.Task, error)
	Update(ctx context.Context, userID, taskID uuid.UUID, input UpdateInput) (*entities.Task, error)
	UpdateStatus(ctx context.Context, userID, taskID uuid.UUID, status string) (*entities.Task, error)
	Delete(ctx context.Context, userID, taskID uuid.UUID) error
}

// CalendarSync mirrors task edits onto the calendar events created for deadlines
type CalendarSync interface {
	UpdateTaskEvent(ctx context.Context, task *entities.Task) error
	DeleteTaskEvent(ctx context.Context, eventID string) error
}

// UpdateInput carries the editable task fields; nil fields are left unchanged
type UpdateInput struct {
	Title       *string
	Description *string
	Assignee    *string
	Deadline    *string // YYYY-MM-DD, empty clears it
	Priority    *string
}

// Ensure TaskService implements Service interface
var _ Service = (*TaskService)(nil)
