package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/johnquangdev/meeting-pipeline/internal/domain/entities"
)

// MeetingRepository defines the interface for meeting data access
type MeetingRepository interface {
	// CreateWithSteps stores a meeting and its pending ledger rows in one transaction
	CreateWithSteps(ctx context.Context, meeting *entities.Meeting, steps []*entities.ProcessingStep) error

	// FindByID retrieves a meeting by its ID, nil when absent
	FindByID(ctx context.Context, id uuid.UUID) (*entities.Meeting, error)

	// List retrieves meetings with filters and pagination
	List(ctx context.Context, filters MeetingFilters) ([]*entities.Meeting, int64, error)

	// FindByStatus retrieves up to limit meetings in the given overall status, oldest first
	FindByStatus(ctx context.Context, status entities.MeetingStatus, limit int) ([]*entities.Meeting, error)

	// FindHooksPending retrieves up to limit completed meetings whose completion hooks never finished
	FindHooksPending(ctx context.Context, limit int) ([]*entities.Meeting, error)

	// MarkHooksRun records that every completion hook succeeded for the meeting
	MarkHooksRun(ctx context.Context, id uuid.UUID, at time.Time) error

	// DeleteCascade removes the meeting with its steps, transcript, summary, timeline and tasks
	DeleteCascade(ctx context.Context, id uuid.UUID) error

	// Stats aggregates meeting and task counters for a user
	Stats(ctx context.Context, userID uuid.UUID) (*MeetingStats, error)
}

// MeetingFilters represents filter options for listing meetings
type MeetingFilters struct {
	UserID uuid.UUID
	Status *entities.MeetingStatus
	Limit  int
	Offset int
}

// MeetingStats summarises a user's meetings
type MeetingStats struct {
	TotalMeetings        int64                            `json:"total_meetings"`
	MeetingsByStatus     map[entities.MeetingStatus]int64 `json:"meetings_by_status"`
	TotalTasks           int64                            `json:"total_tasks"`
	TasksByStatus        map[entities.TaskStatus]int64    `json:"tasks_by_status"`
	TotalDurationSeconds int64                            `json:"total_duration_seconds"`
}
