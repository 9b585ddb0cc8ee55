package task

import (
	"time"

	"github.com/google/uuid"
)

// TaskResponse represents a task in API responses
type TaskResponse struct {
	ID              uuid.UUID `json:"id"`
	MeetingID       uuid.UUID `json:"meeting_id"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	Assignee        string    `json:"assignee"`
	Deadline        *string   `json:"deadline,omitempty"`
	Priority        string    `json:"priority"`
	Status          string    `json:"status"`
	CalendarEventID *string   `json:"calendar_event_id,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}
