package entities

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TaskPriority ranks an extracted task
type TaskPriority string

const (
	TaskPriorityHigh   TaskPriority = "high"
	TaskPriorityMedium TaskPriority = "medium"
	TaskPriorityLow    TaskPriority = "low"
)

// ParseTaskPriority validates a priority string
func ParseTaskPriority(s string) (TaskPriority, error) {
	switch p := TaskPriority(s); p {
	case TaskPriorityHigh, TaskPriorityMedium, TaskPriorityLow:
		return p, nil
	}
	return "", ErrInvalidPriority
}

// TaskStatus is the user-managed state of a task
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusCompleted  TaskStatus = "completed"
)

// ParseTaskStatus validates a task status string
func ParseTaskStatus(s string) (TaskStatus, error) {
	switch st := TaskStatus(s); st {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted:
		return st, nil
	}
	return "", ErrInvalidTaskStatus
}

// UnassignedTask is stored when the model names no assignee
const UnassignedTask = "Unassigned"

// Task is an action item produced by task_extraction. Users edit it freely afterwards.
type Task struct {
	ID              uuid.UUID    `json:"id" gorm:"type:uuid;primaryKey"`
	MeetingID       uuid.UUID    `json:"meeting_id" gorm:"type:uuid;not null;index"`
	Title           string       `json:"title" gorm:"type:varchar(255);not null"`
	Description     string       `json:"description" gorm:"type:text"`
	Assignee        string       `json:"assignee" gorm:"type:varchar(255);default:'Unassigned'"`
	Deadline        *time.Time   `json:"deadline,omitempty" gorm:"type:date"`
	Priority        TaskPriority `json:"priority" gorm:"type:varchar(10);not null;default:'medium';index"`
	Status          TaskStatus   `json:"status" gorm:"type:varchar(20);not null;default:'pending';index"`
	CalendarEventID *string      `json:"calendar_event_id,omitempty" gorm:"type:varchar(255)"`
	CreatedAt       time.Time    `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt       time.Time    `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for GORM
func (Task) TableName() string {
	return "tasks"
}

// BeforeCreate assigns an id when the caller did not
func (t *Task) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// NeedsCalendarSync reports whether the task has a deadline but no calendar event yet
func (t *Task) NeedsCalendarSync() bool {
	return t.Deadline != nil && (t.CalendarEventID == nil || *t.CalendarEventID == "")
}
