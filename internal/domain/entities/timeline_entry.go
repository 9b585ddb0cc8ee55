package entities

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TimelineEventType classifies a timeline entry
type TimelineEventType string

const (
	TimelineEventDiscussion     TimelineEventType = "discussion"
	TimelineEventDecision       TimelineEventType = "decision"
	TimelineEventTaskAssignment TimelineEventType = "task_assignment"
	TimelineEventQuestion       TimelineEventType = "question"
	TimelineEventActionItem     TimelineEventType = "action_item"
	TimelineEventPresentation   TimelineEventType = "presentation"
)

// NormalizeEventType maps free-form model output onto a known event type
func NormalizeEventType(s string) TimelineEventType {
	switch t := TimelineEventType(s); t {
	case TimelineEventDiscussion, TimelineEventDecision, TimelineEventTaskAssignment,
		TimelineEventQuestion, TimelineEventActionItem, TimelineEventPresentation:
		return t
	}
	return TimelineEventDiscussion
}

// TimelineEntry is one event produced by the timeline_extraction step
type TimelineEntry struct {
	ID            uuid.UUID         `json:"id" gorm:"type:uuid;primaryKey"`
	MeetingID     uuid.UUID         `json:"meeting_id" gorm:"type:uuid;not null;index"`
	OffsetSeconds float64           `json:"offset_seconds" gorm:"not null;default:0;index"`
	EventType     TimelineEventType `json:"event_type" gorm:"type:varchar(32);not null"`
	Title         string            `json:"title" gorm:"type:varchar(255);not null"`
	Content       string            `json:"content" gorm:"type:text"`
	Participants  []string          `json:"participants" gorm:"type:jsonb;serializer:json"`
	CreatedAt     time.Time         `json:"created_at" gorm:"autoCreateTime"`
}

// TableName specifies the table name for GORM
func (TimelineEntry) TableName() string {
	return "timeline_entries"
}

// BeforeCreate assigns an id when the caller did not
func (e *TimelineEntry) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// Timestamp formats the offset as MM:SS
func (e *TimelineEntry) Timestamp() string {
	total := int(e.OffsetSeconds)
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}
