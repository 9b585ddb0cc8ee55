package entities

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AnalysisResult is the output of the unified analysis call.
// Timeline and Tasks hold the raw portions as returned by the model; either may be
// nil when the model omitted it, and each is validated by its own extraction step.
type AnalysisResult struct {
	Summary      string          `json:"summary"`
	KeyDecisions []string        `json:"key_decisions"`
	ActionItems  []string        `json:"action_items"`
	Timeline     json.RawMessage `json:"timeline,omitempty"`
	Tasks        json.RawMessage `json:"tasks,omitempty"`
	Model        string          `json:"model,omitempty"`
}

// HasTimeline reports whether the timeline portion is present
func (r *AnalysisResult) HasTimeline() bool {
	return r != nil && portionPresent(r.Timeline)
}

// HasTasks reports whether the task portion is present
func (r *AnalysisResult) HasTasks() bool {
	return r != nil && portionPresent(r.Tasks)
}

func portionPresent(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}

// MeetingSummary persists the analysis step output, including the raw portions
// consumed later by timeline_extraction and task_extraction.
type MeetingSummary struct {
	ID               uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	MeetingID        uuid.UUID      `json:"meeting_id" gorm:"type:uuid;not null;uniqueIndex"`
	Summary          string         `json:"summary" gorm:"type:text"`
	KeyDecisions     []string       `json:"key_decisions" gorm:"type:jsonb;serializer:json"`
	ActionItems      []string       `json:"action_items" gorm:"type:jsonb;serializer:json"`
	TimelinePortion  datatypes.JSON `json:"-" gorm:"type:jsonb"`
	TaskPortion      datatypes.JSON `json:"-" gorm:"type:jsonb"`
	ModelUsed        string         `json:"model_used,omitempty" gorm:"type:varchar(100)"`
	ProcessingTimeMs int64          `json:"processing_time_ms"`
	CreatedAt        time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt        time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for GORM
func (MeetingSummary) TableName() string {
	return "meeting_summaries"
}

// BeforeCreate assigns an id when the caller did not
func (s *MeetingSummary) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// NewMeetingSummary converts an analysis result into its stored form
func NewMeetingSummary(meetingID uuid.UUID, r *AnalysisResult, elapsed time.Duration) *MeetingSummary {
	s := &MeetingSummary{
		ID:               uuid.New(),
		MeetingID:        meetingID,
		Summary:          r.Summary,
		KeyDecisions:     r.KeyDecisions,
		ActionItems:      r.ActionItems,
		ModelUsed:        r.Model,
		ProcessingTimeMs: elapsed.Milliseconds(),
	}
	if r.HasTimeline() {
		s.TimelinePortion = datatypes.JSON(r.Timeline)
	}
	if r.HasTasks() {
		s.TaskPortion = datatypes.JSON(r.Tasks)
	}
	return s
}

// Result rebuilds the analysis result from the stored row
func (s *MeetingSummary) Result() *AnalysisResult {
	r := &AnalysisResult{
		Summary:      s.Summary,
		KeyDecisions: s.KeyDecisions,
		ActionItems:  s.ActionItems,
		Model:        s.ModelUsed,
	}
	if len(s.TimelinePortion) > 0 {
		r.Timeline = json.RawMessage(s.TimelinePortion)
	}
	if len(s.TaskPortion) > 0 {
		r.Tasks = json.RawMessage(s.TaskPortion)
	}
	return r
}
