package meeting

import (
	"time"

	"github.com/google/uuid"
)

// MeetingResponse represents a meeting in API responses
type MeetingResponse struct {
	ID               uuid.UUID `json:"id"`
	Title            string    `json:"title"`
	Status           string    `json:"status"`
	OriginalFilename string    `json:"original_filename,omitempty"`
	FileSize         int64     `json:"file_size"`
	FileSizeHuman    string    `json:"file_size_human"`
	DurationSeconds  int       `json:"duration_seconds"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// UploadResponse is returned when an upload is accepted for processing
type UploadResponse struct {
	MeetingID uuid.UUID `json:"meeting_id"`
	Status    string    `json:"status"`
	StatusURL string    `json:"status_url"`
}

// TranscriptResponse is the transcript as shown on the meeting detail
type TranscriptResponse struct {
	Text            string  `json:"text"`
	Excerpt         string  `json:"excerpt"`
	Language        string  `json:"language,omitempty"`
	DurationSeconds int     `json:"duration_seconds"`
	SpeakerCount    int     `json:"speaker_count"`
	Confidence      float64 `json:"confidence"`
}

// SummaryResponse is the output of the analysis step
type SummaryResponse struct {
	Summary      string    `json:"summary"`
	KeyDecisions []string  `json:"key_decisions"`
	ActionItems  []string  `json:"action_items"`
	ModelUsed    string    `json:"model_used,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// MeetingDetailResponse is a meeting with the artifacts produced so far
type MeetingDetailResponse struct {
	MeetingResponse
	Transcript *TranscriptResponse `json:"transcript,omitempty"`
	Summary    *SummaryResponse    `json:"summary,omitempty"`
}

// TimelineEntryResponse is one entry on the meeting timeline
type TimelineEntryResponse struct {
	ID            uuid.UUID `json:"id"`
	Timestamp     string    `json:"timestamp"`
	OffsetSeconds float64   `json:"offset_seconds"`
	EventType     string    `json:"event_type"`
	Title         string    `json:"title"`
	Content       string    `json:"content"`
	Participants  []string  `json:"participants"`
}

// TimelineResponse wraps the ordered entries of one meeting
type TimelineResponse struct {
	MeetingID uuid.UUID               `json:"meeting_id"`
	Entries   []TimelineEntryResponse `json:"entries"`
}

// StepResponse is the state of one processing step
type StepResponse struct {
	Kind        string     `json:"kind"`
	Status      string     `json:"status"`
	Progress    int        `json:"progress"`
	Error       string     `json:"error,omitempty"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// StatusResponse is what pollers see for a meeting
type StatusResponse struct {
	MeetingID     uuid.UUID      `json:"meeting_id"`
	Title         string         `json:"title"`
	OverallStatus string         `json:"overall_status"`
	CurrentStep   string         `json:"current_step,omitempty"`
	FailedStep    string         `json:"failed_step,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	Steps         []StepResponse `json:"steps"`
}

// ReprocessResponse reports the step processing restarts from
type ReprocessResponse struct {
	MeetingID uuid.UUID `json:"meeting_id"`
	FromStep  string    `json:"from_step"`
	StatusURL string    `json:"status_url"`
}

// StatsResponse aggregates the caller's meetings and tasks
type StatsResponse struct {
	TotalMeetings        int64            `json:"total_meetings"`
	MeetingsByStatus     map[string]int64 `json:"meetings_by_status"`
	TotalTasks           int64            `json:"total_tasks"`
	TasksByStatus        map[string]int64 `json:"tasks_by_status"`
	TotalDurationSeconds int64            `json:"total_duration_seconds"`
	TotalDurationHuman   string           `json:"total_duration_human"`
}
