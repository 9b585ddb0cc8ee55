package entities

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MeetingStatus is the overall pipeline status, derived from the step ledger
type MeetingStatus string

const (
	MeetingStatusProcessing MeetingStatus = "processing"
	MeetingStatusCompleted  MeetingStatus = "completed"
	MeetingStatusFailed     MeetingStatus = "failed"
)

// Meeting represents an uploaded recording and its processing outcome
type Meeting struct {
	ID               uuid.UUID     `json:"id" gorm:"type:uuid;primaryKey"`
	UserID           uuid.UUID     `json:"user_id" gorm:"type:uuid;not null;index"`
	Title            string        `json:"title" gorm:"type:varchar(255);not null"`
	AudioRef         string        `json:"audio_ref" gorm:"type:text;not null"` // object key in the audio bucket
	OriginalFilename string        `json:"original_filename,omitempty" gorm:"type:varchar(255)"`
	ContentType      string        `json:"content_type,omitempty" gorm:"type:varchar(100)"`
	Status           MeetingStatus `json:"status" gorm:"type:varchar(20);not null;default:'processing';index"`
	DurationSeconds  int           `json:"duration_seconds" gorm:"default:0"`
	FileSize         int64         `json:"file_size" gorm:"default:0"`
	HooksRanAt       *time.Time    `json:"hooks_ran_at,omitempty"` // completion hooks finished; nil until then and after a reset
	CreatedAt        time.Time     `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt        time.Time     `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for GORM
func (Meeting) TableName() string {
	return "meetings"
}

// BeforeCreate assigns an id when the caller did not
func (m *Meeting) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// NewMeeting creates a meeting in processing state
func NewMeeting(userID uuid.UUID, title, audioRef string, fileSize int64) *Meeting {
	return &Meeting{
		ID:       uuid.New(),
		UserID:   userID,
		Title:    title,
		AudioRef: audioRef,
		Status:   MeetingStatusProcessing,
		FileSize: fileSize,
	}
}

// IsOwnedBy reports whether userID owns the meeting
func (m *Meeting) IsOwnedBy(userID uuid.UUID) bool {
	return m.UserID == userID
}

// DeriveMeetingStatus computes the overall status from step statuses:
// failed if any step failed, completed if every pipeline step completed,
// processing otherwise.
func DeriveMeetingStatus(statuses []StepStatus) MeetingStatus {
	completed := 0
	for _, s := range statuses {
		switch s {
		case StepStatusFailed:
			return MeetingStatusFailed
		case StepStatusCompleted:
			completed++
		}
	}
	if completed == len(StepSequence) && len(statuses) == len(StepSequence) {
		return MeetingStatusCompleted
	}
	return MeetingStatusProcessing
}
