package entities

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// WordTimestamp represents a single word with time and speaker info
type WordTimestamp struct {
	Word       string  `json:"word"`
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Confidence float64 `json:"confidence"`
	Speaker    string  `json:"speaker,omitempty"`
}

// Transcript is the output of the transcription step, one per meeting
type Transcript struct {
	ID              uuid.UUID       `json:"id" gorm:"type:uuid;primaryKey"`
	MeetingID       uuid.UUID       `json:"meeting_id" gorm:"type:uuid;not null;uniqueIndex"`
	ExternalID      string          `json:"external_id,omitempty" gorm:"type:varchar(255)"`
	Text            string          `json:"text" gorm:"type:text"`
	Language        string          `json:"language,omitempty" gorm:"type:varchar(20)"`
	Words           []WordTimestamp `json:"words,omitempty" gorm:"type:jsonb;serializer:json"`
	ConfidenceScore float64         `json:"confidence_score,omitempty"`
	DurationSeconds int             `json:"duration_seconds,omitempty"`
	SpeakerCount    int             `json:"speaker_count,omitempty"`
	ModelUsed       string          `json:"model_used,omitempty" gorm:"type:varchar(100)"`
	CreatedAt       time.Time       `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt       time.Time       `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for GORM
func (Transcript) TableName() string {
	return "transcripts"
}

// BeforeCreate assigns an id when the caller did not
func (t *Transcript) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
