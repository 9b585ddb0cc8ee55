package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/johnquangdev/meeting-pipeline/internal/domain/entities"
	"github.com/johnquangdev/meeting-pipeline/internal/domain/repositories"
)

// artifactRepository reads step outputs. Writes go through the StepLedger.
type artifactRepository struct {
	db *gorm.DB
}

// NewArtifactRepository creates a new artifact repository
func NewArtifactRepository(db *gorm.DB) repositories.ArtifactRepository {
	return &artifactRepository{db: db}
}

// GetTranscript returns the meeting transcript, nil if not produced yet
func (r *artifactRepository) GetTranscript(ctx context.Context, meetingID uuid.UUID) (*entities.Transcript, error) {
	var transcript entities.Transcript
	err := r.db.WithContext(ctx).Where("meeting_id = ?", meetingID).First(&transcript).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &transcript, nil
}

// GetSummary returns the analysis output, nil if not produced yet
func (r *artifactRepository) GetSummary(ctx context.Context, meetingID uuid.UUID) (*entities.MeetingSummary, error) {
	var summary entities.MeetingSummary
	err := r.db.WithContext(ctx).Where("meeting_id = ?", meetingID).First(&summary).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &summary, nil
}

// ListTimeline returns the timeline ordered by offset
func (r *artifactRepository) ListTimeline(ctx context.Context, meetingID uuid.UUID) ([]*entities.TimelineEntry, error) {
	var entries []*entities.TimelineEntry
	if err := r.db.WithContext(ctx).
		Where("meeting_id = ?", meetingID).
		Order("offset_seconds ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
