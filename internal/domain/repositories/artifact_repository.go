package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/johnquangdev/meeting-pipeline/internal/domain/entities"
)

// ArtifactRepository reads the outputs written by pipeline steps
type ArtifactRepository interface {
	GetTranscript(ctx context.Context, meetingID uuid.UUID) (*entities.Transcript, error)
	GetSummary(ctx context.Context, meetingID uuid.UUID) (*entities.MeetingSummary, error)
	ListTimeline(ctx context.Context, meetingID uuid.UUID) ([]*entities.TimelineEntry, error)
}
