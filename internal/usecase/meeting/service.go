package meeting

import (
	"context"
	"io"

	"github.com/google/uuid"

	"github.com/johnquangdev/meeting-pipeline/internal/domain/entities"
	"github.com/johnquangdev/meeting-pipeline/internal/domain/repositories"
)

// Service defines the interface for the meeting use case
type Service interface {
	// Ingest stores the audio, creates the meeting with its pending steps and queues a run
	Ingest(ctx context.Context, input IngestInput) (*entities.Meeting, error)

	// Authorize loads a meeting and checks that userID owns it
	Authorize(ctx context.Context, userID, meetingID uuid.UUID) (*entities.Meeting, error)

	// Get returns a meeting with its transcript and summary
	Get(ctx context.Context, userID, meetingID uuid.UUID) (*Detail, error)

	// List returns the user's meetings, newest first
	List(ctx context.Context, filters repositories.MeetingFilters) ([]*entities.Meeting, int64, error)

	// Timeline returns the meeting's timeline ordered by offset
	Timeline(ctx context.Context, userID, meetingID uuid.UUID) ([]*entities.TimelineEntry, error)

	// Summary returns the analysis summary
	Summary(ctx context.Context, userID, meetingID uuid.UUID) (*entities.MeetingSummary, error)

	// Delete removes the meeting and everything it owns. It refuses while a run holds the lock.
	Delete(ctx context.Context, userID, meetingID uuid.UUID) error

	// Stats aggregates the user's meetings and tasks
	Stats(ctx context.Context, userID uuid.UUID) (*repositories.MeetingStats, error)
}

// AudioStore is the object store holding meeting recordings
type AudioStore interface {
	UploadAudio(ctx context.Context, objectKey string, reader io.Reader, size int64, contentType string) error
	RemoveAudio(ctx context.Context, objectKey string) error
}

// Submitter queues a meeting for background processing
type Submitter interface {
	Submit(meetingID uuid.UUID) error
}

// IngestInput represents an accepted upload
type IngestInput struct {
	UserID      uuid.UUID
	Title       string
	Filename    string
	ContentType string
	Size        int64
	Audio       io.Reader
}

// Detail is a meeting with the artifacts produced so far
type Detail struct {
	Meeting    *entities.Meeting
	Transcript *entities.Transcript
	Summary    *entities.MeetingSummary
}

// Ensure MeetingService implements Service interface
var _ Service = (*MeetingService)(nil)
