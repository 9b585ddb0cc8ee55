package meeting

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/johnquangdev/meeting-pipeline/internal/domain/entities"
	"github.com/johnquangdev/meeting-pipeline/internal/domain/repositories"
	usecaseErrors "github.com/johnquangdev/meeting-pipeline/internal/usecase/errors"
)

// DefaultMaxUploadBytes caps an upload at 100 MB
const DefaultMaxUploadBytes int64 = 100 << 20

var allowedExtensions = map[string]bool{
	".mp3":  true,
	".wav":  true,
	".m4a":  true,
	".mp4":  true,
	".webm": true,
}

// MeetingService handles meeting ingestion, queries and deletion
type MeetingService struct {
	meetings  repositories.MeetingRepository
	artifacts repositories.ArtifactRepository
	locker    repositories.ExecutionLocker
	store     AudioStore
	submitter Submitter
	events    EventCleanup
	maxBytes  int64
	logger    *zap.Logger
}

// EventCleanup removes the calendar events of tasks a meeting deletion drops
type EventCleanup interface {
	Collect(ctx context.Context, meetingID uuid.UUID) []string
	Remove(ctx context.Context, meetingID uuid.UUID, eventIDs []string)
}

// NewMeetingService creates a new meeting service
func NewMeetingService(
	meetings repositories.MeetingRepository,
	artifacts repositories.ArtifactRepository,
	locker repositories.ExecutionLocker,
	store AudioStore,
	submitter Submitter,
	maxBytes int64,
	logger *zap.Logger,
) *MeetingService {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}
	return &MeetingService{
		meetings:  meetings,
		artifacts: artifacts,
		locker:    locker,
		store:     store,
		submitter: submitter,
		maxBytes:  maxBytes,
		logger:    logger,
	}
}

// ObjectKey builds the blob key for a user's upload
func ObjectKey(userID uuid.UUID, ext string) string {
	return fmt.Sprintf("meetings/%s/%s%s", userID, uuid.New(), ext)
}

// Ingest stores the audio, creates the meeting with its pending steps and queues a run.
// A full queue is not an error: the sweeper picks the meeting up later.
func (s *MeetingService) Ingest(ctx context.Context, input IngestInput) (*entities.Meeting, error) {
	ext := strings.ToLower(filepath.Ext(input.Filename))
	if !allowedExtensions[ext] {
		return nil, fmt.Errorf("%w: %q", usecaseErrors.ErrUnsupportedAudio, ext)
	}
	if input.Size <= 0 || input.Audio == nil {
		return nil, usecaseErrors.ErrEmptyAudio
	}
	if input.Size > s.maxBytes {
		return nil, usecaseErrors.ErrAudioTooLarge
	}

	title := strings.TrimSpace(input.Title)
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(input.Filename), filepath.Ext(input.Filename))
	}

	key := ObjectKey(input.UserID, ext)
	if err := s.store.UploadAudio(ctx, key, input.Audio, input.Size, input.ContentType); err != nil {
		return nil, fmt.Errorf("%w: %v", usecaseErrors.ErrStorageFailed, err)
	}

	meeting := entities.NewMeeting(input.UserID, title, key, input.Size)
	meeting.OriginalFilename = filepath.Base(input.Filename)
	meeting.ContentType = input.ContentType

	if err := s.meetings.CreateWithSteps(ctx, meeting, entities.NewProcessingSteps(meeting.ID)); err != nil {
		s.removeAudio(key)
		return nil, fmt.Errorf("failed to create meeting: %w", err)
	}

	if s.logger != nil {
		s.logger.Info("📥 Meeting ingested",
			zap.String("meeting_id", meeting.ID.String()),
			zap.String("user_id", input.UserID.String()),
			zap.Int64("file_size", input.Size),
		)
	}

	if err := s.submitter.Submit(meeting.ID); err != nil {
		if !errors.Is(err, usecaseErrors.ErrQueueFull) {
			return nil, fmt.Errorf("failed to queue meeting: %w", err)
		}
		if s.logger != nil {
			s.logger.Warn("⚠️ Queue full, meeting left for the sweeper",
				zap.String("meeting_id", meeting.ID.String()),
			)
		}
	}

	return meeting, nil
}

// Authorize loads a meeting owned by userID. Meetings of other users are reported
// as not found so their existence is not revealed.
func (s *MeetingService) Authorize(ctx context.Context, userID, meetingID uuid.UUID) (*entities.Meeting, error) {
	meeting, err := s.meetings.FindByID(ctx, meetingID)
	if err != nil {
		return nil, fmt.Errorf("failed to get meeting: %w", err)
	}
	if meeting == nil || !meeting.IsOwnedBy(userID) {
		return nil, entities.ErrMeetingNotFound
	}
	return meeting, nil
}

// Get returns a meeting with its transcript and summary, when present
func (s *MeetingService) Get(ctx context.Context, userID, meetingID uuid.UUID) (*Detail, error) {
	meeting, err := s.Authorize(ctx, userID, meetingID)
	if err != nil {
		return nil, err
	}

	transcript, err := s.artifacts.GetTranscript(ctx, meetingID)
	if err != nil {
		return nil, fmt.Errorf("failed to get transcript: %w", err)
	}
	summary, err := s.artifacts.GetSummary(ctx, meetingID)
	if err != nil {
		return nil, fmt.Errorf("failed to get summary: %w", err)
	}

	return &Detail{Meeting: meeting, Transcript: transcript, Summary: summary}, nil
}

// List retrieves the user's meetings
func (s *MeetingService) List(ctx context.Context, filters repositories.MeetingFilters) ([]*entities.Meeting, int64, error) {
	meetings, total, err := s.meetings.List(ctx, filters)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list meetings: %w", err)
	}
	return meetings, total, nil
}

// Timeline returns the meeting's timeline entries ordered by offset
func (s *MeetingService) Timeline(ctx context.Context, userID, meetingID uuid.UUID) ([]*entities.TimelineEntry, error) {
	if _, err := s.Authorize(ctx, userID, meetingID); err != nil {
		return nil, err
	}
	entries, err := s.artifacts.ListTimeline(ctx, meetingID)
	if err != nil {
		return nil, fmt.Errorf("failed to get timeline: %w", err)
	}
	return entries, nil
}

// Summary returns the analysis summary, or ErrSummaryNotReady before analysis completed
func (s *MeetingService) Summary(ctx context.Context, userID, meetingID uuid.UUID) (*entities.MeetingSummary, error) {
	if _, err := s.Authorize(ctx, userID, meetingID); err != nil {
		return nil, err
	}
	summary, err := s.artifacts.GetSummary(ctx, meetingID)
	if err != nil {
		return nil, fmt.Errorf("failed to get summary: %w", err)
	}
	if summary == nil {
		return nil, usecaseErrors.ErrSummaryNotReady
	}
	return summary, nil
}

// Delete removes the meeting, its steps and derived data, then the audio blob.
// The meeting lock is taken without waiting so no run writes against a deleted meeting.
func (s *MeetingService) Delete(ctx context.Context, userID, meetingID uuid.UUID) error {
	meeting, err := s.Authorize(ctx, userID, meetingID)
	if err != nil {
		return err
	}

	lease, err := s.locker.TryLock(ctx, meetingID)
	if err != nil {
		return err
	}
	defer func() {
		_ = lease.Release(context.Background())
	}()

	var eventIDs []string
	if s.events != nil {
		eventIDs = s.events.Collect(ctx, meetingID)
	}

	if err := s.meetings.DeleteCascade(ctx, meetingID); err != nil {
		return fmt.Errorf("failed to delete meeting: %w", err)
	}

	s.removeAudio(meeting.AudioRef)
	if len(eventIDs) > 0 {
		s.events.Remove(ctx, meetingID, eventIDs)
	}

	if s.logger != nil {
		s.logger.Info("🗑️ Meeting deleted", zap.String("meeting_id", meetingID.String()))
	}
	return nil
}

// WithEventCleanup makes deletions drop the calendar events of the meeting's tasks
func (s *MeetingService) WithEventCleanup(events EventCleanup) *MeetingService {
	s.events = events
	return s
}

// Stats aggregates the user's meetings and tasks
func (s *MeetingService) Stats(ctx context.Context, userID uuid.UUID) (*repositories.MeetingStats, error) {
	stats, err := s.meetings.Stats(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get stats: %w", err)
	}
	return stats, nil
}

func (s *MeetingService) removeAudio(key string) {
	if err := s.store.RemoveAudio(context.Background(), key); err != nil && s.logger != nil {
		s.logger.Warn("⚠️ Failed to remove audio blob",
			zap.String("object_key", key),
			zap.Error(err),
		)
	}
}
