package meeting

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/johnquangdev/meeting-pipeline/internal/adapter/repository"
	"github.com/johnquangdev/meeting-pipeline/internal/domain/entities"
	"github.com/johnquangdev/meeting-pipeline/internal/domain/repositories"
	"github.com/johnquangdev/meeting-pipeline/internal/infrastructure/cache"
	"github.com/johnquangdev/meeting-pipeline/internal/infrastructure/database"
	usecaseErrors "github.com/johnquangdev/meeting-pipeline/internal/usecase/errors"
	"github.com/johnquangdev/meeting-pipeline/internal/usecase/task"
)

type fakeStore struct {
	mu        sync.Mutex
	objects   map[string]string
	uploadErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: make(map[string]string)}
}

func (f *fakeStore) UploadAudio(ctx context.Context, objectKey string, reader io.Reader, size int64, contentType string) error {
	if f.uploadErr != nil {
		return f.uploadErr
	}
	b, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[objectKey] = string(b)
	return nil
}

func (f *fakeStore) RemoveAudio(ctx context.Context, objectKey string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, objectKey)
	return nil
}

func (f *fakeStore) has(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.objects[key]
	return ok
}

type fakeSubmitter struct {
	ids []uuid.UUID
	err error
}

func (f *fakeSubmitter) Submit(meetingID uuid.UUID) error {
	if f.err != nil {
		return f.err
	}
	f.ids = append(f.ids, meetingID)
	return nil
}

type recordingCalendar struct {
	deleted []string
}

func (c *recordingCalendar) UpdateTaskEvent(ctx context.Context, t *entities.Task) error {
	return nil
}

func (c *recordingCalendar) DeleteTaskEvent(ctx context.Context, eventID string) error {
	c.deleted = append(c.deleted, eventID)
	return nil
}

type fixture struct {
	db        *gorm.DB
	store     *fakeStore
	submitter *fakeSubmitter
	locker    *cache.MemoryLocker
	ledger    repositories.StepLedger
	service   *MeetingService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := database.NewSQLiteDB(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrateModels(db))
	t.Cleanup(func() { _ = database.CloseDB(db) })

	f := &fixture{
		db:        db,
		store:     newFakeStore(),
		submitter: &fakeSubmitter{},
		locker:    cache.NewMemoryLocker(0),
		ledger:    repository.NewStepLedger(db),
	}
	f.service = NewMeetingService(
		repository.NewMeetingRepository(db),
		repository.NewArtifactRepository(db),
		f.locker,
		f.store,
		f.submitter,
		1024,
		nil,
	)
	return f
}

func (f *fixture) ingest(t *testing.T, userID uuid.UUID) *entities.Meeting {
	t.Helper()
	m, err := f.service.Ingest(context.Background(), IngestInput{
		UserID:      userID,
		Title:       "Standup",
		Filename:    "standup.mp3",
		ContentType: "audio/mpeg",
		Size:        5,
		Audio:       strings.NewReader("audio"),
	})
	require.NoError(t, err)
	return m
}

func TestMeetingService_Ingest(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	t.Run("Should store the audio, create four pending steps and queue a run", func(t *testing.T) {
		f := newFixture(t)
		m := f.ingest(t, userID)

		assert.Equal(t, entities.MeetingStatusProcessing, m.Status)
		assert.True(t, strings.HasPrefix(m.AudioRef, "meetings/"+userID.String()+"/"))
		assert.True(t, strings.HasSuffix(m.AudioRef, ".mp3"))
		assert.True(t, f.store.has(m.AudioRef))
		assert.Equal(t, []uuid.UUID{m.ID}, f.submitter.ids)

		steps, err := f.ledger.Steps(ctx, m.ID)
		require.NoError(t, err)
		require.Len(t, steps, 4)
		for i, s := range steps {
			assert.Equal(t, entities.StepSequence[i], s.Kind)
			assert.Equal(t, entities.StepStatusPending, s.Status)
		}
	})

	t.Run("Should default the title to the file name", func(t *testing.T) {
		f := newFixture(t)
		m, err := f.service.Ingest(ctx, IngestInput{
			UserID: userID, Filename: "Q3 Review.WAV", Size: 3, Audio: strings.NewReader("abc"),
		})
		require.NoError(t, err)
		assert.Equal(t, "Q3 Review", m.Title)
		assert.True(t, strings.HasSuffix(m.AudioRef, ".wav"))
	})

	t.Run("Should reject unsupported, empty and oversized uploads", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.service.Ingest(ctx, IngestInput{UserID: userID, Filename: "notes.txt", Size: 3, Audio: strings.NewReader("abc")})
		assert.ErrorIs(t, err, usecaseErrors.ErrUnsupportedAudio)

		_, err = f.service.Ingest(ctx, IngestInput{UserID: userID, Filename: "a.mp3", Size: 0, Audio: strings.NewReader("")})
		assert.ErrorIs(t, err, usecaseErrors.ErrEmptyAudio)

		_, err = f.service.Ingest(ctx, IngestInput{UserID: userID, Filename: "a.mp3", Size: 2048, Audio: strings.NewReader("abc")})
		assert.ErrorIs(t, err, usecaseErrors.ErrAudioTooLarge)

		assert.Empty(t, f.submitter.ids)
	})

	t.Run("Should report storage failures without creating a meeting", func(t *testing.T) {
		f := newFixture(t)
		f.store.uploadErr = errors.New("bucket gone")

		_, err := f.service.Ingest(ctx, IngestInput{UserID: userID, Filename: "a.mp3", Size: 3, Audio: strings.NewReader("abc")})
		assert.ErrorIs(t, err, usecaseErrors.ErrStorageFailed)

		list, total, err := f.service.List(ctx, repositories.MeetingFilters{UserID: userID})
		require.NoError(t, err)
		assert.Zero(t, total)
		assert.Empty(t, list)
	})

	t.Run("Should accept the upload when the queue is full", func(t *testing.T) {
		f := newFixture(t)
		f.submitter.err = usecaseErrors.ErrQueueFull

		m := f.ingest(t, userID)
		assert.NotEqual(t, uuid.Nil, m.ID)
	})
}

func TestMeetingService_Queries(t *testing.T) {
	ctx := context.Background()
	owner, stranger := uuid.New(), uuid.New()

	t.Run("Should hide meetings of other users", func(t *testing.T) {
		f := newFixture(t)
		m := f.ingest(t, owner)

		_, err := f.service.Authorize(ctx, stranger, m.ID)
		assert.ErrorIs(t, err, entities.ErrMeetingNotFound)
		_, err = f.service.Get(ctx, stranger, m.ID)
		assert.ErrorIs(t, err, entities.ErrMeetingNotFound)
		_, err = f.service.Authorize(ctx, owner, uuid.New())
		assert.ErrorIs(t, err, entities.ErrMeetingNotFound)
	})

	t.Run("Should return the detail without artifacts before processing", func(t *testing.T) {
		f := newFixture(t)
		m := f.ingest(t, owner)

		detail, err := f.service.Get(ctx, owner, m.ID)
		require.NoError(t, err)
		assert.Equal(t, m.ID, detail.Meeting.ID)
		assert.Nil(t, detail.Transcript)
		assert.Nil(t, detail.Summary)

		_, err = f.service.Summary(ctx, owner, m.ID)
		assert.ErrorIs(t, err, usecaseErrors.ErrSummaryNotReady)
	})

	t.Run("Should return the summary and the timeline ordered by offset", func(t *testing.T) {
		f := newFixture(t)
		m := f.ingest(t, owner)
		require.NoError(t, f.db.Create(&entities.MeetingSummary{MeetingID: m.ID, Summary: "Shipped", KeyDecisions: []string{"ship"}}).Error)
		require.NoError(t, f.db.Create(&entities.TimelineEntry{MeetingID: m.ID, OffsetSeconds: 125, EventType: entities.TimelineEventDecision, Title: "later", Participants: []string{}}).Error)
		require.NoError(t, f.db.Create(&entities.TimelineEntry{MeetingID: m.ID, OffsetSeconds: 5, EventType: entities.TimelineEventDiscussion, Title: "first", Participants: []string{}}).Error)

		summary, err := f.service.Summary(ctx, owner, m.ID)
		require.NoError(t, err)
		assert.Equal(t, "Shipped", summary.Summary)
		assert.Equal(t, []string{"ship"}, summary.KeyDecisions)

		entries, err := f.service.Timeline(ctx, owner, m.ID)
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, "first", entries[0].Title)
		assert.Equal(t, "02:05", entries[1].Timestamp())
	})

	t.Run("Should list only the caller's meetings", func(t *testing.T) {
		f := newFixture(t)
		f.ingest(t, owner)
		f.ingest(t, owner)
		f.ingest(t, stranger)

		list, total, err := f.service.List(ctx, repositories.MeetingFilters{UserID: owner, Limit: 1})
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		assert.Len(t, list, 1)

		stats, err := f.service.Stats(ctx, owner)
		require.NoError(t, err)
		assert.Equal(t, int64(2), stats.TotalMeetings)
		assert.Equal(t, int64(2), stats.MeetingsByStatus[entities.MeetingStatusProcessing])
	})
}

func TestMeetingService_Delete(t *testing.T) {
	ctx := context.Background()
	owner := uuid.New()

	t.Run("Should remove the meeting, its steps, tasks and blob", func(t *testing.T) {
		f := newFixture(t)
		m := f.ingest(t, owner)
		require.NoError(t, f.db.Create(&entities.Task{MeetingID: m.ID, Title: "Follow up", Priority: entities.TaskPriorityLow, Status: entities.TaskStatusPending}).Error)

		require.NoError(t, f.service.Delete(ctx, owner, m.ID))

		_, err := f.service.Authorize(ctx, owner, m.ID)
		assert.ErrorIs(t, err, entities.ErrMeetingNotFound)
		assert.False(t, f.store.has(m.AudioRef))
		assert.False(t, f.locker.Held(m.ID))

		var steps, tasks int64
		require.NoError(t, f.db.Model(&entities.ProcessingStep{}).Where("meeting_id = ?", m.ID).Count(&steps).Error)
		require.NoError(t, f.db.Model(&entities.Task{}).Where("meeting_id = ?", m.ID).Count(&tasks).Error)
		assert.Zero(t, steps)
		assert.Zero(t, tasks)
	})

	t.Run("Should drop the calendar events of the deleted tasks", func(t *testing.T) {
		f := newFixture(t)
		cal := &recordingCalendar{}
		f.service.WithEventCleanup(task.NewEventJanitor(repository.NewTaskRepository(f.db), cal, nil))
		m := f.ingest(t, owner)
		eventID := "evt-7"
		require.NoError(t, f.db.Create(&entities.Task{MeetingID: m.ID, Title: "Synced", CalendarEventID: &eventID, Priority: entities.TaskPriorityLow, Status: entities.TaskStatusPending}).Error)
		require.NoError(t, f.db.Create(&entities.Task{MeetingID: m.ID, Title: "Unsynced", Priority: entities.TaskPriorityLow, Status: entities.TaskStatusPending}).Error)

		require.NoError(t, f.service.Delete(ctx, owner, m.ID))
		assert.Equal(t, []string{"evt-7"}, cal.deleted)
	})

	t.Run("Should refuse while a run holds the lock", func(t *testing.T) {
		f := newFixture(t)
		m := f.ingest(t, owner)
		lease, err := f.locker.TryLock(ctx, m.ID)
		require.NoError(t, err)
		defer lease.Release(ctx)

		assert.ErrorIs(t, f.service.Delete(ctx, owner, m.ID), entities.ErrPipelineBusy)
		assert.True(t, f.store.has(m.AudioRef))

		_, err = f.service.Authorize(ctx, owner, m.ID)
		assert.NoError(t, err)
	})

	t.Run("Should not delete another user's meeting", func(t *testing.T) {
		f := newFixture(t)
		m := f.ingest(t, owner)

		assert.ErrorIs(t, f.service.Delete(ctx, uuid.New(), m.ID), entities.ErrMeetingNotFound)
		assert.True(t, f.store.has(m.AudioRef))
	})
}
