package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johnquangdev/meeting-pipeline/internal/domain/entities"
	"github.com/johnquangdev/meeting-pipeline/internal/domain/repositories"
)

func TestMeetingRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("Should return nil for a missing meeting", func(t *testing.T) {
		db := newTestDB(t)
		m, err := NewMeetingRepository(db).FindByID(ctx, uuid.New())
		require.NoError(t, err)
		assert.Nil(t, m)
	})

	t.Run("Should list only the owner's meetings newest first", func(t *testing.T) {
		db := newTestDB(t)
		repo := NewMeetingRepository(db)
		owner := uuid.New()

		first := seedMeeting(t, db, owner)
		time.Sleep(5 * time.Millisecond)
		second := seedMeeting(t, db, owner)
		seedMeeting(t, db, uuid.New())

		meetings, total, err := repo.List(ctx, repositories.MeetingFilters{UserID: owner, Limit: 10})
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		require.Len(t, meetings, 2)
		assert.Equal(t, second.ID, meetings[0].ID)
		assert.Equal(t, first.ID, meetings[1].ID)

		status := entities.MeetingStatusCompleted
		meetings, total, err = repo.List(ctx, repositories.MeetingFilters{UserID: owner, Status: &status})
		require.NoError(t, err)
		assert.Zero(t, total)
		assert.Empty(t, meetings)
	})

	t.Run("Should find completed meetings whose hooks never finished", func(t *testing.T) {
		db := newTestDB(t)
		repo := NewMeetingRepository(db)
		seedMeeting(t, db, uuid.New())
		owed := seedMeeting(t, db, uuid.New())
		done := seedMeeting(t, db, uuid.New())
		require.NoError(t, db.Model(&entities.Meeting{}).
			Where("id IN ?", []uuid.UUID{owed.ID, done.ID}).
			UpdateColumn("status", entities.MeetingStatusCompleted).Error)

		at := time.Now().UTC()
		require.NoError(t, repo.MarkHooksRun(ctx, done.ID, at))
		marked := loadMeeting(t, db, done.ID)
		require.NotNil(t, marked.HooksRanAt)
		assert.WithinDuration(t, at, *marked.HooksRanAt, time.Second)

		meetings, err := repo.FindHooksPending(ctx, 10)
		require.NoError(t, err)
		require.Len(t, meetings, 1)
		assert.Equal(t, owed.ID, meetings[0].ID)
	})

	t.Run("Should report a missing meeting when marking hooks", func(t *testing.T) {
		db := newTestDB(t)
		err := NewMeetingRepository(db).MarkHooksRun(ctx, uuid.New(), time.Now())
		assert.ErrorIs(t, err, entities.ErrMeetingNotFound)
	})

	t.Run("Should find processing meetings for the sweeper", func(t *testing.T) {
		db := newTestDB(t)
		repo := NewMeetingRepository(db)
		seedMeeting(t, db, uuid.New())
		seedMeeting(t, db, uuid.New())

		meetings, err := repo.FindByStatus(ctx, entities.MeetingStatusProcessing, 1)
		require.NoError(t, err)
		assert.Len(t, meetings, 1)
	})

	t.Run("Should delete the meeting with everything it owns", func(t *testing.T) {
		db := newTestDB(t)
		repo := NewMeetingRepository(db)
		meeting := seedMeeting(t, db, uuid.New())
		ledger := NewStepLedger(db)
		advance(t, ledger, meeting.ID, entities.StepTranscription, repositories.TranscriptOutput{Transcript: &entities.Transcript{Text: "t"}})

		require.NoError(t, repo.DeleteCascade(ctx, meeting.ID))

		m, err := repo.FindByID(ctx, meeting.ID)
		require.NoError(t, err)
		assert.Nil(t, m)

		steps, err := ledger.Steps(ctx, meeting.ID)
		require.NoError(t, err)
		assert.Empty(t, steps)

		transcript, err := NewArtifactRepository(db).GetTranscript(ctx, meeting.ID)
		require.NoError(t, err)
		assert.Nil(t, transcript)

		assert.ErrorIs(t, repo.DeleteCascade(ctx, meeting.ID), entities.ErrMeetingNotFound)
	})

	t.Run("Should aggregate stats per user", func(t *testing.T) {
		db := newTestDB(t)
		repo := NewMeetingRepository(db)
		owner := uuid.New()
		meeting := seedMeeting(t, db, owner)
		seedMeeting(t, db, owner)

		ledger := NewStepLedger(db)
		advance(t, ledger, meeting.ID, entities.StepTranscription, repositories.TranscriptOutput{Transcript: &entities.Transcript{Text: "t", DurationSeconds: 90}})
		advance(t, ledger, meeting.ID, entities.StepAnalysis, repositories.AnalysisOutput{Summary: &entities.MeetingSummary{Summary: "s"}})
		advance(t, ledger, meeting.ID, entities.StepTimelineExtraction, repositories.TimelineOutput{})
		advance(t, ledger, meeting.ID, entities.StepTaskExtraction, repositories.TaskOutput{Tasks: []*entities.Task{
			{Title: "A", Priority: entities.TaskPriorityHigh, Status: entities.TaskStatusPending},
			{Title: "B", Priority: entities.TaskPriorityLow, Status: entities.TaskStatusCompleted},
		}})

		stats, err := repo.Stats(ctx, owner)
		require.NoError(t, err)
		assert.Equal(t, int64(2), stats.TotalMeetings)
		assert.Equal(t, int64(1), stats.MeetingsByStatus[entities.MeetingStatusCompleted])
		assert.Equal(t, int64(1), stats.MeetingsByStatus[entities.MeetingStatusProcessing])
		assert.Equal(t, int64(2), stats.TotalTasks)
		assert.Equal(t, int64(1), stats.TasksByStatus[entities.TaskStatusCompleted])
		assert.Equal(t, int64(90), stats.TotalDurationSeconds)
	})
}

func TestTaskRepository(t *testing.T) {
	ctx := context.Background()

	seedTasks := func(t *testing.T) (*entities.Meeting, []*entities.Task, taskTestDeps) {
		db := newTestDB(t)
		owner := uuid.New()
		meeting := seedMeeting(t, db, owner)
		ledger := NewStepLedger(db)
		advance(t, ledger, meeting.ID, entities.StepTranscription, repositories.TranscriptOutput{Transcript: &entities.Transcript{Text: "t"}})
		advance(t, ledger, meeting.ID, entities.StepAnalysis, repositories.AnalysisOutput{Summary: &entities.MeetingSummary{Summary: "s"}})
		advance(t, ledger, meeting.ID, entities.StepTimelineExtraction, repositories.TimelineOutput{})
		tasks := []*entities.Task{
			{Title: "Draft plan", Priority: entities.TaskPriorityHigh, Status: entities.TaskStatusPending, Assignee: "An"},
			{Title: "Book room", Priority: entities.TaskPriorityLow, Status: entities.TaskStatusPending, Assignee: entities.UnassignedTask},
		}
		advance(t, ledger, meeting.ID, entities.StepTaskExtraction, repositories.TaskOutput{Tasks: tasks})
		return meeting, tasks, taskTestDeps{repo: NewTaskRepository(db), ledger: ledger, owner: owner}
	}

	t.Run("Should filter by owner, status and priority", func(t *testing.T) {
		meeting, _, deps := seedTasks(t)

		all, total, err := deps.repo.List(ctx, repositories.TaskFilters{UserID: &deps.owner})
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		assert.Len(t, all, 2)

		high := entities.TaskPriorityHigh
		filtered, _, err := deps.repo.List(ctx, repositories.TaskFilters{MeetingID: &meeting.ID, Priority: &high})
		require.NoError(t, err)
		require.Len(t, filtered, 1)
		assert.Equal(t, "Draft plan", filtered[0].Title)

		stranger := uuid.New()
		none, _, err := deps.repo.List(ctx, repositories.TaskFilters{UserID: &stranger})
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("Should update task status without touching the pipeline", func(t *testing.T) {
		meeting, tasks, deps := seedTasks(t)

		require.NoError(t, deps.repo.UpdateStatus(ctx, tasks[0].ID, entities.TaskStatusInProgress))
		got, err := deps.repo.FindByID(ctx, tasks[0].ID)
		require.NoError(t, err)
		assert.Equal(t, entities.TaskStatusInProgress, got.Status)

		require.NoError(t, deps.repo.Delete(ctx, tasks[1].ID))
		assert.ErrorIs(t, deps.repo.Delete(ctx, tasks[1].ID), entities.ErrTaskNotFound)

		steps, err := deps.ledger.Steps(ctx, meeting.ID)
		require.NoError(t, err)
		for _, s := range steps {
			assert.Equal(t, entities.StepStatusCompleted, s.Status)
		}
	})

	t.Run("Should save edits and the calendar reference", func(t *testing.T) {
		_, tasks, deps := seedTasks(t)
		deadline := time.Date(2026, 11, 3, 0, 0, 0, 0, time.UTC)

		task := tasks[1]
		task.Title = "Book the large room"
		task.Deadline = &deadline
		require.NoError(t, deps.repo.Update(ctx, task))
		require.NoError(t, deps.repo.SetCalendarEvent(ctx, task.ID, "evt-1"))

		got, err := deps.repo.FindByID(ctx, task.ID)
		require.NoError(t, err)
		assert.Equal(t, "Book the large room", got.Title)
		require.NotNil(t, got.Deadline)
		assert.Equal(t, "2026-11-03", got.Deadline.Format("2006-01-02"))
		require.NotNil(t, got.CalendarEventID)
		assert.Equal(t, "evt-1", *got.CalendarEventID)
	})
}

type taskTestDeps struct {
	repo   repositories.TaskRepository
	ledger *StepLedger
	owner  uuid.UUID
}
