package main

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johnquangdev/meeting-pipeline/internal/adapter/repository"
	"github.com/johnquangdev/meeting-pipeline/internal/domain/entities"
	"github.com/johnquangdev/meeting-pipeline/internal/domain/repositories"
	"github.com/johnquangdev/meeting-pipeline/internal/infrastructure/database"
	"github.com/johnquangdev/meeting-pipeline/internal/usecase/pipeline"
	"github.com/johnquangdev/meeting-pipeline/pkg/jwt"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(t.Context())
	return out.String(), err
}

func TestRenderTable(t *testing.T) {
	t.Run("Should render headers and pad short rows", func(t *testing.T) {
		out := renderTable([]string{"Step", "Status"}, [][]string{{"transcription"}}, nil)
		assert.Contains(t, out, "STEP")
		assert.Contains(t, out, "transcription")
	})

	t.Run("Should render nothing without headers", func(t *testing.T) {
		assert.Empty(t, renderTable(nil, [][]string{{"x"}}, nil))
	})
}

func TestRenderStatus(t *testing.T) {
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	meeting := entities.NewMeeting(uuid.New(), "Weekly sync", "meetings/a.mp3", 1_500_000)
	meeting.CreatedAt = now.Add(-2 * time.Hour)
	steps := entities.NewProcessingSteps(meeting.ID)

	started := now.Add(-90 * time.Minute)
	completed := now.Add(-80 * time.Minute)
	steps[0].Status = entities.StepStatusCompleted
	steps[0].Progress = 100
	steps[0].StartedAt = &started
	steps[0].CompletedAt = &completed
	steps[1].Status = entities.StepStatusFailed
	msg := "analysis: rate limited"
	steps[1].ErrorMessage = &msg

	out := renderStatus(meeting, pipeline.Project(meeting, steps), now)

	t.Run("Should show the header", func(t *testing.T) {
		assert.Contains(t, out, "Weekly sync")
		assert.Contains(t, out, "1.5 MB")
		assert.Contains(t, out, "2 hours ago")
		assert.Contains(t, out, "Failed:   analysis")
	})

	t.Run("Should list every step in order", func(t *testing.T) {
		tableStart := strings.Index(out, "STEP")
		require.Positive(t, tableStart)
		rows := out[tableStart:]
		last := -1
		for _, kind := range entities.StepSequence {
			idx := strings.Index(rows, string(kind))
			require.Greater(t, idx, last, "step %s out of order", kind)
			last = idx
		}
		assert.Contains(t, out, "100%")
		assert.Contains(t, out, "rate limited")
	})
}

func TestRenderMigrationStatus(t *testing.T) {
	now := time.Now()
	applied := now.Add(-3 * 24 * time.Hour)

	out := renderMigrationStatus([]database.MigrationState{
		{ID: "0001_init.sql", AppliedAt: &applied},
		{ID: "0002_tasks.sql"},
	}, now)

	assert.Contains(t, out, "0001_init.sql")
	assert.Contains(t, out, "3 days ago")
	assert.Contains(t, out, "pending")
	assert.Equal(t, "No migrations found", renderMigrationStatus(nil, now))
}

type fakeRunner struct {
	err error
	ran []uuid.UUID
}

func (f *fakeRunner) Run(_ context.Context, meetingID uuid.UUID) error {
	f.ran = append(f.ran, meetingID)
	return f.err
}

func (f *fakeRunner) RunLeased(_ context.Context, lease repositories.Lease) error {
	f.ran = append(f.ran, lease.MeetingID())
	return f.err
}

type fakeLease struct {
	id       uuid.UUID
	released bool
}

func (l *fakeLease) MeetingID() uuid.UUID { return l.id }

func (l *fakeLease) Release(context.Context) error {
	l.released = true
	return nil
}

func TestInlineRunner(t *testing.T) {
	t.Run("Should run leased submissions and release the lease", func(t *testing.T) {
		runner := &fakeRunner{}
		inline := &inlineRunner{ctx: t.Context(), orch: runner}
		lease := &fakeLease{id: uuid.New()}

		require.NoError(t, inline.SubmitLeased(lease))
		assert.True(t, lease.released)
		assert.Equal(t, []uuid.UUID{lease.id}, runner.ran)
		assert.NoError(t, inline.err())
	})

	t.Run("Should collect run errors without stopping the caller", func(t *testing.T) {
		runner := &fakeRunner{err: entities.ErrPipelineBusy}
		inline := &inlineRunner{ctx: t.Context(), orch: runner}

		require.NoError(t, inline.Submit(uuid.New()))
		require.NoError(t, inline.Submit(uuid.New()))
		assert.Len(t, inline.ran, 2)
		assert.True(t, errors.Is(inline.err(), entities.ErrPipelineBusy))
		assert.False(t, inline.Queued(uuid.New()))
	})
}

func TestTokenCommand(t *testing.T) {
	t.Setenv("JWT_ACCESS_SECRET", "cli-test-secret")
	t.Setenv("JWT_ISSUER", "meeting-pipeline")
	userID := uuid.New()

	t.Run("Should mint a token the API accepts", func(t *testing.T) {
		out, err := execute(t, "token", "--user", userID.String(), "--email", "ops@example.com")
		require.NoError(t, err)

		var token string
		for _, line := range strings.Split(out, "\n") {
			if v, ok := strings.CutPrefix(line, "token:"); ok {
				token = strings.TrimSpace(v)
			}
		}
		require.NotEmpty(t, token)

		claims, err := jwt.NewManager("cli-test-secret", time.Minute, "meeting-pipeline").ValidateAccessToken(token)
		require.NoError(t, err)
		assert.Equal(t, userID, claims.UserID)
		assert.Equal(t, "ops@example.com", claims.Email)
	})

	t.Run("Should reject a malformed user id", func(t *testing.T) {
		_, err := execute(t, "token", "--user", "nope")
		assert.Error(t, err)
	})
}

func TestStatusCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipeline.db")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_NAME", path)

	db, err := database.NewSQLiteDB(path)
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrateModels(db))
	t.Cleanup(func() { _ = database.CloseDB(db) })

	meeting := entities.NewMeeting(uuid.New(), "Planning", "meetings/p.mp3", 2048)
	require.NoError(t, repository.NewMeetingRepository(db).CreateWithSteps(context.Background(), meeting, entities.NewProcessingSteps(meeting.ID)))

	t.Run("Should print the step table", func(t *testing.T) {
		out, err := execute(t, "status", meeting.ID.String())
		require.NoError(t, err)
		assert.Contains(t, out, "Planning")
		assert.Contains(t, out, "processing")
		assert.Contains(t, out, string(entities.StepTaskExtraction))
	})

	t.Run("Should report an unknown meeting", func(t *testing.T) {
		_, err := execute(t, "status", uuid.New().String())
		assert.ErrorIs(t, err, entities.ErrMeetingNotFound)
	})

	t.Run("Should reject a malformed id", func(t *testing.T) {
		_, err := execute(t, "status", "not-a-uuid")
		assert.Error(t, err)
	})
}
