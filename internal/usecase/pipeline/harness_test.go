package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/johnquangdev/meeting-pipeline/internal/adapter/repository"
	"github.com/johnquangdev/meeting-pipeline/internal/domain/entities"
	"github.com/johnquangdev/meeting-pipeline/internal/domain/repositories"
	"github.com/johnquangdev/meeting-pipeline/internal/domain/stages"
	"github.com/johnquangdev/meeting-pipeline/internal/infrastructure/cache"
	"github.com/johnquangdev/meeting-pipeline/internal/infrastructure/database"
	"github.com/johnquangdev/meeting-pipeline/pkg/ai"
)

type transcribeFunc func(ctx context.Context, audioRef string) (*entities.Transcript, error)

func (f transcribeFunc) Transcribe(ctx context.Context, audioRef string) (*entities.Transcript, error) {
	return f(ctx, audioRef)
}

type analyzeFunc func(ctx context.Context, transcript string) (*entities.AnalysisResult, error)

func (f analyzeFunc) Analyze(ctx context.Context, transcript string) (*entities.AnalysisResult, error) {
	return f(ctx, transcript)
}

type taskFunc func(ctx context.Context, in stages.ExtractionInput) ([]*entities.Task, error)

func (f taskFunc) ExtractTasks(ctx context.Context, in stages.ExtractionInput) ([]*entities.Task, error) {
	return f(ctx, in)
}

// counter tracks how often a fake stage was invoked
type counter struct {
	mu sync.Mutex
	n  map[entities.StepKind]int
}

func newCounter() *counter {
	return &counter{n: make(map[entities.StepKind]int)}
}

func (c *counter) inc(kind entities.StepKind) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.n[kind]++
	return c.n[kind]
}

func (c *counter) get(kind entities.StepKind) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n[kind]
}

const transcriptText = "Alice: we ship on Friday. Bob: I will write the release notes by 2024-01-25."

func fakeTranscriber(calls *counter) transcribeFunc {
	return func(ctx context.Context, audioRef string) (*entities.Transcript, error) {
		calls.inc(entities.StepTranscription)
		return &entities.Transcript{Text: transcriptText, DurationSeconds: 300, ModelUsed: "fake"}, nil
	}
}

func fakeAnalyzer(calls *counter, tasks string) analyzeFunc {
	return func(ctx context.Context, transcript string) (*entities.AnalysisResult, error) {
		calls.inc(entities.StepAnalysis)
		result := &entities.AnalysisResult{
			Summary:      "Release planning",
			KeyDecisions: []string{"Ship on Friday"},
			Timeline:     json.RawMessage(`[{"timestamp": "00:10", "event_type": "decision", "title": "Ship date"}, {"timestamp": "02:00", "event_type": "task_assignment", "title": "Notes"}]`),
			Model:        "fake",
		}
		if tasks != "" {
			result.Tasks = json.RawMessage(tasks)
		}
		return result, nil
	}
}

const twoTasks = `[{"title": "Write release notes", "assigned_to": "Bob", "deadline": "2024-01-25", "priority": "high"}, {"title": "Book demo"}]`

// happyStages succeeds at every step, sharing the analysis portions
func happyStages(calls *counter) stages.Set {
	extractor := ai.NewPortionExtractor()
	return stages.Set{
		Transcriber: fakeTranscriber(calls),
		Analyzer:    fakeAnalyzer(calls, twoTasks),
		Timeline:    extractor,
		Tasks:       extractor,
	}
}

func testPolicy() Policy {
	return Policy{
		MaxRetries:           2,
		Backoff:              time.Millisecond,
		TranscriptionTimeout: 50 * time.Millisecond,
		AnalysisTimeout:      time.Second,
		ExtractionTimeout:    time.Second,
		StaleAfter:           time.Minute,
	}
}

type harness struct {
	db        *gorm.DB
	meetings  repositories.MeetingRepository
	ledger    *repository.StepLedger
	artifacts repositories.ArtifactRepository
	tasks     repositories.TaskRepository
	locker    *cache.MemoryLocker
	orch      *Orchestrator
	projector *Projector
}

func newHarness(t *testing.T, set stages.Set, hooks ...CompletionHook) *harness {
	t.Helper()
	db, err := database.NewSQLiteDB(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrateModels(db))
	t.Cleanup(func() { _ = database.CloseDB(db) })

	h := &harness{
		db:        db,
		meetings:  repository.NewMeetingRepository(db),
		ledger:    repository.NewStepLedger(db),
		artifacts: repository.NewArtifactRepository(db),
		tasks:     repository.NewTaskRepository(db),
		locker:    cache.NewMemoryLocker(time.Minute),
	}
	h.orch = NewOrchestrator(OrchestratorDeps{
		Meetings:  h.meetings,
		Ledger:    h.ledger,
		Artifacts: h.artifacts,
		Stages:    set,
		Locker:    h.locker,
		Hooks:     hooks,
	}, testPolicy(), nil)
	h.projector = NewProjector(h.meetings, h.ledger)
	return h
}

func (h *harness) seed(t *testing.T) *entities.Meeting {
	t.Helper()
	meeting := entities.NewMeeting(uuid.New(), "Release sync", "meetings/u/release.mp3", 2048)
	require.NoError(t, h.meetings.CreateWithSteps(context.Background(), meeting, entities.NewProcessingSteps(meeting.ID)))
	return meeting
}

func (h *harness) meeting(t *testing.T, id uuid.UUID) *entities.Meeting {
	t.Helper()
	m, err := h.meetings.FindByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, m)
	return m
}

func (h *harness) status(t *testing.T, id uuid.UUID) *StatusSnapshot {
	t.Helper()
	snap, err := h.projector.Status(context.Background(), id)
	require.NoError(t, err)
	return snap
}

func (h *harness) steps(t *testing.T, id uuid.UUID) map[entities.StepKind]*entities.ProcessingStep {
	t.Helper()
	steps, err := h.ledger.Steps(context.Background(), id)
	require.NoError(t, err)
	out := make(map[entities.StepKind]*entities.ProcessingStep, len(steps))
	for _, s := range steps {
		out[s.Kind] = s
	}
	return out
}

// forceStatus rewrites a ledger row directly, bypassing the CAS and timestamps
func (h *harness) forceStatus(t *testing.T, id uuid.UUID, kind entities.StepKind, status entities.StepStatus, at time.Time) {
	t.Helper()
	require.NoError(t, h.db.Model(&entities.ProcessingStep{}).
		Where("meeting_id = ? AND kind = ?", id, kind).
		UpdateColumns(map[string]interface{}{
			"status":     status,
			"started_at": at,
			"updated_at": at,
		}).Error)
}

type recordingHook struct {
	mu    sync.Mutex
	calls []uuid.UUID
	err   error
}

func (r *recordingHook) OnPipelineCompleted(ctx context.Context, meetingID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, meetingID)
	return r.err
}

func (r *recordingHook) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

// recordingDispatcher keeps submitted work instead of running it
type recordingDispatcher struct {
	mu     sync.Mutex
	ids    []uuid.UUID
	leases []repositories.Lease
	err    error
}

func (d *recordingDispatcher) Submit(meetingID uuid.UUID) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.ids = append(d.ids, meetingID)
	return nil
}

func (d *recordingDispatcher) SubmitLeased(lease repositories.Lease) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		_ = lease.Release(context.Background())
		return d.err
	}
	d.leases = append(d.leases, lease)
	return nil
}

func (d *recordingDispatcher) Queued(meetingID uuid.UUID) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, id := range d.ids {
		if id == meetingID {
			return true
		}
	}
	return false
}
