package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/johnquangdev/meeting-pipeline/internal/adapter/repository"
	"github.com/johnquangdev/meeting-pipeline/internal/domain/entities"
	"github.com/johnquangdev/meeting-pipeline/internal/domain/repositories"
	"github.com/johnquangdev/meeting-pipeline/internal/infrastructure/cache"
	"github.com/johnquangdev/meeting-pipeline/internal/infrastructure/database"
	"github.com/johnquangdev/meeting-pipeline/internal/infrastructure/http/middleware"
	"github.com/johnquangdev/meeting-pipeline/internal/usecase/meeting"
	"github.com/johnquangdev/meeting-pipeline/internal/usecase/pipeline"
	"github.com/johnquangdev/meeting-pipeline/internal/usecase/task"
	"github.com/johnquangdev/meeting-pipeline/pkg/config"
	"github.com/johnquangdev/meeting-pipeline/pkg/jwt"
	"github.com/johnquangdev/meeting-pipeline/pkg/validator"
)

type memoryStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (s *memoryStore) UploadAudio(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = b
	return nil
}

func (s *memoryStore) RemoveAudio(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

// queue records submissions and releases handed-off leases immediately
type queue struct {
	mu  sync.Mutex
	ids []uuid.UUID
}

func (q *queue) Submit(meetingID uuid.UUID) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.ids = append(q.ids, meetingID)
	return nil
}

func (q *queue) SubmitLeased(lease repositories.Lease) error {
	defer lease.Release(context.Background())
	return q.Submit(lease.MeetingID())
}

type server struct {
	e      *echo.Echo
	db     *gorm.DB
	tokens *jwt.Manager
	locker *cache.MemoryLocker
	queue  *queue
}

type envelope struct {
	Code    int               `json:"code"`
	Message string            `json:"message"`
	Data    json.RawMessage   `json:"data"`
	Info    string            `json:"info"`
	Details map[string]string `json:"details"`
}

func newServer(t *testing.T) *server {
	t.Helper()
	db, err := database.NewSQLiteDB(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrateModels(db))
	t.Cleanup(func() { _ = database.CloseDB(db) })

	meetings := repository.NewMeetingRepository(db)
	ledger := repository.NewStepLedger(db)
	s := &server{
		e:      echo.New(),
		db:     db,
		tokens: jwt.NewManager("test-secret", time.Hour, ""),
		locker: cache.NewMemoryLocker(0),
		queue:  &queue{},
	}

	meetingSvc := meeting.NewMeetingService(meetings, repository.NewArtifactRepository(db), s.locker,
		&memoryStore{objects: make(map[string][]byte)}, s.queue, 1024, nil)
	reprocess := pipeline.NewReprocessController(meetings, ledger, s.locker, s.queue,
		pipeline.NewPolicy(config.PipelineConfig{StaleAfter: time.Minute}), nil)

	s.e.Validator = validator.New()
	NewRouter("test",
		middleware.EchoAuth(s.tokens),
		NewMeetingHandler(meetingSvc, nil),
		NewPipelineHandler(meetingSvc, pipeline.NewProjector(meetings, ledger), reprocess, nil),
		NewTaskHandler(task.NewTaskService(repository.NewTaskRepository(db), meetings, nil, nil), nil),
		NewHealth(map[string]func(ctx context.Context) error{
			"database": func(ctx context.Context) error { return database.Ping(ctx, db) },
		}, nil),
	).Setup(s.e)
	return s
}

func (s *server) token(t *testing.T, userID uuid.UUID) string {
	t.Helper()
	token, err := s.tokens.GenerateAccessToken(userID, "")
	require.NoError(t, err)
	return token
}

func (s *server) do(t *testing.T, userID uuid.UUID, method, path string, body io.Reader, contentType string) (int, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if userID != uuid.Nil {
		req.Header.Set("Authorization", "Bearer "+s.token(t, userID))
	}
	if contentType != "" {
		req.Header.Set(echo.HeaderContentType, contentType)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec.Code, env
}

func (s *server) doJSON(t *testing.T, userID uuid.UUID, method, path string, payload interface{}) (int, envelope) {
	t.Helper()
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(b)
	}
	return s.do(t, userID, method, path, body, echo.MIMEApplicationJSON)
}

func (s *server) upload(t *testing.T, userID uuid.UUID, filename, title string, audio []byte) (int, envelope) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if title != "" {
		require.NoError(t, w.WriteField("title", title))
	}
	if filename != "" {
		part, err := w.CreateFormFile("audio", filename)
		require.NoError(t, err)
		_, err = part.Write(audio)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return s.do(t, userID, http.MethodPost, "/v1/meetings", &buf, w.FormDataContentType())
}

// ingest uploads a small recording and returns the new meeting id
func (s *server) ingest(t *testing.T, userID uuid.UUID) uuid.UUID {
	t.Helper()
	code, env := s.upload(t, userID, "standup.mp3", "Standup", []byte("audio"))
	require.Equal(t, http.StatusAccepted, code, env.Message)

	var out struct {
		MeetingID uuid.UUID `json:"meeting_id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &out))
	return out.MeetingID
}

func (s *server) seedTask(t *testing.T, meetingID uuid.UUID, title string) *entities.Task {
	t.Helper()
	tk := &entities.Task{
		MeetingID: meetingID,
		Title:     title,
		Assignee:  entities.UnassignedTask,
		Priority:  entities.TaskPriorityMedium,
		Status:    entities.TaskStatusPending,
	}
	require.NoError(t, s.db.Create(tk).Error)
	return tk
}

func decode[T any](t *testing.T, env envelope) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(env.Data, &out))
	return out
}
