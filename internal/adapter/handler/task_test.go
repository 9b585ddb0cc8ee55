package handler

import (
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johnquangdev/meeting-pipeline/errors"
	taskDTO "github.com/johnquangdev/meeting-pipeline/internal/adapter/dto/task"
)

func strPtr(s string) *string { return &s }

func TestTaskHandler(t *testing.T) {
	owner, stranger := uuid.New(), uuid.New()

	t.Run("Should list tasks filtered by meeting", func(t *testing.T) {
		s := newServer(t)
		first := s.ingest(t, owner)
		second := s.ingest(t, owner)
		s.seedTask(t, first, "Write notes")
		s.seedTask(t, second, "Book room")

		code, env := s.do(t, owner, http.MethodGet, "/v1/tasks?meeting_id="+first.String(), nil, "")
		require.Equal(t, http.StatusOK, code)
		list := decode[struct {
			Data []taskDTO.TaskResponse `json:"data"`
		}](t, env)
		require.Len(t, list.Data, 1)
		assert.Equal(t, "Write notes", list.Data[0].Title)

		code, _ = s.do(t, owner, http.MethodGet, "/v1/tasks?priority=urgent", nil, "")
		assert.Equal(t, http.StatusBadRequest, code)
	})

	t.Run("Should edit a task", func(t *testing.T) {
		s := newServer(t)
		tk := s.seedTask(t, s.ingest(t, owner), "Write notes")

		code, env := s.doJSON(t, owner, http.MethodPut, "/v1/tasks/"+tk.ID.String(), taskDTO.UpdateTaskRequest{
			Title:    strPtr("Write release notes"),
			Deadline: strPtr("2024-02-01"),
			Priority: strPtr("high"),
		})
		require.Equal(t, http.StatusOK, code, env.Message)

		resp := decode[taskDTO.TaskResponse](t, env)
		assert.Equal(t, "Write release notes", resp.Title)
		assert.Equal(t, "high", resp.Priority)
		require.NotNil(t, resp.Deadline)
		assert.Equal(t, "2024-02-01", *resp.Deadline)
	})

	t.Run("Should reject a malformed deadline", func(t *testing.T) {
		s := newServer(t)
		tk := s.seedTask(t, s.ingest(t, owner), "Write notes")

		code, env := s.doJSON(t, owner, http.MethodPut, "/v1/tasks/"+tk.ID.String(), taskDTO.UpdateTaskRequest{
			Deadline: strPtr("01/02/2024"),
		})
		assert.Equal(t, http.StatusBadRequest, code)
		assert.Contains(t, env.Info, "isodate")
	})

	t.Run("Should change the status", func(t *testing.T) {
		s := newServer(t)
		tk := s.seedTask(t, s.ingest(t, owner), "Write notes")

		code, env := s.doJSON(t, owner, http.MethodPut, "/v1/tasks/"+tk.ID.String()+"/status",
			taskDTO.UpdateTaskStatusRequest{Status: "in_progress"})
		require.Equal(t, http.StatusOK, code)
		assert.Equal(t, "in_progress", decode[taskDTO.TaskResponse](t, env).Status)

		code, env = s.doJSON(t, owner, http.MethodPut, "/v1/tasks/"+tk.ID.String()+"/status",
			taskDTO.UpdateTaskStatusRequest{Status: "blocked"})
		assert.Equal(t, http.StatusBadRequest, code)
		assert.Equal(t, int(errors.ErrorCode_TASK_INVALID_STATE), env.Code)
	})

	t.Run("Should hide and protect other users' tasks", func(t *testing.T) {
		s := newServer(t)
		tk := s.seedTask(t, s.ingest(t, owner), "Write notes")

		code, env := s.do(t, stranger, http.MethodGet, "/v1/tasks/"+tk.ID.String(), nil, "")
		assert.Equal(t, http.StatusNotFound, code)
		assert.Equal(t, int(errors.ErrorCode_TASK_NOT_FOUND), env.Code)

		code, _ = s.do(t, stranger, http.MethodDelete, "/v1/tasks/"+tk.ID.String(), nil, "")
		assert.Equal(t, http.StatusNotFound, code)

		code, _ = s.do(t, owner, http.MethodDelete, "/v1/tasks/"+tk.ID.String(), nil, "")
		assert.Equal(t, http.StatusOK, code)
		code, _ = s.do(t, owner, http.MethodGet, "/v1/tasks/"+tk.ID.String(), nil, "")
		assert.Equal(t, http.StatusNotFound, code)
	})
}
