package handler

import (
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johnquangdev/meeting-pipeline/errors"
	meetingDTO "github.com/johnquangdev/meeting-pipeline/internal/adapter/dto/meeting"
	"github.com/johnquangdev/meeting-pipeline/internal/domain/entities"
)

func TestPipelineHandler_Status(t *testing.T) {
	owner := uuid.New()

	t.Run("Should project four pending steps after upload", func(t *testing.T) {
		s := newServer(t)
		id := s.ingest(t, owner)

		code, env := s.do(t, owner, http.MethodGet, "/v1/meetings/"+id.String()+"/status", nil, "")
		require.Equal(t, http.StatusOK, code)

		status := decode[meetingDTO.StatusResponse](t, env)
		assert.Equal(t, id, status.MeetingID)
		assert.Equal(t, "processing", status.OverallStatus)
		require.Len(t, status.Steps, 4)
		for i, step := range status.Steps {
			assert.Equal(t, string(entities.StepSequence[i]), step.Kind)
			assert.Equal(t, "pending", step.Status)
			assert.Zero(t, step.Progress)
			assert.Nil(t, step.StartedAt)
		}
	})

	t.Run("Should surface the failed step and its error", func(t *testing.T) {
		s := newServer(t)
		id := s.ingest(t, owner)
		now := time.Now().UTC()
		msg := "vendor rejected the audio"
		require.NoError(t, s.db.Model(&entities.ProcessingStep{}).
			Where("meeting_id = ? AND kind = ?", id, entities.StepTranscription).
			Updates(map[string]interface{}{"status": entities.StepStatusFailed, "error_message": msg, "started_at": now}).Error)

		code, env := s.do(t, owner, http.MethodGet, "/v1/meetings/"+id.String()+"/status", nil, "")
		require.Equal(t, http.StatusOK, code)

		status := decode[meetingDTO.StatusResponse](t, env)
		assert.Equal(t, "failed", status.OverallStatus)
		assert.Equal(t, "transcription", status.FailedStep)
		assert.Equal(t, msg, status.Steps[0].Error)
		assert.Nil(t, status.Steps[0].CompletedAt)
	})

	t.Run("Should hide other users' meetings", func(t *testing.T) {
		s := newServer(t)
		id := s.ingest(t, owner)

		code, _ := s.do(t, uuid.New(), http.MethodGet, "/v1/meetings/"+id.String()+"/status", nil, "")
		assert.Equal(t, http.StatusNotFound, code)
	})
}

func TestPipelineHandler_Reprocess(t *testing.T) {
	owner := uuid.New()

	t.Run("Should accept a reprocess from the requested step", func(t *testing.T) {
		s := newServer(t)
		id := s.ingest(t, owner)
		require.NoError(t, s.db.Model(&entities.ProcessingStep{}).
			Where("meeting_id = ? AND kind IN ?", id, []entities.StepKind{entities.StepTranscription, entities.StepAnalysis}).
			Updates(map[string]interface{}{"status": entities.StepStatusCompleted, "progress": 100}).Error)

		code, env := s.doJSON(t, owner, http.MethodPost, "/v1/meetings/"+id.String()+"/reprocess",
			meetingDTO.ReprocessRequest{FromStep: "timeline_extraction"})
		require.Equal(t, http.StatusAccepted, code, env.Message)

		resp := decode[meetingDTO.ReprocessResponse](t, env)
		assert.Equal(t, "timeline_extraction", resp.FromStep)
		assert.Equal(t, []uuid.UUID{id, id}, s.queue.ids)
	})

	t.Run("Should refuse a start step whose predecessor has not completed", func(t *testing.T) {
		s := newServer(t)
		id := s.ingest(t, owner)
		require.NoError(t, s.db.Model(&entities.ProcessingStep{}).
			Where("meeting_id = ? AND kind = ?", id, entities.StepTranscription).
			Updates(map[string]interface{}{"status": entities.StepStatusFailed, "error_message": "vendor rejected the audio"}).Error)

		code, env := s.doJSON(t, owner, http.MethodPost, "/v1/meetings/"+id.String()+"/reprocess",
			meetingDTO.ReprocessRequest{FromStep: "analysis"})
		assert.Equal(t, http.StatusConflict, code)
		assert.Equal(t, int(errors.ErrorCode_STEP_NOT_READY), env.Code)
		assert.Equal(t, []uuid.UUID{id}, s.queue.ids)
		assert.False(t, s.locker.Held(id))
	})

	t.Run("Should default to transcription without a body", func(t *testing.T) {
		s := newServer(t)
		id := s.ingest(t, owner)

		code, env := s.do(t, owner, http.MethodPost, "/v1/meetings/"+id.String()+"/reprocess", nil, "")
		require.Equal(t, http.StatusAccepted, code, env.Message)
		assert.Equal(t, "transcription", decode[meetingDTO.ReprocessResponse](t, env).FromStep)
	})

	t.Run("Should reject an unknown step", func(t *testing.T) {
		s := newServer(t)
		id := s.ingest(t, owner)

		code, env := s.doJSON(t, owner, http.MethodPost, "/v1/meetings/"+id.String()+"/reprocess",
			meetingDTO.ReprocessRequest{FromStep: "diarization"})
		assert.Equal(t, http.StatusBadRequest, code)
		assert.Equal(t, int(errors.ErrorCode_INVALID_STEP), env.Code)
	})

	t.Run("Should conflict while a run holds the lock", func(t *testing.T) {
		s := newServer(t)
		id := s.ingest(t, owner)
		lease, err := s.locker.TryLock(t.Context(), id)
		require.NoError(t, err)
		defer lease.Release(t.Context())

		code, env := s.do(t, owner, http.MethodPost, "/v1/meetings/"+id.String()+"/reprocess", nil, "")
		assert.Equal(t, http.StatusConflict, code)
		assert.Equal(t, int(errors.ErrorCode_PIPELINE_BUSY), env.Code)
	})

	t.Run("Should report a missing meeting", func(t *testing.T) {
		s := newServer(t)
		code, _ := s.do(t, owner, http.MethodPost, "/v1/meetings/"+uuid.NewString()+"/reprocess", nil, "")
		assert.Equal(t, http.StatusNotFound, code)
	})
}
