package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johnquangdev/meeting-pipeline/internal/domain/entities"
	"github.com/johnquangdev/meeting-pipeline/internal/domain/stages"
	"github.com/johnquangdev/meeting-pipeline/pkg/config"
)

func newGroqServer(t *testing.T, status int, body interface{}) (*httptest.Server, *chatRequest) {
	t.Helper()
	var captured chatRequest
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(ts.Close)
	return ts, &captured
}

func completion(content string) map[string]interface{} {
	return map[string]interface{}{
		"model": "llama-3.3-70b-versatile",
		"choices": []map[string]interface{}{
			{"message": map[string]string{"role": "assistant", "content": content}},
		},
	}
}

func newTestGroq(baseURL string) *GroqClient {
	return NewGroqClient(config.GroqConfig{
		APIKey:      "test-key",
		BaseURL:     baseURL,
		Model:       "llama-3.3-70b-versatile",
		Temperature: 0.3,
		MaxTokens:   4000,
		Timeout:     5 * time.Second,
	}, nil)
}

func TestGroqClient_Analyze(t *testing.T) {
	ctx := context.Background()

	t.Run("Should send the transcript and parse the unified payload", func(t *testing.T) {
		ts, captured := newGroqServer(t, http.StatusOK, completion(unifiedResponse))

		result, err := newTestGroq(ts.URL).Analyze(ctx, "Alice: ship friday")
		require.NoError(t, err)

		assert.Equal(t, "Team agreed to ship on Friday", result.Summary)
		assert.Equal(t, "llama-3.3-70b-versatile", result.Model)
		assert.True(t, result.HasTasks())

		require.Len(t, captured.Messages, 2)
		assert.Contains(t, captured.Messages[1].Content, "Alice: ship friday")
		assert.Equal(t, "json_object", captured.ResponseFormat.Type)
	})

	t.Run("Should classify responses by status", func(t *testing.T) {
		cases := []struct {
			status    int
			reason    string
			transient bool
		}{
			{http.StatusTooManyRequests, entities.ReasonRateLimited, true},
			{http.StatusServiceUnavailable, entities.ReasonUnavailable, true},
			{http.StatusGatewayTimeout, entities.ReasonTimeout, true},
			{http.StatusUnauthorized, entities.ReasonAuthRejected, false},
			{http.StatusBadRequest, entities.ReasonInvalidInput, false},
			{http.StatusTeapot, entities.ReasonUnknown, false},
		}
		for _, tc := range cases {
			ts, _ := newGroqServer(t, tc.status, map[string]interface{}{
				"error": map[string]string{"message": "nope", "type": "test"},
			})

			_, err := newTestGroq(ts.URL).Analyze(ctx, "text")
			f, ok := entities.AsStageFailure(err)
			require.True(t, ok, "status %d", tc.status)
			assert.Equal(t, tc.reason, f.Reason, "status %d", tc.status)
			assert.Equal(t, tc.transient, f.Transient(), "status %d", tc.status)
			assert.Contains(t, f.Error(), "nope")
		}
	})

	t.Run("Should treat an empty completion as malformed", func(t *testing.T) {
		ts, _ := newGroqServer(t, http.StatusOK, map[string]interface{}{"choices": []interface{}{}})

		_, err := newTestGroq(ts.URL).Analyze(ctx, "text")
		f, ok := entities.AsStageFailure(err)
		require.True(t, ok)
		assert.Equal(t, entities.ReasonMalformedOutput, f.Reason)
	})

	t.Run("Should report an expired deadline as a transient timeout", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(200 * time.Millisecond)
		}))
		defer ts.Close()

		shortCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
		defer cancel()

		_, err := newTestGroq(ts.URL).Analyze(shortCtx, "text")
		f, ok := entities.AsStageFailure(err)
		require.True(t, ok)
		assert.True(t, f.Transient())
		assert.Equal(t, entities.ReasonTimeout, f.Reason)
	})
}

func TestGroqClient_DedicatedExtraction(t *testing.T) {
	ctx := context.Background()
	in := stages.ExtractionInput{
		MeetingID:  uuid.New(),
		Transcript: &entities.Transcript{Text: "Bob: I'll write the notes by Friday"},
		Analysis:   &entities.AnalysisResult{Summary: "Release planning"},
	}

	t.Run("Should extract the timeline with its own call", func(t *testing.T) {
		ts, _ := newGroqServer(t, http.StatusOK, completion(`{"timeline": [{"timestamp": "00:05", "event_type": "task_assignment", "title": "Notes"}]}`))

		entries, err := newTestGroq(ts.URL).ExtractTimeline(ctx, in)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, entities.TimelineEventTaskAssignment, entries[0].EventType)
		assert.Equal(t, in.MeetingID, entries[0].MeetingID)
	})

	t.Run("Should extract tasks with the summary as context", func(t *testing.T) {
		ts, captured := newGroqServer(t, http.StatusOK, completion(`{"tasks": [{"title": "Write notes", "assigned_to": "Bob"}]}`))

		tasks, err := newTestGroq(ts.URL).ExtractTasks(ctx, in)
		require.NoError(t, err)
		require.Len(t, tasks, 1)
		assert.Equal(t, "Bob", tasks[0].Assignee)
		assert.Contains(t, captured.Messages[1].Content, "Release planning")
	})

	t.Run("Should fail the step when the reply lacks the portion", func(t *testing.T) {
		ts, _ := newGroqServer(t, http.StatusOK, completion(`{"summary": "only"}`))

		_, err := newTestGroq(ts.URL).ExtractTasks(ctx, in)
		assert.ErrorIs(t, err, entities.ErrPortionMissing)
	})
}
