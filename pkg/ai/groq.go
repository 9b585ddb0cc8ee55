package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/johnquangdev/meeting-pipeline/internal/domain/entities"
	"github.com/johnquangdev/meeting-pipeline/internal/domain/stages"
	"github.com/johnquangdev/meeting-pipeline/pkg/config"
	"github.com/johnquangdev/meeting-pipeline/pkg/jobcontext"
)

const defaultGroqBaseURL = "https://api.groq.com/openai/v1"

// GroqClient calls the Groq OpenAI-compatible chat completions API.
// It serves the analysis step and, in dedicated mode, both extraction steps.
type GroqClient struct {
	http        *resty.Client
	model       string
	temperature float64
	maxTokens   int
	logger      *zap.Logger
}

var (
	_ stages.Analyzer          = (*GroqClient)(nil)
	_ stages.TimelineExtractor = (*GroqClient)(nil)
	_ stages.TaskExtractor     = (*GroqClient)(nil)
)

// NewGroqClient creates a Groq client from configuration
func NewGroqClient(cfg config.GroqConfig, logger *zap.Logger) *GroqClient {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = defaultGroqBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}

	return &GroqClient{
		http: resty.New().
			SetBaseURL(base).
			SetAuthToken(cfg.APIKey).
			SetHeader("Content-Type", "application/json").
			SetTimeout(timeout),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		logger:      logger,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type chatError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Analyze runs the unified analysis call: summary plus raw timeline and task portions
func (g *GroqClient) Analyze(ctx context.Context, transcript string) (*entities.AnalysisResult, error) {
	jobcontext.ReportProgress(ctx, 10)

	content, model, err := g.complete(ctx, fmt.Sprintf(analysisPrompt, transcript))
	if err != nil {
		return nil, err
	}
	jobcontext.ReportProgress(ctx, 80)

	result, err := ParseAnalysis(content)
	if err != nil {
		return nil, err
	}
	result.Model = model

	if g.logger != nil {
		g.logger.Info("✅ Analysis generated",
			zap.String("model", model),
			zap.Bool("has_timeline", result.HasTimeline()),
			zap.Bool("has_tasks", result.HasTasks()),
		)
	}
	return result, nil
}

// ExtractTimeline asks the model for the timeline alone
func (g *GroqClient) ExtractTimeline(ctx context.Context, in stages.ExtractionInput) ([]*entities.TimelineEntry, error) {
	if in.Transcript == nil {
		return nil, entities.PermanentFailure(entities.ReasonInvalidInput, errors.New("transcript missing"))
	}

	content, _, err := g.complete(ctx, fmt.Sprintf(timelinePrompt, in.Transcript.Text))
	if err != nil {
		return nil, err
	}
	return ParseTimeline(in.MeetingID, json.RawMessage(extractJSON(content)))
}

// ExtractTasks asks the model for the tasks alone, using the summary as context when present
func (g *GroqClient) ExtractTasks(ctx context.Context, in stages.ExtractionInput) ([]*entities.Task, error) {
	if in.Transcript == nil {
		return nil, entities.PermanentFailure(entities.ReasonInvalidInput, errors.New("transcript missing"))
	}

	var extra string
	if in.Analysis != nil && in.Analysis.Summary != "" {
		extra = fmt.Sprintf("\nSUMMARY CONTEXT:\n%s\n", in.Analysis.Summary)
	}

	content, _, err := g.complete(ctx, fmt.Sprintf(tasksPrompt, in.Transcript.Text, extra))
	if err != nil {
		return nil, err
	}
	return ParseTasks(in.MeetingID, json.RawMessage(extractJSON(content)))
}

// complete sends one chat completion and returns the assistant content and model
func (g *GroqClient) complete(ctx context.Context, prompt string) (string, string, error) {
	req := chatRequest{
		Model: g.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature:    g.temperature,
		MaxTokens:      g.maxTokens,
		ResponseFormat: &responseFormat{Type: "json_object"},
	}

	var (
		out    chatResponse
		apiErr chatError
	)
	resp, err := g.http.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&out).
		SetError(&apiErr).
		Post("/chat/completions")
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
			return "", "", entities.TransientFailure(entities.ReasonTimeout, fmt.Errorf("groq request timed out: %w", err))
		}
		return "", "", entities.TransientFailure(entities.ReasonUnavailable, fmt.Errorf("groq request failed: %w", err))
	}

	if resp.IsError() {
		msg := apiErr.Error.Message
		if msg == "" {
			msg = strings.TrimSpace(string(resp.Body()))
		}
		failure := statusFailure("groq", resp.StatusCode(), msg)
		if g.logger != nil {
			g.logger.Warn("⚠️ Groq returned an error",
				zap.Int("status", resp.StatusCode()),
				zap.String("reason", failure.Reason),
				zap.String("message", msg),
			)
		}
		return "", "", failure
	}

	if len(out.Choices) == 0 || strings.TrimSpace(out.Choices[0].Message.Content) == "" {
		return "", "", entities.PermanentFailure(entities.ReasonMalformedOutput, errors.New("empty response from groq"))
	}

	model := out.Model
	if model == "" {
		model = g.model
	}
	return out.Choices[0].Message.Content, model, nil
}

// statusFailure classifies a non-2xx vendor response
func statusFailure(vendor string, status int, msg string) *entities.StageFailure {
	err := fmt.Errorf("%s returned status %d: %s", vendor, status, msg)
	switch {
	case status == http.StatusTooManyRequests:
		return entities.TransientFailure(entities.ReasonRateLimited, err)
	case status == http.StatusRequestTimeout, status == http.StatusGatewayTimeout:
		return entities.TransientFailure(entities.ReasonTimeout, err)
	case status >= 500:
		return entities.TransientFailure(entities.ReasonUnavailable, err)
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return entities.PermanentFailure(entities.ReasonAuthRejected, err)
	case status == http.StatusBadRequest, status == http.StatusRequestEntityTooLarge, status == http.StatusUnprocessableEntity:
		return entities.PermanentFailure(entities.ReasonInvalidInput, err)
	}
	return entities.PermanentFailure(entities.ReasonUnknown, err)
}
